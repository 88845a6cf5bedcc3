package wire

import "fmt"

// SkipField consumes the value of a field whose tag has just been read,
// discarding it. Groups are skipped recursively up to the matching end tag.
func (d *Decoder) SkipField(fieldNumber FieldNumber, wireType WireType) error {
	switch wireType {
	case WireVarint:
		return d.SkipVarint()
	case WireFixed64:
		return d.skipN(8)
	case WireBytes:
		return d.SkipBytes()
	case WireFixed32:
		return d.skipN(4)
	case WireStartGroup:
		return d.skipGroup(fieldNumber)
	case WireEndGroup:
		return d.fail(d.pos, ErrMismatchedEndGroup, fmt.Sprintf("end group for field %d without start", fieldNumber))
	default:
		return d.fail(d.pos, ErrUnknownWireType, fmt.Sprintf("wire type %d", wireType))
	}
}

func (d *Decoder) skipN(n int) error {
	if d.pos+n > len(d.buf) {
		return d.fail(d.pos, ErrTruncatedMessage, fmt.Sprintf("need %d bytes, have %d", n, len(d.buf)-d.pos))
	}
	d.pos += n
	return nil
}

func (d *Decoder) skipGroup(fieldNumber FieldNumber) error {
	if !d.config.SkipGroups {
		return d.fail(d.pos, ErrUnsupportedWireType, "group encoding")
	}
	if d.depth+1 > d.config.maxDepth() {
		return d.fail(d.pos, ErrMaxDepth, fmt.Sprintf("limit %d", d.config.maxDepth()))
	}
	d.depth++
	defer func() { d.depth-- }()

	for {
		if d.Done() {
			return d.fail(d.pos, ErrTruncatedMessage, fmt.Sprintf("group %d not terminated", fieldNumber))
		}
		at := d.pos
		num, wt, err := d.DecodeTag()
		if err != nil {
			return err
		}
		if wt == WireEndGroup {
			if num != fieldNumber {
				return d.fail(at, ErrMismatchedEndGroup, fmt.Sprintf("expected end of group %d, got %d", fieldNumber, num))
			}
			return nil
		}
		if err := d.SkipField(num, wt); err != nil {
			return err
		}
	}
}
