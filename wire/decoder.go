package wire

import (
	"fmt"

	"github.com/anirudhraja/protocodec/schema"
)

// Decoder handles low-level protobuf wire format decoding
type Decoder struct {
	buf      []byte
	pos      int
	base     int // offset of buf[0] in the top-level input
	depth    int
	resolver Resolver
	config   Config
}

// NewDecoder creates a new wire format decoder
func NewDecoder(data []byte) *Decoder {
	return &Decoder{
		buf:    data,
		config: DefaultConfig(),
	}
}

// NewDecoderWithResolver creates a decoder that can resolve nested types
func NewDecoderWithResolver(data []byte, resolver Resolver, config Config) *Decoder {
	return &Decoder{
		buf:      data,
		resolver: resolver,
		config:   config,
	}
}

// DecodeMessage decodes protobuf bytes using schema - main entry point
func DecodeMessage(data []byte, msg *schema.Message, resolver Resolver, config Config) (map[string]interface{}, error) {
	decoder := NewDecoderWithResolver(data, resolver, config)
	return decoder.DecodeWithSchema(msg)
}

// Pos returns the current read position within the decoder's buffer
func (d *Decoder) Pos() int {
	return d.pos
}

// Done reports whether the whole buffer has been consumed
func (d *Decoder) Done() bool {
	return d.pos >= len(d.buf)
}

// fail builds a DecodeError for the element starting at buffer position at
func (d *Decoder) fail(at int, kind error, detail string) error {
	return &DecodeError{Offset: d.base + at, Err: kind, Detail: detail}
}

// bounded returns a decoder limited to payload, which starts at position start
// of this decoder's buffer. Offsets reported by it stay absolute.
func (d *Decoder) bounded(payload []byte, start int) *Decoder {
	return &Decoder{
		buf:      payload,
		base:     d.base + start,
		depth:    d.depth,
		resolver: d.resolver,
		config:   d.config,
	}
}

// sub is bounded for a nested message: it also counts one nesting level.
func (d *Decoder) sub(payload []byte, start int) (*Decoder, error) {
	if d.depth+1 > d.config.maxDepth() {
		return nil, d.fail(start, ErrMaxDepth, fmt.Sprintf("limit %d", d.config.maxDepth()))
	}
	nested := d.bounded(payload, start)
	nested.depth++
	return nested, nil
}

// DecodeTag reads a tag and splits it into field number and wire type.
// Field number 0 and wire types 6 and 7 are rejected here, before any
// dispatch, so unknown fields with such tags fail too.
func (d *Decoder) DecodeTag() (FieldNumber, WireType, error) {
	at := d.pos
	tag, err := d.DecodeVarint()
	if err != nil {
		return 0, 0, err
	}

	if tag>>3 > uint64(MaxFieldNumber) {
		return 0, 0, d.fail(at, ErrInvalidFieldNumber, fmt.Sprintf("tag %d", tag))
	}
	fieldNumber, wireType := ParseTag(Tag(tag))
	if fieldNumber < MinFieldNumber {
		return 0, 0, d.fail(at, ErrInvalidFieldNumber, "field number 0")
	}
	if !wireType.Valid() {
		return 0, 0, d.fail(at, ErrUnknownWireType, fmt.Sprintf("wire type %d for field %d", wireType, fieldNumber))
	}
	return fieldNumber, wireType, nil
}

// decodeRawValue decodes without type information
func (d *Decoder) decodeRawValue(fieldNumber FieldNumber, wireType WireType) (interface{}, error) {
	switch wireType {
	case WireVarint:
		return d.DecodeVarint()
	case WireFixed64:
		return d.DecodeFixed64()
	case WireBytes:
		return d.DecodeBytes()
	case WireFixed32:
		v, err := d.DecodeFixed32()
		return uint64(v), err
	case WireStartGroup:
		return d.decodeRawGroup(fieldNumber)
	default:
		return nil, d.fail(d.pos, ErrMismatchedEndGroup, fmt.Sprintf("end group for field %d without start", fieldNumber))
	}
}

// decodeRawGroup collects the fields of a group up to its matching end tag
func (d *Decoder) decodeRawGroup(fieldNumber FieldNumber) ([]RawField, error) {
	if !d.config.SkipGroups {
		return nil, d.fail(d.pos, ErrUnsupportedWireType, "group encoding")
	}
	if d.depth+1 > d.config.maxDepth() {
		return nil, d.fail(d.pos, ErrMaxDepth, "")
	}
	d.depth++
	defer func() { d.depth-- }()

	var fields []RawField
	for {
		if d.Done() {
			return nil, d.fail(d.pos, ErrTruncatedMessage, fmt.Sprintf("group %d not terminated", fieldNumber))
		}
		at := d.pos
		num, wt, err := d.DecodeTag()
		if err != nil {
			return nil, err
		}
		if wt == WireEndGroup {
			if num != fieldNumber {
				return nil, d.fail(at, ErrMismatchedEndGroup, fmt.Sprintf("expected end of group %d, got %d", fieldNumber, num))
			}
			return fields, nil
		}
		value, err := d.decodeRawValue(num, wt)
		if err != nil {
			return nil, err
		}
		fields = append(fields, RawField{Offset: d.base + at, FieldNumber: num, WireType: wt, Data: value})
	}
}

// DecodeField decodes a single field from the current position. It returns
// nil when the buffer is exhausted.
func (d *Decoder) DecodeField() (*Value, error) {
	if d.Done() {
		return nil, nil
	}

	fieldNumber, wireType, err := d.DecodeTag()
	if err != nil {
		return nil, err
	}

	data, err := d.decodeRawValue(fieldNumber, wireType)
	if err != nil {
		return nil, err
	}

	return &Value{
		FieldNumber: fieldNumber,
		WireType:    wireType,
		Data:        data,
	}, nil
}

// DecodeRaw decodes every field of data without a schema. Length-delimited
// payloads that themselves parse cleanly as a message are expanded into
// RawField.Nested, the way protoc --decode_raw guesses.
func DecodeRaw(data []byte, config Config) ([]RawField, error) {
	d := NewDecoderWithResolver(data, nil, config)
	return d.decodeRawFields()
}

func (d *Decoder) decodeRawFields() ([]RawField, error) {
	var fields []RawField
	for !d.Done() {
		at := d.pos
		fieldNumber, wireType, err := d.DecodeTag()
		if err != nil {
			return nil, err
		}

		field := RawField{Offset: d.base + at, FieldNumber: fieldNumber, WireType: wireType}
		if wireType == WireBytes {
			payload, start, err := d.DecodeRawBytes()
			if err != nil {
				return nil, err
			}
			field.Data = append([]byte(nil), payload...)
			if len(payload) > 0 {
				if nested, err := d.sub(payload, start); err == nil {
					if inner, err := nested.decodeRawFields(); err == nil {
						field.Nested = inner
					}
				}
			}
		} else {
			field.Data, err = d.decodeRawValue(fieldNumber, wireType)
			if err != nil {
				return nil, err
			}
		}
		fields = append(fields, field)
	}
	return fields, nil
}
