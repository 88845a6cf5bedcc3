package wire

import (
	"fmt"

	"github.com/anirudhraja/protocodec/schema"
)

// Wrapper well-known types (google.protobuf.Int32Value and friends) are
// messages with the wrapped scalar in field 1.
const wrapperValueField FieldNumber = 1

// encodeWrapper writes a wrapper message. The value may be the bare scalar or
// a map holding it under "value". A zero scalar is still written so presence
// survives a round trip.
func (e *Encoder) encodeWrapper(wrapperType schema.WrapperType, value interface{}) error {
	pt, ok := wrapperType.Primitive()
	if !ok {
		return fmt.Errorf("unknown wrapper type: %s", wrapperType)
	}

	if m, ok := value.(map[string]interface{}); ok {
		value = m["value"]
	}

	mark := e.fork()
	if value != nil {
		e.EncodeTag(wrapperValueField, PrimitiveWireType(pt))
		if err := e.encodeScalar(pt, value); err != nil {
			return fmt.Errorf("wrapper %s: %w", wrapperType, err)
		}
	}
	e.join(mark)
	return nil
}

// decodeWrapper decodes a wrapper message. With UnwrapWrappers set the bare
// scalar is returned, otherwise a map with a single "value" key.
func (d *Decoder) decodeWrapper(wrapperType schema.WrapperType) (interface{}, error) {
	pt, ok := wrapperType.Primitive()
	if !ok {
		return nil, fmt.Errorf("unknown wrapper type: %s", wrapperType)
	}

	payload, start, err := d.DecodeRawBytes()
	if err != nil {
		return nil, err
	}
	inner, err := d.sub(payload, start)
	if err != nil {
		return nil, err
	}

	value := scalarDefault(pt, "")
	for !inner.Done() {
		at := inner.pos
		fieldNumber, wireType, err := inner.DecodeTag()
		if err != nil {
			return nil, err
		}
		if fieldNumber == wrapperValueField && wireType == PrimitiveWireType(pt) {
			if value, err = inner.decodeScalar(pt); err != nil {
				return nil, err
			}
			continue
		}
		if fieldNumber == wrapperValueField && inner.config.StrictWireType {
			return nil, inner.fail(at, ErrWireTypeMismatch, fmt.Sprintf("wrapper %s got %s", wrapperType, wireType))
		}
		if err := inner.SkipField(fieldNumber, wireType); err != nil {
			return nil, err
		}
	}

	if d.config.UnwrapWrappers {
		return value, nil
	}
	return map[string]interface{}{"value": value}, nil
}
