package wire

import (
	"fmt"

	"github.com/anirudhraja/protocodec/schema"
)

// EncodePacked writes values as one length-delimited run of concatenated
// scalar encodings under a single tag. Nothing is written for an empty list.
func (e *Encoder) EncodePacked(fieldNumber FieldNumber, pt schema.PrimitiveType, values []interface{}) error {
	if len(values) == 0 {
		return nil
	}
	if !schema.IsPackedType(pt) {
		return fmt.Errorf("%s values cannot be packed", pt)
	}

	e.EncodeTag(fieldNumber, WireBytes)
	mark := e.fork()
	for i, v := range values {
		if err := e.encodeScalar(pt, v); err != nil {
			return fmt.Errorf("packed element %d: %w", i, err)
		}
	}
	e.join(mark)
	return nil
}

// encodePackedEnum is EncodePacked for enum values given as names or numbers
func (e *Encoder) encodePackedEnum(fieldNumber FieldNumber, enumType string, values []interface{}) error {
	if len(values) == 0 {
		return nil
	}

	e.EncodeTag(fieldNumber, WireBytes)
	mark := e.fork()
	for i, v := range values {
		n, err := e.enumNumber(enumType, v)
		if err != nil {
			return fmt.Errorf("packed element %d: %w", i, err)
		}
		e.EncodeInt32(n)
	}
	e.join(mark)
	return nil
}

// decodePacked reads a length-delimited run of scalars and returns them in
// wire order.
func (d *Decoder) decodePacked(ft *schema.FieldType) ([]interface{}, error) {
	payload, start, err := d.DecodeRawBytes()
	if err != nil {
		return nil, err
	}

	run := d.bounded(payload, start)
	values := make([]interface{}, 0, len(payload))
	for !run.Done() {
		var v interface{}
		if ft.Kind == schema.KindEnum {
			v, err = run.decodeEnum(ft.EnumType)
		} else {
			v, err = run.decodeScalar(ft.PrimitiveType)
		}
		if err != nil {
			return nil, err
		}
		values = append(values, v)
	}
	return values, nil
}
