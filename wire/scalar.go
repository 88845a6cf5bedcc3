package wire

import (
	"fmt"

	"github.com/anirudhraja/protocodec/schema"
)

// PrimitiveWireType returns the natural wire type of a scalar type
func PrimitiveWireType(pt schema.PrimitiveType) WireType {
	switch pt {
	case schema.TypeString, schema.TypeBytes:
		return WireBytes
	case schema.TypeFloat, schema.TypeFixed32, schema.TypeSfixed32:
		return WireFixed32
	case schema.TypeDouble, schema.TypeFixed64, schema.TypeSfixed64:
		return WireFixed64
	default:
		return WireVarint
	}
}

// FieldWireType returns the wire type a single value of the field type uses
func FieldWireType(ft *schema.FieldType) WireType {
	switch ft.Kind {
	case schema.KindPrimitive:
		return PrimitiveWireType(ft.PrimitiveType)
	case schema.KindEnum:
		return WireVarint
	default:
		// messages, maps and wrappers are length-delimited
		return WireBytes
	}
}

// encodeScalar writes a scalar value, without tag, coercing it to pt first
func (e *Encoder) encodeScalar(pt schema.PrimitiveType, value interface{}) error {
	switch pt {
	case schema.TypeInt32:
		v, err := toInt32(value)
		if err != nil {
			return err
		}
		e.EncodeInt32(v)
	case schema.TypeInt64:
		v, err := toInt64(value)
		if err != nil {
			return err
		}
		e.EncodeInt64(v)
	case schema.TypeUint32:
		v, err := toUint32(value)
		if err != nil {
			return err
		}
		e.EncodeUint32(v)
	case schema.TypeUint64:
		v, err := toUint64(value)
		if err != nil {
			return err
		}
		e.EncodeVarint(v)
	case schema.TypeSint32:
		v, err := toInt32(value)
		if err != nil {
			return err
		}
		e.EncodeSint32(v)
	case schema.TypeSint64:
		v, err := toInt64(value)
		if err != nil {
			return err
		}
		e.EncodeSint64(v)
	case schema.TypeBool:
		v, err := toBool(value)
		if err != nil {
			return err
		}
		e.EncodeBool(v)
	case schema.TypeFixed32:
		v, err := toUint32(value)
		if err != nil {
			return err
		}
		e.EncodeFixed32(v)
	case schema.TypeSfixed32:
		v, err := toInt32(value)
		if err != nil {
			return err
		}
		e.EncodeSfixed32(v)
	case schema.TypeFixed64:
		v, err := toUint64(value)
		if err != nil {
			return err
		}
		e.EncodeFixed64(v)
	case schema.TypeSfixed64:
		v, err := toInt64(value)
		if err != nil {
			return err
		}
		e.EncodeSfixed64(v)
	case schema.TypeFloat:
		v, err := toFloat32(value)
		if err != nil {
			return err
		}
		e.EncodeFloat32(v)
	case schema.TypeDouble:
		v, err := toFloat64(value)
		if err != nil {
			return err
		}
		e.EncodeFloat64(v)
	case schema.TypeString:
		v, err := toString(value)
		if err != nil {
			return err
		}
		return e.EncodeString(v)
	case schema.TypeBytes:
		v, err := toBytes(value)
		if err != nil {
			return err
		}
		e.EncodeBytes(v)
	default:
		return fmt.Errorf("unsupported primitive type: %s", pt)
	}
	return nil
}

// decodeScalar reads a scalar value whose wire type has already been checked
// against pt.
func (d *Decoder) decodeScalar(pt schema.PrimitiveType) (interface{}, error) {
	switch pt {
	case schema.TypeInt32:
		return d.DecodeInt32()
	case schema.TypeInt64:
		return d.DecodeInt64()
	case schema.TypeUint32:
		return d.DecodeUint32()
	case schema.TypeUint64:
		return d.DecodeVarint()
	case schema.TypeSint32:
		return d.DecodeSint32()
	case schema.TypeSint64:
		return d.DecodeSint64()
	case schema.TypeBool:
		return d.DecodeBool()
	case schema.TypeFixed32:
		return d.DecodeFixed32()
	case schema.TypeSfixed32:
		return d.DecodeSfixed32()
	case schema.TypeFixed64:
		return d.DecodeFixed64()
	case schema.TypeSfixed64:
		return d.DecodeSfixed64()
	case schema.TypeFloat:
		return d.DecodeFloat32()
	case schema.TypeDouble:
		return d.DecodeFloat64()
	case schema.TypeString:
		return d.DecodeString()
	case schema.TypeBytes:
		return d.DecodeBytes()
	default:
		return nil, fmt.Errorf("unsupported primitive type: %s", pt)
	}
}

// scalarDefault returns the zero value of pt, or the parsed proto2 default.
func scalarDefault(pt schema.PrimitiveType, literal string) interface{} {
	if literal != "" {
		if v, err := parseDefault(pt, literal); err == nil {
			return v
		}
	}
	switch pt {
	case schema.TypeInt32, schema.TypeSint32, schema.TypeSfixed32:
		return int32(0)
	case schema.TypeInt64, schema.TypeSint64, schema.TypeSfixed64:
		return int64(0)
	case schema.TypeUint32, schema.TypeFixed32:
		return uint32(0)
	case schema.TypeUint64, schema.TypeFixed64:
		return uint64(0)
	case schema.TypeBool:
		return false
	case schema.TypeFloat:
		return float32(0)
	case schema.TypeDouble:
		return float64(0)
	case schema.TypeString:
		return ""
	case schema.TypeBytes:
		return []byte{}
	default:
		return nil
	}
}

func parseDefault(pt schema.PrimitiveType, literal string) (interface{}, error) {
	switch pt {
	case schema.TypeInt32, schema.TypeSint32, schema.TypeSfixed32:
		return toInt32(literal)
	case schema.TypeInt64, schema.TypeSint64, schema.TypeSfixed64:
		return toInt64(literal)
	case schema.TypeUint32, schema.TypeFixed32:
		return toUint32(literal)
	case schema.TypeUint64, schema.TypeFixed64:
		return toUint64(literal)
	case schema.TypeBool:
		return toBool(literal)
	case schema.TypeFloat:
		return toFloat32(literal)
	case schema.TypeDouble:
		return toFloat64(literal)
	case schema.TypeString:
		return literal, nil
	case schema.TypeBytes:
		return []byte(literal), nil
	default:
		return nil, fmt.Errorf("no default for %s", pt)
	}
}
