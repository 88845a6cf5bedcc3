package wire

import "fmt"

// ===== PROTOBUF WIRE FORMAT TYPES =====

// WireType represents protobuf wire format types
type WireType int8

const (
	WireVarint     WireType = 0 // int32, int64, uint32, uint64, sint32, sint64, bool, enum
	WireFixed64    WireType = 1 // fixed64, sfixed64, double
	WireBytes      WireType = 2 // string, bytes, embedded messages, packed repeated fields
	WireStartGroup WireType = 3 // deprecated group start
	WireEndGroup   WireType = 4 // deprecated group end
	WireFixed32    WireType = 5 // fixed32, sfixed32, float
)

func (wt WireType) String() string {
	switch wt {
	case WireVarint:
		return "varint"
	case WireFixed64:
		return "fixed64"
	case WireBytes:
		return "bytes"
	case WireStartGroup:
		return "start_group"
	case WireEndGroup:
		return "end_group"
	case WireFixed32:
		return "fixed32"
	default:
		return fmt.Sprintf("wiretype(%d)", int8(wt))
	}
}

// Valid reports whether the wire type is one the format defines (0-5).
func (wt WireType) Valid() bool {
	return wt >= WireVarint && wt <= WireFixed32
}

// FieldNumber represents a protobuf field number
type FieldNumber int32

const (
	MinFieldNumber FieldNumber = 1
	MaxFieldNumber FieldNumber = 1<<29 - 1

	// Numbers reserved for the protobuf implementation itself.
	FirstReservedNumber FieldNumber = 19000
	LastReservedNumber  FieldNumber = 19999
)

// IsValid reports whether n fits in a tag.
func (n FieldNumber) IsValid() bool {
	return n >= MinFieldNumber && n <= MaxFieldNumber
}

// IsReserved reports whether n falls in the implementation-reserved range.
func (n FieldNumber) IsReserved() bool {
	return n >= FirstReservedNumber && n <= LastReservedNumber
}

// Tag represents a protobuf field tag (field number + wire type)
type Tag uint64

// MakeTag creates a tag from field number and wire type
func MakeTag(fieldNumber FieldNumber, wireType WireType) Tag {
	return Tag(uint64(fieldNumber)<<3 | uint64(wireType))
}

// ParseTag parses a tag into field number and wire type
func ParseTag(tag Tag) (FieldNumber, WireType) {
	return FieldNumber(tag >> 3), WireType(tag & 0x7)
}

// Value represents a decoded protobuf value
type Value struct {
	FieldNumber FieldNumber
	WireType    WireType
	Data        interface{} // uint64 for varint/fixed, []byte for bytes, []RawField for groups
}

// RawField is one field of a message decoded without a schema.
type RawField struct {
	Offset      int
	FieldNumber FieldNumber
	WireType    WireType
	Data        interface{} // same shapes as Value.Data
	Nested      []RawField  // set when a bytes payload itself parses as a message
}
