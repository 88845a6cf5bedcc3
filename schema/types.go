package schema

import (
	"sort"
	"strconv"
)

// ProtoRepo represents a collection of .proto files and their definitions.
type ProtoRepo struct {
	ProtoFiles map[string]*ProtoFile `json:"proto_files"`
}

// ProtoFile represents a single .proto file
type ProtoFile struct {
	Name     string     `json:"name"`     // library.proto
	Package  string     `json:"package"`  // package name
	Syntax   string     `json:"syntax"`   // proto2, proto3 or editions
	Imports  []*Import  `json:"imports"`  // imported files
	Messages []*Message `json:"messages"` // message definitions
	Enums    []*Enum    `json:"enums"`    // enum definitions
	Services []*Service `json:"services"` // service definitions
}

// Import represents an import statement
type Import struct {
	Path   string `json:"path"`   // "google/api/annotations.proto"
	Public bool   `json:"public"` // public import
	Weak   bool   `json:"weak"`   // weak import
}

// Message represents a protobuf message definition
type Message struct {
	Name        string     `json:"name"`         // "Shelf"
	Fields      []*Field   `json:"fields"`       // message fields, oneof members excluded
	NestedTypes []*Message `json:"nested_types"` // nested messages
	NestedEnums []*Enum    `json:"nested_enums"` // nested enums
	Extensions  []*Field   `json:"extensions"`   // extension fields
	OneofGroups []*Oneof   `json:"oneof_groups"` // oneof groups
	MapEntry    bool       `json:"map_entry"`    // is this a map entry?

	index *fieldIndex // built by Index, nil until then
}

type fieldIndex struct {
	byNumber map[int32]*Field
	byName   map[string]*Field
	oneofs   map[*Field]*Oneof
}

// Field represents a message field
type Field struct {
	Name         string     `json:"name"`          // "shelf_id"
	Number       int32      `json:"number"`        // 1
	Label        FieldLabel `json:"label"`         // optional, required, repeated
	Type         FieldType  `json:"type"`          // field type information
	DefaultValue string     `json:"default_value"` // default value (proto2)
	JsonName     string     `json:"json_name"`     // JSON field name
	Packed       bool       `json:"packed"`        // repeated scalars are written as one packed run
}

// Oneof represents a oneof group. At most one member is set at a time.
type Oneof struct {
	Name   string   `json:"name"`   // "pattern"
	Fields []*Field `json:"fields"` // fields in this oneof
}

// FieldLabel represents field labels
type FieldLabel string

const (
	LabelOptional FieldLabel = "optional"
	LabelRequired FieldLabel = "required"
	LabelRepeated FieldLabel = "repeated"
)

// FieldType represents field type information
type FieldType struct {
	Kind          TypeKind      `json:"kind"`                     // primitive, message, enum, map, wrapper
	PrimitiveType PrimitiveType `json:"primitive_type,omitempty"` // for primitive types
	MessageType   string        `json:"message_type,omitempty"`   // for message types: "Shelf", "google.protobuf.Timestamp"
	EnumType      string        `json:"enum_type,omitempty"`      // for enum types
	WrapperType   WrapperType   `json:"wrapper_type,omitempty"`   // for wrapper types
	MapKey        *FieldType    `json:"map_key,omitempty"`        // for map key type
	MapValue      *FieldType    `json:"map_value,omitempty"`      // for map value type
}

// TypeKind represents the kind of field type
type TypeKind string

const (
	KindPrimitive TypeKind = "primitive"
	KindMessage   TypeKind = "message"
	KindEnum      TypeKind = "enum"
	KindMap       TypeKind = "map"
	KindWrapper   TypeKind = "wrapper"
)

// PrimitiveType represents protobuf primitive types
type PrimitiveType string

const (
	TypeDouble   PrimitiveType = "double"
	TypeFloat    PrimitiveType = "float"
	TypeInt64    PrimitiveType = "int64"
	TypeUint64   PrimitiveType = "uint64"
	TypeInt32    PrimitiveType = "int32"
	TypeFixed64  PrimitiveType = "fixed64"
	TypeFixed32  PrimitiveType = "fixed32"
	TypeBool     PrimitiveType = "bool"
	TypeString   PrimitiveType = "string"
	TypeBytes    PrimitiveType = "bytes"
	TypeUint32   PrimitiveType = "uint32"
	TypeSfixed32 PrimitiveType = "sfixed32"
	TypeSfixed64 PrimitiveType = "sfixed64"
	TypeSint32   PrimitiveType = "sint32"
	TypeSint64   PrimitiveType = "sint64"
)

var primitiveTypes = map[string]PrimitiveType{
	"double":   TypeDouble,
	"float":    TypeFloat,
	"int64":    TypeInt64,
	"uint64":   TypeUint64,
	"int32":    TypeInt32,
	"fixed64":  TypeFixed64,
	"fixed32":  TypeFixed32,
	"bool":     TypeBool,
	"string":   TypeString,
	"bytes":    TypeBytes,
	"uint32":   TypeUint32,
	"sfixed32": TypeSfixed32,
	"sfixed64": TypeSfixed64,
	"sint32":   TypeSint32,
	"sint64":   TypeSint64,
}

// LookupPrimitive maps a .proto scalar type name to its PrimitiveType.
func LookupPrimitive(name string) (PrimitiveType, bool) {
	pt, ok := primitiveTypes[name]
	return pt, ok
}

var packedEligible = map[PrimitiveType]struct{}{
	TypeDouble:   {},
	TypeFloat:    {},
	TypeInt64:    {},
	TypeUint64:   {},
	TypeInt32:    {},
	TypeFixed64:  {},
	TypeFixed32:  {},
	TypeBool:     {},
	TypeUint32:   {},
	TypeSfixed32: {},
	TypeSfixed64: {},
	TypeSint32:   {},
	TypeSint64:   {},
}

// IsPackedType checks and returns if the Primitive type is packed for repeated label
func IsPackedType(t PrimitiveType) bool {
	_, ok := packedEligible[t]
	return ok
}

// IsPackable reports whether a repeated field of this type may use packed encoding.
// Scalars other than string/bytes and enums qualify.
func (ft *FieldType) IsPackable() bool {
	switch ft.Kind {
	case KindEnum:
		return true
	case KindPrimitive:
		return IsPackedType(ft.PrimitiveType)
	default:
		return false
	}
}

// IsValidMapKey reports whether the type may be used as a map key.
func (ft *FieldType) IsValidMapKey() bool {
	if ft.Kind != KindPrimitive {
		return false
	}
	switch ft.PrimitiveType {
	case TypeFloat, TypeDouble, TypeBytes:
		return false
	}
	return true
}

// WrapperType represents protobuf wrapper types
type WrapperType string

const (
	WrapperDoubleValue WrapperType = "google.protobuf.DoubleValue"
	WrapperFloatValue  WrapperType = "google.protobuf.FloatValue"
	WrapperInt64Value  WrapperType = "google.protobuf.Int64Value"
	WrapperUInt64Value WrapperType = "google.protobuf.UInt64Value"
	WrapperInt32Value  WrapperType = "google.protobuf.Int32Value"
	WrapperUInt32Value WrapperType = "google.protobuf.UInt32Value"
	WrapperBoolValue   WrapperType = "google.protobuf.BoolValue"
	WrapperStringValue WrapperType = "google.protobuf.StringValue"
	WrapperBytesValue  WrapperType = "google.protobuf.BytesValue"
)

var wrapperPrimitives = map[WrapperType]PrimitiveType{
	WrapperDoubleValue: TypeDouble,
	WrapperFloatValue:  TypeFloat,
	WrapperInt64Value:  TypeInt64,
	WrapperUInt64Value: TypeUint64,
	WrapperInt32Value:  TypeInt32,
	WrapperUInt32Value: TypeUint32,
	WrapperBoolValue:   TypeBool,
	WrapperStringValue: TypeString,
	WrapperBytesValue:  TypeBytes,
}

// LookupWrapper reports whether a fully qualified message name is a wrapper
// well-known type.
func LookupWrapper(name string) (WrapperType, bool) {
	wt := WrapperType(name)
	_, ok := wrapperPrimitives[wt]
	return wt, ok
}

// Primitive returns the scalar type carried in field 1 of the wrapper.
func (w WrapperType) Primitive() (PrimitiveType, bool) {
	pt, ok := wrapperPrimitives[w]
	return pt, ok
}

// Enum represents an enum definition
type Enum struct {
	Name       string       `json:"name"`        // "Genre"
	Values     []*EnumValue `json:"values"`      // enum values
	AllowAlias bool         `json:"allow_alias"` // allow_alias option
}

// EnumValue represents an enum value
type EnumValue struct {
	Name   string `json:"name"`   // "FICTION"
	Number int32  `json:"number"` // 1
}

// ValueByNumber returns the first value declared with the given number.
func (e *Enum) ValueByNumber(n int32) *EnumValue {
	for _, v := range e.Values {
		if v.Number == n {
			return v
		}
	}
	return nil
}

// ValueByName returns the value with the given name.
func (e *Enum) ValueByName(name string) *EnumValue {
	for _, v := range e.Values {
		if v.Name == name {
			return v
		}
	}
	return nil
}

// Service represents a service definition
type Service struct {
	Name    string    `json:"name"`    // "LibraryService"
	Methods []*Method `json:"methods"` // service methods
}

// Method represents a service method
type Method struct {
	Name            string            `json:"name"`             // "CreateShelf"
	InputType       string            `json:"input_type"`       // "CreateShelfRequest"
	OutputType      string            `json:"output_type"`      // "Shelf"
	ClientStreaming bool              `json:"client_streaming"` // stream input
	ServerStreaming bool              `json:"server_streaming"` // stream output
	Options         map[string]string `json:"options"`          // option name -> literal text, kept opaque
	RawOptions      []byte            `json:"raw_options"`      // encoded MethodOptions when loaded from a descriptor set
}

// MethodByName returns the named method or nil.
func (s *Service) MethodByName(name string) *Method {
	for _, m := range s.Methods {
		if m.Name == name {
			return m
		}
	}
	return nil
}

// AllFields returns the regular fields followed by every oneof member.
func (m *Message) AllFields() []*Field {
	fields := make([]*Field, 0, len(m.Fields))
	fields = append(fields, m.Fields...)
	for _, group := range m.OneofGroups {
		fields = append(fields, group.Fields...)
	}
	return fields
}

// SortedFields returns AllFields ordered by ascending field number.
func (m *Message) SortedFields() []*Field {
	fields := m.AllFields()
	sort.SliceStable(fields, func(i, j int) bool {
		return fields[i].Number < fields[j].Number
	})
	return fields
}

// Index builds lookup tables for FieldByNumber, FieldByName and OneofOf.
// Call it once the fields are final and before the message is shared; later
// changes to the field lists are not seen by the lookups.
func (m *Message) Index() {
	all := m.AllFields()
	idx := &fieldIndex{
		byNumber: make(map[int32]*Field, len(all)),
		byName:   make(map[string]*Field, 2*len(all)),
		oneofs:   make(map[*Field]*Oneof),
	}
	for _, f := range all {
		if _, ok := idx.byNumber[f.Number]; !ok {
			idx.byNumber[f.Number] = f
		}
	}
	// proto names win over JSON names
	for _, f := range all {
		if _, ok := idx.byName[f.Name]; !ok {
			idx.byName[f.Name] = f
		}
	}
	for _, f := range all {
		if _, ok := idx.byName[f.JsonName]; !ok && f.JsonName != "" {
			idx.byName[f.JsonName] = f
		}
	}
	for _, group := range m.OneofGroups {
		for _, f := range group.Fields {
			idx.oneofs[f] = group
		}
	}
	m.index = idx
}

// FieldByNumber finds a field, including oneof members, by number.
func (m *Message) FieldByNumber(number int32) *Field {
	if m.index != nil {
		return m.index.byNumber[number]
	}
	for _, f := range m.AllFields() {
		if f.Number == number {
			return f
		}
	}
	return nil
}

// FieldByName finds a field by its proto name or its JSON name.
func (m *Message) FieldByName(name string) *Field {
	if m.index != nil {
		return m.index.byName[name]
	}
	for _, f := range m.AllFields() {
		if f.Name == name {
			return f
		}
	}
	for _, f := range m.AllFields() {
		if f.JsonName != "" && f.JsonName == name {
			return f
		}
	}
	return nil
}

// OneofOf returns the oneof group containing the field, or nil.
func (m *Message) OneofOf(field *Field) *Oneof {
	if m.index != nil {
		return m.index.oneofs[field]
	}
	for _, group := range m.OneofGroups {
		for _, f := range group.Fields {
			if f == field {
				return group
			}
		}
	}
	return nil
}

// IsRepeated reports whether the field carries a list of values.
func (f *Field) IsRepeated() bool {
	return f.Label == LabelRepeated && f.Type.Kind != KindMap
}

// ParseFieldNumber parses a decimal, hex or octal field number literal.
func ParseFieldNumber(s string) (int32, error) {
	n, err := strconv.ParseInt(s, 0, 32)
	if err != nil {
		return 0, err
	}
	return int32(n), nil
}
