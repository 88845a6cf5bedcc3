package registry

import (
	"github.com/anirudhraja/protocodec/schema"
)

const wellKnownPackage = "google.protobuf"

// builtinFiles returns the well-known types every registry starts with, so
// schemas may import google/protobuf/*.proto without shipping the files.
// Type references are already fully qualified.
func builtinFiles() []*schema.ProtoFile {
	files := []*schema.ProtoFile{
		wellKnownFile("timestamp.proto", []*schema.Message{
			{Name: "Timestamp", Fields: []*schema.Field{
				primitive("seconds", 1, schema.TypeInt64),
				primitive("nanos", 2, schema.TypeInt32),
			}},
		}, nil),
		wellKnownFile("duration.proto", []*schema.Message{
			{Name: "Duration", Fields: []*schema.Field{
				primitive("seconds", 1, schema.TypeInt64),
				primitive("nanos", 2, schema.TypeInt32),
			}},
		}, nil),
		wellKnownFile("empty.proto", []*schema.Message{
			{Name: "Empty", Fields: []*schema.Field{}},
		}, nil),
		wellKnownFile("field_mask.proto", []*schema.Message{
			{Name: "FieldMask", Fields: []*schema.Field{
				{Name: "paths", Number: 1, Label: schema.LabelRepeated, JsonName: "paths",
					Type: schema.FieldType{Kind: schema.KindPrimitive, PrimitiveType: schema.TypeString}},
			}},
		}, nil),
		wellKnownFile("any.proto", []*schema.Message{
			{Name: "Any", Fields: []*schema.Field{
				primitive("type_url", 1, schema.TypeString),
				primitive("value", 2, schema.TypeBytes),
			}},
		}, nil),
		structFile(),
	}

	var wrappers []*schema.Message
	for _, w := range []schema.WrapperType{
		schema.WrapperDoubleValue,
		schema.WrapperFloatValue,
		schema.WrapperInt64Value,
		schema.WrapperUInt64Value,
		schema.WrapperInt32Value,
		schema.WrapperUInt32Value,
		schema.WrapperBoolValue,
		schema.WrapperStringValue,
		schema.WrapperBytesValue,
	} {
		pt, _ := w.Primitive()
		wrappers = append(wrappers, &schema.Message{
			Name:   string(w)[len(wellKnownPackage)+1:],
			Fields: []*schema.Field{primitive("value", 1, pt)},
		})
	}
	files = append(files, wellKnownFile("wrappers.proto", wrappers, nil))
	return files
}

func structFile() *schema.ProtoFile {
	value := &schema.Message{
		Name:   "Value",
		Fields: []*schema.Field{},
		OneofGroups: []*schema.Oneof{{
			Name: "kind",
			Fields: []*schema.Field{
				{Name: "null_value", Number: 1, Label: schema.LabelOptional, JsonName: "nullValue",
					Type: schema.FieldType{Kind: schema.KindEnum, EnumType: "google.protobuf.NullValue"}},
				primitive("number_value", 2, schema.TypeDouble),
				primitive("string_value", 3, schema.TypeString),
				primitive("bool_value", 4, schema.TypeBool),
				message("struct_value", 5, "google.protobuf.Struct"),
				message("list_value", 6, "google.protobuf.ListValue"),
			},
		}},
	}
	structMsg := &schema.Message{
		Name: "Struct",
		Fields: []*schema.Field{
			{Name: "fields", Number: 1, Label: schema.LabelRepeated, JsonName: "fields",
				Type: schema.FieldType{
					Kind:     schema.KindMap,
					MapKey:   &schema.FieldType{Kind: schema.KindPrimitive, PrimitiveType: schema.TypeString},
					MapValue: &schema.FieldType{Kind: schema.KindMessage, MessageType: "google.protobuf.Value"},
				}},
		},
	}
	list := &schema.Message{
		Name: "ListValue",
		Fields: []*schema.Field{
			{Name: "values", Number: 1, Label: schema.LabelRepeated, JsonName: "values",
				Type: schema.FieldType{Kind: schema.KindMessage, MessageType: "google.protobuf.Value"}},
		},
	}
	nullValue := &schema.Enum{
		Name:   "NullValue",
		Values: []*schema.EnumValue{{Name: "NULL_VALUE", Number: 0}},
	}
	return wellKnownFile("struct.proto", []*schema.Message{structMsg, value, list}, []*schema.Enum{nullValue})
}

func wellKnownFile(name string, messages []*schema.Message, enums []*schema.Enum) *schema.ProtoFile {
	if enums == nil {
		enums = []*schema.Enum{}
	}
	return &schema.ProtoFile{
		Name:     wellKnownPrefix + name,
		Package:  wellKnownPackage,
		Syntax:   "proto3",
		Imports:  []*schema.Import{},
		Messages: messages,
		Enums:    enums,
		Services: []*schema.Service{},
	}
}

func primitive(name string, number int32, pt schema.PrimitiveType) *schema.Field {
	return &schema.Field{
		Name:     name,
		Number:   number,
		Label:    schema.LabelOptional,
		JsonName: schema.JSONName(name),
		Type:     schema.FieldType{Kind: schema.KindPrimitive, PrimitiveType: pt},
	}
}

func message(name string, number int32, typeName string) *schema.Field {
	return &schema.Field{
		Name:     name,
		Number:   number,
		Label:    schema.LabelOptional,
		JsonName: schema.JSONName(name),
		Type:     schema.FieldType{Kind: schema.KindMessage, MessageType: typeName},
	}
}
