package registry

import (
	"fmt"
	"strings"

	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/descriptorpb"

	"github.com/anirudhraja/protocodec/schema"
)

// LoadDescriptorSet registers the files of a serialized FileDescriptorSet, as
// produced by `protoc --descriptor_set_out --include_imports`. Files already
// known to the registry, the well-known types among them, are skipped.
func (r *Registry) LoadDescriptorSet(data []byte) error {
	var set descriptorpb.FileDescriptorSet
	if err := proto.Unmarshal(data, &set); err != nil {
		return fmt.Errorf("failed to parse descriptor set: %w", err)
	}

	repo := &schema.ProtoRepo{ProtoFiles: make(map[string]*schema.ProtoFile)}
	for _, fd := range set.GetFile() {
		if r.hasFile(fd.GetName()) {
			continue
		}
		protoFile, err := convertFileDescriptor(fd)
		if err != nil {
			return fmt.Errorf("failed to convert %s: %w", fd.GetName(), err)
		}
		repo.ProtoFiles[protoFile.Name] = protoFile
	}
	return r.LoadRepo(repo)
}

func convertFileDescriptor(fd *descriptorpb.FileDescriptorProto) (*schema.ProtoFile, error) {
	syntax := fd.GetSyntax()
	if syntax == "" {
		syntax = "proto2"
	}
	protoFile := &schema.ProtoFile{
		Name:     fd.GetName(),
		Package:  fd.GetPackage(),
		Syntax:   syntax,
		Imports:  []*schema.Import{},
		Messages: []*schema.Message{},
		Enums:    []*schema.Enum{},
		Services: []*schema.Service{},
	}

	public := make(map[int32]struct{})
	for _, i := range fd.GetPublicDependency() {
		public[i] = struct{}{}
	}
	weak := make(map[int32]struct{})
	for _, i := range fd.GetWeakDependency() {
		weak[i] = struct{}{}
	}
	for i, dep := range fd.GetDependency() {
		_, isPublic := public[int32(i)]
		_, isWeak := weak[int32(i)]
		protoFile.Imports = append(protoFile.Imports, &schema.Import{Path: dep, Public: isPublic, Weak: isWeak})
	}

	for _, md := range fd.GetMessageType() {
		msg, err := convertDescriptor(md, syntax)
		if err != nil {
			return nil, err
		}
		protoFile.Messages = append(protoFile.Messages, msg)
	}
	for _, ed := range fd.GetEnumType() {
		protoFile.Enums = append(protoFile.Enums, convertEnumDescriptor(ed))
	}
	for _, sd := range fd.GetService() {
		service, err := convertServiceDescriptor(sd)
		if err != nil {
			return nil, err
		}
		protoFile.Services = append(protoFile.Services, service)
	}
	return protoFile, nil
}

func convertDescriptor(md *descriptorpb.DescriptorProto, syntax string) (*schema.Message, error) {
	msg := &schema.Message{
		Name:        md.GetName(),
		Fields:      []*schema.Field{},
		NestedTypes: []*schema.Message{},
		NestedEnums: []*schema.Enum{},
		OneofGroups: []*schema.Oneof{},
		MapEntry:    md.GetOptions().GetMapEntry(),
	}

	// map entries become map field types instead of nested messages
	entries := make(map[string]*descriptorpb.DescriptorProto)
	for _, nested := range md.GetNestedType() {
		if nested.GetOptions().GetMapEntry() {
			entries[nested.GetName()] = nested
			continue
		}
		converted, err := convertDescriptor(nested, syntax)
		if err != nil {
			return nil, err
		}
		msg.NestedTypes = append(msg.NestedTypes, converted)
	}
	for _, ed := range md.GetEnumType() {
		msg.NestedEnums = append(msg.NestedEnums, convertEnumDescriptor(ed))
	}

	for _, od := range md.GetOneofDecl() {
		msg.OneofGroups = append(msg.OneofGroups, &schema.Oneof{Name: od.GetName(), Fields: []*schema.Field{}})
	}

	for _, fdp := range md.GetField() {
		if fdp.GetType() == descriptorpb.FieldDescriptorProto_TYPE_GROUP {
			continue
		}
		field, err := convertFieldDescriptor(fdp, syntax)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", md.GetName(), err)
		}
		if fdp.GetType() == descriptorpb.FieldDescriptorProto_TYPE_MESSAGE && fdp.GetLabel() == descriptorpb.FieldDescriptorProto_LABEL_REPEATED {
			if entry, ok := entries[lastSegment(fdp.GetTypeName())]; ok {
				if err := toMapField(field, entry, syntax); err != nil {
					return nil, fmt.Errorf("%s.%s: %w", md.GetName(), field.Name, err)
				}
			}
		}

		if fdp.OneofIndex != nil && !fdp.GetProto3Optional() {
			idx := int(fdp.GetOneofIndex())
			if idx >= len(msg.OneofGroups) {
				return nil, fmt.Errorf("%s.%s: oneof index %d out of range", md.GetName(), field.Name, idx)
			}
			msg.OneofGroups[idx].Fields = append(msg.OneofGroups[idx].Fields, field)
			continue
		}
		msg.Fields = append(msg.Fields, field)
	}

	// synthetic oneofs of proto3 optional fields stay empty; drop them
	groups := msg.OneofGroups[:0]
	for _, group := range msg.OneofGroups {
		if len(group.Fields) > 0 {
			groups = append(groups, group)
		}
	}
	msg.OneofGroups = groups
	return msg, nil
}

func convertFieldDescriptor(fdp *descriptorpb.FieldDescriptorProto, syntax string) (*schema.Field, error) {
	field := &schema.Field{
		Name:         fdp.GetName(),
		Number:       fdp.GetNumber(),
		Label:        schema.LabelOptional,
		JsonName:     fdp.GetJsonName(),
		DefaultValue: fdp.GetDefaultValue(),
	}
	if field.JsonName == "" {
		field.JsonName = schema.JSONName(field.Name)
	}
	switch fdp.GetLabel() {
	case descriptorpb.FieldDescriptorProto_LABEL_REPEATED:
		field.Label = schema.LabelRepeated
		field.Packed = syntax != "proto2"
		if fdp.GetOptions() != nil && fdp.GetOptions().Packed != nil {
			field.Packed = fdp.GetOptions().GetPacked()
		}
	case descriptorpb.FieldDescriptorProto_LABEL_REQUIRED:
		field.Label = schema.LabelRequired
	}

	ft, err := descriptorFieldType(fdp.GetType(), fdp.GetTypeName())
	if err != nil {
		return nil, fmt.Errorf("field %s: %w", field.Name, err)
	}
	field.Type = ft
	return field, nil
}

var descriptorPrimitives = map[descriptorpb.FieldDescriptorProto_Type]schema.PrimitiveType{
	descriptorpb.FieldDescriptorProto_TYPE_DOUBLE:   schema.TypeDouble,
	descriptorpb.FieldDescriptorProto_TYPE_FLOAT:    schema.TypeFloat,
	descriptorpb.FieldDescriptorProto_TYPE_INT64:    schema.TypeInt64,
	descriptorpb.FieldDescriptorProto_TYPE_UINT64:   schema.TypeUint64,
	descriptorpb.FieldDescriptorProto_TYPE_INT32:    schema.TypeInt32,
	descriptorpb.FieldDescriptorProto_TYPE_FIXED64:  schema.TypeFixed64,
	descriptorpb.FieldDescriptorProto_TYPE_FIXED32:  schema.TypeFixed32,
	descriptorpb.FieldDescriptorProto_TYPE_BOOL:     schema.TypeBool,
	descriptorpb.FieldDescriptorProto_TYPE_STRING:   schema.TypeString,
	descriptorpb.FieldDescriptorProto_TYPE_BYTES:    schema.TypeBytes,
	descriptorpb.FieldDescriptorProto_TYPE_UINT32:   schema.TypeUint32,
	descriptorpb.FieldDescriptorProto_TYPE_SFIXED32: schema.TypeSfixed32,
	descriptorpb.FieldDescriptorProto_TYPE_SFIXED64: schema.TypeSfixed64,
	descriptorpb.FieldDescriptorProto_TYPE_SINT32:   schema.TypeSint32,
	descriptorpb.FieldDescriptorProto_TYPE_SINT64:   schema.TypeSint64,
}

func descriptorFieldType(t descriptorpb.FieldDescriptorProto_Type, typeName string) (schema.FieldType, error) {
	if pt, ok := descriptorPrimitives[t]; ok {
		return schema.FieldType{Kind: schema.KindPrimitive, PrimitiveType: pt}, nil
	}
	switch t {
	case descriptorpb.FieldDescriptorProto_TYPE_MESSAGE:
		return schema.FieldType{Kind: schema.KindMessage, MessageType: typeName}, nil
	case descriptorpb.FieldDescriptorProto_TYPE_ENUM:
		return schema.FieldType{Kind: schema.KindEnum, EnumType: typeName}, nil
	default:
		return schema.FieldType{}, fmt.Errorf("unsupported field type %s", t)
	}
}

// toMapField turns a repeated reference to a map entry message into a map
// field.
func toMapField(field *schema.Field, entry *descriptorpb.DescriptorProto, syntax string) error {
	var key, value *schema.FieldType
	for _, f := range entry.GetField() {
		converted, err := convertFieldDescriptor(f, syntax)
		if err != nil {
			return err
		}
		switch f.GetNumber() {
		case 1:
			key = &converted.Type
		case 2:
			value = &converted.Type
		}
	}
	if key == nil || value == nil {
		return fmt.Errorf("map entry %s needs key and value fields", entry.GetName())
	}
	field.Type = schema.FieldType{Kind: schema.KindMap, MapKey: key, MapValue: value}
	field.Packed = false
	return nil
}

func convertEnumDescriptor(ed *descriptorpb.EnumDescriptorProto) *schema.Enum {
	enum := &schema.Enum{
		Name:       ed.GetName(),
		Values:     []*schema.EnumValue{},
		AllowAlias: ed.GetOptions().GetAllowAlias(),
	}
	for _, v := range ed.GetValue() {
		enum.Values = append(enum.Values, &schema.EnumValue{Name: v.GetName(), Number: v.GetNumber()})
	}
	return enum
}

func convertServiceDescriptor(sd *descriptorpb.ServiceDescriptorProto) (*schema.Service, error) {
	service := &schema.Service{Name: sd.GetName(), Methods: []*schema.Method{}}
	for _, m := range sd.GetMethod() {
		method := &schema.Method{
			Name:            m.GetName(),
			InputType:       m.GetInputType(),
			OutputType:      m.GetOutputType(),
			ClientStreaming: m.GetClientStreaming(),
			ServerStreaming: m.GetServerStreaming(),
			Options:         map[string]string{},
		}
		if m.GetOptions() != nil {
			raw, err := proto.Marshal(m.GetOptions())
			if err != nil {
				return nil, fmt.Errorf("%s.%s: failed to encode options: %w", sd.GetName(), m.GetName(), err)
			}
			method.RawOptions = raw
		}
		service.Methods = append(service.Methods, method)
	}
	return service, nil
}

func lastSegment(typeName string) string {
	return typeName[strings.LastIndex(typeName, ".")+1:]
}
