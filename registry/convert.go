package registry

import (
	"fmt"

	"go.uber.org/multierr"

	protoparserparser "github.com/yoheimuta/go-protoparser/v4/parser"

	"github.com/anirudhraja/protocodec/schema"
)

// convertProto turns a parsed .proto file into schema definitions. Type
// references are left as written; LoadRepo resolves them.
func convertProto(name string, proto *protoparserparser.Proto) (*schema.ProtoFile, error) {
	if proto == nil {
		return nil, fmt.Errorf("%s was not parsed", name)
	}

	protoFile := &schema.ProtoFile{
		Name:     name,
		Syntax:   "proto2", // no syntax statement means proto2
		Imports:  []*schema.Import{},
		Messages: []*schema.Message{},
		Enums:    []*schema.Enum{},
		Services: []*schema.Service{},
	}
	if proto.Syntax != nil && proto.Syntax.ProtobufVersion != "" {
		protoFile.Syntax = proto.Syntax.ProtobufVersion
	}

	var errs error
	for _, body := range proto.ProtoBody {
		switch b := body.(type) {
		case *protoparserparser.Package:
			protoFile.Package = b.Name
		case *protoparserparser.Import:
			protoFile.Imports = append(protoFile.Imports, &schema.Import{
				Path:   unquote(b.Location),
				Public: b.Modifier == protoparserparser.ImportModifierPublic,
				Weak:   b.Modifier == protoparserparser.ImportModifierWeak,
			})
		case *protoparserparser.Message:
			msg, err := convertMessage(b, protoFile.Syntax)
			errs = multierr.Append(errs, err)
			if msg != nil {
				protoFile.Messages = append(protoFile.Messages, msg)
			}
		case *protoparserparser.Enum:
			enum, err := convertEnum(b)
			errs = multierr.Append(errs, err)
			if enum != nil {
				protoFile.Enums = append(protoFile.Enums, enum)
			}
		case *protoparserparser.Service:
			protoFile.Services = append(protoFile.Services, convertService(b))
		}
	}
	if errs != nil {
		return nil, errs
	}
	return protoFile, nil
}

func convertMessage(m *protoparserparser.Message, syntax string) (*schema.Message, error) {
	msg := &schema.Message{
		Name:        m.MessageName,
		Fields:      []*schema.Field{},
		NestedTypes: []*schema.Message{},
		NestedEnums: []*schema.Enum{},
		OneofGroups: []*schema.Oneof{},
	}

	var errs error
	for _, body := range m.MessageBody {
		switch b := body.(type) {
		case *protoparserparser.Field:
			label := schema.LabelOptional
			if b.IsRepeated {
				label = schema.LabelRepeated
			} else if b.IsRequired {
				label = schema.LabelRequired
			}
			field, err := newField(b.FieldName, b.FieldNumber, label, b.Type, b.FieldOptions, syntax)
			if err != nil {
				errs = multierr.Append(errs, fmt.Errorf("%s: %w", m.MessageName, err))
				continue
			}
			msg.Fields = append(msg.Fields, field)

		case *protoparserparser.MapField:
			field, err := newField(b.MapName, b.FieldNumber, schema.LabelRepeated, b.Type, b.FieldOptions, syntax)
			if err != nil {
				errs = multierr.Append(errs, fmt.Errorf("%s: %w", m.MessageName, err))
				continue
			}
			value := field.Type
			field.Type = schema.FieldType{
				Kind:     schema.KindMap,
				MapKey:   fieldType(b.KeyType),
				MapValue: &value,
			}
			field.Packed = false
			msg.Fields = append(msg.Fields, field)

		case *protoparserparser.Oneof:
			group := &schema.Oneof{Name: b.OneofName, Fields: []*schema.Field{}}
			for _, of := range b.OneofFields {
				field, err := newField(of.FieldName, of.FieldNumber, schema.LabelOptional, of.Type, of.FieldOptions, syntax)
				if err != nil {
					errs = multierr.Append(errs, fmt.Errorf("%s.%s: %w", m.MessageName, b.OneofName, err))
					continue
				}
				group.Fields = append(group.Fields, field)
			}
			msg.OneofGroups = append(msg.OneofGroups, group)

		case *protoparserparser.Message:
			nested, err := convertMessage(b, syntax)
			errs = multierr.Append(errs, err)
			if nested != nil {
				msg.NestedTypes = append(msg.NestedTypes, nested)
			}

		case *protoparserparser.Enum:
			nested, err := convertEnum(b)
			errs = multierr.Append(errs, err)
			if nested != nil {
				msg.NestedEnums = append(msg.NestedEnums, nested)
			}
		}
	}
	return msg, errs
}

// newField builds a field from its .proto declaration. Repeated scalars are
// packed by default in proto3 and unpacked in proto2; [packed=...] overrides.
func newField(name, number string, label schema.FieldLabel, typeName string, options []*protoparserparser.FieldOption, syntax string) (*schema.Field, error) {
	n, err := schema.ParseFieldNumber(number)
	if err != nil {
		return nil, fmt.Errorf("field %s: invalid number %q: %w", name, number, err)
	}

	field := &schema.Field{
		Name:     name,
		Number:   n,
		Label:    label,
		Type:     *fieldType(typeName),
		JsonName: schema.JSONName(name),
		Packed:   label == schema.LabelRepeated && syntax != "proto2",
	}
	for _, opt := range options {
		switch opt.OptionName {
		case "packed":
			field.Packed = opt.Constant == "true"
		case "json_name":
			field.JsonName = unquote(opt.Constant)
		case "default":
			field.DefaultValue = unquote(opt.Constant)
		}
	}
	return field, nil
}

// fieldType maps a type name to a FieldType. Non-scalar names are recorded as
// messages until resolution tells enums and wrappers apart.
func fieldType(typeName string) *schema.FieldType {
	if pt, ok := schema.LookupPrimitive(typeName); ok {
		return &schema.FieldType{Kind: schema.KindPrimitive, PrimitiveType: pt}
	}
	return &schema.FieldType{Kind: schema.KindMessage, MessageType: typeName}
}

func convertEnum(e *protoparserparser.Enum) (*schema.Enum, error) {
	enum := &schema.Enum{Name: e.EnumName, Values: []*schema.EnumValue{}}
	var errs error
	for _, body := range e.EnumBody {
		switch b := body.(type) {
		case *protoparserparser.EnumField:
			n, err := schema.ParseFieldNumber(b.Number)
			if err != nil {
				errs = multierr.Append(errs, fmt.Errorf("enum %s value %s: invalid number %q", e.EnumName, b.Ident, b.Number))
				continue
			}
			enum.Values = append(enum.Values, &schema.EnumValue{Name: b.Ident, Number: n})
		case *protoparserparser.Option:
			if b.OptionName == "allow_alias" {
				enum.AllowAlias = b.Constant == "true"
			}
		}
	}
	return enum, errs
}

func convertService(s *protoparserparser.Service) *schema.Service {
	service := &schema.Service{Name: s.ServiceName, Methods: []*schema.Method{}}
	for _, body := range s.ServiceBody {
		rpc, ok := body.(*protoparserparser.RPC)
		if !ok {
			continue
		}
		method := &schema.Method{
			Name:    rpc.RPCName,
			Options: map[string]string{},
		}
		if rpc.RPCRequest != nil {
			method.InputType = rpc.RPCRequest.MessageType
			method.ClientStreaming = rpc.RPCRequest.IsStream
		}
		if rpc.RPCResponse != nil {
			method.OutputType = rpc.RPCResponse.MessageType
			method.ServerStreaming = rpc.RPCResponse.IsStream
		}
		// options such as google.api.http are kept opaque
		for _, opt := range rpc.Options {
			method.Options[opt.OptionName] = opt.Constant
		}
		service.Methods = append(service.Methods, method)
	}
	return service
}
