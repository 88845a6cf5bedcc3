package wire

import (
	"fmt"
	"sort"

	"github.com/anirudhraja/protocodec/schema"
)

// DECODER METHODS

// DecodeWithSchema decodes the decoder's whole buffer as an instance of msg.
// Repeated values keep wire order across all occurrences of a field, the last
// occurrence of a singular field wins (messages are merged), and at most one
// member of each oneof survives. Any error discards the partial result.
func (d *Decoder) DecodeWithSchema(msg *schema.Message) (map[string]interface{}, error) {
	result, err := d.decodeFields(msg)
	if err != nil {
		return nil, err
	}
	// defaults go in after every occurrence of a nested message has merged
	if d.config.PopulateDefaults {
		d.populateDefaults(msg, result)
	}
	return result, nil
}

// decodeFields decodes the fields present on the wire, without defaults.
func (d *Decoder) decodeFields(msg *schema.Message) (map[string]interface{}, error) {
	result := make(map[string]interface{})
	mapCollector := make(map[string]map[interface{}]interface{})
	repeatedCollector := make(map[string][]interface{})
	var unknown []byte

	for !d.Done() {
		at := d.pos
		fieldNumber, wireType, err := d.DecodeTag()
		if err != nil {
			return nil, err
		}

		field := msg.FieldByNumber(int32(fieldNumber))
		if field != nil && !acceptsWireType(field, wireType) {
			if d.config.StrictWireType {
				detail := fmt.Sprintf("field %d declared %s, got %s", fieldNumber, FieldWireType(&field.Type), wireType)
				return nil, wrapWithField(d.fail(at, ErrWireTypeMismatch, detail), field.Name)
			}
			field = nil
		}

		if field == nil {
			// Unknown field - skip it
			if err := d.SkipField(fieldNumber, wireType); err != nil {
				return nil, err
			}
			if d.config.PreserveUnknownFields {
				unknown = append(unknown, d.buf[at:d.pos]...)
			}
			continue
		}

		switch {
		case field.Type.Kind == schema.KindMap:
			key, value, err := d.decodeMapEntry(field.Type.MapKey, field.Type.MapValue)
			if err != nil {
				return nil, wrapWithField(err, field.Name)
			}
			if mapCollector[field.Name] == nil {
				mapCollector[field.Name] = make(map[interface{}]interface{})
			}
			mapCollector[field.Name][key] = value

		case field.IsRepeated():
			if wireType == WireBytes && field.Type.IsPackable() {
				values, err := d.decodePacked(&field.Type)
				if err != nil {
					return nil, wrapWithField(err, field.Name)
				}
				if repeatedCollector[field.Name] == nil {
					repeatedCollector[field.Name] = make([]interface{}, 0, len(values))
				}
				repeatedCollector[field.Name] = append(repeatedCollector[field.Name], values...)
				continue
			}
			value, err := d.decodeValue(&field.Type)
			if err != nil {
				return nil, wrapWithField(err, field.Name)
			}
			repeatedCollector[field.Name] = append(repeatedCollector[field.Name], value)

		default:
			value, err := d.decodeValue(&field.Type)
			if err != nil {
				return nil, wrapWithField(err, field.Name)
			}
			if prev, ok := result[field.Name].(map[string]interface{}); ok {
				if next, ok := value.(map[string]interface{}); ok {
					value = d.mergeMessage(d.messageSchema(&field.Type), prev, next)
				}
			}
			result[field.Name] = value
			if group := msg.OneofOf(field); group != nil {
				for _, other := range group.Fields {
					if other != field {
						delete(result, other.Name)
					}
				}
			}
		}
	}

	for fieldName, mapData := range mapCollector {
		result[fieldName] = mapData
	}
	for fieldName, repeatedData := range repeatedCollector {
		result[fieldName] = repeatedData
	}
	if len(unknown) > 0 {
		result[UnknownFieldsKey] = unknown
	}
	return result, nil
}

// acceptsWireType reports whether wireType is a valid encoding for field.
// Repeated scalars accept both their own wire type and the packed form.
func acceptsWireType(field *schema.Field, wireType WireType) bool {
	if wireType == FieldWireType(&field.Type) {
		return true
	}
	return field.IsRepeated() && field.Type.IsPackable() && wireType == WireBytes
}

// decodeValue routes to the appropriate decoder based on field type
func (d *Decoder) decodeValue(fieldType *schema.FieldType) (interface{}, error) {
	switch fieldType.Kind {
	case schema.KindPrimitive:
		return d.decodeScalar(fieldType.PrimitiveType)
	case schema.KindEnum:
		return d.decodeEnum(fieldType.EnumType)
	case schema.KindMessage:
		return d.decodeNestedMessage(fieldType.MessageType)
	case schema.KindWrapper:
		return d.decodeWrapper(fieldType.WrapperType)
	default:
		return nil, fmt.Errorf("unsupported field kind: %s", fieldType.Kind)
	}
}

// decodeEnum decodes an enum number and surfaces its name when the enum
// declares it. Unknown numbers are kept as int32 (open enums).
func (d *Decoder) decodeEnum(enumType string) (interface{}, error) {
	n, err := d.DecodeInt32()
	if err != nil {
		return nil, err
	}
	if d.resolver == nil {
		return n, nil
	}
	enum, err := d.resolver.GetEnum(enumType)
	if err != nil {
		return n, nil
	}
	if v := enum.ValueByNumber(n); v != nil {
		return v.Name, nil
	}
	return n, nil
}

// decodeNestedMessage decodes a length-delimited embedded message in a
// sub-decoder bounded to the declared length.
func (d *Decoder) decodeNestedMessage(messageType string) (interface{}, error) {
	payload, start, err := d.DecodeRawBytes()
	if err != nil {
		return nil, err
	}

	if d.resolver == nil {
		// No resolver available, return raw bytes
		return append([]byte(nil), payload...), nil
	}
	msg, err := d.resolver.GetMessage(messageType)
	if err != nil {
		// Schema not found, return raw bytes
		return append([]byte(nil), payload...), nil
	}

	nested, err := d.sub(payload, start)
	if err != nil {
		return nil, err
	}
	return nested.decodeFields(msg)
}

// messageSchema returns the schema of a message typed field, or nil when the
// type is not a message or cannot be resolved.
func (d *Decoder) messageSchema(ft *schema.FieldType) *schema.Message {
	if ft.Kind != schema.KindMessage || d.resolver == nil {
		return nil
	}
	msg, err := d.resolver.GetMessage(ft.MessageType)
	if err != nil {
		return nil
	}
	return msg
}

// mergeMessage merges a later occurrence of a singular message field into an
// earlier one: scalars are replaced, repeated fields concatenated, maps and
// nested messages merged. A oneof member in src clears the other members of
// its group in dst. msg may be nil, in which case oneofs are not known.
func (d *Decoder) mergeMessage(msg *schema.Message, dst, src map[string]interface{}) map[string]interface{} {
	for k, v := range src {
		var field *schema.Field
		if msg != nil {
			field = msg.FieldByName(k)
		}
		if field != nil {
			if group := msg.OneofOf(field); group != nil {
				for _, other := range group.Fields {
					if other != field {
						delete(dst, other.Name)
					}
				}
			}
		}

		switch sv := v.(type) {
		case map[string]interface{}:
			if dv, ok := dst[k].(map[string]interface{}); ok {
				var nested *schema.Message
				if field != nil {
					nested = d.messageSchema(&field.Type)
				}
				dst[k] = d.mergeMessage(nested, dv, sv)
				continue
			}
		case []interface{}:
			if dv, ok := dst[k].([]interface{}); ok {
				dst[k] = append(dv, sv...)
				continue
			}
		case map[interface{}]interface{}:
			if dv, ok := dst[k].(map[interface{}]interface{}); ok {
				for mk, mv := range sv {
					dv[mk] = mv
				}
				continue
			}
		case []byte:
			if k == UnknownFieldsKey {
				if dv, ok := dst[k].([]byte); ok {
					dst[k] = append(dv, sv...)
					continue
				}
			}
		}
		dst[k] = v
	}
	return dst
}

// populateDefaults fills absent fields with their schema defaults, then
// descends into the nested messages present in result. Oneof members are
// never defaulted.
func (d *Decoder) populateDefaults(msg *schema.Message, result map[string]interface{}) {
	for _, field := range msg.Fields {
		if _, ok := result[field.Name]; ok {
			continue
		}
		switch {
		case field.Type.Kind == schema.KindMap:
			result[field.Name] = map[interface{}]interface{}{}
		case field.IsRepeated():
			result[field.Name] = []interface{}{}
		case field.Type.Kind == schema.KindPrimitive:
			result[field.Name] = scalarDefault(field.Type.PrimitiveType, field.DefaultValue)
		case field.Type.Kind == schema.KindEnum:
			result[field.Name] = d.enumDefault(field.Type.EnumType, field.DefaultValue)
		}
	}

	for _, field := range msg.AllFields() {
		value, ok := result[field.Name]
		if !ok {
			continue
		}
		switch {
		case field.Type.Kind == schema.KindMap:
			valueType := field.Type.MapValue
			entries, _ := value.(map[interface{}]interface{})
			if valueType == nil || len(entries) == 0 {
				continue
			}
			if nested := d.messageSchema(valueType); nested != nil {
				for _, entry := range entries {
					d.populateNested(nested, entry)
				}
			}
		case field.IsRepeated():
			if nested := d.messageSchema(&field.Type); nested != nil {
				elements, _ := value.([]interface{})
				for _, element := range elements {
					d.populateNested(nested, element)
				}
			}
		default:
			if nested := d.messageSchema(&field.Type); nested != nil {
				d.populateNested(nested, value)
			}
		}
	}
}

func (d *Decoder) populateNested(msg *schema.Message, value interface{}) {
	if m, ok := value.(map[string]interface{}); ok {
		d.populateDefaults(msg, m)
	}
}

// enumDefault is the explicit default, else the first declared value
func (d *Decoder) enumDefault(enumType, literal string) interface{} {
	if d.resolver == nil {
		return int32(0)
	}
	enum, err := d.resolver.GetEnum(enumType)
	if err != nil || len(enum.Values) == 0 {
		return int32(0)
	}
	if literal != "" && enum.ValueByName(literal) != nil {
		return literal
	}
	return enum.Values[0].Name
}

// ENCODER METHODS

// EncodeMessage appends the fields of data, in ascending field-number order,
// as an instance of msg. Keys may be proto names or JSON names; keys the schema
// does not know and nil values are skipped.
func (e *Encoder) EncodeMessage(data map[string]interface{}, msg *schema.Message) error {
	type fieldEntry struct {
		value interface{}
		field *schema.Field
	}
	entries := make([]fieldEntry, 0, len(data))
	var unknown []byte

	for name, value := range data {
		if name == UnknownFieldsKey {
			if b, ok := value.([]byte); ok && e.config.PreserveUnknownFields {
				unknown = b
			}
			continue
		}
		if value == nil {
			continue
		}
		field := msg.FieldByName(name)
		if field == nil {
			continue // Skip unknown fields
		}
		if name != field.Name {
			if _, dup := data[field.Name]; dup {
				continue
			}
		}
		entries = append(entries, fieldEntry{value: value, field: field})
	}

	// Sort entries by field number in increasing order.
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].field.Number < entries[j].field.Number
	})

	setOneofs := make(map[*schema.Oneof]string)
	for _, entry := range entries {
		group := msg.OneofOf(entry.field)
		if group == nil {
			continue
		}
		if prev, ok := setOneofs[group]; ok {
			return wrapWithField(fmt.Errorf("%w: %s and %s", ErrOneofConflict, prev, entry.field.Name), group.Name)
		}
		setOneofs[group] = entry.field.Name
	}

	for _, entry := range entries {
		if err := e.encodeField(entry.field, entry.value); err != nil {
			return wrapWithField(err, entry.field.Name)
		}
	}

	if len(unknown) > 0 {
		e.EncodeRaw(unknown)
	}
	return nil
}

// encodeField writes tag(s) and value(s) of one field
func (e *Encoder) encodeField(field *schema.Field, value interface{}) error {
	if field.Type.Kind == schema.KindMap {
		return e.encodeMapField(field, value)
	}

	if !field.IsRepeated() {
		e.EncodeTag(FieldNumber(field.Number), FieldWireType(&field.Type))
		return e.encodeValue(&field.Type, value)
	}

	elements, err := toSlice(value)
	if err != nil {
		return err
	}
	if field.Packed && field.Type.IsPackable() {
		if field.Type.Kind == schema.KindEnum {
			return e.encodePackedEnum(FieldNumber(field.Number), field.Type.EnumType, elements)
		}
		return e.EncodePacked(FieldNumber(field.Number), field.Type.PrimitiveType, elements)
	}

	wireType := FieldWireType(&field.Type)
	for i, element := range elements {
		if element == nil {
			return fmt.Errorf("%w: nil element %d in repeated field", ErrTypeMismatch, i)
		}
		e.EncodeTag(FieldNumber(field.Number), wireType)
		if err := e.encodeValue(&field.Type, element); err != nil {
			return fmt.Errorf("element %d: %w", i, err)
		}
	}
	return nil
}

// encodeValue writes a single value, without tag, based on its type
func (e *Encoder) encodeValue(fieldType *schema.FieldType, value interface{}) error {
	switch fieldType.Kind {
	case schema.KindPrimitive:
		return e.encodeScalar(fieldType.PrimitiveType, value)
	case schema.KindEnum:
		n, err := e.enumNumber(fieldType.EnumType, value)
		if err != nil {
			return err
		}
		e.EncodeInt32(n)
		return nil
	case schema.KindMessage:
		return e.encodeNestedMessage(fieldType.MessageType, value)
	case schema.KindWrapper:
		return e.encodeWrapper(fieldType.WrapperType, value)
	default:
		return fmt.Errorf("unsupported field kind: %s", fieldType.Kind)
	}
}

// enumNumber resolves an enum value given by name or number
func (e *Encoder) enumNumber(enumType string, value interface{}) (int32, error) {
	name, ok := value.(string)
	if !ok {
		return toInt32(value)
	}
	if e.resolver != nil {
		if enum, err := e.resolver.GetEnum(enumType); err == nil {
			if v := enum.ValueByName(name); v != nil {
				return v.Number, nil
			}
			return 0, fmt.Errorf("%w: %q is not a value of %s", ErrValueOutOfRange, name, enumType)
		}
	}
	// numeric strings still work without the enum definition
	return toInt32(name)
}

// encodeNestedMessage writes an embedded message in place behind its length
func (e *Encoder) encodeNestedMessage(messageType string, value interface{}) error {
	// If it's already bytes, encode directly
	if messageBytes, ok := value.([]byte); ok {
		e.EncodeBytes(messageBytes)
		return nil
	}

	messageData, ok := value.(map[string]interface{})
	if !ok {
		return fmt.Errorf("%w: message value must be map[string]interface{} or []byte, got %T", ErrTypeMismatch, value)
	}
	if e.resolver == nil {
		return fmt.Errorf("a resolver is required to encode message fields")
	}
	messageSchema, err := e.resolver.GetMessage(messageType)
	if err != nil {
		return fmt.Errorf("failed to get message schema for %s: %w", messageType, err)
	}

	if err := e.enter(); err != nil {
		return err
	}
	defer e.leave()

	mark := e.fork()
	if err := e.EncodeMessage(messageData, messageSchema); err != nil {
		return err
	}
	e.join(mark)
	return nil
}
