package wire

import (
	"fmt"
	"reflect"
	"sort"

	"github.com/anirudhraja/protocodec/schema"
)

// Map fields travel as repeated entry messages with the key in field 1 and
// the value in field 2.
const (
	mapKeyField   FieldNumber = 1
	mapValueField FieldNumber = 2
)

// mapEntry is one key/value pair with the key coerced to its schema type
type mapEntry struct {
	key   interface{}
	value interface{}
}

// decodeMapEntry decodes one entry message. A missing key or value takes the
// default of its type.
func (d *Decoder) decodeMapEntry(keyType, valueType *schema.FieldType) (interface{}, interface{}, error) {
	if keyType == nil || valueType == nil {
		return nil, nil, fmt.Errorf("map field without key or value type")
	}
	payload, start, err := d.DecodeRawBytes()
	if err != nil {
		return nil, nil, err
	}
	entry, err := d.sub(payload, start)
	if err != nil {
		return nil, nil, err
	}

	var key, value interface{}
	keySet, valueSet := false, false
	for !entry.Done() {
		at := entry.pos
		fieldNumber, wireType, err := entry.DecodeTag()
		if err != nil {
			return nil, nil, err
		}

		var target *schema.FieldType
		switch fieldNumber {
		case mapKeyField:
			target = keyType
		case mapValueField:
			target = valueType
		}
		if target != nil && wireType != FieldWireType(target) {
			if entry.config.StrictWireType {
				return nil, nil, entry.fail(at, ErrWireTypeMismatch, fmt.Sprintf("map entry field %d got %s", fieldNumber, wireType))
			}
			target = nil
		}
		if target == nil {
			if err := entry.SkipField(fieldNumber, wireType); err != nil {
				return nil, nil, err
			}
			continue
		}

		v, err := entry.decodeValue(target)
		if err != nil {
			return nil, nil, err
		}
		if fieldNumber == mapKeyField {
			key, keySet = v, true
		} else {
			if prev, ok := value.(map[string]interface{}); ok && valueSet {
				if next, ok := v.(map[string]interface{}); ok {
					v = entry.mergeMessage(entry.messageSchema(valueType), prev, next)
				}
			}
			value, valueSet = v, true
		}
	}

	if !keySet {
		key = scalarDefault(keyType.PrimitiveType, "")
	}
	if !valueSet {
		value = entry.mapValueDefault(valueType)
	}
	return key, value, nil
}

func (d *Decoder) mapValueDefault(valueType *schema.FieldType) interface{} {
	switch valueType.Kind {
	case schema.KindPrimitive:
		return scalarDefault(valueType.PrimitiveType, "")
	case schema.KindEnum:
		return d.enumDefault(valueType.EnumType, "")
	case schema.KindWrapper:
		pt, _ := valueType.WrapperType.Primitive()
		if d.config.UnwrapWrappers {
			return scalarDefault(pt, "")
		}
		return map[string]interface{}{"value": scalarDefault(pt, "")}
	default:
		return map[string]interface{}{}
	}
}

// encodeMapField writes one entry message per key, ordered by key so the
// output is deterministic. Any Go map type is accepted; keys are coerced to
// the declared key type.
func (e *Encoder) encodeMapField(field *schema.Field, value interface{}) error {
	keyType, valueType := field.Type.MapKey, field.Type.MapValue
	if keyType == nil || valueType == nil {
		return fmt.Errorf("map field without key or value type")
	}
	if !keyType.IsValidMapKey() {
		return fmt.Errorf("%w: invalid map key type %s", ErrTypeMismatch, keyType.PrimitiveType)
	}

	entries, err := mapEntries(keyType.PrimitiveType, value)
	if err != nil {
		return err
	}

	for _, entry := range entries {
		e.EncodeTag(FieldNumber(field.Number), WireBytes)
		mark := e.fork()

		e.EncodeTag(mapKeyField, FieldWireType(keyType))
		if err := e.encodeScalar(keyType.PrimitiveType, entry.key); err != nil {
			return fmt.Errorf("map key %v: %w", entry.key, err)
		}
		if entry.value != nil {
			e.EncodeTag(mapValueField, FieldWireType(valueType))
			if err := e.encodeValue(valueType, entry.value); err != nil {
				return fmt.Errorf("map value for key %v: %w", entry.key, err)
			}
		}

		e.join(mark)
	}
	return nil
}

// mapEntries flattens any Go map into entries sorted by coerced key
func mapEntries(keyType schema.PrimitiveType, value interface{}) ([]mapEntry, error) {
	rv := reflect.ValueOf(value)
	if rv.Kind() != reflect.Map {
		return nil, fmt.Errorf("%w: map field value must be a map, got %T", ErrTypeMismatch, value)
	}

	entries := make([]mapEntry, 0, rv.Len())
	iter := rv.MapRange()
	for iter.Next() {
		key, err := mapKey(keyType, iter.Key().Interface())
		if err != nil {
			return nil, err
		}
		entries = append(entries, mapEntry{key: key, value: iter.Value().Interface()})
	}

	sort.Slice(entries, func(i, j int) bool {
		return lessMapKey(entries[i].key, entries[j].key)
	})
	return entries, nil
}

// mapKey coerces a key to a comparable canonical form. JSON input delivers
// every key as a string, so numeric and bool keys are parsed from strings.
func mapKey(keyType schema.PrimitiveType, key interface{}) (interface{}, error) {
	switch keyType {
	case schema.TypeString:
		return toString(key)
	case schema.TypeBool:
		return toBool(key)
	case schema.TypeUint32, schema.TypeUint64, schema.TypeFixed32, schema.TypeFixed64:
		return toUint64(key)
	default:
		return toInt64(key)
	}
}

func lessMapKey(a, b interface{}) bool {
	switch av := a.(type) {
	case string:
		return av < b.(string)
	case bool:
		return !av && b.(bool)
	case uint64:
		return av < b.(uint64)
	case int64:
		return av < b.(int64)
	}
	return false
}
