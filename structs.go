package protocodec

import (
	"fmt"
	"reflect"
	"strings"
	"unicode"
)

// mapToStruct maps parsed result to struct fields
func mapToStruct(data map[string]interface{}, rv reflect.Value) error {
	if rv.Kind() != reflect.Struct {
		return fmt.Errorf("cannot map message onto %s", rv.Type())
	}

	rt := rv.Type()
	for i := 0; i < rt.NumField(); i++ {
		field := rt.Field(i)
		fieldValue := rv.Field(i)

		if !fieldValue.CanSet() {
			continue
		}

		value, ok := lookupField(data, field)
		if !ok {
			continue
		}
		if err := setFieldValue(fieldValue, value); err != nil {
			return fmt.Errorf("failed to set field %s: %w", field.Name, err)
		}
	}
	return nil
}

// lookupField finds the value for a struct field by protobuf tag, json tag,
// snake_case name and Go name, in that order.
func lookupField(data map[string]interface{}, field reflect.StructField) (interface{}, bool) {
	for _, key := range []string{
		tagName(field.Tag.Get("protobuf")),
		tagName(field.Tag.Get("json")),
		toSnakeCase(field.Name),
		field.Name,
	} {
		if key == "" || key == "-" {
			continue
		}
		if value, ok := data[key]; ok {
			return value, true
		}
	}
	return nil, false
}

func tagName(tag string) string {
	name, _, _ := strings.Cut(tag, ",")
	return name
}

// setFieldValue sets a struct field with type conversion
func setFieldValue(fieldValue reflect.Value, value interface{}) error {
	if value == nil {
		return nil
	}

	sourceValue := reflect.ValueOf(value)
	targetType := fieldValue.Type()

	switch {
	case sourceValue.Type().AssignableTo(targetType):
		fieldValue.Set(sourceValue)
		return nil

	case targetType.Kind() == reflect.Ptr:
		elem := reflect.New(targetType.Elem())
		if err := setFieldValue(elem.Elem(), value); err != nil {
			return err
		}
		fieldValue.Set(elem)
		return nil

	case targetType.Kind() == reflect.Struct:
		nested, ok := value.(map[string]interface{})
		if !ok {
			return fmt.Errorf("cannot convert %T to %s", value, targetType)
		}
		return mapToStruct(nested, fieldValue)

	case targetType.Kind() == reflect.Slice && sourceValue.Kind() == reflect.Slice && targetType.Elem().Kind() != reflect.Uint8:
		out := reflect.MakeSlice(targetType, sourceValue.Len(), sourceValue.Len())
		for i := 0; i < sourceValue.Len(); i++ {
			if err := setFieldValue(out.Index(i), sourceValue.Index(i).Interface()); err != nil {
				return fmt.Errorf("index %d: %w", i, err)
			}
		}
		fieldValue.Set(out)
		return nil

	case targetType.Kind() == reflect.Map && sourceValue.Kind() == reflect.Map:
		out := reflect.MakeMapWithSize(targetType, sourceValue.Len())
		iter := sourceValue.MapRange()
		for iter.Next() {
			key := reflect.New(targetType.Key()).Elem()
			if err := setFieldValue(key, iter.Key().Interface()); err != nil {
				return fmt.Errorf("map key: %w", err)
			}
			val := reflect.New(targetType.Elem()).Elem()
			if err := setFieldValue(val, iter.Value().Interface()); err != nil {
				return fmt.Errorf("map value %v: %w", iter.Key().Interface(), err)
			}
			out.SetMapIndex(key, val)
		}
		fieldValue.Set(out)
		return nil

	case convertible(sourceValue.Type(), targetType):
		fieldValue.Set(sourceValue.Convert(targetType))
		return nil
	}

	return fmt.Errorf("cannot convert %T to %s", value, targetType)
}

// convertible is reflect's ConvertibleTo without the integer to string rune
// conversion.
func convertible(from, to reflect.Type) bool {
	if to.Kind() == reflect.String && from.Kind() != reflect.String {
		return false
	}
	if from.Kind() == reflect.String && to.Kind() != reflect.String && to.Kind() != reflect.Slice {
		return false
	}
	return from.ConvertibleTo(to)
}

// toSnakeCase converts a Go field name to the usual .proto field name.
func toSnakeCase(s string) string {
	runes := []rune(s)
	var b strings.Builder
	b.Grow(len(s) + 4)
	for i, r := range runes {
		if unicode.IsUpper(r) {
			if i > 0 {
				prev := runes[i-1]
				nextLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
				if unicode.IsLower(prev) || unicode.IsDigit(prev) || (unicode.IsUpper(prev) && nextLower) {
					b.WriteByte('_')
				}
			}
			b.WriteRune(unicode.ToLower(r))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
