package wire

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Helpers to coerce dynamic inputs (Go numbers, json.Number, numeric strings)
// to the exact Go type a field needs. Values that cannot be represented fail
// with ErrValueOutOfRange instead of being truncated.

const (
	twoTo63 = 9223372036854775808.0  // 2^63
	twoTo64 = 18446744073709551616.0 // 2^64
)

func outOfRange(v interface{}, typ string) error {
	return fmt.Errorf("%w: %v does not fit in %s", ErrValueOutOfRange, v, typ)
}

func typeMismatch(v interface{}, want string) error {
	return fmt.Errorf("%w: expected %s, got %T", ErrTypeMismatch, want, v)
}

func floatToInt64(f float64, orig interface{}) (int64, error) {
	if math.IsNaN(f) || f != math.Trunc(f) || f < -twoTo63 || f >= twoTo63 {
		return 0, outOfRange(orig, "int64")
	}
	return int64(f), nil
}

func floatToUint64(f float64, orig interface{}) (uint64, error) {
	if math.IsNaN(f) || f != math.Trunc(f) || f < 0 || f >= twoTo64 {
		return 0, outOfRange(orig, "uint64")
	}
	return uint64(f), nil
}

func toInt64(v interface{}) (int64, error) {
	switch t := v.(type) {
	case int64:
		return t, nil
	case int32:
		return int64(t), nil
	case int:
		return int64(t), nil
	case int16:
		return int64(t), nil
	case int8:
		return int64(t), nil
	case uint64:
		if t > math.MaxInt64 {
			return 0, outOfRange(v, "int64")
		}
		return int64(t), nil
	case uint32:
		return int64(t), nil
	case uint:
		if uint64(t) > math.MaxInt64 {
			return 0, outOfRange(v, "int64")
		}
		return int64(t), nil
	case uint16:
		return int64(t), nil
	case uint8:
		return int64(t), nil
	case float64:
		return floatToInt64(t, v)
	case float32:
		return floatToInt64(float64(t), v)
	case json.Number:
		// Try integer first, then accept exponent forms if integral
		if iv, err := t.Int64(); err == nil {
			return iv, nil
		}
		f, err := strconv.ParseFloat(t.String(), 64)
		if err != nil {
			return 0, typeMismatch(v, "integer")
		}
		return floatToInt64(f, v)
	case string:
		if iv, err := strconv.ParseInt(t, 10, 64); err == nil {
			return iv, nil
		}
		if strings.ContainsAny(t, ".eE") {
			if f, err := strconv.ParseFloat(t, 64); err == nil {
				return floatToInt64(f, v)
			}
		}
		if _, err := strconv.ParseUint(t, 10, 64); err == nil {
			return 0, outOfRange(v, "int64")
		}
		return 0, typeMismatch(v, "integer")
	default:
		return 0, typeMismatch(v, "integer")
	}
}

func toUint64(v interface{}) (uint64, error) {
	switch t := v.(type) {
	case uint64:
		return t, nil
	case uint32:
		return uint64(t), nil
	case uint:
		return uint64(t), nil
	case uint16:
		return uint64(t), nil
	case uint8:
		return uint64(t), nil
	case float64:
		return floatToUint64(t, v)
	case float32:
		return floatToUint64(float64(t), v)
	case json.Number:
		if uv, err := strconv.ParseUint(t.String(), 10, 64); err == nil {
			return uv, nil
		}
		f, err := strconv.ParseFloat(t.String(), 64)
		if err != nil {
			return 0, typeMismatch(v, "unsigned integer")
		}
		return floatToUint64(f, v)
	case string:
		if uv, err := strconv.ParseUint(t, 10, 64); err == nil {
			return uv, nil
		}
		if f, err := strconv.ParseFloat(t, 64); err == nil {
			return floatToUint64(f, v)
		}
		return 0, typeMismatch(v, "unsigned integer")
	default:
		// signed Go integers: accept when non-negative
		iv, err := toInt64(v)
		if err != nil {
			return 0, err
		}
		if iv < 0 {
			return 0, outOfRange(v, "uint64")
		}
		return uint64(iv), nil
	}
}

func toInt32(v interface{}) (int32, error) {
	iv, err := toInt64(v)
	if err != nil {
		return 0, err
	}
	if iv < math.MinInt32 || iv > math.MaxInt32 {
		return 0, outOfRange(v, "int32")
	}
	return int32(iv), nil
}

func toUint32(v interface{}) (uint32, error) {
	uv, err := toUint64(v)
	if err != nil {
		return 0, err
	}
	if uv > math.MaxUint32 {
		return 0, outOfRange(v, "uint32")
	}
	return uint32(uv), nil
}

func toFloat64(v interface{}) (float64, error) {
	switch t := v.(type) {
	case float64:
		return t, nil
	case float32:
		return float64(t), nil
	case json.Number:
		f, err := strconv.ParseFloat(t.String(), 64)
		if err != nil {
			return 0, typeMismatch(v, "number")
		}
		return f, nil
	case string:
		switch t {
		case "NaN":
			return math.NaN(), nil
		case "Infinity":
			return math.Inf(1), nil
		case "-Infinity":
			return math.Inf(-1), nil
		}
		f, err := strconv.ParseFloat(t, 64)
		if err != nil {
			return 0, typeMismatch(v, "number")
		}
		return f, nil
	default:
		if iv, err := toInt64(v); err == nil {
			return float64(iv), nil
		}
		if uv, err := toUint64(v); err == nil {
			return float64(uv), nil
		}
		return 0, typeMismatch(v, "number")
	}
}

func toFloat32(v interface{}) (float32, error) {
	if f, ok := v.(float32); ok {
		return f, nil
	}
	f, err := toFloat64(v)
	if err != nil {
		return 0, err
	}
	if !math.IsInf(f, 0) && !math.IsNaN(f) && math.Abs(f) > math.MaxFloat32 {
		return 0, outOfRange(v, "float")
	}
	return float32(f), nil
}

func toBool(v interface{}) (bool, error) {
	switch t := v.(type) {
	case bool:
		return t, nil
	case string:
		switch t {
		case "true":
			return true, nil
		case "false":
			return false, nil
		}
	}
	return false, typeMismatch(v, "bool")
}

func toString(v interface{}) (string, error) {
	if s, ok := v.(string); ok {
		return s, nil
	}
	return "", typeMismatch(v, "string")
}

// toBytes accepts raw bytes or a base64 string (standard or URL alphabet,
// padded or not), which is how JSON carries bytes fields.
func toBytes(v interface{}) ([]byte, error) {
	switch t := v.(type) {
	case []byte:
		return t, nil
	case string:
		for _, enc := range []*base64.Encoding{base64.StdEncoding, base64.URLEncoding, base64.RawStdEncoding, base64.RawURLEncoding} {
			if b, err := enc.DecodeString(t); err == nil {
				return b, nil
			}
		}
		return nil, fmt.Errorf("%w: bytes field string is not base64", ErrTypeMismatch)
	default:
		return nil, typeMismatch(v, "bytes")
	}
}

// toSlice converts the common typed slices to []interface{}.
func toSlice(value interface{}) ([]interface{}, error) {
	switch v := value.(type) {
	case []interface{}:
		return v, nil
	case []map[string]interface{}:
		return convertSlice(v), nil
	case []string:
		return convertSlice(v), nil
	case [][]byte:
		return convertSlice(v), nil
	case []int32:
		return convertSlice(v), nil
	case []int64:
		return convertSlice(v), nil
	case []int:
		return convertSlice(v), nil
	case []uint32:
		return convertSlice(v), nil
	case []uint64:
		return convertSlice(v), nil
	case []bool:
		return convertSlice(v), nil
	case []float32:
		return convertSlice(v), nil
	case []float64:
		return convertSlice(v), nil
	default:
		return nil, fmt.Errorf("%w: repeated field value must be a slice, got %T", ErrTypeMismatch, value)
	}
}

func convertSlice[T any](in []T) []interface{} {
	out := make([]interface{}, len(in))
	for i, val := range in {
		out[i] = val
	}
	return out
}
