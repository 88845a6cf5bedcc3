package main

import (
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"math"
	"strings"

	jsoniter "github.com/json-iterator/go"
)

const (
	formatRaw    = "raw"
	formatHex    = "hex"
	formatBase64 = "base64"
)

var json = jsoniter.Config{
	EscapeHTML:             false,
	SortMapKeys:            true,
	UseNumber:              true,
	ValidateJsonRawMessage: true,
}.Froze()

// formatBytes renders protobuf bytes for output. Text formats end in a newline.
func formatBytes(format string, data []byte) ([]byte, error) {
	switch format {
	case formatRaw:
		return data, nil
	case formatHex:
		return []byte(hex.EncodeToString(data) + "\n"), nil
	case formatBase64:
		return []byte(base64.StdEncoding.EncodeToString(data) + "\n"), nil
	}
	return nil, fmt.Errorf("unknown format %q (want raw, hex or base64)", format)
}

// parseBytes reverses formatBytes. Whitespace inside text formats is ignored.
func parseBytes(format string, data []byte) ([]byte, error) {
	switch format {
	case formatRaw:
		return data, nil
	case formatHex:
		b, err := hex.DecodeString(stripSpace(string(data)))
		if err != nil {
			return nil, fmt.Errorf("invalid hex input: %w", err)
		}
		return b, nil
	case formatBase64:
		b, err := base64.StdEncoding.DecodeString(stripSpace(string(data)))
		if err != nil {
			return nil, fmt.Errorf("invalid base64 input: %w", err)
		}
		return b, nil
	}
	return nil, fmt.Errorf("unknown format %q (want raw, hex or base64)", format)
}

func stripSpace(s string) string {
	return strings.Join(strings.Fields(s), "")
}

// jsonValue makes a decoded value JSON friendly: map keys become strings and
// non-finite floats become their protobuf JSON names.
func jsonValue(v interface{}) interface{} {
	switch t := v.(type) {
	case map[string]interface{}:
		out := make(map[string]interface{}, len(t))
		for k, e := range t {
			out[k] = jsonValue(e)
		}
		return out
	case map[interface{}]interface{}:
		out := make(map[string]interface{}, len(t))
		for k, e := range t {
			out[fmt.Sprint(k)] = jsonValue(e)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(t))
		for i, e := range t {
			out[i] = jsonValue(e)
		}
		return out
	case float64:
		return jsonFloat(t)
	case float32:
		return jsonFloat(float64(t))
	}
	return v
}

func jsonFloat(f float64) interface{} {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "Infinity"
	case math.IsInf(f, -1):
		return "-Infinity"
	}
	return f
}
