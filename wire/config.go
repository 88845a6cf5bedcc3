package wire

import (
	"os"
	"strconv"
)

// DefaultMaxDepth bounds message nesting during encode and decode.
const DefaultMaxDepth = 100

// UnknownFieldsKey is the result key under which preserved unknown field bytes
// are stored when Config.PreserveUnknownFields is set.
const UnknownFieldsKey = "__unknown"

// Config controls optional codec behaviors.
type Config struct {
	// StrictWireType: when true, a known field arriving with a wire type that
	// does not match its schema type fails with ErrWireTypeMismatch. When false
	// (default) such a field is treated as unknown and skipped.
	StrictWireType bool

	// LenientUTF8: when true, invalid UTF-8 in string fields is replaced with
	// U+FFFD on decode and accepted on encode. When false (default), invalid
	// UTF-8 fails with ErrInvalidUTF8.
	LenientUTF8 bool

	// PreserveUnknownFields: when true, decoded messages include the raw bytes of
	// unknown fields under UnknownFieldsKey, and the encoder writes them back.
	PreserveUnknownFields bool

	// PopulateDefaults: when true, absent singular scalar and enum fields are
	// filled with their defaults and absent repeated/map fields with empty values.
	PopulateDefaults bool

	// SkipGroups: when true (default), legacy group fields are skipped as unknown
	// fields. When false, any group fails with ErrUnsupportedWireType.
	SkipGroups bool

	// UnwrapWrappers: when true (default), google.protobuf.*Value wrappers decode
	// to their scalar instead of a {"value": x} map.
	UnwrapWrappers bool

	// MaxDepth bounds nested message recursion. Zero means DefaultMaxDepth.
	MaxDepth int
}

// DefaultConfig returns the configuration used when none is given.
func DefaultConfig() Config {
	return Config{
		SkipGroups:     true,
		UnwrapWrappers: true,
		MaxDepth:       DefaultMaxDepth,
	}
}

func (c Config) maxDepth() int {
	if c.MaxDepth <= 0 {
		return DefaultMaxDepth
	}
	return c.MaxDepth
}

// ConfigFromEnv overlays environment toggles on top of base. Each toggle is
// prefix + name, e.g. PROTOCODEC_STRICT_WIRE=1.
func ConfigFromEnv(prefix string, base Config) Config {
	c := base
	if v, ok := envBool(prefix + "STRICT_WIRE"); ok {
		c.StrictWireType = v
	}
	if v, ok := envBool(prefix + "LENIENT_UTF8"); ok {
		c.LenientUTF8 = v
	}
	if v, ok := envBool(prefix + "PRESERVE_UNKNOWN"); ok {
		c.PreserveUnknownFields = v
	}
	if v, ok := envBool(prefix + "POPULATE_DEFAULTS"); ok {
		c.PopulateDefaults = v
	}
	if v, ok := envBool(prefix + "SKIP_GROUPS"); ok {
		c.SkipGroups = v
	}
	if v, ok := envBool(prefix + "UNWRAP_WRAPPERS"); ok {
		c.UnwrapWrappers = v
	}
	if s := os.Getenv(prefix + "MAX_DEPTH"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			c.MaxDepth = n
		}
	}
	return c
}

func envBool(name string) (bool, bool) {
	s, ok := os.LookupEnv(name)
	if !ok || s == "" {
		return false, false
	}
	v, err := strconv.ParseBool(s)
	if err != nil {
		return false, false
	}
	return v, true
}
