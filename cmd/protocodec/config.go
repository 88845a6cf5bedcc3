package main

import (
	"fmt"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"

	"github.com/anirudhraja/protocodec/wire"
)

// envPrefix prefixes the codec toggles read from the environment.
const envPrefix = "PROTOCODEC_"

// Config is the on-disk CLI configuration.
type Config struct {
	ProtoPaths     []string    `yaml:"proto_paths"`
	Protos         []string    `yaml:"protos"`
	DescriptorSets []string    `yaml:"descriptor_sets"`
	LogLevel       string      `yaml:"log_level"`
	LogFormat      string      `yaml:"log_format"` // json or console
	Codec          CodecConfig `yaml:"codec"`
}

// CodecConfig overrides wire.DefaultConfig. Unset entries keep the default.
type CodecConfig struct {
	StrictWireType        *bool `yaml:"strict_wire_type"`
	LenientUTF8           *bool `yaml:"lenient_utf8"`
	PreserveUnknownFields *bool `yaml:"preserve_unknown_fields"`
	PopulateDefaults      *bool `yaml:"populate_defaults"`
	SkipGroups            *bool `yaml:"skip_groups"`
	UnwrapWrappers        *bool `yaml:"unwrap_wrappers"`
	MaxDepth              int   `yaml:"max_depth"`
}

// loadConfig reads a YAML config file. An empty path yields the zero Config.
func loadConfig(path string) (*Config, error) {
	cfg := &Config{}
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	if cfg.Codec.MaxDepth < 0 {
		return nil, fmt.Errorf("parsing config %s: max_depth must not be negative", path)
	}
	return cfg, nil
}

// WireConfig layers the file settings and then the environment over the
// codec defaults.
func (c *Config) WireConfig() wire.Config {
	wc := wire.DefaultConfig()
	set := func(dst *bool, src *bool) {
		if src != nil {
			*dst = *src
		}
	}
	set(&wc.StrictWireType, c.Codec.StrictWireType)
	set(&wc.LenientUTF8, c.Codec.LenientUTF8)
	set(&wc.PreserveUnknownFields, c.Codec.PreserveUnknownFields)
	set(&wc.PopulateDefaults, c.Codec.PopulateDefaults)
	set(&wc.SkipGroups, c.Codec.SkipGroups)
	set(&wc.UnwrapWrappers, c.Codec.UnwrapWrappers)
	if c.Codec.MaxDepth > 0 {
		wc.MaxDepth = c.Codec.MaxDepth
	}
	return wire.ConfigFromEnv(envPrefix, wc)
}

// Logger builds a zap logger writing to stderr so stdout stays clean for
// encoded output.
func (c *Config) Logger() (*zap.Logger, error) {
	level := zap.NewAtomicLevelAt(zapcore.WarnLevel)
	if c.LogLevel != "" {
		l, err := zap.ParseAtomicLevel(c.LogLevel)
		if err != nil {
			return nil, fmt.Errorf("invalid log level %q: %w", c.LogLevel, err)
		}
		level = l
	}

	var zc zap.Config
	switch c.LogFormat {
	case "", "console":
		zc = zap.NewDevelopmentConfig()
	case "json":
		zc = zap.NewProductionConfig()
	default:
		return nil, fmt.Errorf("invalid log format %q", c.LogFormat)
	}
	zc.Level = level
	zc.OutputPaths = []string{"stderr"}
	zc.ErrorOutputPaths = []string{"stderr"}
	return zc.Build()
}
