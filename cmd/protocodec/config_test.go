package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anirudhraja/protocodec/wire"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "protocodec.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadConfig(t *testing.T) {
	path := writeConfig(t, `
proto_paths:
  - protos
  - third_party
protos: [library.proto]
descriptor_sets: [library.pb]
log_level: debug
log_format: json
codec:
  strict_wire_type: true
  skip_groups: false
  max_depth: 16
`)

	cfg, err := loadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"protos", "third_party"}, cfg.ProtoPaths)
	assert.Equal(t, []string{"library.proto"}, cfg.Protos)
	assert.Equal(t, []string{"library.pb"}, cfg.DescriptorSets)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)

	wc := cfg.WireConfig()
	assert.True(t, wc.StrictWireType)
	assert.False(t, wc.SkipGroups)
	assert.True(t, wc.UnwrapWrappers, "unset options keep their default")
	assert.Equal(t, 16, wc.MaxDepth)
}

func TestLoadConfig_Errors(t *testing.T) {
	_, err := loadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorContains(t, err, "reading config")

	_, err = loadConfig(writeConfig(t, "protos: {"))
	assert.ErrorContains(t, err, "parsing config")

	_, err = loadConfig(writeConfig(t, "codec:\n  max_depth: -1\n"))
	assert.ErrorContains(t, err, "max_depth")
}

func TestConfig_WireConfigDefaults(t *testing.T) {
	cfg, err := loadConfig("")
	require.NoError(t, err)
	assert.Equal(t, wire.DefaultConfig(), cfg.WireConfig())
}

func TestConfig_WireConfigEnv(t *testing.T) {
	t.Setenv("PROTOCODEC_LENIENT_UTF8", "true")
	t.Setenv("PROTOCODEC_MAX_DEPTH", "8")

	cfg := &Config{}
	wc := cfg.WireConfig()
	assert.True(t, wc.LenientUTF8)
	assert.Equal(t, 8, wc.MaxDepth)
}

func TestConfig_Logger(t *testing.T) {
	for _, cfg := range []Config{
		{},
		{LogLevel: "debug"},
		{LogLevel: "error", LogFormat: "json"},
		{LogFormat: "console"},
	} {
		logger, err := cfg.Logger()
		require.NoError(t, err)
		assert.NotNil(t, logger)
	}

	_, err := (&Config{LogLevel: "chatty"}).Logger()
	assert.ErrorContains(t, err, "invalid log level")

	_, err = (&Config{LogFormat: "xml"}).Logger()
	assert.ErrorContains(t, err, "invalid log format")
}
