package protocodec

import (
	"go.uber.org/zap"

	"github.com/anirudhraja/protocodec/wire"
)

// Option configures a Codec.
type Option func(*Codec)

// WithConfig sets the wire options used by every Marshal and Unmarshal call.
func WithConfig(config wire.Config) Option {
	return func(c *Codec) {
		c.config = config
	}
}

// WithLogger sets the logger. The default logs nothing.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Codec) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithProtoDirectories sets the roots searched for .proto files and imports.
func WithProtoDirectories(dirs ...string) Option {
	return func(c *Codec) {
		c.protoDirectories = append(c.protoDirectories, dirs...)
	}
}

// WithMetrics records codec traffic on m.
func WithMetrics(m *Metrics) Option {
	return func(c *Codec) {
		c.metrics = m
	}
}
