// Package protocodec encodes and decodes protobuf messages against schemas
// loaded at runtime, without generated code.
package protocodec

import (
	"errors"
	"fmt"
	"reflect"

	"go.uber.org/zap"

	"github.com/anirudhraja/protocodec/registry"
	"github.com/anirudhraja/protocodec/schema"
	"github.com/anirudhraja/protocodec/wire"
)

// ErrUnknownMessageType is returned when a message name does not resolve in
// the loaded schemas.
var ErrUnknownMessageType = errors.New("unknown message type")

// Codec provides schema-aware protobuf operations without generated code.
// Load schemas first; after that a Codec may be shared between goroutines.
type Codec struct {
	registry         *registry.Registry
	config           wire.Config
	logger           *zap.Logger
	metrics          *Metrics
	protoDirectories []string
}

// New creates a Codec holding only the well-known types.
func New(opts ...Option) *Codec {
	c := &Codec{
		config: wire.DefaultConfig(),
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.registry = registry.NewRegistry(c.protoDirectories...)
	return c
}

// LoadRepo loads a protobuf repository (collection of .proto files)
func (c *Codec) LoadRepo(repo *schema.ProtoRepo) error {
	if err := c.registry.LoadRepo(repo); err != nil {
		c.logger.Warn("failed to load proto repo", zap.Error(err))
		return err
	}
	if repo != nil {
		c.logger.Info("loaded proto repo", zap.Int("files", len(repo.ProtoFiles)))
	}
	return nil
}

// LoadSchema loads a .proto file or every .proto file under a directory.
func (c *Codec) LoadSchema(path string) error {
	if err := c.registry.LoadSchema(path); err != nil {
		c.logger.Warn("failed to load schema", zap.String("path", path), zap.Error(err))
		return err
	}
	c.logger.Info("loaded schema", zap.String("path", path), zap.Int("messages", len(c.registry.ListMessages())))
	return nil
}

// LoadSchemaFromFile loads a .proto file found in the proto directories,
// together with its imports.
func (c *Codec) LoadSchemaFromFile(file string) error {
	if err := c.registry.LoadSchemaFromFile(file); err != nil {
		c.logger.Warn("failed to load schema", zap.String("file", file), zap.Error(err))
		return err
	}
	c.logger.Info("loaded schema", zap.String("file", file), zap.Int("messages", len(c.registry.ListMessages())))
	return nil
}

// LoadDescriptorSet loads a serialized google.protobuf.FileDescriptorSet.
func (c *Codec) LoadDescriptorSet(data []byte) error {
	if err := c.registry.LoadDescriptorSet(data); err != nil {
		c.logger.Warn("failed to load descriptor set", zap.Int("bytes", len(data)), zap.Error(err))
		return err
	}
	c.logger.Info("loaded descriptor set", zap.Int("bytes", len(data)), zap.Int("messages", len(c.registry.ListMessages())))
	return nil
}

// Marshal encodes a map to protobuf bytes using schema information
func (c *Codec) Marshal(data map[string]interface{}, messageType string) ([]byte, error) {
	fullName, msg, err := c.message(messageType)
	if err != nil {
		c.metrics.failed(opEncode, err)
		return nil, err
	}

	encoded, err := wire.EncodeMessage(data, msg, c.registry, c.config)
	if err != nil {
		c.metrics.failed(opEncode, err)
		c.logger.Debug("encode failed",
			zap.String("message", fullName),
			zap.String("kind", errorKind(err)),
			zap.Error(err))
		return nil, err
	}
	c.metrics.observe(opEncode, fullName, len(encoded))
	return encoded, nil
}

// Unmarshal decodes protobuf bytes into field values keyed by field name.
// Nothing is returned unless the whole input decodes.
func (c *Codec) Unmarshal(data []byte, messageType string) (map[string]interface{}, error) {
	fullName, msg, err := c.message(messageType)
	if err != nil {
		c.metrics.failed(opDecode, err)
		return nil, err
	}

	decoded, err := wire.DecodeMessage(data, msg, c.registry, c.config)
	if err != nil {
		c.metrics.failed(opDecode, err)
		c.logger.Debug("decode failed",
			zap.String("message", fullName),
			zap.Int("bytes", len(data)),
			zap.Int("offset", wire.Offset(err)),
			zap.String("kind", errorKind(err)),
			zap.Error(err))
		return nil, err
	}
	c.metrics.observe(opDecode, fullName, len(data))
	return decoded, nil
}

// UnmarshalToStruct decodes protobuf bytes into the struct v points to. Struct
// fields are matched by `protobuf` tag, `json` tag, then snake_case field name.
// An empty messageType uses the struct's type name.
func (c *Codec) UnmarshalToStruct(data []byte, messageType string, v interface{}) error {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Ptr || rv.IsNil() || rv.Elem().Kind() != reflect.Struct {
		return fmt.Errorf("unmarshal target must be a pointer to struct")
	}
	if messageType == "" {
		messageType = rv.Elem().Type().Name()
	}

	result, err := c.Unmarshal(data, messageType)
	if err != nil {
		return err
	}
	return mapToStruct(result, rv.Elem())
}

// ParseRaw decodes protobuf bytes without a schema.
func (c *Codec) ParseRaw(data []byte) ([]wire.RawField, error) {
	fields, err := wire.DecodeRaw(data, c.config)
	if err != nil {
		c.metrics.failed(opDecode, err)
		return nil, err
	}
	return fields, nil
}

// Method looks up a method of a loaded service.
func (c *Codec) Method(service, method string) (*schema.Method, error) {
	svc, err := c.registry.GetService(service)
	if err != nil {
		return nil, err
	}
	m := svc.MethodByName(method)
	if m == nil {
		return nil, fmt.Errorf("method %s not found in service %s", method, service)
	}
	return m, nil
}

// message resolves messageType to its fully qualified name and definition.
func (c *Codec) message(messageType string) (string, *schema.Message, error) {
	fullName, msg, err := c.registry.FindMessage(messageType)
	if err != nil {
		return "", nil, fmt.Errorf("%w: %w", ErrUnknownMessageType, err)
	}
	return fullName, msg, nil
}

// ===== REGISTRY ACCESS =====

func (c *Codec) Registry() *registry.Registry { return c.registry }
func (c *Codec) Config() wire.Config          { return c.config }
func (c *Codec) ListMessages() []string       { return c.registry.ListMessages() }
func (c *Codec) ListEnums() []string          { return c.registry.ListEnums() }
func (c *Codec) ListServices() []string       { return c.registry.ListServices() }
