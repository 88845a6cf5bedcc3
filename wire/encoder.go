package wire

import (
	"fmt"

	"github.com/anirudhraja/protocodec/schema"
)

// Resolver looks up message and enum definitions by name while encoding or
// decoding nested types. *registry.Registry implements it.
type Resolver interface {
	GetMessage(name string) (*schema.Message, error)
	GetEnum(name string) (*schema.Enum, error)
}

// Encoder handles low-level protobuf wire format encoding
type Encoder struct {
	buf      []byte
	resolver Resolver
	config   Config
	depth    int
}

// NewEncoder creates a new wire format encoder
func NewEncoder() *Encoder {
	return &Encoder{
		buf:    make([]byte, 0, 64),
		config: DefaultConfig(),
	}
}

// NewEncoderWithResolver creates an encoder that can resolve nested types
func NewEncoderWithResolver(resolver Resolver, config Config) *Encoder {
	return &Encoder{
		buf:      make([]byte, 0, 64),
		resolver: resolver,
		config:   config,
	}
}

// Bytes returns the encoded bytes
func (e *Encoder) Bytes() []byte {
	return e.buf
}

// Len returns the number of bytes written so far
func (e *Encoder) Len() int {
	return len(e.buf)
}

// Reset clears the encoder buffer
func (e *Encoder) Reset() {
	e.buf = e.buf[:0]
	e.depth = 0
}

// EncodeTag writes the tag for a field number and wire type
func (e *Encoder) EncodeTag(fieldNumber FieldNumber, wireType WireType) {
	e.EncodeVarint(uint64(MakeTag(fieldNumber, wireType)))
}

// EncodeRaw appends pre-encoded bytes verbatim
func (e *Encoder) EncodeRaw(b []byte) {
	e.buf = append(e.buf, b...)
}

// fork marks the start of a length-delimited payload that is about to be
// written in place. join must be called with the returned mark once the
// payload is complete.
func (e *Encoder) fork() int {
	return len(e.buf)
}

// join inserts the varint length of everything written since mark in front of
// it, so nested messages need a single encoding pass.
func (e *Encoder) join(mark int) {
	n := len(e.buf) - mark
	size := VarintSize(uint64(n))
	for i := 0; i < size; i++ {
		e.buf = append(e.buf, 0)
	}
	copy(e.buf[mark+size:], e.buf[mark:mark+n])
	AppendVarint(e.buf[:mark], uint64(n))
}

// enter bumps the nesting depth for a nested message
func (e *Encoder) enter() error {
	if e.depth+1 > e.config.maxDepth() {
		return fmt.Errorf("%w: limit %d", ErrMaxDepth, e.config.maxDepth())
	}
	e.depth++
	return nil
}

func (e *Encoder) leave() {
	e.depth--
}

// EncodeMessage encodes a message using schema - main entry point
func EncodeMessage(data map[string]interface{}, msg *schema.Message, resolver Resolver, config Config) ([]byte, error) {
	encoder := NewEncoderWithResolver(resolver, config)
	if err := encoder.EncodeMessage(data, msg); err != nil {
		return nil, err
	}
	return encoder.Bytes(), nil
}
