// Package grpccodec carries schema-driven dynamic messages over gRPC, so
// services loaded at runtime can be called and served without generated stubs.
package grpccodec

import (
	"fmt"

	"google.golang.org/grpc/encoding"

	"github.com/anirudhraja/protocodec"
)

// Name is the codec name. The bytes on the wire are ordinary protobuf, so the
// codec presents itself as the proto content subtype.
const Name = "proto"

// Message is a dynamically typed protobuf message.
type Message struct {
	// Type is the message name Marshal and Unmarshal resolve against.
	Type   string
	Fields map[string]interface{}
}

// Codec is a grpc encoding.Codec for *Message values.
type Codec struct {
	codec *protocodec.Codec
}

var _ encoding.Codec = (*Codec)(nil)

// NewCodec returns a gRPC codec backed by c's schemas.
func NewCodec(c *protocodec.Codec) *Codec {
	return &Codec{codec: c}
}

// Marshal encodes a *Message.
func (c *Codec) Marshal(v interface{}) ([]byte, error) {
	msg, ok := v.(*Message)
	if !ok {
		return nil, fmt.Errorf("expected sender of type *grpccodec.Message but got %T", v)
	}
	if msg.Type == "" {
		return nil, fmt.Errorf("message has no type")
	}
	fields := msg.Fields
	if fields == nil {
		fields = map[string]interface{}{}
	}
	return c.codec.Marshal(fields, msg.Type)
}

// Unmarshal decodes into a *Message whose Type is already set.
func (c *Codec) Unmarshal(data []byte, v interface{}) error {
	msg, ok := v.(*Message)
	if !ok {
		return fmt.Errorf("expected receiver of type *grpccodec.Message but got %T", v)
	}
	if msg.Type == "" {
		return fmt.Errorf("receiver has no message type")
	}
	fields, err := c.codec.Unmarshal(data, msg.Type)
	if err != nil {
		return err
	}
	msg.Fields = fields
	return nil
}

// Name returns the content subtype.
func (c *Codec) Name() string {
	return Name
}
