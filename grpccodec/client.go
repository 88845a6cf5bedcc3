package grpccodec

import (
	"context"
	"fmt"

	"google.golang.org/grpc"

	"github.com/anirudhraja/protocodec"
)

// Client calls unary methods of services loaded into a protocodec.Codec.
type Client struct {
	conn  grpc.ClientConnInterface
	codec *protocodec.Codec
	wire  *Codec
}

// NewClient returns a Client sending over conn.
func NewClient(conn grpc.ClientConnInterface, codec *protocodec.Codec) *Client {
	return &Client{conn: conn, codec: codec, wire: NewCodec(codec)}
}

// Invoke calls service/method with req encoded as the method's input type and
// returns the response fields.
func (c *Client) Invoke(ctx context.Context, service, method string, req map[string]interface{}, opts ...grpc.CallOption) (map[string]interface{}, error) {
	fullName, err := c.codec.Registry().FullServiceName(service)
	if err != nil {
		return nil, err
	}
	m, err := c.codec.Method(fullName, method)
	if err != nil {
		return nil, err
	}
	if m.ClientStreaming || m.ServerStreaming {
		return nil, fmt.Errorf("%s.%s is a streaming method", fullName, method)
	}

	in := &Message{Type: m.InputType, Fields: req}
	out := &Message{Type: m.OutputType}
	opts = append([]grpc.CallOption{grpc.ForceCodec(c.wire)}, opts...)
	if err := c.conn.Invoke(ctx, "/"+fullName+"/"+m.Name, in, out, opts...); err != nil {
		return nil, err
	}
	return out.Fields, nil
}
