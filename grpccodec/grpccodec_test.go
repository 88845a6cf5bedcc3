package grpccodec

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/anirudhraja/protocodec"
	"github.com/anirudhraja/protocodec/wire"
)

const libraryProto = `syntax = "proto3";

package library;

import "google/protobuf/wrappers.proto";

message Shelf {
  string name = 1;
  string theme = 2;
}

message CreateShelfRequest {
  Shelf shelf = 1;
}

service LibraryService {
  rpc CreateShelf(CreateShelfRequest) returns (Shelf);
  rpc Shout(google.protobuf.StringValue) returns (google.protobuf.StringValue);
  rpc Watch(CreateShelfRequest) returns (stream Shelf);
}
`

func newCodec(t *testing.T) *protocodec.Codec {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "library.proto"), []byte(libraryProto), 0o644))
	codec := protocodec.New(protocodec.WithProtoDirectories(dir))
	require.NoError(t, codec.LoadSchemaFromFile("library.proto"))
	return codec
}

var library = HandlerFunc(func(ctx context.Context, method string, req *Message) (*Message, error) {
	switch method {
	case "CreateShelf":
		shelf, _ := req.Fields["shelf"].(map[string]interface{})
		switch shelf["theme"] {
		case "forbidden":
			return nil, status.Error(codes.PermissionDenied, "no shelves about that")
		case "broken":
			return nil, errors.New("shelf collapsed")
		}
		return &Message{Fields: map[string]interface{}{
			"name":  "shelves/1",
			"theme": shelf["theme"],
		}}, nil
	case "Shout":
		value, _ := req.Fields["value"].(string)
		return &Message{Fields: map[string]interface{}{"value": strings.ToUpper(value)}}, nil
	}
	return nil, status.Errorf(codes.Unimplemented, "method %s", method)
})

func startServer(t *testing.T, codec *protocodec.Codec, handler Handler) *grpc.ClientConn {
	t.Helper()
	lis := bufconn.Listen(1 << 20)

	server := grpc.NewServer(grpc.ForceServerCodec(NewCodec(codec)))
	desc, err := NewServiceDesc(codec, "LibraryService", handler, zaptest.NewLogger(t))
	require.NoError(t, err)
	server.RegisterService(desc, handler)
	go func() {
		_ = server.Serve(lis)
	}()
	t.Cleanup(server.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func testContext(t *testing.T) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func TestClient_Invoke(t *testing.T) {
	codec := newCodec(t)
	client := NewClient(startServer(t, codec, library), codec)
	ctx := testContext(t)

	resp, err := client.Invoke(ctx, "LibraryService", "CreateShelf", map[string]interface{}{
		"shelf": map[string]interface{}{"theme": "poetry"},
	})
	require.NoError(t, err)
	assert.Equal(t, map[string]interface{}{"name": "shelves/1", "theme": "poetry"}, resp)

	t.Run("handler status is kept", func(t *testing.T) {
		_, err := client.Invoke(ctx, "library.LibraryService", "CreateShelf", map[string]interface{}{
			"shelf": map[string]interface{}{"theme": "forbidden"},
		})
		assert.Equal(t, codes.PermissionDenied, status.Code(err))
	})

	t.Run("plain handler error", func(t *testing.T) {
		_, err := client.Invoke(ctx, "LibraryService", "CreateShelf", map[string]interface{}{
			"shelf": map[string]interface{}{"theme": "broken"},
		})
		assert.Equal(t, codes.Unknown, status.Code(err))
		assert.Contains(t, status.Convert(err).Message(), "shelf collapsed")
	})

	t.Run("request that does not encode", func(t *testing.T) {
		_, err := client.Invoke(ctx, "LibraryService", "CreateShelf", map[string]interface{}{
			"shelf": map[string]interface{}{"name": 42},
		})
		// grpc reports codec failures on the sending side as Internal
		assert.Equal(t, codes.Internal, status.Code(err))
		assert.Contains(t, status.Convert(err).Message(), wire.ErrTypeMismatch.Error())
	})

	t.Run("unknown method", func(t *testing.T) {
		_, err := client.Invoke(ctx, "LibraryService", "DeleteShelf", nil)
		assert.ErrorContains(t, err, "method DeleteShelf not found")
	})

	t.Run("streaming method", func(t *testing.T) {
		_, err := client.Invoke(ctx, "LibraryService", "Watch", nil)
		assert.ErrorContains(t, err, "streaming")
	})
}

func TestServer_GeneratedClientInterop(t *testing.T) {
	codec := newCodec(t)
	conn := startServer(t, codec, library)
	ctx := testContext(t)

	// a client using the standard proto codec and generated message types
	out := &wrapperspb.StringValue{}
	require.NoError(t, conn.Invoke(ctx, "/library.LibraryService/Shout", wrapperspb.String("quiet please"), out))
	assert.Equal(t, "QUIET PLEASE", out.GetValue())

	t.Run("malformed request", func(t *testing.T) {
		// field 1 of CreateShelfRequest carries a Shelf; 0xFF is not one
		err := conn.Invoke(ctx, "/library.LibraryService/CreateShelf", wrapperspb.Bytes([]byte{0xFF}), &wrapperspb.StringValue{})
		assert.Equal(t, codes.InvalidArgument, status.Code(err))
	})

	t.Run("streaming method is not served", func(t *testing.T) {
		err := conn.Invoke(ctx, "/library.LibraryService/Watch", wrapperspb.String(""), &wrapperspb.StringValue{})
		assert.Equal(t, codes.Unimplemented, status.Code(err))
	})
}

func TestNewServiceDesc(t *testing.T) {
	codec := newCodec(t)

	desc, err := NewServiceDesc(codec, "LibraryService", library, nil)
	require.NoError(t, err)
	assert.Equal(t, "library.LibraryService", desc.ServiceName)
	require.Len(t, desc.Methods, 2)
	assert.Equal(t, "CreateShelf", desc.Methods[0].MethodName)
	assert.Equal(t, "Shout", desc.Methods[1].MethodName)

	_, err = NewServiceDesc(codec, "NoSuchService", library, nil)
	assert.Error(t, err)
}

func TestCodec(t *testing.T) {
	codec := NewCodec(newCodec(t))
	assert.Equal(t, "proto", codec.Name())

	data, err := codec.Marshal(&Message{Type: "library.Shelf", Fields: map[string]interface{}{"name": "CreateShelf"}})
	require.NoError(t, err)
	assert.Equal(t, append([]byte{0x0A, 0x0B}, "CreateShelf"...), data)

	empty, err := codec.Marshal(&Message{Type: "library.Shelf"})
	require.NoError(t, err)
	assert.Empty(t, empty)

	out := &Message{Type: "library.Shelf"}
	require.NoError(t, codec.Unmarshal(data, out))
	assert.Equal(t, map[string]interface{}{"name": "CreateShelf"}, out.Fields)

	_, err = codec.Marshal("not a message")
	assert.Error(t, err)
	_, err = codec.Marshal(&Message{})
	assert.Error(t, err)
	assert.Error(t, codec.Unmarshal(data, &Message{}))
	assert.Error(t, codec.Unmarshal(data, new(string)))
	assert.ErrorIs(t, codec.Unmarshal([]byte{0x0A, 0x0B}, &Message{Type: "library.Shelf"}), wire.ErrTruncatedMessage)
}

func TestCode(t *testing.T) {
	tests := []struct {
		err  error
		want codes.Code
	}{
		{nil, codes.OK},
		{fmt.Errorf("lookup: %w", protocodec.ErrUnknownMessageType), codes.Unimplemented},
		{&wire.DecodeError{Offset: 3, Err: wire.ErrMalformedVarint}, codes.InvalidArgument},
		{fmt.Errorf("encode: %w", wire.ErrValueOutOfRange), codes.InvalidArgument},
		{status.Error(codes.NotFound, "gone"), codes.NotFound},
		{errors.New("boom"), codes.Unknown},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, Code(tt.err), "%v", tt.err)
	}

	assert.NoError(t, ToStatus(nil))
	st := status.Convert(ToStatus(wire.ErrInvalidUTF8))
	assert.Equal(t, codes.InvalidArgument, st.Code())
}
