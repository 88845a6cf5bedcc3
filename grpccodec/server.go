package grpccodec

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/anirudhraja/protocodec"
	"github.com/anirudhraja/protocodec/schema"
)

// Handler serves the unary methods of a dynamic service. method is the bare
// method name, e.g. "CreateShelf".
type Handler interface {
	Handle(ctx context.Context, method string, req *Message) (*Message, error)
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, method string, req *Message) (*Message, error)

// Handle calls f.
func (f HandlerFunc) Handle(ctx context.Context, method string, req *Message) (*Message, error) {
	return f(ctx, method, req)
}

// gRPC checks that the registered implementation satisfies HandlerType; any
// Handler does.
type dynamicService interface{}

// NewServiceDesc builds a grpc.ServiceDesc for a service loaded into codec.
// Register it on a server created with grpc.ForceServerCodec(NewCodec(codec)),
// passing handler as the implementation. Streaming methods are not served.
func NewServiceDesc(codec *protocodec.Codec, serviceName string, handler Handler, logger *zap.Logger) (*grpc.ServiceDesc, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	fullName, err := codec.Registry().FullServiceName(serviceName)
	if err != nil {
		return nil, err
	}
	service, err := codec.Registry().GetService(fullName)
	if err != nil {
		return nil, err
	}

	desc := &grpc.ServiceDesc{
		ServiceName: fullName,
		HandlerType: (*dynamicService)(nil),
		Methods:     []grpc.MethodDesc{},
		Streams:     []grpc.StreamDesc{},
	}
	for _, method := range service.Methods {
		if method.ClientStreaming || method.ServerStreaming {
			logger.Debug("skipping streaming method", zap.String("service", fullName), zap.String("method", method.Name))
			continue
		}
		desc.Methods = append(desc.Methods, grpc.MethodDesc{
			MethodName: method.Name,
			Handler:    unaryHandler(fullName, method, logger),
		})
	}
	if len(desc.Methods) == 0 {
		return nil, fmt.Errorf("service %s has no unary methods", fullName)
	}
	return desc, nil
}

// unaryHandler decodes the request as the method's input type, calls the
// Handler and types the response as the output type.
func unaryHandler(service string, method *schema.Method, logger *zap.Logger) func(interface{}, context.Context, func(interface{}) error, grpc.UnaryServerInterceptor) (interface{}, error) {
	fullMethod := "/" + service + "/" + method.Name
	return func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
		req := &Message{Type: method.InputType}
		if err := dec(req); err != nil {
			logger.Debug("failed to decode request", zap.String("method", fullMethod), zap.Error(err))
			return nil, status.Errorf(codes.InvalidArgument, "decoding %s: %v", method.InputType, err)
		}

		handler, ok := srv.(Handler)
		if !ok {
			return nil, status.Errorf(codes.Internal, "%T does not implement grpccodec.Handler", srv)
		}
		call := func(ctx context.Context, r interface{}) (interface{}, error) {
			resp, err := handler.Handle(ctx, method.Name, r.(*Message))
			if err != nil {
				return nil, ToStatus(err)
			}
			if resp == nil {
				resp = &Message{}
			}
			if resp.Type == "" {
				resp.Type = method.OutputType
			}
			return resp, nil
		}

		if interceptor == nil {
			return call(ctx, req)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		return interceptor(ctx, req, info, call)
	}
}
