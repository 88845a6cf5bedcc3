package grpccodec

import (
	"errors"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/anirudhraja/protocodec"
	"github.com/anirudhraja/protocodec/wire"
)

// ToStatus converts err into a gRPC status error. Errors that already carry a
// status keep it; malformed or mistyped payloads become InvalidArgument.
func ToStatus(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}
	return status.Error(Code(err), err.Error())
}

// Code picks the gRPC code for a codec error.
func Code(err error) codes.Code {
	switch {
	case err == nil:
		return codes.OK
	case errors.Is(err, protocodec.ErrUnknownMessageType):
		return codes.Unimplemented
	case wire.Kind(err) != nil:
		return codes.InvalidArgument
	}
	if s, ok := status.FromError(err); ok {
		return s.Code()
	}
	return codes.Unknown
}
