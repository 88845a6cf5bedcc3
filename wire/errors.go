package wire

import (
	"errors"
	"fmt"
	"strings"
)

// Error kinds returned by the codec. Every decode failure unwraps to one of
// these; DecodeError adds the byte offset and FieldError the field path.
var (
	ErrMalformedVarint     = errors.New("malformed varint")
	ErrTruncatedMessage    = errors.New("truncated message")
	ErrInvalidUTF8         = errors.New("invalid UTF-8")
	ErrUnknownWireType     = errors.New("unknown wire type")
	ErrUnsupportedWireType = errors.New("unsupported wire type")
	ErrInvalidFieldNumber  = errors.New("invalid field number")
	ErrMismatchedEndGroup  = errors.New("mismatched end group")
	ErrWireTypeMismatch    = errors.New("wire type mismatch")
	ErrMaxDepth            = errors.New("maximum nesting depth exceeded")

	ErrValueOutOfRange = errors.New("value out of range")
	ErrTypeMismatch    = errors.New("type mismatch")
	ErrOneofConflict   = errors.New("more than one oneof member set")
)

// DecodeError is a decode failure at an absolute byte offset of the input.
type DecodeError struct {
	Offset int    // offset of the element that failed, from the start of the top-level buffer
	Err    error  // one of the Err* kinds
	Detail string // optional human readable context
}

// Error implements the error interface.
func (e *DecodeError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("%v at offset %d", e.Err, e.Offset)
	}
	return fmt.Sprintf("%v at offset %d: %s", e.Err, e.Offset, e.Detail)
}

// Unwrap returns the error kind.
func (e *DecodeError) Unwrap() error {
	return e.Err
}

// FieldError represents an encoding/decoding error with a field path.
type FieldError struct {
	FieldPath []string // e.g., ["shelf", "books", "title"]
	Err       error    // underlying error
}

// Error implements the error interface.
func (e *FieldError) Error() string {
	if len(e.FieldPath) == 0 {
		return e.Err.Error()
	}

	return fmt.Sprintf("error at proto path %s: %v", strings.Join(e.FieldPath, "."), e.Err)
}

// Unwrap returns the underlying error.
func (e *FieldError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is for compatibility.
func (e *FieldError) Is(target error) bool {
	_, ok := target.(*FieldError)
	return ok
}

// wrapWithField prefixes the field path of err with fieldName
func wrapWithField(err error, fieldName string) error {
	if err == nil {
		return nil
	}

	var fe *FieldError
	if errors.As(err, &fe) {
		return &FieldError{
			FieldPath: append([]string{fieldName}, fe.FieldPath...),
			Err:       fe.Err,
		}
	}

	return &FieldError{
		FieldPath: []string{fieldName},
		Err:       err,
	}
}

// Offset returns the byte offset carried by a decode error, or -1.
func Offset(err error) int {
	var de *DecodeError
	if errors.As(err, &de) {
		return de.Offset
	}
	return -1
}

// Kind returns the sentinel error kind wrapped in err, or nil when err did not
// come from the codec.
func Kind(err error) error {
	for _, kind := range []error{
		ErrMalformedVarint, ErrTruncatedMessage, ErrInvalidUTF8, ErrUnknownWireType,
		ErrUnsupportedWireType, ErrInvalidFieldNumber, ErrMismatchedEndGroup,
		ErrWireTypeMismatch, ErrMaxDepth, ErrValueOutOfRange, ErrTypeMismatch, ErrOneofConflict,
	} {
		if errors.Is(err, kind) {
			return kind
		}
	}
	return nil
}
