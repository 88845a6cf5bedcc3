package wire

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFieldError(t *testing.T) {
	tests := []struct {
		name         string
		buildError   func() error
		expectedPath string
		expectedMsg  string
	}{
		{
			name: "single field error",
			buildError: func() error {
				baseErr := typeMismatch(1.5, "message")
				return wrapWithField(baseErr, "latitude")
			},
			expectedPath: "latitude",
			expectedMsg:  "expected message, got float64",
		},
		{
			name: "nested field error",
			buildError: func() error {
				baseErr := typeMismatch(1.5, "message")
				err := wrapWithField(baseErr, "latitude")
				err = wrapWithField(err, "target_location")
				err = wrapWithField(err, "input")
				err = wrapWithField(err, "field_args")
				return err
			},
			expectedPath: "field_args.input.target_location.latitude",
			expectedMsg:  "expected message, got float64",
		},
		{
			name: "decode error keeps offset",
			buildError: func() error {
				baseErr := &DecodeError{Offset: 17, Err: ErrTruncatedMessage}
				err := wrapWithField(baseErr, "name")
				return wrapWithField(err, "user")
			},
			expectedPath: "user.name",
			expectedMsg:  "truncated message at offset 17",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.buildError()

			var fieldErr *FieldError
			require.ErrorAs(t, err, &fieldErr)
			assert.Equal(t, tt.expectedPath, strings.Join(fieldErr.FieldPath, "."))

			errMsg := err.Error()
			assert.Contains(t, errMsg, "error at proto path "+tt.expectedPath)
			assert.Contains(t, errMsg, tt.expectedMsg)
			// the path is flattened, not repeated per level
			assert.Equal(t, 1, strings.Count(errMsg, "error at proto path"))

			assert.NotNil(t, errors.Unwrap(err))
		})
	}
}

func TestFieldError_Is(t *testing.T) {
	err := wrapWithField(ErrOneofConflict, "kind")

	assert.ErrorIs(t, err, &FieldError{})
	assert.ErrorIs(t, err, ErrOneofConflict)
	assert.NotErrorIs(t, err, ErrTypeMismatch)
	assert.Nil(t, wrapWithField(nil, "kind"))
}

func TestDecodeError(t *testing.T) {
	err := error(&DecodeError{Offset: 4, Err: ErrUnknownWireType, Detail: "wire type 7 for field 1"})

	assert.Equal(t, "unknown wire type at offset 4: wire type 7 for field 1", err.Error())
	assert.ErrorIs(t, err, ErrUnknownWireType)
	assert.Equal(t, 4, Offset(err))
	assert.Equal(t, ErrUnknownWireType, Kind(err))

	assert.Equal(t, -1, Offset(errors.New("other")))
	assert.Nil(t, Kind(errors.New("other")))
}

func TestKind_ThroughFieldPath(t *testing.T) {
	err := wrapWithField(&DecodeError{Offset: 9, Err: ErrMalformedVarint}, "id")
	assert.Equal(t, ErrMalformedVarint, Kind(err))
	assert.Equal(t, 9, Offset(err))
}
