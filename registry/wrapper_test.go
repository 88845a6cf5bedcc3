package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anirudhraja/protocodec/schema"
)

func TestRegistry_WrapperTypeDetection(t *testing.T) {
	registry := NewRegistry()

	tests := []struct {
		protoType       string
		expectedKind    schema.TypeKind
		expectedWrapper schema.WrapperType
	}{
		{
			protoType:       "google.protobuf.DoubleValue",
			expectedKind:    schema.KindWrapper,
			expectedWrapper: schema.WrapperDoubleValue,
		},
		{
			protoType:       "google.protobuf.FloatValue",
			expectedKind:    schema.KindWrapper,
			expectedWrapper: schema.WrapperFloatValue,
		},
		{
			protoType:       "google.protobuf.Int64Value",
			expectedKind:    schema.KindWrapper,
			expectedWrapper: schema.WrapperInt64Value,
		},
		{
			protoType:       "google.protobuf.UInt64Value",
			expectedKind:    schema.KindWrapper,
			expectedWrapper: schema.WrapperUInt64Value,
		},
		{
			protoType:       "google.protobuf.Int32Value",
			expectedKind:    schema.KindWrapper,
			expectedWrapper: schema.WrapperInt32Value,
		},
		{
			protoType:       "google.protobuf.UInt32Value",
			expectedKind:    schema.KindWrapper,
			expectedWrapper: schema.WrapperUInt32Value,
		},
		{
			protoType:       "google.protobuf.BoolValue",
			expectedKind:    schema.KindWrapper,
			expectedWrapper: schema.WrapperBoolValue,
		},
		{
			protoType:       "google.protobuf.StringValue",
			expectedKind:    schema.KindWrapper,
			expectedWrapper: schema.WrapperStringValue,
		},
		{
			protoType:       "google.protobuf.BytesValue",
			expectedKind:    schema.KindWrapper,
			expectedWrapper: schema.WrapperBytesValue,
		},
		{
			// fully qualified
			protoType:       ".google.protobuf.BoolValue",
			expectedKind:    schema.KindWrapper,
			expectedWrapper: schema.WrapperBoolValue,
		},
	}

	for _, tt := range tests {
		t.Run(tt.protoType, func(t *testing.T) {
			fieldType := schema.FieldType{Kind: schema.KindMessage, MessageType: tt.protoType}
			require.NoError(t, registry.resolveFieldType(&fieldType, "test.pkg.Holder"))
			assert.Equal(t, tt.expectedKind, fieldType.Kind)
			assert.Equal(t, tt.expectedWrapper, fieldType.WrapperType)
			assert.Empty(t, fieldType.MessageType)
		})
	}
}

func TestRegistry_WrapperTypeResolution(t *testing.T) {
	registry := NewRegistry()

	// already resolved wrapper fields pass through untouched
	message := &schema.Message{
		Name: "TestMessage",
		Fields: []*schema.Field{
			{
				Name:   "optional_string",
				Number: 1,
				Type: schema.FieldType{
					Kind:        schema.KindWrapper,
					WrapperType: schema.WrapperStringValue,
				},
			},
			{
				Name:   "optional_int",
				Number: 2,
				Type: schema.FieldType{
					Kind:        schema.KindWrapper,
					WrapperType: schema.WrapperInt32Value,
				},
			},
		},
	}
	repo := &schema.ProtoRepo{ProtoFiles: map[string]*schema.ProtoFile{
		"test.proto": {Name: "test.proto", Package: "test.pkg", Syntax: "proto3", Messages: []*schema.Message{message}},
	}}
	require.NoError(t, registry.LoadRepo(repo))

	for _, field := range message.Fields {
		assert.Equal(t, schema.KindWrapper, field.Type.Kind, field.Name)
	}

	bogus := schema.FieldType{Kind: schema.KindWrapper, WrapperType: "google.protobuf.Timestamp"}
	assert.Error(t, registry.resolveFieldType(&bogus, "test.pkg"))
}

func TestRegistry_NonWrapperTypes(t *testing.T) {
	registry := NewRegistry()

	t.Run("well-known messages stay messages", func(t *testing.T) {
		for _, protoType := range []string{"google.protobuf.Timestamp", "google.protobuf.Any", "google.protobuf.Struct"} {
			fieldType := schema.FieldType{Kind: schema.KindMessage, MessageType: protoType}
			require.NoError(t, registry.resolveFieldType(&fieldType, ""))
			assert.Equal(t, schema.KindMessage, fieldType.Kind, protoType)
			assert.Equal(t, protoType, fieldType.MessageType)
		}
	})

	t.Run("unknown names do not resolve", func(t *testing.T) {
		for _, protoType := range []string{"MyMessage", "com.example.User"} {
			fieldType := schema.FieldType{Kind: schema.KindMessage, MessageType: protoType}
			err := registry.resolveFieldType(&fieldType, "")
			assert.Error(t, err, protoType)
			assert.NotEqual(t, schema.KindWrapper, fieldType.Kind)
		}
	})
}
