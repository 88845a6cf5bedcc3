package wire

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeRaw(t *testing.T) {
	input := []byte{
		0x08, 0x96, 0x01, // 1: varint 150
		0x12, 0x03, 0x08, 0x01, 0x10, // 2: bytes that is not a clean message
		0x1A, 0x02, 0x08, 0x05, // 3: bytes that parses as {1: 5}
		0x25, 0x01, 0x00, 0x00, 0x00, // 4: fixed32
		0x2B, 0x08, 0x02, 0x2C, // 5: group
	}

	fields, err := DecodeRaw(input, DefaultConfig())
	require.NoError(t, err)
	require.Len(t, fields, 5)

	assert.Equal(t, RawField{Offset: 0, FieldNumber: 1, WireType: WireVarint, Data: uint64(150)}, fields[0])

	assert.Equal(t, FieldNumber(2), fields[1].FieldNumber)
	assert.Equal(t, []byte{0x08, 0x01, 0x10}, fields[1].Data)
	assert.Nil(t, fields[1].Nested)

	assert.Equal(t, 8, fields[2].Offset)
	require.Len(t, fields[2].Nested, 1)
	assert.Equal(t, 10, fields[2].Nested[0].Offset)
	assert.Equal(t, uint64(5), fields[2].Nested[0].Data)

	assert.Equal(t, WireFixed32, fields[3].WireType)
	assert.Equal(t, uint64(1), fields[3].Data)

	assert.Equal(t, WireStartGroup, fields[4].WireType)
	assert.Equal(t, []RawField{{Offset: 18, FieldNumber: 1, WireType: WireVarint, Data: uint64(2)}}, fields[4].Data)
}

func TestDecodeRaw_Errors(t *testing.T) {
	_, err := DecodeRaw([]byte{0x08}, DefaultConfig())
	assert.ErrorIs(t, err, ErrMalformedVarint)

	_, err = DecodeRaw([]byte{0x0A, 0x04, 0x01}, DefaultConfig())
	assert.ErrorIs(t, err, ErrTruncatedMessage)

	config := DefaultConfig()
	config.SkipGroups = false
	_, err = DecodeRaw([]byte{0x0B, 0x0C}, config)
	assert.ErrorIs(t, err, ErrUnsupportedWireType)
}

func TestDecodeField(t *testing.T) {
	d := NewDecoder([]byte{0x18, 0x96, 0x01, 0x22, 0x01, 'x'})

	v, err := d.DecodeField()
	require.NoError(t, err)
	assert.Equal(t, &Value{FieldNumber: 3, WireType: WireVarint, Data: uint64(150)}, v)

	v, err = d.DecodeField()
	require.NoError(t, err)
	assert.Equal(t, &Value{FieldNumber: 4, WireType: WireBytes, Data: []byte("x")}, v)

	v, err = d.DecodeField()
	require.NoError(t, err)
	assert.Nil(t, v)
}

func TestSkipField(t *testing.T) {
	tests := []struct {
		name     string
		input    []byte
		expected int
	}{
		{"varint", []byte{0x08, 0xFF, 0x01, 0x00}, 3},
		{"fixed64", []byte{0x09, 1, 2, 3, 4, 5, 6, 7, 8, 0x00}, 9},
		{"bytes", []byte{0x0A, 0x02, 'a', 'b', 0x00}, 4},
		{"fixed32", []byte{0x0D, 1, 2, 3, 4, 0x00}, 5},
		{"nested_groups", []byte{0x0B, 0x13, 0x08, 0x01, 0x14, 0x0C, 0x00}, 6},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := NewDecoder(tt.input)
			num, wt, err := d.DecodeTag()
			require.NoError(t, err)
			require.NoError(t, d.SkipField(num, wt))
			assert.Equal(t, tt.expected, d.Pos())
		})
	}
}
