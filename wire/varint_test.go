package wire

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppendVarint(t *testing.T) {
	tests := []struct {
		name     string
		value    uint64
		expected []byte
	}{
		{"zero", 0, []byte{0x00}},
		{"one", 1, []byte{0x01}},
		{"max_single_byte", 127, []byte{0x7F}},
		{"two_bytes", 128, []byte{0x80, 0x01}},
		{"150", 150, []byte{0x96, 0x01}},
		{"300", 300, []byte{0xAC, 0x02}},
		{"max_uint32", math.MaxUint32, []byte{0xFF, 0xFF, 0xFF, 0xFF, 0x0F}},
		{"max_uint64", math.MaxUint64, []byte{0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0x01}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := AppendVarint(nil, tt.value)
			assert.Equal(t, tt.expected, got)
			assert.Equal(t, len(tt.expected), VarintSize(tt.value))

			v, next, err := ReadVarint(got, 0)
			require.NoError(t, err)
			assert.Equal(t, tt.value, v)
			assert.Equal(t, len(got), next)
		})
	}
}

func TestReadVarint_Malformed(t *testing.T) {
	tests := []struct {
		name  string
		input []byte
	}{
		{"empty", []byte{}},
		{"unterminated", []byte{0x80}},
		{"unterminated_long", []byte{0xFF, 0xFF, 0xFF}},
		{"eleven_bytes", []byte{0x80, 0x80, 0x80, 0x80, 0x80, 0x80, 0x80, 0x80, 0x80, 0x80, 0x01}},
		{"tenth_byte_overflow", []byte{0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0x02}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := ReadVarint(tt.input, 0)
			assert.ErrorIs(t, err, ErrMalformedVarint)
		})
	}
}

func TestDecoder_VarintOffset(t *testing.T) {
	// a valid field followed by a varint that never terminates
	d := NewDecoder([]byte{0x08, 0x01, 0x10, 0x80, 0x80})

	_, _, err := d.DecodeTag()
	require.NoError(t, err)
	_, err = d.DecodeVarint()
	require.NoError(t, err)
	_, _, err = d.DecodeTag()
	require.NoError(t, err)

	_, err = d.DecodeVarint()
	require.ErrorIs(t, err, ErrMalformedVarint)
	assert.Equal(t, 3, Offset(err))
}

func TestEncodeInt32_Negative(t *testing.T) {
	e := NewEncoder()
	e.EncodeInt32(-1)
	// negative int32 values are sign-extended to 64 bits
	require.Len(t, e.Bytes(), MaxVarintLen)

	d := NewDecoder(e.Bytes())
	v, err := d.DecodeInt32()
	require.NoError(t, err)
	assert.Equal(t, int32(-1), v)
	assert.True(t, d.Done())
}

func TestZigZag(t *testing.T) {
	tests32 := []struct {
		value   int32
		encoded uint64
	}{
		{0, 0},
		{-1, 1},
		{1, 2},
		{-2, 3},
		{2147483647, 4294967294},
		{-2147483648, 4294967295},
	}
	for _, tt := range tests32 {
		assert.Equal(t, tt.encoded, EncodeZigZag32(tt.value), "zigzag32(%d)", tt.value)
		assert.Equal(t, tt.value, DecodeZigZag32(tt.encoded), "unzigzag32(%d)", tt.encoded)
	}

	tests64 := []struct {
		value   int64
		encoded uint64
	}{
		{0, 0},
		{-1, 1},
		{1, 2},
		{math.MaxInt64, math.MaxUint64 - 1},
		{math.MinInt64, math.MaxUint64},
	}
	for _, tt := range tests64 {
		assert.Equal(t, tt.encoded, EncodeZigZag64(tt.value), "zigzag64(%d)", tt.value)
		assert.Equal(t, tt.value, DecodeZigZag64(tt.encoded), "unzigzag64(%d)", tt.encoded)
	}
}

func TestSint_UsesZigZag(t *testing.T) {
	e := NewEncoder()
	e.EncodeSint32(-1)
	e.EncodeSint64(-64)
	assert.Equal(t, []byte{0x01, 0x7F}, e.Bytes())

	d := NewDecoder(e.Bytes())
	v32, err := d.DecodeSint32()
	require.NoError(t, err)
	assert.Equal(t, int32(-1), v32)
	v64, err := d.DecodeSint64()
	require.NoError(t, err)
	assert.Equal(t, int64(-64), v64)
}

func TestFixed_LittleEndian(t *testing.T) {
	e := NewEncoder()
	e.EncodeFixed32(0x01020304)
	e.EncodeFixed64(0x0102030405060708)
	e.EncodeFloat32(1.0)
	e.EncodeFloat64(-2.5)

	assert.Equal(t, []byte{0x04, 0x03, 0x02, 0x01}, e.Bytes()[:4])
	assert.Equal(t, []byte{0x08, 0x07, 0x06, 0x05, 0x04, 0x03, 0x02, 0x01}, e.Bytes()[4:12])
	assert.Equal(t, []byte{0x00, 0x00, 0x80, 0x3F}, e.Bytes()[12:16])

	d := NewDecoder(e.Bytes())
	f32, err := d.DecodeFixed32()
	require.NoError(t, err)
	assert.Equal(t, uint32(0x01020304), f32)
	f64, err := d.DecodeFixed64()
	require.NoError(t, err)
	assert.Equal(t, uint64(0x0102030405060708), f64)
	fl, err := d.DecodeFloat32()
	require.NoError(t, err)
	assert.Equal(t, float32(1.0), fl)
	db, err := d.DecodeFloat64()
	require.NoError(t, err)
	assert.Equal(t, -2.5, db)
	assert.True(t, d.Done())
}

func TestFixed_Truncated(t *testing.T) {
	_, err := NewDecoder([]byte{0x01, 0x02, 0x03}).DecodeFixed32()
	assert.ErrorIs(t, err, ErrTruncatedMessage)

	_, err = NewDecoder([]byte{0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07}).DecodeFixed64()
	assert.ErrorIs(t, err, ErrTruncatedMessage)
}

func TestDecodeTag(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		num, wt, err := NewDecoder([]byte{0x18}).DecodeTag()
		require.NoError(t, err)
		assert.Equal(t, FieldNumber(3), num)
		assert.Equal(t, WireVarint, wt)
	})

	t.Run("field_zero", func(t *testing.T) {
		_, _, err := NewDecoder([]byte{0x02}).DecodeTag()
		assert.ErrorIs(t, err, ErrInvalidFieldNumber)
	})

	t.Run("wire_type_6", func(t *testing.T) {
		_, _, err := NewDecoder([]byte{0x0E}).DecodeTag()
		assert.ErrorIs(t, err, ErrUnknownWireType)
		assert.Equal(t, 0, Offset(err))
	})

	t.Run("wire_type_7", func(t *testing.T) {
		_, _, err := NewDecoder([]byte{0x0F}).DecodeTag()
		assert.ErrorIs(t, err, ErrUnknownWireType)
	})

	t.Run("field_number_too_large", func(t *testing.T) {
		tag := AppendVarint(nil, uint64(MaxFieldNumber+1)<<3)
		_, _, err := NewDecoder(tag).DecodeTag()
		assert.ErrorIs(t, err, ErrInvalidFieldNumber)
	})

	t.Run("max_field_number", func(t *testing.T) {
		e := NewEncoder()
		e.EncodeTag(MaxFieldNumber, WireFixed32)
		num, wt, err := NewDecoder(e.Bytes()).DecodeTag()
		require.NoError(t, err)
		assert.Equal(t, MaxFieldNumber, num)
		assert.Equal(t, WireFixed32, wt)
	})
}

func TestLengthDelimited(t *testing.T) {
	t.Run("round_trip", func(t *testing.T) {
		e := NewEncoder()
		e.EncodeBytes([]byte("abc"))
		e.EncodeBytes(nil)
		assert.Equal(t, []byte{0x03, 'a', 'b', 'c', 0x00}, e.Bytes())

		d := NewDecoder(e.Bytes())
		b, err := d.DecodeBytes()
		require.NoError(t, err)
		assert.Equal(t, []byte("abc"), b)
		b, err = d.DecodeBytes()
		require.NoError(t, err)
		assert.Empty(t, b)
		assert.True(t, d.Done())
	})

	t.Run("length_exceeds_input", func(t *testing.T) {
		_, err := NewDecoder([]byte{0x05, 'a', 'b'}).DecodeBytes()
		require.ErrorIs(t, err, ErrTruncatedMessage)
		assert.Equal(t, 0, Offset(err))
	})

	t.Run("invalid_utf8_string", func(t *testing.T) {
		_, err := NewDecoder([]byte{0x02, 0xC3, 0x28}).DecodeString()
		assert.ErrorIs(t, err, ErrInvalidUTF8)
	})

	t.Run("lenient_utf8_string", func(t *testing.T) {
		config := DefaultConfig()
		config.LenientUTF8 = true
		s, err := NewDecoderWithResolver([]byte{0x02, 0xC3, 0x28}, nil, config).DecodeString()
		require.NoError(t, err)
		assert.Equal(t, "\uFFFD(", s)
	})

	t.Run("encode_invalid_utf8", func(t *testing.T) {
		err := NewEncoder().EncodeString(string([]byte{0xFF}))
		assert.ErrorIs(t, err, ErrInvalidUTF8)
	})
}
