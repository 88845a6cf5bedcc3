package wire

// MaxVarintLen is the longest encoding of a 64-bit varint.
const MaxVarintLen = 10

// AppendVarint appends v to b as a base-128 varint: seven payload bits per
// byte, least significant group first, high bit set on all but the last byte.
func AppendVarint(b []byte, v uint64) []byte {
	for v >= 0x80 {
		b = append(b, byte(v)|0x80)
		v >>= 7
	}
	return append(b, byte(v))
}

// ReadVarint decodes the varint starting at b[pos] and returns its value and
// the position just past it. Fails with ErrMalformedVarint when the input ends
// mid-sequence or the encoding does not fit in 64 bits.
func ReadVarint(b []byte, pos int) (uint64, int, error) {
	var result uint64
	for i := 0; i < MaxVarintLen; i++ {
		if pos >= len(b) {
			return 0, pos, ErrMalformedVarint
		}
		c := b[pos]
		pos++
		if i == MaxVarintLen-1 && c > 1 {
			// only one payload bit is left for the 10th byte
			return 0, pos, ErrMalformedVarint
		}
		result |= uint64(c&0x7F) << (7 * uint(i))
		if c < 0x80 {
			return result, pos, nil
		}
	}
	return 0, pos, ErrMalformedVarint
}

// DecodeVarint decodes a varint from the current position
func (d *Decoder) DecodeVarint() (uint64, error) {
	start := d.pos
	v, next, err := ReadVarint(d.buf, d.pos)
	if err != nil {
		return 0, d.fail(start, err, "")
	}
	d.pos = next
	return v, nil
}

// DecodeInt32 decodes a varint as int32
func (d *Decoder) DecodeInt32() (int32, error) {
	v, err := d.DecodeVarint()
	return int32(v), err
}

// DecodeInt64 decodes a varint as int64
func (d *Decoder) DecodeInt64() (int64, error) {
	v, err := d.DecodeVarint()
	return int64(v), err
}

// DecodeUint32 decodes a varint as uint32
func (d *Decoder) DecodeUint32() (uint32, error) {
	v, err := d.DecodeVarint()
	return uint32(v), err
}

// DecodeSint32 decodes a zigzag-encoded signed varint as int32
func (d *Decoder) DecodeSint32() (int32, error) {
	v, err := d.DecodeVarint()
	return DecodeZigZag32(v), err
}

// DecodeSint64 decodes a zigzag-encoded signed varint as int64
func (d *Decoder) DecodeSint64() (int64, error) {
	v, err := d.DecodeVarint()
	return DecodeZigZag64(v), err
}

// DecodeBool decodes a varint as bool
func (d *Decoder) DecodeBool() (bool, error) {
	v, err := d.DecodeVarint()
	return v != 0, err
}

// SkipVarint skips over a varint without decoding it
func (d *Decoder) SkipVarint() error {
	_, err := d.DecodeVarint()
	return err
}

// EncodeVarint encodes a uint64 as varint
func (e *Encoder) EncodeVarint(v uint64) {
	e.buf = AppendVarint(e.buf, v)
}

// EncodeInt32 encodes an int32 as varint. Negative values are sign-extended
// and always take ten bytes.
func (e *Encoder) EncodeInt32(v int32) {
	e.EncodeVarint(uint64(v))
}

// EncodeInt64 encodes an int64 as varint
func (e *Encoder) EncodeInt64(v int64) {
	e.EncodeVarint(uint64(v))
}

// EncodeUint32 encodes a uint32 as varint
func (e *Encoder) EncodeUint32(v uint32) {
	e.EncodeVarint(uint64(v))
}

// EncodeSint32 encodes a signed int32 with zigzag encoding
func (e *Encoder) EncodeSint32(v int32) {
	e.EncodeVarint(EncodeZigZag32(v))
}

// EncodeSint64 encodes a signed int64 with zigzag encoding
func (e *Encoder) EncodeSint64(v int64) {
	e.EncodeVarint(EncodeZigZag64(v))
}

// EncodeBool encodes a bool as varint
func (e *Encoder) EncodeBool(v bool) {
	if v {
		e.EncodeVarint(1)
	} else {
		e.EncodeVarint(0)
	}
}

// UTILITY FUNCTIONS

// DecodeZigZag32 decodes a zigzag-encoded 32-bit integer
func DecodeZigZag32(encoded uint64) int32 {
	return int32((uint32(encoded) >> 1) ^ uint32(-int32(encoded&1)))
}

// DecodeZigZag64 decodes a zigzag-encoded 64-bit integer
func DecodeZigZag64(encoded uint64) int64 {
	return int64((encoded >> 1) ^ uint64(-int64(encoded&1)))
}

// EncodeZigZag32 encodes a signed 32-bit integer using zigzag encoding
func EncodeZigZag32(v int32) uint64 {
	return uint64((uint32(v) << 1) ^ uint32(v>>31))
}

// EncodeZigZag64 encodes a signed 64-bit integer using zigzag encoding
func EncodeZigZag64(v int64) uint64 {
	return uint64((v << 1) ^ (v >> 63))
}

// VarintSize returns the number of bytes needed to encode the given varint
func VarintSize(v uint64) int {
	switch {
	case v < 1<<7:
		return 1
	case v < 1<<14:
		return 2
	case v < 1<<21:
		return 3
	case v < 1<<28:
		return 4
	case v < 1<<35:
		return 5
	case v < 1<<42:
		return 6
	case v < 1<<49:
		return 7
	case v < 1<<56:
		return 8
	case v < 1<<63:
		return 9
	default:
		return 10
	}
}
