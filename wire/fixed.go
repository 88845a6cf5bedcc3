package wire

import (
	"encoding/binary"
	"fmt"
	"math"
)

// DECODER METHODS

// DecodeFixed32 decodes a 32-bit little-endian value
func (d *Decoder) DecodeFixed32() (uint32, error) {
	if d.pos+4 > len(d.buf) {
		return 0, d.fail(d.pos, ErrTruncatedMessage, fmt.Sprintf("fixed32 needs 4 bytes, have %d", len(d.buf)-d.pos))
	}

	value := binary.LittleEndian.Uint32(d.buf[d.pos:])
	d.pos += 4
	return value, nil
}

// DecodeFixed64 decodes a 64-bit little-endian value
func (d *Decoder) DecodeFixed64() (uint64, error) {
	if d.pos+8 > len(d.buf) {
		return 0, d.fail(d.pos, ErrTruncatedMessage, fmt.Sprintf("fixed64 needs 8 bytes, have %d", len(d.buf)-d.pos))
	}

	value := binary.LittleEndian.Uint64(d.buf[d.pos:])
	d.pos += 8
	return value, nil
}

// DecodeSfixed32 decodes a signed 32-bit fixed-width value
func (d *Decoder) DecodeSfixed32() (int32, error) {
	v, err := d.DecodeFixed32()
	return int32(v), err
}

// DecodeSfixed64 decodes a signed 64-bit fixed-width value
func (d *Decoder) DecodeSfixed64() (int64, error) {
	v, err := d.DecodeFixed64()
	return int64(v), err
}

// DecodeFloat32 decodes a 32-bit float from fixed32 data
func (d *Decoder) DecodeFloat32() (float32, error) {
	v, err := d.DecodeFixed32()
	return math.Float32frombits(v), err
}

// DecodeFloat64 decodes a 64-bit float from fixed64 data
func (d *Decoder) DecodeFloat64() (float64, error) {
	v, err := d.DecodeFixed64()
	return math.Float64frombits(v), err
}

// ENCODER METHODS

// EncodeFixed32 encodes a 32-bit value as 4 little-endian bytes
func (e *Encoder) EncodeFixed32(v uint32) {
	e.buf = binary.LittleEndian.AppendUint32(e.buf, v)
}

// EncodeFixed64 encodes a 64-bit value as 8 little-endian bytes
func (e *Encoder) EncodeFixed64(v uint64) {
	e.buf = binary.LittleEndian.AppendUint64(e.buf, v)
}

// EncodeSfixed32 encodes a signed 32-bit fixed-width value
func (e *Encoder) EncodeSfixed32(v int32) {
	e.EncodeFixed32(uint32(v))
}

// EncodeSfixed64 encodes a signed 64-bit fixed-width value
func (e *Encoder) EncodeSfixed64(v int64) {
	e.EncodeFixed64(uint64(v))
}

// EncodeFloat32 encodes a 32-bit float as fixed32
func (e *Encoder) EncodeFloat32(v float32) {
	e.EncodeFixed32(math.Float32bits(v))
}

// EncodeFloat64 encodes a 64-bit float as fixed64
func (e *Encoder) EncodeFloat64(v float64) {
	e.EncodeFixed64(math.Float64bits(v))
}
