package wire

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// DECODER METHODS

// decodeLength reads a length prefix and checks that the payload fits in the
// remaining input. It returns the payload bounds [start, end).
func (d *Decoder) decodeLength() (int, int, error) {
	at := d.pos
	length, err := d.DecodeVarint()
	if err != nil {
		return 0, 0, err
	}

	remaining := len(d.buf) - d.pos
	if length > uint64(remaining) {
		return 0, 0, d.fail(at, ErrTruncatedMessage, fmt.Sprintf("length %d exceeds remaining %d bytes", length, remaining))
	}
	start := d.pos
	return start, start + int(length), nil
}

// DecodeBytes decodes a length-delimited byte array
func (d *Decoder) DecodeBytes() ([]byte, error) {
	start, end, err := d.decodeLength()
	if err != nil {
		return nil, err
	}

	// Copy the data to avoid sharing the underlying buffer
	data := make([]byte, end-start)
	copy(data, d.buf[start:end])
	d.pos = end

	return data, nil
}

// DecodeRawBytes decodes bytes without copying (shares buffer). The second
// result is the payload's position within this decoder's buffer.
func (d *Decoder) DecodeRawBytes() ([]byte, int, error) {
	start, end, err := d.decodeLength()
	if err != nil {
		return nil, 0, err
	}

	d.pos = end
	return d.buf[start:end:end], start, nil
}

// DecodeString decodes a length-delimited UTF-8 string
func (d *Decoder) DecodeString() (string, error) {
	at := d.pos
	raw, _, err := d.DecodeRawBytes()
	if err != nil {
		return "", err
	}

	if !utf8.Valid(raw) {
		if !d.config.LenientUTF8 {
			return "", d.fail(at, ErrInvalidUTF8, "")
		}
		return strings.ToValidUTF8(string(raw), "\uFFFD"), nil
	}
	return string(raw), nil
}

// SkipBytes skips over a length-delimited byte array
func (d *Decoder) SkipBytes() error {
	_, end, err := d.decodeLength()
	if err != nil {
		return err
	}

	d.pos = end
	return nil
}

// ENCODER METHODS

// EncodeBytes encodes a byte array as length-delimited
func (e *Encoder) EncodeBytes(data []byte) {
	e.EncodeVarint(uint64(len(data)))
	e.buf = append(e.buf, data...)
}

// EncodeString encodes a string as length-delimited bytes
func (e *Encoder) EncodeString(s string) error {
	if !e.config.LenientUTF8 && !utf8.ValidString(s) {
		return fmt.Errorf("%w: string field value", ErrInvalidUTF8)
	}
	e.EncodeVarint(uint64(len(s)))
	e.buf = append(e.buf, s...)
	return nil
}
