// Package framing reads and writes streams of length-prefixed messages using
// the gRPC message header: one compressed-flag byte followed by a big-endian
// uint32 payload length.
package framing

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

const (
	// HeaderLen is the size of the prefix in front of every message.
	HeaderLen = 5

	// DefaultMaxMessageSize matches the gRPC default receive limit.
	DefaultMaxMessageSize = 4 << 20

	flagUncompressed byte = 0
	flagCompressed   byte = 1
)

var (
	ErrMessageTooLarge = errors.New("message too large")
	ErrTruncatedFrame  = errors.New("truncated frame")
	ErrInvalidFlag     = errors.New("invalid compressed flag")
	ErrNoCompressor    = errors.New("compressed message but no compressor configured")
)

type options struct {
	compressor      Compressor
	maxMessageSize  int
	minCompressSize int
}

// Option configures a Reader or Writer.
type Option func(*options)

// WithCompressor compresses written messages with c and decompresses
// messages flagged as compressed. nil means identity.
func WithCompressor(c Compressor) Option {
	return func(o *options) {
		o.compressor = c
	}
}

// WithMaxMessageSize bounds the payload size, before and after decompression.
func WithMaxMessageSize(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.maxMessageSize = n
		}
	}
}

// WithMinCompressSize leaves messages smaller than n bytes uncompressed.
func WithMinCompressSize(n int) Option {
	return func(o *options) {
		o.minCompressSize = n
	}
}

func newOptions(opts []Option) options {
	o := options{maxMessageSize: DefaultMaxMessageSize}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Writer writes framed messages to an underlying stream. It is not safe for
// concurrent use.
type Writer struct {
	w      io.Writer
	opts   options
	header [HeaderLen]byte
}

// NewWriter returns a Writer framing messages onto w.
func NewWriter(w io.Writer, opts ...Option) *Writer {
	return &Writer{w: w, opts: newOptions(opts)}
}

// WriteMessage writes one message with its header.
func (w *Writer) WriteMessage(msg []byte) error {
	flag := flagUncompressed
	payload := msg
	if w.opts.compressor != nil && len(msg) >= w.opts.minCompressSize {
		compressed, err := w.opts.compressor.Compress(msg)
		if err != nil {
			return fmt.Errorf("%s compress: %w", w.opts.compressor.Name(), err)
		}
		flag, payload = flagCompressed, compressed
	}
	if len(payload) > w.opts.maxMessageSize {
		return fmt.Errorf("%w: %d bytes exceeds %d", ErrMessageTooLarge, len(payload), w.opts.maxMessageSize)
	}

	w.header[0] = flag
	binary.BigEndian.PutUint32(w.header[1:], uint32(len(payload)))
	if _, err := w.w.Write(w.header[:]); err != nil {
		return err
	}
	_, err := w.w.Write(payload)
	return err
}

// Reader reads framed messages from an underlying stream. It is not safe for
// concurrent use.
type Reader struct {
	r      io.Reader
	opts   options
	header [HeaderLen]byte
}

// NewReader returns a Reader for framed messages on r.
func NewReader(r io.Reader, opts ...Option) *Reader {
	return &Reader{r: r, opts: newOptions(opts)}
}

// ReadMessage returns the next message payload, decompressed. It returns
// io.EOF when the stream ends cleanly between messages and ErrTruncatedFrame
// when it ends inside one.
func (r *Reader) ReadMessage() ([]byte, error) {
	if _, err := io.ReadFull(r.r, r.header[:]); err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, fmt.Errorf("%w: incomplete header", ErrTruncatedFrame)
		}
		return nil, err
	}

	flag := r.header[0]
	length := binary.BigEndian.Uint32(r.header[1:])
	if flag != flagUncompressed && flag != flagCompressed {
		return nil, fmt.Errorf("%w: %d", ErrInvalidFlag, flag)
	}
	if uint64(length) > uint64(r.opts.maxMessageSize) {
		return nil, fmt.Errorf("%w: %d bytes exceeds %d", ErrMessageTooLarge, length, r.opts.maxMessageSize)
	}

	payload := make([]byte, length)
	if _, err := io.ReadFull(r.r, payload); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, fmt.Errorf("%w: want %d payload bytes", ErrTruncatedFrame, length)
		}
		return nil, err
	}

	if flag == flagUncompressed {
		return payload, nil
	}
	if r.opts.compressor == nil {
		return nil, ErrNoCompressor
	}
	out, err := r.opts.compressor.Decompress(payload, r.opts.maxMessageSize)
	if err != nil {
		return nil, fmt.Errorf("%s decompress: %w", r.opts.compressor.Name(), err)
	}
	return out, nil
}
