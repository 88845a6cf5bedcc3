package framing

import (
	"bytes"
	"fmt"
	"io"
	"sort"
	"sync"

	"github.com/golang/snappy"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Compressor compresses whole message payloads. Implementations must be safe
// for concurrent use.
type Compressor interface {
	// Name is the identifier used in configuration, e.g. "gzip".
	Name() string
	Compress(data []byte) ([]byte, error)
	// Decompress returns ErrMessageTooLarge when the output would exceed
	// maxSize bytes.
	Decompress(data []byte, maxSize int) ([]byte, error)
}

// Identity is the name meaning no compression.
const Identity = "identity"

var (
	compressorsMu sync.RWMutex
	compressors   = map[string]Compressor{
		"gzip":   gzipCompressor{},
		"zstd":   newZstdCompressor(),
		"snappy": snappyCompressor{},
		"lz4":    lz4Compressor{},
	}
)

// RegisterCompressor makes c available by its name, replacing any compressor
// registered under the same name.
func RegisterCompressor(c Compressor) {
	compressorsMu.Lock()
	defer compressorsMu.Unlock()
	compressors[c.Name()] = c
}

// GetCompressor returns the compressor registered under name. The identity
// compressor is nil.
func GetCompressor(name string) (Compressor, error) {
	if name == "" || name == Identity {
		return nil, nil
	}
	compressorsMu.RLock()
	defer compressorsMu.RUnlock()
	c, ok := compressors[name]
	if !ok {
		return nil, fmt.Errorf("unknown compressor %q", name)
	}
	return c, nil
}

// Compressors lists the registered compressor names, identity included.
func Compressors() []string {
	compressorsMu.RLock()
	defer compressorsMu.RUnlock()
	names := []string{Identity}
	for name := range compressors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// readLimited reads r fully, failing once more than maxSize bytes come out.
func readLimited(r io.Reader, maxSize int) ([]byte, error) {
	out, err := io.ReadAll(io.LimitReader(r, int64(maxSize)+1))
	if err != nil {
		return nil, err
	}
	if len(out) > maxSize {
		return nil, fmt.Errorf("%w: decompressed size exceeds %d bytes", ErrMessageTooLarge, maxSize)
	}
	return out, nil
}

type gzipCompressor struct{}

func (gzipCompressor) Name() string { return "gzip" }

func (gzipCompressor) Compress(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write(data); err != nil {
		return nil, err
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (gzipCompressor) Decompress(data []byte, maxSize int) ([]byte, error) {
	zr, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer zr.Close()
	return readLimited(zr, maxSize)
}

// zstdCompressor shares one encoder; EncodeAll is safe for concurrent use.
// Decompression streams through a fresh decoder so output stays bounded.
type zstdCompressor struct {
	encoder func() (*zstd.Encoder, error)
}

func newZstdCompressor() zstdCompressor {
	return zstdCompressor{
		encoder: sync.OnceValues(func() (*zstd.Encoder, error) {
			return zstd.NewWriter(nil)
		}),
	}
}

func (zstdCompressor) Name() string { return "zstd" }

func (c zstdCompressor) Compress(data []byte) ([]byte, error) {
	enc, err := c.encoder()
	if err != nil {
		return nil, err
	}
	return enc.EncodeAll(data, nil), nil
}

func (zstdCompressor) Decompress(data []byte, maxSize int) ([]byte, error) {
	var header zstd.Header
	if err := header.Decode(data); err == nil && header.HasFCS && header.FrameContentSize > uint64(maxSize) {
		return nil, fmt.Errorf("%w: decompressed size %d exceeds %d bytes", ErrMessageTooLarge, header.FrameContentSize, maxSize)
	}
	zr, err := zstd.NewReader(bytes.NewReader(data), zstd.WithDecoderConcurrency(1))
	if err != nil {
		return nil, err
	}
	defer zr.Close()
	return readLimited(zr, maxSize)
}

type snappyCompressor struct{}

func (snappyCompressor) Name() string { return "snappy" }

func (snappyCompressor) Compress(data []byte) ([]byte, error) {
	return snappy.Encode(nil, data), nil
}

func (snappyCompressor) Decompress(data []byte, maxSize int) ([]byte, error) {
	n, err := snappy.DecodedLen(data)
	if err != nil {
		return nil, err
	}
	if n > maxSize {
		return nil, fmt.Errorf("%w: decompressed size %d exceeds %d bytes", ErrMessageTooLarge, n, maxSize)
	}
	return snappy.Decode(nil, data)
}

// lz4Compressor uses the lz4 frame format, which records its own sizes.
type lz4Compressor struct{}

func (lz4Compressor) Name() string { return "lz4" }

func (lz4Compressor) Compress(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	zw := lz4.NewWriter(&buf)
	if _, err := zw.Write(data); err != nil {
		return nil, err
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (lz4Compressor) Decompress(data []byte, maxSize int) ([]byte, error) {
	return readLimited(lz4.NewReader(bytes.NewReader(data)), maxSize)
}
