package storage

import (
	"bytes"
	"fmt"

	"github.com/klauspost/compress/zstd"
)

var zstdMagic = []byte{0x28, 0xB5, 0x2F, 0xFD}

// CompressionOptions configures compression behavior
type CompressionOptions struct {
	// Minimum size in bytes before compressing
	MinSize int
	// Compression level (1=fastest, 4=best)
	Level int
}

func DefaultCompressionOptions() CompressionOptions {
	return CompressionOptions{
		MinSize: 1024,
		Level:   2,
	}
}

// CompressedBackend zstd-compresses values on their way into another backend.
// Values below MinSize are stored as-is; reads tell the two apart by the zstd
// frame magic, which no stored object or ref begins with.
type CompressedBackend struct {
	inner Backend
	opts  CompressionOptions
	enc   *zstd.Encoder
	dec   *zstd.Decoder
}

func NewCompressedBackend(inner Backend, opts CompressionOptions) (*CompressedBackend, error) {
	enc, err := zstd.NewWriter(nil,
		zstd.WithEncoderLevel(zstd.EncoderLevelFromZstd(opts.Level)),
	)
	if err != nil {
		return nil, fmt.Errorf("creating encoder: %w", err)
	}

	dec, err := zstd.NewReader(nil)
	if err != nil {
		enc.Close()
		return nil, fmt.Errorf("creating decoder: %w", err)
	}

	return &CompressedBackend{
		inner: inner,
		opts:  opts,
		enc:   enc,
		dec:   dec,
	}, nil
}

func (c *CompressedBackend) ReadBytes(path string) ([]byte, error) {
	data, err := c.inner.ReadBytes(path)
	if err != nil {
		return nil, err
	}
	if !bytes.HasPrefix(data, zstdMagic) {
		return data, nil
	}
	out, err := c.dec.DecodeAll(data, nil)
	if err != nil {
		return nil, fmt.Errorf("decompressing %s: %w", path, err)
	}
	return out, nil
}

func (c *CompressedBackend) WriteBytes(path string, data []byte) error {
	if len(data) < c.opts.MinSize {
		return c.inner.WriteBytes(path, data)
	}
	return c.inner.WriteBytes(path, c.enc.EncodeAll(data, nil))
}

// List forwards to the wrapped backend when it can enumerate.
func (c *CompressedBackend) List(prefix string) ([]string, error) {
	l, ok := c.inner.(Lister)
	if !ok {
		return nil, fmt.Errorf("backend %T cannot list", c.inner)
	}
	return l.List(prefix)
}

// Close releases the encoder and decoder.
func (c *CompressedBackend) Close() error {
	c.dec.Close()
	return c.enc.Close()
}
