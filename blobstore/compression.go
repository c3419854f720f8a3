package blobstore

import (
	"bufio"
	"bytes"
	"errors"
	"io"
	"sync"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Compression identifies the framing detected by NewDecompressor.
type Compression uint8

const (
	// CompressionNone indicates the stream is passed through unchanged.
	CompressionNone Compression = iota
	// CompressionZSTD indicates a zstd frame.
	CompressionZSTD
	// CompressionLZ4 indicates an LZ4 frame.
	CompressionLZ4
)

func (c Compression) String() string {
	switch c {
	case CompressionZSTD:
		return "zstd"
	case CompressionLZ4:
		return "lz4"
	default:
		return "none"
	}
}

var (
	zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}
	lz4Magic  = []byte{0x04, 0x22, 0x4d, 0x18}
)

var zstdDecoderPool sync.Pool

func getZstdDecoder(r io.Reader) (*zstd.Decoder, error) {
	if v := zstdDecoderPool.Get(); v != nil {
		dec := v.(*zstd.Decoder)
		if err := dec.Reset(r); err != nil {
			dec.Close()
			return nil, err
		}
		return dec, nil
	}
	return zstd.NewReader(r, zstd.WithDecoderConcurrency(1))
}

// NewDecompressor inspects the first bytes of r and returns a reader that
// yields the decoded content.
func NewDecompressor(r io.Reader) (io.ReadCloser, Compression, error) {
	br := bufio.NewReader(r)
	head, err := br.Peek(4)
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, CompressionNone, err
	}

	switch {
	case bytes.Equal(head, zstdMagic):
		dec, err := getZstdDecoder(br)
		if err != nil {
			return nil, CompressionZSTD, err
		}
		return &zstdReadCloser{dec: dec}, CompressionZSTD, nil
	case bytes.Equal(head, lz4Magic):
		return io.NopCloser(lz4.NewReader(br)), CompressionLZ4, nil
	default:
		return io.NopCloser(br), CompressionNone, nil
	}
}

type zstdReadCloser struct {
	dec *zstd.Decoder
}

func (z *zstdReadCloser) Read(p []byte) (int, error) {
	if z.dec == nil {
		return 0, io.ErrClosedPipe
	}
	return z.dec.Read(p)
}

func (z *zstdReadCloser) Close() error {
	if z.dec != nil {
		// Drop the source reader before pooling.
		if err := z.dec.Reset(nil); err != nil {
			z.dec.Close()
		} else {
			zstdDecoderPool.Put(z.dec)
		}
		z.dec = nil
	}
	return nil
}
