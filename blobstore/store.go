package blobstore

import (
	"context"
	"io"
	"os"
)

// ErrNotFound is returned when a blob does not exist.
//
// Implementations should return an error that satisfies `errors.Is(err, ErrNotFound)`.
// The default maps to `os.ErrNotExist`.
var ErrNotFound = os.ErrNotExist

// BlobStore resolves names to read-only blobs.
type BlobStore interface {
	// Open opens a blob for reading.
	Open(ctx context.Context, name string) (Blob, error)
}

// Blob is a read-only handle to a data blob.
type Blob interface {
	io.Closer
	// Size returns the size of the blob in bytes.
	Size() int64
	// ReadRange streams length bytes starting at off. Reading past the end
	// returns the available bytes.
	ReadRange(ctx context.Context, off, length int64) (io.ReadCloser, error)
}

// Downloader is an optional interface for blobs that can write their whole
// content to w, possibly with parallel ranged requests.
type Downloader interface {
	DownloadTo(ctx context.Context, w io.WriterAt) (int64, error)
}
