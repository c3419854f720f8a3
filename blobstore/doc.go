// Package blobstore provides read-only blob sources for blob-backed namespaces.
//
// A BlobStore resolves a name to a Blob. The blob namespace streams a Blob
// into an anonymous memory file so it can be mapped like a local file.
// Implementations must be safe for concurrent use.
//
// # Built-in Implementations
//
//   - LocalStore: local directory
//   - MemoryStore: in-process map, for tests and embedded assets
//   - minio.Store: MinIO and S3-compatible object stores
//   - s3.Store: Amazon S3 with parallel ranged downloads
//
// # Custom Implementations
//
//	type BlobStore interface {
//	    Open(ctx, name) (Blob, error)
//	}
//
//	type Blob interface {
//	    io.Closer
//	    Size() int64
//	    ReadRange(ctx, off, length) (io.ReadCloser, error)
//	}
//
// Blobs that can fetch their content faster than a single sequential stream
// may additionally implement Downloader.
//
// # Compression
//
// NewDecompressor sniffs zstd and LZ4 frame headers and transparently
// decodes; anything else is passed through unchanged.
package blobstore
