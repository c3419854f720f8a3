// Package namespace resolves relative paths against a directory namespace.
//
// A Namespace hands out its root as a Dir; a Dir opens files relative to
// itself with the requested rights. Callers must Close every Dir they open.
//
// # Implementations
//
//   - Local: a directory on disk, confined with os.Root so lookups cannot
//     escape through ".." or symlinks
//   - CurrentDir: the process working directory (no confinement)
//   - Blob: a blobstore.BlobStore whose blobs are materialized into sealed
//     memory files on open
//
// # Rights
//
// RightReadable is always required. RightExecutable additionally checks that
// the opened file may be mapped with execute permission.
package namespace
