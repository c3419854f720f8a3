package vmo

import (
	"errors"
	"fmt"
	"os"

	"github.com/hupe1980/mapres/internal/mmap"
	"github.com/hupe1980/mapres/namespace"
)

var (
	// ErrNotExecutable is returned by ReplaceAsExecutable when the backing
	// file cannot be mapped with execute permission.
	ErrNotExecutable = errors.New("vmo: object cannot be made executable")
	// ErrClosed is returned when using a closed VMO.
	ErrClosed = errors.New("vmo: object is closed")
	// ErrNotRegular is returned for directories and other non-regular files.
	ErrNotRegular = errors.New("vmo: not a regular file")
)

// VMO is a memory object backed by an open file.
type VMO struct {
	file       *os.File
	size       int64
	executable bool
}

// FromFilename opens path relative to the process working directory.
func FromFilename(path string) (*VMO, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	return FromFile(f)
}

// FromFilenameAt opens path relative to dir.
func FromFilenameAt(dir namespace.Dir, path string) (*VMO, error) {
	f, err := dir.Open(path, namespace.RightReadable)
	if err != nil {
		return nil, err
	}
	return FromFile(f)
}

// FromFile takes ownership of f. On error f is closed.
func FromFile(f *os.File) (*VMO, error) {
	fi, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}
	if !fi.Mode().IsRegular() {
		f.Close()
		return nil, &os.PathError{Op: "vmo", Path: f.Name(), Err: ErrNotRegular}
	}
	return &VMO{file: f, size: fi.Size()}, nil
}

// ReplaceAsExecutable marks the object as mappable with execute permission.
// It fails if the backing filesystem forbids it.
func (v *VMO) ReplaceAsExecutable() error {
	if v.file == nil {
		return ErrClosed
	}
	if v.executable {
		return nil
	}
	if err := mmap.CheckExecutable(int(v.file.Fd())); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrNotExecutable, v.file.Name(), err)
	}
	v.executable = true
	return nil
}

// Size returns the size of the object in bytes.
func (v *VMO) Size() int64 {
	return v.size
}

// Fd returns the underlying descriptor, or -1 once closed.
func (v *VMO) Fd() int {
	if v.file == nil {
		return -1
	}
	return int(v.file.Fd())
}

// Name returns the name of the backing file.
func (v *VMO) Name() string {
	if v.file == nil {
		return ""
	}
	return v.file.Name()
}

// Executable reports whether ReplaceAsExecutable succeeded.
func (v *VMO) Executable() bool {
	return v.executable
}

// Protection returns the mapping protection matching the object's rights.
func (v *VMO) Protection() mmap.Protection {
	if v.executable {
		return mmap.ProtRead | mmap.ProtExec
	}
	return mmap.ProtRead
}

// Close releases the descriptor. It is safe to call more than once.
func (v *VMO) Close() error {
	if v.file == nil {
		return nil
	}
	err := v.file.Close()
	v.file = nil
	return err
}
