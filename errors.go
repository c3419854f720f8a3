package mapres

import (
	"errors"
	"fmt"
)

var (
	// ErrAlreadyLoaded is returned when loading into a populated instance.
	ErrAlreadyLoaded = errors.New("already loaded")
	// ErrOpenNamespace is returned when the namespace root cannot be opened.
	ErrOpenNamespace = errors.New("cannot open namespace directory")
	// ErrResolve is returned when a resource path cannot be resolved to a
	// memory object.
	ErrResolve = errors.New("cannot resolve resource")
	// ErrExecutable is returned when a memory object cannot be made executable.
	ErrExecutable = errors.New("cannot make resource executable")
	// ErrMap is returned when mapping fails.
	ErrMap = errors.New("cannot map resource")
	// ErrOpenFile is returned when a snapshot file cannot be opened.
	ErrOpenFile = errors.New("cannot open snapshot file")
	// ErrLoadELF is returned when the ELF loader rejects an image.
	ErrLoadELF = errors.New("cannot load ELF snapshot")
)

// PathError records a failed load and the resource it concerned.
//
// Err wraps one of the sentinel errors above together with the underlying
// cause, so both errors.Is(err, ErrMap) and errors.Is(err, fs.ErrNotExist)
// style checks work.
type PathError struct {
	Op   string
	Path string
	Err  error
}

func (e *PathError) Error() string {
	return "mapres: " + e.Op + " " + e.Path + ": " + e.Err.Error()
}

func (e *PathError) Unwrap() error { return e.Err }

func pathError(op, path string, kind, cause error) *PathError {
	err := kind
	if cause != nil {
		err = fmt.Errorf("%w: %w", kind, cause)
	}
	return &PathError{Op: op, Path: path, Err: err}
}
