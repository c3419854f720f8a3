package namespace

import (
	"errors"
	"os"
	"strings"

	"github.com/hupe1980/mapres/internal/mmap"
)

// Rights is the set of access rights requested when opening a file.
type Rights uint8

const (
	// RightReadable requests read access.
	RightReadable Rights = 1 << iota
	// RightExecutable requests that the file be mappable with execute permission.
	RightExecutable
)

func (r Rights) String() string {
	var b strings.Builder
	if r&RightReadable != 0 {
		b.WriteByte('r')
	} else {
		b.WriteByte('-')
	}
	if r&RightExecutable != 0 {
		b.WriteByte('x')
	} else {
		b.WriteByte('-')
	}
	return b.String()
}

var (
	// ErrNotReadable is returned when RightReadable is missing from a request.
	ErrNotReadable = errors.New("namespace: read right is required")
	// ErrNotExecutable is returned when a file cannot be mapped executable.
	ErrNotExecutable = errors.New("namespace: file is not executable")
	// ErrClosed is returned when using a closed Dir.
	ErrClosed = errors.New("namespace: directory is closed")
)

// Namespace is a directory tree whose root can be opened.
type Namespace interface {
	// OpenRoot opens the namespace root. The caller must Close it.
	OpenRoot() (Dir, error)
}

// Dir is an open directory.
type Dir interface {
	// Open opens name relative to the directory.
	Open(name string, rights Rights) (*os.File, error)
	// Close releases the directory.
	Close() error
}

// checkRights validates a freshly opened file against the requested
// rights and closes it on failure.
func checkRights(f *os.File, name string, rights Rights) (*os.File, error) {
	if rights&RightExecutable == 0 {
		return f, nil
	}
	if err := mmap.CheckExecutable(int(f.Fd())); err != nil {
		f.Close()
		return nil, &os.PathError{Op: "open", Path: name, Err: errors.Join(ErrNotExecutable, err)}
	}
	return f, nil
}
