package namespace

import (
	"os"
	"sync/atomic"
)

// Local is a namespace rooted at a directory on disk.
type Local struct {
	root string
}

// NewLocal returns a namespace rooted at dir.
func NewLocal(dir string) *Local {
	return &Local{root: dir}
}

// Root returns the directory the namespace is rooted at.
func (l *Local) Root() string {
	return l.root
}

// OpenRoot opens the root directory.
func (l *Local) OpenRoot() (Dir, error) {
	r, err := os.OpenRoot(l.root)
	if err != nil {
		return nil, err
	}
	return &rootDir{root: r}, nil
}

type rootDir struct {
	root   *os.Root
	closed atomic.Bool
}

func (d *rootDir) Open(name string, rights Rights) (*os.File, error) {
	if d.closed.Load() {
		return nil, ErrClosed
	}
	if rights&RightReadable == 0 {
		return nil, &os.PathError{Op: "open", Path: name, Err: ErrNotReadable}
	}

	f, err := d.root.Open(name)
	if err != nil {
		return nil, err
	}
	return checkRights(f, name, rights)
}

func (d *rootDir) Close() error {
	if d.closed.Swap(true) {
		return ErrClosed
	}
	return d.root.Close()
}

// CurrentDir returns the process working directory as a Dir. Closing it is
// a no-op.
func CurrentDir() Dir {
	return cwd{}
}

type cwd struct{}

func (cwd) Open(name string, rights Rights) (*os.File, error) {
	if rights&RightReadable == 0 {
		return nil, &os.PathError{Op: "open", Path: name, Err: ErrNotReadable}
	}

	f, err := os.Open(name)
	if err != nil {
		return nil, err
	}
	return checkRights(f, name, rights)
}

func (cwd) Close() error {
	return nil
}
