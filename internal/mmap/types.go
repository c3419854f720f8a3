package mmap

import "errors"

// Protection selects the access rights of a mapping. Read access is always
// granted.
type Protection uint8

const (
	// ProtRead maps the object read-only.
	ProtRead Protection = 1 << iota
	// ProtExec additionally allows instruction fetch from the mapping.
	ProtExec
)

// Executable reports whether p includes ProtExec.
func (p Protection) Executable() bool { return p&ProtExec != 0 }

func (p Protection) String() string {
	if p.Executable() {
		return "r-x"
	}
	return "r--"
}

// AccessPattern provides hints to the kernel about how the data will be accessed.
type AccessPattern int

const (
	// AccessDefault is the default access pattern (no specific advice).
	AccessDefault AccessPattern = iota
	// AccessSequential expects data to be accessed sequentially.
	AccessSequential
	// AccessRandom expects data to be accessed randomly.
	AccessRandom
	// AccessWillNeed expects data to be accessed in the near future.
	AccessWillNeed
	// AccessDontNeed expects data to not be accessed in the near future.
	AccessDontNeed
)

var (
	// ErrClosed is returned when attempting to access a closed mapping.
	ErrClosed = errors.New("mmap: mapping is closed")
	// ErrInvalidSize is returned when the requested length is zero or negative.
	ErrInvalidSize = errors.New("mmap: invalid size")
	// ErrNoExec is returned when the backing filesystem forbids PROT_EXEC.
	ErrNoExec = errors.New("mmap: filesystem mounted noexec")
)
