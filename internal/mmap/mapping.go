package mmap

import (
	"sync/atomic"
	"unsafe"
)

// Mapping is a region of the address space backed by a memory object.
// It owns the region and is responsible for unmapping it.
type Mapping struct {
	data   []byte
	size   int
	prot   Protection
	closed atomic.Bool
	// unmap is the platform-specific function to unmap the memory.
	unmap func([]byte) error
}

// Map maps size bytes of the object behind fd, starting at offset 0, at an
// address chosen by the kernel.
func Map(fd int, size int, prot Protection) (*Mapping, error) {
	if size <= 0 {
		return nil, ErrInvalidSize
	}

	data, unmapFunc, err := osMap(fd, size, prot)
	if err != nil {
		return nil, err
	}

	return &Mapping{
		data:  data,
		size:  size,
		prot:  prot,
		unmap: unmapFunc,
	}, nil
}

// Close unmaps the memory. It is idempotent.
func (m *Mapping) Close() error {
	if m.closed.Swap(true) {
		return nil
	}
	data := m.data
	m.data = nil
	if m.unmap != nil && data != nil {
		return m.unmap(data)
	}
	return nil
}

// Bytes returns the mapped memory.
// Warning: The slice is valid only until Close() is called.
// Accessing the slice after Close() results in undefined behavior (likely a crash).
func (m *Mapping) Bytes() []byte {
	if m.closed.Load() {
		return nil
	}
	return m.data
}

// Address returns the start of the mapping, or nil once closed.
func (m *Mapping) Address() unsafe.Pointer {
	if m.closed.Load() || len(m.data) == 0 {
		return nil
	}
	return unsafe.Pointer(&m.data[0])
}

// Size returns the size of the mapping in bytes.
func (m *Mapping) Size() int {
	return m.size
}

// Protection returns the protection the mapping was created with.
func (m *Mapping) Protection() Protection {
	return m.prot
}

// Advise provides hints to the kernel about how the memory will be accessed.
func (m *Mapping) Advise(pattern AccessPattern) error {
	if m.closed.Load() {
		return ErrClosed
	}
	return osAdvise(m.data, pattern)
}
