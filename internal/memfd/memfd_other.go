//go:build unix && !linux

package memfd

import (
	"os"
)

// Create returns a new empty, writable temporary file that is already
// unlinked from the filesystem.
func Create(name string) (*os.File, error) {
	f, err := os.CreateTemp("", "memfd-*")
	if err != nil {
		return nil, err
	}
	if err := os.Remove(f.Name()); err != nil {
		f.Close()
		return nil, err
	}
	return f, nil
}

// Seal is a no-op without memfd support.
func Seal(*os.File) error {
	return nil
}
