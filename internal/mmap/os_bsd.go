//go:build unix && !linux

package mmap

// CheckExecutable is a no-op outside Linux; mmap reports EACCES itself.
func CheckExecutable(fd int) error {
	return nil
}
