//go:build unix

package mmap

import (
	"golang.org/x/sys/unix"
)

func osMap(fd int, size int, prot Protection) ([]byte, func([]byte) error, error) {
	p := unix.PROT_READ
	if prot.Executable() {
		p |= unix.PROT_EXEC
	}

	// Shared so the mapping observes the object's pages rather than a
	// private copy-on-write view.
	data, err := unix.Mmap(fd, 0, size, p, unix.MAP_SHARED)
	if err != nil {
		return nil, nil, err
	}

	return data, unix.Munmap, nil
}

func osAdvise(data []byte, pattern AccessPattern) error {
	if len(data) == 0 {
		return nil
	}

	var advice int
	switch pattern {
	case AccessSequential:
		advice = unix.MADV_SEQUENTIAL
	case AccessRandom:
		advice = unix.MADV_RANDOM
	case AccessWillNeed:
		advice = unix.MADV_WILLNEED
	case AccessDontNeed:
		advice = unix.MADV_DONTNEED
	default:
		advice = unix.MADV_NORMAL
	}

	err := unix.Madvise(data, advice)
	if err == unix.EINVAL {
		// Advisory only.
		return nil
	}
	return err
}
