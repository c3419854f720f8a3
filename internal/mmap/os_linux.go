//go:build linux

package mmap

import (
	"golang.org/x/sys/unix"
)

// CheckExecutable reports whether the object behind fd may be mapped with
// PROT_EXEC. Files on a noexec mount yield ErrNoExec.
func CheckExecutable(fd int) error {
	var st unix.Statfs_t
	if err := unix.Fstatfs(fd, &st); err != nil {
		return err
	}
	if st.Flags&unix.ST_NOEXEC != 0 {
		return ErrNoExec
	}
	return nil
}
