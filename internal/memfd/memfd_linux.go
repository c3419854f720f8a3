//go:build linux

package memfd

import (
	"errors"
	"os"

	"golang.org/x/sys/unix"
)

// mfdExec is MFD_EXEC. Kernels before 6.3 reject it with EINVAL.
const mfdExec = 0x10

// Create returns a new empty, writable, exec-capable memory file.
func Create(name string) (*os.File, error) {
	flags := unix.MFD_CLOEXEC | unix.MFD_ALLOW_SEALING
	fd, err := unix.MemfdCreate(name, flags|mfdExec)
	if errors.Is(err, unix.EINVAL) {
		fd, err = unix.MemfdCreate(name, flags)
	}
	if err != nil {
		return nil, &os.PathError{Op: "memfd_create", Path: name, Err: err}
	}
	return os.NewFile(uintptr(fd), "memfd:"+name), nil
}

// Seal freezes the size and contents of f. Further writes fail with EPERM.
func Seal(f *os.File) error {
	seals := unix.F_SEAL_SHRINK | unix.F_SEAL_GROW | unix.F_SEAL_WRITE | unix.F_SEAL_SEAL
	if _, err := unix.FcntlInt(f.Fd(), unix.F_ADD_SEALS, seals); err != nil {
		return &os.PathError{Op: "seal", Path: f.Name(), Err: err}
	}
	return nil
}
