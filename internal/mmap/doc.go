// Package mmap is the virtual memory service used by mapres.
//
// # Overview
//
// Map places the whole of an open memory object into the address space at an
// address chosen by the kernel, with read or read+execute protection. The
// returned Mapping owns the region and unmaps exactly the mapped length on
// Close.
//
// # Usage
//
//	m, err := mmap.Map(int(f.Fd()), size, mmap.ProtRead|mmap.ProtExec)
//	if err != nil { ... }
//	defer m.Close()
//
//	data := m.Bytes()
//	m.Advise(mmap.AccessWillNeed)
//
// # Platform Support
//
//   - Unix (Linux, macOS, BSD): mmap(2) with madvise(2) for access hints
//   - Linux: CheckExecutable consults fstatfs(2) for noexec mounts
//   - Other unix systems: CheckExecutable always succeeds
//
// # Thread Safety
//
// Close is idempotent and protected by an atomic flag. Callers must ensure
// no goroutine touches Bytes() after Close() returns.
package mmap
