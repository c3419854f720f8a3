package mapres

import (
	"context"
	"os"
	"time"
	"unsafe"

	"github.com/hupe1980/mapres/elfloader"
	"github.com/hupe1980/mapres/namespace"
)

// ElfSnapshot is an AOT snapshot loaded from an ELF image. It owns the
// loaded image; the region pointers are valid until Close.
type ElfSnapshot struct {
	opts  options
	path  string
	image *elfloader.Image
}

// NewElfSnapshot returns an empty snapshot.
func NewElfSnapshot(optFns ...Option) *ElfSnapshot {
	return &ElfSnapshot{opts: newOptions(optFns)}
}

// Load loads path relative to the root of ns, or to the working directory
// if ns is nil. The root directory is closed before Load returns.
func (s *ElfSnapshot) Load(ns namespace.Namespace, path string) error {
	var dir namespace.Dir
	if ns == nil {
		dir = namespace.CurrentDir()
	} else {
		d, err := ns.OpenRoot()
		if err != nil {
			return s.fail(path, 0, pathError("load", path, ErrOpenNamespace, err))
		}
		dir = d
	}
	defer dir.Close()

	return s.LoadAt(dir, path)
}

// LoadAt loads path relative to dir. The file is opened readable and
// executable.
func (s *ElfSnapshot) LoadAt(dir namespace.Dir, path string) error {
	if s.image != nil {
		return s.fail(path, 0, pathError("load", path, ErrAlreadyLoaded, nil))
	}

	f, err := dir.Open(path, namespace.RightReadable|namespace.RightExecutable)
	if err != nil {
		return s.fail(path, 0, pathError("load", path, ErrOpenFile, err))
	}
	defer f.Close()

	return s.load(path, f)
}

// LoadFile loads the image at the start of f. f is not closed.
func (s *ElfSnapshot) LoadFile(f *os.File) error {
	return s.load(f.Name(), f)
}

func (s *ElfSnapshot) load(path string, f *os.File) error {
	if s.image != nil {
		return s.fail(path, 0, pathError("load", path, ErrAlreadyLoaded, nil))
	}

	start := time.Now()
	img, err := s.opts.loader.Load(f, 0)
	if err != nil {
		return s.fail(path, time.Since(start), pathError("load", path, ErrLoadELF, err))
	}

	s.image = img
	s.path = path
	s.opts.logger.LogSnapshotLoad(context.Background(), path, img.Size(), time.Since(start), nil)
	s.opts.metrics.RecordSnapshotLoad(img.Size(), time.Since(start), nil)
	return nil
}

func (s *ElfSnapshot) fail(path string, d time.Duration, err error) error {
	s.opts.logger.LogSnapshotLoad(context.Background(), path, 0, d, err)
	s.opts.metrics.RecordSnapshotLoad(0, d, err)
	return err
}

// Loaded reports whether an image is loaded.
func (s *ElfSnapshot) Loaded() bool {
	return s.image != nil
}

// Path returns the path the image was loaded from.
func (s *ElfSnapshot) Path() string {
	return s.path
}

// VMData returns the VM snapshot data region.
func (s *ElfSnapshot) VMData() unsafe.Pointer {
	return s.image.Region(elfloader.VMData).Addr
}

// VMInstructions returns the VM snapshot instructions region.
func (s *ElfSnapshot) VMInstructions() unsafe.Pointer {
	return s.image.Region(elfloader.VMInstructions).Addr
}

// IsolateData returns the isolate snapshot data region.
func (s *ElfSnapshot) IsolateData() unsafe.Pointer {
	return s.image.Region(elfloader.IsolateData).Addr
}

// IsolateInstructions returns the isolate snapshot instructions region.
func (s *ElfSnapshot) IsolateInstructions() unsafe.Pointer {
	return s.image.Region(elfloader.IsolateInstructions).Addr
}

// Region returns the bytes of region k, or nil when nothing is loaded.
func (s *ElfSnapshot) Region(k elfloader.Kind) []byte {
	return s.image.Region(k).Bytes()
}

// Close unloads the image. All region pointers become invalid.
func (s *ElfSnapshot) Close() error {
	img := s.image
	s.image = nil
	if img == nil {
		return nil
	}

	size := img.Size()
	err := img.Unload()
	s.opts.logger.LogSnapshotUnload(context.Background(), s.path, err)
	s.opts.metrics.RecordSnapshotUnload(size)
	s.path = ""
	return err
}
