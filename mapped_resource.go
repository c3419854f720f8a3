package mapres

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"
	"unsafe"

	"github.com/hupe1980/mapres/internal/mmap"
	"github.com/hupe1980/mapres/namespace"
	"github.com/hupe1980/mapres/vmo"
)

// AccessPattern is a kernel paging hint for a mapped resource.
type AccessPattern = mmap.AccessPattern

const (
	AccessDefault    = mmap.AccessDefault
	AccessSequential = mmap.AccessSequential
	AccessRandom     = mmap.AccessRandom
	AccessWillNeed   = mmap.AccessWillNeed
	AccessDontNeed   = mmap.AccessDontNeed
)

// MappedResource is a file mapped read-only, or read+execute, into the
// address space.
//
// The zero value is not usable; create instances with NewMappedResource.
type MappedResource struct {
	opts    options
	path    string
	mapping *mmap.Mapping
}

// NewMappedResource returns an empty resource.
func NewMappedResource(optFns ...Option) *MappedResource {
	return &MappedResource{opts: newOptions(optFns)}
}

// LoadFromNamespace maps path, resolved relative to the root of ns. A nil
// ns resolves path against the working directory. With executable set the
// mapping also allows instruction fetch.
//
// LoadFromNamespace panics if path is absolute. On error the resource stays
// empty.
func (r *MappedResource) LoadFromNamespace(ns namespace.Namespace, path string, executable bool) error {
	mustBeRelative(path)

	start := time.Now()
	if r.mapping != nil {
		return r.fail(start, path, executable, pathError("load", path, ErrAlreadyLoaded, nil))
	}

	v, err := openVMO(ns, path, executable)
	if err != nil {
		return r.fail(start, path, executable, err)
	}
	return r.loadFromVMO(start, path, v, executable)
}

// LoadFromVMO maps the whole of v. It consumes v: the descriptor is closed
// before returning whether or not mapping succeeded. path only labels logs
// and metrics; it defaults to the name of v's backing file.
//
// executable requires a v that went through ReplaceAsExecutable; the
// mapping never carries more rights than v holds. An empty v succeeds
// without creating a mapping.
func (r *MappedResource) LoadFromVMO(path string, v *vmo.VMO, executable bool) error {
	if path == "" {
		path = v.Name()
	}
	return r.loadFromVMO(time.Now(), path, v, executable)
}

func (r *MappedResource) loadFromVMO(start time.Time, path string, v *vmo.VMO, executable bool) error {
	defer v.Close()

	if r.mapping != nil {
		return r.fail(start, path, executable, pathError("load", path, ErrAlreadyLoaded, nil))
	}

	size := v.Size()
	if size == 0 {
		r.path = path
		r.opts.logger.LogMap(context.Background(), path, 0, executable, nil)
		r.opts.metrics.RecordMap(0, executable, time.Since(start), nil)
		return nil
	}
	if size > math.MaxInt {
		return r.fail(start, path, executable, pathError("load", path, ErrMap, fmt.Errorf("size %d overflows int", size)))
	}

	if executable && !v.Executable() {
		return r.fail(start, path, executable, pathError("load", path, ErrExecutable, vmo.ErrNotExecutable))
	}

	if err := r.opts.rc.AcquireMemory(size); err != nil {
		return r.fail(start, path, executable, pathError("load", path, ErrMap, err))
	}

	prot := mmap.ProtRead
	if executable {
		prot = v.Protection()
	}
	m, err := mmap.Map(v.Fd(), int(size), prot)
	if err != nil {
		r.opts.rc.ReleaseMemory(size)
		return r.fail(start, path, executable, pathError("load", path, ErrMap, err))
	}

	r.mapping = m
	r.path = path
	r.opts.logger.LogMap(context.Background(), path, m.Size(), executable, nil)
	r.opts.metrics.RecordMap(m.Size(), executable, time.Since(start), nil)
	return nil
}

func (r *MappedResource) fail(start time.Time, path string, executable bool, err error) error {
	r.opts.logger.LogMap(context.Background(), path, 0, executable, err)
	r.opts.metrics.RecordMap(0, executable, time.Since(start), err)
	return err
}

// openVMO resolves path to a memory object, upgraded to executable when
// requested.
func openVMO(ns namespace.Namespace, path string, executable bool) (*vmo.VMO, error) {
	var (
		v   *vmo.VMO
		err error
	)
	if ns == nil {
		v, err = vmo.FromFilename(path)
		if err != nil {
			return nil, pathError("load", path, ErrResolve, err)
		}
	} else {
		v, err = resolveAt(ns, path)
		if err != nil {
			return nil, err
		}
	}

	if executable {
		if err := v.ReplaceAsExecutable(); err != nil {
			v.Close()
			return nil, pathError("load", path, ErrExecutable, err)
		}
	}
	return v, nil
}

func resolveAt(ns namespace.Namespace, path string) (*vmo.VMO, error) {
	dir, err := ns.OpenRoot()
	if err != nil {
		return nil, pathError("load", path, ErrOpenNamespace, err)
	}
	defer dir.Close()

	v, err := vmo.FromFilenameAt(dir, path)
	if err != nil {
		return nil, pathError("load", path, ErrResolve, err)
	}
	return v, nil
}

// mustBeRelative panics on absolute paths: openat ignores the directory
// descriptor for them, so the lookup would escape the namespace.
func mustBeRelative(path string) {
	if strings.HasPrefix(path, "/") {
		panic(fmt.Sprintf("mapres: resource path %q must be relative", path))
	}
}

// Address returns the start of the mapping, or nil for an empty resource.
func (r *MappedResource) Address() unsafe.Pointer {
	if r.mapping == nil {
		return nil
	}
	return r.mapping.Address()
}

// Size returns the mapped length in bytes.
func (r *MappedResource) Size() int {
	if r.mapping == nil {
		return 0
	}
	return r.mapping.Size()
}

// Bytes returns the mapped memory. The slice must not be used after Close.
func (r *MappedResource) Bytes() []byte {
	if r.mapping == nil {
		return nil
	}
	return r.mapping.Bytes()
}

// Loaded reports whether the resource holds a mapping.
func (r *MappedResource) Loaded() bool {
	return r.mapping != nil
}

// Path returns the path of the last successful load.
func (r *MappedResource) Path() string {
	return r.path
}

// Executable reports whether the mapping allows instruction fetch.
func (r *MappedResource) Executable() bool {
	return r.mapping != nil && r.mapping.Protection().Executable()
}

// Advise hints the kernel about the expected access pattern.
func (r *MappedResource) Advise(pattern AccessPattern) error {
	if r.mapping == nil {
		return nil
	}
	return r.mapping.Advise(pattern)
}

// Close unmaps the resource and resets it to empty. Closing an empty
// resource is a no-op.
func (r *MappedResource) Close() error {
	m := r.mapping
	if m == nil {
		r.path = ""
		return nil
	}
	path, size := r.path, m.Size()
	r.mapping = nil
	r.path = ""

	err := m.Close()
	r.opts.rc.ReleaseMemory(int64(size))
	r.opts.logger.LogUnmap(context.Background(), path, size, err)
	r.opts.metrics.RecordUnmap(size)
	return err
}
