package elfloader

import (
	"debug/elf"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"runtime"
	"strconv"
	"unsafe"

	"github.com/hupe1980/mapres/resource"
)

var (
	// ErrInvalidImage is returned for files that are not loadable snapshot images.
	ErrInvalidImage = errors.New("elfloader: invalid image")
	// ErrMissingSymbol is returned when a region symbol is absent.
	ErrMissingSymbol = errors.New("elfloader: missing symbol")
	// ErrUnsupported is returned on platforms without a segment mapper.
	ErrUnsupported = errors.New("elfloader: unsupported platform")
)

// Loader loads a snapshot image from an open file.
type Loader interface {
	// Load maps the image that starts offset bytes into f. f may be closed
	// once Load returns.
	Load(f *os.File, offset int64) (*Image, error)
}

// Kind identifies one of the four snapshot regions.
type Kind int

const (
	VMData Kind = iota
	VMInstructions
	IsolateData
	IsolateInstructions

	numKinds
)

var kindSymbols = [numKinds]string{
	VMData:              "_kDartVmSnapshotData",
	VMInstructions:      "_kDartVmSnapshotInstructions",
	IsolateData:         "_kDartIsolateSnapshotData",
	IsolateInstructions: "_kDartIsolateSnapshotInstructions",
}

var kindNames = [numKinds]string{
	VMData:              "vm_data",
	VMInstructions:      "vm_instructions",
	IsolateData:         "isolate_data",
	IsolateInstructions: "isolate_instructions",
}

// Symbol returns the exported symbol naming the region.
func (k Kind) Symbol() string {
	if k < 0 || k >= numKinds {
		return ""
	}
	return kindSymbols[k]
}

func (k Kind) String() string {
	if k < 0 || k >= numKinds {
		return "Kind(" + strconv.Itoa(int(k)) + ")"
	}
	return kindNames[k]
}

// Kinds lists all region kinds in load order.
func Kinds() []Kind {
	return []Kind{VMData, VMInstructions, IsolateData, IsolateInstructions}
}

// Region is a span of a loaded image.
type Region struct {
	Addr unsafe.Pointer
	Size uintptr
}

// Bytes returns the region as a slice. It must not be used after the image
// is unloaded.
func (r Region) Bytes() []byte {
	if r.Addr == nil {
		return nil
	}
	return unsafe.Slice((*byte)(r.Addr), r.Size)
}

// Image is a loaded snapshot.
type Image struct {
	regions [numKinds]Region
	mem     []byte
	unmap   func([]byte) error
	release func()
}

// Region returns the region of kind k, or the zero Region once unloaded.
func (img *Image) Region(k Kind) Region {
	if img == nil || img.mem == nil || k < 0 || k >= numKinds {
		return Region{}
	}
	return img.regions[k]
}

// Base returns the start of the image span.
func (img *Image) Base() unsafe.Pointer {
	if img == nil || len(img.mem) == 0 {
		return nil
	}
	return unsafe.Pointer(&img.mem[0])
}

// Size returns the length of the image span.
func (img *Image) Size() uintptr {
	if img == nil {
		return 0
	}
	return uintptr(len(img.mem))
}

// Unload unmaps the image. Calling it again is a no-op.
func (img *Image) Unload() error {
	if img == nil || img.mem == nil {
		return nil
	}
	mem := img.mem
	img.mem = nil
	img.regions = [numKinds]Region{}

	var err error
	if img.unmap != nil {
		err = img.unmap(mem)
	}
	if img.release != nil {
		img.release()
		img.release = nil
	}
	return err
}

// Option configures an ELFLoader.
type Option func(*ELFLoader)

// WithController charges each loaded span against the controller's memory
// limit.
func WithController(rc *resource.Controller) Option {
	return func(l *ELFLoader) {
		l.rc = rc
	}
}

// ELFLoader is the default Loader.
type ELFLoader struct {
	rc *resource.Controller
}

// New returns an ELFLoader.
func New(optFns ...Option) *ELFLoader {
	l := &ELFLoader{}
	for _, fn := range optFns {
		fn(l)
	}
	return l
}

// Load implements Loader.
func (l *ELFLoader) Load(f *os.File, offset int64) (*Image, error) {
	lay, err := parse(f, offset)
	if err != nil {
		return nil, err
	}

	span := int64(lay.hi - lay.lo)
	if err := l.rc.AcquireMemory(span); err != nil {
		return nil, err
	}

	img, err := mapImage(f, offset, lay)
	if err != nil {
		l.rc.ReleaseMemory(span)
		return nil, err
	}

	rc := l.rc
	img.release = func() { rc.ReleaseMemory(span) }
	return img, nil
}

type segment struct {
	vaddr  uint64
	off    uint64
	filesz uint64
	memsz  uint64
	flags  elf.ProgFlag
}

type layout struct {
	// lo and hi are page aligned.
	lo, hi   uint64
	page     uint64
	segments []segment
	symbols  [numKinds]elf.Symbol
}

// readable reports whether [addr, addr+size) lies within a single PF_R
// segment.
func (l *layout) readable(addr, size uint64) bool {
	for _, seg := range l.segments {
		if seg.flags&elf.PF_R == 0 {
			continue
		}
		if addr >= seg.vaddr && addr-seg.vaddr <= seg.memsz && size <= seg.memsz-(addr-seg.vaddr) {
			return true
		}
	}
	return false
}

func parse(f *os.File, offset int64) (*layout, error) {
	fi, err := f.Stat()
	if err != nil {
		return nil, err
	}
	page := uint64(os.Getpagesize())
	if offset < 0 || offset > fi.Size() {
		return nil, fmt.Errorf("%w: offset %d outside file of %d bytes", ErrInvalidImage, offset, fi.Size())
	}
	if uint64(offset)%page != 0 {
		return nil, fmt.Errorf("%w: offset %d is not page aligned", ErrInvalidImage, offset)
	}
	avail := uint64(fi.Size() - offset)

	ef, err := elf.NewFile(io.NewSectionReader(f, offset, int64(avail)))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidImage, err)
	}
	defer ef.Close()

	if err := checkHeader(&ef.FileHeader); err != nil {
		return nil, err
	}

	lay := &layout{page: page, lo: ^uint64(0)}
	for _, p := range ef.Progs {
		if p.Type != elf.PT_LOAD {
			continue
		}
		if p.Memsz == 0 {
			continue
		}
		if p.Filesz > p.Memsz {
			return nil, fmt.Errorf("%w: segment at %#x has filesz > memsz", ErrInvalidImage, p.Vaddr)
		}
		if p.Off%page != p.Vaddr%page {
			return nil, fmt.Errorf("%w: segment at %#x is misaligned", ErrInvalidImage, p.Vaddr)
		}
		if p.Off > avail || p.Filesz > avail-p.Off {
			return nil, fmt.Errorf("%w: segment at %#x extends past end of file", ErrInvalidImage, p.Vaddr)
		}
		if p.Vaddr+p.Memsz < p.Vaddr {
			return nil, fmt.Errorf("%w: segment at %#x overflows", ErrInvalidImage, p.Vaddr)
		}
		lay.lo = min(lay.lo, alignDown(p.Vaddr, page))
		lay.hi = max(lay.hi, alignUp(p.Vaddr+p.Memsz, page))
		lay.segments = append(lay.segments, segment{
			vaddr:  p.Vaddr,
			off:    p.Off,
			filesz: p.Filesz,
			memsz:  p.Memsz,
			flags:  p.Flags,
		})
	}
	if len(lay.segments) == 0 {
		return nil, fmt.Errorf("%w: no loadable segments", ErrInvalidImage)
	}

	lay.symbols, err = lookupSymbols(ef)
	if err != nil {
		return nil, err
	}
	for k, s := range lay.symbols {
		if !lay.readable(s.Value, s.Size) {
			return nil, fmt.Errorf("%w: %s does not lie in a readable segment", ErrInvalidImage, Kind(k).Symbol())
		}
	}
	return lay, nil
}

func checkHeader(h *elf.FileHeader) error {
	class := elf.ELFCLASS32
	if strconv.IntSize == 64 {
		class = elf.ELFCLASS64
	}
	if h.Class != class {
		return fmt.Errorf("%w: class %v, want %v", ErrInvalidImage, h.Class, class)
	}
	if h.ByteOrder != nativeOrder() {
		return fmt.Errorf("%w: data encoding %v does not match the host", ErrInvalidImage, h.Data)
	}
	if h.Type != elf.ET_DYN {
		return fmt.Errorf("%w: type %v, want %v", ErrInvalidImage, h.Type, elf.ET_DYN)
	}
	if m := nativeMachine(); m != elf.EM_NONE && h.Machine != m {
		return fmt.Errorf("%w: machine %v, want %v", ErrInvalidImage, h.Machine, m)
	}
	return nil
}

func lookupSymbols(ef *elf.File) ([numKinds]elf.Symbol, error) {
	var (
		out   [numKinds]elf.Symbol
		found [numKinds]bool
	)
	for _, table := range []func() ([]elf.Symbol, error){ef.DynamicSymbols, ef.Symbols} {
		syms, err := table()
		if err != nil {
			continue
		}
		for _, s := range syms {
			for k, name := range kindSymbols {
				if !found[k] && s.Name == name && s.Section != elf.SHN_UNDEF {
					out[k] = s
					found[k] = true
				}
			}
		}
	}
	for k, ok := range found {
		if !ok {
			return out, fmt.Errorf("%w: %s", ErrMissingSymbol, kindSymbols[k])
		}
	}
	return out, nil
}

func nativeMachine() elf.Machine {
	switch runtime.GOARCH {
	case "amd64":
		return elf.EM_X86_64
	case "386":
		return elf.EM_386
	case "arm64":
		return elf.EM_AARCH64
	case "arm":
		return elf.EM_ARM
	case "riscv64":
		return elf.EM_RISCV
	case "ppc64", "ppc64le":
		return elf.EM_PPC64
	case "s390x":
		return elf.EM_S390
	case "loong64":
		return elf.EM_LOONGARCH
	}
	return elf.EM_NONE
}

func nativeOrder() binary.ByteOrder {
	if binary.NativeEndian.Uint16([]byte{1, 0}) == 1 {
		return binary.LittleEndian
	}
	return binary.BigEndian
}

func alignDown(v, a uint64) uint64 {
	return v &^ (a - 1)
}

func alignUp(v, a uint64) uint64 {
	return (v + a - 1) &^ (a - 1)
}
