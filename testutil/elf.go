package testutil

import (
	"bytes"
	"debug/elf"
	"encoding/binary"
	"os"
	"runtime"
)

// Region symbol names exported by AOT snapshot images.
const (
	SymVMData              = "_kDartVmSnapshotData"
	SymVMInstructions      = "_kDartVmSnapshotInstructions"
	SymIsolateData         = "_kDartIsolateSnapshotData"
	SymIsolateInstructions = "_kDartIsolateSnapshotInstructions"
)

// SnapshotImage is the payload of a generated snapshot ELF.
type SnapshotImage struct {
	VMData              []byte
	VMInstructions      []byte
	IsolateData         []byte
	IsolateInstructions []byte
	// OmitSymbol drops the named symbol from .dynsym.
	OmitSymbol string
}

// Layout reports where BuildSnapshotELF placed each region, as virtual
// addresses relative to the image base.
type Layout struct {
	VMData, VMInstructions, IsolateData, IsolateInstructions uint64
	TextOffset                                               uint64
}

// BuildSnapshotELF assembles a minimal ET_DYN image for the running
// architecture: a read-only PT_LOAD holding the data regions and a
// read+execute PT_LOAD holding the instruction regions, each page aligned,
// with the four region symbols in .dynsym.
func BuildSnapshotELF(img SnapshotImage) []byte {
	raw, _ := BuildSnapshotELFLayout(img)
	return raw
}

// BuildSnapshotELFLayout is BuildSnapshotELF that also returns the layout.
func BuildSnapshotELFLayout(img SnapshotImage) ([]byte, Layout) {
	const (
		ehdrSize = 64
		phdrSize = 56
		shdrSize = 64
		symSize  = 24
		phnum    = 2
	)
	page := uint64(os.Getpagesize())
	order, data := byteOrder()

	var lay Layout

	// .rodata
	off := align(ehdrSize+phnum*phdrSize, 16)
	rodataOff := off
	lay.VMData = off
	off = align(off+uint64(len(img.VMData)), 16)
	lay.IsolateData = off
	off += uint64(len(img.IsolateData))
	rodataEnd := off

	// .text
	textOff := align(rodataEnd, page)
	lay.TextOffset = textOff
	lay.VMInstructions = textOff
	off = align(textOff+uint64(len(img.VMInstructions)), 16)
	lay.IsolateInstructions = off
	off += uint64(len(img.IsolateInstructions))
	textEnd := off

	// .dynstr
	dynstr := []byte{0}
	type symDef struct {
		name  string
		value uint64
		size  int
		shndx uint16
	}
	defs := []symDef{
		{SymVMData, lay.VMData, len(img.VMData), 1},
		{SymVMInstructions, lay.VMInstructions, len(img.VMInstructions), 2},
		{SymIsolateData, lay.IsolateData, len(img.IsolateData), 1},
		{SymIsolateInstructions, lay.IsolateInstructions, len(img.IsolateInstructions), 2},
	}
	syms := []elf.Sym64{{}}
	for _, d := range defs {
		if d.name == img.OmitSymbol {
			continue
		}
		syms = append(syms, elf.Sym64{
			Name:  uint32(len(dynstr)),
			Info:  elf.ST_INFO(elf.STB_GLOBAL, elf.STT_OBJECT),
			Shndx: d.shndx,
			Value: d.value,
			Size:  uint64(d.size),
		})
		dynstr = append(dynstr, d.name...)
		dynstr = append(dynstr, 0)
	}

	dynstrOff := textEnd
	dynsymOff := align(dynstrOff+uint64(len(dynstr)), 8)
	dynsymSize := uint64(len(syms) * symSize)

	shstrtab := []byte{0}
	names := map[string]uint32{}
	for _, n := range []string{".rodata", ".text", ".dynsym", ".dynstr", ".shstrtab"} {
		names[n] = uint32(len(shstrtab))
		shstrtab = append(shstrtab, n...)
		shstrtab = append(shstrtab, 0)
	}
	shstrOff := dynsymOff + dynsymSize
	shOff := align(shstrOff+uint64(len(shstrtab)), 8)

	var hdr elf.Header64
	copy(hdr.Ident[:], elf.ELFMAG)
	hdr.Ident[elf.EI_CLASS] = byte(elf.ELFCLASS64)
	hdr.Ident[elf.EI_DATA] = byte(data)
	hdr.Ident[elf.EI_VERSION] = byte(elf.EV_CURRENT)
	hdr.Type = uint16(elf.ET_DYN)
	hdr.Machine = uint16(NativeMachine())
	hdr.Version = uint32(elf.EV_CURRENT)
	hdr.Phoff = ehdrSize
	hdr.Shoff = shOff
	hdr.Ehsize = ehdrSize
	hdr.Phentsize = phdrSize
	hdr.Phnum = phnum
	hdr.Shentsize = shdrSize
	hdr.Shnum = 6
	hdr.Shstrndx = 5

	progs := []elf.Prog64{
		{
			Type:   uint32(elf.PT_LOAD),
			Flags:  uint32(elf.PF_R),
			Filesz: rodataEnd,
			Memsz:  rodataEnd,
			Align:  page,
		},
		{
			Type:   uint32(elf.PT_LOAD),
			Flags:  uint32(elf.PF_R | elf.PF_X),
			Off:    textOff,
			Vaddr:  textOff,
			Paddr:  textOff,
			Filesz: textEnd - textOff,
			Memsz:  textEnd - textOff,
			Align:  page,
		},
	}

	sections := []elf.Section64{
		{},
		{
			Name: names[".rodata"], Type: uint32(elf.SHT_PROGBITS), Flags: uint64(elf.SHF_ALLOC),
			Addr: rodataOff, Off: rodataOff, Size: rodataEnd - rodataOff, Addralign: 16,
		},
		{
			Name: names[".text"], Type: uint32(elf.SHT_PROGBITS), Flags: uint64(elf.SHF_ALLOC | elf.SHF_EXECINSTR),
			Addr: textOff, Off: textOff, Size: textEnd - textOff, Addralign: 16,
		},
		{
			Name: names[".dynsym"], Type: uint32(elf.SHT_DYNSYM), Off: dynsymOff, Size: dynsymSize,
			Link: 4, Info: 1, Addralign: 8, Entsize: symSize,
		},
		{
			Name: names[".dynstr"], Type: uint32(elf.SHT_STRTAB), Off: dynstrOff, Size: uint64(len(dynstr)), Addralign: 1,
		},
		{
			Name: names[".shstrtab"], Type: uint32(elf.SHT_STRTAB), Off: shstrOff, Size: uint64(len(shstrtab)), Addralign: 1,
		},
	}

	var buf bytes.Buffer
	put := func(v any) { _ = binary.Write(&buf, order, v) }
	padTo := func(n uint64) {
		for uint64(buf.Len()) < n {
			buf.WriteByte(0)
		}
	}

	put(&hdr)
	for i := range progs {
		put(&progs[i])
	}
	padTo(lay.VMData)
	buf.Write(img.VMData)
	padTo(lay.IsolateData)
	buf.Write(img.IsolateData)
	padTo(lay.VMInstructions)
	buf.Write(img.VMInstructions)
	padTo(lay.IsolateInstructions)
	buf.Write(img.IsolateInstructions)
	padTo(dynstrOff)
	buf.Write(dynstr)
	padTo(dynsymOff)
	for i := range syms {
		put(&syms[i])
	}
	padTo(shstrOff)
	buf.Write(shstrtab)
	padTo(shOff)
	for i := range sections {
		put(&sections[i])
	}

	return buf.Bytes(), lay
}

// NativeMachine returns the ELF machine of the running architecture, or
// EM_NONE if unknown.
func NativeMachine() elf.Machine {
	switch runtime.GOARCH {
	case "amd64":
		return elf.EM_X86_64
	case "arm64":
		return elf.EM_AARCH64
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

func byteOrder() (binary.ByteOrder, elf.Data) {
	if binary.NativeEndian.Uint16([]byte{1, 0}) == 1 {
		return binary.LittleEndian, elf.ELFDATA2LSB
	}
	return binary.BigEndian, elf.ELFDATA2MSB
}

func align(v, a uint64) uint64 {
	return (v + a - 1) &^ (a - 1)
}
