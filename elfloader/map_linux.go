package elfloader

import (
	"debug/elf"
	"fmt"
	"os"
	"unsafe"

	"golang.org/x/sys/unix"
)

func mapImage(f *os.File, offset int64, lay *layout) (*Image, error) {
	span := lay.hi - lay.lo
	mem, err := unix.Mmap(-1, 0, int(span), unix.PROT_NONE, unix.MAP_PRIVATE|unix.MAP_ANON)
	if err != nil {
		return nil, fmt.Errorf("elfloader: reserve %d bytes: %w", span, err)
	}
	base := unsafe.Pointer(&mem[0])

	fd := int(f.Fd())
	for _, seg := range lay.segments {
		if err := mapSegment(fd, offset, base, lay, seg); err != nil {
			_ = unix.Munmap(mem)
			return nil, err
		}
	}

	img := &Image{mem: mem, unmap: unix.Munmap}
	for k, s := range lay.symbols {
		img.regions[k] = Region{
			Addr: unsafe.Add(base, s.Value-lay.lo),
			Size: uintptr(s.Size),
		}
	}
	return img, nil
}

// mapSegment maps the file-backed part of seg over the reservation and
// backs the remainder of memsz with zero pages.
func mapSegment(fd int, offset int64, base unsafe.Pointer, lay *layout, seg segment) error {
	page := lay.page
	prot := protFlags(seg.flags)
	start := alignDown(seg.vaddr, page)
	fileEnd := seg.vaddr + seg.filesz
	memEnd := seg.vaddr + seg.memsz
	bss := seg.memsz > seg.filesz

	anonStart := start
	if seg.filesz > 0 {
		mapProt := prot
		if bss {
			mapProt |= unix.PROT_WRITE
		}
		delta := seg.vaddr - start
		_, err := unix.MmapPtr(fd, offset+int64(seg.off-delta), unsafe.Add(base, start-lay.lo),
			uintptr(seg.filesz+delta), mapProt, unix.MAP_PRIVATE|unix.MAP_FIXED)
		if err != nil {
			return fmt.Errorf("elfloader: map segment at %#x: %w", seg.vaddr, err)
		}
		anonStart = alignUp(fileEnd, page)
		if !bss {
			return nil
		}

		// The last file page carries whatever follows the segment on disk.
		tail := unsafe.Slice((*byte)(unsafe.Add(base, fileEnd-lay.lo)), min(anonStart, memEnd)-fileEnd)
		clear(tail)
		if mapProt != prot {
			mapped := unsafe.Slice((*byte)(unsafe.Add(base, start-lay.lo)), anonStart-start)
			if err := unix.Mprotect(mapped, prot); err != nil {
				return fmt.Errorf("elfloader: protect segment at %#x: %w", seg.vaddr, err)
			}
		}
	}

	if anonEnd := alignUp(memEnd, page); anonEnd > anonStart {
		_, err := unix.MmapPtr(-1, 0, unsafe.Add(base, anonStart-lay.lo), uintptr(anonEnd-anonStart),
			prot, unix.MAP_PRIVATE|unix.MAP_FIXED|unix.MAP_ANON)
		if err != nil {
			return fmt.Errorf("elfloader: map bss at %#x: %w", anonStart, err)
		}
	}
	return nil
}

func protFlags(flags elf.ProgFlag) int {
	prot := unix.PROT_NONE
	if flags&elf.PF_R != 0 {
		prot |= unix.PROT_READ
	}
	if flags&elf.PF_W != 0 {
		prot |= unix.PROT_WRITE
	}
	if flags&elf.PF_X != 0 {
		prot |= unix.PROT_EXEC
	}
	return prot
}
