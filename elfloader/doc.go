// Package elfloader maps AOT snapshot images packaged as ELF shared objects.
//
// The loader reserves one contiguous span for all PT_LOAD segments, maps
// each segment from the file at its link-time offset inside the span and
// resolves the four snapshot region symbols. No relocations are applied and
// no dependencies are loaded: snapshot images are self-contained.
//
// Mapping is implemented on Linux. Elsewhere Load validates the image and
// then fails with ErrUnsupported.
package elfloader
