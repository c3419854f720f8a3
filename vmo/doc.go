// Package vmo acquires memory objects: read-only handles to file contents
// that can be mapped into the address space.
//
// A VMO owns its file descriptor. Mapping a VMO does not transfer that
// ownership, so the VMO may be closed as soon as the mapping exists.
package vmo
