// Package testutil provides testing utilities for mapres.
//
// This package is intended for use in tests only. It generates snapshot ELF
// images with the four well-known region symbols and inspects the process
// address space through /proc/self/maps.
//
// # Snapshot Images
//
//	raw := testutil.BuildSnapshotELF(testutil.SnapshotImage{
//	    VMData:              []byte("vm-data"),
//	    VMInstructions:      []byte{0xc3},
//	    IsolateData:         []byte("isolate-data"),
//	    IsolateInstructions: []byte{0xc3},
//	})
//
// # Address Space Queries
//
//	perms, ok := testutil.MappingPerms(uintptr(addr)) // e.g. "r-xs"
package testutil
