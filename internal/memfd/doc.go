// Package memfd creates anonymous in-memory files that can be passed around
// as ordinary descriptors and mapped like any other file.
//
// On Linux this is memfd_create(2) with sealing; elsewhere an unlinked
// temporary file stands in.
package memfd
