// Package cache keeps recently materialized memory files so that repeated
// loads of the same remote resource skip the fetch.
//
// # File Cache
//
// FileCache is an LRU bounded by the total byte size of the cached files.
// It owns each cached *os.File and closes it on eviction. Callers never
// receive the cached descriptor itself: Get returns a duplicate, taken under
// the cache lock, so an eviction racing with a lookup cannot close a
// descriptor the caller is still using.
package cache
