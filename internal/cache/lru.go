package cache

import (
	"container/list"
	"os"
	"sync"
	"sync/atomic"

	"github.com/hupe1980/mapres/internal/memfd"
)

// FileCache implements a byte-bounded LRU of open files.
type FileCache struct {
	mu        sync.Mutex
	capacity  int64
	size      int64
	items     map[string]*list.Element
	evictList *list.List

	hits   atomic.Int64
	misses atomic.Int64
}

type entry struct {
	key  string
	file *os.File
	size int64
}

// NewFileCache creates a new cache holding at most capacity bytes.
// A capacity <= 0 disables caching.
func NewFileCache(capacity int64) *FileCache {
	return &FileCache{
		capacity:  capacity,
		items:     make(map[string]*list.Element),
		evictList: list.New(),
	}
}

// Get returns a duplicate descriptor of the cached file for key. The caller
// owns the duplicate.
func (c *FileCache) Get(key string) (*os.File, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	ent, ok := c.items[key]
	if !ok {
		c.misses.Add(1)
		return nil, false, nil
	}

	f, err := memfd.Dup(ent.Value.(*entry).file)
	if err != nil {
		return nil, false, err
	}
	c.hits.Add(1)
	c.evictList.MoveToFront(ent)
	return f, true, nil
}

// Put transfers ownership of f to the cache. It reports false, leaving
// ownership with the caller, if f does not fit.
func (c *FileCache) Put(key string, f *os.File, size int64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if size > c.capacity {
		return false
	}

	if ent, ok := c.items[key]; ok {
		c.removeElement(ent)
	}

	for c.size+size > c.capacity {
		ent := c.evictList.Back()
		if ent == nil {
			break
		}
		c.removeElement(ent)
	}

	element := c.evictList.PushFront(&entry{key: key, file: f, size: size})
	c.items[key] = element
	c.size += size
	return true
}

// Invalidate drops key if present.
func (c *FileCache) Invalidate(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if ent, ok := c.items[key]; ok {
		c.removeElement(ent)
	}
}

// Close evicts everything.
func (c *FileCache) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for c.evictList.Len() > 0 {
		c.removeElement(c.evictList.Back())
	}
	return nil
}

// Stats returns hit and miss counters.
func (c *FileCache) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}

// Size returns the current size of the cache in bytes.
func (c *FileCache) Size() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.size
}

// Len returns the number of cached files.
func (c *FileCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.evictList.Len()
}

func (c *FileCache) removeElement(e *list.Element) {
	c.evictList.Remove(e)
	kv := e.Value.(*entry)
	delete(c.items, kv.key)
	c.size -= kv.size
	_ = kv.file.Close()
}
