package lsm

import (
	"container/list"
	"sync"
)

// BlockCache is an LRU cache of values read from tables. Writes to a key
// must invalidate it.
type BlockCache struct {
	mu       sync.Mutex
	capacity int
	cache    map[uint64]*list.Element
	lru      *list.List

	// Statistics
	hits   int64
	misses int64
}

type cacheEntry struct {
	key   uint64
	value string
}

// NewBlockCache creates a new LRU block cache. A capacity of zero or less
// disables caching.
func NewBlockCache(capacity int) *BlockCache {
	return &BlockCache{
		capacity: capacity,
		cache:    make(map[uint64]*list.Element),
		lru:      list.New(),
	}
}

// Get retrieves a value from the cache
func (bc *BlockCache) Get(key uint64) (string, bool) {
	bc.mu.Lock()
	defer bc.mu.Unlock()

	if elem, ok := bc.cache[key]; ok {
		// Move to front (most recently used)
		bc.lru.MoveToFront(elem)
		bc.hits++
		return elem.Value.(*cacheEntry).value, true
	}

	bc.misses++
	return "", false
}

// Put adds a value to the cache
func (bc *BlockCache) Put(key uint64, value string) {
	bc.mu.Lock()
	defer bc.mu.Unlock()

	if bc.capacity <= 0 {
		return
	}

	// Check if key already exists
	if elem, ok := bc.cache[key]; ok {
		bc.lru.MoveToFront(elem)
		elem.Value.(*cacheEntry).value = value
		return
	}

	elem := bc.lru.PushFront(&cacheEntry{key: key, value: value})
	bc.cache[key] = elem

	// Evict if over capacity
	if bc.lru.Len() > bc.capacity {
		bc.evict()
	}
}

// evict removes the least recently used entry
func (bc *BlockCache) evict() {
	elem := bc.lru.Back()
	if elem != nil {
		bc.lru.Remove(elem)
		delete(bc.cache, elem.Value.(*cacheEntry).key)
	}
}

// Delete removes an entry from the cache
func (bc *BlockCache) Delete(key uint64) {
	bc.mu.Lock()
	defer bc.mu.Unlock()

	if elem, ok := bc.cache[key]; ok {
		bc.lru.Remove(elem)
		delete(bc.cache, key)
	}
}

// Clear removes all entries from the cache
func (bc *BlockCache) Clear() {
	bc.mu.Lock()
	defer bc.mu.Unlock()

	bc.cache = make(map[uint64]*list.Element)
	bc.lru = list.New()
	bc.hits = 0
	bc.misses = 0
}

// Stats returns cache statistics
func (bc *BlockCache) Stats() (hits, misses int64, hitRate float64) {
	bc.mu.Lock()
	defer bc.mu.Unlock()

	hits = bc.hits
	misses = bc.misses
	if total := hits + misses; total > 0 {
		hitRate = float64(hits) / float64(total)
	}
	return
}

// Size returns the current number of entries
func (bc *BlockCache) Size() int {
	bc.mu.Lock()
	defer bc.mu.Unlock()
	return bc.lru.Len()
}
