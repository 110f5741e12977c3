package lsm

import (
	"sync"
)

// Entry represents a key-value pair with metadata
type Entry struct {
	Key     uint64
	Value   string
	Deleted bool // Tombstone for deletions
}

// encodedLen is the number of data-area bytes the entry occupies on disk.
func (e Entry) encodedLen() int {
	if e.Deleted {
		return len(TombstoneValue)
	}
	return len(e.Value)
}

// MemTable is the in-memory write buffer, an ordered skip list plus an
// estimate of the table file it would serialize to.
type MemTable struct {
	mu         sync.RWMutex
	list       *SkipList
	valueBytes int // Sum of encoded value lengths
	minKey     uint64
	maxKey     uint64
}

// NewMemTable creates a new MemTable
func NewMemTable() *MemTable {
	return &MemTable{list: NewSkipList()}
}

// Put adds or updates a key-value pair
func (mt *MemTable) Put(key uint64, value string) {
	mt.insert(Entry{Key: key, Value: value})
}

// Delete records a tombstone for key
func (mt *MemTable) Delete(key uint64) {
	mt.insert(Entry{Key: key, Deleted: true})
}

func (mt *MemTable) insert(e Entry) {
	mt.mu.Lock()
	defer mt.mu.Unlock()

	if mt.list.Len() == 0 {
		mt.minKey, mt.maxKey = e.Key, e.Key
	} else {
		mt.minKey = min(mt.minKey, e.Key)
		mt.maxKey = max(mt.maxKey, e.Key)
	}

	old, replaced := mt.list.Insert(e)
	if replaced {
		mt.valueBytes -= old.encodedLen()
	}
	mt.valueBytes += e.encodedLen()
}

// Get returns the entry for key, tombstones included. The memtable is
// authoritative for every key it holds.
func (mt *MemTable) Get(key uint64) (Entry, bool) {
	mt.mu.RLock()
	defer mt.mu.RUnlock()
	return mt.list.Search(key)
}

// Scan returns entries in range [lo, hi], tombstones included
func (mt *MemTable) Scan(lo, hi uint64) []Entry {
	mt.mu.RLock()
	defer mt.mu.RUnlock()
	return mt.list.Range(lo, hi)
}

// Iterator returns all entries in sorted order
func (mt *MemTable) Iterator() []Entry {
	mt.mu.RLock()
	defer mt.mu.RUnlock()
	return mt.list.All()
}

// Len returns the number of keys held, tombstones included.
func (mt *MemTable) Len() int {
	mt.mu.RLock()
	defer mt.mu.RUnlock()
	return mt.list.Len()
}

// Size returns the size in bytes of the table file the current contents
// would serialize to.
func (mt *MemTable) Size() int {
	mt.mu.RLock()
	defer mt.mu.RUnlock()
	return TableSize(mt.list.Len(), mt.valueBytes)
}

// WouldOverflow reports whether writing e would bring the serialized size
// to budget or beyond. An empty memtable never overflows, so a single
// oversized entry still gets a table of its own.
func (mt *MemTable) WouldOverflow(e Entry, budget int) bool {
	mt.mu.RLock()
	defer mt.mu.RUnlock()

	count := mt.list.Len()
	if count == 0 {
		return false
	}
	valueBytes := mt.valueBytes + e.encodedLen()
	if old, ok := mt.list.Search(e.Key); ok {
		valueBytes -= old.encodedLen()
	} else {
		count++
	}
	return TableSize(count, valueBytes) >= budget
}

// KeyRange returns the smallest and largest key held.
func (mt *MemTable) KeyRange() (uint64, uint64, bool) {
	mt.mu.RLock()
	defer mt.mu.RUnlock()
	return mt.minKey, mt.maxKey, mt.list.Len() > 0
}

// Clear removes all entries (used after flush)
func (mt *MemTable) Clear() {
	mt.mu.Lock()
	defer mt.mu.Unlock()

	mt.list.Clear()
	mt.valueBytes = 0
	mt.minKey, mt.maxKey = 0, 0
}
