package lsm

import (
	"io"
	"os"
	"sort"
)

// Get retrieves the entry for key. A returned entry may be a tombstone.
// Keys outside the table's range or rejected by the filter cost no I/O.
func (sst *SSTable) Get(key uint64) (Entry, bool, error) {
	if key < sst.header.MinKey || key > sst.header.MaxKey {
		return Entry{}, false, nil
	}

	// Check Bloom filter first - fast negative lookup
	if !sst.bloom.MayContain(key) {
		return Entry{}, false, nil
	}

	i, ok := sst.findIndexPosition(key)
	if !ok {
		return Entry{}, false, nil
	}

	start := uint64(sst.index[i].Offset)
	end := sst.valueEnd(i)
	if start > end || end > sst.dataSize {
		return Entry{}, false, corruptError("get", sst.path, sst.level, "value range [%d, %d) outside data area of %d bytes", start, end, sst.dataSize)
	}

	// Open a new file handle per lookup
	file, err := os.Open(sst.path)
	if err != nil {
		return Entry{}, false, corruptError("get", sst.path, sst.level, "%v", err)
	}
	defer file.Close()

	if _, err := file.Seek(dataAreaOffset(sst.header.EntryCount)+int64(start), io.SeekStart); err != nil {
		return Entry{}, false, corruptError("get", sst.path, sst.level, "%v", err)
	}

	raw := make([]byte, end-start)
	if _, err := io.ReadFull(file, raw); err != nil {
		return Entry{}, false, corruptError("get", sst.path, sst.level, "short read: %v", err)
	}

	value, deleted := decodeValue(raw)
	return Entry{Key: key, Value: value, Deleted: deleted}, true, nil
}

// findIndexPosition binary searches the cached index for an exact match
func (sst *SSTable) findIndexPosition(key uint64) (int, bool) {
	i := sort.Search(len(sst.index), func(i int) bool {
		return sst.index[i].Key >= key
	})
	if i < len(sst.index) && sst.index[i].Key == key {
		return i, true
	}
	return 0, false
}

// valueEnd returns the data-area offset one past the value of record i.
func (sst *SSTable) valueEnd(i int) uint64 {
	if i+1 < len(sst.index) {
		return uint64(sst.index[i+1].Offset)
	}
	return sst.dataSize
}

// Path returns the table file path
func (sst *SSTable) Path() string { return sst.path }

// Level returns the level the table belongs to
func (sst *SSTable) Level() int { return sst.level }

// Timestamp returns the table's creation order stamp
func (sst *SSTable) Timestamp() uint64 { return sst.header.Timestamp }

// MinKey returns the smallest key in the table
func (sst *SSTable) MinKey() uint64 { return sst.header.MinKey }

// MaxKey returns the largest key in the table
func (sst *SSTable) MaxKey() uint64 { return sst.header.MaxKey }

// EntryCount returns the number of entries, tombstones included
func (sst *SSTable) EntryCount() int { return len(sst.index) }

// Size returns the table file size in bytes
func (sst *SSTable) Size() int64 {
	return dataAreaOffset(sst.header.EntryCount) + int64(sst.dataSize)
}

// Overlaps reports whether the table's key range intersects [lo, hi]
func (sst *SSTable) Overlaps(lo, hi uint64) bool {
	return sst.header.MinKey <= hi && lo <= sst.header.MaxKey
}

// MayContain reports whether the table's filter admits key
func (sst *SSTable) MayContain(key uint64) bool {
	return sst.bloom.MayContain(key)
}

// Delete removes the SSTable file
func (sst *SSTable) Delete() error {
	if err := os.Remove(sst.path); err != nil && !os.IsNotExist(err) {
		return ioError("delete", sst.path, sst.level, err)
	}
	return nil
}
