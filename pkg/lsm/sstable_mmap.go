package lsm

import (
	"golang.org/x/exp/mmap"
)

// Entries decodes every entry of the table, tombstones included, reading
// the data area through a memory-mapped view of the file.
func (sst *SSTable) Entries() ([]Entry, error) {
	reader, err := mmap.Open(sst.path)
	if err != nil {
		return nil, corruptError("decode", sst.path, sst.level, "%v", err)
	}
	defer reader.Close()

	if int64(reader.Len()) != sst.Size() {
		return nil, corruptError("decode", sst.path, sst.level, "file is %d bytes, expected %d", reader.Len(), sst.Size())
	}

	data := make([]byte, sst.dataSize)
	if _, err := reader.ReadAt(data, dataAreaOffset(sst.header.EntryCount)); err != nil && len(data) > 0 {
		return nil, corruptError("decode", sst.path, sst.level, "short read: %v", err)
	}

	entries := make([]Entry, len(sst.index))
	for i, ie := range sst.index {
		start, end := uint64(ie.Offset), sst.valueEnd(i)
		if start > end || end > sst.dataSize {
			return nil, corruptError("decode", sst.path, sst.level, "value range [%d, %d) outside data area", start, end)
		}
		value, deleted := decodeValue(data[start:end])
		entries[i] = Entry{Key: ie.Key, Value: value, Deleted: deleted}
	}

	return entries, nil
}
