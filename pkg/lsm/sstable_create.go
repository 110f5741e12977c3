package lsm

import (
	"bufio"
	"os"
	"path/filepath"
)

// WriteSSTable writes entries to a new table file at path and returns its
// handle. Entries must be sorted by key with no duplicates. The file is
// written under a temporary name, synced and renamed, so a failed write
// never leaves a table behind.
func WriteSSTable(path string, level int, timestamp uint64, entries []Entry) (*SSTable, error) {
	if len(entries) == 0 {
		return nil, &TableError{Op: "write", Path: path, Level: level, Kind: ErrEmptyTable}
	}
	for i := 1; i < len(entries); i++ {
		if entries[i-1].Key >= entries[i].Key {
			return nil, &TableError{Op: "write", Path: path, Level: level, Kind: ErrUnsortedEntries}
		}
	}

	// Build index and filter
	bloom := NewBloomFilter(FilterSize)
	index := make([]IndexEntry, len(entries))
	var offset uint64
	for i, e := range entries {
		index[i] = IndexEntry{Key: e.Key, Offset: uint32(offset)}
		bloom.Add(e.Key)
		offset += uint64(e.encodedLen())
		if offset > maxDataAreaSize {
			return nil, &TableError{Op: "write", Path: path, Level: level, Kind: ErrCapacityExceeded}
		}
	}

	header := SSTableHeader{
		Timestamp:  timestamp,
		EntryCount: uint64(len(entries)),
		MinKey:     entries[0].Key,
		MaxKey:     entries[len(entries)-1].Key,
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, ioError("write", path, level, err)
	}

	tmpPath := path + tmpExt
	file, err := os.Create(tmpPath)
	if err != nil {
		return nil, ioError("write", path, level, err)
	}

	if err := writeTable(file, header, bloom, index, entries); err != nil {
		_ = file.Close()
		_ = os.Remove(tmpPath)
		return nil, ioError("write", path, level, err)
	}
	if err := file.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return nil, ioError("write", path, level, err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return nil, ioError("write", path, level, err)
	}

	return &SSTable{
		path:     path,
		level:    level,
		header:   header,
		bloom:    bloom,
		index:    index,
		dataSize: offset,
	}, nil
}

// writeTable writes header, filter, index and data in that order and syncs.
func writeTable(file *os.File, header SSTableHeader, bloom *BloomFilter, index []IndexEntry, entries []Entry) error {
	// Note: bufio.NewWriter does not return an error - it always succeeds
	writer := bufio.NewWriter(file)

	var hdr [HeaderSize]byte
	encodeHeader(hdr[:], header)
	if _, err := writer.Write(hdr[:]); err != nil {
		return err
	}

	if _, err := writer.Write(bloom.Bits()); err != nil {
		return err
	}

	if err := writeIndex(writer, index); err != nil {
		return err
	}

	for _, e := range entries {
		value := e.Value
		if e.Deleted {
			value = TombstoneValue
		}
		if _, err := writer.WriteString(value); err != nil {
			return err
		}
	}

	if err := writer.Flush(); err != nil {
		return err
	}
	return file.Sync()
}
