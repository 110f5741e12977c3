package lsm

import (
	"errors"
	"io"
	"os"
	"sort"
)

// OpenSSTable opens an existing table and caches its header, filter and
// index. Any structural inconsistency is reported as ErrCorruptTable.
func OpenSSTable(path string, level int) (*SSTable, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, ioError("open", path, level, err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return nil, ioError("open", path, level, err)
	}
	fileSize := uint64(info.Size())

	// Read header
	var hdr [HeaderSize]byte
	if _, err := io.ReadFull(file, hdr[:]); err != nil {
		return nil, corruptError("open", path, level, "short header: %v", err)
	}
	header := decodeHeader(hdr[:])

	if header.EntryCount == 0 {
		return nil, corruptError("open", path, level, "zero entries")
	}
	metaSize := uint64(FilterSize)
	if header.EntryCount > (fileSize-HeaderSize)/IndexRecordSize {
		return nil, corruptError("open", path, level, "entry count %d exceeds file size %d", header.EntryCount, fileSize)
	}
	metaSize += header.EntryCount * IndexRecordSize
	if HeaderSize+metaSize > fileSize {
		return nil, corruptError("open", path, level, "file size %d smaller than metadata", fileSize)
	}

	// Read filter and index in one go
	meta := make([]byte, metaSize)
	if _, err := io.ReadFull(file, meta); err != nil {
		return nil, corruptError("open", path, level, "short metadata: %v", err)
	}

	bloom := LoadBloomFilter(meta[:FilterSize])
	index := decodeIndex(meta[FilterSize:], int(header.EntryCount))
	dataSize := fileSize - HeaderSize - metaSize

	if err := validateIndex(header, index, dataSize); err != nil {
		return nil, corruptError("open", path, level, "%v", err)
	}

	return &SSTable{
		path:     path,
		level:    level,
		header:   header,
		bloom:    bloom,
		index:    index,
		dataSize: dataSize,
	}, nil
}

// validateIndex checks ordering, bounds and that the header agrees with
// the index.
func validateIndex(header SSTableHeader, index []IndexEntry, dataSize uint64) error {
	if index[0].Key != header.MinKey || index[len(index)-1].Key != header.MaxKey {
		return errors.New("header key range disagrees with index")
	}
	if index[0].Offset != 0 {
		return errors.New("first value offset is not zero")
	}
	for i := 1; i < len(index); i++ {
		if index[i-1].Key >= index[i].Key {
			return errors.New("index keys out of order")
		}
		if index[i-1].Offset > index[i].Offset {
			return errors.New("index offsets out of order")
		}
	}
	if uint64(index[len(index)-1].Offset) > dataSize {
		return errors.New("value offset beyond data area")
	}
	return nil
}

// Scan returns entries with lo <= key <= hi, tombstones included. The
// matching values are contiguous in the data area and read with one call.
func (sst *SSTable) Scan(lo, hi uint64) ([]Entry, error) {
	if lo > hi || hi < sst.header.MinKey || lo > sst.header.MaxKey {
		return nil, nil
	}

	first := sort.Search(len(sst.index), func(i int) bool {
		return sst.index[i].Key >= lo
	})
	last := sort.Search(len(sst.index), func(i int) bool {
		return sst.index[i].Key > hi
	})
	if first >= last {
		return nil, nil
	}

	start := uint64(sst.index[first].Offset)
	end := sst.valueEnd(last - 1)
	buf, err := sst.readData(start, end)
	if err != nil {
		return nil, err
	}

	results := make([]Entry, 0, last-first)
	for i := first; i < last; i++ {
		from := uint64(sst.index[i].Offset) - start
		to := sst.valueEnd(i) - start
		value, deleted := decodeValue(buf[from:to])
		results = append(results, Entry{Key: sst.index[i].Key, Value: value, Deleted: deleted})
	}
	return results, nil
}

// readData reads data-area bytes [start, end) from the file.
func (sst *SSTable) readData(start, end uint64) ([]byte, error) {
	if start > end || end > sst.dataSize {
		return nil, corruptError("read", sst.path, sst.level, "value range [%d, %d) outside data area of %d bytes", start, end, sst.dataSize)
	}

	file, err := os.Open(sst.path)
	if err != nil {
		return nil, corruptError("read", sst.path, sst.level, "%v", err)
	}
	defer file.Close()

	buf := make([]byte, end-start)
	if _, err := file.ReadAt(buf, dataAreaOffset(sst.header.EntryCount)+int64(start)); err != nil {
		return nil, corruptError("read", sst.path, sst.level, "short read: %v", err)
	}
	return buf, nil
}
