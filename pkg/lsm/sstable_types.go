package lsm

import (
	"encoding/binary"
)

// SSTable format (little-endian, no padding):
//   [Header: timestamp(8) | entry_count(8) | min_key(8) | max_key(8)]
//   [Filter: FilterSize bytes, one byte per bit position]
//   [Index: entry_count x (key(8) | value_offset(4)), ascending keys]
//   [Data: values concatenated in key order]
//
// value_offset is relative to the start of the data area. A value's length
// is the next record's offset minus its own, or the data area size minus
// its own for the last record.

const (
	HeaderSize      = 32
	IndexRecordSize = 12

	// TombstoneValue is the data-area encoding of a deletion marker.
	TombstoneValue = "~DELETED~"

	// DefaultTableSizeBudget caps a table file, header through data.
	DefaultTableSizeBudget = 2 * 1024 * 1024

	maxDataAreaSize = 1<<32 - 1
)

// SSTableHeader represents the header of an SSTable file
type SSTableHeader struct {
	Timestamp  uint64
	EntryCount uint64
	MinKey     uint64
	MaxKey     uint64
}

// IndexEntry locates one value in the data area
type IndexEntry struct {
	Key    uint64
	Offset uint32
}

// SSTable is the in-memory handle of one immutable table file. Header,
// filter and the full index are cached so a point lookup costs at most one
// seek-and-read.
type SSTable struct {
	path     string
	level    int
	header   SSTableHeader
	bloom    *BloomFilter
	index    []IndexEntry
	dataSize uint64 // Length of the data area in bytes
}

// TableSize returns the file size of a table holding count entries whose
// values add up to valueBytes.
func TableSize(count, valueBytes int) int {
	return HeaderSize + FilterSize + count*IndexRecordSize + valueBytes
}

func dataAreaOffset(count uint64) int64 {
	return int64(HeaderSize + FilterSize + count*IndexRecordSize)
}

func encodeHeader(buf []byte, h SSTableHeader) {
	binary.LittleEndian.PutUint64(buf[0:8], h.Timestamp)
	binary.LittleEndian.PutUint64(buf[8:16], h.EntryCount)
	binary.LittleEndian.PutUint64(buf[16:24], h.MinKey)
	binary.LittleEndian.PutUint64(buf[24:32], h.MaxKey)
}

func decodeHeader(buf []byte) SSTableHeader {
	return SSTableHeader{
		Timestamp:  binary.LittleEndian.Uint64(buf[0:8]),
		EntryCount: binary.LittleEndian.Uint64(buf[8:16]),
		MinKey:     binary.LittleEndian.Uint64(buf[16:24]),
		MaxKey:     binary.LittleEndian.Uint64(buf[24:32]),
	}
}

func decodeValue(raw []byte) (string, bool) {
	if string(raw) == TombstoneValue {
		return "", true
	}
	return string(raw), false
}
