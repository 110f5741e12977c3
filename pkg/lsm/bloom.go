package lsm

import (
	"encoding/binary"
	"math"

	"github.com/spaolacci/murmur3"
)

// FilterSize is the number of bit positions in every table's filter.
// It is fixed so the on-disk layout stays constant across tables.
const FilterSize = 10240

// filterHashes is the number of bit positions set per key.
const filterHashes = 4

// BloomFilter is a probabilistic data structure for set membership testing
// - False positives possible (may say key exists when it doesn't)
// - False negatives impossible (if it says key doesn't exist, it definitely doesn't)
//
// Bits are kept one byte per position, which is also the on-disk form.
type BloomFilter struct {
	bits []byte
}

// NewBloomFilter creates an empty filter with size bit positions.
func NewBloomFilter(size int) *BloomFilter {
	if size < 1 {
		size = 1
	}
	return &BloomFilter{bits: make([]byte, size)}
}

// LoadBloomFilter wraps bits read from a table file. Any non-zero byte
// counts as a set position.
func LoadBloomFilter(bits []byte) *BloomFilter {
	if len(bits) == 0 {
		return NewBloomFilter(1)
	}
	return &BloomFilter{bits: bits}
}

// Add adds a key to the Bloom filter
func (bf *BloomFilter) Add(key uint64) {
	for _, h := range hash128(key) {
		bf.bits[h%uint32(len(bf.bits))] = 1
	}
}

// MayContain checks if a key might be in the set
// Returns true if key might exist (with false positive rate)
// Returns false if key definitely doesn't exist
func (bf *BloomFilter) MayContain(key uint64) bool {
	for _, h := range hash128(key) {
		if bf.bits[h%uint32(len(bf.bits))] == 0 {
			return false
		}
	}
	return true
}

// Size returns the size of the filter in bit positions
func (bf *BloomFilter) Size() int {
	return len(bf.bits)
}

// EstimateFalsePositiveRate estimates the false positive rate after
// itemCount distinct keys have been added.
func (bf *BloomFilter) EstimateFalsePositiveRate(itemCount int) float64 {
	// p = (1 - e^(-k*n/m))^k
	k := float64(filterHashes)
	n := float64(itemCount)
	m := float64(len(bf.bits))

	return math.Pow(1.0-math.Exp(-k*n/m), k)
}

// Bits returns the filter in its on-disk form. The slice is shared.
func (bf *BloomFilter) Bits() []byte {
	return bf.bits
}

// hash128 feeds the key's 8 little-endian bytes through MurmurHash3
// x64_128 with seed 0 and splits the digest into four 32-bit words,
// low word of h1 first.
func hash128(key uint64) [filterHashes]uint32 {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], key)
	h1, h2 := murmur3.Sum128WithSeed(buf[:], 0)
	return [filterHashes]uint32{
		uint32(h1),
		uint32(h1 >> 32),
		uint32(h2),
		uint32(h2 >> 32),
	}
}
