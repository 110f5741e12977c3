package lsm

import (
	"encoding/binary"
	"testing"

	"github.com/spaolacci/murmur3"
)

// TestBloomFilter_BasicOperations tests basic Add/MayContain
func TestBloomFilter_BasicOperations(t *testing.T) {
	bf := NewBloomFilter(FilterSize)

	keys := []uint64{0, 1, 42, 1 << 40, ^uint64(0)}
	for _, key := range keys {
		bf.Add(key)
	}

	// All added keys should be found (no false negatives)
	for _, key := range keys {
		if !bf.MayContain(key) {
			t.Errorf("Expected to find key %d (false negative)", key)
		}
	}
}

// TestBloomFilter_EmptyRejectsEverything tests that an empty filter admits nothing
func TestBloomFilter_EmptyRejectsEverything(t *testing.T) {
	bf := NewBloomFilter(FilterSize)
	for key := uint64(0); key < 1000; key++ {
		if bf.MayContain(key) {
			t.Fatalf("Empty filter admitted key %d", key)
		}
	}
}

// TestBloomFilter_NoFalseNegatives tests that false negatives are impossible
func TestBloomFilter_NoFalseNegatives(t *testing.T) {
	bf := NewBloomFilter(FilterSize)

	numKeys := 5000
	for i := 0; i < numKeys; i++ {
		bf.Add(uint64(i) * 7919)
	}

	falseNegatives := 0
	for i := 0; i < numKeys; i++ {
		if !bf.MayContain(uint64(i) * 7919) {
			falseNegatives++
		}
	}

	if falseNegatives > 0 {
		t.Fatalf("Found %d false negatives - Bloom filter broken!", falseNegatives)
	}
}

// TestBloomFilter_FalsePositiveRate tests that the observed rate tracks the estimate
func TestBloomFilter_FalsePositiveRate(t *testing.T) {
	bf := NewBloomFilter(FilterSize)

	items := 1000
	for i := 0; i < items; i++ {
		bf.Add(uint64(i))
	}

	falsePositives := 0
	trials := 20000
	for i := 0; i < trials; i++ {
		if bf.MayContain(uint64(1_000_000 + i)) {
			falsePositives++
		}
	}

	observed := float64(falsePositives) / float64(trials)
	estimated := bf.EstimateFalsePositiveRate(items)
	t.Logf("False positive rate: observed %.4f, estimated %.4f", observed, estimated)

	if observed > estimated*3+0.01 {
		t.Errorf("False positive rate %.4f far above estimate %.4f", observed, estimated)
	}
}

// TestBloomFilter_HashWords tests the digest split used for bit positions
func TestBloomFilter_HashWords(t *testing.T) {
	key := uint64(0x0102030405060708)

	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], key)
	h1, h2 := murmur3.Sum128WithSeed(buf[:], 0)

	got := hash128(key)
	want := [4]uint32{uint32(h1), uint32(h1 >> 32), uint32(h2), uint32(h2 >> 32)}
	if got != want {
		t.Errorf("hash128(%#x) = %v, want %v", key, got, want)
	}

	// Deterministic across calls
	if hash128(key) != got {
		t.Error("hash128 is not deterministic")
	}
}

// TestBloomFilter_OnDiskForm tests that bits are stored one byte per position
func TestBloomFilter_OnDiskForm(t *testing.T) {
	bf := NewBloomFilter(FilterSize)
	bf.Add(12345)

	bits := bf.Bits()
	if len(bits) != FilterSize {
		t.Fatalf("Bits() length = %d, want %d", len(bits), FilterSize)
	}

	set := 0
	for _, b := range bits {
		switch b {
		case 0:
		case 1:
			set++
		default:
			t.Fatalf("unexpected byte %d in filter", b)
		}
	}
	if set < 1 || set > filterHashes {
		t.Errorf("set positions = %d, want 1..%d", set, filterHashes)
	}

	for _, h := range hash128(12345) {
		if bits[h%FilterSize] != 1 {
			t.Errorf("position %d not set", h%FilterSize)
		}
	}

	// Round trip through the on-disk form
	loaded := LoadBloomFilter(append([]byte(nil), bits...))
	if !loaded.MayContain(12345) {
		t.Error("loaded filter lost key")
	}
	if loaded.Size() != FilterSize {
		t.Errorf("loaded Size() = %d, want %d", loaded.Size(), FilterSize)
	}
}

// TestBloomFilter_EstimateFalsePositiveRate tests the estimate's shape
func TestBloomFilter_EstimateFalsePositiveRate(t *testing.T) {
	bf := NewBloomFilter(FilterSize)

	if rate := bf.EstimateFalsePositiveRate(0); rate != 0 {
		t.Errorf("rate for empty filter = %f, want 0", rate)
	}

	low := bf.EstimateFalsePositiveRate(100)
	high := bf.EstimateFalsePositiveRate(10000)
	if low >= high {
		t.Errorf("rate should grow with items: %f >= %f", low, high)
	}
	if high > 1 {
		t.Errorf("rate %f above 1", high)
	}
}

// BenchmarkBloomFilter_MayContain benchmarks the lookup path
func BenchmarkBloomFilter_MayContain(b *testing.B) {
	bf := NewBloomFilter(FilterSize)
	for i := 0; i < 1000; i++ {
		bf.Add(uint64(i))
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		bf.MayContain(uint64(i))
	}
}
