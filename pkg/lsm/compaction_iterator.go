package lsm

import (
	"container/heap"
)

// mergeSource is one sorted run feeding a MergeIterator. Lower rank means
// more recent data.
type mergeSource struct {
	entries []Entry
	pos     int
	rank    int
}

func (s *mergeSource) current() Entry { return s.entries[s.pos] }

type mergeHeap []*mergeSource

func (h mergeHeap) Len() int { return len(h) }

func (h mergeHeap) Less(i, j int) bool {
	ki, kj := h[i].current().Key, h[j].current().Key
	if ki != kj {
		return ki < kj
	}
	return h[i].rank < h[j].rank
}

func (h mergeHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *mergeHeap) Push(x any) { *h = append(*h, x.(*mergeSource)) }

func (h *mergeHeap) Pop() any {
	old := *h
	n := len(old)
	src := old[n-1]
	*h = old[:n-1]
	return src
}

// MergeIterator merges sorted runs into one ascending stream holding a
// single entry per key: the one from the most recent run. Tombstones are
// passed through; callers decide whether to keep them.
type MergeIterator struct {
	h        mergeHeap
	shadowed int64
}

// NewMergeIterator creates an iterator over runs ordered newest first.
// Each run must be sorted by key with unique keys.
func NewMergeIterator(runs [][]Entry) *MergeIterator {
	mi := &MergeIterator{}
	for rank, run := range runs {
		if len(run) > 0 {
			mi.h = append(mi.h, &mergeSource{entries: run, rank: rank})
		}
	}
	heap.Init(&mi.h)
	return mi
}

// Next returns the next entry in sorted order across all runs
func (mi *MergeIterator) Next() (Entry, bool) {
	if mi.h.Len() == 0 {
		return Entry{}, false
	}

	winner := mi.h[0].current()
	mi.advance()

	// Skip older versions of the same key
	for mi.h.Len() > 0 && mi.h[0].current().Key == winner.Key {
		mi.advance()
		mi.shadowed++
	}

	return winner, true
}

// Shadowed returns how many older versions Next has skipped so far
func (mi *MergeIterator) Shadowed() int64 {
	return mi.shadowed
}

// advance moves the top run forward and restores heap order
func (mi *MergeIterator) advance() {
	top := mi.h[0]
	top.pos++
	if top.pos >= len(top.entries) {
		heap.Pop(&mi.h)
		return
	}
	heap.Fix(&mi.h, 0)
}
