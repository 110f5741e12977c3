package lsm

import (
	"math/rand/v2"
)

const (
	maxSkipListHeight  = 16   // Maximum height of a node tower
	skipListPromotionP = 0.37 // Probability of growing a tower by one level
)

// skipNode is one arena slot. Forward links hold arena indices; index 0 is
// the head sentinel, which is never a successor, so a zero link means the
// end of the chain.
type skipNode struct {
	entry  Entry
	height int
	next   [maxSkipListHeight]int32
}

// SkipList is an ordered map from uint64 keys to entries with expected
// O(log n) insert, search and remove. Nodes live in an arena slice and link
// to each other by index; removed slots are recycled through a free list.
//
// SkipList is not safe for concurrent use; MemTable adds locking.
type SkipList struct {
	nodes  []skipNode
	free   []int32
	height int // number of active levels, 0 when empty
	count  int
	rng    *rand.Rand
}

// NewSkipList creates an empty skip list.
func NewSkipList() *SkipList {
	return &SkipList{
		nodes: make([]skipNode, 1, 64),
		rng:   rand.New(rand.NewPCG(0x5eed, 0x1d5)),
	}
}

// randomHeight draws a tower height from a geometric distribution: start at
// 1 and grow while a coin with probability skipListPromotionP comes up.
func (s *SkipList) randomHeight() int {
	h := 1
	for h < maxSkipListHeight && s.rng.Float64() < skipListPromotionP {
		h++
	}
	return h
}

// findPredecessors records, for every active level, the last node whose key
// is below key. It returns the level-0 successor of that position, the
// candidate match.
func (s *SkipList) findPredecessors(key uint64, update *[maxSkipListHeight]int32) int32 {
	var x int32
	for l := s.height - 1; l >= 0; l-- {
		for next := s.nodes[x].next[l]; next != 0 && s.nodes[next].entry.Key < key; next = s.nodes[x].next[l] {
			x = next
		}
		update[l] = x
	}
	return s.nodes[x].next[0]
}

// seek returns the first node with key >= key, or 0.
func (s *SkipList) seek(key uint64) int32 {
	var x int32
	for l := s.height - 1; l >= 0; l-- {
		for next := s.nodes[x].next[l]; next != 0 && s.nodes[next].entry.Key < key; next = s.nodes[x].next[l] {
			x = next
		}
	}
	return s.nodes[x].next[0]
}

func (s *SkipList) alloc(e Entry, height int) int32 {
	if n := len(s.free); n > 0 {
		idx := s.free[n-1]
		s.free = s.free[:n-1]
		s.nodes[idx] = skipNode{entry: e, height: height}
		return idx
	}
	s.nodes = append(s.nodes, skipNode{entry: e, height: height})
	return int32(len(s.nodes) - 1)
}

func (s *SkipList) release(idx int32) {
	s.nodes[idx] = skipNode{}
	s.free = append(s.free, idx)
}

// Insert adds e, or replaces the entry with the same key in place.
// It returns the replaced entry and whether one existed.
func (s *SkipList) Insert(e Entry) (Entry, bool) {
	var update [maxSkipListHeight]int32
	cand := s.findPredecessors(e.Key, &update)
	if cand != 0 && s.nodes[cand].entry.Key == e.Key {
		old := s.nodes[cand].entry
		s.nodes[cand].entry = e
		return old, true
	}

	h := s.randomHeight()
	if h > s.height {
		for l := s.height; l < h; l++ {
			update[l] = 0
		}
		s.height = h
	}

	idx := s.alloc(e, h)
	for l := 0; l < h; l++ {
		s.nodes[idx].next[l] = s.nodes[update[l]].next[l]
		s.nodes[update[l]].next[l] = idx
	}
	s.count++
	return Entry{}, false
}

// Search returns the entry stored for key.
func (s *SkipList) Search(key uint64) (Entry, bool) {
	cand := s.seek(key)
	if cand != 0 && s.nodes[cand].entry.Key == key {
		return s.nodes[cand].entry, true
	}
	return Entry{}, false
}

// Remove unlinks key at every level it appears on and frees its slot.
// It reports whether the key was present.
func (s *SkipList) Remove(key uint64) bool {
	var update [maxSkipListHeight]int32
	cand := s.findPredecessors(key, &update)
	if cand == 0 || s.nodes[cand].entry.Key != key {
		return false
	}

	for l := 0; l < s.nodes[cand].height; l++ {
		if s.nodes[update[l]].next[l] == cand {
			s.nodes[update[l]].next[l] = s.nodes[cand].next[l]
		}
	}
	s.release(cand)
	s.count--

	for s.height > 0 && s.nodes[0].next[s.height-1] == 0 {
		s.height--
	}
	return true
}

// Range returns the entries with lo <= key <= hi in ascending key order.
// Every call performs a fresh traversal.
func (s *SkipList) Range(lo, hi uint64) []Entry {
	if lo > hi {
		return nil
	}
	var out []Entry
	for x := s.seek(lo); x != 0 && s.nodes[x].entry.Key <= hi; x = s.nodes[x].next[0] {
		out = append(out, s.nodes[x].entry)
	}
	return out
}

// All returns every entry in ascending key order.
func (s *SkipList) All() []Entry {
	out := make([]Entry, 0, s.count)
	for x := s.nodes[0].next[0]; x != 0; x = s.nodes[x].next[0] {
		out = append(out, s.nodes[x].entry)
	}
	return out
}

// Len returns the number of entries.
func (s *SkipList) Len() int {
	return s.count
}

// Height returns the number of active levels.
func (s *SkipList) Height() int {
	return s.height
}

// Clear releases every node and resets the list to height 0.
func (s *SkipList) Clear() {
	s.nodes = s.nodes[:1]
	s.nodes[0] = skipNode{}
	s.free = s.free[:0]
	s.height = 0
	s.count = 0
}

// checkInvariants verifies ordering on every level and that each node on
// level L is also reachable on every level below L. Used by tests.
func (s *SkipList) checkInvariants() bool {
	below := make(map[int32]bool)
	for x := s.nodes[0].next[0]; x != 0; x = s.nodes[x].next[0] {
		below[x] = true
	}
	if len(below) != s.count {
		return false
	}
	for l := 0; l < s.height; l++ {
		seen := make(map[int32]bool)
		var prev int32
		for x := s.nodes[0].next[l]; x != 0; x = s.nodes[x].next[l] {
			if prev != 0 && s.nodes[prev].entry.Key >= s.nodes[x].entry.Key {
				return false
			}
			if !below[x] || s.nodes[x].height <= l {
				return false
			}
			seen[x] = true
			prev = x
		}
		below = seen
	}
	return true
}
