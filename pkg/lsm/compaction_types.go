package lsm

import (
	"sort"
)

// CompactionPlan describes which SSTables to compact
type CompactionPlan struct {
	Level       int
	SSTables    []*SSTable // Inputs taken from Level
	Overlapping []*SSTable // Inputs taken from OutputLevel
	OutputLevel int
}

// Inputs returns every table the plan consumes
func (p *CompactionPlan) Inputs() []*SSTable {
	inputs := make([]*SSTable, 0, len(p.SSTables)+len(p.Overlapping))
	inputs = append(inputs, p.SSTables...)
	return append(inputs, p.Overlapping...)
}

// LeveledCompactionStrategy implements leveled compaction
// - Level 0: overlapping SSTables straight from MemTable flushes, bounded by a table count
// - Level L >= 1: non-overlapping SSTables, at most 2^(L+2) tables
// - Level MaxLevels-1 is unbounded and never compacted further
type LeveledCompactionStrategy struct {
	Level0FileLimit int // Max files in L0 before compaction
	MaxLevels       int // Maximum number of levels
}

// DefaultLeveledCompaction returns default leveled compaction config
func DefaultLeveledCompaction() *LeveledCompactionStrategy {
	return &LeveledCompactionStrategy{
		Level0FileLimit: 2,
		MaxLevels:       7,
	}
}

// Budget returns the table count a level may hold before it is compacted
func (lcs *LeveledCompactionStrategy) Budget(level int) int {
	if level == 0 {
		return lcs.Level0FileLimit
	}
	return 1 << (level + 2)
}

// SelectCompaction picks the shallowest level over its budget
func (lcs *LeveledCompactionStrategy) SelectCompaction(levels [][]*SSTable) *CompactionPlan {
	for level := 0; level < len(levels) && level < lcs.MaxLevels-1; level++ {
		excess := len(levels[level]) - lcs.Budget(level)
		if excess <= 0 {
			continue
		}

		var inputs []*SSTable
		if level == 0 {
			inputs = levels[0]
		} else {
			inputs = oldestTables(levels[level], excess)
		}
		return planFor(levels, level, inputs)
	}

	return nil // No compaction needed
}

// PlanLevel builds a plan moving every table of level into level+1
func (lcs *LeveledCompactionStrategy) PlanLevel(levels [][]*SSTable, level int) *CompactionPlan {
	if level >= len(levels) || level >= lcs.MaxLevels-1 || len(levels[level]) == 0 {
		return nil
	}
	return planFor(levels, level, levels[level])
}

// planFor adds every next-level table intersecting the inputs' key span
func planFor(levels [][]*SSTable, level int, inputs []*SSTable) *CompactionPlan {
	plan := &CompactionPlan{
		Level:       level,
		SSTables:    append([]*SSTable(nil), inputs...),
		OutputLevel: level + 1,
	}

	lo, hi := keySpan(inputs)
	if level+1 < len(levels) {
		for _, sst := range levels[level+1] {
			if sst.Overlaps(lo, hi) {
				plan.Overlapping = append(plan.Overlapping, sst)
			}
		}
	}
	return plan
}

// oldestTables returns the n tables with the smallest (timestamp, min key)
func oldestTables(tables []*SSTable, n int) []*SSTable {
	sorted := append([]*SSTable(nil), tables...)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].Timestamp() != sorted[j].Timestamp() {
			return sorted[i].Timestamp() < sorted[j].Timestamp()
		}
		return sorted[i].MinKey() < sorted[j].MinKey()
	})
	return sorted[:n]
}

// keySpan returns the smallest min key and largest max key of tables
func keySpan(tables []*SSTable) (uint64, uint64) {
	lo, hi := tables[0].MinKey(), tables[0].MaxKey()
	for _, sst := range tables[1:] {
		lo = min(lo, sst.MinKey())
		hi = max(hi, sst.MaxKey())
	}
	return lo, hi
}

// CompactionStats tracks compaction metrics
type CompactionStats struct {
	TablesRead     int
	TablesWritten  int
	EntriesRead    int64
	EntriesWritten int64
	KeysRemoved    int64 // Shadowed duplicates and expired tombstones
}
