package lsm

import (
	"errors"
	"sort"
)

// Compactor performs SSTable compaction
type Compactor struct {
	dataDir     string
	tableBudget int // Max table file size in bytes
}

// NewCompactor creates a new compactor
func NewCompactor(dataDir string, tableBudget int) *Compactor {
	return &Compactor{
		dataDir:     dataDir,
		tableBudget: tableBudget,
	}
}

// Compact merges the plan's inputs into new tables for the output level.
// When one key appears in several inputs, the most recent table wins: a
// shallower level beats a deeper one, and within a level the larger
// timestamp wins. Tombstones are dropped when dropTombstones is set.
//
// Each output table gets a fresh timestamp from nextTimestamp. If any
// output fails to write, outputs written so far are removed and the inputs
// are left untouched.
func (c *Compactor) Compact(plan *CompactionPlan, dropTombstones bool, nextTimestamp func() uint64) ([]*SSTable, CompactionStats, error) {
	var stats CompactionStats
	if plan == nil || len(plan.Inputs()) == 0 {
		return nil, stats, nil
	}

	runs, err := decodeRuns(plan)
	if err != nil {
		return nil, stats, err
	}
	stats.TablesRead = len(runs)
	for _, run := range runs {
		stats.EntriesRead += int64(len(run))
	}

	it := NewMergeIterator(runs)
	outputs := make([]*SSTable, 0)
	batch := make([]Entry, 0)
	batchBytes := 0

	flushBatch := func() error {
		ts := nextTimestamp()
		sst, err := WriteSSTable(SSTablePath(c.dataDir, plan.OutputLevel, ts), plan.OutputLevel, ts, batch)
		if err != nil {
			return err
		}
		outputs = append(outputs, sst)
		stats.EntriesWritten += int64(len(batch))
		batch = make([]Entry, 0)
		batchBytes = 0
		return nil
	}

	for {
		entry, ok := it.Next()
		if !ok {
			break
		}
		if entry.Deleted && dropTombstones {
			stats.KeysRemoved++
			continue
		}

		if len(batch) > 0 && TableSize(len(batch)+1, batchBytes+entry.encodedLen()) >= c.tableBudget {
			if err := flushBatch(); err != nil {
				return nil, stats, c.abort(outputs, err)
			}
		}
		batch = append(batch, entry)
		batchBytes += entry.encodedLen()
	}

	// Flush remaining entries
	if len(batch) > 0 {
		if err := flushBatch(); err != nil {
			return nil, stats, c.abort(outputs, err)
		}
	}

	stats.KeysRemoved += it.Shadowed()
	stats.TablesWritten = len(outputs)
	return outputs, stats, nil
}

// abort removes the outputs of a failed round
func (c *Compactor) abort(outputs []*SSTable, cause error) error {
	errs := []error{cause}
	for _, sst := range outputs {
		if err := sst.Delete(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// decodeRuns reads every input table fully, ordered by recency: inputs of
// the upper level first, newest timestamp first within a level.
func decodeRuns(plan *CompactionPlan) ([][]Entry, error) {
	ordered := make([]*SSTable, 0, len(plan.SSTables)+len(plan.Overlapping))
	ordered = append(ordered, newestFirst(plan.SSTables)...)
	ordered = append(ordered, newestFirst(plan.Overlapping)...)

	runs := make([][]Entry, 0, len(ordered))
	for _, sst := range ordered {
		entries, err := sst.Entries()
		if err != nil {
			return nil, err
		}
		runs = append(runs, entries)
	}
	return runs, nil
}

// newestFirst returns a copy of tables sorted by descending timestamp
func newestFirst(tables []*SSTable) []*SSTable {
	sorted := append([]*SSTable(nil), tables...)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Timestamp() > sorted[j].Timestamp()
	})
	return sorted
}

// CleanupOldSSTables removes input tables after their replacements are
// installed. Every table is attempted; failures are returned per table so
// the caller can report orphans without aborting.
func (c *Compactor) CleanupOldSSTables(sstables []*SSTable) []error {
	var errs []error
	for _, sst := range sstables {
		if err := sst.Delete(); err != nil {
			errs = append(errs, err)
		}
	}
	return errs
}
