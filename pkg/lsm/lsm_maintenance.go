package lsm

import (
	"errors"
	"os"
	"sort"
	"time"

	"github.com/dd0wney/cluso-kv/pkg/logging"
)

// allocTimestamp returns the next table timestamp. Timestamps only grow,
// so a larger one always means a more recently written table.
func (lsm *LSMStorage) allocTimestamp() uint64 {
	lsm.lastTimestamp++
	return lsm.lastTimestamp
}

// flushLocked writes the memtable to a new level-0 table. On failure the
// memtable is kept intact.
func (lsm *LSMStorage) flushLocked() error {
	entries := lsm.memTable.Iterator()
	if len(entries) == 0 {
		return nil
	}

	start := time.Now()
	ts := lsm.allocTimestamp()
	timer := logging.StartTimer(lsm.logger, "memtable flushed", logging.Count(len(entries)), logging.Timestamp(ts))

	sst, err := WriteSSTable(SSTablePath(lsm.dataDir, 0, ts), 0, ts, entries)
	if err != nil {
		timer.EndError(err)
		lsm.metrics.RecordFlush(err, time.Since(start), 0)
		return err
	}

	// Full slice expression forces a copy so earlier plans keep their view
	l0 := lsm.levels[0]
	lsm.levels[0] = append(l0[:len(l0):len(l0)], sst)
	lsm.memTable.Clear()

	lsm.stats.FlushCount.Add(1)
	timer.End(logging.Table(sst.Path()), logging.Int64("bytes", sst.Size()))
	lsm.metrics.RecordFlush(nil, time.Since(start), sst.Size())
	lsm.metrics.UpdateMemTable(0)
	lsm.updateLevelMetrics()
	return nil
}

// compactLocked compacts the shallowest over-budget level until none is
// left. A round only adds tables below the level it fixes, so the loop
// runs at most once per level. Rounds that quarantined a corrupt input
// are planned again and do not count; each removes a table, so they are
// bounded by the table count.
func (lsm *LSMStorage) compactLocked() error {
	rounds := 0
	for rounds < lsm.strategy.MaxLevels {
		plan := lsm.strategy.SelectCompaction(lsm.levels)
		if plan == nil {
			return nil
		}
		retry, err := lsm.runCompaction(plan)
		if err != nil {
			return err
		}
		if !retry {
			rounds++
		}
	}
	return nil
}

// runCompaction executes one plan: write the outputs, install them in a
// fresh level set, then delete the inputs. Input files that cannot be
// deleted are reported as orphans and do not fail the round. A corrupt
// input is quarantined and retry is reported so the caller plans again
// without it.
func (lsm *LSMStorage) runCompaction(plan *CompactionPlan) (retry bool, err error) {
	start := time.Now()
	dropTombstones := lsm.isLastLevel(plan.OutputLevel)
	timer := logging.StartTimer(lsm.logger, "compaction finished",
		logging.TableLevel(plan.Level),
		logging.Int("output_level", plan.OutputLevel),
		logging.Count(len(plan.Inputs())),
		logging.Bool("drop_tombstones", dropTombstones))

	outputs, stats, err := lsm.compactor.Compact(plan, dropTombstones, lsm.allocTimestamp)
	if err != nil {
		timer.EndError(err)
		lsm.metrics.RecordCompaction(plan.Level, err, time.Since(start), 0)
		var tableErr *TableError
		if errors.As(err, &tableErr) && IsCorrupt(tableErr) && lsm.noteCorrupt(tableErr.Path, tableErr.Level, tableErr) {
			return true, nil
		}
		return false, err
	}

	lsm.install(plan, outputs)
	lsm.stats.CompactionCount.Add(1)
	lsm.stats.KeysRemoved.Add(stats.KeysRemoved)

	for _, err := range lsm.compactor.CleanupOldSSTables(plan.Inputs()) {
		lsm.logger.Warn("failed to delete compacted table", logging.Error(err))
		lsm.stats.OrphanedTables.Add(1)
		lsm.metrics.RecordOrphanedTable()
	}

	timer.End(
		logging.Int("tables_written", stats.TablesWritten),
		logging.Int64("entries_written", stats.EntriesWritten),
		logging.Int64("keys_removed", stats.KeysRemoved))
	lsm.metrics.RecordCompaction(plan.Level, nil, time.Since(start), stats.KeysRemoved)
	lsm.updateLevelMetrics()
	return false, nil
}

// install swaps the plan's inputs for its outputs using copy-on-write:
// the level set and both touched levels are rebuilt, never edited.
func (lsm *LSMStorage) install(plan *CompactionPlan, outputs []*SSTable) {
	newLevels := make([][]*SSTable, len(lsm.levels))
	copy(newLevels, lsm.levels)

	newLevels[plan.Level] = without(lsm.levels[plan.Level], plan.SSTables)

	out := without(lsm.levels[plan.OutputLevel], plan.Overlapping)
	out = append(out, outputs...)
	sortByMinKey(out)
	newLevels[plan.OutputLevel] = out

	lsm.levels = newLevels
}

// isLastLevel reports whether tombstones written to level can be dropped:
// either nothing deeper holds a table or level is the deepest one.
func (lsm *LSMStorage) isLastLevel(level int) bool {
	if level >= lsm.strategy.MaxLevels-1 {
		return true
	}
	for deeper := level + 1; deeper < len(lsm.levels); deeper++ {
		if len(lsm.levels[deeper]) > 0 {
			return false
		}
	}
	return true
}

// noteCorrupt records a table found corrupt and quarantines it. The first
// failure per table is logged as a warning and counted. It reports whether
// the table was removed from the level set.
func (lsm *LSMStorage) noteCorrupt(path string, level int, err error) bool {
	if _, seen := lsm.corrupt[path]; !seen {
		lsm.corrupt[path] = struct{}{}
		lsm.stats.CorruptTables.Add(1)
		lsm.metrics.RecordCorruptTable()
		lsm.logger.Warn("corrupt table", logging.Table(path), logging.TableLevel(level), logging.Error(err))
	}
	return lsm.quarantine(path)
}

// quarantine drops the table at path from the level set (copy on write)
// and renames its file with corruptExt so later opens ignore it. Cached
// values are cleared since some may have come from the table.
func (lsm *LSMStorage) quarantine(path string) bool {
	removed := false
	newLevels := make([][]*SSTable, len(lsm.levels))
	for level, tables := range lsm.levels {
		newLevels[level] = tables
		for i, sst := range tables {
			if sst.Path() == path {
				newLevels[level] = without(tables, tables[i:i+1])
				removed = true
				break
			}
		}
	}

	if err := os.Rename(path, path+corruptExt); err != nil {
		lsm.logger.Warn("failed to rename corrupt table", logging.Table(path), logging.Error(err))
	} else {
		lsm.logger.Warn("table quarantined", logging.Table(path), logging.Path(path+corruptExt))
	}

	if removed {
		lsm.levels = newLevels
		lsm.cache.Clear()
		lsm.updateLevelMetrics()
	}
	return removed
}

func (lsm *LSMStorage) updateLevelMetrics() {
	if lsm.metrics == nil {
		return
	}
	tables := make([]int, len(lsm.levels))
	bytes := make([]int64, len(lsm.levels))
	for level, ssts := range lsm.levels {
		tables[level] = len(ssts)
		for _, sst := range ssts {
			bytes[level] += sst.Size()
		}
	}
	lsm.metrics.UpdateLevels(tables, bytes, len(lsm.levels))
}

// without returns a new slice holding tables not in remove
func without(tables, remove []*SSTable) []*SSTable {
	drop := make(map[*SSTable]struct{}, len(remove))
	for _, sst := range remove {
		drop[sst] = struct{}{}
	}
	kept := make([]*SSTable, 0, len(tables))
	for _, sst := range tables {
		if _, ok := drop[sst]; !ok {
			kept = append(kept, sst)
		}
	}
	return kept
}

func sortByMinKey(tables []*SSTable) {
	sort.Slice(tables, func(i, j int) bool {
		return tables[i].MinKey() < tables[j].MinKey()
	})
}

func sortByTimestamp(tables []*SSTable) {
	sort.Slice(tables, func(i, j int) bool {
		return tables[i].Timestamp() < tables[j].Timestamp()
	})
}
