package lsm

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/dd0wney/cluso-kv/pkg/logging"
	"github.com/google/uuid"
)

// NewLSMStorage opens the store rooted at opts.DataDir, loading any tables
// left by a previous run.
func NewLSMStorage(opts LSMOptions) (*LSMStorage, error) {
	defaults := DefaultLSMOptions(opts.DataDir)
	if opts.TableSizeBudget <= 0 {
		opts.TableSizeBudget = defaults.TableSizeBudget
	}
	if opts.Level0TableLimit <= 0 {
		opts.Level0TableLimit = defaults.Level0TableLimit
	}
	if opts.MaxLevels <= 0 {
		opts.MaxLevels = defaults.MaxLevels
	}
	if opts.MaxLevels < 2 {
		return nil, fmt.Errorf("max levels must be at least 2, got %d", opts.MaxLevels)
	}
	if opts.Logger == nil {
		opts.Logger = logging.NewNopLogger()
	}

	// Create data directory
	if err := os.MkdirAll(opts.DataDir, 0755); err != nil {
		return nil, ioError("open", opts.DataDir, -1, err)
	}

	storeID := uuid.NewString()
	lsm := &LSMStorage{
		memTable:    NewMemTable(),
		cache:       NewBlockCache(opts.CacheEntries),
		dataDir:     opts.DataDir,
		tableBudget: opts.TableSizeBudget,
		strategy: &LeveledCompactionStrategy{
			Level0FileLimit: opts.Level0TableLimit,
			MaxLevels:       opts.MaxLevels,
		},
		compactor: NewCompactor(opts.DataDir, opts.TableSizeBudget),
		corrupt:   make(map[string]struct{}),
		logger:    opts.Logger.With(logging.Component("lsm"), logging.String("store_id", storeID)),
		metrics:   opts.Metrics,
		storeID:   storeID,
		openedAt:  time.Now(),
	}

	// Load existing SSTables
	if err := lsm.loadLevels(); err != nil {
		return nil, err
	}
	lsm.updateLevelMetrics()

	lsm.logger.Info("store opened",
		logging.Path(opts.DataDir),
		logging.Count(lsm.countSSTables()),
		logging.Timestamp(lsm.lastTimestamp))

	return lsm, nil
}

// Put writes a key-value pair. The memtable is flushed first if the entry
// would bring its serialized size to the table budget, and any level left
// over budget is compacted before Put returns.
func (lsm *LSMStorage) Put(key uint64, value string) error {
	start := time.Now()
	err := lsm.put(Entry{Key: key, Value: value})
	lsm.metrics.RecordOperation("put", err, time.Since(start))
	if err == nil {
		lsm.stats.WriteCount.Add(1)
		lsm.stats.BytesWritten.Add(int64(len(value)))
		lsm.metrics.RecordBytesWritten(len(value))
	}
	return err
}

func (lsm *LSMStorage) put(e Entry) error {
	if !e.Deleted && e.Value == TombstoneValue {
		return ErrReservedValue
	}
	if uint64(e.encodedLen()) > maxDataAreaSize {
		return ErrCapacityExceeded
	}

	lsm.mu.Lock()
	defer lsm.mu.Unlock()

	if lsm.closed {
		return ErrClosed
	}
	return lsm.putLocked(e)
}

func (lsm *LSMStorage) putLocked(e Entry) error {
	// Invalidate cache entry for this key (handles updates)
	lsm.cache.Delete(e.Key)

	flushed := false
	if lsm.memTable.WouldOverflow(e, lsm.tableBudget) {
		if err := lsm.flushLocked(); err != nil {
			return err
		}
		flushed = true
	}

	if e.Deleted {
		lsm.memTable.Delete(e.Key)
	} else {
		lsm.memTable.Put(e.Key, e.Value)
	}
	lsm.metrics.UpdateMemTable(lsm.memTable.Size())

	if !flushed {
		return nil
	}
	if err := lsm.compactLocked(); err != nil {
		return fmt.Errorf("write applied, compaction failed: %w", err)
	}
	return nil
}

// Get retrieves a value by key. A missing or deleted key is reported with
// found == false and a nil error. A table found corrupt is quarantined;
// its error is returned once, and only when no other source holds the key.
func (lsm *LSMStorage) Get(key uint64) (string, bool, error) {
	start := time.Now()

	lsm.mu.Lock()
	defer lsm.mu.Unlock()

	if lsm.closed {
		return "", false, ErrClosed
	}

	lsm.stats.ReadCount.Add(1)
	value, found, err := lsm.getLocked(key)
	lsm.metrics.RecordOperation("get", err, time.Since(start))
	return value, found, err
}

func (lsm *LSMStorage) getLocked(key uint64) (string, bool, error) {
	// 1. The memtable is authoritative for every key it holds
	if entry, ok := lsm.memTable.Get(key); ok {
		if entry.Deleted {
			return "", false, nil
		}
		return entry.Value, true, nil
	}

	// 2. Values already read from tables
	if value, ok := lsm.cache.Get(key); ok {
		lsm.metrics.RecordCacheLookup(true)
		return value, true, nil
	}
	lsm.metrics.RecordCacheLookup(false)

	// 3. Level 0 newest first, then one table per deeper level
	var firstErr error
	for level := range lsm.levels {
		for _, sst := range lsm.lookupCandidates(level, key) {
			entry, ok, err := sst.Get(key)
			if err != nil {
				if IsCorrupt(err) {
					lsm.noteCorrupt(sst.Path(), sst.Level(), err)
				}
				if firstErr == nil {
					firstErr = err
				}
				continue
			}
			if !ok {
				continue
			}
			if entry.Deleted {
				return "", false, nil
			}
			lsm.cache.Put(key, entry.Value)
			return entry.Value, true, nil
		}
	}

	return "", false, firstErr
}

// lookupCandidates returns the tables of level that may hold key, most
// recent first.
func (lsm *LSMStorage) lookupCandidates(level int, key uint64) []*SSTable {
	tables := lsm.levels[level]
	if level == 0 {
		candidates := make([]*SSTable, 0, len(tables))
		for i := len(tables) - 1; i >= 0; i-- {
			if key >= tables[i].MinKey() && key <= tables[i].MaxKey() {
				candidates = append(candidates, tables[i])
			}
		}
		return candidates
	}

	// Deeper levels hold disjoint tables sorted by min key
	i := sort.Search(len(tables), func(i int) bool {
		return tables[i].MaxKey() >= key
	})
	if i < len(tables) && tables[i].MinKey() <= key {
		return tables[i : i+1]
	}
	return nil
}

// Delete removes a key, reporting whether a live value existed. A
// tombstone is written only when one did.
func (lsm *LSMStorage) Delete(key uint64) (bool, error) {
	start := time.Now()

	lsm.mu.Lock()
	defer lsm.mu.Unlock()

	if lsm.closed {
		return false, ErrClosed
	}

	_, existed, err := lsm.getLocked(key)
	if err == nil && existed {
		err = lsm.putLocked(Entry{Key: key, Deleted: true})
	}
	lsm.metrics.RecordOperation("delete", err, time.Since(start))
	if err != nil {
		return false, err
	}

	lsm.stats.DeleteCount.Add(1)
	return existed, nil
}

// Scan returns all live key-value pairs in range [lo, hi], ascending by
// key. The newest version of each key wins and deleted keys are omitted.
func (lsm *LSMStorage) Scan(lo, hi uint64) ([]KV, error) {
	start := time.Now()

	lsm.mu.Lock()
	defer lsm.mu.Unlock()

	if lsm.closed {
		return nil, ErrClosed
	}

	lsm.stats.ScanCount.Add(1)
	results, err := lsm.scanLocked(lo, hi)
	lsm.metrics.RecordOperation("scan", err, time.Since(start))
	return results, err
}

func (lsm *LSMStorage) scanLocked(lo, hi uint64) ([]KV, error) {
	results := make([]KV, 0)
	if lo > hi {
		return results, nil
	}

	// Runs ordered newest first: memtable, level 0 newest first, deeper levels
	runs := [][]Entry{lsm.memTable.Scan(lo, hi)}
	for level := range lsm.levels {
		tables := lsm.levels[level]
		for i := range tables {
			sst := tables[i]
			if level == 0 {
				sst = tables[len(tables)-1-i]
			}
			if !sst.Overlaps(lo, hi) {
				continue
			}

			entries, err := sst.Scan(lo, hi)
			if err != nil {
				if IsCorrupt(err) {
					lsm.noteCorrupt(sst.Path(), sst.Level(), err)
				}
				return nil, err
			}
			runs = append(runs, entries)
		}
	}

	it := NewMergeIterator(runs)
	for {
		entry, ok := it.Next()
		if !ok {
			break
		}
		if !entry.Deleted {
			results = append(results, KV{Key: entry.Key, Value: entry.Value})
		}
	}
	return results, nil
}

// Reset discards every key: the memtable is cleared and all table files
// and level directories are removed.
func (lsm *LSMStorage) Reset() error {
	start := time.Now()

	lsm.mu.Lock()
	defer lsm.mu.Unlock()

	if lsm.closed {
		return ErrClosed
	}

	err := lsm.resetLocked()
	lsm.metrics.RecordOperation("reset", err, time.Since(start))
	return err
}

func (lsm *LSMStorage) resetLocked() error {
	lsm.memTable.Clear()
	lsm.cache.Clear()

	dirs, err := os.ReadDir(lsm.dataDir)
	if err != nil {
		return ioError("reset", lsm.dataDir, -1, err)
	}

	var errs []error
	for _, d := range dirs {
		level, ok := parseLevelDir(d.Name())
		if !ok || !d.IsDir() {
			continue
		}
		if err := os.RemoveAll(LevelDir(lsm.dataDir, level)); err != nil {
			errs = append(errs, ioError("reset", LevelDir(lsm.dataDir, level), level, err))
		}
	}

	lsm.levels = make([][]*SSTable, lsm.strategy.MaxLevels)
	lsm.corrupt = make(map[string]struct{})
	lsm.lastTimestamp = 0
	lsm.stats.reset()
	lsm.metrics.UpdateMemTable(0)
	lsm.updateLevelMetrics()

	lsm.logger.Info("store reset", logging.Path(lsm.dataDir))
	return errors.Join(errs...)
}

// Flush writes the memtable to a new level-0 table and compacts any level
// left over budget.
func (lsm *LSMStorage) Flush() error {
	lsm.mu.Lock()
	defer lsm.mu.Unlock()

	if lsm.closed {
		return ErrClosed
	}
	if err := lsm.flushLocked(); err != nil {
		return err
	}
	return lsm.compactLocked()
}

// Compact runs compaction until every level is within its budget.
func (lsm *LSMStorage) Compact() error {
	lsm.mu.Lock()
	defer lsm.mu.Unlock()

	if lsm.closed {
		return ErrClosed
	}
	return lsm.compactLocked()
}

// CompactAll flushes the memtable and pushes every table down to the
// deepest level, dropping tombstones and shadowed versions on the way.
func (lsm *LSMStorage) CompactAll() error {
	lsm.mu.Lock()
	defer lsm.mu.Unlock()

	if lsm.closed {
		return ErrClosed
	}
	if err := lsm.flushLocked(); err != nil {
		return err
	}

	for level := 0; level < lsm.strategy.MaxLevels-1; {
		plan := lsm.strategy.PlanLevel(lsm.levels, level)
		if plan == nil {
			level++
			continue
		}
		retry, err := lsm.runCompaction(plan)
		if err != nil {
			return err
		}
		if !retry {
			level++
		}
	}
	return nil
}

// Close flushes pending writes and releases the store. If the final flush
// fails the store stays open so the caller can retry.
func (lsm *LSMStorage) Close() error {
	lsm.mu.Lock()
	defer lsm.mu.Unlock()

	if lsm.closed {
		return nil // Already closed
	}

	// Final flush
	if err := lsm.flushLocked(); err != nil {
		return fmt.Errorf("final flush failed: %w", err)
	}
	if err := lsm.compactLocked(); err != nil {
		lsm.logger.Warn("compaction on close failed", logging.Error(err))
	}

	lsm.closed = true
	lsm.cache.Clear()
	lsm.metrics.UpdateSystemMetrics(lsm.openedAt)
	lsm.logger.Info("store closed", logging.Count(lsm.countSSTables()))
	return nil
}

// GetStats returns current statistics as a snapshot
func (lsm *LSMStorage) GetStats() LSMStatsSnapshot {
	lsm.mu.Lock()
	memTableSize := lsm.memTable.Size()
	memTableEntries := lsm.memTable.Len()
	ssTableCount := lsm.countSSTables()
	level0Count := len(lsm.levels[0])
	lsm.mu.Unlock()

	hits, misses, _ := lsm.cache.Stats()

	return LSMStatsSnapshot{
		StoreID:         lsm.storeID,
		WriteCount:      lsm.stats.WriteCount.Load(),
		ReadCount:       lsm.stats.ReadCount.Load(),
		DeleteCount:     lsm.stats.DeleteCount.Load(),
		ScanCount:       lsm.stats.ScanCount.Load(),
		FlushCount:      lsm.stats.FlushCount.Load(),
		CompactionCount: lsm.stats.CompactionCount.Load(),
		BytesWritten:    lsm.stats.BytesWritten.Load(),
		KeysRemoved:     lsm.stats.KeysRemoved.Load(),
		OrphanedTables:  lsm.stats.OrphanedTables.Load(),
		CorruptTables:   lsm.stats.CorruptTables.Load(),
		MemTableSize:    memTableSize,
		MemTableEntries: memTableEntries,
		SSTableCount:    ssTableCount,
		Level0FileCount: level0Count,
		CacheHits:       hits,
		CacheMisses:     misses,
	}
}

// Levels summarizes every level, including empty ones
func (lsm *LSMStorage) Levels() []LevelInfo {
	lsm.mu.Lock()
	defer lsm.mu.Unlock()

	infos := make([]LevelInfo, len(lsm.levels))
	for level, tables := range lsm.levels {
		info := LevelInfo{Level: level, Tables: len(tables)}
		if level < lsm.strategy.MaxLevels-1 {
			info.Budget = lsm.strategy.Budget(level)
		}
		if len(tables) > 0 {
			info.MinKey, info.MaxKey = keySpan(tables)
		}
		for _, sst := range tables {
			info.Bytes += sst.Size()
			info.Entries += sst.EntryCount()
		}
		infos[level] = info
	}
	return infos
}

// DataDir returns the directory the store lives in
func (lsm *LSMStorage) DataDir() string {
	return lsm.dataDir
}

// countSSTables returns total number of SSTables
func (lsm *LSMStorage) countSSTables() int {
	count := 0
	for _, level := range lsm.levels {
		count += len(level)
	}
	return count
}
