package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// DefaultRegistry returns the global metrics registry
func DefaultRegistry() *Registry {
	once.Do(func() {
		defaultRegistry = NewRegistry()
	})
	return defaultRegistry
}

// NewRegistry creates a new metrics registry with all metrics initialized
func NewRegistry() *Registry {
	r := &Registry{
		registry: prometheus.NewRegistry(),
	}

	r.initOperationMetrics()
	r.initFlushMetrics()
	r.initCompactionMetrics()
	r.initLevelMetrics()
	r.initSystemMetrics()

	return r
}

// GetPrometheusRegistry returns the underlying Prometheus registry
func (r *Registry) GetPrometheusRegistry() *prometheus.Registry {
	return r.registry
}

// All Record and Update methods accept a nil receiver so callers can run
// without metrics.

// RecordOperation records a put, get, delete, scan or reset
func (r *Registry) RecordOperation(operation string, err error, duration time.Duration) {
	if r == nil {
		return
	}
	r.OperationsTotal.WithLabelValues(operation, status(err)).Inc()
	r.OperationDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// RecordBytesWritten counts value bytes accepted by put
func (r *Registry) RecordBytesWritten(n int) {
	if r == nil {
		return
	}
	r.BytesWritten.Add(float64(n))
}

// RecordFlush records one memtable flush
func (r *Registry) RecordFlush(err error, duration time.Duration, tableBytes int64) {
	if r == nil {
		return
	}
	r.FlushesTotal.WithLabelValues(status(err)).Inc()
	if err == nil {
		r.FlushDuration.Observe(duration.Seconds())
		r.FlushedTableBytes.Observe(float64(tableBytes))
	}
}

// RecordCompaction records one compaction round out of level
func (r *Registry) RecordCompaction(level int, err error, duration time.Duration, keysRemoved int64) {
	if r == nil {
		return
	}
	lvl := strconv.Itoa(level)
	r.CompactionsTotal.WithLabelValues(lvl, status(err)).Inc()
	r.CompactionDuration.WithLabelValues(lvl).Observe(duration.Seconds())
	r.CompactionKeysRemoved.Add(float64(keysRemoved))
}

// RecordOrphanedTable counts an input table whose file survived compaction
func (r *Registry) RecordOrphanedTable() {
	if r == nil {
		return
	}
	r.OrphanedTablesTotal.Inc()
}

// RecordCorruptTable counts a table first found corrupt
func (r *Registry) RecordCorruptTable() {
	if r == nil {
		return
	}
	r.CorruptTablesTotal.Inc()
}

// RecordCacheLookup counts a value cache hit or miss
func (r *Registry) RecordCacheLookup(hit bool) {
	if r == nil {
		return
	}
	if hit {
		r.CacheLookupsTotal.WithLabelValues("hit").Inc()
	} else {
		r.CacheLookupsTotal.WithLabelValues("miss").Inc()
	}
}

// UpdateLevels sets the per-level gauges. Levels past the end of the
// slices are reset to zero up to maxLevels.
func (r *Registry) UpdateLevels(tables []int, bytes []int64, maxLevels int) {
	if r == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	for level := 0; level < maxLevels; level++ {
		lvl := strconv.Itoa(level)
		var count int
		var size int64
		if level < len(tables) {
			count, size = tables[level], bytes[level]
		}
		r.LevelTables.WithLabelValues(lvl).Set(float64(count))
		r.LevelBytes.WithLabelValues(lvl).Set(float64(size))
	}
}

// UpdateMemTable sets the memtable size gauge
func (r *Registry) UpdateMemTable(bytes int) {
	if r == nil {
		return
	}
	r.MemTableBytes.Set(float64(bytes))
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}
