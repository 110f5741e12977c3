package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var latencyBuckets = []float64{0.00001, 0.0001, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0, 5.0}

func (r *Registry) initOperationMetrics() {
	r.OperationsTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "lsmkv_operations_total",
			Help: "Total number of store operations",
		},
		[]string{"operation", "status"},
	)

	r.OperationDuration = promauto.With(r.registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "lsmkv_operation_duration_seconds",
			Help:    "Store operation duration in seconds, including inline flush and compaction",
			Buckets: latencyBuckets,
		},
		[]string{"operation"},
	)

	r.BytesWritten = promauto.With(r.registry).NewCounter(
		prometheus.CounterOpts{
			Name: "lsmkv_bytes_written_total",
			Help: "Value bytes accepted by put",
		},
	)

	r.CacheLookupsTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "lsmkv_cache_lookups_total",
			Help: "Value cache lookups by result",
		},
		[]string{"result"},
	)
}

func (r *Registry) initFlushMetrics() {
	r.FlushesTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "lsmkv_flushes_total",
			Help: "Memtable flushes by status",
		},
		[]string{"status"},
	)

	r.FlushDuration = promauto.With(r.registry).NewHistogram(
		prometheus.HistogramOpts{
			Name:    "lsmkv_flush_duration_seconds",
			Help:    "Time to write a memtable to a level-0 table",
			Buckets: latencyBuckets,
		},
	)

	r.FlushedTableBytes = promauto.With(r.registry).NewHistogram(
		prometheus.HistogramOpts{
			Name:    "lsmkv_flushed_table_bytes",
			Help:    "Size of tables produced by flush",
			Buckets: prometheus.ExponentialBuckets(16*1024, 2, 10),
		},
	)

	r.MemTableBytes = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "lsmkv_memtable_bytes",
			Help: "Serialized size the memtable would flush to",
		},
	)
}

func (r *Registry) initCompactionMetrics() {
	r.CompactionsTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "lsmkv_compactions_total",
			Help: "Compaction rounds by source level and status",
		},
		[]string{"level", "status"},
	)

	r.CompactionDuration = promauto.With(r.registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "lsmkv_compaction_duration_seconds",
			Help:    "Compaction round duration by source level",
			Buckets: latencyBuckets,
		},
		[]string{"level"},
	)

	r.CompactionKeysRemoved = promauto.With(r.registry).NewCounter(
		prometheus.CounterOpts{
			Name: "lsmkv_compaction_keys_removed_total",
			Help: "Shadowed versions and expired tombstones dropped by compaction",
		},
	)

	r.OrphanedTablesTotal = promauto.With(r.registry).NewCounter(
		prometheus.CounterOpts{
			Name: "lsmkv_orphaned_tables_total",
			Help: "Compaction inputs whose files could not be deleted",
		},
	)

	r.CorruptTablesTotal = promauto.With(r.registry).NewCounter(
		prometheus.CounterOpts{
			Name: "lsmkv_corrupt_tables_total",
			Help: "Distinct tables found corrupt on read or load",
		},
	)
}

func (r *Registry) initLevelMetrics() {
	r.LevelTables = promauto.With(r.registry).NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "lsmkv_level_tables",
			Help: "Number of tables per level",
		},
		[]string{"level"},
	)

	r.LevelBytes = promauto.With(r.registry).NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "lsmkv_level_bytes",
			Help: "Total table file bytes per level",
		},
		[]string{"level"},
	)
}
