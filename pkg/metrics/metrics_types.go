package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Registry holds all metrics for the storage engine
type Registry struct {
	// Operation Metrics
	OperationsTotal   *prometheus.CounterVec
	OperationDuration *prometheus.HistogramVec
	BytesWritten      prometheus.Counter

	// Flush Metrics
	FlushesTotal      *prometheus.CounterVec
	FlushDuration     prometheus.Histogram
	FlushedTableBytes prometheus.Histogram
	MemTableBytes     prometheus.Gauge

	// Compaction Metrics
	CompactionsTotal      *prometheus.CounterVec
	CompactionDuration    *prometheus.HistogramVec
	CompactionKeysRemoved prometheus.Counter
	OrphanedTablesTotal   prometheus.Counter
	CorruptTablesTotal    prometheus.Counter

	// Level Metrics
	LevelTables *prometheus.GaugeVec
	LevelBytes  *prometheus.GaugeVec

	// Cache Metrics
	CacheLookupsTotal *prometheus.CounterVec

	// System Metrics
	UptimeSeconds    prometheus.Gauge
	GoRoutines       prometheus.Gauge
	MemoryAllocBytes prometheus.Gauge

	registry *prometheus.Registry
	mu       sync.Mutex
}

var (
	// Global registry instance
	defaultRegistry *Registry
	once            sync.Once
)
