package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func counterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	var metric dto.Metric
	if err := c.Write(&metric); err != nil {
		t.Fatalf("Failed to write metric: %v", err)
	}
	return metric.Counter.GetValue()
}

func gaugeValue(t *testing.T, g prometheus.Gauge) float64 {
	t.Helper()
	var metric dto.Metric
	if err := g.Write(&metric); err != nil {
		t.Fatalf("Failed to write metric: %v", err)
	}
	return metric.Gauge.GetValue()
}

func TestNewRegistry(t *testing.T) {
	r := NewRegistry()
	if r == nil {
		t.Fatal("NewRegistry() returned nil")
	}

	if r.OperationsTotal == nil || r.FlushesTotal == nil || r.CompactionsTotal == nil {
		t.Error("storage metrics not initialized")
	}
	if r.LevelTables == nil || r.UptimeSeconds == nil {
		t.Error("level or system metrics not initialized")
	}
	if r.GetPrometheusRegistry() == nil {
		t.Error("Prometheus registry not initialized")
	}
}

func TestDefaultRegistry(t *testing.T) {
	// Should return the same instance
	if DefaultRegistry() != DefaultRegistry() {
		t.Error("DefaultRegistry() should return the same instance")
	}
}

func TestRecordOperation(t *testing.T) {
	r := NewRegistry()

	r.RecordOperation("put", nil, time.Millisecond)
	r.RecordOperation("put", nil, 2*time.Millisecond)
	r.RecordOperation("put", errors.New("disk full"), time.Millisecond)

	if got := counterValue(t, r.OperationsTotal.WithLabelValues("put", "success")); got != 2 {
		t.Errorf("success counter = %v, want 2", got)
	}
	if got := counterValue(t, r.OperationsTotal.WithLabelValues("put", "error")); got != 1 {
		t.Errorf("error counter = %v, want 1", got)
	}
}

func TestRecordFlushAndCompaction(t *testing.T) {
	r := NewRegistry()

	r.RecordFlush(nil, 10*time.Millisecond, 64*1024)
	r.RecordFlush(errors.New("io"), time.Millisecond, 0)
	r.RecordCompaction(0, nil, 50*time.Millisecond, 17)
	r.RecordOrphanedTable()
	r.RecordCorruptTable()

	if got := counterValue(t, r.FlushesTotal.WithLabelValues("success")); got != 1 {
		t.Errorf("flush success = %v, want 1", got)
	}
	if got := counterValue(t, r.FlushesTotal.WithLabelValues("error")); got != 1 {
		t.Errorf("flush error = %v, want 1", got)
	}
	if got := counterValue(t, r.CompactionsTotal.WithLabelValues("0", "success")); got != 1 {
		t.Errorf("compactions = %v, want 1", got)
	}
	if got := counterValue(t, r.CompactionKeysRemoved); got != 17 {
		t.Errorf("keys removed = %v, want 17", got)
	}
	if got := counterValue(t, r.OrphanedTablesTotal); got != 1 {
		t.Errorf("orphans = %v, want 1", got)
	}
	if got := counterValue(t, r.CorruptTablesTotal); got != 1 {
		t.Errorf("corrupt = %v, want 1", got)
	}
}

func TestUpdateLevels(t *testing.T) {
	r := NewRegistry()

	r.UpdateLevels([]int{2, 5}, []int64{100, 500}, 4)

	if got := gaugeValue(t, r.LevelTables.WithLabelValues("1")); got != 5 {
		t.Errorf("level 1 tables = %v, want 5", got)
	}
	if got := gaugeValue(t, r.LevelBytes.WithLabelValues("0")); got != 100 {
		t.Errorf("level 0 bytes = %v, want 100", got)
	}
	if got := gaugeValue(t, r.LevelTables.WithLabelValues("3")); got != 0 {
		t.Errorf("level 3 tables = %v, want 0", got)
	}

	// Shrinking resets deeper levels
	r.UpdateLevels([]int{1}, []int64{10}, 4)
	if got := gaugeValue(t, r.LevelTables.WithLabelValues("1")); got != 0 {
		t.Errorf("level 1 tables after shrink = %v, want 0", got)
	}
}

func TestNilRegistryIsSafe(t *testing.T) {
	var r *Registry

	r.RecordOperation("get", nil, time.Millisecond)
	r.RecordFlush(nil, time.Millisecond, 1)
	r.RecordCompaction(1, nil, time.Millisecond, 0)
	r.RecordCacheLookup(true)
	r.UpdateLevels([]int{1}, []int64{1}, 2)
	r.UpdateMemTable(10)
	r.UpdateSystemMetrics(time.Now())
}

func TestUpdateSystemMetrics(t *testing.T) {
	r := NewRegistry()
	r.UpdateSystemMetrics(time.Now().Add(-time.Minute))

	if got := gaugeValue(t, r.UptimeSeconds); got < 59 {
		t.Errorf("uptime = %v, want >= 59", got)
	}
	if got := gaugeValue(t, r.GoRoutines); got < 1 {
		t.Errorf("goroutines = %v, want >= 1", got)
	}
}
