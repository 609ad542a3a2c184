package monitor

import (
	"runtime"
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

// EngineMetrics tracks batch throughput and outcomes.
type EngineMetrics struct {
	mu sync.RWMutex

	// Latency histograms, one sample per batch
	ValidationLatency     *LatencyHistogram
	ReconciliationLatency *LatencyHistogram
	DBLatency             *LatencyHistogram

	recordsValidated  uint64
	pairsReconciled   uint64
	batchesProcessed  uint64
	errorsCount       uint64
	verdictsByStatus  map[string]uint64
	discrepancyFields map[string]uint64
	failuresByDept    map[string]uint64
}

// LatencyHistogram tracks latency samples with sliding window.
type LatencyHistogram struct {
	mu          sync.Mutex
	samples     []float64
	next        int
	full        bool
	dirty       bool
	cachedStats LatencyStats
}

// NewEngineMetrics creates a new metrics instance.
func NewEngineMetrics() *EngineMetrics {
	return &EngineMetrics{
		ValidationLatency:     NewLatencyHistogram(500),
		ReconciliationLatency: NewLatencyHistogram(500),
		DBLatency:             NewLatencyHistogram(500),
		verdictsByStatus:      map[string]uint64{},
		discrepancyFields:     map[string]uint64{},
		failuresByDept:        map[string]uint64{},
	}
}

// NewLatencyHistogram creates a sliding window histogram of the last size samples.
func NewLatencyHistogram(size int) *LatencyHistogram {
	if size <= 0 {
		size = 500
	}
	return &LatencyHistogram{
		samples: make([]float64, size),
		dirty:   true,
	}
}

// Record adds a latency sample in milliseconds, overwriting the oldest once the window is full.
func (h *LatencyHistogram) Record(latencyMs float64) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.samples[h.next] = latencyMs
	h.next++
	if h.next == len(h.samples) {
		h.next = 0
		h.full = true
	}
	h.dirty = true
}

// RecordDuration converts duration to ms and records.
func (h *LatencyHistogram) RecordDuration(d time.Duration) {
	h.Record(float64(d.Nanoseconds()) / 1e6)
}

// Stats returns min, max, avg, p50, p95, p99. Results are cached until the next Record.
func (h *LatencyHistogram) Stats() LatencyStats {
	h.mu.Lock()
	defer h.mu.Unlock()

	if !h.dirty {
		return h.cachedStats
	}

	n := h.next
	if h.full {
		n = len(h.samples)
	}
	if n == 0 {
		return LatencyStats{}
	}

	sorted := make([]float64, n)
	copy(sorted, h.samples[:n])
	sort.Float64s(sorted)

	var sum float64
	for _, v := range sorted {
		sum += v
	}

	h.cachedStats = LatencyStats{
		Min:   sorted[0],
		Max:   sorted[n-1],
		Avg:   sum / float64(n),
		P50:   sorted[n/2],
		P95:   sorted[int(float64(n)*0.95)],
		P99:   sorted[int(float64(n)*0.99)],
		Count: n,
	}
	h.dirty = false

	return h.cachedStats
}

// LatencyStats holds computed latency statistics.
type LatencyStats struct {
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
	Avg   float64 `json:"avg"`
	P50   float64 `json:"p50"`
	P95   float64 `json:"p95"`
	P99   float64 `json:"p99"`
	Count int     `json:"count"`
}

// ObserveVerdict counts one validation outcome and, for failures, its department.
func (m *EngineMetrics) ObserveVerdict(status, department string) {
	atomic.AddUint64(&m.recordsValidated, 1)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.verdictsByStatus[status]++
	if department != "" {
		m.failuresByDept[department]++
	}
}

// ObservePair counts one reconciled pair and the fields it disagreed on.
func (m *EngineMetrics) ObservePair(fields []string) {
	atomic.AddUint64(&m.pairsReconciled, 1)
	if len(fields) == 0 {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, f := range fields {
		m.discrepancyFields[f]++
	}
}

// IncrementBatches increments processed batch counter.
func (m *EngineMetrics) IncrementBatches() {
	atomic.AddUint64(&m.batchesProcessed, 1)
}

// IncrementErrors increments the collaborator error counter.
func (m *EngineMetrics) IncrementErrors() {
	atomic.AddUint64(&m.errorsCount, 1)
}

// MetricsSnapshot is a point-in-time copy of EngineMetrics.
type MetricsSnapshot struct {
	ValidationLatency     LatencyStats      `json:"validation_latency"`
	ReconciliationLatency LatencyStats      `json:"reconciliation_latency"`
	DBLatency             LatencyStats      `json:"db_latency"`
	RecordsValidated      uint64            `json:"records_validated"`
	PairsReconciled       uint64            `json:"pairs_reconciled"`
	BatchesProcessed      uint64            `json:"batches_processed"`
	ErrorsCount           uint64            `json:"errors_count"`
	VerdictsByStatus      map[string]uint64 `json:"verdicts_by_status"`
	DiscrepancyFields     map[string]uint64 `json:"discrepancy_fields"`
	FailuresByDepartment  map[string]uint64 `json:"failures_by_department"`
	GoroutineCount        int               `json:"goroutine_count"`
	HeapAlloc             uint64            `json:"heap_alloc_bytes"`
	Timestamp             time.Time         `json:"timestamp"`
}

// GetSnapshot returns a point-in-time metrics snapshot.
func (m *EngineMetrics) GetSnapshot() MetricsSnapshot {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	m.mu.RLock()
	byStatus := copyCounts(m.verdictsByStatus)
	byField := copyCounts(m.discrepancyFields)
	byDept := copyCounts(m.failuresByDept)
	m.mu.RUnlock()

	return MetricsSnapshot{
		ValidationLatency:     m.ValidationLatency.Stats(),
		ReconciliationLatency: m.ReconciliationLatency.Stats(),
		DBLatency:             m.DBLatency.Stats(),
		RecordsValidated:      atomic.LoadUint64(&m.recordsValidated),
		PairsReconciled:       atomic.LoadUint64(&m.pairsReconciled),
		BatchesProcessed:      atomic.LoadUint64(&m.batchesProcessed),
		ErrorsCount:           atomic.LoadUint64(&m.errorsCount),
		VerdictsByStatus:      byStatus,
		DiscrepancyFields:     byField,
		FailuresByDepartment:  byDept,
		GoroutineCount:        runtime.NumGoroutine(),
		HeapAlloc:             memStats.HeapAlloc,
		Timestamp:             time.Now(),
	}
}

func copyCounts(in map[string]uint64) map[string]uint64 {
	out := make(map[string]uint64, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

// Timer helps measure operation duration.
type Timer struct {
	start     time.Time
	histogram *LatencyHistogram
}

// NewTimer creates a timer that records to the given histogram.
func NewTimer(h *LatencyHistogram) *Timer {
	return &Timer{
		start:     time.Now(),
		histogram: h,
	}
}

// Stop records elapsed time to histogram.
func (t *Timer) Stop() time.Duration {
	elapsed := time.Since(t.start)
	if t.histogram != nil {
		t.histogram.RecordDuration(elapsed)
	}
	return elapsed
}
