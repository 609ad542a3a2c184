package monitor

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"trade-recon/internal/events"
)

func TestLatencyHistogramWindow(t *testing.T) {
	h := NewLatencyHistogram(4)
	assert.Equal(t, LatencyStats{}, h.Stats())

	for _, v := range []float64{100, 1, 2, 3, 4} {
		h.Record(v)
	}
	stats := h.Stats()
	assert.Equal(t, 4, stats.Count)
	assert.Equal(t, 1.0, stats.Min)
	assert.Equal(t, 4.0, stats.Max)
	assert.Equal(t, 2.5, stats.Avg)

	h.RecordDuration(10 * time.Millisecond)
	assert.Equal(t, 10.0, h.Stats().Max)
}

func TestEngineMetricsSnapshot(t *testing.T) {
	m := NewEngineMetrics()
	m.ObserveVerdict("Success", "")
	m.ObserveVerdict("Failed", "Back Office")
	m.ObserveVerdict("Failed", "Back Office")
	m.ObservePair(nil)
	m.ObservePair([]string{"Price", "Symbol"})
	m.IncrementBatches()

	snap := m.GetSnapshot()
	assert.Equal(t, uint64(3), snap.RecordsValidated)
	assert.Equal(t, uint64(2), snap.VerdictsByStatus["Failed"])
	assert.Equal(t, uint64(2), snap.FailuresByDepartment["Back Office"])
	assert.Equal(t, uint64(2), snap.PairsReconciled)
	assert.Equal(t, uint64(1), snap.DiscrepancyFields["Price"])
	assert.Equal(t, uint64(1), snap.BatchesProcessed)

	snap.VerdictsByStatus["Failed"] = 99
	assert.Equal(t, uint64(2), m.GetSnapshot().VerdictsByStatus["Failed"])
}

func TestMonitorThreshold(t *testing.T) {
	m := &Monitor{Threshold: 0.5}
	_, alert := m.check(events.BatchCompleted{Event: events.EventValidationBatch, Total: 4, Failed: 1})
	assert.False(t, alert)

	msg, alert := m.check(events.BatchCompleted{Event: events.EventReconciliationBatch, Kind: "EQ-FO-BO", Total: 4, Failed: 2})
	assert.True(t, alert)
	assert.Equal(t, "reconciliation.batch EQ-FO-BO: 2 of 4 failed (50.0%)", msg)

	_, alert = m.check(events.BatchCompleted{Event: events.EventValidationBatch})
	assert.False(t, alert)
}
