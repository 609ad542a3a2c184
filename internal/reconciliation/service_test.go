package reconciliation

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trade-recon/internal/trade"
)

type stubRunner struct {
	a, b []trade.Record
	err  error
}

func (s *stubRunner) ReconcileAll(_ context.Context, kind Kind) ([]Record, error) {
	if s.err != nil {
		return nil, s.err
	}
	return Reconcile(s.a, s.b, kind), nil
}

type memoryStore struct {
	runs map[string][]Record
}

func (m *memoryStore) SaveReconciliation(_ context.Context, runID string, records []Record) error {
	if m.runs == nil {
		m.runs = map[string][]Record{}
	}
	m.runs[runID] = records
	return nil
}

func TestServiceReconcileBuildsReport(t *testing.T) {
	runner := &stubRunner{
		a: []trade.Record{{"TradeID": "T1", "Price": "10"}, {"TradeID": "T2", "Price": "5"}},
		b: []trade.Record{{"TradeID": "T1", "Price": "11", "Symbol": "X"}, {"TradeID": "T2", "Price": "5.0"}},
	}
	store := &memoryStore{}
	svc := NewService(runner, store, []Kind{EquityFOFO}, 0)

	reports := svc.RunOnce(context.Background())
	require.Len(t, reports, 1)
	report := reports[0]
	assert.Equal(t, EquityFOFO, report.Kind)
	assert.Equal(t, 2, report.Pairs)
	assert.Equal(t, 1, report.Mismatched)
	assert.True(t, report.HasDiffs)
	assert.Equal(t, map[string]int{"Price": 1, "Symbol": 1}, report.FieldDiffs)
	assert.NotEmpty(t, report.RunID)

	require.Contains(t, store.runs, report.RunID)
	assert.Len(t, store.runs[report.RunID], 2)
}

func TestServiceSkipsFailingKind(t *testing.T) {
	svc := NewService(&stubRunner{err: errors.New("source down")}, nil, []Kind{EquityFOFO, ForexFOBO}, 0)
	assert.Empty(t, svc.RunOnce(context.Background()))

	_, err := svc.Reconcile(context.Background(), EquityFOFO)
	assert.EqualError(t, err, "source down")
}

func TestKindSides(t *testing.T) {
	a, b := EquityFOFO.Sides()
	assert.Equal(t, "SystemA", a)
	assert.Equal(t, "SystemB", b)

	a, b = ForexFOBO.Sides()
	assert.Equal(t, "FrontOffice", a)
	assert.Equal(t, "BackOffice", b)
}
