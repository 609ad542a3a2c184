package events

import "time"

// Event enumerates topics published by the engine.
type Event string

const (
	EventValidationBatch     Event = "validation.batch"
	EventEvaluationBatch     Event = "evaluation.batch"
	EventReconciliationBatch Event = "reconciliation.batch"
)

// BatchCompleted is the payload of every batch event.
type BatchCompleted struct {
	Event    Event
	Kind     string // pairing kind; empty for validation batches
	Total    int
	Failed   int
	Pending  int
	Duration time.Duration
}

// FailureRate is Failed/Total, or 0 for an empty batch.
func (b BatchCompleted) FailureRate() float64 {
	if b.Total == 0 {
		return 0
	}
	return float64(b.Failed) / float64(b.Total)
}
