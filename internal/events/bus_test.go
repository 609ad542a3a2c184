package events

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBusDeliversByEvent(t *testing.T) {
	bus := NewBus()
	validations, unsubV := bus.Subscribe(EventValidationBatch, 1)
	defer unsubV()
	recons, unsubR := bus.Subscribe(EventReconciliationBatch, 1)
	defer unsubR()

	bus.Publish(BatchCompleted{Event: EventValidationBatch, Total: 4, Failed: 1})

	require.Len(t, validations, 1)
	got := <-validations
	assert.Equal(t, 4, got.Total)
	assert.InDelta(t, 0.25, got.FailureRate(), 1e-9)
	assert.Len(t, recons, 0)
}

func TestBusDropsWhenFull(t *testing.T) {
	bus := NewBus()
	_, unsub := bus.Subscribe(EventEvaluationBatch, 1)
	bus.Publish(BatchCompleted{Event: EventEvaluationBatch})
	bus.Publish(BatchCompleted{Event: EventEvaluationBatch})
	assert.Equal(t, uint64(1), bus.Dropped())

	unsub()
	unsub()
	bus.Publish(BatchCompleted{Event: EventEvaluationBatch})
	assert.Equal(t, uint64(1), bus.Dropped())
}

func TestNilBusIsSafe(t *testing.T) {
	var bus *Bus
	bus.Publish(BatchCompleted{Event: EventValidationBatch})
	assert.Equal(t, 0.0, BatchCompleted{}.FailureRate())
}
