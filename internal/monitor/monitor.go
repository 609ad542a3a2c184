package monitor

import (
	"context"
	"fmt"
	"log"

	"trade-recon/internal/events"
)

// AlertSink interface for pluggable alert delivery.
type AlertSink interface {
	Send(message string) error
}

// LogSink writes alerts to the standard logger.
type LogSink struct{}

func (LogSink) Send(message string) error {
	log.Printf("🚨 %s", message)
	return nil
}

// Monitor watches batch events and alerts when a batch's failure rate crosses Threshold.
type Monitor struct {
	Bus       *events.Bus
	Sink      AlertSink
	Threshold float64
}

func (m *Monitor) Start(ctx context.Context) {
	if m.Bus == nil || m.Sink == nil {
		log.Println("monitor not fully configured; skipping")
		return
	}
	topics := []events.Event{events.EventValidationBatch, events.EventEvaluationBatch, events.EventReconciliationBatch}
	for _, topic := range topics {
		stream, unsub := m.Bus.Subscribe(topic, 16)
		go func() {
			defer unsub()
			for {
				select {
				case <-ctx.Done():
					return
				case batch, ok := <-stream:
					if !ok {
						return
					}
					if msg, alert := m.check(batch); alert {
						if err := m.Sink.Send(msg); err != nil {
							log.Printf("❌ Alert delivery failed: %v", err)
						}
					}
				}
			}
		}()
	}
}

func (m *Monitor) check(batch events.BatchCompleted) (string, bool) {
	rate := batch.FailureRate()
	if batch.Total == 0 || rate < m.Threshold {
		return "", false
	}
	label := string(batch.Event)
	if batch.Kind != "" {
		label += " " + batch.Kind
	}
	return fmt.Sprintf("%s: %d of %d failed (%.1f%%)", label, batch.Failed, batch.Total, rate*100), true
}
