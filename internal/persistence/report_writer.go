package persistence

import (
	"context"
	"database/sql"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"trade-recon/internal/reconciliation"
	"trade-recon/pkg/db"
)

var _ reconciliation.ReportStore = (*ReportWriter)(nil)

type writeOp struct {
	query string
	args  []any
}

// ReportWriter buffers reconciliation inserts and writes them in transactions, either when
// the buffer fills up or on a timer.
type ReportWriter struct {
	db       *sql.DB
	buffer   []writeOp
	mu       sync.Mutex
	maxSize  int
	interval time.Duration
	done     chan struct{}
	wg       sync.WaitGroup
	metrics  Metrics
	closeErr error
}

// Metrics provides statistics about flushed batches.
type Metrics struct {
	TotalWrites   uint64    `json:"total_writes"`
	TotalBatches  uint64    `json:"total_batches"`
	TotalErrors   uint64    `json:"total_errors"`
	LastBatchSize int       `json:"last_batch_size"`
	LastFlushTime time.Time `json:"last_flush_time"`
}

// NewReportWriter starts a writer over database.
// maxSize: pending rows that trigger a flush
// interval: time-based flush interval
func NewReportWriter(database *db.Database, maxSize int, interval time.Duration) *ReportWriter {
	if maxSize <= 0 {
		maxSize = 50
	}
	if interval <= 0 {
		interval = 500 * time.Millisecond
	}

	w := &ReportWriter{
		db:       database.DB,
		buffer:   make([]writeOp, 0, maxSize),
		maxSize:  maxSize,
		interval: interval,
		done:     make(chan struct{}),
	}

	w.wg.Add(1)
	go w.backgroundFlush()

	return w
}

// SaveReconciliation queues one reconciliation run. The rows are written on the next flush;
// an error is returned only when this call filled the buffer and the flush failed.
func (w *ReportWriter) SaveReconciliation(ctx context.Context, runID string, records []reconciliation.Record) error {
	ops := make([]writeOp, 0, len(records))
	for _, rec := range records {
		args, err := db.ReconciliationArgs(runID, rec)
		if err != nil {
			return err
		}
		ops = append(ops, writeOp{query: db.InsertReconciliationSQL, args: args})
	}
	return w.enqueue(ctx, ops)
}

func (w *ReportWriter) enqueue(ctx context.Context, ops []writeOp) error {
	if len(ops) == 0 {
		return nil
	}
	w.mu.Lock()
	w.buffer = append(w.buffer, ops...)
	shouldFlush := len(w.buffer) >= w.maxSize
	w.mu.Unlock()

	if !shouldFlush {
		return nil
	}
	return w.Flush(ctx)
}

// Flush immediately writes all buffered rows.
func (w *ReportWriter) Flush(ctx context.Context) error {
	w.mu.Lock()
	if len(w.buffer) == 0 {
		w.mu.Unlock()
		return nil
	}

	ops := w.buffer
	w.buffer = make([]writeOp, 0, w.maxSize)
	w.mu.Unlock()

	return w.executeBatch(ctx, ops)
}

// executeBatch runs a batch in one transaction; a failed batch is dropped as a whole.
func (w *ReportWriter) executeBatch(ctx context.Context, ops []writeOp) error {
	atomic.AddUint64(&w.metrics.TotalWrites, uint64(len(ops)))
	atomic.AddUint64(&w.metrics.TotalBatches, 1)
	w.mu.Lock()
	w.metrics.LastBatchSize = len(ops)
	w.metrics.LastFlushTime = time.Now()
	w.mu.Unlock()

	tx, err := w.db.BeginTx(ctx, nil)
	if err != nil {
		atomic.AddUint64(&w.metrics.TotalErrors, 1)
		log.Printf("❌ ReportWriter: failed to begin transaction: %v", err)
		return err
	}

	for _, op := range ops {
		if _, err := tx.ExecContext(ctx, op.query, op.args...); err != nil {
			tx.Rollback()
			atomic.AddUint64(&w.metrics.TotalErrors, 1)
			log.Printf("❌ ReportWriter: insert failed, rolling back: %v", err)
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		atomic.AddUint64(&w.metrics.TotalErrors, 1)
		log.Printf("❌ ReportWriter: commit failed: %v", err)
		return err
	}

	log.Printf("💾 ReportWriter: flushed %d rows", len(ops))
	return nil
}

func (w *ReportWriter) backgroundFlush() {
	defer w.wg.Done()
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := w.Flush(context.Background()); err != nil {
				log.Printf("⚠️ ReportWriter: background flush error: %v", err)
			}
		case <-w.done:
			if err := w.Flush(context.Background()); err != nil {
				log.Printf("⚠️ ReportWriter: final flush error: %v", err)
				w.closeErr = err
			}
			return
		}
	}
}

// Pending returns the number of queued rows.
func (w *ReportWriter) Pending() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.buffer)
}

// GetMetrics returns a snapshot of the writer's counters.
func (w *ReportWriter) GetMetrics() Metrics {
	w.mu.Lock()
	size, at := w.metrics.LastBatchSize, w.metrics.LastFlushTime
	w.mu.Unlock()
	return Metrics{
		TotalWrites:   atomic.LoadUint64(&w.metrics.TotalWrites),
		TotalBatches:  atomic.LoadUint64(&w.metrics.TotalBatches),
		TotalErrors:   atomic.LoadUint64(&w.metrics.TotalErrors),
		LastBatchSize: size,
		LastFlushTime: at,
	}
}

// Close stops the timer and flushes what is left. It returns the error of that final flush.
func (w *ReportWriter) Close() error {
	close(w.done)
	w.wg.Wait()
	return w.closeErr
}
