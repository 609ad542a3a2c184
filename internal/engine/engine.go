package engine

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"

	"trade-recon/internal/events"
	"trade-recon/internal/monitor"
	"trade-recon/internal/reconciliation"
	"trade-recon/internal/routing"
	"trade-recon/internal/rules"
	"trade-recon/internal/trade"
	"trade-recon/internal/validation"
)

// ErrNoDataSource is returned by ReconcileAll when the engine was built without a source.
var ErrNoDataSource = errors.New("no data source configured")

// Engine implements Service over one rule catalog.
type Engine struct {
	validator *validation.Validator
	evaluator *validation.Evaluator
	router    *routing.Router
	source    reconciliation.DataSource
	bus       *events.Bus
	metrics   *monitor.EngineMetrics
	workers   int
}

// Config holds the configuration for creating an engine.
type Config struct {
	Catalog *rules.Catalog
	Source  reconciliation.DataSource // optional, needed by ReconcileAll
	Bus     *events.Bus               // optional
	Metrics *monitor.EngineMetrics    // optional
	Workers int                       // defaults to runtime.NumCPU()

	EvaluatorOptions []validation.EvaluatorOption
}

// New creates an engine. The catalog is shared read-only by every worker.
func New(cfg Config) *Engine {
	workers := cfg.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	metrics := cfg.Metrics
	if metrics == nil {
		metrics = monitor.NewEngineMetrics()
	}
	return &Engine{
		validator: validation.NewValidator(cfg.Catalog),
		evaluator: validation.NewEvaluator(cfg.Catalog, cfg.EvaluatorOptions...),
		router:    routing.New(cfg.Catalog),
		source:    cfg.Source,
		bus:       cfg.Bus,
		metrics:   metrics,
		workers:   workers,
	}
}

// Metrics exposes the engine's counters.
func (e *Engine) Metrics() *monitor.EngineMetrics { return e.metrics }

// ValidateAll validates every trade against the termsheet with the same canonical TradeID.
// The result has one verdict per trade, in input order. An error is only returned when ctx is
// cancelled before every trade was scheduled.
func (e *Engine) ValidateAll(ctx context.Context, trades, termsheets []trade.Record) ([]validation.Verdict, error) {
	timer := monitor.NewTimer(e.metrics.ValidationLatency)
	lookup := validation.IndexTermsheets(termsheets)

	out := make([]validation.Verdict, len(trades))
	err := e.parallel(ctx, len(trades), func(i int) {
		out[i] = e.assign(e.validator.Validate(trades[i], lookup))
	})
	if err != nil {
		return nil, err
	}
	e.finishValidation(events.EventValidationBatch, out, timer.Stop())
	return out, nil
}

// EvaluateAll runs the single-record rule evaluator over every trade, in input order.
func (e *Engine) EvaluateAll(ctx context.Context, trades []trade.Record) ([]validation.Verdict, error) {
	timer := monitor.NewTimer(e.metrics.ValidationLatency)

	out := make([]validation.Verdict, len(trades))
	err := e.parallel(ctx, len(trades), func(i int) {
		out[i] = e.assign(e.evaluator.Evaluate(trades[i]))
	})
	if err != nil {
		return nil, err
	}
	e.finishValidation(events.EventEvaluationBatch, out, timer.Stop())
	return out, nil
}

// Reconcile compares a against b in parallel over the rows of a. The output is identical,
// order included, to reconciliation.Reconcile(a, b, kind).
func (e *Engine) Reconcile(ctx context.Context, a, b []trade.Record, kind reconciliation.Kind) ([]reconciliation.Record, error) {
	timer := monitor.NewTimer(e.metrics.ReconciliationLatency)
	side := reconciliation.NewCounterparts(b)

	rows := make([][]reconciliation.Record, len(a))
	err := e.parallel(ctx, len(a), func(i int) {
		rows[i] = side.Row(a[i], kind)
	})
	if err != nil {
		return nil, err
	}

	var out []reconciliation.Record
	for _, row := range rows {
		out = append(out, row...)
	}

	mismatched := 0
	for _, rec := range out {
		fields := make([]string, len(rec.Discrepancies))
		for i, d := range rec.Discrepancies {
			fields[i] = d.Field
		}
		e.metrics.ObservePair(fields)
		if !rec.Matched() {
			mismatched++
		}
	}
	e.metrics.IncrementBatches()
	e.bus.Publish(events.BatchCompleted{
		Event:    events.EventReconciliationBatch,
		Kind:     string(kind),
		Total:    len(out),
		Failed:   mismatched,
		Duration: timer.Stop(),
	})
	return out, nil
}

// ReconcileAll loads both sides of kind from the data source and reconciles them.
func (e *Engine) ReconcileAll(ctx context.Context, kind reconciliation.Kind) ([]reconciliation.Record, error) {
	if e.source == nil {
		return nil, ErrNoDataSource
	}
	dbTimer := monitor.NewTimer(e.metrics.DBLatency)
	a, b, err := e.source.LoadPair(ctx, kind)
	dbTimer.Stop()
	if err != nil {
		e.metrics.IncrementErrors()
		return nil, fmt.Errorf("load %s: %w", kind, err)
	}
	return e.Reconcile(ctx, a, b, kind)
}

// assign routes failed verdicts; everything else stays unassigned.
func (e *Engine) assign(v validation.Verdict) validation.Verdict {
	v.AssignedTo = routing.Unassigned
	if v.Failed() {
		v.AssignedTo = e.router.Route(v.Reasons)
	}
	return v
}

func (e *Engine) finishValidation(event events.Event, verdicts []validation.Verdict, elapsed time.Duration) {
	summary := Summarize(verdicts)
	for _, v := range verdicts {
		dept := ""
		if v.Failed() {
			dept = v.AssignedTo
		}
		e.metrics.ObserveVerdict(string(v.Status), dept)
	}
	e.metrics.IncrementBatches()
	e.bus.Publish(events.BatchCompleted{
		Event:    event,
		Total:    summary.Total,
		Failed:   summary.Failed,
		Pending:  summary.Pending,
		Duration: elapsed,
	})
}

// parallel runs fn(0..n-1) on at most e.workers goroutines. Each index is written by exactly
// one goroutine, so callers collect results by index without locking.
func (e *Engine) parallel(ctx context.Context, n int, fn func(i int)) error {
	var g errgroup.Group
	g.SetLimit(e.workers)
	for i := 0; i < n; i++ {
		if err := ctx.Err(); err != nil {
			_ = g.Wait()
			return err
		}
		i := i
		g.Go(func() error {
			fn(i)
			return nil
		})
	}
	return g.Wait()
}
