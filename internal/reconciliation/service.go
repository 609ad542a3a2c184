package reconciliation

import (
	"context"
	"log"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"trade-recon/internal/trade"
)

// DataSource loads both sides of a pairing.
type DataSource interface {
	LoadPair(ctx context.Context, kind Kind) ([]trade.Record, []trade.Record, error)
}

// Runner reconciles a full pairing, typically the engine facade.
type Runner interface {
	ReconcileAll(ctx context.Context, kind Kind) ([]Record, error)
}

// ReportStore keeps an audit trail of reconciliation runs. A store may buffer: a nil error
// means the run was accepted, not that it is already on disk.
type ReportStore interface {
	SaveReconciliation(ctx context.Context, runID string, records []Record) error
}

// Service handles periodic reconciliation
type Service struct {
	runner   Runner
	store    ReportStore
	kinds    []Kind
	interval time.Duration
	mu       sync.Mutex
}

// Report contains reconciliation results
type Report struct {
	RunID      string
	Kind       Kind
	Timestamp  time.Time
	Pairs      int
	Mismatched int
	FieldDiffs map[string]int
	Records    []Record
	HasDiffs   bool
}

// NewService creates a new reconciliation service. store may be nil.
func NewService(runner Runner, store ReportStore, kinds []Kind, interval time.Duration) *Service {
	return &Service{
		runner:   runner,
		store:    store,
		kinds:    kinds,
		interval: interval,
	}
}

// Start begins periodic reconciliation
func (s *Service) Start(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				s.RunOnce(ctx)
			case <-ctx.Done():
				return
			}
		}
	}()

	log.Printf("✓ Reconciliation service started (interval: %v, kinds: %v)", s.interval, s.kinds)
}

// RunOnce reconciles every configured kind once. A failing kind is logged and skipped.
func (s *Service) RunOnce(ctx context.Context) []*Report {
	var reports []*Report
	for _, kind := range s.kinds {
		report, err := s.Reconcile(ctx, kind)
		if err != nil {
			log.Printf("❌ Reconciliation error (%s): %v", kind, err)
			continue
		}
		s.handleReport(ctx, report)
		reports = append(reports, report)
	}
	return reports
}

// Reconcile performs reconciliation of one pairing
func (s *Service) Reconcile(ctx context.Context, kind Kind) (*Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.runner.ReconcileAll(ctx, kind)
	if err != nil {
		return nil, err
	}

	report := &Report{
		RunID:      uuid.NewString(),
		Kind:       kind,
		Timestamp:  time.Now(),
		Pairs:      len(records),
		FieldDiffs: map[string]int{},
		Records:    records,
	}
	for _, rec := range records {
		if rec.Matched() {
			continue
		}
		report.Mismatched++
		for _, d := range rec.Discrepancies {
			report.FieldDiffs[d.Field]++
		}
	}
	report.HasDiffs = report.Mismatched > 0
	return report, nil
}

// handleReport processes reconciliation report
func (s *Service) handleReport(ctx context.Context, report *Report) {
	if report.HasDiffs {
		log.Printf("⚠️ Reconciliation %s - %d of %d pairs differ:", report.Kind, report.Mismatched, report.Pairs)
		fields := make([]string, 0, len(report.FieldDiffs))
		for f := range report.FieldDiffs {
			fields = append(fields, f)
		}
		sort.Strings(fields)
		for _, f := range fields {
			log.Printf("  %s: %d", f, report.FieldDiffs[f])
		}
		sideA, sideB := report.Kind.Sides()
		for _, rec := range report.Records {
			if rec.Matched() {
				continue
			}
			a, b := rec.Describe()
			log.Printf("  %s %s: %s", rec.TradeID, sideA, a)
			log.Printf("  %s %s: %s", rec.TradeID, sideB, b)
			log.Printf("  %s actions: %s", rec.TradeID, strings.Join(rec.Actions(), " | "))
		}
	} else {
		log.Printf("✅ Reconciliation %s OK - %d pairs match", report.Kind, report.Pairs)
	}

	s.saveReport(ctx, report)
}

// saveReport writes every pair, clean ones included, so the audit trail shows what was compared.
func (s *Service) saveReport(ctx context.Context, report *Report) {
	if s.store == nil || len(report.Records) == 0 {
		return
	}
	if err := s.store.SaveReconciliation(ctx, report.RunID, report.Records); err != nil {
		log.Printf("❌ Failed to save reconciliation run %s: %v", report.RunID, err)
		return
	}
	log.Printf("💾 Reconciliation run %s handed to store (%d records)", report.RunID, len(report.Records))
}
