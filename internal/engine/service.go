// Package engine is the batch facade over validation and reconciliation. Callers (CLI, the
// periodic reconciliation service, any future transport) only talk to the engine through
// Service.
package engine

import (
	"context"

	"trade-recon/internal/reconciliation"
	"trade-recon/internal/trade"
	"trade-recon/internal/validation"
)

// Service defines the batch operations of the engine.
type Service interface {
	// Validation
	ValidateAll(ctx context.Context, trades, termsheets []trade.Record) ([]validation.Verdict, error)
	EvaluateAll(ctx context.Context, trades []trade.Record) ([]validation.Verdict, error)

	// Reconciliation
	Reconcile(ctx context.Context, a, b []trade.Record, kind reconciliation.Kind) ([]reconciliation.Record, error)
	ReconcileAll(ctx context.Context, kind reconciliation.Kind) ([]reconciliation.Record, error)
}

var _ Service = (*Engine)(nil)
var _ reconciliation.Runner = (*Engine)(nil)
