package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/google/uuid"

	"trade-recon/internal/engine"
	"trade-recon/internal/events"
	"trade-recon/internal/monitor"
	"trade-recon/internal/persistence"
	"trade-recon/internal/reconciliation"
	"trade-recon/internal/rules"
	"trade-recon/internal/validation"
	"trade-recon/pkg/config"
	"trade-recon/pkg/db"
	"trade-recon/pkg/i18n"
)

// engines dispatches reconciliation to the engine built for the kind's asset class.
type engines map[rules.AssetClass]*engine.Engine

func (e engines) ReconcileAll(ctx context.Context, kind reconciliation.Kind) ([]reconciliation.Record, error) {
	eng, ok := e[kind.Asset()]
	if !ok {
		return nil, fmt.Errorf("no engine for %s", kind.Asset())
	}
	return eng.ReconcileAll(ctx, kind)
}

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf(i18n.Get("ConfigLoadFailed"), err)
	}
	i18n.SetLanguage(i18n.Language(cfg.Language))
	log.Println(i18n.Get("Starting"))
	log.Printf(i18n.Get("ConfigLoaded"), cfg.Workers, cfg.ReconInterval)

	log.Printf(i18n.Get("UsingDBPath"), cfg.DBPath)
	database, err := db.New(cfg.DBPath)
	if err != nil {
		log.Fatalf(i18n.Get("DBInitFailed"), err)
	}
	defer database.Close()
	if err := db.ApplyMigrations(database); err != nil {
		log.Fatalf(i18n.Get("DBMigrationsFailed"), err)
	}

	catalogs := map[rules.AssetClass]*rules.Catalog{}
	for _, path := range []string{cfg.EquityRulesPath, cfg.ForexRulesPath} {
		cat, err := rules.Load(path)
		if err != nil {
			log.Fatalf(i18n.Get("CatalogLoadFailed"), err)
		}
		catalogs[cat.AssetClass()] = cat
		log.Printf(i18n.Get("CatalogLoaded"), path, cat.AssetClass())
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.SeedDir != "" {
		seed(ctx, database, cfg.SeedDir)
	}

	bus := events.NewBus()
	metrics := monitor.NewEngineMetrics()
	byAsset := engines{}
	for asset, cat := range catalogs {
		byAsset[asset] = engine.New(engine.Config{
			Catalog: cat,
			Source:  database,
			Bus:     bus,
			Metrics: metrics,
			Workers: cfg.Workers,
		})
	}

	args := os.Args[1:]
	cmd := "serve"
	if len(args) > 0 {
		cmd = strings.ToLower(args[0])
	}

	switch cmd {
	case "validate", "evaluate":
		asset := rules.Equity
		if len(args) > 1 {
			asset = rules.AssetClass(strings.ToLower(args[1]))
		}
		eng, ok := byAsset[asset]
		if !ok {
			log.Fatalf("❌ "+i18n.Get("UnknownKind"), asset)
		}
		if err := runValidation(ctx, eng, database, asset, cmd == "evaluate"); err != nil {
			log.Fatalf("❌ "+i18n.Get("ValidationFailed"), err)
		}

	case "reconcile":
		if len(args) < 2 {
			log.Fatal(i18n.Get("Usage"))
		}
		kind, err := reconciliation.ParseKind(args[1])
		if err != nil {
			log.Fatalf("❌ "+i18n.Get("UnknownKind"), args[1])
		}
		if err := runReconciliation(ctx, byAsset, database, kind); err != nil {
			log.Fatalf("❌ "+i18n.Get("ReconFailed"), err)
		}

	case "serve":
		serve(ctx, cancel, cfg, byAsset, bus, database)

	default:
		log.Fatal(i18n.Get("Usage"))
	}

	snap := metrics.GetSnapshot()
	log.Printf("📊 verdicts=%v pairs=%d discrepancies=%v batches=%d errors=%d", snap.VerdictsByStatus, snap.PairsReconciled, snap.DiscrepancyFields, snap.BatchesProcessed, snap.ErrorsCount)
}

func runValidation(ctx context.Context, eng *engine.Engine, database *db.Database, asset rules.AssetClass, evaluate bool) error {
	trades, err := database.Trades(ctx, db.CaptureSource(asset))
	if err != nil {
		return err
	}

	var verdicts []validation.Verdict
	msg := "ValidationComplete"
	if evaluate {
		msg = "EvaluationComplete"
		verdicts, err = eng.EvaluateAll(ctx, trades)
	} else {
		termsheets, terr := database.Termsheets(ctx, asset)
		if terr != nil {
			return terr
		}
		verdicts, err = eng.ValidateAll(ctx, trades, termsheets)
	}
	if err != nil {
		return err
	}

	for _, v := range verdicts {
		if v.Failed() {
			log.Printf("⚠️ "+i18n.Get("TradeRouted"), v.TradeID, v.AssignedTo, strings.Join(v.Reasons, "; "))
		}
	}
	sum := engine.Summarize(verdicts)
	log.Printf("✅ "+i18n.Get(msg), sum.Total, asset, sum.Success, sum.Failed, sum.Pending, sum.SuccessRate)

	runID := uuid.NewString()
	if err := database.SaveVerdicts(ctx, runID, asset, verdicts); err != nil {
		log.Printf("❌ "+i18n.Get("SaveFailed"), err)
		return err
	}
	log.Printf("💾 "+i18n.Get("VerdictsSaved"), len(verdicts), runID)
	return nil
}

func runReconciliation(ctx context.Context, runner engines, database *db.Database, kind reconciliation.Kind) error {
	records, err := runner.ReconcileAll(ctx, kind)
	if err != nil {
		return err
	}

	sideA, sideB := kind.Sides()
	mismatched := 0
	for _, rec := range records {
		if rec.Matched() {
			continue
		}
		mismatched++
		for _, d := range rec.Discrepancies {
			log.Printf("⚠️ "+i18n.Get("DiscrepancyFound"), rec.TradeID, d.Field, d.Reason, sideA, d.ValueA, sideB, d.ValueB, d.Action)
		}
		a, b := rec.Describe()
		log.Printf(i18n.Get("TradeNarrative"), rec.TradeID, sideA, a)
		log.Printf(i18n.Get("TradeNarrative"), rec.TradeID, sideB, b)
		log.Printf(i18n.Get("ActionsRequired"), rec.TradeID, strings.Join(rec.Actions(), " | "))
	}
	log.Printf("✅ "+i18n.Get("ReconComplete"), kind, len(records), mismatched)

	runID := uuid.NewString()
	if err := database.SaveReconciliation(ctx, runID, records); err != nil {
		log.Printf("❌ "+i18n.Get("SaveFailed"), err)
		return err
	}
	log.Printf("💾 "+i18n.Get("VerdictsSaved"), len(records), runID)
	return nil
}

func serve(ctx context.Context, cancel context.CancelFunc, cfg *config.Config, runner engines, bus *events.Bus, database *db.Database) {
	kinds := make([]reconciliation.Kind, 0, len(cfg.ReconKinds))
	for _, name := range cfg.ReconKinds {
		kind, err := reconciliation.ParseKind(name)
		if err != nil {
			log.Printf("⚠️ "+i18n.Get("UnknownKind"), name)
			continue
		}
		kinds = append(kinds, kind)
	}

	mon := &monitor.Monitor{Bus: bus, Sink: monitor.LogSink{}, Threshold: cfg.AlertThreshold}
	mon.Start(ctx)
	log.Printf(i18n.Get("MonitorStarted"), cfg.AlertThreshold*100)

	writer := persistence.NewReportWriter(database, cfg.BatchSize, cfg.FlushInterval)
	defer func() {
		if err := writer.Close(); err != nil {
			log.Printf("❌ "+i18n.Get("SaveFailed"), err)
		}
	}()

	svc := reconciliation.NewService(runner, writer, kinds, cfg.ReconInterval)
	svc.RunOnce(ctx)
	svc.Start(ctx)
	log.Println(i18n.Get("ReconStarted"))

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan
	log.Println(i18n.Get("ShuttingDown"))
	cancel()
}

// seed imports <source>.json and <asset>_termsheets.json from dir into empty tables.
func seed(ctx context.Context, database *db.Database, dir string) {
	sources := map[string]rules.AssetClass{}
	for _, kind := range reconciliation.Kinds {
		a, b, err := db.Sources(kind)
		if err != nil {
			continue
		}
		sources[a], sources[b] = kind.Asset(), kind.Asset()
	}

	for source, asset := range sources {
		existing, err := database.Trades(ctx, source)
		if err != nil {
			log.Printf("❌ "+i18n.Get("SeedFailed"), source, err)
			continue
		}
		if len(existing) > 0 {
			continue
		}
		importSeed(filepath.Join(dir, source+".json"), func(path string) (int, error) {
			return database.ImportJSON(ctx, path, source, asset)
		})
	}

	for _, asset := range []rules.AssetClass{rules.Equity, rules.Forex} {
		existing, err := database.Termsheets(ctx, asset)
		if err != nil {
			log.Printf("❌ "+i18n.Get("SeedFailed"), asset, err)
			continue
		}
		if len(existing) > 0 {
			continue
		}
		importSeed(filepath.Join(dir, string(asset)+"_termsheets.json"), func(path string) (int, error) {
			return database.ImportTermsheetsJSON(ctx, path, asset)
		})
	}
}

func importSeed(path string, load func(string) (int, error)) {
	n, err := load(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		log.Printf(i18n.Get("SeedSkipped"), path)
	case err != nil:
		log.Printf("❌ "+i18n.Get("SeedFailed"), path, err)
	default:
		log.Printf("✓ "+i18n.Get("SeedImported"), n, path)
	}
}
