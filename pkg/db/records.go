package db

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"trade-recon/internal/normalize"
	"trade-recon/internal/reconciliation"
	"trade-recon/internal/rules"
	"trade-recon/internal/trade"
	"trade-recon/internal/validation"
)

// Capture sources. Each pairing kind reads one source per side.
const (
	SourceEquitySystemA     = "eq_system_a"
	SourceEquitySystemB     = "eq_system_b"
	SourceEquityFrontOffice = "eq_front_office"
	SourceEquityBackOffice  = "eq_back_office"
	SourceForexSystemA      = "fx_system_a"
	SourceForexSystemB      = "fx_system_b"
	SourceForexFrontOffice  = "fx_front_office"
	SourceForexBackOffice   = "fx_back_office"
)

// Sources maps a pairing kind to the stored sources of its A and B sides.
func Sources(kind reconciliation.Kind) (string, string, error) {
	switch kind {
	case reconciliation.EquityFOFO:
		return SourceEquitySystemA, SourceEquitySystemB, nil
	case reconciliation.EquityFOBO:
		return SourceEquityFrontOffice, SourceEquityBackOffice, nil
	case reconciliation.ForexFOFO:
		return SourceForexSystemA, SourceForexSystemB, nil
	case reconciliation.ForexFOBO:
		return SourceForexFrontOffice, SourceForexBackOffice, nil
	}
	return "", "", fmt.Errorf("no sources for pairing kind %q", kind)
}

// CaptureSource is the source validated against termsheets for an asset class.
func CaptureSource(asset rules.AssetClass) string {
	if asset == rules.Forex {
		return SourceForexFrontOffice
	}
	return SourceEquityFrontOffice
}

// StoredVerdict is a persisted validation verdict.
type StoredVerdict struct {
	RunID   string
	Asset   string
	Verdict validation.Verdict
}

// InsertTrades stores records under source in one transaction.
func (d *Database) InsertTrades(ctx context.Context, source string, asset rules.AssetClass, records []trade.Record) error {
	return d.insertRecords(ctx, records, func(tx *sql.Tx, rec trade.Record, payload []byte) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO trade_records (source, asset, trade_id, payload)
			VALUES (?, ?, ?, ?)
		`, source, string(asset), trade.ID(rec), string(payload))
		return err
	})
}

// InsertTermsheets stores termsheets for an asset class in one transaction.
func (d *Database) InsertTermsheets(ctx context.Context, asset rules.AssetClass, records []trade.Record) error {
	return d.insertRecords(ctx, records, func(tx *sql.Tx, rec trade.Record, payload []byte) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO termsheets (asset, trade_id, payload)
			VALUES (?, ?, ?)
		`, string(asset), trade.ID(rec), string(payload))
		return err
	})
}

func (d *Database) insertRecords(ctx context.Context, records []trade.Record, insert func(*sql.Tx, trade.Record, []byte) error) error {
	tx, err := d.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	for i, rec := range records {
		payload, err := EncodeRecord(rec)
		if err != nil {
			return fmt.Errorf("encode record %d: %w", i, err)
		}
		if err := insert(tx, rec, payload); err != nil {
			return fmt.Errorf("insert record %d: %w", i, err)
		}
	}
	return tx.Commit()
}

// Trades returns the records of a source in insertion order.
func (d *Database) Trades(ctx context.Context, source string) ([]trade.Record, error) {
	return d.queryRecords(ctx, `
		SELECT payload FROM trade_records
		WHERE source = ?
		ORDER BY id
	`, source)
}

// Termsheets returns the termsheets of an asset class in insertion order.
func (d *Database) Termsheets(ctx context.Context, asset rules.AssetClass) ([]trade.Record, error) {
	return d.queryRecords(ctx, `
		SELECT payload FROM termsheets
		WHERE asset = ?
		ORDER BY id
	`, string(asset))
}

func (d *Database) queryRecords(ctx context.Context, query string, args ...any) ([]trade.Record, error) {
	rows, err := d.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query records: %w", err)
	}
	defer rows.Close()

	var out []trade.Record
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, err
		}
		rec, err := DecodeRecord([]byte(payload))
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// LoadPair reads both sides of a pairing kind.
func (d *Database) LoadPair(ctx context.Context, kind reconciliation.Kind) ([]trade.Record, []trade.Record, error) {
	sourceA, sourceB, err := Sources(kind)
	if err != nil {
		return nil, nil, err
	}
	a, err := d.Trades(ctx, sourceA)
	if err != nil {
		return nil, nil, fmt.Errorf("load %s: %w", sourceA, err)
	}
	b, err := d.Trades(ctx, sourceB)
	if err != nil {
		return nil, nil, fmt.Errorf("load %s: %w", sourceB, err)
	}
	return a, b, nil
}

// ImportJSON loads a JSON array of trade records from path into source. It returns the
// number of records stored.
func (d *Database) ImportJSON(ctx context.Context, path, source string, asset rules.AssetClass) (int, error) {
	records, err := readRecords(path)
	if err != nil {
		return 0, err
	}
	if err := d.InsertTrades(ctx, source, asset, records); err != nil {
		return 0, fmt.Errorf("import %s: %w", path, err)
	}
	return len(records), nil
}

// ImportTermsheetsJSON loads a JSON array of termsheets from path.
func (d *Database) ImportTermsheetsJSON(ctx context.Context, path string, asset rules.AssetClass) (int, error) {
	records, err := readRecords(path)
	if err != nil {
		return 0, err
	}
	if err := d.InsertTermsheets(ctx, asset, records); err != nil {
		return 0, fmt.Errorf("import %s: %w", path, err)
	}
	return len(records), nil
}

func readRecords(path string) ([]trade.Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	records, err := decodeRecords(f)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return records, nil
}

func decodeRecords(r io.Reader) ([]trade.Record, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()
	var records []trade.Record
	if err := dec.Decode(&records); err != nil {
		return nil, err
	}
	return records, nil
}

// EncodeRecord serializes a record; dates are written as YYYY-MM-DD so that they read back
// as the strings capture systems send.
func EncodeRecord(rec trade.Record) ([]byte, error) {
	out := make(map[string]any, len(rec))
	for k, v := range rec {
		switch t := v.(type) {
		case time.Time:
			out[k] = t.Format(normalize.ISODate)
		case *time.Time:
			if t == nil {
				out[k] = nil
			} else {
				out[k] = t.Format(normalize.ISODate)
			}
		default:
			out[k] = v
		}
	}
	return json.Marshal(out)
}

// DecodeRecord is the inverse of EncodeRecord. Numbers come back as json.Number.
func DecodeRecord(payload []byte) (trade.Record, error) {
	dec := json.NewDecoder(bytes.NewReader(payload))
	dec.UseNumber()
	var rec trade.Record
	if err := dec.Decode(&rec); err != nil {
		return nil, fmt.Errorf("decode record: %w", err)
	}
	return rec, nil
}

const insertVerdictSQL = `
	INSERT INTO validation_verdicts (run_id, asset, trade_id, status, reasons, assigned_to)
	VALUES (?, ?, ?, ?, ?, ?)
`

// InsertReconciliationSQL is shared with the batched writer in internal/persistence.
const InsertReconciliationSQL = `
	INSERT INTO reconciliation_records (run_id, kind, trade_id, source_a, source_b, discrepancies)
	VALUES (?, ?, ?, ?, ?, ?)
`

func verdictArgs(runID string, asset rules.AssetClass, v validation.Verdict) ([]any, error) {
	reasons := v.Reasons
	if reasons == nil {
		reasons = []string{}
	}
	encoded, err := json.Marshal(reasons)
	if err != nil {
		return nil, fmt.Errorf("encode reasons for %s: %w", v.TradeID, err)
	}
	return []any{runID, string(asset), v.TradeID, string(v.Status), string(encoded), v.AssignedTo}, nil
}

// ReconciliationArgs returns the InsertReconciliationSQL arguments for one record.
func ReconciliationArgs(runID string, rec reconciliation.Record) ([]any, error) {
	a, err := EncodeRecord(rec.SourceA)
	if err != nil {
		return nil, fmt.Errorf("encode source A for %s: %w", rec.TradeID, err)
	}
	b, err := EncodeRecord(rec.SourceB)
	if err != nil {
		return nil, fmt.Errorf("encode source B for %s: %w", rec.TradeID, err)
	}
	diffs := rec.Discrepancies
	if diffs == nil {
		diffs = []reconciliation.Discrepancy{}
	}
	encoded, err := json.Marshal(diffs)
	if err != nil {
		return nil, fmt.Errorf("encode discrepancies for %s: %w", rec.TradeID, err)
	}
	return []any{runID, string(rec.Kind), rec.TradeID, string(a), string(b), string(encoded)}, nil
}

// SaveVerdicts stores a validation run in one transaction.
func (d *Database) SaveVerdicts(ctx context.Context, runID string, asset rules.AssetClass, verdicts []validation.Verdict) error {
	tx, err := d.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	for _, v := range verdicts {
		args, err := verdictArgs(runID, asset, v)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, insertVerdictSQL, args...); err != nil {
			return fmt.Errorf("insert verdict %s: %w", v.TradeID, err)
		}
	}
	return tx.Commit()
}

// SaveReconciliation stores a reconciliation run in one transaction.
func (d *Database) SaveReconciliation(ctx context.Context, runID string, records []reconciliation.Record) error {
	tx, err := d.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	for _, rec := range records {
		args, err := ReconciliationArgs(runID, rec)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, InsertReconciliationSQL, args...); err != nil {
			return fmt.Errorf("insert reconciliation %s: %w", rec.TradeID, err)
		}
	}
	return tx.Commit()
}

// Verdicts returns the verdicts of a run in insertion order.
func (d *Database) Verdicts(ctx context.Context, runID string) ([]StoredVerdict, error) {
	rows, err := d.DB.QueryContext(ctx, `
		SELECT run_id, asset, trade_id, status, reasons, assigned_to
		FROM validation_verdicts
		WHERE run_id = ?
		ORDER BY id
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("query verdicts: %w", err)
	}
	defer rows.Close()

	var out []StoredVerdict
	for rows.Next() {
		var (
			sv      StoredVerdict
			status  string
			reasons string
		)
		if err := rows.Scan(&sv.RunID, &sv.Asset, &sv.Verdict.TradeID, &status, &reasons, &sv.Verdict.AssignedTo); err != nil {
			return nil, err
		}
		sv.Verdict.Status = validation.Status(status)
		if err := json.Unmarshal([]byte(reasons), &sv.Verdict.Reasons); err != nil {
			return nil, fmt.Errorf("decode reasons for %s: %w", sv.Verdict.TradeID, err)
		}
		out = append(out, sv)
	}
	return out, rows.Err()
}

// Reconciliations returns the records of a run in insertion order.
func (d *Database) Reconciliations(ctx context.Context, runID string) ([]reconciliation.Record, error) {
	rows, err := d.DB.QueryContext(ctx, `
		SELECT kind, trade_id, source_a, source_b, discrepancies
		FROM reconciliation_records
		WHERE run_id = ?
		ORDER BY id
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("query reconciliation records: %w", err)
	}
	defer rows.Close()

	var out []reconciliation.Record
	for rows.Next() {
		var (
			rec              reconciliation.Record
			kind, a, b, diff string
		)
		if err := rows.Scan(&kind, &rec.TradeID, &a, &b, &diff); err != nil {
			return nil, err
		}
		rec.Kind = reconciliation.Kind(kind)
		if rec.SourceA, err = DecodeRecord([]byte(a)); err != nil {
			return nil, err
		}
		if rec.SourceB, err = DecodeRecord([]byte(b)); err != nil {
			return nil, err
		}
		dec := json.NewDecoder(bytes.NewReader([]byte(diff)))
		dec.UseNumber()
		if err := dec.Decode(&rec.Discrepancies); err != nil {
			return nil, fmt.Errorf("decode discrepancies for %s: %w", rec.TradeID, err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}
