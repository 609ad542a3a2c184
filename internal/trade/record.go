// Package trade defines the untyped trade record exchanged between capture systems and the
// engine, together with a typed accessor layer over it.
package trade

import (
	"errors"
	"fmt"
	"maps"
	"sort"
	"strconv"
	"strings"
	"time"

	"trade-recon/internal/normalize"
)

// IDField is the display name of the trade identifier.
const IDField = "TradeID"

var (
	ErrMissing   = errors.New("field missing")
	ErrNotNumber = errors.New("not a number")
	ErrNotDate   = errors.New("not a date")
)

// FieldError reports a typed-accessor failure on a single field.
type FieldError struct {
	Field string
	Value any
	Err   error
}

func (e *FieldError) Error() string {
	if errors.Is(e.Err, ErrMissing) {
		return fmt.Sprintf("%s: %v", e.Field, e.Err)
	}
	return fmt.Sprintf("%s=%v: %v", e.Field, e.Value, e.Err)
}

func (e *FieldError) Unwrap() error { return e.Err }

// Record is a trade (or termsheet) as captured: field name to string, number, bool or date.
// The engine only reads records.
type Record map[string]any

// Lookup resolves field by exact name first and then by normalized key, so that
// "Trade ID", "TradeID" and "trade_id" all hit the same entry. When several keys normalize
// identically the lexically smallest one wins.
func (r Record) Lookup(field string) (any, bool) {
	if v, ok := r[field]; ok {
		return v, true
	}
	want := normalize.Key(field)
	var (
		found string
		hit   bool
	)
	for k := range r {
		if normalize.Key(k) != want {
			continue
		}
		if !hit || k < found {
			found, hit = k, true
		}
	}
	if !hit {
		return nil, false
	}
	return r[found], true
}

// LookupAny returns the first of names that is present.
func (r Record) LookupAny(names ...string) (any, bool) {
	for _, name := range names {
		if v, ok := r.Lookup(name); ok {
			return v, true
		}
	}
	return nil, false
}

// Raw returns the stored value or nil.
func (r Record) Raw(field string) any {
	v, _ := r.Lookup(field)
	return v
}

// Text returns the textual form of field. Nil values count as absent.
func (r Record) Text(field string) (string, bool) {
	v, ok := r.Lookup(field)
	if !ok {
		return "", false
	}
	return normalize.Text(v)
}

// Present reports whether field exists with a non-blank value.
func (r Record) Present(field string) bool {
	s, ok := r.Text(field)
	return ok && strings.TrimSpace(s) != ""
}

// Float coerces field to float64.
func (r Record) Float(field string) (float64, error) {
	v, ok := r.Lookup(field)
	if !ok || v == nil {
		return 0, &FieldError{Field: field, Err: ErrMissing}
	}
	switch t := v.(type) {
	case float64:
		return t, nil
	case int:
		return float64(t), nil
	case int64:
		return float64(t), nil
	}
	s, _ := normalize.Text(v)
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, &FieldError{Field: field, Value: v, Err: ErrNotNumber}
	}
	return f, nil
}

// Int coerces field to an integer; fractional values are rejected.
func (r Record) Int(field string) (int64, error) {
	v, ok := r.Lookup(field)
	if !ok || v == nil {
		return 0, &FieldError{Field: field, Err: ErrMissing}
	}
	switch t := v.(type) {
	case int:
		return int64(t), nil
	case int64:
		return t, nil
	case float64:
		if t != float64(int64(t)) {
			return 0, &FieldError{Field: field, Value: v, Err: ErrNotNumber}
		}
		return int64(t), nil
	}
	s, _ := normalize.Text(v)
	i, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return 0, &FieldError{Field: field, Value: v, Err: ErrNotNumber}
	}
	return i, nil
}

// dateLayout is year-month-day; month and day may be unpadded.
const dateLayout = "2006-1-2"

// Date parses field as YYYY-MM-DD; time.Time values pass through.
func (r Record) Date(field string) (time.Time, error) {
	v, ok := r.Lookup(field)
	if !ok || v == nil {
		return time.Time{}, &FieldError{Field: field, Err: ErrMissing}
	}
	if t, ok := v.(time.Time); ok {
		return t, nil
	}
	s, _ := normalize.Text(v)
	t, err := time.Parse(dateLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, &FieldError{Field: field, Value: v, Err: ErrNotDate}
	}
	return t, nil
}

// Clone returns a shallow copy that callers may keep as a snapshot.
func (r Record) Clone() Record {
	if r == nil {
		return nil
	}
	return maps.Clone(r)
}

// Fields returns the record's field names in sorted order.
func (r Record) Fields() []string {
	out := make([]string, 0, len(r))
	for k := range r {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// ID returns the trimmed trade identifier, or "" when no spelling of it is present.
func ID(r Record) string {
	s, ok := r.Text(IDField)
	if !ok {
		return ""
	}
	return strings.TrimSpace(s)
}

// Key returns the canonical matching key of r's trade identifier.
func Key(r Record) string {
	return normalize.Key(ID(r))
}
