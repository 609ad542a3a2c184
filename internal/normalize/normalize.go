// Package normalize canonicalizes field names and values so that records captured by
// different upstream systems can be compared with one another.
package normalize

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode"
)

// ISODate is the canonical date layout emitted by Value.
const ISODate = "2006-01-02"

// dateLayouts are tried in order; the first successful parse wins, so month-first
// beats day-first for ambiguous inputs such as 03/04/2024.
var dateLayouts = []string{
	"2006-1-2",
	"1/2/2006",
	"2/1/2006",
	"2006/1/2",
	"1-2-2006",
	"2-1-2006",
}

// Keys are normalized (see Key) before lookup.
var caseInsensitiveFields = map[string]bool{
	"tradetype":              true,
	"settlementstatus":       true,
	"kycstatus":              true,
	"referencedatavalidated": true,
}

var numericFields = map[string]bool{
	"quantity":       true,
	"price":          true,
	"tradevalue":     true,
	"commission":     true,
	"taxes":          true,
	"totalcost":      true,
	"notionalamount": true,
	"fxrate":         true,
}

// Key canonicalizes a field name (or a trade identifier) for matching: all whitespace and
// underscores are removed and the result is lower-cased. It is never used for display.
func Key(raw string) string {
	var b strings.Builder
	b.Grow(len(raw))
	for _, r := range raw {
		if unicode.IsSpace(r) || r == '_' {
			continue
		}
		b.WriteRune(unicode.ToLower(r))
	}
	return b.String()
}

// Text renders an untyped record value as a string. The boolean is false for nil.
func Text(v any) (string, bool) {
	switch t := v.(type) {
	case nil:
		return "", false
	case string:
		return t, true
	case json.Number:
		return t.String(), true
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), true
	case float32:
		return strconv.FormatFloat(float64(t), 'f', -1, 32), true
	case int:
		return strconv.Itoa(t), true
	case int32:
		return strconv.FormatInt(int64(t), 10), true
	case int64:
		return strconv.FormatInt(t, 10), true
	case uint:
		return strconv.FormatUint(uint64(t), 10), true
	case uint64:
		return strconv.FormatUint(t, 10), true
	case bool:
		return strconv.FormatBool(t), true
	case time.Time:
		return t.Format(ISODate), true
	case *time.Time:
		if t == nil {
			return "", false
		}
		return t.Format(ISODate), true
	case fmt.Stringer:
		return t.String(), true
	default:
		return fmt.Sprint(t), true
	}
}

// Value returns the comparison form of v for the given field name:
//   - trade type, settlement status, KYC status and reference-data flags are lower-cased;
//   - other fields whose name contains "date" are re-emitted as YYYY-MM-DD when any known layout parses;
//   - amount-like fields go through a float round-trip so "100" and "100.0" agree;
//   - anything else is trimmed.
//
// Unparseable dates and numbers come back trimmed but otherwise untouched. Value is pure and
// idempotent.
func Value(v any, field string) string {
	s, _ := Text(v)
	s = strings.TrimSpace(s)
	key := Key(field)
	switch {
	case caseInsensitiveFields[key]:
		return strings.ToLower(s)
	case strings.Contains(key, "date"):
		return Date(s)
	case numericFields[key]:
		return Number(s)
	}
	return s
}

// Date re-emits s as YYYY-MM-DD when one of the supported layouts parses it.
func Date(s string) string {
	s = strings.TrimSpace(s)
	if t, ok := ParseDate(s); ok {
		return t.Format(ISODate)
	}
	return s
}

// ParseDate tries every supported layout in order.
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// Number canonicalizes a numeric string; s is returned unchanged when it does not parse.
func Number(s string) string {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return s
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// Equal reports whether a and b are the same value for field after normalization.
// Two absent values are equal; an absent value never equals a present one.
func Equal(a, b any, field string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return Value(a, field) == Value(b, field)
}
