package reconciliation

import (
	"fmt"
	"strings"

	"trade-recon/internal/normalize"
	"trade-recon/internal/rules"
	"trade-recon/internal/trade"
)

// Discrepancy is one compared field on which the two sides disagree.
type Discrepancy struct {
	Field  string `json:"field"`
	ValueA any    `json:"valueA"`
	ValueB any    `json:"valueB"`
	Reason string `json:"reason"`
	Action string `json:"action"`
}

// Record is the comparison of one matched pair. An empty Discrepancies list means the pair
// agrees on every compared field.
type Record struct {
	TradeID       string        `json:"TradeID"`
	Kind          Kind          `json:"kind"`
	SourceA       trade.Record  `json:"sourceA"`
	SourceB       trade.Record  `json:"sourceB"`
	Discrepancies []Discrepancy `json:"discrepancies"`
}

// Matched reports whether the pair agrees on every compared field.
func (r Record) Matched() bool { return len(r.Discrepancies) == 0 }

// Actions lists the remediation steps of the record, or NoAction for a clean pair.
func (r Record) Actions() []string {
	if r.Matched() {
		return []string{NoAction}
	}
	out := make([]string, len(r.Discrepancies))
	for i, d := range r.Discrepancies {
		out[i] = d.Action
	}
	return out
}

// Describe renders both snapshots as one-line narratives.
func (r Record) Describe() (string, string) {
	return describe(r.SourceA, r.Kind), describe(r.SourceB, r.Kind)
}

func describe(rec trade.Record, kind Kind) string {
	get := func(names ...string) string {
		v, ok := rec.LookupAny(names...)
		if !ok || v == nil {
			return "N/A"
		}
		s, _ := normalize.Text(v)
		return s
	}
	var b strings.Builder
	if kind.Asset() == rules.Forex {
		fmt.Fprintf(&b, "%s %s %s at %s (%s)",
			get("Buy/Sell", "BuySell", "Direction"), get("Notional Amount"), get("Currency Pair", "Instrument"),
			get("FX Rate"), get("Product Type"))
		if !kind.SameTier() {
			fmt.Fprintf(&b, ", value date %s, to be settled on %s", get("Value Date"), get("Settlement Date"))
		}
		b.WriteString(".")
		return b.String()
	}
	fmt.Fprintf(&b, "%s %s shares of %s at %s each, totalling to a trade value of %s",
		get("Trade Type"), get("Quantity"), get("Symbol"), get("Price"), get("Trade Value"))
	if !kind.SameTier() {
		fmt.Fprintf(&b, ", to be settled on %s", get("Settlement Date"))
	}
	b.WriteString(".")
	return b.String()
}

// Reconcile joins a and b on canonical TradeID. Every matching pair is compared, so duplicate
// IDs yield their cross product; records without a counterpart are not reported. Results are
// ordered by a, then by b. Records without a TradeID never match.
func Reconcile(a, b []trade.Record, kind Kind) []Record {
	side := NewCounterparts(b)
	var out []Record
	for _, ra := range a {
		out = append(out, side.Row(ra, kind)...)
	}
	return out
}

// Counterparts is source B with its trade keys computed once, for repeated row scans.
type Counterparts struct {
	records []trade.Record
	keys    []string
}

func NewCounterparts(b []trade.Record) *Counterparts {
	keys := make([]string, len(b))
	for j, rb := range b {
		keys[j] = trade.Key(rb)
	}
	return &Counterparts{records: b, keys: keys}
}

// Row compares ra against every counterpart sharing its key, in source-B order.
func (c *Counterparts) Row(ra trade.Record, kind Kind) []Record {
	key := trade.Key(ra)
	if key == "" {
		return nil
	}
	var out []Record
	for j, rb := range c.records {
		if c.keys[j] == key {
			out = append(out, Compare(ra, rb, kind))
		}
	}
	return out
}

// Compare diffs two records already known to share a TradeID.
func Compare(a, b trade.Record, kind Kind) Record {
	rec := Record{
		TradeID:       trade.ID(a),
		Kind:          kind,
		SourceA:       a.Clone(),
		SourceB:       b.Clone(),
		Discrepancies: []Discrepancy{},
	}
	for _, f := range kind.Fields() {
		va, _ := a.LookupAny(f.names()...)
		vb, _ := b.LookupAny(f.names()...)
		if normalize.Equal(va, vb, f.Name) {
			continue
		}
		rec.Discrepancies = append(rec.Discrepancies, Discrepancy{
			Field:  f.Name,
			ValueA: va,
			ValueB: vb,
			Reason: f.Reason,
			Action: kind.Action(f.Name),
		})
	}
	return rec
}
