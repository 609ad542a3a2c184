package reconciliation

import (
	"fmt"
	"strings"

	"trade-recon/internal/normalize"
	"trade-recon/internal/rules"
)

// Kind names a pairing of two capture sources.
type Kind string

const (
	EquityFOFO Kind = "EQ-FO-FO"
	EquityFOBO Kind = "EQ-FO-BO"
	ForexFOFO  Kind = "FX-FO-FO"
	ForexFOBO  Kind = "FX-FO-BO"
)

// Kinds lists every supported pairing.
var Kinds = []Kind{EquityFOFO, EquityFOBO, ForexFOFO, ForexFOBO}

// ParseKind accepts the canonical names and the short forms "FO-FO"/"FO-BO" (equity).
func ParseKind(s string) (Kind, error) {
	switch k := Kind(strings.ToUpper(strings.TrimSpace(s))); k {
	case EquityFOFO, EquityFOBO, ForexFOFO, ForexFOBO:
		return k, nil
	case "FO-FO":
		return EquityFOFO, nil
	case "FO-BO":
		return EquityFOBO, nil
	}
	return "", fmt.Errorf("unknown pairing kind %q", s)
}

// SameTier is true for two front-office capture systems; false for front vs back office.
func (k Kind) SameTier() bool { return k == EquityFOFO || k == ForexFOFO }

// Asset returns the asset class whose field set the kind compares.
func (k Kind) Asset() rules.AssetClass {
	if k == ForexFOFO || k == ForexFOBO {
		return rules.Forex
	}
	return rules.Equity
}

// Sides are the display labels of the two sources.
func (k Kind) Sides() (string, string) {
	if k.SameTier() {
		return "SystemA", "SystemB"
	}
	return "FrontOffice", "BackOffice"
}

// Field is one compared attribute. Aliases are alternative spellings looked up in order after
// Name.
type Field struct {
	Name    string
	Aliases []string
	Reason  string
}

// Key is the action-table key of the field.
func (f Field) Key() string { return normalize.Key(f.Name) }

func (f Field) names() []string {
	return append([]string{f.Name}, f.Aliases...)
}

var (
	equityFields = []Field{
		{Name: "Trade Type", Reason: "Trade Type mismatch"},
		{Name: "Quantity", Reason: "Quantity mismatch"},
		{Name: "Symbol", Reason: "Symbol mismatch"},
		{Name: "Price", Reason: "Price mismatch"},
		{Name: "Trade Value", Reason: "Trade value mismatch"},
	}
	equitySettlement = Field{Name: "Settlement Date", Reason: "Settlement date mismatch"}

	forexFields = []Field{
		{Name: "FX Rate", Reason: "FX Rate mismatch"},
		{Name: "Notional Amount", Reason: "Notional Amount mismatch"},
		{Name: "Buy/Sell", Aliases: []string{"BuySell", "Direction"}, Reason: "Buy/Sell mismatch"},
		{Name: "Currency Pair", Aliases: []string{"Instrument"}, Reason: "Currency Pair mismatch"},
		{Name: "Product Type", Reason: "Product Type mismatch"},
	}
	forexDates = []Field{
		{Name: "Settlement Date", Reason: "Settlement date mismatch"},
		{Name: "Value Date", Reason: "Value date mismatch"},
	}
)

// Fields returns the compared field set of k in comparison order.
func (k Kind) Fields() []Field {
	switch k {
	case EquityFOFO:
		return equityFields
	case EquityFOBO:
		return append(append([]Field{}, equityFields...), equitySettlement)
	case ForexFOFO:
		return forexFields
	case ForexFOBO:
		return append(append([]Field{}, forexDates...), forexFields...)
	}
	return nil
}

// FallbackAction is used when a kind has no specific remediation for a field.
const FallbackAction = "Review and escalate as needed."

// NoAction describes a clean pair.
const NoAction = "No action required"

var actions = map[Kind]map[string]string{
	EquityFOFO: {
		"symbol":     "Verify stock symbol; contact front office support if mapping issue.",
		"tradetype":  "Reconfirm order direction. Mail trader for clarification if inconsistent.",
		"quantity":   "Cross-verify order quantity with trade confirmation. Contact booking desk if unclear.",
		"price":      "Validate execution price; escalate via email if price source differs.",
		"tradevalue": "Recalculate value (Qty × Price); contact FO platform support if misaligned.",
	},
	EquityFOBO: {
		"symbol":         "Check security identifier mapping. Raise ticket if not consistent.",
		"tradetype":      "Validate Buy/Sell direction. Escalate to FO if trade logic is incorrect.",
		"quantity":       "Compare FO quantity with clearing data. Mail settlements team if mismatch persists.",
		"price":          "Confirm execution price from broker blotter. Contact back office if discrepancy remains.",
		"tradevalue":     "Reconfirm value computation. Escalate to accounting if incorrect.",
		"settlementdate": "Validate correct T+ cycle. Mail BO team if settlement logic differs.",
	},
	ForexFOFO: {
		"fxrate":         "Confirm correct FX rate from execution logs and align both FO systems.",
		"notionalamount": "Verify trade notional. Contact support if unclear or trade is disputed.",
		"buy/sell":       "Validate trade direction; correct side or mail trader for confirmation.",
		"currencypair":   "Check currency pair mapping. Contact ops team if unclear.",
		"producttype":    "Review product classification; mail booking desk if mismatch persists.",
	},
	ForexFOBO: {
		"settlementdate": "Confirm market convention (e.g., T+1) and update system. Contact BO team if needed.",
		"valuedate":      "Confirm market convention (e.g., T+1) and update system. Contact BO team if needed.",
		"fxrate":         "Verify applied FX rate. Escalate via email if BO and FO differ persistently.",
		"notionalamount": "Confirm deal size from trade capture. Contact settlements team if mismatch unresolved.",
		"buy/sell":       "Cross-check trade side. Contact trade owner if discrepancy remains.",
		"currencypair":   "Validate FX pair legs; escalate to booking support if mismatched.",
		"producttype":    "Recheck trade type. Notify risk team if classification seems invalid.",
	},
}

// Action returns the remediation text for field under k. field may be any spelling.
func (k Kind) Action(field string) string {
	if a, ok := actions[k][normalize.Key(field)]; ok {
		return a
	}
	return FallbackAction
}
