package validation

import (
	"fmt"

	"trade-recon/internal/normalize"
	"trade-recon/internal/rules"
	"trade-recon/internal/trade"
)

const (
	reasonMissingTradeID = "Missing TradeID"
	reasonNoTermsheet    = "No matching termsheet"
)

// Validator compares a trade against its termsheet on the catalog's mandatory fields.
type Validator struct {
	mandatory []string
}

func NewValidator(cat *rules.Catalog) *Validator {
	return &Validator{mandatory: cat.MandatoryFields()}
}

// Validate runs, in order: TradeID resolution, termsheet lookup, mandatory presence on both
// sides and, only when nothing is missing, normalized field comparison. The first two stages
// short-circuit.
func (v *Validator) Validate(rec trade.Record, lookup Lookup) Verdict {
	id := trade.ID(rec)
	if id == "" {
		return Verdict{Status: StatusPending, Reasons: []string{reasonMissingTradeID}}
	}
	verdict := Verdict{TradeID: id, Status: StatusSuccess}

	ts, ok := lookup(trade.Key(rec))
	if !ok {
		verdict.Status = StatusFailed
		verdict.Reasons = []string{reasonNoTermsheet}
		return verdict
	}

	var reasons []string
	for _, field := range v.mandatory {
		if !rec.Present(field) {
			reasons = append(reasons, "Trade missing: "+field)
		}
		if !ts.Present(field) {
			reasons = append(reasons, "Termsheet missing: "+field)
		}
	}

	if len(reasons) == 0 {
		for _, field := range v.mandatory {
			tv := normalize.Value(rec.Raw(field), field)
			sv := normalize.Value(ts.Raw(field), field)
			if tv != sv {
				reasons = append(reasons, fmt.Sprintf("%s mismatch: trade='%s' vs termsheet='%s'", field, tv, sv))
			}
		}
	}

	if len(reasons) > 0 {
		verdict.Status = StatusFailed
		verdict.Reasons = reasons
	}
	return verdict
}
