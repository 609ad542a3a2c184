package validation

import (
	"fmt"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"trade-recon/internal/normalize"
	"trade-recon/internal/rules"
	"trade-recon/internal/trade"
)

var isinPattern = regexp.MustCompile(`^[A-Z]{2}[A-Z0-9]{9}[0-9]$`)

const unknownTradeID = "UNKNOWN"

// Evaluator applies the full rule catalog to a single record without a termsheet. Reasons are
// appended stage by stage: mandatory, format, logical, static, custom.
type Evaluator struct {
	cat           *rules.Catalog
	mandatory     []string
	formats       []rules.FormatRule
	static        []rules.StaticRule
	custom        []rules.CustomRule
	currencies    []string
	currencyPairs []string
	now           func() time.Time
}

// EvaluatorOption customizes an Evaluator.
type EvaluatorOption func(*Evaluator)

// WithClock fixes "today" for the forex date checks.
func WithClock(now func() time.Time) EvaluatorOption {
	return func(e *Evaluator) { e.now = now }
}

func NewEvaluator(cat *rules.Catalog, opts ...EvaluatorOption) *Evaluator {
	e := &Evaluator{
		cat:           cat,
		mandatory:     cat.MandatoryFields(),
		formats:       cat.FormatRules(),
		static:        cat.StaticValidation(),
		custom:        cat.CustomRules(),
		currencies:    cat.Currencies(),
		currencyPairs: cat.CurrencyPairs(),
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Evaluate returns Success when no check produced a reason and Failed otherwise.
func (e *Evaluator) Evaluate(rec trade.Record) Verdict {
	id := trade.ID(rec)
	if id == "" {
		id = unknownTradeID
	}

	var reasons []string
	reasons = append(reasons, e.checkMandatory(rec)...)
	reasons = append(reasons, e.checkFormats(rec)...)
	switch e.cat.AssetClass() {
	case rules.Forex:
		reasons = append(reasons, forexChecks(rec, e.now())...)
	default:
		reasons = append(reasons, equityChecks(rec)...)
	}
	reasons = append(reasons, e.checkStatic(rec)...)
	reasons = append(reasons, e.checkCustom(rec)...)

	v := Verdict{TradeID: id, Status: StatusSuccess}
	if len(reasons) > 0 {
		v.Status = StatusFailed
		v.Reasons = reasons
	}
	return v
}

func (e *Evaluator) checkMandatory(rec trade.Record) []string {
	var out []string
	for _, field := range e.mandatory {
		if !rec.Present(field) {
			out = append(out, "Missing mandatory field: "+field)
		}
	}
	return out
}

func (e *Evaluator) checkFormats(rec trade.Record) []string {
	var out []string
	for _, rule := range e.formats {
		field := rule.Field
		v := rec.Raw(field)
		switch rule.Kind {
		case rules.FormatDate:
			if v == nil {
				out = append(out, "Missing date in field: "+field)
			} else if _, err := rec.Date(field); err != nil {
				out = append(out, fmt.Sprintf("Invalid date format in field: %s (Expected YYYY-MM-DD)", field))
			}
		case rules.FormatInt:
			if v == nil {
				out = append(out, "Missing integer in field: "+field)
			} else if !intLike(v) {
				out = append(out, "Invalid integer in field: "+field)
			}
		case rules.FormatFloat:
			if v == nil {
				out = append(out, "Missing float in field: "+field)
			} else if !floatLike(v) {
				out = append(out, "Invalid float in field: "+field)
			}
		case rules.FormatISIN:
			if !isinPattern.MatchString(display(v)) {
				out = append(out, "Invalid ISIN format in field: "+field)
			}
		case rules.FormatCurrencyCode:
			if v == nil {
				out = append(out, "Missing currency code in field: "+field)
			} else if !member(v, e.currencies) {
				out = append(out, fmt.Sprintf("Invalid currency code in field: %s. Expected one of %s", field, listing(e.currencies)))
			}
		case rules.FormatCurrencyPair:
			if v == nil {
				out = append(out, "Missing currency pair in field: "+field)
			} else if !member(v, e.currencyPairs) {
				out = append(out, fmt.Sprintf("Invalid currency pair in field: %s. Expected one of %s", field, listing(e.currencyPairs)))
			}
		case rules.FormatEnum:
			if !member(v, rule.Allowed) {
				out = append(out, fmt.Sprintf("Invalid value '%s' for field: %s. Expected: %s", display(v), field, listing(rule.Allowed)))
			}
		}
	}
	return out
}

// equityChecks are the fixed trade-economics checks. Amounts agree when equal after rounding
// to cents.
func equityChecks(rec trade.Record) []string {
	var out []string

	tradeDate, err1 := rec.Date("Trade Date")
	settleDate, err2 := rec.Date("Settlement Date")
	if err1 != nil || err2 != nil {
		out = append(out, "Invalid or missing date fields for logical comparison")
	} else if settleDate.Before(tradeDate) {
		out = append(out, "Settlement Date is earlier than Trade Date")
	}

	qty, err1 := amount(rec, "Quantity")
	price, err2 := amount(rec, "Price")
	value, valueErr := amount(rec, "Trade Value")
	if err1 != nil || err2 != nil || valueErr != nil {
		out = append(out, "Invalid numeric values for Quantity, Price or Trade Value")
	} else if !qty.Mul(price).Round(2).Equal(value.Round(2)) {
		out = append(out, "Trade Value ≠ Quantity * Price")
	}

	total, err1 := amount(rec, "Total Cost")
	commission, err2 := amount(rec, "Commission")
	taxes, err3 := amount(rec, "Taxes")
	if err1 != nil || err2 != nil || err3 != nil || valueErr != nil {
		out = append(out, "Invalid values for cost calculation")
	} else if !value.Add(commission).Add(taxes).Round(2).Equal(total.Round(2)) {
		out = append(out, "Total Cost ≠ Trade Value + Commission + Taxes")
	}
	return out
}

func amount(rec trade.Record, field string) (decimal.Decimal, error) {
	f, err := rec.Float(field)
	if err != nil {
		return decimal.Zero, err
	}
	return decimal.NewFromFloat(f), nil
}

func (e *Evaluator) checkStatic(rec trade.Record) []string {
	var out []string
	for _, rule := range e.static {
		if !member(rec.Raw(rule.Field), rule.Allowed) {
			out = append(out, fmt.Sprintf("Invalid value in field: %s. Expected one of %s", rule.Field, listing(rule.Allowed)))
		}
	}
	return out
}

func (e *Evaluator) checkCustom(rec trade.Record) []string {
	var out []string
	for _, rule := range e.custom {
		hit, err := rule.Condition.Eval(rec.Raw(rule.Field))
		switch {
		case err != nil:
			out = append(out, fmt.Sprintf("Error evaluating custom rule on field %s: %v", rule.Field, err))
		case hit:
			out = append(out, fmt.Sprintf("%s: Rule violated on field %s with condition %s", rule.Action, rule.Field, rule.Condition))
		}
	}
	return out
}

func intLike(v any) bool {
	switch t := v.(type) {
	case int, int32, int64, uint, uint64, float32, float64, bool:
		return true
	case string:
		_, err := strconv.ParseInt(strings.TrimSpace(t), 10, 64)
		return err == nil
	}
	s := display(v)
	_, err := strconv.ParseFloat(s, 64)
	return err == nil
}

func floatLike(v any) bool {
	switch t := v.(type) {
	case int, int32, int64, uint, uint64, float32, float64, bool:
		return true
	case string:
		_, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		return err == nil
	}
	_, err := strconv.ParseFloat(display(v), 64)
	return err == nil
}

// member compares the value's text form against allowed. Absent values are never members.
func member(v any, allowed []string) bool {
	if v == nil {
		return false
	}
	return slices.Contains(allowed, display(v))
}

// display renders a value the way reasons quote it; absent values read as None.
func display(v any) string {
	if v == nil {
		return "None"
	}
	s, _ := normalize.Text(v)
	return s
}

// listing renders allowed values as ['a', 'b'].
func listing(values []string) string {
	quoted := make([]string, len(values))
	for i, v := range values {
		quoted[i] = "'" + v + "'"
	}
	return "[" + strings.Join(quoted, ", ") + "]"
}
