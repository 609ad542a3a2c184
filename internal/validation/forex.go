package validation

import (
	"fmt"
	"time"

	"trade-recon/internal/trade"
)

const (
	minNotional       = 1000
	maxNotional       = 1_000_000_000
	maxFXRate         = 1000
	maxSettlementDays = 30
	spotSettleDays    = 2
)

// forexChecks covers date sequencing, value ranges and product conventions. Each group only
// runs when the fields it needs are present.
func forexChecks(rec trade.Record, now time.Time) []string {
	var out []string
	today := civil(now)

	if rec.Present("TradeDate") && rec.Present("SettlementDate") && rec.Present("MaturityDate") {
		out = append(out, dateSequence(rec, today)...)
	}

	if rec.Present("NotionalAmount") && rec.Present("FXRate") {
		notional, err1 := rec.Float("NotionalAmount")
		rate, err2 := rec.Float("FXRate")
		if err1 != nil || err2 != nil {
			out = append(out, "Invalid numeric values for range validation")
		} else {
			out = append(out, numericRanges(notional, rate)...)
		}
	}

	product, _ := rec.Text("ProductType")
	if product == "Spot" && rec.Present("TradeDate") && rec.Present("SettlementDate") {
		tradeDate, err1 := rec.Date("TradeDate")
		settle, err2 := rec.Date("SettlementDate")
		switch {
		case err1 != nil || err2 != nil:
			out = append(out, "Invalid date format for spot settlement validation")
		case !settle.Equal(tradeDate.AddDate(0, 0, spotSettleDays)):
			out = append(out, "Spot trades must settle T+2 (TradeDate + 2 days)")
		}
	}
	if product == "Forward" && rec.Present("TradeDate") && rec.Present("MaturityDate") {
		tradeDate, err1 := rec.Date("TradeDate")
		maturity, err2 := rec.Date("MaturityDate")
		switch {
		case err1 != nil || err2 != nil:
			out = append(out, "Invalid date format for forward maturity validation")
		case !maturity.After(tradeDate):
			out = append(out, "Forward trades must have a future maturity date")
		}
	}

	pair, _ := rec.Text("CurrencyPair")
	dealt, _ := rec.Text("DealtCurrency")
	base, _ := rec.Text("BaseCurrency")
	if pair != "" && dealt != "" && base != "" {
		if expected := dealt + "/" + base; pair != expected {
			out = append(out, fmt.Sprintf("Currency pair '%s' must match dealt/base currency combination '%s'", pair, expected))
		}
	}
	return out
}

func dateSequence(rec trade.Record, today time.Time) []string {
	tradeDate, err1 := rec.Date("TradeDate")
	settle, err2 := rec.Date("SettlementDate")
	maturity, err3 := rec.Date("MaturityDate")
	if err1 != nil || err2 != nil || err3 != nil {
		return []string{"Invalid date format for date sequence validation"}
	}

	var out []string
	if tradeDate.After(today) {
		out = append(out, "Trade date cannot be in the future")
	}
	if settle.Before(tradeDate) {
		out = append(out, "Settlement date must not be before trade date")
	}
	if maturity.Before(tradeDate) {
		out = append(out, "Maturity date must not be before trade date")
	}
	if maturity.Before(settle) {
		out = append(out, "Maturity date must not be before settlement date")
	}
	if settle.After(today.AddDate(0, 0, maxSettlementDays)) {
		out = append(out, fmt.Sprintf("Settlement date cannot be more than %d days in the future", maxSettlementDays))
	}
	return out
}

func numericRanges(notional, rate float64) []string {
	var out []string
	switch {
	case rate <= 0:
		out = append(out, "FX Rate must be positive")
	case rate > maxFXRate:
		out = append(out, fmt.Sprintf("FX Rate must be reasonable (<= %d)", maxFXRate))
	}
	switch {
	case notional <= 0:
		out = append(out, "Notional amount must be positive")
	case notional < minNotional:
		out = append(out, fmt.Sprintf("Notional amount must be at least %d", minNotional))
	case notional > maxNotional:
		out = append(out, fmt.Sprintf("Notional amount must not exceed %d", maxNotional))
	}
	return out
}

// civil truncates t to midnight UTC of its calendar date.
func civil(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
