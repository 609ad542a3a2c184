package validation

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trade-recon/internal/rules"
	"trade-recon/internal/trade"
)

func cleanEquity() trade.Record {
	return trade.Record{
		"TradeID":           "EQ-1",
		"Trade Date":        "2024-01-02",
		"Settlement Date":   "2024-01-04",
		"Symbol":            "AAPL",
		"ISIN":              "US0378331005",
		"Trade Type":        "Buy",
		"Quantity":          100,
		"Price":             10.10,
		"Trade Value":       1010.00,
		"Commission":        5.25,
		"Taxes":             1.01,
		"Total Cost":        1016.26,
		"Counterparty":      "JP Morgan",
		"Settlement Status": "Settled",
		"KYC Status":        "Verified",
	}
}

func equityEvaluator(t *testing.T) *Evaluator {
	t.Helper()
	cat, err := rules.Load("../../configs/rules_equity.yaml")
	require.NoError(t, err)
	return NewEvaluator(cat)
}

func TestEvaluateCleanEquity(t *testing.T) {
	got := equityEvaluator(t).Evaluate(cleanEquity())
	assert.Equal(t, StatusSuccess, got.Status)
	assert.Empty(t, got.Reasons)
	assert.Equal(t, "EQ-1", got.TradeID)
}

func TestEvaluateEquityLogicalChecks(t *testing.T) {
	tests := []struct {
		name   string
		change map[string]any
		want   string
	}{
		{"settles before trade", map[string]any{"Settlement Date": "2024-01-01"}, "Settlement Date is earlier than Trade Date"},
		{"unparseable date", map[string]any{"Trade Date": "02/01/2024"}, "Invalid or missing date fields for logical comparison"},
		{"value mismatch", map[string]any{"Trade Value": 1011, "Total Cost": 1017.26}, "Trade Value ≠ Quantity * Price"},
		{"cost mismatch", map[string]any{"Total Cost": 1016.27}, "Total Cost ≠ Trade Value + Commission + Taxes"},
		{"numeric strings still compute", map[string]any{"Total Cost": "1016.27"}, "Total Cost ≠ Trade Value + Commission + Taxes"},
		{"bad price", map[string]any{"Price": "ten"}, "Invalid numeric values for Quantity, Price or Trade Value"},
		{"missing taxes", map[string]any{"Taxes": nil}, "Invalid values for cost calculation"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := cleanEquity()
			for k, v := range tt.change {
				rec[k] = v
			}
			got := equityEvaluator(t).Evaluate(rec)
			assert.Equal(t, StatusFailed, got.Status)
			assert.Contains(t, got.Reasons, tt.want)
		})
	}
}

func TestEvaluateCentRounding(t *testing.T) {
	rec := cleanEquity()
	rec["Quantity"] = 3
	rec["Price"] = 0.1
	rec["Trade Value"] = 0.3
	rec["Commission"] = 0
	rec["Taxes"] = 0.004
	rec["Total Cost"] = 0.30
	got := equityEvaluator(t).Evaluate(rec)
	assert.Equal(t, StatusSuccess, got.Status, got.Reasons)
}

func TestEvaluateStageOrder(t *testing.T) {
	cat := mustCatalog(t, `
mandatory_fields: [Counterparty]
format_rules:
  Quantity: int
  Side: [Buy, Sell]
static_validation:
  Status: [Open]
custom_rules:
  - field: Quantity
    condition: "< 0"
    action: flag_negative
department_assignment: {}
`)
	rec := trade.Record{
		"TradeID":  "T1",
		"Quantity": -5,
		"Side":     "Hold",
		"Status":   "Closed",
	}
	got := NewEvaluator(cat).Evaluate(rec)
	require.Equal(t, StatusFailed, got.Status)
	require.Len(t, got.Reasons, 7)
	assert.Equal(t, "Missing mandatory field: Counterparty", got.Reasons[0])
	assert.Equal(t, "Invalid value 'Hold' for field: Side. Expected: ['Buy', 'Sell']", got.Reasons[1])
	assert.Equal(t, "Invalid or missing date fields for logical comparison", got.Reasons[2])
	assert.Equal(t, "Invalid numeric values for Quantity, Price or Trade Value", got.Reasons[3])
	assert.Equal(t, "Invalid values for cost calculation", got.Reasons[4])
	assert.Equal(t, "Invalid value in field: Status. Expected one of ['Open']", got.Reasons[5])
	assert.Equal(t, "flag_negative: Rule violated on field Quantity with condition < 0", got.Reasons[6])
}

func TestEvaluateFormatRules(t *testing.T) {
	cat := mustCatalog(t, `
mandatory_fields: []
format_rules:
  Trade Date: date
  Quantity: int
  Price: float
  ISIN: isin
  Side: [Buy, Sell]
static_validation: {}
custom_rules: []
department_assignment: {}
`)
	e := NewEvaluator(cat)
	rec := cleanEquity()
	rec["Trade Date"] = "2024/01/02"
	rec["Quantity"] = "10.5"
	rec["Price"] = "abc"
	rec["ISIN"] = "us0378331005"
	got := e.checkFormats(rec)
	assert.Equal(t, []string{
		"Invalid date format in field: Trade Date (Expected YYYY-MM-DD)",
		"Invalid integer in field: Quantity",
		"Invalid float in field: Price",
		"Invalid ISIN format in field: ISIN",
		"Invalid value 'None' for field: Side. Expected: ['Buy', 'Sell']",
	}, got)

	got = e.checkFormats(trade.Record{"Quantity": 10.0, "Price": 3})
	assert.Equal(t, []string{
		"Missing date in field: Trade Date",
		"Invalid ISIN format in field: ISIN",
		"Invalid value 'None' for field: Side. Expected: ['Buy', 'Sell']",
	}, got)
}

func TestEvaluateCustomRuleNegativeFXRate(t *testing.T) {
	cat := mustCatalog(t, `
mandatory_fields: []
format_rules: {}
static_validation: {}
custom_rules:
  - field: FXRate
    condition: "<= 0"
    action: flag_invalid_fx_rate
department_assignment: {}
`)
	got := NewEvaluator(cat).checkCustom(trade.Record{"TradeID": "FX1", "FXRate": -1})
	require.Len(t, got, 1)
	assert.Contains(t, got[0], "flag_invalid_fx_rate")
	assert.Equal(t, "flag_invalid_fx_rate: Rule violated on field FXRate with condition <= 0", got[0])
}

func TestEvaluateCustomRuleTypeError(t *testing.T) {
	cat := mustCatalog(t, `
mandatory_fields: []
format_rules: {}
static_validation: {}
custom_rules:
  - field: FXRate
    condition: "<= 0"
    action: flag_invalid_fx_rate
  - field: Counterparty
    condition: "== 'Unknown'"
    action: flag_manual_review
department_assignment: {}
`)
	got := NewEvaluator(cat).checkCustom(trade.Record{"FXRate": "-1", "Counterparty": "Unknown"})
	assert.Equal(t, []string{
		"Error evaluating custom rule on field FXRate: '<=' not supported between string and number",
		"flag_manual_review: Rule violated on field Counterparty with condition == 'Unknown'",
	}, got)
}

func forexEvaluator(t *testing.T) *Evaluator {
	t.Helper()
	cat, err := rules.Load("../../configs/rules_forex.yaml")
	require.NoError(t, err)
	return NewEvaluator(cat, WithClock(func() time.Time {
		return time.Date(2024, 6, 10, 15, 0, 0, 0, time.UTC)
	}))
}

func cleanForex() trade.Record {
	return trade.Record{
		"TradeID":        "FX-1",
		"TradeDate":      "2024-06-10",
		"Counterparty":   "Barclays",
		"CurrencyPair":   "EUR/USD",
		"BuySell":        "Buy",
		"DealtCurrency":  "EUR",
		"BaseCurrency":   "USD",
		"TermCurrency":   "USD",
		"NotionalAmount": 1_000_000,
		"FXRate":         1.0845,
		"ProductType":    "Spot",
		"MaturityDate":   "2024-06-12",
		"SettlementDate": "2024-06-12",
		"KYCCheck":       "Complete",
	}
}

func TestEvaluateCleanForex(t *testing.T) {
	got := forexEvaluator(t).Evaluate(cleanForex())
	assert.Equal(t, StatusSuccess, got.Status, got.Reasons)
}

func TestEvaluateForexBusinessRules(t *testing.T) {
	tests := []struct {
		name   string
		change map[string]any
		want   []string
	}{
		{"future trade", map[string]any{"TradeDate": "2024-06-11", "SettlementDate": "2024-06-13", "MaturityDate": "2024-06-13"}, []string{"Trade date cannot be in the future"}},
		{"settlement before trade", map[string]any{"SettlementDate": "2024-06-09"}, []string{"Settlement date must not be before trade date", "Spot trades must settle T+2 (TradeDate + 2 days)"}},
		{"maturity before settlement", map[string]any{"MaturityDate": "2024-06-11"}, []string{"Maturity date must not be before settlement date"}},
		{"settlement too far", map[string]any{"ProductType": "Forward", "SettlementDate": "2024-07-11", "MaturityDate": "2024-07-11"}, []string{"Settlement date cannot be more than 30 days in the future"}},
		{"bad fx rate", map[string]any{"FXRate": 1500}, []string{"FX Rate must be reasonable (<= 1000)"}},
		{"small notional", map[string]any{"NotionalAmount": "500"}, []string{"Notional amount must be at least 1000"}},
		{"huge notional", map[string]any{"NotionalAmount": 2e9}, []string{"Notional amount must not exceed 1000000000"}},
		{"spot not t+2", map[string]any{"SettlementDate": "2024-06-11", "MaturityDate": "2024-06-11"}, []string{"Spot trades must settle T+2 (TradeDate + 2 days)"}},
		{"forward same day", map[string]any{"ProductType": "Forward", "SettlementDate": "2024-06-10", "MaturityDate": "2024-06-10"}, []string{"Forward trades must have a future maturity date"}},
		{"pair mismatch", map[string]any{"CurrencyPair": "USD/EUR"}, []string{"Currency pair 'USD/EUR' must match dealt/base currency combination 'EUR/USD'"}},
		{"bad date", map[string]any{"MaturityDate": "12.06.2024"}, []string{"Invalid date format in field: MaturityDate (Expected YYYY-MM-DD)", "Invalid date format for date sequence validation"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := cleanForex()
			for k, v := range tt.change {
				rec[k] = v
			}
			got := forexEvaluator(t).Evaluate(rec)
			assert.Equal(t, StatusFailed, got.Status)
			assert.Equal(t, tt.want, got.Reasons)
		})
	}
}

func TestEvaluateForexReferenceData(t *testing.T) {
	rec := cleanForex()
	rec["TermCurrency"] = "XYZ"
	rec["KYCCheck"] = "Pending"
	got := forexEvaluator(t).Evaluate(rec)
	require.Len(t, got.Reasons, 2)
	assert.Contains(t, got.Reasons[0], "Invalid currency code in field: TermCurrency. Expected one of ['USD', 'EUR'")
	assert.Equal(t, "flag_kyc_review: Rule violated on field KYCCheck with condition in ['Incomplete', 'Rejected', 'Pending']", got.Reasons[1])
}

func TestEvaluateForexCounterpartyApprovedList(t *testing.T) {
	rec := cleanForex()
	rec["Counterparty"] = "Acme Bank"
	got := forexEvaluator(t).Evaluate(rec)
	assert.Equal(t, StatusFailed, got.Status)
	require.Len(t, got.Reasons, 1)
	assert.Contains(t, got.Reasons[0], "Invalid value in field: Counterparty. Expected one of ['Goldman Sachs'")

	rec["Counterparty"] = "HSBC"
	assert.Equal(t, StatusSuccess, forexEvaluator(t).Evaluate(rec).Status)
}
