package rules

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const minimalCatalog = `
mandatory_fields: [TradeID, Quantity]
format_rules:
  Trade Date: date
  Quantity: int
  Side: [Buy, Sell]
static_validation:
  Status: [Open, Closed]
custom_rules:
  - field: Quantity
    condition: "<= 0"
    action: flag_invalid_quantity
department_assignment:
  Zeta Desk: [Quantity]
  Alpha Desk: [Side]
`

func TestParsePreservesDocumentOrder(t *testing.T) {
	cat, err := Parse([]byte(minimalCatalog))
	require.NoError(t, err)

	assert.Equal(t, Equity, cat.AssetClass())
	assert.Equal(t, []string{"TradeID", "Quantity"}, cat.MandatoryFields())

	formats := cat.FormatRules()
	require.Len(t, formats, 3)
	assert.Equal(t, FormatRule{Field: "Trade Date", Kind: FormatDate}, formats[0])
	assert.Equal(t, FormatRule{Field: "Quantity", Kind: FormatInt}, formats[1])
	assert.Equal(t, FormatRule{Field: "Side", Kind: FormatEnum, Allowed: []string{"Buy", "Sell"}}, formats[2])

	depts := cat.Departments()
	require.Len(t, depts, 2)
	assert.Equal(t, "Zeta Desk", depts[0].Name)
	assert.Equal(t, "Alpha Desk", depts[1].Name)

	custom := cat.CustomRules()
	require.Len(t, custom, 1)
	assert.Equal(t, OpLe, custom[0].Condition.Op)
	assert.Equal(t, "<= 0", custom[0].Condition.String())
}

func TestParseAcceptsJSON(t *testing.T) {
	doc := `{
		"mandatory_fields": ["TradeID"],
		"format_rules": {"Price": "float"},
		"static_validation": {},
		"custom_rules": [{"field": "Price", "condition": "<= 0", "action": "flag"}],
		"department_assignment": {"Front Office": ["Price"]}
	}`
	cat, err := Parse([]byte(doc))
	require.NoError(t, err)
	assert.Equal(t, []FormatRule{{Field: "Price", Kind: FormatFloat}}, cat.FormatRules())
	assert.Empty(t, cat.StaticValidation())
}

func TestParseRejectsInvalidCatalogs(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"not a mapping", "- a\n- b\n"},
		{"missing section", "mandatory_fields: [TradeID]\nformat_rules: {}\nstatic_validation: {}\ncustom_rules: []\n"},
		{"mandatory not a list", "mandatory_fields: TradeID\nformat_rules: {}\nstatic_validation: {}\ncustom_rules: []\ndepartment_assignment: {}\n"},
		{"unknown format", "mandatory_fields: []\nformat_rules: {Price: money}\nstatic_validation: {}\ncustom_rules: []\ndepartment_assignment: {}\n"},
		{"bad condition", "mandatory_fields: []\nformat_rules: {}\nstatic_validation: {}\ncustom_rules: [{field: Price, condition: 'approximately 3', action: x}]\ndepartment_assignment: {}\n"},
		{"missing action", "mandatory_fields: []\nformat_rules: {}\nstatic_validation: {}\ncustom_rules: [{field: Price, condition: '< 3'}]\ndepartment_assignment: {}\n"},
		{"unknown operator", "mandatory_fields: []\nformat_rules: {}\nstatic_validation: {}\ncustom_rules: [{field: Price, condition: {op: about, value: 3}, action: x}]\ndepartment_assignment: {}\n"},
		{"unknown asset class", "asset_class: crypto\nmandatory_fields: []\nformat_rules: {}\nstatic_validation: {}\ncustom_rules: []\ndepartment_assignment: {}\n"},
		{"malformed yaml", "mandatory_fields: [TradeID\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.doc))
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidCatalog), "got %v", err)
		})
	}
}

func TestStructuredCondition(t *testing.T) {
	doc := `
mandatory_fields: []
format_rules: {}
static_validation: {}
custom_rules:
  - field: KYC Status
    condition: {op: notIn, value: [Verified, 1, true, null]}
    action: flag_kyc
  - field: Price
    condition: {op: gt, value: 2.5}
    action: flag_price
department_assignment: {}
`
	cat, err := Parse([]byte(doc))
	require.NoError(t, err)
	custom := cat.CustomRules()
	require.Len(t, custom, 2)

	notIn := custom[0].Condition
	assert.Equal(t, OpNotIn, notIn.Op)
	assert.Equal(t, []Literal{
		{Kind: KindString, Str: "Verified"},
		{Kind: KindNumber, Num: 1},
		{Kind: KindBool, Bool: true},
		{Kind: KindNull},
	}, notIn.Set)
	assert.Equal(t, `not in ["Verified", 1, True, None]`, notIn.String())

	gt := custom[1].Condition
	assert.Equal(t, Literal{Kind: KindNumber, Num: 2.5}, gt.Operand)
	assert.Equal(t, "> 2.5", gt.String())
}

func TestLoadShippedCatalogs(t *testing.T) {
	equity, err := Load("../../configs/rules_equity.yaml")
	require.NoError(t, err)
	assert.Equal(t, Equity, equity.AssetClass())
	assert.Contains(t, equity.MandatoryFields(), "Trade Value")
	assert.NotEmpty(t, equity.CustomRules())

	forex, err := Load("../../configs/rules_forex.yaml")
	require.NoError(t, err)
	assert.Equal(t, Forex, forex.AssetClass())
	assert.Contains(t, forex.Currencies(), "USD")
	assert.Contains(t, forex.CurrencyPairs(), "EUR/USD")
	assert.Equal(t, "TradeID", forex.MandatoryFields()[0])
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load("testdata/does-not-exist.yaml")
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrInvalidCatalog))
}

func TestAccessorsReturnCopies(t *testing.T) {
	cat, err := Parse([]byte(minimalCatalog))
	require.NoError(t, err)
	fields := cat.MandatoryFields()
	fields[0] = "changed"
	assert.Equal(t, "TradeID", cat.MandatoryFields()[0])
}
