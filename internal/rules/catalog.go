package rules

import (
	"errors"
	"fmt"
	"os"
	"slices"

	"gopkg.in/yaml.v3"
)

// ErrInvalidCatalog marks any malformed or incomplete rule configuration. It is fatal at
// startup.
var ErrInvalidCatalog = errors.New("invalid rule catalog")

// Required top-level sections.
const (
	SectionMandatory   = "mandatory_fields"
	SectionFormat      = "format_rules"
	SectionStatic      = "static_validation"
	SectionCustom      = "custom_rules"
	SectionDepartments = "department_assignment"

	sectionAssetClass = "asset_class"
	sectionReference  = "reference_data"
)

// AssetClass selects the fixed logical checks applied by the rule evaluator.
type AssetClass string

const (
	Equity AssetClass = "equity"
	Forex  AssetClass = "forex"
)

// FormatKind is the declared shape of a field.
type FormatKind string

const (
	FormatDate         FormatKind = "date"
	FormatInt          FormatKind = "int"
	FormatFloat        FormatKind = "float"
	FormatISIN         FormatKind = "isin"
	FormatCurrencyCode FormatKind = "currency_code"
	FormatCurrencyPair FormatKind = "currency_pair"
	FormatEnum         FormatKind = "enum"
)

// FormatRule constrains one field. Allowed is only set for FormatEnum.
type FormatRule struct {
	Field   string
	Kind    FormatKind
	Allowed []string
}

// StaticRule restricts a field to an enumerated set, unconditionally.
type StaticRule struct {
	Field   string
	Allowed []string
}

// CustomRule flags Action when Condition holds for Field's value.
type CustomRule struct {
	Field     string
	Condition Condition
	Action    string
}

// Department owns the failures of the listed fields.
type Department struct {
	Name   string
	Fields []string
}

// Catalog is the immutable rule configuration shared by the validator, the rule evaluator,
// the reconciler and the department router.
type Catalog struct {
	asset         AssetClass
	mandatory     []string
	formats       []FormatRule
	static        []StaticRule
	custom        []CustomRule
	departments   []Department
	currencies    []string
	currencyPairs []string
}

// Load reads a catalog from a YAML or JSON file.
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rule catalog %s: %w", path, err)
	}
	cat, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cat, nil
}

// Parse decodes a catalog document. Mapping sections keep document order.
func Parse(data []byte) (*Catalog, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCatalog, err)
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 || doc.Content[0].Kind != yaml.MappingNode {
		return nil, fmt.Errorf("%w: top level must be a mapping", ErrInvalidCatalog)
	}
	sections := map[string]*yaml.Node{}
	root := doc.Content[0]
	for i := 0; i+1 < len(root.Content); i += 2 {
		sections[root.Content[i].Value] = root.Content[i+1]
	}
	for _, name := range []string{SectionMandatory, SectionFormat, SectionStatic, SectionCustom, SectionDepartments} {
		if _, ok := sections[name]; !ok {
			return nil, fmt.Errorf("%w: section %q missing", ErrInvalidCatalog, name)
		}
	}

	cat := &Catalog{asset: Equity}
	var err error
	if cat.mandatory, err = scalarList(sections[SectionMandatory], SectionMandatory); err != nil {
		return nil, err
	}
	if cat.formats, err = parseFormats(sections[SectionFormat]); err != nil {
		return nil, err
	}
	if cat.static, err = parseStatic(sections[SectionStatic]); err != nil {
		return nil, err
	}
	if cat.custom, err = parseCustom(sections[SectionCustom]); err != nil {
		return nil, err
	}
	if cat.departments, err = parseDepartments(sections[SectionDepartments]); err != nil {
		return nil, err
	}
	if node, ok := sections[sectionAssetClass]; ok {
		switch AssetClass(node.Value) {
		case Equity, Forex:
			cat.asset = AssetClass(node.Value)
		default:
			return nil, fmt.Errorf("%w: unknown asset_class %q", ErrInvalidCatalog, node.Value)
		}
	}
	if node, ok := sections[sectionReference]; ok {
		if err := cat.parseReference(node); err != nil {
			return nil, err
		}
	}
	return cat, nil
}

// AssetClass reports which fixed logical checks apply.
func (c *Catalog) AssetClass() AssetClass { return c.asset }

// MandatoryFields returns the ordered mandatory field names.
func (c *Catalog) MandatoryFields() []string { return slices.Clone(c.mandatory) }

// FormatRules returns format constraints in configuration order.
func (c *Catalog) FormatRules() []FormatRule { return slices.Clone(c.formats) }

// StaticValidation returns the enumerated-value rules in configuration order.
func (c *Catalog) StaticValidation() []StaticRule { return slices.Clone(c.static) }

// CustomRules returns the predicate rules in configuration order.
func (c *Catalog) CustomRules() []CustomRule { return slices.Clone(c.custom) }

// Departments returns the routing table in configuration order.
func (c *Catalog) Departments() []Department { return slices.Clone(c.departments) }

// Currencies returns the ISO codes accepted by currency_code rules.
func (c *Catalog) Currencies() []string { return slices.Clone(c.currencies) }

// CurrencyPairs returns the pairs accepted by currency_pair rules.
func (c *Catalog) CurrencyPairs() []string { return slices.Clone(c.currencyPairs) }

func parseFormats(node *yaml.Node) ([]FormatRule, error) {
	if err := expectKind(node, yaml.MappingNode, SectionFormat); err != nil {
		return nil, err
	}
	out := make([]FormatRule, 0, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		field, decl := node.Content[i].Value, node.Content[i+1]
		switch decl.Kind {
		case yaml.SequenceNode:
			allowed, err := scalarList(decl, SectionFormat+"."+field)
			if err != nil {
				return nil, err
			}
			out = append(out, FormatRule{Field: field, Kind: FormatEnum, Allowed: allowed})
		case yaml.ScalarNode:
			kind := FormatKind(decl.Value)
			switch kind {
			case FormatDate, FormatInt, FormatFloat, FormatISIN, FormatCurrencyCode, FormatCurrencyPair:
			default:
				return nil, fmt.Errorf("%w: %s.%s: unknown format %q", ErrInvalidCatalog, SectionFormat, field, decl.Value)
			}
			out = append(out, FormatRule{Field: field, Kind: kind})
		default:
			return nil, fmt.Errorf("%w: %s.%s: expected a type name or a list", ErrInvalidCatalog, SectionFormat, field)
		}
	}
	return out, nil
}

func parseStatic(node *yaml.Node) ([]StaticRule, error) {
	if err := expectKind(node, yaml.MappingNode, SectionStatic); err != nil {
		return nil, err
	}
	out := make([]StaticRule, 0, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		field := node.Content[i].Value
		allowed, err := scalarList(node.Content[i+1], SectionStatic+"."+field)
		if err != nil {
			return nil, err
		}
		out = append(out, StaticRule{Field: field, Allowed: allowed})
	}
	return out, nil
}

type customRuleDoc struct {
	Field     string    `yaml:"field"`
	Condition yaml.Node `yaml:"condition"`
	Action    string    `yaml:"action"`
}

func parseCustom(node *yaml.Node) ([]CustomRule, error) {
	if err := expectKind(node, yaml.SequenceNode, SectionCustom); err != nil {
		return nil, err
	}
	out := make([]CustomRule, 0, len(node.Content))
	for i, item := range node.Content {
		var doc customRuleDoc
		if err := item.Decode(&doc); err != nil {
			return nil, fmt.Errorf("%w: %s[%d]: %v", ErrInvalidCatalog, SectionCustom, i, err)
		}
		if doc.Field == "" || doc.Action == "" {
			return nil, fmt.Errorf("%w: %s[%d]: field and action are required", ErrInvalidCatalog, SectionCustom, i)
		}
		cond, err := conditionFromNode(&doc.Condition)
		if err != nil {
			return nil, fmt.Errorf("%w: %s[%d] (%s): %v", ErrInvalidCatalog, SectionCustom, i, doc.Field, err)
		}
		out = append(out, CustomRule{Field: doc.Field, Condition: cond, Action: doc.Action})
	}
	return out, nil
}

// conditionFromNode accepts either the expression form ("<= 0") or the structured form
// ({op: le, value: 0}).
func conditionFromNode(node *yaml.Node) (Condition, error) {
	switch node.Kind {
	case yaml.ScalarNode:
		return ParseCondition(node.Value)
	case yaml.MappingNode:
		var doc struct {
			Op    string    `yaml:"op"`
			Value yaml.Node `yaml:"value"`
		}
		if err := node.Decode(&doc); err != nil {
			return Condition{}, err
		}
		op, ok := opByName[doc.Op]
		if !ok {
			return Condition{}, fmt.Errorf("unknown operator %q", doc.Op)
		}
		cond := Condition{Op: op}
		if op == OpIn || op == OpNotIn {
			if doc.Value.Kind != yaml.SequenceNode {
				return Condition{}, fmt.Errorf("%s needs a list value", doc.Op)
			}
			for _, item := range doc.Value.Content {
				cond.Set = append(cond.Set, literalFromNode(item))
			}
		} else {
			cond.Operand = literalFromNode(&doc.Value)
		}
		cond.Source = cond.String()
		return cond, nil
	}
	return Condition{}, errors.New("condition is required")
}

func literalFromNode(node *yaml.Node) Literal {
	switch node.ShortTag() {
	case "!!int", "!!float":
		return parseLiteral(node.Value)
	case "!!bool":
		var b bool
		_ = node.Decode(&b)
		return Literal{Kind: KindBool, Bool: b}
	case "!!null":
		return Literal{Kind: KindNull}
	}
	return Literal{Kind: KindString, Str: node.Value}
}

func parseDepartments(node *yaml.Node) ([]Department, error) {
	if err := expectKind(node, yaml.MappingNode, SectionDepartments); err != nil {
		return nil, err
	}
	out := make([]Department, 0, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		name := node.Content[i].Value
		fields, err := scalarList(node.Content[i+1], SectionDepartments+"."+name)
		if err != nil {
			return nil, err
		}
		out = append(out, Department{Name: name, Fields: fields})
	}
	return out, nil
}

func (c *Catalog) parseReference(node *yaml.Node) error {
	if err := expectKind(node, yaml.MappingNode, sectionReference); err != nil {
		return err
	}
	for i := 0; i+1 < len(node.Content); i += 2 {
		name := node.Content[i].Value
		values, err := scalarList(node.Content[i+1], sectionReference+"."+name)
		if err != nil {
			return err
		}
		switch name {
		case "currencies":
			c.currencies = values
		case "currency_pairs":
			c.currencyPairs = values
		}
	}
	return nil
}

func scalarList(node *yaml.Node, where string) ([]string, error) {
	if err := expectKind(node, yaml.SequenceNode, where); err != nil {
		return nil, err
	}
	out := make([]string, 0, len(node.Content))
	for _, item := range node.Content {
		if item.Kind != yaml.ScalarNode {
			return nil, fmt.Errorf("%w: %s: expected scalar entries", ErrInvalidCatalog, where)
		}
		out = append(out, item.Value)
	}
	return out, nil
}

func expectKind(node *yaml.Node, kind yaml.Kind, where string) error {
	if node == nil || node.Kind != kind {
		want := "mapping"
		if kind == yaml.SequenceNode {
			want = "list"
		}
		return fmt.Errorf("%w: %s must be a %s", ErrInvalidCatalog, where, want)
	}
	return nil
}
