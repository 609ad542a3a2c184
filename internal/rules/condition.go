package rules

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/viant/parsly"

	"trade-recon/internal/normalize"
)

// ErrIncomparable is matched by the errors Condition.Eval returns when an ordering operator
// meets values of incompatible kinds (for example a string against a number).
var ErrIncomparable = errors.New("incomparable values")

// EvalError describes an ordering between two kinds that have no order.
type EvalError struct {
	Op          Op
	Left, Right LiteralKind
}

func (e *EvalError) Error() string {
	return fmt.Sprintf("'%s' not supported between %s and %s", e.Op, e.Left, e.Right)
}

func (e *EvalError) Is(target error) bool { return target == ErrIncomparable }

// Op is the closed set of custom-rule operators.
type Op int

const (
	OpEq Op = iota
	OpNe
	OpLt
	OpLe
	OpGt
	OpGe
	OpIn
	OpNotIn
)

var opSymbols = [...]string{"==", "!=", "<", "<=", ">", ">=", "in", "not in"}

var opBySymbol = map[string]Op{"==": OpEq, "!=": OpNe, "<": OpLt, "<=": OpLe, ">": OpGt, ">=": OpGe}

var opByName = map[string]Op{
	"eq": OpEq, "ne": OpNe, "lt": OpLt, "le": OpLe, "gt": OpGt, "ge": OpGe,
	"in": OpIn, "notIn": OpNotIn,
}

func (o Op) String() string {
	if int(o) < len(opSymbols) {
		return opSymbols[o]
	}
	return "?"
}

// LiteralKind tags a Literal.
type LiteralKind int

const (
	KindNull LiteralKind = iota
	KindBool
	KindNumber
	KindString
)

func (k LiteralKind) String() string {
	switch k {
	case KindBool:
		return "bool"
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	}
	return "null"
}

// Literal is a typed scalar: a rule operand or a record value lifted for comparison.
type Literal struct {
	Kind LiteralKind
	Num  float64
	Str  string
	Bool bool
}

func (l Literal) String() string {
	switch l.Kind {
	case KindBool:
		if l.Bool {
			return "True"
		}
		return "False"
	case KindNumber:
		return strconv.FormatFloat(l.Num, 'f', -1, 64)
	case KindString:
		return strconv.Quote(l.Str)
	}
	return "None"
}

func (l Literal) number() (float64, bool) {
	switch l.Kind {
	case KindNumber:
		return l.Num, true
	case KindBool:
		if l.Bool {
			return 1, true
		}
		return 0, true
	}
	return 0, false
}

func (l Literal) equal(o Literal) bool {
	if a, ok := l.number(); ok {
		if b, ok := o.number(); ok {
			return a == b
		}
		return false
	}
	if l.Kind != o.Kind {
		return false
	}
	return l.Kind == KindNull || l.Str == o.Str
}

// LiteralOf lifts a record value without coercion: strings stay strings even when they look
// numeric.
func LiteralOf(v any) Literal {
	switch t := v.(type) {
	case nil:
		return Literal{Kind: KindNull}
	case string:
		return Literal{Kind: KindString, Str: t}
	case bool:
		return Literal{Kind: KindBool, Bool: t}
	case float64:
		return Literal{Kind: KindNumber, Num: t}
	case float32:
		return Literal{Kind: KindNumber, Num: float64(t)}
	case int:
		return Literal{Kind: KindNumber, Num: float64(t)}
	case int32:
		return Literal{Kind: KindNumber, Num: float64(t)}
	case int64:
		return Literal{Kind: KindNumber, Num: float64(t)}
	case uint:
		return Literal{Kind: KindNumber, Num: float64(t)}
	case uint64:
		return Literal{Kind: KindNumber, Num: float64(t)}
	case json.Number:
		if f, err := t.Float64(); err == nil {
			return Literal{Kind: KindNumber, Num: f}
		}
		return Literal{Kind: KindString, Str: t.String()}
	case time.Time:
		return Literal{Kind: KindString, Str: t.Format(normalize.ISODate)}
	}
	s, _ := normalize.Text(v)
	return Literal{Kind: KindString, Str: s}
}

// Condition is a parsed custom-rule predicate applied to a field value: `value <Op> Operand`
// or `value [not] in Set`.
type Condition struct {
	Op      Op
	Operand Literal
	Set     []Literal
	Source  string
}

func (c Condition) String() string {
	if c.Source != "" {
		return c.Source
	}
	if c.Op == OpIn || c.Op == OpNotIn {
		items := make([]string, len(c.Set))
		for i, l := range c.Set {
			items[i] = l.String()
		}
		return c.Op.String() + " [" + strings.Join(items, ", ") + "]"
	}
	return c.Op.String() + " " + c.Operand.String()
}

// Eval applies the condition to value. Ordering across kinds and against null fails with
// ErrIncomparable; equality across kinds is simply false.
func (c Condition) Eval(value any) (bool, error) {
	v := LiteralOf(value)
	switch c.Op {
	case OpEq:
		return v.equal(c.Operand), nil
	case OpNe:
		return !v.equal(c.Operand), nil
	case OpIn, OpNotIn:
		found := false
		for _, item := range c.Set {
			if v.equal(item) {
				found = true
				break
			}
		}
		return found == (c.Op == OpIn), nil
	}

	if a, ok := v.number(); ok {
		if b, ok := c.Operand.number(); ok {
			return ordered(c.Op, a, b), nil
		}
	} else if v.Kind == KindString && c.Operand.Kind == KindString {
		return ordered(c.Op, v.Str, c.Operand.Str), nil
	}
	return false, &EvalError{Op: c.Op, Left: v.Kind, Right: c.Operand.Kind}
}

func ordered[T float64 | string](op Op, a, b T) bool {
	switch op {
	case OpLt:
		return a < b
	case OpLe:
		return a <= b
	case OpGt:
		return a > b
	case OpGe:
		return a >= b
	}
	return false
}

// ParseCondition parses the expression form of a custom-rule condition, e.g. "<= 0",
// "== 'Unknown'", "not in ['Buy', 'Sell']".
func ParseCondition(expr string) (Condition, error) {
	src := strings.TrimSpace(expr)
	cursor := parsly.NewCursor("", []byte(src), 0)
	cond := Condition{Source: src}

	matched := cursor.MatchAfterOptional(whitespaceMatcher, comparisonMatcher, notMatcher, inMatcher)
	switch matched.Code {
	case comparisonToken:
		cond.Op = opBySymbol[matched.Text(cursor)]
		operand, err := parseScalar(cursor)
		if err != nil {
			return Condition{}, err
		}
		cond.Operand = operand
	case notToken:
		if next := cursor.MatchAfterOptional(whitespaceMatcher, inMatcher); next.Code != inToken {
			return Condition{}, cursor.NewError(inMatcher)
		}
		cond.Op = OpNotIn
		set, err := parseList(cursor)
		if err != nil {
			return Condition{}, err
		}
		cond.Set = set
	case inToken:
		cond.Op = OpIn
		set, err := parseList(cursor)
		if err != nil {
			return Condition{}, err
		}
		cond.Set = set
	case parsly.EOF:
		return Condition{}, errors.New("empty condition")
	default:
		return Condition{}, cursor.NewError(comparisonMatcher, notMatcher, inMatcher)
	}

	if rest := strings.TrimSpace(src[cursor.Pos:]); rest != "" {
		return Condition{}, fmt.Errorf("unexpected %q after condition", rest)
	}
	return cond, nil
}

func parseScalar(cursor *parsly.Cursor) (Literal, error) {
	matched := cursor.MatchAfterOptional(whitespaceMatcher, numberMatcher, singleQuotedMatcher, doubleQuotedMatcher, boolMatcher, nullMatcher)
	switch matched.Code {
	case numberToken:
		return parseLiteral(matched.Text(cursor)), nil
	case singleQuotedToken, doubleQuotedToken:
		return Literal{Kind: KindString, Str: unquote(matched.Text(cursor))}, nil
	case boolToken:
		return Literal{Kind: KindBool, Bool: strings.EqualFold(matched.Text(cursor), "true")}, nil
	case nullToken:
		return Literal{Kind: KindNull}, nil
	}
	return Literal{}, cursor.NewError(numberMatcher, singleQuotedMatcher, doubleQuotedMatcher, boolMatcher, nullMatcher)
}

func parseList(cursor *parsly.Cursor) ([]Literal, error) {
	matched := cursor.MatchAfterOptional(whitespaceMatcher, listMatcher, tupleMatcher)
	if matched.Code != listToken {
		return nil, cursor.NewError(listMatcher, tupleMatcher)
	}
	block := matched.Text(cursor)
	inner := block[1 : len(block)-1]
	items := parsly.NewCursor("", []byte(inner), 0)
	var out []Literal
	for strings.TrimSpace(inner[items.Pos:]) != "" {
		lit, err := parseScalar(items)
		if err != nil {
			return nil, err
		}
		out = append(out, lit)
		next := items.MatchAfterOptional(whitespaceMatcher, commaMatcher)
		switch next.Code {
		case commaToken:
		case parsly.EOF:
			return out, nil
		default:
			return nil, items.NewError(commaMatcher)
		}
	}
	return out, nil
}

func parseLiteral(text string) Literal {
	f, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return Literal{Kind: KindString, Str: text}
	}
	return Literal{Kind: KindNumber, Num: f}
}

func unquote(text string) string {
	if len(text) < 2 {
		return text
	}
	body := text[1 : len(text)-1]
	replacer := strings.NewReplacer(`\'`, `'`, `\"`, `"`, `\\`, `\`)
	return replacer.Replace(body)
}
