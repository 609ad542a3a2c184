package rules

import (
	"github.com/viant/parsly"
	"github.com/viant/parsly/matcher"
)

const (
	whitespaceToken = iota
	comparisonToken
	notToken
	inToken
	numberToken
	singleQuotedToken
	doubleQuotedToken
	listToken
	boolToken
	nullToken
	commaToken
)

var whitespaceMatcher = parsly.NewToken(whitespaceToken, "Whitespace", matcher.NewWhiteSpace())
var comparisonMatcher = parsly.NewToken(comparisonToken, "Comparison", matcher.NewFragments([]byte("=="), []byte("!="), []byte("<="), []byte(">="), []byte("<"), []byte(">")))
var notMatcher = parsly.NewToken(notToken, "Not", matcher.NewFragmentsFold([]byte("not")))
var inMatcher = parsly.NewToken(inToken, "In", matcher.NewFragmentsFold([]byte("in")))
var numberMatcher = parsly.NewToken(numberToken, "Number", &numberMatch{})
var singleQuotedMatcher = parsly.NewToken(singleQuotedToken, "SingleQuoted", matcher.NewBlock('\'', '\'', '\\'))
var doubleQuotedMatcher = parsly.NewToken(doubleQuotedToken, "DoubleQuoted", matcher.NewBlock('"', '"', '\\'))
var listMatcher = parsly.NewToken(listToken, "[ ... ]", matcher.NewBlock('[', ']', '\\'))
var tupleMatcher = parsly.NewToken(listToken, "( ... )", matcher.NewBlock('(', ')', '\\'))
var boolMatcher = parsly.NewToken(boolToken, "Boolean", matcher.NewFragmentsFold([]byte("true"), []byte("false")))
var nullMatcher = parsly.NewToken(nullToken, "Null", matcher.NewFragmentsFold([]byte("none"), []byte("null")))
var commaMatcher = parsly.NewToken(commaToken, "Comma", matcher.NewByte(','))

// numberMatch accepts an optionally signed decimal with optional fraction and exponent.
type numberMatch struct{}

func (n *numberMatch) Match(cursor *parsly.Cursor) int {
	input, pos := cursor.Input, cursor.Pos
	start := pos
	if pos < cursor.InputSize && (input[pos] == '-' || input[pos] == '+') {
		pos++
	}
	digits := 0
	for pos < cursor.InputSize && isDigit(input[pos]) {
		pos++
		digits++
	}
	if pos < cursor.InputSize && input[pos] == '.' {
		pos++
		for pos < cursor.InputSize && isDigit(input[pos]) {
			pos++
			digits++
		}
	}
	if digits == 0 {
		return 0
	}
	if pos < cursor.InputSize && (input[pos] == 'e' || input[pos] == 'E') {
		exp := pos + 1
		if exp < cursor.InputSize && (input[exp] == '-' || input[exp] == '+') {
			exp++
		}
		if exp < cursor.InputSize && isDigit(input[exp]) {
			for exp < cursor.InputSize && isDigit(input[exp]) {
				exp++
			}
			pos = exp
		}
	}
	return pos - start
}

func isDigit(b byte) bool {
	return b >= '0' && b <= '9'
}
