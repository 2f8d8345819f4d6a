package table

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// Value is a normalized cell: either present with text, or absent
type Value struct {
	text    string
	present bool
}

// Present returns a present value
func Present(text string) Value { return Value{text: text, present: true} }

// Absent returns the absent value
func Absent() Value { return Value{} }

// IsPresent reports whether the value holds text
func (v Value) IsPresent() bool { return v.present }

// Text returns the trimmed text, or "" when absent
func (v Value) Text() string { return v.text }

// placeholders are tokens spreadsheet exports use for "no value".
// "<Пустая строка>" is the marker older clinmatch exports wrote for empty cells.
var placeholders = []string{
	"-", "–", "—",
	"nan", "NaN", "None", "null", "NULL", "<NULL>", "<null>",
	"N/A", "n/a", "#N/A", "#VALUE!",
	"<Пустая строка>",
	"",
}

var placeholderKeys = func() map[string]struct{} {
	keys := make(map[string]struct{}, len(placeholders))
	for _, p := range placeholders {
		keys[foldKey(p)] = struct{}{}
	}
	return keys
}()

// foldKey returns the comparison key for s: NFKC, trimmed, case folded.
// A new Caser is built per call because Casers are not safe for concurrent use.
func foldKey(s string) string {
	return cases.Fold().String(norm.NFKC.String(strings.TrimSpace(s)))
}

// Normalize converts a raw cell into a Value. It is pure and never fails:
// missing and empty cells are absent, placeholder tokens (exact, case-insensitive,
// whitespace-trimmed) are absent, anything else is present with the trimmed text.
func Normalize(c Cell) Value {
	if c.Kind != CellText {
		return Absent()
	}
	return NormalizeString(c.Text)
}

// NormalizeString applies Normalize to raw text
func NormalizeString(raw string) Value {
	trimmed := strings.TrimSpace(raw)
	if _, ok := placeholderKeys[foldKey(trimmed)]; ok {
		return Absent()
	}
	return Present(trimmed)
}
