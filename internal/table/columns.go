package table

import (
	"errors"
	"strings"
)

// Role is the meaning a column plays for matching
type Role int

const (
	RoleDiagnosis Role = iota
	RoleGene
)

func (r Role) String() string {
	if r == RoleGene {
		return "gene"
	}
	return "diagnosis"
}

// ErrNoDiagnosisColumn is returned when no header qualifies as the diagnosis column
var ErrNoDiagnosisColumn = errors.New("no diagnosis column found")

// NoColumn marks an unbound optional column
const NoColumn = -1

// Columns is the column binding of a table. It is computed once per table.
type Columns struct {
	Diagnosis     int
	Gene          int // NoColumn when the table has no gene column
	DiagnosisRule string
	GeneRule      string
}

// HasGene reports whether a gene column was bound
func (c Columns) HasGene() bool { return c.Gene != NoColumn }

// rule is one step of column identification. Rules are evaluated in order and
// within a rule headers are scanned left to right; the first hit wins.
type rule struct {
	name  string
	match func(key string) bool
}

var diagnosisRules = []rule{
	{name: "exact", match: oneOf("диагноз", "диагноз*", "diagnosis", "заключение")},
	{name: "contains", match: containsAny("диагноз", "diagnosis")},
}

// geneExclusions keep genotype and genetics columns from binding as gene,
// including when the header looks like an exact match.
var geneExclusions = containsAny("генотип", "генетич", "genotype", "genetic")

var geneRules = []rule{
	{name: "exact", match: excluding(oneOf("ген (symbol)", "ген", "gene", "gene symbol", "gene name"), geneExclusions)},
	{name: "contains", match: excluding(containsAny("ген", "gene"), geneExclusions)},
}

// IdentifyColumns binds the diagnosis column (required) and gene column (optional)
// from a header row.
func IdentifyColumns(header []string) (Columns, error) {
	keys := make([]string, len(header))
	for i, h := range header {
		keys[i] = foldKey(h)
	}

	diag, diagRule := firstMatch(keys, diagnosisRules, NoColumn)
	if diag == NoColumn {
		return Columns{Diagnosis: NoColumn, Gene: NoColumn}, ErrNoDiagnosisColumn
	}

	// A single column cannot play both roles
	gene, geneRule := firstMatch(keys, geneRules, diag)

	return Columns{
		Diagnosis:     diag,
		Gene:          gene,
		DiagnosisRule: diagRule,
		GeneRule:      geneRule,
	}, nil
}

func firstMatch(keys []string, rules []rule, skip int) (int, string) {
	for _, r := range rules {
		for i, k := range keys {
			if i != skip && r.match(k) {
				return i, r.name
			}
		}
	}
	return NoColumn, ""
}

func oneOf(values ...string) func(string) bool {
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		set[foldKey(v)] = struct{}{}
	}
	return func(key string) bool {
		_, ok := set[key]
		return ok
	}
}

func containsAny(words ...string) func(string) bool {
	return func(key string) bool {
		for _, w := range words {
			if strings.Contains(key, w) {
				return true
			}
		}
		return false
	}
}

func excluding(match, exclude func(string) bool) func(string) bool {
	return func(key string) bool {
		return match(key) && !exclude(key)
	}
}
