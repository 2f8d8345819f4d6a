package reduce

import (
	"strings"
	"unicode/utf8"

	"github.com/ppiankov/clinmatch/internal/model"
	"github.com/ppiankov/clinmatch/internal/resolver"
)

// DefaultLookahead is how many alternatives after the primary are inspected
const DefaultLookahead = 3

// Clarification fragments
const (
	NotFound       = "не найдено"
	MissingOMIM    = "OMIM не найден"
	MissingMONDO   = "MONDO не найден"
	NoCodesOrName  = "найдено, но без кодов и названия"
	nearestPrefix  = "ближайший "
	partSeparator  = "; "
	nameRuneLimit  = 40
	omimPrefix     = "OMIM:"
	mondoPrefix    = "MONDO:"
	ellipsisSuffix = "…"
)

// Reducer collapses a ranked candidate list into one annotation.
// It is pure: the same inputs always give the same annotation.
type Reducer struct {
	lookahead int
}

// NewReducer creates a reducer inspecting up to lookahead alternatives.
// Non-positive values fall back to DefaultLookahead.
func NewReducer(lookahead int) *Reducer {
	if lookahead <= 0 {
		lookahead = DefaultLookahead
	}
	return &Reducer{lookahead: lookahead}
}

// Lookahead returns the number of alternatives inspected
func (r *Reducer) Lookahead() int { return r.lookahead }

// Reduce picks the primary candidate and explains what is missing from it.
// failure is the row's captured resolver failure, or nil.
func (r *Reducer) Reduce(candidates []model.Candidate, failure *resolver.Failure) model.Annotation {
	if len(candidates) == 0 {
		if failure != nil {
			return model.Annotation{Clarification: failure.Description()}
		}
		return model.Annotation{Clarification: NotFound}
	}

	primary := candidates[0]
	ann := model.Annotation{
		OMIM:        withPrefix(primary.OMIM, omimPrefix),
		MONDO:       withPrefix(primary.MONDO, mondoPrefix),
		DiseaseName: diseaseName(candidates),
	}

	var parts []string
	if !primary.HasOMIM() {
		parts = append(parts, MissingOMIM)
	}
	if !primary.HasMONDO() {
		parts = append(parts, MissingMONDO)
	}
	if !primary.HasOMIM() && !primary.HasMONDO() && !primary.HasName() {
		parts = append(parts, NoCodesOrName)
	}
	parts = append(parts, r.alternatives(primary, candidates[1:])...)
	if note := strings.TrimSpace(primary.Note); note != "" {
		parts = append(parts, note)
	}

	ann.Clarification = strings.Join(parts, partSeparator)
	return ann
}

// Render returns the clarification as written to the output column
func Render(clarification string) string {
	if clarification == "" {
		return model.NoIssue
	}
	return clarification
}

// alternatives lists the codes later candidates supply that the primary lacks
func (r *Reducer) alternatives(primary model.Candidate, rest []model.Candidate) []string {
	if primary.HasOMIM() && primary.HasMONDO() {
		return nil
	}
	if len(rest) > r.lookahead {
		rest = rest[:r.lookahead]
	}

	var notes []string
	for _, alt := range rest {
		var codes []string
		if !primary.HasOMIM() && alt.HasOMIM() {
			codes = append(codes, withPrefix(alt.OMIM, omimPrefix))
		}
		if !primary.HasMONDO() && alt.HasMONDO() {
			codes = append(codes, withPrefix(alt.MONDO, mondoPrefix))
		}
		if len(codes) == 0 {
			continue
		}
		note := nearestPrefix + strings.Join(codes, ", ")
		if alt.HasName() {
			note += " (" + truncate(strings.TrimSpace(alt.Name), nameRuneLimit) + ")"
		}
		notes = append(notes, note)
	}
	return notes
}

// diseaseName prefers the primary's name, then a later candidate carrying MONDO,
// then any later non-empty name.
func diseaseName(candidates []model.Candidate) string {
	if candidates[0].HasName() {
		return strings.TrimSpace(candidates[0].Name)
	}
	for _, c := range candidates[1:] {
		if c.HasMONDO() && c.HasName() {
			return strings.TrimSpace(c.Name)
		}
	}
	for _, c := range candidates[1:] {
		if c.HasName() {
			return strings.TrimSpace(c.Name)
		}
	}
	return ""
}

// withPrefix renders code with its ontology prefix. A prefix in any case is
// replaced by the canonical one.
func withPrefix(code, prefix string) string {
	code = strings.TrimSpace(code)
	if code == "" {
		return ""
	}
	if len(code) >= len(prefix) && strings.EqualFold(code[:len(prefix)], prefix) {
		code = strings.TrimSpace(code[len(prefix):])
	}
	return prefix + code
}

func truncate(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	runes := []rune(s)
	return string(runes[:limit]) + ellipsisSuffix
}
