package model

import "strings"

// Candidate is a single resolver match. Candidates for one row are ordered best first;
// the order is the resolver's and is treated as authoritative.
type Candidate struct {
	OMIM  string `json:"omim,omitempty"`  // OMIM code, with or without the "OMIM:" prefix
	MONDO string `json:"mondo,omitempty"` // MONDO code, with or without the "MONDO:" prefix
	Name  string `json:"name,omitempty"`  // Disease name
	Note  string `json:"note,omitempty"`  // Server supplied clarification hint
}

// HasOMIM reports whether the candidate carries an OMIM code
func (c Candidate) HasOMIM() bool { return strings.TrimSpace(c.OMIM) != "" }

// HasMONDO reports whether the candidate carries a MONDO code
func (c Candidate) HasMONDO() bool { return strings.TrimSpace(c.MONDO) != "" }

// HasName reports whether the candidate carries a disease name
func (c Candidate) HasName() bool { return strings.TrimSpace(c.Name) != "" }

// Annotation is the per-row output of candidate reduction
type Annotation struct {
	OMIM          string `json:"omim"`
	MONDO         string `json:"mondo"`
	DiseaseName   string `json:"disease_name"`
	Clarification string `json:"clarification"` // Empty means no issue
}

// Output column names appended to every annotated table
const (
	ColumnOMIM          = "OMIM_код"
	ColumnMONDO         = "MONDO_код"
	ColumnDiseaseName   = "Название_заболевания"
	ColumnClarification = "Требует_уточнения"
)

// AnnotationColumns returns the appended column names in output order
func AnnotationColumns() []string {
	return []string{ColumnOMIM, ColumnMONDO, ColumnDiseaseName, ColumnClarification}
}

// NoIssue is written to the clarification column when nothing needs checking
const NoIssue = "-"
