package table

import (
	"errors"
	"fmt"
)

// CellKind distinguishes the ways a spreadsheet cell can hold a value
type CellKind int

const (
	CellMissing CellKind = iota // Cell not present in the source at all
	CellEmpty                   // Cell present but empty
	CellText                    // Cell holding text
)

func (k CellKind) String() string {
	switch k {
	case CellEmpty:
		return "empty"
	case CellText:
		return "text"
	default:
		return "missing"
	}
}

// Cell is a raw table cell. Readers construct cells; Normalize is the only place
// a cell is interpreted.
type Cell struct {
	Kind CellKind
	Text string
}

// Text returns a text cell, or an empty cell for ""
func Text(s string) Cell {
	if s == "" {
		return Cell{Kind: CellEmpty}
	}
	return Cell{Kind: CellText, Text: s}
}

// Empty returns an empty cell
func Empty() Cell { return Cell{Kind: CellEmpty} }

// Missing returns a missing cell
func Missing() Cell { return Cell{Kind: CellMissing} }

// String returns the cell's raw text ("" for empty and missing cells)
func (c Cell) String() string {
	if c.Kind != CellText {
		return ""
	}
	return c.Text
}

// Row is an ordered sequence of cells aligned with the table header
type Row []Cell

// Strings returns the raw text of every cell
func (r Row) Strings() []string {
	out := make([]string, len(r))
	for i, c := range r {
		out[i] = c.String()
	}
	return out
}

// Table is a header plus rows of equal length
type Table struct {
	Header []string
	Rows   []Row
}

// Structural errors. Any of them aborts a run before the resolver is called.
var (
	ErrNoHeader  = errors.New("table has no header")
	ErrNoRows    = errors.New("table has no rows")
	ErrRaggedRow = errors.New("row length does not match header")
)

// Validate checks the structural invariants the pipeline relies on.
// Ragged rows are rejected, never padded.
func (t *Table) Validate() error {
	if t == nil || len(t.Header) == 0 {
		return ErrNoHeader
	}
	if len(t.Rows) == 0 {
		return ErrNoRows
	}
	for i, row := range t.Rows {
		if len(row) != len(t.Header) {
			return fmt.Errorf("%w: row %d has %d cells, header has %d", ErrRaggedRow, i+1, len(row), len(t.Header))
		}
	}
	return nil
}

// FromStrings builds a table from raw string records, the first record being the header
func FromStrings(records [][]string) *Table {
	if len(records) == 0 {
		return &Table{}
	}
	t := &Table{
		Header: append([]string(nil), records[0]...),
		Rows:   make([]Row, 0, len(records)-1),
	}
	for _, rec := range records[1:] {
		row := make(Row, len(rec))
		for i, v := range rec {
			row[i] = Text(v)
		}
		t.Rows = append(t.Rows, row)
	}
	return t
}
