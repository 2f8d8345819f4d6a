package pipeline

import (
	"strings"

	"github.com/ppiankov/clinmatch/internal/model"
	"github.com/ppiankov/clinmatch/internal/reduce"
	"github.com/ppiankov/clinmatch/internal/table"
)

// EmptyCellMarker stands in for a blank cell in the row context sent to the resolver
const EmptyCellMarker = "<Пустая строка>"

// unnamedPrefix marks index columns spreadsheet exports add without a header
const unnamedPrefix = "Unnamed:"

// AnnotatedHeader returns header followed by the annotation column names
func AnnotatedHeader(header []string) []string {
	out := make([]string, 0, len(header)+len(model.AnnotationColumns()))
	out = append(out, header...)
	return append(out, model.AnnotationColumns()...)
}

// AnnotateRow returns the row's cells unchanged followed by the four annotation
// cells. An empty clarification is written as "-".
func AnnotateRow(row table.Row, ann model.Annotation) []string {
	out := make([]string, 0, len(row)+4)
	out = append(out, row.Strings()...)
	return append(out,
		ann.OMIM,
		ann.MONDO,
		ann.DiseaseName,
		reduce.Render(ann.Clarification),
	)
}

// RowContext renders a row as "column: value | column: value". Unnamed index
// columns are left out and blank cells are written as EmptyCellMarker.
func RowContext(header []string, row table.Row) string {
	parts := make([]string, 0, len(header))
	for i, name := range header {
		if strings.HasPrefix(name, unnamedPrefix) {
			continue
		}
		value := EmptyCellMarker
		if i < len(row) && row[i].Kind == table.CellText {
			value = row[i].Text
		}
		parts = append(parts, name+": "+value)
	}
	return strings.Join(parts, " | ")
}
