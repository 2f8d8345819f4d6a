package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ppiankov/clinmatch/internal/model"
	"github.com/ppiankov/clinmatch/internal/table"
)

func TestAnnotateRow(t *testing.T) {
	row := table.Row{table.Text(" Иванов "), table.Empty(), table.Missing()}

	got := AnnotateRow(row, model.Annotation{OMIM: "OMIM:1", MONDO: "MONDO:2", DiseaseName: "n", Clarification: "c"})
	assert.Equal(t, []string{" Иванов ", "", "", "OMIM:1", "MONDO:2", "n", "c"}, got)

	got = AnnotateRow(row, model.Annotation{})
	assert.Equal(t, []string{" Иванов ", "", "", "", "", "", "-"}, got)
}

func TestAnnotatedHeader(t *testing.T) {
	header := []string{"Диагноз"}
	got := AnnotatedHeader(header)
	assert.Equal(t, []string{"Диагноз", "OMIM_код", "MONDO_код", "Название_заболевания", "Требует_уточнения"}, got)
	assert.Equal(t, []string{"Диагноз"}, header)
}

func TestRowContext(t *testing.T) {
	header := []string{"Unnamed: 0", "Диагноз", "Ген", "Комментарий"}
	row := table.Row{table.Text("0"), table.Text("Синдром Марфана"), table.Text("FBN1"), table.Empty()}

	assert.Equal(t, "Диагноз: Синдром Марфана | Ген: FBN1 | Комментарий: <Пустая строка>", RowContext(header, row))
}
