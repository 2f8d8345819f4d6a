package table

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIdentifyColumns(t *testing.T) {
	tests := []struct {
		name     string
		header   []string
		wantDiag int
		wantGene int
		diagRule string
	}{
		{
			name:     "diagnosis and gene",
			header:   []string{"Диагноз", "Ген (symbol)"},
			wantDiag: 0,
			wantGene: 1,
			diagRule: "exact",
		},
		{
			name:     "genotype is not a gene column",
			header:   []string{"Diagnosis", "Genotype Notes"},
			wantDiag: 0,
			wantGene: NoColumn,
			diagRule: "exact",
		},
		{
			name: "NGS export",
			header: []string{"Идентификатор БТК", "Диагноз*", "Направительный диагноз",
				"Хромосома*", "Ген (symbol)", "Комментарий"},
			wantDiag: 1,
			wantGene: 4,
			diagRule: "exact",
		},
		{
			name: "WGS export",
			header: []string{"Ген", "ПоложениеGRCh38hg18", "Генотип", "Эффект",
				"Транскрипт", "Патогенность", "ОписанВЛитературе", "Диагноз"},
			wantDiag: 7,
			wantGene: 0,
			diagRule: "exact",
		},
		{
			name:     "alternative names",
			header:   []string{"ID", "Заключение", "Gene Symbol", "Variant", "Status"},
			wantDiag: 1,
			wantGene: 2,
			diagRule: "exact",
		},
		{
			name:     "exact beats earlier fuzzy",
			header:   []string{"Направительный диагноз", "  ДИАГНОЗ  "},
			wantDiag: 1,
			wantGene: NoColumn,
			diagRule: "exact",
		},
		{
			name:     "first fuzzy match wins",
			header:   []string{"Основной диагноз", "Сопутствующий диагноз"},
			wantDiag: 0,
			wantGene: NoColumn,
			diagRule: "contains",
		},
		{
			name:     "fuzzy gene skips genetic columns",
			header:   []string{"Генетический анализ", "Clinical diagnosis", "Ген пациента"},
			wantDiag: 1,
			wantGene: 2,
			diagRule: "contains",
		},
		{
			name:     "exclusion beats exact-looking gene",
			header:   []string{"Diagnosis", "Genetic gene"},
			wantDiag: 0,
			wantGene: NoColumn,
			diagRule: "exact",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cols, err := IdentifyColumns(tt.header)
			require.NoError(t, err)
			assert.Equal(t, tt.wantDiag, cols.Diagnosis)
			assert.Equal(t, tt.wantGene, cols.Gene)
			assert.Equal(t, tt.diagRule, cols.DiagnosisRule)
			assert.Equal(t, tt.wantGene != NoColumn, cols.HasGene())
		})
	}
}

func TestIdentifyColumns_NoDiagnosis(t *testing.T) {
	_, err := IdentifyColumns([]string{"ID", "Ген", "Комментарий"})
	require.ErrorIs(t, err, ErrNoDiagnosisColumn)

	_, err = IdentifyColumns(nil)
	require.ErrorIs(t, err, ErrNoDiagnosisColumn)
}

func TestIdentifyColumns_GeneNeverSharesDiagnosisColumn(t *testing.T) {
	cols, err := IdentifyColumns([]string{"Diagnosis gene panel", "Gene"})
	require.NoError(t, err)
	assert.Equal(t, 0, cols.Diagnosis)
	assert.Equal(t, 1, cols.Gene)
}
