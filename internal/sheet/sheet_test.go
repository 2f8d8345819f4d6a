package sheet

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ppiankov/clinmatch/internal/table"
)

func TestFormatOf(t *testing.T) {
	tests := []struct {
		path    string
		want    Format
		wantErr bool
	}{
		{path: "data.csv", want: FormatCSV},
		{path: "DATA.CSV", want: FormatCSV},
		{path: "data.tsv", want: FormatTSV},
		{path: "/tmp/Пациенты.xlsx", want: FormatXLSX},
		{path: "data.xls", wantErr: true},
		{path: "data", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			got, err := FormatOf(tt.path)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrUnsupportedFormat)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestOutputPath(t *testing.T) {
	assert.Equal(t, filepath.Join("in", "patients_processed.xlsx"), OutputPath(filepath.Join("in", "patients.xlsx"), "", false))
	assert.Equal(t, filepath.Join("out", "patients_processed.csv"), OutputPath(filepath.Join("in", "patients.csv"), "out", false))
	assert.Equal(t, filepath.Join("out", "patients_partial.csv"), OutputPath("patients.csv", "out", true))
}

func TestParseDelimited(t *testing.T) {
	input := "\ufeffДиагноз,Ген\nСиндром Марфана,FBN1\n\"Синдром, Элерса\",\n"
	tbl, err := parseDelimited(strings.NewReader(input), ',')
	require.NoError(t, err)

	assert.Equal(t, []string{"Диагноз", "Ген"}, tbl.Header)
	require.Len(t, tbl.Rows, 2)
	assert.Equal(t, table.Row{table.Text("Синдром Марфана"), table.Text("FBN1")}, tbl.Rows[0])
	assert.Equal(t, table.Row{table.Text("Синдром, Элерса"), table.Empty()}, tbl.Rows[1])
	require.NoError(t, tbl.Validate())
}

func TestParseDelimited_RaggedRowsReachValidation(t *testing.T) {
	tbl, err := parseDelimited(strings.NewReader("a,b\n1,2\n3\n"), ',')
	require.NoError(t, err)
	require.ErrorIs(t, tbl.Validate(), table.ErrRaggedRow)
}

func TestParseDelimited_Empty(t *testing.T) {
	_, err := parseDelimited(strings.NewReader(""), ',')
	require.ErrorIs(t, err, table.ErrNoHeader)
}

func TestCSVRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.csv")

	header := []string{"Диагноз", "OMIM_код"}
	rows := [][]string{{"Синдром Марфана", "OMIM:154700"}, {"a \"quoted\" value", ""}}
	require.NoError(t, Write(path, header, rows))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(raw), utf8BOM))

	tbl, err := Read(path)
	require.NoError(t, err)
	assert.Equal(t, header, tbl.Header)
	assert.Equal(t, rows[0], tbl.Rows[0].Strings())
	assert.Equal(t, rows[1], tbl.Rows[1].Strings())
}

func TestTSVRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.tsv")
	require.NoError(t, Write(path, []string{"a", "b"}, [][]string{{"1, 2", "3"}}))

	tbl, err := Read(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"1, 2", "3"}, tbl.Rows[0].Strings())
}

func TestXLSXRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.xlsx")

	header := []string{"Диагноз", "Ген", "Комментарий"}
	rows := [][]string{
		{"Синдром Марфана", "FBN1", "ok"},
		{"Синдром Элерса-Данло", "", ""},
	}
	require.NoError(t, Write(path, header, rows))

	tbl, err := Read(path)
	require.NoError(t, err)
	assert.Equal(t, header, tbl.Header)
	require.Len(t, tbl.Rows, 2)
	assert.Equal(t, rows[0], tbl.Rows[0].Strings())

	// Trailing empty cells come back as missing, padded to the header width
	require.Len(t, tbl.Rows[1], 3)
	assert.Equal(t, table.CellText, tbl.Rows[1][0].Kind)
	assert.Equal(t, table.CellMissing, tbl.Rows[1][2].Kind)
	require.NoError(t, tbl.Validate())
}

func TestFromRecords(t *testing.T) {
	tbl := fromRecords([][]string{{"a", "b"}, {"1"}, {"1", "2", "3"}, {}, {}})
	require.Len(t, tbl.Rows, 2)
	assert.Equal(t, table.Row{table.Text("1"), table.Missing()}, tbl.Rows[0])
	assert.Len(t, tbl.Rows[1], 3)
	require.ErrorIs(t, tbl.Validate(), table.ErrRaggedRow)

	assert.Empty(t, fromRecords(nil).Header)
}

func TestRead_Unsupported(t *testing.T) {
	_, err := Read("notes.txt")
	require.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestReadPathList(t *testing.T) {
	path := filepath.Join(t.TempDir(), "files.txt")
	content := "# inputs\na.xlsx\n\n  b.csv  \na.xlsx\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	got, err := ReadPathList(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"a.xlsx", "b.csv", "a.xlsx"}, got)

	_, err = ReadPathList(filepath.Join(t.TempDir(), "missing.txt"))
	require.Error(t, err)
}

func TestDedupe(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, Dedupe([]string{"a", "b", "a"}))
}
