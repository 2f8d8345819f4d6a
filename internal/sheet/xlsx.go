package sheet

import (
	"fmt"
	"path/filepath"

	"github.com/xuri/excelize/v2"

	"github.com/ppiankov/clinmatch/internal/table"
)

// DefaultSheetName names the worksheet of written workbooks
const DefaultSheetName = "Результаты"

// readXLSX loads the first worksheet. excelize drops trailing empty cells, so
// short rows are padded with missing cells up to the header width.
func readXLSX(path string) (t *table.Table, err error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", filepath.Base(path), err)
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("close %s: %w", filepath.Base(path), closeErr)
		}
	}()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("read %s: %w", filepath.Base(path), table.ErrNoHeader)
	}

	records, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", filepath.Base(path), err)
	}
	return fromRecords(records), nil
}

// fromRecords builds a table from worksheet records, dropping trailing blank rows
func fromRecords(records [][]string) *table.Table {
	for len(records) > 0 && len(records[len(records)-1]) == 0 {
		records = records[:len(records)-1]
	}
	if len(records) == 0 {
		return &table.Table{}
	}

	header := records[0]
	t := &table.Table{
		Header: append([]string(nil), header...),
		Rows:   make([]table.Row, 0, len(records)-1),
	}
	for _, rec := range records[1:] {
		width := len(header)
		if len(rec) > width {
			width = len(rec)
		}
		row := make(table.Row, width)
		for i := range row {
			if i < len(rec) {
				row[i] = table.Text(rec[i])
			} else {
				row[i] = table.Missing()
			}
		}
		t.Rows = append(t.Rows, row)
	}
	return t
}

func writeXLSX(path string, header []string, rows [][]string) (err error) {
	f := excelize.NewFile()
	defer func() {
		if closeErr := f.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("close workbook: %w", closeErr)
		}
	}()

	if err := f.SetSheetName(f.GetSheetName(0), DefaultSheetName); err != nil {
		return fmt.Errorf("name sheet: %w", err)
	}

	if err := setRow(f, 1, header); err != nil {
		return err
	}
	for i, row := range rows {
		if err := setRow(f, i+2, row); err != nil {
			return err
		}
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save %s: %w", filepath.Base(path), err)
	}
	return nil
}

func setRow(f *excelize.File, n int, values []string) error {
	cell, err := excelize.CoordinatesToCellName(1, n)
	if err != nil {
		return fmt.Errorf("row %d: %w", n, err)
	}
	row := make([]interface{}, len(values))
	for i, v := range values {
		row[i] = v
	}
	if err := f.SetSheetRow(DefaultSheetName, cell, &row); err != nil {
		return fmt.Errorf("write row %d: %w", n, err)
	}
	return nil
}
