package sheet

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/ppiankov/clinmatch/internal/table"
)

const utf8BOM = "\ufeff"

func readDelimited(path string, comma rune) (*table.Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", filepath.Base(path), err)
	}
	defer func() { _ = f.Close() }()

	t, err := parseDelimited(f, comma)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", filepath.Base(path), err)
	}
	return t, nil
}

// parseDelimited reads every record. Row length is not enforced here so that
// ragged rows reach table validation and are reported there.
func parseDelimited(r io.Reader, comma rune) (*table.Table, error) {
	br := bufio.NewReader(r)
	if head, err := br.Peek(len(utf8BOM)); err == nil && string(head) == utf8BOM {
		_, _ = br.Discard(len(utf8BOM))
	}

	reader := csv.NewReader(br)
	reader.Comma = comma
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, table.ErrNoHeader
	}
	return table.FromStrings(records), nil
}

func writeDelimited(path string, comma rune, header []string, rows [][]string) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", filepath.Base(path), err)
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("close %s: %w", filepath.Base(path), closeErr)
		}
	}()

	// UTF-8 BOM, read by spreadsheet applications
	if _, err := io.WriteString(f, utf8BOM); err != nil {
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	return encodeDelimited(f, comma, header, rows)
}

func encodeDelimited(w io.Writer, comma rune, header []string, rows [][]string) error {
	writer := csv.NewWriter(w)
	writer.Comma = comma

	if err := writer.Write(header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for i, row := range rows {
		if err := writer.Write(row); err != nil {
			return fmt.Errorf("write row %d: %w", i+1, err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("flush: %w", err)
	}
	return nil
}
