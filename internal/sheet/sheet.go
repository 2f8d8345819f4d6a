// Package sheet reads and writes the spreadsheet formats clinmatch accepts:
// CSV, TSV and XLSX. Readers only build cells; interpretation is left to the table package.
package sheet

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/ppiankov/clinmatch/internal/table"
)

// Format is a supported file format
type Format int

const (
	FormatCSV Format = iota
	FormatTSV
	FormatXLSX
)

func (f Format) String() string {
	switch f {
	case FormatTSV:
		return "tsv"
	case FormatXLSX:
		return "xlsx"
	default:
		return "csv"
	}
}

// ErrUnsupportedFormat is returned for file extensions clinmatch cannot read
var ErrUnsupportedFormat = errors.New("unsupported file format")

// FormatOf detects the format from the file extension
func FormatOf(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return FormatCSV, nil
	case ".tsv":
		return FormatTSV, nil
	case ".xlsx", ".xlsm":
		return FormatXLSX, nil
	default:
		return 0, fmt.Errorf("%w: %s", ErrUnsupportedFormat, filepath.Base(path))
	}
}

// Read loads a table from path. The first record is the header.
func Read(path string) (*table.Table, error) {
	format, err := FormatOf(path)
	if err != nil {
		return nil, err
	}
	switch format {
	case FormatXLSX:
		return readXLSX(path)
	case FormatTSV:
		return readDelimited(path, '\t')
	default:
		return readDelimited(path, ',')
	}
}

// Write stores header and rows at path in the format its extension names
func Write(path string, header []string, rows [][]string) error {
	format, err := FormatOf(path)
	if err != nil {
		return err
	}
	switch format {
	case FormatXLSX:
		return writeXLSX(path, header, rows)
	case FormatTSV:
		return writeDelimited(path, '\t', header, rows)
	default:
		return writeDelimited(path, ',', header, rows)
	}
}

// Output file suffixes
const (
	ProcessedSuffix = "_processed"
	PartialSuffix   = "_partial"
)

// OutputPath returns where the annotated copy of input is written: next to the
// input, or inside dir when set. Partial results get a distinct name so they are
// never mistaken for a finished file.
func OutputPath(input, dir string, partial bool) string {
	ext := filepath.Ext(input)
	stem := strings.TrimSuffix(filepath.Base(input), ext)

	suffix := ProcessedSuffix
	if partial {
		suffix = PartialSuffix
	}

	if dir == "" {
		dir = filepath.Dir(input)
	}
	return filepath.Join(dir, stem+suffix+ext)
}
