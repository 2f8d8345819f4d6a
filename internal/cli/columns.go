package cli

import (
	"errors"
	"fmt"
	"path/filepath"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/ppiankov/clinmatch/internal/model"
	"github.com/ppiankov/clinmatch/internal/sheet"
	"github.com/ppiankov/clinmatch/internal/table"
)

// columnsCmd represents the columns command
var columnsCmd = &cobra.Command{
	Use:   "columns <file>...",
	Short: "Show which columns would be used as diagnosis and gene",
	Long: `Columns reads each table's header and reports the detected diagnosis and
gene columns without contacting the matching service.

Example:
  clinmatch columns patients.xlsx cohort.csv`,
	Args: cobra.MinimumNArgs(1),
	RunE: runColumns,
}

func init() {
	rootCmd.AddCommand(columnsCmd)
}

func runColumns(cmd *cobra.Command, args []string) error {
	headers := []string{"File", "Columns", "Diagnosis", "Gene", "Rule"}
	var rows [][]string
	var errs []error

	for _, path := range sheet.Dedupe(args) {
		report, cols, err := detectColumns(path)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", filepath.Base(path), err))
			rows = append(rows, []string{filepath.Base(path), "-", "not found", "-", err.Error()})
			continue
		}

		gene := report.Gene
		if gene == "" {
			gene = "-"
		}
		rule := "diagnosis:" + cols.DiagnosisRule
		if cols.HasGene() {
			rule += " gene:" + cols.GeneRule
		}
		rows = append(rows, []string{filepath.Base(path), strconv.Itoa(len(report.Columns)), report.Diagnosis, gene, rule})
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, renderTable(headers, rows, nil, shouldColorize(out)))
	return errors.Join(errs...)
}

func detectColumns(path string) (model.ColumnReport, table.Columns, error) {
	tbl, err := sheet.Read(path)
	if err != nil {
		return model.ColumnReport{}, table.Columns{}, err
	}
	cols, err := table.IdentifyColumns(tbl.Header)
	if err != nil {
		return model.ColumnReport{}, table.Columns{}, err
	}

	report := model.ColumnReport{
		Diagnosis: tbl.Header[cols.Diagnosis],
		Columns:   tbl.Header,
	}
	if cols.HasGene() {
		report.Gene = tbl.Header[cols.Gene]
	}
	return report, cols, nil
}
