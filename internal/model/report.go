package model

import "time"

// RunStats summarizes one pipeline run over a table
type RunStats struct {
	RunID      string        `json:"run_id"`
	TotalRows  int           `json:"total_rows"`
	Processed  int           `json:"processed"`  // Rows sent to the resolver
	Skipped    int           `json:"skipped"`    // Rows without a diagnosis
	Successful int           `json:"successful"` // Rows with at least one code
	NotFound   int           `json:"not_found"`  // Resolver answered with no candidates
	Errors     int           `json:"errors"`     // Resolver failures
	Canceled   int           `json:"canceled"`   // Rows left unfinished by an interrupted run
	Complete   bool          `json:"complete"`   // False when the run was interrupted
	Elapsed    time.Duration `json:"elapsed"`
}

// ColumnReport describes the result of column identification for a table
type ColumnReport struct {
	Diagnosis string   `json:"diagnosis"`
	Gene      string   `json:"gene,omitempty"`
	Columns   []string `json:"columns"`
}
