package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ppiankov/clinmatch/internal/model"
	"github.com/ppiankov/clinmatch/internal/reduce"
	"github.com/ppiankov/clinmatch/internal/resolver"
	"github.com/ppiankov/clinmatch/internal/table"
	"github.com/ppiankov/clinmatch/internal/worker"
)

// ErrIncomplete is returned when a run was interrupted before every row finished.
// The accompanying Result holds the rows that did finish and is marked incomplete.
var ErrIncomplete = errors.New("run interrupted before all rows completed")

// Pipeline annotates tables: identify columns, resolve rows concurrently,
// reduce candidates and append the annotation columns.
type Pipeline struct {
	dispatcher  *worker.Dispatcher
	reducer     *reduce.Reducer
	sendContext bool
	logger      *zap.Logger
}

// New creates a pipeline over r. The resolver is wrapped with the in-run deduper
// and the rate limiter when cfg enables them.
func New(cfg *model.Config, r resolver.Resolver, logger *zap.Logger) (*Pipeline, error) {
	if cfg == nil {
		cfg = model.DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if r == nil {
		return nil, errors.New("pipeline: resolver is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	r = resolver.NewThrottled(r, cfg.Resolver.RequestsPerSecond, cfg.Resolver.Burst)
	if cfg.Dedupe.Enabled {
		r = resolver.NewDeduper(r, cfg.Dedupe.TTL)
	}

	return &Pipeline{
		dispatcher:  worker.NewDispatcher(r, cfg.Concurrency.Limit, cfg.Resolver.Timeout, logger),
		reducer:     reduce.NewReducer(cfg.Reducer.Lookahead),
		sendContext: cfg.Resolver.SendContext,
		logger:      logger,
	}, nil
}

// Result is an annotated table plus what happened while producing it
type Result struct {
	Header      []string   // Source header followed by the annotation columns
	Rows        [][]string // Annotated rows in source order
	Annotations []model.Annotation
	Columns     table.Columns
	Stats       model.RunStats
}

// Complete reports whether every row finished
func (r *Result) Complete() bool { return r.Stats.Complete }

// Run annotates t. Structural problems with t abort the run before any resolver
// call. Row failures never abort the run; they end up in the clarification column.
// If ctx is cancelled the partial result is returned together with ErrIncomplete.
func (p *Pipeline) Run(ctx context.Context, t *table.Table) (*Result, error) {
	start := time.Now()

	if err := t.Validate(); err != nil {
		return nil, fmt.Errorf("validate table: %w", err)
	}
	cols, err := table.IdentifyColumns(t.Header)
	if err != nil {
		return nil, fmt.Errorf("identify columns: %w", err)
	}

	runID := uuid.NewString()
	logger := p.logger.With(zap.String("run_id", runID))
	logger.Info("run started",
		zap.Int("rows", len(t.Rows)),
		zap.String("diagnosis_column", t.Header[cols.Diagnosis]),
		zap.Bool("gene_column", cols.HasGene()),
		zap.Int("concurrency", p.dispatcher.Limit()),
		zap.Int("lookahead", p.reducer.Lookahead()))

	tasks := p.tasks(t, cols)

	// Each slot is written once, by this goroutine, as its completion arrives
	annotations := make([]model.Annotation, len(t.Rows))
	stats := model.RunStats{RunID: runID, TotalRows: len(t.Rows)}

	for c := range p.dispatcher.Dispatch(ctx, tasks) {
		if !c.Skipped {
			annotations[c.Row] = p.reducer.Reduce(c.Candidates, c.Failure)
		}
		record(&stats, c, annotations[c.Row])
	}

	stats.Elapsed = time.Since(start)
	result := &Result{
		Header:      AnnotatedHeader(t.Header),
		Rows:        make([][]string, len(t.Rows)),
		Annotations: annotations,
		Columns:     cols,
	}
	for i, row := range t.Rows {
		result.Rows[i] = AnnotateRow(row, annotations[i])
	}

	stats.Complete = stats.Canceled == 0
	result.Stats = stats

	logger.Info("run finished",
		zap.Int("processed", stats.Processed),
		zap.Int("skipped", stats.Skipped),
		zap.Int("successful", stats.Successful),
		zap.Int("not_found", stats.NotFound),
		zap.Int("errors", stats.Errors),
		zap.Int("canceled", stats.Canceled),
		zap.Duration("elapsed", stats.Elapsed))

	if !stats.Complete {
		return result, ErrIncomplete
	}
	return result, nil
}

func (p *Pipeline) tasks(t *table.Table, cols table.Columns) []worker.Task {
	tasks := make([]worker.Task, len(t.Rows))
	for i, row := range t.Rows {
		task := worker.Task{
			Row:       i,
			Diagnosis: table.Normalize(row[cols.Diagnosis]),
			Gene:      table.Absent(),
		}
		if cols.HasGene() {
			task.Gene = table.Normalize(row[cols.Gene])
		}
		if p.sendContext {
			task.Context = RowContext(t.Header, row)
		}
		tasks[i] = task
	}
	return tasks
}

func record(s *model.RunStats, c worker.Completion, ann model.Annotation) {
	switch {
	case c.Skipped:
		s.Skipped++
	case c.Failure != nil && c.Failure.Kind == resolver.KindCanceled:
		s.Canceled++
	case c.Failure != nil:
		s.Processed++
		s.Errors++
	case len(c.Candidates) == 0:
		s.Processed++
		s.NotFound++
	default:
		s.Processed++
		if ann.OMIM != "" || ann.MONDO != "" {
			s.Successful++
		}
	}
}
