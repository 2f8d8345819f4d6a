package worker

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/ppiankov/clinmatch/internal/model"
	"github.com/ppiankov/clinmatch/internal/resolver"
	"github.com/ppiankov/clinmatch/internal/table"
)

// Defaults used when the dispatcher is constructed with non-positive values
const (
	DefaultLimit   = 5
	DefaultTimeout = 60 * time.Second
)

// Task is one row's lookup
type Task struct {
	Row       int // Row index in the source table
	Diagnosis table.Value
	Gene      table.Value
	Context   string
}

// Completion is the outcome of one Task. Exactly one of Candidates, Failure or
// Skipped describes the outcome.
type Completion struct {
	Row        int
	Candidates []model.Candidate
	Failure    *resolver.Failure
	Skipped    bool // No diagnosis, the resolver was not called
	Elapsed    time.Duration
}

// GetError returns the row's failure, if any
func (c *Completion) GetError() error {
	if c.Failure == nil {
		return nil
	}
	return c.Failure
}

// Dispatcher issues one resolver call per task with bounded concurrency.
// It never retries; retry policy belongs to the resolver.
type Dispatcher struct {
	resolver resolver.Resolver
	limit    int
	timeout  time.Duration
	logger   *zap.Logger
}

// NewDispatcher creates a dispatcher allowing at most limit calls in flight,
// each bounded by timeout.
func NewDispatcher(r resolver.Resolver, limit int, timeout time.Duration, logger *zap.Logger) *Dispatcher {
	if limit <= 0 {
		limit = DefaultLimit
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{
		resolver: r,
		limit:    limit,
		timeout:  timeout,
		logger:   logger,
	}
}

// Limit returns the concurrency limit
func (d *Dispatcher) Limit() int { return d.limit }

type resolveJob struct {
	task Task
	d    *Dispatcher
}

// Execute resolves the task under its own timeout. Failures are captured in the
// completion, never returned to the pool.
func (j *resolveJob) Execute(ctx context.Context) Result {
	if !j.task.Diagnosis.IsPresent() {
		return &Completion{Row: j.task.Row, Skipped: true}
	}

	start := time.Now()
	callCtx, cancel := context.WithTimeout(ctx, j.d.timeout)
	defer cancel()

	candidates, err := j.d.resolver.Resolve(callCtx, resolver.Request{
		Diagnosis: j.task.Diagnosis.Text(),
		Gene:      j.task.Gene.Text(),
		Context:   j.task.Context,
	})
	c := &Completion{Row: j.task.Row, Elapsed: time.Since(start)}
	if err != nil {
		c.Failure = resolver.Classify(ctx, err)
		return c
	}
	c.Candidates = candidates
	return c
}

// Dispatch resolves tasks and returns a channel that yields exactly one Completion
// per task, in completion order, then closes. Completions carry their row index.
// The caller must drain the channel. Cancelling ctx stops admission; rows that did
// not finish are yielded with a KindCanceled failure.
func (d *Dispatcher) Dispatch(ctx context.Context, tasks []Task) <-chan Completion {
	out := make(chan Completion)
	go d.run(ctx, tasks, out)
	return out
}

func (d *Dispatcher) run(ctx context.Context, tasks []Task, out chan<- Completion) {
	defer close(out)

	pool := NewPool(ctx, d.limit)
	pool.Start()

	go func() {
		defer pool.Close()
		for _, t := range tasks {
			if !pool.Submit(&resolveJob{task: t, d: d}) {
				return
			}
		}
	}()

	done := make(map[int]struct{}, len(tasks))
	for res := range pool.Results() {
		c := res.(*Completion)
		done[c.Row] = struct{}{}
		d.log(c)
		out <- *c
	}

	for _, t := range tasks {
		if _, ok := done[t.Row]; ok {
			continue
		}
		out <- Completion{
			Row:     t.Row,
			Skipped: !t.Diagnosis.IsPresent(),
			Failure: canceledFailure(ctx, t),
		}
	}
}

func canceledFailure(ctx context.Context, t Task) *resolver.Failure {
	if !t.Diagnosis.IsPresent() {
		return nil
	}
	return &resolver.Failure{Kind: resolver.KindCanceled, Err: context.Cause(ctx)}
}

func (d *Dispatcher) log(c *Completion) {
	switch {
	case c.Skipped:
		d.logger.Debug("row skipped", zap.Int("row", c.Row))
	case c.Failure != nil:
		d.logger.Warn("resolver call failed",
			zap.Int("row", c.Row),
			zap.String("kind", c.Failure.Kind.String()),
			zap.Duration("elapsed", c.Elapsed),
			zap.Error(c.Failure))
	default:
		d.logger.Debug("row resolved",
			zap.Int("row", c.Row),
			zap.Int("candidates", len(c.Candidates)),
			zap.Duration("elapsed", c.Elapsed))
	}
}
