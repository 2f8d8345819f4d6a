package worker

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/ppiankov/clinmatch/internal/model"
	"github.com/ppiankov/clinmatch/internal/resolver"
	"github.com/ppiankov/clinmatch/internal/table"
)

func tasksFor(diagnoses ...string) []Task {
	tasks := make([]Task, len(diagnoses))
	for i, d := range diagnoses {
		tasks[i] = Task{Row: i, Diagnosis: table.NormalizeString(d), Gene: table.Absent()}
	}
	return tasks
}

func collect(ch <-chan Completion) []Completion {
	var out []Completion
	for c := range ch {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Row < out[j].Row })
	return out
}

func echoResolver() resolver.Resolver {
	return resolver.Func(func(ctx context.Context, req resolver.Request) ([]model.Candidate, error) {
		return []model.Candidate{{OMIM: "OMIM:" + req.Diagnosis, Name: req.Diagnosis}}, nil
	})
}

func TestNewDispatcher_Defaults(t *testing.T) {
	d := NewDispatcher(echoResolver(), 0, 0, nil)
	assert.Equal(t, DefaultLimit, d.Limit())
	assert.Equal(t, DefaultTimeout, d.timeout)
}

func TestDispatch_OneCompletionPerRow(t *testing.T) {
	defer goleak.VerifyNone(t)

	diagnoses := make([]string, 50)
	for i := range diagnoses {
		diagnoses[i] = fmt.Sprintf("d%d", i)
	}

	d := NewDispatcher(echoResolver(), 7, time.Second, nil)
	got := collect(d.Dispatch(context.Background(), tasksFor(diagnoses...)))

	require.Len(t, got, len(diagnoses))
	for i, c := range got {
		assert.Equal(t, i, c.Row)
		assert.Nil(t, c.Failure)
		require.Len(t, c.Candidates, 1)
		assert.Equal(t, diagnoses[i], c.Candidates[0].Name)
	}
}

func TestDispatch_LimitDoesNotChangeResults(t *testing.T) {
	defer goleak.VerifyNone(t)

	tasks := tasksFor("a", "", "b", "nan", "c", "d")

	serial := collect(NewDispatcher(echoResolver(), 1, time.Second, nil).Dispatch(context.Background(), tasks))
	parallel := collect(NewDispatcher(echoResolver(), 8, time.Second, nil).Dispatch(context.Background(), tasks))

	strip := func(cs []Completion) []Completion {
		for i := range cs {
			cs[i].Elapsed = 0
		}
		return cs
	}
	assert.Equal(t, strip(serial), strip(parallel))
}

func TestDispatch_BoundsInFlightCalls(t *testing.T) {
	defer goleak.VerifyNone(t)

	const limit = 3
	var current, peak int32
	var mu sync.Mutex

	r := resolver.Func(func(ctx context.Context, req resolver.Request) ([]model.Candidate, error) {
		n := atomic.AddInt32(&current, 1)
		mu.Lock()
		if n > peak {
			peak = n
		}
		mu.Unlock()
		time.Sleep(10 * time.Millisecond)
		atomic.AddInt32(&current, -1)
		return nil, nil
	})

	diagnoses := make([]string, 20)
	for i := range diagnoses {
		diagnoses[i] = fmt.Sprintf("d%d", i)
	}

	got := collect(NewDispatcher(r, limit, time.Second, nil).Dispatch(context.Background(), tasksFor(diagnoses...)))
	require.Len(t, got, 20)

	mu.Lock()
	defer mu.Unlock()
	assert.LessOrEqual(t, peak, int32(limit))
}

func TestDispatch_SkipsAbsentDiagnosis(t *testing.T) {
	defer goleak.VerifyNone(t)

	var calls atomic.Int32
	r := resolver.Func(func(ctx context.Context, req resolver.Request) ([]model.Candidate, error) {
		calls.Add(1)
		return nil, nil
	})

	got := collect(NewDispatcher(r, 2, time.Second, nil).Dispatch(context.Background(), tasksFor("", "  ", "N/A", "x")))
	require.Len(t, got, 4)
	for _, c := range got[:3] {
		assert.True(t, c.Skipped)
		assert.Nil(t, c.Failure)
	}
	assert.False(t, got[3].Skipped)
	assert.Equal(t, int32(1), calls.Load())
}

func TestDispatch_TimeoutAffectsOnlyThatRow(t *testing.T) {
	defer goleak.VerifyNone(t)

	r := resolver.Func(func(ctx context.Context, req resolver.Request) ([]model.Candidate, error) {
		if req.Diagnosis == "slow" {
			<-ctx.Done()
			return nil, ctx.Err()
		}
		return []model.Candidate{{MONDO: "MONDO:1"}}, nil
	})

	got := collect(NewDispatcher(r, 5, 50*time.Millisecond, nil).Dispatch(context.Background(),
		tasksFor("a", "b", "slow", "c", "d")))
	require.Len(t, got, 5)

	for i, c := range got {
		if i == 2 {
			require.NotNil(t, c.Failure)
			assert.Equal(t, resolver.KindTimeout, c.Failure.Kind)
			assert.Empty(t, c.Candidates)
			continue
		}
		assert.Nil(t, c.Failure, "row %d", i)
		assert.Len(t, c.Candidates, 1)
	}
}

func TestDispatch_FailureIsCapturedPerRow(t *testing.T) {
	defer goleak.VerifyNone(t)

	r := resolver.Func(func(ctx context.Context, req resolver.Request) ([]model.Candidate, error) {
		if req.Diagnosis == "bad" {
			return nil, &resolver.Failure{Kind: resolver.KindServerError, StatusCode: 500}
		}
		return nil, nil
	})

	got := collect(NewDispatcher(r, 2, time.Second, nil).Dispatch(context.Background(), tasksFor("ok", "bad")))
	require.Len(t, got, 2)
	assert.Nil(t, got[0].GetError())

	var f *resolver.Failure
	require.True(t, errors.As(got[1].GetError(), &f))
	assert.Equal(t, 500, f.StatusCode)
}

func TestDispatch_Cancellation(t *testing.T) {
	defer goleak.VerifyNone(t)

	ctx, cancel := context.WithCancel(context.Background())
	started := make(chan struct{}, 10)
	r := resolver.Func(func(ctx context.Context, req resolver.Request) ([]model.Candidate, error) {
		started <- struct{}{}
		<-ctx.Done()
		return nil, ctx.Err()
	})

	diagnoses := make([]string, 10)
	for i := range diagnoses {
		diagnoses[i] = fmt.Sprintf("d%d", i)
	}
	tasks := tasksFor(diagnoses...)
	tasks[9].Diagnosis = table.Absent()

	out := NewDispatcher(r, 2, time.Minute, nil).Dispatch(ctx, tasks)
	<-started
	cancel()

	got := collect(out)
	require.Len(t, got, 10)
	for i, c := range got {
		assert.Equal(t, i, c.Row)
		if c.Skipped {
			assert.Nil(t, c.Failure)
			continue
		}
		require.NotNil(t, c.Failure, "row %d", i)
		assert.Equal(t, resolver.KindCanceled, c.Failure.Kind)
	}
}
