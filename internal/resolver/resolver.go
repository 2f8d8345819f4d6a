package resolver

import (
	"context"
	"errors"
	"fmt"
	"net"

	"github.com/ppiankov/clinmatch/internal/model"
)

// Request is one lookup: a diagnosis text and an optional gene symbol.
// Context optionally carries the whole source row rendered as text.
type Request struct {
	Diagnosis string
	Gene      string
	Context   string
}

// Resolver maps a diagnosis (and optional gene) to ranked disease candidates.
// The returned slice is ordered best first and may be empty.
// Errors should be *Failure values; other errors are classified with Classify.
type Resolver interface {
	Resolve(ctx context.Context, req Request) ([]model.Candidate, error)
}

// Func adapts a function to the Resolver interface
type Func func(ctx context.Context, req Request) ([]model.Candidate, error)

// Resolve calls f
func (f Func) Resolve(ctx context.Context, req Request) ([]model.Candidate, error) {
	return f(ctx, req)
}

// Kind classifies a resolver failure
type Kind int

const (
	KindTransport Kind = iota
	KindTimeout
	KindServerError
	KindInvalidResponse
	KindCanceled // The run was cancelled before the row completed
)

func (k Kind) String() string {
	switch k {
	case KindTimeout:
		return "timeout"
	case KindServerError:
		return "server_error"
	case KindInvalidResponse:
		return "invalid_response"
	case KindCanceled:
		return "canceled"
	default:
		return "transport"
	}
}

// Failure is a classified resolver failure for a single row
type Failure struct {
	Kind       Kind
	StatusCode int    // HTTP status for server errors
	Message    string // Server supplied error text, if any
	Err        error
}

func (f *Failure) Error() string {
	msg := "resolver " + f.Kind.String()
	if f.StatusCode != 0 {
		msg += fmt.Sprintf(" (HTTP %d)", f.StatusCode)
	}
	if f.Message != "" {
		msg += ": " + f.Message
	}
	if f.Err != nil {
		msg += ": " + f.Err.Error()
	}
	return msg
}

func (f *Failure) Unwrap() error { return f.Err }

// Description is the short text written into the clarification column
func (f *Failure) Description() string {
	switch f.Kind {
	case KindTimeout:
		return "resolver timeout"
	case KindServerError:
		if f.StatusCode != 0 {
			return fmt.Sprintf("resolver error (HTTP %d)", f.StatusCode)
		}
		return "resolver error"
	case KindInvalidResponse:
		return "resolver invalid response"
	case KindCanceled:
		return "run interrupted"
	default:
		return "resolver transport error"
	}
}

// Retryable reports whether another attempt could succeed
func (f *Failure) Retryable() bool {
	switch f.Kind {
	case KindTransport:
		return true
	case KindServerError:
		return f.StatusCode == 0 || f.StatusCode >= 500
	default:
		return false
	}
}

// Classify turns any error returned by a Resolver into a *Failure.
// parent is the run context, used to tell a run cancellation from a per-call timeout.
func Classify(parent context.Context, err error) *Failure {
	if err == nil {
		return nil
	}
	if parent.Err() != nil {
		var f *Failure
		if errors.As(err, &f) && f.Kind == KindCanceled {
			return f
		}
		return &Failure{Kind: KindCanceled, Err: err}
	}
	return classify(err)
}

func classify(err error) *Failure {
	var f *Failure
	if errors.As(err, &f) {
		return f
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &Failure{Kind: KindTimeout, Err: err}
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return &Failure{Kind: KindTimeout, Err: err}
	}
	if errors.Is(err, context.Canceled) {
		return &Failure{Kind: KindCanceled, Err: err}
	}
	return &Failure{Kind: KindTransport, Err: err}
}
