package resolver

import (
	"context"

	"golang.org/x/time/rate"

	"github.com/ppiankov/clinmatch/internal/model"
)

// Throttled caps the request rate sent to the wrapped resolver.
// It complements the concurrency limit for services that meter requests per second.
type Throttled struct {
	next    Resolver
	limiter *rate.Limiter
}

// NewThrottled wraps next with a token bucket of requestsPerSecond and burst.
// A non-positive rate returns next unchanged.
func NewThrottled(next Resolver, requestsPerSecond float64, burst int) Resolver {
	if requestsPerSecond <= 0 {
		return next
	}
	if burst <= 0 {
		burst = 1
	}
	return &Throttled{
		next:    next,
		limiter: rate.NewLimiter(rate.Limit(requestsPerSecond), burst),
	}
}

// Resolve waits for a token, then delegates. A token that would arrive after the
// call's deadline is a timeout.
func (t *Throttled) Resolve(ctx context.Context, req Request) ([]model.Candidate, error) {
	if err := t.limiter.Wait(ctx); err != nil {
		if ctx.Err() == nil {
			if _, ok := ctx.Deadline(); ok {
				return nil, &Failure{Kind: KindTimeout, Err: err}
			}
		}
		return nil, classify(err)
	}
	return t.next.Resolve(ctx, req)
}
