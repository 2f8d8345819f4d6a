package resolver

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"golang.org/x/sync/singleflight"

	"github.com/ppiankov/clinmatch/internal/model"
)

// Deduper memoizes successful lookups of identical (diagnosis, gene) pairs for the
// lifetime of the process. Clinical exports repeat diagnoses heavily; nothing is
// persisted across runs. Failures are never memoized.
type Deduper struct {
	next   Resolver
	cache  *gocache.Cache
	flight singleflight.Group
}

// NewDeduper wraps next with an in-memory memo whose entries expire after ttl
func NewDeduper(next Resolver, ttl time.Duration) *Deduper {
	return &Deduper{
		next:  next,
		cache: gocache.New(ttl, 10*time.Minute),
	}
}

// Key returns the memo key of a request. Row context is not part of the key.
func Key(req Request) string {
	norm := strings.ToLower(strings.TrimSpace(req.Diagnosis)) + "\x00" +
		strings.ToUpper(strings.TrimSpace(req.Gene))
	hash := sha256.Sum256([]byte(norm))
	return "clinmatch:v1:" + hex.EncodeToString(hash[:])
}

// Resolve returns a memoized answer or performs the lookup once for concurrent
// callers asking the same question.
func (d *Deduper) Resolve(ctx context.Context, req Request) ([]model.Candidate, error) {
	key := Key(req)
	if val, found := d.cache.Get(key); found {
		return cloneCandidates(val.([]model.Candidate)), nil
	}

	leader := false
	ch := d.flight.DoChan(key, func() (interface{}, error) {
		leader = true
		candidates, err := d.next.Resolve(ctx, req)
		if err == nil {
			d.cache.SetDefault(key, cloneCandidates(candidates))
		}
		return candidates, err
	})

	var res singleflight.Result
	select {
	case res = <-ch:
	case <-ctx.Done():
		return nil, classify(ctx.Err())
	}

	if res.Err != nil {
		if leader {
			return nil, res.Err
		}
		// The leader's failure belongs to the leader's row; ask again for this one.
		return d.next.Resolve(ctx, req)
	}
	candidates, _ := res.Val.([]model.Candidate)
	return cloneCandidates(candidates), nil
}

func cloneCandidates(in []model.Candidate) []model.Candidate {
	if in == nil {
		return nil
	}
	out := make([]model.Candidate, len(in))
	copy(out, in)
	return out
}
