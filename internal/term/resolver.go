package term

import (
	"context"
	"time"

	"mentortrack/internal/roster"
	"mentortrack/internal/store"
)

// Store is the term lookup surface the resolver needs.
type Store interface {
	CurrentTerm(ctx context.Context, today string) (*roster.Term, error)
	TermByShortName(ctx context.Context, shortName string) (*roster.Term, error)
}

const cacheKey = "term:current"

// Resolver finds the term whose date window contains today. The boundary
// layer resolves once per request and threads the result into the core;
// resolutions are cached in redis for a short TTL since the answer changes
// at most once a day.
type Resolver struct {
	store Store
	cache *store.Redis
	ttl   time.Duration
	loc   *time.Location
	now   func() time.Time
}

// NewResolver creates a resolver. cache may be nil.
func NewResolver(s Store, cache *store.Redis, ttl time.Duration, loc *time.Location) *Resolver {
	if loc == nil {
		loc = time.UTC
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &Resolver{store: s, cache: cache, ttl: ttl, loc: loc, now: time.Now}
}

// Current returns today's term, or nil when no term window contains today.
func (r *Resolver) Current(ctx context.Context) (*roster.Term, error) {
	if short, ok := r.cache.GetString(ctx, cacheKey); ok {
		if t, err := r.store.TermByShortName(ctx, short); err == nil && t != nil {
			return t, nil
		}
	}

	today := r.now().In(r.loc).Format("2006-01-02")
	t, err := r.store.CurrentTerm(ctx, today)
	if err != nil || t == nil {
		return nil, err
	}
	r.cache.SetString(ctx, cacheKey, t.ShortName, r.ttl)
	return t, nil
}
