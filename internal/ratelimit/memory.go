package ratelimit

import (
	"context"
	"sync"
	"time"
)

// InMemory limits requests per key with a sliding window. Used when no Redis
// address is configured; state is per-process.
type InMemory struct {
	mu       sync.Mutex
	requests map[string][]time.Time
	limit    int
	window   time.Duration
}

func NewInMemory(limit int, window time.Duration) *InMemory {
	r := &InMemory{
		requests: make(map[string][]time.Time),
		limit:    limit,
		window:   window,
	}
	go r.cleanup()
	return r
}

func (r *InMemory) Admit(ctx context.Context, key string) (Decision, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now()
	cutoff := now.Add(-r.window)
	times := r.requests[key]
	// drop expired
	var valid []time.Time
	for _, t := range times {
		if t.After(cutoff) {
			valid = append(valid, t)
		}
	}
	if len(valid) >= r.limit {
		r.requests[key] = valid
		return Decision{
			Allowed:    false,
			RetryAfter: valid[0].Add(r.window).Sub(now),
		}, nil
	}
	valid = append(valid, now)
	r.requests[key] = valid
	return Decision{Allowed: true, Remaining: r.limit - len(valid)}, nil
}

func (r *InMemory) cleanup() {
	tick := time.NewTicker(time.Minute)
	for range tick.C {
		r.mu.Lock()
		cutoff := time.Now().Add(-r.window)
		for k, times := range r.requests {
			var valid []time.Time
			for _, t := range times {
				if t.After(cutoff) {
					valid = append(valid, t)
				}
			}
			if len(valid) == 0 {
				delete(r.requests, k)
			} else {
				r.requests[k] = valid
			}
		}
		r.mu.Unlock()
	}
}
