package ratelimit

import (
	"context"
	"time"
)

// Decision is the limiter's answer for one request.
type Decision struct {
	Allowed    bool
	Remaining  int
	RetryAfter time.Duration // how long until a denied caller may try again
}

type Limiter interface {
	Admit(ctx context.Context, key string) (Decision, error)
}
