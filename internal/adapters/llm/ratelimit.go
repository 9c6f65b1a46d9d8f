package llm

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/time/rate"
)

// RateLimited wraps a Completer with a token bucket so bursts of requests
// queue instead of hitting provider quotas.
type RateLimited struct {
	next    Completer
	limiter *rate.Limiter
}

// NewRateLimited allows perMinute calls per minute with the given burst.
func NewRateLimited(next Completer, perMinute float64, burst int) *RateLimited {
	if burst < 1 {
		burst = 1
	}
	every := rate.Every(time.Duration(float64(time.Minute) / perMinute))
	return &RateLimited{next: next, limiter: rate.NewLimiter(every, burst)}
}

func (r *RateLimited) Provider() string { return r.next.Provider() }

func (r *RateLimited) Model() string { return r.next.Model() }

func (r *RateLimited) Complete(ctx context.Context, p Prompt) (string, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("waiting for llm rate limit: %w", err)
	}
	return r.next.Complete(ctx, p)
}
