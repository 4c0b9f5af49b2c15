package ai

import (
	"context"
	"time"
)

// TimeoutProvider bounds each call to the wrapped provider. Placed beneath
// the rate limiter, only time spent on the wire counts against it.
type TimeoutProvider struct {
	inner   Provider
	timeout time.Duration
}

// WithTimeout wraps p so every completion gets its own deadline. A
// non-positive d leaves calls unbounded.
func WithTimeout(p Provider, d time.Duration) *TimeoutProvider {
	return &TimeoutProvider{inner: p, timeout: d}
}

func (t *TimeoutProvider) Complete(ctx context.Context, req CompletionRequest) (CompletionResponse, error) {
	if t.timeout <= 0 {
		return t.inner.Complete(ctx, req)
	}
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	return t.inner.Complete(ctx, req)
}

func (t *TimeoutProvider) Models() []ModelInfo { return t.inner.Models() }

func (t *TimeoutProvider) HealthCheck(ctx context.Context) error { return t.inner.HealthCheck(ctx) }
