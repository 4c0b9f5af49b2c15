package ai

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"
)

// Limiter blocks until one more outbound request may be sent.
type Limiter interface {
	Wait(ctx context.Context) error
}

// TokenBucket spaces requests evenly across a minute within one process.
type TokenBucket struct {
	lim *rate.Limiter
}

// NewTokenBucket allows perMinute requests per minute with a burst of one.
// A non-positive perMinute disables limiting.
func NewTokenBucket(perMinute int) *TokenBucket {
	if perMinute <= 0 {
		return &TokenBucket{lim: rate.NewLimiter(rate.Inf, 1)}
	}
	return &TokenBucket{lim: rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), 1)}
}

func (t *TokenBucket) Wait(ctx context.Context) error {
	return t.lim.Wait(ctx)
}

// windowCounter is the subset of the Redis API the shared limiter needs.
type windowCounter interface {
	Incr(ctx context.Context, key string) *redis.IntCmd
	Expire(ctx context.Context, key string, expiration time.Duration) *redis.BoolCmd
}

// RedisLimiter is a fixed-window limiter whose counter lives in Redis, so
// every process sharing the cache draws from one request budget.
type RedisLimiter struct {
	client windowCounter
	key    string
	limit  int64
	window time.Duration
	now    func() time.Time
}

// NewRedisLimiter allows perMinute requests per one-minute window across all
// processes using the same key prefix.
func NewRedisLimiter(client redis.Cmdable, keyPrefix string, perMinute int) *RedisLimiter {
	return &RedisLimiter{
		client: client,
		key:    keyPrefix,
		limit:  int64(perMinute),
		window: time.Minute,
		now:    time.Now,
	}
}

func (l *RedisLimiter) Wait(ctx context.Context) error {
	if l.limit <= 0 {
		return nil
	}
	for {
		start := l.now().Truncate(l.window)
		key := fmt.Sprintf("%s:%d", l.key, start.Unix())

		n, err := l.client.Incr(ctx, key).Result()
		if err != nil {
			return fmt.Errorf("rate limit counter: %w", err)
		}
		if n == 1 {
			if err := l.client.Expire(ctx, key, 2*l.window).Err(); err != nil {
				return fmt.Errorf("rate limit expiry: %w", err)
			}
		}
		if n <= l.limit {
			return nil
		}

		wait := start.Add(l.window).Sub(l.now())
		if wait <= 0 {
			continue
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}
}

// RateLimitedProvider waits on a Limiter before every completion.
type RateLimitedProvider struct {
	inner   Provider
	limiter Limiter
}

// WithRateLimit wraps a Provider so every call first waits on l.
func WithRateLimit(p Provider, l Limiter) *RateLimitedProvider {
	return &RateLimitedProvider{inner: p, limiter: l}
}

func (r *RateLimitedProvider) Complete(ctx context.Context, req CompletionRequest) (CompletionResponse, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return CompletionResponse{}, err
	}
	return r.inner.Complete(ctx, req)
}

func (r *RateLimitedProvider) Models() []ModelInfo { return r.inner.Models() }

func (r *RateLimitedProvider) HealthCheck(ctx context.Context) error { return r.inner.HealthCheck(ctx) }
