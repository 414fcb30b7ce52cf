// Package ratelimit implements the dual token-bucket rate limiter (C1)
// that gates every external LLM and embedding call made by the PA, FI,
// and FuI engines. It generalizes the teacher's single request-per-minute
// bucket (internal/llm/ratelimiter.go) into two independent buckets keyed
// on requests/min and tokens/min, and lifts its analyzer's exponential
// backoff retry loop (internal/indexer/analyzer.go: completeWithRetry)
// into a reusable generic wrapper.
package ratelimit

import (
	"context"
	"time"

	"github.com/semindex/semindex/internal/semerr"
)

// bucket is a continuously-refilling token bucket.
type bucket struct {
	capacity float64
	tokens   float64
	lastFill time.Time
}

func newBucket(capacity int) *bucket {
	return &bucket{
		capacity: float64(capacity),
		tokens:   float64(capacity),
		lastFill: time.Now(),
	}
}

// refill adds fractional tokens for elapsed time, capped at capacity. The
// rate is capacity per 60 seconds ("per minute").
func (b *bucket) refill(now time.Time) {
	elapsed := now.Sub(b.lastFill).Seconds()
	if elapsed <= 0 {
		return
	}
	b.tokens += elapsed * (b.capacity / 60.0)
	if b.tokens > b.capacity {
		b.tokens = b.capacity
	}
	b.lastFill = now
}

// tryTake reports whether n tokens are available and, if so, deducts them.
func (b *bucket) tryTake(n float64) bool {
	if b.tokens >= n {
		b.tokens -= n
		return true
	}
	return false
}

// Limiter gates calls against two independent budgets: a requests/minute
// budget and a tokens/minute budget.
type Limiter struct {
	requests   *bucket
	tokens     *bucket
	pollEvery  time.Duration
	maxRetries int
	baseBackoff time.Duration
	maxBackoff  time.Duration

	mu chan struct{} // 1-buffered mutex substitute allowing ctx-aware locking
}

// Config carries the knobs from config.RateLimitConfig without importing
// that package, keeping this package usable standalone.
type Config struct {
	RequestsPerMinute int
	TokensPerMinute   int
	MaxRetries        int
	BaseBackoff       time.Duration
	MaxBackoff        time.Duration
}

// New constructs a Limiter with the given per-minute budgets.
func New(cfg Config) *Limiter {
	l := &Limiter{
		requests:    newBucket(cfg.RequestsPerMinute),
		tokens:      newBucket(cfg.TokensPerMinute),
		pollEvery:   100 * time.Millisecond,
		maxRetries:  cfg.MaxRetries,
		baseBackoff: cfg.BaseBackoff,
		maxBackoff:  cfg.MaxBackoff,
		mu:          make(chan struct{}, 1),
	}
	l.mu <- struct{}{}
	return l
}

// Acquire blocks cooperatively until both the request bucket and the
// token bucket have sufficient capacity for one request of the given
// token size, then decrements both atomically with respect to other
// acquirers. It honors ctx cancellation at every poll interval.
func (l *Limiter) Acquire(ctx context.Context, tokens int) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-l.mu:
		}

		now := time.Now()
		l.requests.refill(now)
		l.tokens.refill(now)

		if l.requests.tokens >= 1 && l.tokens.tokens >= float64(tokens) {
			l.requests.tryTake(1)
			l.tokens.tryTake(float64(tokens))
			l.mu <- struct{}{}
			return nil
		}
		l.mu <- struct{}{}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(l.pollEvery):
		}
	}
}

// Classifier decides whether an error observed from an external call is
// transient (worth retrying) given its message/type. Callers supply one
// because the concrete LLM/embedding clients know their own error shapes;
// this package stays provider-agnostic.
type Classifier func(err error) bool

// ExecuteWithRetry runs op, retrying on errors that classify as transient
// per isTransient, with exponential backoff starting at l.baseBackoff and
// capped at l.maxBackoff. Any non-transient error is returned immediately.
// After l.maxRetries retries (l.maxRetries+1 attempts in all) the last
// error is returned wrapped as
// semerr.KindTransient.
func ExecuteWithRetry[T any](ctx context.Context, l *Limiter, isTransient Classifier, op func(ctx context.Context) (T, error)) (T, error) {
	backoff := l.baseBackoff
	var zero T

	for attempt := 0; attempt <= l.maxRetries; attempt++ {
		result, err := op(ctx)
		if err == nil {
			return result, nil
		}
		if !isTransient(err) {
			return zero, err
		}
		if attempt == l.maxRetries {
			return zero, semerr.Transient("execute_with_retry", err)
		}

		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
		if backoff > l.maxBackoff {
			backoff = l.maxBackoff
		}
	}
	return zero, semerr.Transient("execute_with_retry", context.DeadlineExceeded)
}
