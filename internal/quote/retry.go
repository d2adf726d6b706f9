package quote

import (
	"context"
	"errors"
	"time"

	"pricewatch/config"
	"pricewatch/internal/metrics"
	"pricewatch/pkg/rest"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Sleeper blocks for d or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

type options struct {
	sleep Sleeper
}

// Option customises New.
type Option func(*options)

// WithSleeper replaces the backoff sleep, e.g. to observe waits in tests.
func WithSleeper(s Sleeper) Option {
	return func(o *options) { o.sleep = s }
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// retrier runs single provider requests with throttling and bounded retry.
// Every attempt first waits on the limiter, so consecutive requests are at
// least the configured delay apart.
type retrier struct {
	provider string
	limiter  *rate.Limiter
	policy   config.RetryConfig
	sleep    Sleeper
	log      *zap.Logger
}

func newRetrier(provider string, delay time.Duration, policy config.RetryConfig, sleep Sleeper, log *zap.Logger) *retrier {
	limit := rate.Inf
	if delay > 0 {
		limit = rate.Every(delay)
	}
	if policy.MaxAttempts < 1 {
		policy.MaxAttempts = 1
	}
	if sleep == nil {
		sleep = sleepContext
	}
	return &retrier{
		provider: provider,
		limiter:  rate.NewLimiter(limit, 1),
		policy:   policy,
		sleep:    sleep,
		log:      log.With(zap.String("component", "retry"), zap.String("provider", provider)),
	}
}

// do calls fn until it succeeds, fails permanently or attempts run out.
// A 429 waits for the server's Retry-After hint; other transient errors retry
// after the throttle delay alone.
func (r *retrier) do(ctx context.Context, key string, fn func(ctx context.Context) error) error {
	var lastErr error
	for attempt := 1; attempt <= r.policy.MaxAttempts; attempt++ {
		if err := r.limiter.Wait(ctx); err != nil {
			return err
		}

		err := fn(ctx)
		metrics.RecordQuote(r.provider, outcomeOf(err))
		if err == nil {
			return nil
		}
		lastErr = err

		if attempt == r.policy.MaxAttempts {
			break
		}

		if wait, limited := rest.IsRateLimited(err); limited {
			wait = r.backoff(wait)
			r.log.Warn("rate limited, backing off",
				zap.String("key", key), zap.Int("attempt", attempt), zap.Duration("wait", wait))
			if err := r.sleep(ctx, wait); err != nil {
				return err
			}
			continue
		}

		if !rest.IsTransient(err) {
			break
		}
		r.log.Debug("transient error, retrying",
			zap.String("key", key), zap.Int("attempt", attempt), zap.Error(err))
	}
	return lastErr
}

func (r *retrier) backoff(hint time.Duration) time.Duration {
	if hint <= 0 {
		hint = r.policy.DefaultRetryAfter
	}
	if r.policy.MaxRetryAfter > 0 && hint > r.policy.MaxRetryAfter {
		hint = r.policy.MaxRetryAfter
	}
	return hint
}

func outcomeOf(err error) string {
	switch {
	case err == nil:
		return metrics.OutcomeOK
	case errors.Is(err, ErrPriceMissing):
		return metrics.OutcomeMissing
	}
	if _, limited := rest.IsRateLimited(err); limited {
		return metrics.OutcomeRateLimited
	}
	return metrics.OutcomeError
}
