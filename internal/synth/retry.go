package synth

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

// RetryPolicy bounds and paces retries of failing synthesis calls. Quota
// failures wait on QuotaDelay's schedule; all other transient failures back
// off exponentially from BaseDelay. Both bands share the MaxAttempts bound.
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	QuotaDelay  func(attempt int) time.Duration
}

// DefaultRetryPolicy mirrors the service's observed quota behavior: short
// exponential waits for blips, ten-second linear steps for rate limits.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 5,
		BaseDelay:   time.Second,
		QuotaDelay: func(attempt int) time.Duration {
			return 10 * time.Second * time.Duration(attempt+1)
		},
	}
}

func (p RetryPolicy) delay(attempt int, err error) time.Duration {
	if IsQuota(err) {
		if p.QuotaDelay != nil {
			return p.QuotaDelay(attempt)
		}
		return 10 * time.Second * time.Duration(attempt+1)
	}
	return p.BaseDelay * (1 << attempt)
}

// Client wraps a Synthesizer with the bounded retry policy. Retries block the
// caller; synthesis is deliberately sequential against the rate-limited
// service.
type Client struct {
	synth   Synthesizer
	policy  RetryPolicy
	log     *slog.Logger
	retries metric.Int64Counter

	// sleep is swapped out in tests to observe delays without waiting.
	sleep func(ctx context.Context, d time.Duration) error
}

func NewClient(synth Synthesizer, policy RetryPolicy, log *slog.Logger) *Client {
	if policy.MaxAttempts <= 0 {
		policy.MaxAttempts = 1
	}
	retries, err := otel.Meter("podforge/synth").Int64Counter("podforge.synth.retries",
		metric.WithDescription("Synthesis attempts retried after a failure"))
	if err != nil {
		log.Warn("failed to create retry counter", slog.String("error", err.Error()))
	}
	return &Client{
		synth:   synth,
		policy:  policy,
		log:     log.With(slog.String("component", "synth-client")),
		retries: retries,
		sleep:   sleepContext,
	}
}

// Synthesize performs one chunk's synthesis with bounded retries. A response
// without an audio payload counts as a transient failure. Context
// cancellation aborts immediately, including mid-backoff. When all attempts
// fail the returned error is an *ExhaustedError; callers drop the chunk and
// move on.
func (c *Client) Synthesize(ctx context.Context, req Request) (Payload, error) {
	var lastErr error
	for attempt := 0; attempt < c.policy.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return Payload{}, err
		}

		payload, err := c.synth.Synthesize(ctx, req)
		if err == nil && len(payload.Audio) == 0 {
			err = ErrNoAudio
		}
		if err == nil {
			return payload, nil
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return Payload{}, err
		}
		lastErr = err

		if attempt == c.policy.MaxAttempts-1 {
			break
		}
		wait := c.policy.delay(attempt, err)
		if IsQuota(err) {
			c.log.Warn("synthesis rate limited",
				slog.Int("attempt", attempt+1),
				slog.Duration("wait", wait))
		} else {
			c.log.Warn("synthesis attempt failed",
				slog.Int("attempt", attempt+1),
				slog.Duration("wait", wait),
				slog.String("error", err.Error()))
		}
		if c.retries != nil {
			c.retries.Add(ctx, 1)
		}
		if err := c.sleep(ctx, wait); err != nil {
			return Payload{}, err
		}
	}
	return Payload{}, &ExhaustedError{Attempts: c.policy.MaxAttempts, Last: lastErr}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
