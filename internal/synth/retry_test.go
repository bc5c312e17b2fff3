package synth

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"
)

func newLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}

// scriptedSynth fails a set number of times before succeeding.
type scriptedSynth struct {
	failures int
	err      error
	calls    int
}

func (s *scriptedSynth) Synthesize(ctx context.Context, req Request) (Payload, error) {
	s.calls++
	if s.calls <= s.failures {
		return Payload{}, s.err
	}
	return Payload{Audio: []byte{1, 2, 3, 4}, SampleRate: 24000}, nil
}

func newTestClient(s Synthesizer, policy RetryPolicy) (*Client, *[]time.Duration) {
	c := NewClient(s, policy, newLogger())
	var slept []time.Duration
	c.sleep = func(ctx context.Context, d time.Duration) error {
		slept = append(slept, d)
		return ctx.Err()
	}
	return c, &slept
}

func TestSynthesizeSucceedsAfterTransientFailures(t *testing.T) {
	stub := &scriptedSynth{failures: 2, err: errors.New("boom")}
	policy := RetryPolicy{MaxAttempts: 5, BaseDelay: time.Second}
	c, slept := newTestClient(stub, policy)

	payload, err := c.Synthesize(context.Background(), Request{Text: "hi", Voice: "Charon"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(payload.Audio) == 0 {
		t.Fatal("expected audio payload")
	}
	if stub.calls != 3 {
		t.Fatalf("expected 3 attempts, got %d", stub.calls)
	}
	// Exponential: BASE_DELAY*1 then BASE_DELAY*2.
	want := []time.Duration{1 * time.Second, 2 * time.Second}
	if len(*slept) != len(want) {
		t.Fatalf("expected %d sleeps, got %v", len(want), *slept)
	}
	for i, w := range want {
		if (*slept)[i] != w {
			t.Fatalf("sleep %d: got %v, want %v", i, (*slept)[i], w)
		}
	}
}

func TestSynthesizeRetryBound(t *testing.T) {
	stub := &scriptedSynth{failures: 100, err: errors.New("always failing")}
	policy := RetryPolicy{MaxAttempts: 5, BaseDelay: time.Millisecond}
	c, _ := newTestClient(stub, policy)

	_, err := c.Synthesize(context.Background(), Request{Text: "hi"})
	var exhausted *ExhaustedError
	if !errors.As(err, &exhausted) {
		t.Fatalf("expected ExhaustedError, got %v", err)
	}
	if exhausted.Attempts != 5 {
		t.Fatalf("expected 5 attempts recorded, got %d", exhausted.Attempts)
	}
	if stub.calls != 5 {
		t.Fatalf("expected exactly 5 calls, got %d", stub.calls)
	}
}

func TestSynthesizeQuotaUsesLinearBackoff(t *testing.T) {
	stub := &scriptedSynth{failures: 2, err: &QuotaError{Err: errors.New("429")}}
	policy := RetryPolicy{
		MaxAttempts: 5,
		BaseDelay:   time.Second,
		QuotaDelay: func(attempt int) time.Duration {
			return 10 * time.Second * time.Duration(attempt+1)
		},
	}
	c, slept := newTestClient(stub, policy)

	if _, err := c.Synthesize(context.Background(), Request{Text: "hi"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []time.Duration{10 * time.Second, 20 * time.Second}
	if len(*slept) != len(want) {
		t.Fatalf("expected %d sleeps, got %v", len(want), *slept)
	}
	for i, w := range want {
		if (*slept)[i] != w {
			t.Fatalf("sleep %d: got %v, want %v", i, (*slept)[i], w)
		}
	}
}

func TestSynthesizeMissingAudioIsTransient(t *testing.T) {
	// Succeeds immediately, but with no audio in the payload.
	c, _ := newTestClient(synthFunc(func(ctx context.Context, req Request) (Payload, error) {
		return Payload{}, nil
	}), RetryPolicy{MaxAttempts: 3, BaseDelay: time.Millisecond})

	_, err := c.Synthesize(context.Background(), Request{Text: "hi"})
	var exhausted *ExhaustedError
	if !errors.As(err, &exhausted) {
		t.Fatalf("expected ExhaustedError, got %v", err)
	}
	if !errors.Is(err, ErrNoAudio) {
		t.Fatalf("expected ErrNoAudio as cause, got %v", exhausted.Last)
	}
}

func TestSynthesizeCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	c, _ := newTestClient(&scriptedSynth{failures: 100, err: errors.New("boom")},
		RetryPolicy{MaxAttempts: 5, BaseDelay: time.Second})

	_, err := c.Synthesize(ctx, Request{Text: "hi"})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

type synthFunc func(ctx context.Context, req Request) (Payload, error)

func (f synthFunc) Synthesize(ctx context.Context, req Request) (Payload, error) {
	return f(ctx, req)
}
