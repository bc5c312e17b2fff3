package synth

import (
	"context"
	"errors"
	"fmt"
)

// Request contains parameters for one synthesis call. Text is already
// sanitized and chunked; one request maps to exactly one service call.
type Request struct {
	Text  string
	Voice string
}

// Payload is the audio returned for a single request. Audio holds PCM bytes,
// base64-encoded when Encoded is set.
type Payload struct {
	Audio      []byte
	Encoded    bool
	MimeType   string
	SampleRate int
}

// Synthesizer is the contract for producing audio from text.
type Synthesizer interface {
	Synthesize(ctx context.Context, req Request) (Payload, error)
}

// ErrNoAudio marks an otherwise successful response that carried no audio
// payload. It is retried like any other transient failure.
var ErrNoAudio = errors.New("response contained no audio payload")

// QuotaError is the service's rate-limit signal. It retries on its own longer
// backoff schedule instead of the exponential one.
type QuotaError struct {
	Err error
}

func (e *QuotaError) Error() string { return fmt.Sprintf("synthesis quota exceeded: %v", e.Err) }
func (e *QuotaError) Unwrap() error { return e.Err }

// IsQuota reports whether err carries a rate-limit signal.
func IsQuota(err error) bool {
	var qe *QuotaError
	return errors.As(err, &qe)
}

// ExhaustedError reports that every allowed attempt for a chunk failed. The
// chunk is dropped and the run continues.
type ExhaustedError struct {
	Attempts int
	Last     error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("synthesis failed after %d attempts: %v", e.Attempts, e.Last)
}

func (e *ExhaustedError) Unwrap() error { return e.Last }
