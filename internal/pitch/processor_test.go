package pitch

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/podforge/podforge-core/internal/audiotool"
)

func newLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}

func writeClip(t *testing.T, dir string) string {
	t.Helper()
	path := filepath.Join(dir, "clip.wav")
	if err := os.WriteFile(path, []byte("fake-wav-bytes"), 0o644); err != nil {
		t.Fatalf("write clip: %v", err)
	}
	return path
}

func TestApplyUnityFactorIsNoop(t *testing.T) {
	fake := &audiotool.Fake{}
	p := NewProcessor(fake, 24000, newLogger())

	d, err := p.Apply(context.Background(), "/nonexistent.wav", 3.0, 1.0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d != 3.0 {
		t.Fatalf("duration changed: %f", d)
	}
	if len(fake.PitchCalls) != 0 {
		t.Fatal("tool invoked for unity factor")
	}
}

func TestApplyCorrectsDuration(t *testing.T) {
	fake := &audiotool.Fake{}
	p := NewProcessor(fake, 24000, newLogger())
	path := writeClip(t, t.TempDir())

	d, err := p.Apply(context.Background(), path, 2.3, 1.15)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if math.Abs(d-2.3/1.15) > 1e-9 {
		t.Fatalf("expected %f, got %f", 2.3/1.15, d)
	}
	if len(fake.PitchCalls) != 1 {
		t.Fatalf("expected 1 tool call, got %d", len(fake.PitchCalls))
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("pitched clip missing: %v", err)
	}
	// The stashed original must be gone.
	if _, err := os.Stat(filepath.Join(filepath.Dir(path), "clip_orig.wav")); !os.IsNotExist(err) {
		t.Fatal("pre-pitch clip left behind")
	}
}

func TestApplyToolFailureKeepsOriginal(t *testing.T) {
	fake := &audiotool.Fake{FailPitch: errors.New("tool exploded")}
	p := NewProcessor(fake, 24000, newLogger())
	path := writeClip(t, t.TempDir())

	d, err := p.Apply(context.Background(), path, 2.3, 1.15)
	if err != nil {
		t.Fatalf("tool failure must not surface: %v", err)
	}
	if d != 2.3 {
		t.Fatalf("duration must stay uncorrected, got %f", d)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("original clip missing: %v", err)
	}
	if !bytes.Equal(data, []byte("fake-wav-bytes")) {
		t.Fatal("original clip content altered")
	}
}
