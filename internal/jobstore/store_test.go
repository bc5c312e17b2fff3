package jobstore

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/podforge/podforge-core/internal/config"
)

func newLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}

func openTestStore(t *testing.T, cfg config.JobStoreConfig) *Store {
	t.Helper()
	if cfg.Path == "" {
		cfg.Path = filepath.Join(t.TempDir(), "runs.db")
	}
	if cfg.RetentionMode == "" {
		cfg.RetentionMode = "session"
	}
	s, err := Open(context.Background(), cfg, newLogger())
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestBeginAndFinishRun(t *testing.T) {
	s := openTestStore(t, config.JobStoreConfig{})
	ctx := context.Background()

	if err := s.BeginRun(ctx, "run-1"); err != nil {
		t.Fatalf("begin run: %v", err)
	}
	run, err := s.GetRun(ctx, "run-1")
	if err != nil {
		t.Fatalf("get run: %v", err)
	}
	if run.Status != StatusRunning {
		t.Fatalf("expected status %q, got %q", StatusRunning, run.Status)
	}

	if err := s.FinishRun(ctx, "run-1", StatusComplete, "/out/ep.mp3", "/out/tr.txt"); err != nil {
		t.Fatalf("finish run: %v", err)
	}
	run, err = s.GetRun(ctx, "run-1")
	if err != nil {
		t.Fatalf("get run after finish: %v", err)
	}
	if run.Status != StatusComplete {
		t.Fatalf("expected status %q, got %q", StatusComplete, run.Status)
	}
	if run.EpisodePath != "/out/ep.mp3" || run.TranscriptPath != "/out/tr.txt" {
		t.Fatalf("output paths not recorded: %+v", run)
	}
}

func TestGetRunUnknown(t *testing.T) {
	s := openTestStore(t, config.JobStoreConfig{})
	_, err := s.GetRun(context.Background(), "missing")
	if !errors.Is(err, sql.ErrNoRows) {
		t.Fatalf("expected sql.ErrNoRows, got %v", err)
	}
}

func TestAppendAndListEvents(t *testing.T) {
	s := openTestStore(t, config.JobStoreConfig{})
	ctx := context.Background()

	if err := s.BeginRun(ctx, "run-1"); err != nil {
		t.Fatalf("begin run: %v", err)
	}
	events := []Event{
		{RunID: "run-1", Type: EventClipSynthesized, Speaker: "Host", Detail: "clip_0000_host.wav", Duration: 2.5},
		{RunID: "run-1", Type: EventPitchApplied, Speaker: "Guest", Detail: "clip_0001_guest.wav", Duration: 2.17},
		{RunID: "run-1", Type: EventChunkDropped, Speaker: "Guest", Detail: "synthesis exhausted"},
	}
	for _, e := range events {
		if err := s.AppendEvent(ctx, e); err != nil {
			t.Fatalf("append event: %v", err)
		}
	}

	got, err := s.ListRunEvents(ctx, "run-1", 10)
	if err != nil {
		t.Fatalf("list events: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 events, got %d", len(got))
	}
	for i, want := range events {
		if got[i].Type != want.Type || got[i].Speaker != want.Speaker || got[i].Detail != want.Detail {
			t.Fatalf("event %d mismatch: got %+v, want %+v", i, got[i], want)
		}
	}
}

func TestListEventsLimit(t *testing.T) {
	s := openTestStore(t, config.JobStoreConfig{})
	ctx := context.Background()

	if err := s.BeginRun(ctx, "run-1"); err != nil {
		t.Fatalf("begin run: %v", err)
	}
	for i := 0; i < 5; i++ {
		if err := s.AppendEvent(ctx, Event{RunID: "run-1", Type: EventClipSynthesized}); err != nil {
			t.Fatalf("append event: %v", err)
		}
	}
	got, err := s.ListRunEvents(ctx, "run-1", 2)
	if err != nil {
		t.Fatalf("list events: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 events, got %d", len(got))
	}
}

func TestPruneByAge(t *testing.T) {
	s := openTestStore(t, config.JobStoreConfig{RetentionDays: 7})
	ctx := context.Background()

	base := time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC)
	s.clock = func() time.Time { return base.AddDate(0, 0, -30) }
	if err := s.BeginRun(ctx, "old-run"); err != nil {
		t.Fatalf("begin old run: %v", err)
	}
	s.clock = func() time.Time { return base }
	if err := s.BeginRun(ctx, "new-run"); err != nil {
		t.Fatalf("begin new run: %v", err)
	}

	if err := s.Prune(ctx); err != nil {
		t.Fatalf("prune: %v", err)
	}
	if _, err := s.GetRun(ctx, "old-run"); !errors.Is(err, sql.ErrNoRows) {
		t.Fatalf("expected old run pruned, got %v", err)
	}
	if _, err := s.GetRun(ctx, "new-run"); err != nil {
		t.Fatalf("new run must survive prune: %v", err)
	}
}

func TestPruneByCount(t *testing.T) {
	s := openTestStore(t, config.JobStoreConfig{MaxRuns: 2})
	ctx := context.Background()

	base := time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC)
	for i, id := range []string{"run-a", "run-b", "run-c"} {
		offset := time.Duration(i) * time.Minute
		s.clock = func() time.Time { return base.Add(offset) }
		if err := s.BeginRun(ctx, id); err != nil {
			t.Fatalf("begin %s: %v", id, err)
		}
	}

	if err := s.Prune(ctx); err != nil {
		t.Fatalf("prune: %v", err)
	}
	if _, err := s.GetRun(ctx, "run-a"); !errors.Is(err, sql.ErrNoRows) {
		t.Fatalf("expected oldest run pruned, got %v", err)
	}
	for _, id := range []string{"run-b", "run-c"} {
		if _, err := s.GetRun(ctx, id); err != nil {
			t.Fatalf("%s must survive prune: %v", id, err)
		}
	}
}

func TestEphemeralModeIsNoop(t *testing.T) {
	s := openTestStore(t, config.JobStoreConfig{Path: "ignored", RetentionMode: "ephemeral"})
	ctx := context.Background()

	if err := s.BeginRun(ctx, "run-1"); err != nil {
		t.Fatalf("begin run: %v", err)
	}
	if err := s.AppendEvent(ctx, Event{RunID: "run-1", Type: EventClipSynthesized}); err != nil {
		t.Fatalf("append event: %v", err)
	}
	if _, err := s.GetRun(ctx, "run-1"); !errors.Is(err, sql.ErrNoRows) {
		t.Fatalf("ephemeral store must not persist runs, got %v", err)
	}
	events, err := s.ListRunEvents(ctx, "run-1", 10)
	if err != nil || len(events) != 0 {
		t.Fatalf("ephemeral store must not persist events: %v, %v", events, err)
	}
}
