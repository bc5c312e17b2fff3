package jobstore

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/podforge/podforge-core/internal/config"
	_ "modernc.org/sqlite"
)

// Run is a recorded render run.
type Run struct {
	RunID          string
	Status         string
	EpisodePath    string
	TranscriptPath string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Event is a per-chunk record inside a run: a synthesized clip, a dropped
// chunk, a pitch adjustment.
type Event struct {
	ID        int64
	RunID     string
	Type      string
	Speaker   string
	Detail    string
	Duration  float64
	CreatedAt time.Time
}

// Run status values.
const (
	StatusRunning  = "running"
	StatusComplete = "complete"
	StatusFailed   = "failed"
)

// Event type values.
const (
	EventClipSynthesized = "clip_synthesized"
	EventChunkDropped    = "chunk_dropped"
	EventChunkSkipped    = "chunk_skipped"
	EventPitchApplied    = "pitch_applied"
)

// Store wraps a SQLite-backed record of render runs and their chunk events.
type Store struct {
	db    *sql.DB
	cfg   config.JobStoreConfig
	log   *slog.Logger
	clock func() time.Time
}

// Open initializes the job store according to config. Ephemeral retention
// skips persistence entirely.
func Open(ctx context.Context, cfg config.JobStoreConfig, log *slog.Logger) (*Store, error) {
	if cfg.RetentionMode == "ephemeral" {
		return &Store{cfg: cfg, log: log, clock: time.Now}, nil
	}

	dir := filepath.Dir(cfg.Path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create data dir: %w", err)
		}
	}

	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=foreign_keys(ON)", cfg.Path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	s := &Store{db: db, cfg: cfg, log: log, clock: time.Now}

	if err := s.initSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}

	if cfg.VacuumOnStart {
		if err := s.vacuum(ctx); err != nil {
			log.Warn("job store vacuum failed", slog.String("error", err.Error()))
		}
	}

	if err := s.Prune(ctx); err != nil {
		log.Warn("job store prune on start failed", slog.String("error", err.Error()))
	}

	return s, nil
}

func (s *Store) initSchema(ctx context.Context) error {
	if s.db == nil {
		return nil
	}
	ddl := `
CREATE TABLE IF NOT EXISTS runs (
    run_id TEXT PRIMARY KEY,
    status TEXT NOT NULL,
    episode_path TEXT,
    transcript_path TEXT,
    created_at TIMESTAMP NOT NULL,
    updated_at TIMESTAMP NOT NULL
);
CREATE TABLE IF NOT EXISTS run_events (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    run_id TEXT NOT NULL,
    event_type TEXT,
    speaker TEXT,
    detail TEXT,
    duration_seconds REAL,
    created_at TIMESTAMP NOT NULL,
    FOREIGN KEY(run_id) REFERENCES runs(run_id) ON DELETE CASCADE
);
CREATE INDEX IF NOT EXISTS idx_run_events_run_created ON run_events(run_id, created_at);
`
	_, err := s.db.ExecContext(ctx, ddl)
	return err
}

func (s *Store) vacuum(ctx context.Context) error {
	if s.db == nil {
		return nil
	}
	_, err := s.db.ExecContext(ctx, "VACUUM")
	return err
}

// Close releases underlying resources.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// BeginRun records the start of a render run.
func (s *Store) BeginRun(ctx context.Context, runID string) error {
	if s.db == nil {
		return nil
	}
	now := s.clock().UTC()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs(run_id, status, created_at, updated_at)
		 VALUES(?, ?, ?, ?)
		 ON CONFLICT(run_id) DO UPDATE SET status=excluded.status, updated_at=excluded.updated_at`,
		runID, StatusRunning, now, now)
	return err
}

// FinishRun records the run's terminal state and output paths.
func (s *Store) FinishRun(ctx context.Context, runID, status, episodePath, transcriptPath string) error {
	if s.db == nil {
		return nil
	}
	_, err := s.db.ExecContext(ctx,
		`UPDATE runs SET status=?, episode_path=?, transcript_path=?, updated_at=? WHERE run_id=?`,
		status, episodePath, transcriptPath, s.clock().UTC(), runID)
	return err
}

// AppendEvent writes one chunk-level event into the store.
func (s *Store) AppendEvent(ctx context.Context, evt Event) error {
	if s.db == nil {
		return nil
	}
	if evt.CreatedAt.IsZero() {
		evt.CreatedAt = s.clock().UTC()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO run_events(run_id, event_type, speaker, detail, duration_seconds, created_at)
		 VALUES(?, ?, ?, ?, ?, ?)`,
		evt.RunID, evt.Type, evt.Speaker, evt.Detail, evt.Duration, evt.CreatedAt)
	return err
}

// GetRun fetches a single run row.
func (s *Store) GetRun(ctx context.Context, runID string) (Run, error) {
	if s.db == nil {
		return Run{}, sql.ErrNoRows
	}
	row := s.db.QueryRowContext(ctx,
		`SELECT run_id, status, COALESCE(episode_path, ''), COALESCE(transcript_path, ''), created_at, updated_at
		 FROM runs WHERE run_id = ?`, runID)
	var r Run
	if err := row.Scan(&r.RunID, &r.Status, &r.EpisodePath, &r.TranscriptPath, &r.CreatedAt, &r.UpdatedAt); err != nil {
		return Run{}, err
	}
	return r, nil
}

// ListRunEvents returns a run's events oldest-first, capped at limit.
func (s *Store) ListRunEvents(ctx context.Context, runID string, limit int) ([]Event, error) {
	if s.db == nil {
		return nil, nil
	}
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, run_id, event_type, COALESCE(speaker, ''), COALESCE(detail, ''), COALESCE(duration_seconds, 0), created_at
		 FROM run_events WHERE run_id = ? ORDER BY id ASC LIMIT ?`, runID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var e Event
		if err := rows.Scan(&e.ID, &e.RunID, &e.Type, &e.Speaker, &e.Detail, &e.Duration, &e.CreatedAt); err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

// Prune enforces the retention policy: runs older than RetentionDays go, and
// only the newest MaxRuns are kept.
func (s *Store) Prune(ctx context.Context) error {
	if s.db == nil || s.cfg.RetentionMode == "ephemeral" {
		return nil
	}
	if s.cfg.RetentionDays > 0 {
		cutoff := s.clock().UTC().AddDate(0, 0, -s.cfg.RetentionDays)
		if _, err := s.db.ExecContext(ctx, `DELETE FROM runs WHERE created_at < ?`, cutoff); err != nil {
			return fmt.Errorf("prune by age: %w", err)
		}
	}
	if s.cfg.MaxRuns > 0 {
		_, err := s.db.ExecContext(ctx,
			`DELETE FROM runs WHERE run_id NOT IN (
			   SELECT run_id FROM runs ORDER BY created_at DESC LIMIT ?
			 )`, s.cfg.MaxRuns)
		if err != nil {
			return fmt.Errorf("prune by count: %w", err)
		}
	}
	return nil
}
