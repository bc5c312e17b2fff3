package protocol

import "time"

// RenderProgress is published after every chunk-level pipeline step so
// observers can follow a render in flight.
type RenderProgress struct {
	RunID        string    `json:"run_id"`
	Stage        string    `json:"stage"`
	Speaker      string    `json:"speaker,omitempty"`
	ChunkOrdinal int       `json:"chunk_ordinal"`
	Clips        int       `json:"clips"`
	Dropped      int       `json:"dropped"`
	Timestamp    time.Time `json:"timestamp"`
}

// RenderResult announces a finished (or failed) render run.
type RenderResult struct {
	RunID           string    `json:"run_id"`
	Completed       bool      `json:"completed"`
	EpisodePath     string    `json:"episode_path,omitempty"`
	TranscriptPath  string    `json:"transcript_path,omitempty"`
	Clips           int       `json:"clips"`
	Dropped         int       `json:"dropped"`
	DurationSeconds float64   `json:"duration_seconds"`
	Error           string    `json:"error,omitempty"`
	Timestamp       time.Time `json:"timestamp"`
}

const (
	SubjectRenderProgress = "podcast.render.progress"
	SubjectRenderDone     = "podcast.render.done"
)
