package transcript

import (
	"fmt"
	"os"
	"strings"
	"time"
)

// Entry is one transcript line's worth of data: the clip's speaker and text
// plus its computed start offset in the assembled episode.
type Entry struct {
	Start   time.Duration
	Speaker string
	Text    string
}

// Clip is the per-chunk metadata the builder consumes, in production order.
type Clip struct {
	Speaker  string
	Text     string
	Duration float64
}

// Build computes cumulative start times for an ordered clip list. Each clip
// starts at the running total of all prior durations plus one interChunkDelay
// per prior clip. Zero-duration clips still get an entry; they simply do not
// advance the clock beyond the delay.
func Build(clips []Clip, interChunkDelay time.Duration) []Entry {
	entries := make([]Entry, 0, len(clips))
	var current time.Duration
	for _, c := range clips {
		entries = append(entries, Entry{Start: current, Speaker: c.Speaker, Text: c.Text})
		current += time.Duration(c.Duration*float64(time.Second)) + interChunkDelay
	}
	return entries
}

// Format renders entries one per line as "[HH:MM:SS] [speaker]: text".
func Format(entries []Entry) string {
	var b strings.Builder
	for i, e := range entries {
		if i > 0 {
			b.WriteByte('\n')
		}
		total := int(e.Start.Seconds())
		hh := total / 3600
		mm := (total % 3600) / 60
		ss := total % 60
		fmt.Fprintf(&b, "[%02d:%02d:%02d] [%s]: %s", hh, mm, ss, e.Speaker, e.Text)
	}
	return b.String()
}

// Write builds, formats and writes the transcript file in one step.
func Write(path string, clips []Clip, interChunkDelay time.Duration) error {
	content := Format(Build(clips, interChunkDelay))
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return fmt.Errorf("write transcript: %w", err)
	}
	return nil
}
