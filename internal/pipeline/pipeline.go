package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"github.com/google/uuid"
	"github.com/podforge/podforge-core/internal/assemble"
	"github.com/podforge/podforge-core/internal/config"
	"github.com/podforge/podforge-core/internal/jobstore"
	"github.com/podforge/podforge-core/internal/pitch"
	"github.com/podforge/podforge-core/internal/script"
	"github.com/podforge/podforge-core/internal/synth"
	"github.com/podforge/podforge-core/internal/transcript"
	"github.com/podforge/podforge-core/internal/voice"
	"github.com/podforge/podforge-core/internal/wav"
)

// ErrEmptyScript reports that segmentation produced nothing speakable.
var ErrEmptyScript = errors.New("script contains no speakable segments")

// Clip is one synthesized chunk's metadata plus its on-disk WAV file. Clips
// are owned by the run and deleted once the assembler consumes them.
type Clip struct {
	Speaker  string
	Text     string
	Duration float64
	Path     string
}

// Result summarizes a completed render run.
type Result struct {
	RunID           string
	EpisodePath     string
	TranscriptPath  string
	Clips           int
	Dropped         int
	DurationSeconds float64
}

// Deps carries the pipeline's collaborators. Store and Progress may be nil.
type Deps struct {
	Synth     *synth.Client
	Voices    *voice.Registry
	Sanitizer *script.Sanitizer
	Pitch     *pitch.Processor
	Assembler *assemble.Assembler
	Store     *jobstore.Store
	Progress  Publisher
	Logger    *slog.Logger
}

// Pipeline turns a speaker-tagged script into one compressed episode file and
// a timestamped transcript. A run is strictly sequential: retries and
// rate-limit courtesy delays block it on purpose, because the synthesis
// service meters by wall clock.
type Pipeline struct {
	deps Deps
	cfg  config.Config
	log  *slog.Logger

	interChunkDelay  time.Duration
	speakerTurnDelay time.Duration

	metrics *metrics

	// sleep is swapped out in tests to skip the courtesy delays.
	sleep func(ctx context.Context, d time.Duration) error
}

func New(cfg config.Config, deps Deps) (*Pipeline, error) {
	if deps.Synth == nil || deps.Voices == nil || deps.Sanitizer == nil ||
		deps.Pitch == nil || deps.Assembler == nil {
		return nil, errors.New("pipeline is missing a required dependency")
	}
	log := deps.Logger
	if log == nil {
		log = slog.Default()
	}
	m, err := newMetrics()
	if err != nil {
		return nil, fmt.Errorf("init pipeline metrics: %w", err)
	}
	return &Pipeline{
		deps:             deps,
		cfg:              cfg,
		log:              log.With(slog.String("component", "pipeline")),
		interChunkDelay:  time.Duration(cfg.Pipeline.InterChunkDelayMS) * time.Millisecond,
		speakerTurnDelay: time.Duration(cfg.Pipeline.SpeakerTurnDelayMS) * time.Millisecond,
		metrics:          m,
		sleep:            sleepContext,
	}, nil
}

// Render runs the full pipeline over scriptText. Per-chunk failures are
// absorbed: a chunk that cannot be synthesized is dropped and the run
// continues. Structural failures (nothing synthesized at all, assembly tool
// failure) are returned as the run's error. Cancellation is honored at every
// chunk boundary.
func (p *Pipeline) Render(ctx context.Context, scriptText string) (Result, error) {
	return p.RenderRun(ctx, uuid.NewString(), scriptText)
}

// RenderRun is Render with a caller-chosen run id, so callers that respond
// before the run finishes can hand out the id first.
func (p *Pipeline) RenderRun(ctx context.Context, runID, scriptText string) (Result, error) {
	log := p.log.With(slog.String("run_id", runID))
	p.metrics.runStarted(ctx)

	segments := script.SplitSegments(scriptText, p.cfg.Pipeline.DefaultSpeaker)
	if len(segments) == 0 {
		return Result{RunID: runID}, ErrEmptyScript
	}

	runDir := filepath.Join(p.cfg.Audio.WorkDir, runID)
	if err := os.MkdirAll(runDir, 0o755); err != nil {
		return Result{RunID: runID}, fmt.Errorf("create run work dir: %w", err)
	}
	if err := os.MkdirAll(p.cfg.Audio.OutputDir, 0o755); err != nil {
		return Result{RunID: runID}, fmt.Errorf("create output dir: %w", err)
	}

	if p.deps.Store != nil {
		if err := p.deps.Store.BeginRun(ctx, runID); err != nil {
			log.Warn("failed to record run start", slog.String("error", err.Error()))
		}
	}

	clips, dropped, err := p.synthesizeAll(ctx, runID, runDir, segments, log)
	if err != nil {
		p.finishRun(ctx, runID, jobstore.StatusFailed, "", "")
		p.publishResult(runID, Result{RunID: runID, Dropped: dropped}, err)
		return Result{RunID: runID, Dropped: dropped}, err
	}

	result := Result{RunID: runID, Clips: len(clips), Dropped: dropped}
	for _, c := range clips {
		result.DurationSeconds += c.Duration
	}

	if len(clips) == 0 {
		err := assemble.ErrNoClips
		p.finishRun(ctx, runID, jobstore.StatusFailed, "", "")
		p.publishResult(runID, result, err)
		return result, err
	}

	episodePath := filepath.Join(p.cfg.Audio.OutputDir, fmt.Sprintf("episode_%s.mp3", runID))
	transcriptPath := filepath.Join(p.cfg.Audio.OutputDir, fmt.Sprintf("episode_%s.txt", runID))

	paths := make([]string, len(clips))
	tclips := make([]transcript.Clip, len(clips))
	for i, c := range clips {
		paths[i] = c.Path
		tclips[i] = transcript.Clip{Speaker: c.Speaker, Text: c.Text, Duration: c.Duration}
	}

	if err := p.deps.Assembler.Merge(ctx, paths, episodePath); err != nil {
		p.finishRun(ctx, runID, jobstore.StatusFailed, "", "")
		p.publishResult(runID, result, err)
		return result, err
	}

	if err := transcript.Write(transcriptPath, tclips, p.interChunkDelay); err != nil {
		p.finishRun(ctx, runID, jobstore.StatusFailed, episodePath, "")
		p.publishResult(runID, result, err)
		return result, err
	}

	// The run directory should be empty now that the assembler cleaned up.
	_ = os.Remove(runDir)

	result.EpisodePath = episodePath
	result.TranscriptPath = transcriptPath
	p.finishRun(ctx, runID, jobstore.StatusComplete, episodePath, transcriptPath)
	p.publishResult(runID, result, nil)
	p.metrics.runCompleted(ctx)

	log.Info("render complete",
		slog.Int("clips", result.Clips),
		slog.Int("dropped", result.Dropped),
		slog.Float64("audio_seconds", result.DurationSeconds),
		slog.String("episode", episodePath))
	return result, nil
}

func (p *Pipeline) synthesizeAll(ctx context.Context, runID, runDir string, segments []script.Segment, log *slog.Logger) ([]Clip, int, error) {
	var clips []Clip
	dropped := 0
	ordinal := 0

	for _, seg := range segments {
		profile := p.deps.Voices.Resolve(seg.Speaker)
		chunks := script.ChunkText(seg.Text, p.cfg.Pipeline.MaxChunkChars)
		synthesizedAny := false

		for _, chunk := range chunks {
			if err := ctx.Err(); err != nil {
				return nil, dropped, err
			}
			ordinal++

			sanitized := p.deps.Sanitizer.Clean(chunk)
			if sanitized == "" {
				// Nothing speakable left; skipping is intentional, not an error.
				log.Debug("chunk empty after sanitization", slog.Int("ordinal", ordinal))
				p.recordEvent(ctx, runID, jobstore.EventChunkSkipped, seg.Speaker, chunk, 0)
				continue
			}

			clip, err := p.synthesizeChunk(ctx, runID, runDir, ordinal, seg.Speaker, sanitized, profile, log)
			if err != nil {
				if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
					return nil, dropped, err
				}
				var fatal *renderError
				if errors.As(err, &fatal) {
					return nil, dropped, fatal.err
				}
				dropped++
				p.metrics.chunkDropped(ctx)
				log.Warn("chunk dropped",
					slog.Int("ordinal", ordinal),
					slog.String("speaker", seg.Speaker),
					slog.String("error", err.Error()))
				p.recordEvent(ctx, runID, jobstore.EventChunkDropped, seg.Speaker, err.Error(), 0)
				p.publishProgress(runID, "chunk_dropped", seg.Speaker, ordinal, len(clips), dropped)
				continue
			}

			clips = append(clips, clip)
			synthesizedAny = true
			p.metrics.clipSynthesized(ctx)
			p.recordEvent(ctx, runID, jobstore.EventClipSynthesized, seg.Speaker, clip.Text, clip.Duration)
			p.publishProgress(runID, "clip_synthesized", seg.Speaker, ordinal, len(clips), dropped)

			// Rate-limit courtesy between service calls.
			if err := p.sleep(ctx, p.interChunkDelay); err != nil {
				return nil, dropped, err
			}
		}

		if synthesizedAny {
			if err := p.sleep(ctx, p.speakerTurnDelay); err != nil {
				return nil, dropped, err
			}
		}
	}
	return clips, dropped, nil
}

// renderError wraps failures that must abort the whole run instead of
// dropping one chunk.
type renderError struct {
	err error
}

func (e *renderError) Error() string { return e.err.Error() }

func (p *Pipeline) synthesizeChunk(ctx context.Context, runID, runDir string, ordinal int, speaker, text string, profile voice.Profile, log *slog.Logger) (Clip, error) {
	payload, err := p.deps.Synth.Synthesize(ctx, synth.Request{Text: text, Voice: profile.Voice})
	if err != nil {
		return Clip{}, err
	}

	pcm, err := wav.DecodePayload(payload.Audio, payload.Encoded)
	if err != nil {
		return Clip{}, err
	}
	if len(pcm) == 0 {
		return Clip{}, errors.New("decoded payload was empty")
	}

	sc := p.cfg.Synthesis
	duration := wav.Duration(len(pcm), sc.SampleRate, sc.Channels, sc.BitsPerSample)

	wavBytes, err := wav.Encode(pcm, sc.SampleRate, sc.Channels, sc.BitsPerSample)
	if err != nil {
		return Clip{}, &renderError{err: fmt.Errorf("encode wav: %w", err)}
	}

	path := filepath.Join(runDir, fmt.Sprintf("clip_%04d_%s.wav", ordinal, safeName(speaker)))
	if err := os.WriteFile(path, wavBytes, 0o644); err != nil {
		return Clip{}, &renderError{err: fmt.Errorf("write clip: %w", err)}
	}

	if profile.Pitched() {
		corrected, err := p.deps.Pitch.Apply(ctx, path, duration, profile.PitchFactor)
		if err != nil {
			return Clip{}, &renderError{err: err}
		}
		if corrected != duration {
			p.recordEvent(ctx, runID, jobstore.EventPitchApplied, speaker, path, corrected)
		}
		duration = corrected
	}

	return Clip{Speaker: speaker, Text: text, Duration: duration, Path: path}, nil
}

func (p *Pipeline) finishRun(ctx context.Context, runID, status, episodePath, transcriptPath string) {
	if p.deps.Store == nil {
		return
	}
	if err := p.deps.Store.FinishRun(ctx, runID, status, episodePath, transcriptPath); err != nil {
		p.log.Warn("failed to record run finish", slog.String("error", err.Error()))
	}
}

func (p *Pipeline) recordEvent(ctx context.Context, runID, eventType, speaker, detail string, duration float64) {
	if p.deps.Store == nil {
		return
	}
	evt := jobstore.Event{RunID: runID, Type: eventType, Speaker: speaker, Detail: detail, Duration: duration}
	if err := p.deps.Store.AppendEvent(ctx, evt); err != nil {
		p.log.Warn("failed to record run event", slog.String("error", err.Error()))
	}
}

var unsafeNameChars = regexp.MustCompile(`[^가-힣a-zA-Z0-9_-]`)

func safeName(s string) string {
	return unsafeNameChars.ReplaceAllString(s, "")
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
