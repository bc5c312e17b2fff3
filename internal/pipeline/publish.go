package pipeline

import (
	"encoding/json"
	"log/slog"
	"time"

	"github.com/podforge/podforge-core/internal/bus"
	"github.com/podforge/podforge-core/internal/protocol"
)

// Publisher receives render progress notifications. Publishing is fire and
// forget: a failed publish never affects the run.
type Publisher interface {
	PublishProgress(msg protocol.RenderProgress)
	PublishResult(msg protocol.RenderResult)
}

// BusPublisher emits progress messages on the NATS bus.
type BusPublisher struct {
	bus *bus.Client
	log *slog.Logger
}

func NewBusPublisher(busClient *bus.Client, log *slog.Logger) *BusPublisher {
	return &BusPublisher{bus: busClient, log: log.With(slog.String("component", "render-publisher"))}
}

func (b *BusPublisher) PublishProgress(msg protocol.RenderProgress) {
	b.publish(protocol.SubjectRenderProgress, msg)
}

func (b *BusPublisher) PublishResult(msg protocol.RenderResult) {
	b.publish(protocol.SubjectRenderDone, msg)
}

func (b *BusPublisher) publish(subject string, msg any) {
	data, err := json.Marshal(msg)
	if err != nil {
		b.log.Warn("failed to marshal render message", slog.String("error", err.Error()))
		return
	}
	if err := b.bus.Conn().Publish(subject, data); err != nil {
		b.log.Warn("failed to publish render message",
			slog.String("subject", subject),
			slog.String("error", err.Error()))
	}
}

func (p *Pipeline) publishProgress(runID, stage, speaker string, ordinal, clips, dropped int) {
	if p.deps.Progress == nil {
		return
	}
	p.deps.Progress.PublishProgress(protocol.RenderProgress{
		RunID:        runID,
		Stage:        stage,
		Speaker:      speaker,
		ChunkOrdinal: ordinal,
		Clips:        clips,
		Dropped:      dropped,
		Timestamp:    time.Now().UTC(),
	})
}

func (p *Pipeline) publishResult(runID string, result Result, runErr error) {
	if p.deps.Progress == nil {
		return
	}
	msg := protocol.RenderResult{
		RunID:           runID,
		Completed:       runErr == nil,
		EpisodePath:     result.EpisodePath,
		TranscriptPath:  result.TranscriptPath,
		Clips:           result.Clips,
		Dropped:         result.Dropped,
		DurationSeconds: result.DurationSeconds,
		Timestamp:       time.Now().UTC(),
	}
	if runErr != nil {
		msg.Error = runErr.Error()
	}
	p.deps.Progress.PublishResult(msg)
}
