package runtime

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/podforge/podforge-core/internal/assemble"
	"github.com/podforge/podforge-core/internal/audiotool"
	"github.com/podforge/podforge-core/internal/bus"
	"github.com/podforge/podforge-core/internal/config"
	"github.com/podforge/podforge-core/internal/jobstore"
	"github.com/podforge/podforge-core/internal/pipeline"
	"github.com/podforge/podforge-core/internal/pitch"
	"github.com/podforge/podforge-core/internal/script"
	"github.com/podforge/podforge-core/internal/synth"
	"github.com/podforge/podforge-core/internal/voice"
)

// buildPipeline assembles the render pipeline from configuration. The same
// construction serves the daemon and the one-shot CLI.
func buildPipeline(cfg config.Config, store *jobstore.Store, busCli *bus.Client, logger *slog.Logger) (*pipeline.Pipeline, error) {
	synthesizer, err := buildSynthesizer(cfg.Synthesis)
	if err != nil {
		return nil, err
	}

	policy := synth.RetryPolicy{
		MaxAttempts: cfg.Synthesis.MaxAttempts,
		BaseDelay:   time.Duration(cfg.Synthesis.BaseDelayMS) * time.Millisecond,
	}
	if quota := time.Duration(cfg.Synthesis.QuotaDelayMS) * time.Millisecond; quota > 0 {
		policy.QuotaDelay = func(attempt int) time.Duration {
			return quota * time.Duration(attempt+1)
		}
	}
	client := synth.NewClient(synthesizer, policy, logger)

	voices, err := voice.NewRegistry(cfg.Voices)
	if err != nil {
		return nil, err
	}

	tool, err := audiotool.NewFFmpeg(cfg.Audio.FFmpegPath, cfg.Audio.Codec, cfg.Audio.Bitrate, logger)
	if err != nil {
		return nil, err
	}

	deps := pipeline.Deps{
		Synth:     client,
		Voices:    voices,
		Sanitizer: script.NewSanitizer(cfg.Pipeline.PlaceholderNames),
		Pitch:     pitch.NewProcessor(tool, cfg.Synthesis.SampleRate, logger),
		Assembler: assemble.New(tool, cfg.Pipeline.KeepIntermediateWAV, logger),
		Store:     store,
		Logger:    logger,
	}
	if busCli != nil {
		deps.Progress = pipeline.NewBusPublisher(busCli, logger)
	}

	return pipeline.New(cfg, deps)
}

// BuildPipeline is the exported construction used by cmd/podforge-render.
func BuildPipeline(cfg config.Config, store *jobstore.Store, busCli *bus.Client, logger *slog.Logger) (*pipeline.Pipeline, error) {
	return buildPipeline(cfg, store, busCli, logger)
}

func buildSynthesizer(cfg config.SynthesisConfig) (synth.Synthesizer, error) {
	switch cfg.Mode {
	case "mock":
		return synth.NewMockSynth(cfg.SampleRate, cfg.Channels, cfg.BitsPerSample), nil
	case "http":
		return synth.NewHTTPSynth(cfg.Endpoint, cfg.APIKey, cfg.Model,
			cfg.SampleRate, cfg.Channels,
			time.Duration(cfg.RequestTimeout)*time.Millisecond), nil
	case "exec":
		return synth.NewExecSynth(cfg.Command, cfg.SampleRate, cfg.Channels)
	default:
		return nil, fmt.Errorf("unknown synthesis mode %q", cfg.Mode)
	}
}
