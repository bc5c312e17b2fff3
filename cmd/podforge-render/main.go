package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/podforge/podforge-core/internal/config"
	"github.com/podforge/podforge-core/internal/jobstore"
	"github.com/podforge/podforge-core/internal/runtime"
	"github.com/podforge/podforge-core/internal/scriptgen"
)

func main() {
	var (
		configPath string
		scriptPath string
		sourcePath string
		hostName   string
		guestName  string
	)

	flag.StringVar(&configPath, "config", "podforge.yaml", "Path to configuration file")
	flag.StringVar(&scriptPath, "script", "", "Path to a speaker-tagged script file")
	flag.StringVar(&sourcePath, "source", "", "Path to source text; a script is generated from it")
	flag.StringVar(&hostName, "host-name", "Alex", "Host display name for generated scripts")
	flag.StringVar(&guestName, "guest-name", "Sam", "Guest display name for generated scripts")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))

	if scriptPath == "" && sourcePath == "" {
		logger.Error("one of -script or -source is required")
		os.Exit(2)
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		logger.Error("failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	scriptText, err := loadScript(ctx, cfg, scriptPath, sourcePath, hostName, guestName)
	if err != nil {
		logger.Error("failed to prepare script", slog.String("error", err.Error()))
		os.Exit(1)
	}

	store, err := jobstore.Open(ctx, cfg.JobStore, logger)
	if err != nil {
		logger.Error("failed to open job store", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer store.Close()

	pipe, err := runtime.BuildPipeline(cfg, store, nil, logger)
	if err != nil {
		logger.Error("failed to build pipeline", slog.String("error", err.Error()))
		os.Exit(1)
	}

	result, err := pipe.Render(ctx, scriptText)
	if err != nil {
		logger.Error("render failed",
			slog.String("run_id", result.RunID),
			slog.String("error", err.Error()))
		os.Exit(1)
	}

	fmt.Printf("episode: %s\ntranscript: %s\nclips: %d dropped: %d audio: %.1fs\n",
		result.EpisodePath, result.TranscriptPath, result.Clips, result.Dropped, result.DurationSeconds)
}

func loadScript(ctx context.Context, cfg config.Config, scriptPath, sourcePath, hostName, guestName string) (string, error) {
	if scriptPath != "" {
		data, err := os.ReadFile(scriptPath)
		if err != nil {
			return "", fmt.Errorf("read script file: %w", err)
		}
		return string(data), nil
	}

	data, err := os.ReadFile(sourcePath)
	if err != nil {
		return "", fmt.Errorf("read source file: %w", err)
	}

	var gen scriptgen.Generator
	switch cfg.ScriptGen.Mode {
	case "ollama":
		gen = scriptgen.NewOllamaGenerator(cfg.ScriptGen.Endpoint, cfg.ScriptGen.Model)
	default:
		gen = scriptgen.NewMockGenerator()
	}

	return gen.Generate(ctx, scriptgen.Request{
		SourceText:  string(data),
		HostName:    hostName,
		GuestName:   guestName,
		MaxTokens:   cfg.ScriptGen.MaxTokens,
		Temperature: cfg.ScriptGen.Temperature,
	})
}
