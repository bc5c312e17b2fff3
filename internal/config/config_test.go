package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultsValid(t *testing.T) {
	cfg := Default()
	if err := validate(cfg); err != nil {
		t.Fatalf("default config must validate: %v", err)
	}
	if cfg.Synthesis.SampleRate != 24000 {
		t.Fatalf("expected default sample rate 24000, got %d", cfg.Synthesis.SampleRate)
	}
	if cfg.Synthesis.MaxAttempts != 5 {
		t.Fatalf("expected default max attempts 5, got %d", cfg.Synthesis.MaxAttempts)
	}
	if cfg.Pipeline.MaxChunkChars != 200 {
		t.Fatalf("expected default chunk size 200, got %d", cfg.Pipeline.MaxChunkChars)
	}
	if cfg.Audio.Codec != "libmp3lame" || cfg.Audio.Bitrate != "192k" {
		t.Fatalf("unexpected default audio encoding: %s/%s", cfg.Audio.Codec, cfg.Audio.Bitrate)
	}
}

func TestLoadMissingFileErrors(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error for missing config file")
	}
}

func TestLoadEmptyPathUsesDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load with empty path: %v", err)
	}
	if cfg.RuntimeName != "podforge-runtime" {
		t.Fatalf("expected default runtime name, got %q", cfg.RuntimeName)
	}
}

func TestLoadYAMLOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "podforge.yaml")
	content := `
runtime_name: studio
http:
  port: 9090
synthesis:
  mode: http
  endpoint: http://tts.internal:8000
pipeline:
  max_chunk_chars: 150
voices:
  - speaker: Narrator
    voice: Kore
    default: true
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.RuntimeName != "studio" {
		t.Fatalf("runtime_name not overridden: %q", cfg.RuntimeName)
	}
	if cfg.HTTP.Port != 9090 {
		t.Fatalf("http.port not overridden: %d", cfg.HTTP.Port)
	}
	if cfg.Synthesis.Mode != "http" || cfg.Synthesis.Endpoint != "http://tts.internal:8000" {
		t.Fatalf("synthesis not overridden: %+v", cfg.Synthesis)
	}
	if cfg.Pipeline.MaxChunkChars != 150 {
		t.Fatalf("pipeline.max_chunk_chars not overridden: %d", cfg.Pipeline.MaxChunkChars)
	}
	// Untouched sections keep their defaults.
	if cfg.Audio.FFmpegPath != "ffmpeg" {
		t.Fatalf("audio defaults lost: %q", cfg.Audio.FFmpegPath)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("PODFORGE_RUNTIME_NAME", "env-runtime")
	t.Setenv("PODFORGE_HTTP_PORT", "7070")
	t.Setenv("PODFORGE_SYNTHESIS_MAX_ATTEMPTS", "3")
	t.Setenv("PODFORGE_BUS_ENABLED", "true")
	t.Setenv("PODFORGE_BUS_SERVERS", "nats://a:4222, nats://b:4222")
	t.Setenv("PODFORGE_SCRIPT_GEN_TEMPERATURE", "0.2")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.RuntimeName != "env-runtime" {
		t.Fatalf("runtime name override ignored: %q", cfg.RuntimeName)
	}
	if cfg.HTTP.Port != 7070 {
		t.Fatalf("port override ignored: %d", cfg.HTTP.Port)
	}
	if cfg.Synthesis.MaxAttempts != 3 {
		t.Fatalf("max attempts override ignored: %d", cfg.Synthesis.MaxAttempts)
	}
	if !cfg.Bus.Enabled {
		t.Fatal("bus enable override ignored")
	}
	if len(cfg.Bus.Servers) != 2 || cfg.Bus.Servers[1] != "nats://b:4222" {
		t.Fatalf("server list override ignored: %v", cfg.Bus.Servers)
	}
	if cfg.ScriptGen.Temperature != 0.2 {
		t.Fatalf("temperature override ignored: %f", cfg.ScriptGen.Temperature)
	}
}

func TestEnvOverrideInvalidValuesIgnored(t *testing.T) {
	t.Setenv("PODFORGE_HTTP_PORT", "not-a-number")
	t.Setenv("PODFORGE_BUS_ENABLED", "maybe")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.HTTP.Port != 8080 {
		t.Fatalf("invalid int override must keep default, got %d", cfg.HTTP.Port)
	}
	if cfg.Bus.Enabled {
		t.Fatal("invalid bool override must keep default")
	}
}

func TestValidateRejections(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty runtime name", func(c *Config) { c.RuntimeName = "" }},
		{"bad http port", func(c *Config) { c.HTTP.Port = 70000 }},
		{"bad retention mode", func(c *Config) { c.JobStore.RetentionMode = "forever" }},
		{"bad synthesis mode", func(c *Config) { c.Synthesis.Mode = "magic" }},
		{"http mode without endpoint", func(c *Config) { c.Synthesis.Mode = "http" }},
		{"exec mode without command", func(c *Config) { c.Synthesis.Mode = "exec" }},
		{"bad bit depth", func(c *Config) { c.Synthesis.BitsPerSample = 12 }},
		{"zero chunk size", func(c *Config) { c.Pipeline.MaxChunkChars = 0 }},
		{"no default voice", func(c *Config) {
			for i := range c.Voices {
				c.Voices[i].Default = false
			}
		}},
		{"two default voices", func(c *Config) {
			for i := range c.Voices {
				c.Voices[i].Default = true
			}
		}},
		{"bus enabled without servers", func(c *Config) {
			c.Bus.Enabled = true
			c.Bus.Embedded = false
			c.Bus.Servers = nil
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(&cfg)
			if err := validate(cfg); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}
