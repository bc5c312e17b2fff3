package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

type TelemetryConfig struct {
	LogLevel       string `yaml:"log_level"`
	OTLPEndpoint   string `yaml:"otlp_endpoint"`
	OTLPInsecure   bool   `yaml:"otlp_insecure"`
	PrometheusBind string `yaml:"prometheus_bind"`
}

type HTTPConfig struct {
	Bind string `yaml:"bind"`
	Port int    `yaml:"port"`
}

type Config struct {
	RuntimeName string          `yaml:"runtime_name"`
	Environment string          `yaml:"environment"`
	HTTP        HTTPConfig      `yaml:"http"`
	Telemetry   TelemetryConfig `yaml:"telemetry"`
	Bus         BusConfig       `yaml:"bus"`
	JobStore    JobStoreConfig  `yaml:"job_store"`
	Synthesis   SynthesisConfig `yaml:"synthesis"`
	Audio       AudioConfig     `yaml:"audio"`
	Pipeline    PipelineConfig  `yaml:"pipeline"`
	Voices      []VoiceConfig   `yaml:"voices"`
	ScriptGen   ScriptGenConfig `yaml:"script_gen"`
}

type BusConfig struct {
	Enabled        bool     `yaml:"enabled"`
	Embedded       bool     `yaml:"embedded"`
	Port           int      `yaml:"port"`
	Servers        []string `yaml:"servers"`
	Username       string   `yaml:"username"`
	Password       string   `yaml:"password"`
	Token          string   `yaml:"token"`
	TLSInsecure    bool     `yaml:"tls_insecure"`
	ConnectTimeout int      `yaml:"connect_timeout_ms"`
}

type JobStoreConfig struct {
	Path          string `yaml:"path"`
	RetentionMode string `yaml:"retention_mode"`
	RetentionDays int    `yaml:"retention_days"`
	MaxRuns       int    `yaml:"max_runs"`
	VacuumOnStart bool   `yaml:"vacuum_on_start"`
}

type SynthesisConfig struct {
	Mode           string `yaml:"mode"` // mock, http, exec
	Endpoint       string `yaml:"endpoint"`
	APIKey         string `yaml:"api_key"`
	Model          string `yaml:"model"`
	Command        string `yaml:"command"`
	SampleRate     int    `yaml:"sample_rate"`
	Channels       int    `yaml:"channels"`
	BitsPerSample  int    `yaml:"bits_per_sample"`
	MaxAttempts    int    `yaml:"max_attempts"`
	BaseDelayMS    int    `yaml:"base_delay_ms"`
	QuotaDelayMS   int    `yaml:"quota_delay_ms"`
	RequestTimeout int    `yaml:"request_timeout_ms"`
}

type AudioConfig struct {
	WorkDir    string `yaml:"work_dir"`
	OutputDir  string `yaml:"output_dir"`
	FFmpegPath string `yaml:"ffmpeg_path"`
	Codec      string `yaml:"codec"`
	Bitrate    string `yaml:"bitrate"`
}

type PipelineConfig struct {
	MaxChunkChars       int               `yaml:"max_chunk_chars"`
	InterChunkDelayMS   int               `yaml:"inter_chunk_delay_ms"`
	SpeakerTurnDelayMS  int               `yaml:"speaker_turn_delay_ms"`
	DefaultSpeaker      string            `yaml:"default_speaker"`
	PlaceholderNames    map[string]string `yaml:"placeholder_names"`
	KeepIntermediateWAV bool              `yaml:"keep_intermediate_wav"`
}

type VoiceConfig struct {
	Speaker     string   `yaml:"speaker"`
	Aliases     []string `yaml:"aliases"`
	Voice       string   `yaml:"voice"`
	PitchFactor float64  `yaml:"pitch_factor"`
	Default     bool     `yaml:"default"`
}

type ScriptGenConfig struct {
	Enabled     bool    `yaml:"enabled"`
	Mode        string  `yaml:"mode"` // mock, ollama
	Endpoint    string  `yaml:"endpoint"`
	Model       string  `yaml:"model"`
	MaxTokens   int     `yaml:"max_tokens"`
	Temperature float64 `yaml:"temperature"`
}

func Default() Config {
	return Config{
		RuntimeName: "podforge-runtime",
		Environment: "development",
		HTTP: HTTPConfig{
			Bind: "0.0.0.0",
			Port: 8080,
		},
		Telemetry: TelemetryConfig{
			LogLevel:       "info",
			OTLPEndpoint:   "",
			OTLPInsecure:   true,
			PrometheusBind: ":9091",
		},
		Bus: BusConfig{
			Enabled:        false,
			Embedded:       true,
			Port:           4222,
			Servers:        []string{"nats://localhost:4222"},
			ConnectTimeout: 2000,
		},
		JobStore: JobStoreConfig{
			Path:          "./data/podforge-runs.db",
			RetentionMode: "session",
			RetentionDays: 30,
			MaxRuns:       10000,
		},
		Synthesis: SynthesisConfig{
			Mode:           "mock",
			Model:          "default-tts",
			SampleRate:     24000,
			Channels:       1,
			BitsPerSample:  16,
			MaxAttempts:    5,
			BaseDelayMS:    1000,
			QuotaDelayMS:   10000,
			RequestTimeout: 45000,
		},
		Audio: AudioConfig{
			WorkDir:    "./data/work",
			OutputDir:  "./data/episodes",
			FFmpegPath: "ffmpeg",
			Codec:      "libmp3lame",
			Bitrate:    "192k",
		},
		Pipeline: PipelineConfig{
			MaxChunkChars:      200,
			InterChunkDelayMS:  1000,
			SpeakerTurnDelayMS: 500,
			DefaultSpeaker:     "Host",
		},
		Voices: []VoiceConfig{
			{Speaker: "Host", Aliases: []string{"host", "teacher"}, Voice: "Charon", PitchFactor: 1.0, Default: true},
			{Speaker: "Guest", Aliases: []string{"guest", "student"}, Voice: "Leda", PitchFactor: 1.15},
		},
		ScriptGen: ScriptGenConfig{
			Enabled:     false,
			Mode:        "mock",
			Endpoint:    "http://localhost:11434",
			Model:       "llama3.2:latest",
			MaxTokens:   8192,
			Temperature: 0.7,
		},
	}
}

func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				return cfg, fmt.Errorf("config file not found: %w", err)
			}
			return cfg, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	applyEnvOverrides(&cfg)
	if err := validate(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	overrideString(&cfg.RuntimeName, "PODFORGE_RUNTIME_NAME")
	overrideString(&cfg.Environment, "PODFORGE_RUNTIME_ENVIRONMENT")
	overrideString(&cfg.HTTP.Bind, "PODFORGE_HTTP_BIND")
	overrideInt(&cfg.HTTP.Port, "PODFORGE_HTTP_PORT")
	overrideString(&cfg.Telemetry.LogLevel, "PODFORGE_TELEMETRY_LOG_LEVEL")
	overrideString(&cfg.Telemetry.OTLPEndpoint, "PODFORGE_TELEMETRY_OTLP_ENDPOINT")
	overrideBool(&cfg.Telemetry.OTLPInsecure, "PODFORGE_TELEMETRY_OTLP_INSECURE")
	overrideString(&cfg.Telemetry.PrometheusBind, "PODFORGE_TELEMETRY_PROMETHEUS_BIND")
	overrideBool(&cfg.Bus.Enabled, "PODFORGE_BUS_ENABLED")
	overrideBool(&cfg.Bus.Embedded, "PODFORGE_BUS_EMBEDDED")
	overrideInt(&cfg.Bus.Port, "PODFORGE_BUS_PORT")
	overrideStringSlice(&cfg.Bus.Servers, "PODFORGE_BUS_SERVERS")
	overrideString(&cfg.Bus.Username, "PODFORGE_BUS_USERNAME")
	overrideString(&cfg.Bus.Password, "PODFORGE_BUS_PASSWORD")
	overrideString(&cfg.Bus.Token, "PODFORGE_BUS_TOKEN")
	overrideBool(&cfg.Bus.TLSInsecure, "PODFORGE_BUS_TLS_INSECURE")
	overrideInt(&cfg.Bus.ConnectTimeout, "PODFORGE_BUS_CONNECT_TIMEOUT_MS")
	overrideString(&cfg.JobStore.Path, "PODFORGE_JOB_STORE_PATH")
	overrideString(&cfg.JobStore.RetentionMode, "PODFORGE_JOB_STORE_RETENTION_MODE")
	overrideInt(&cfg.JobStore.RetentionDays, "PODFORGE_JOB_STORE_RETENTION_DAYS")
	overrideInt(&cfg.JobStore.MaxRuns, "PODFORGE_JOB_STORE_MAX_RUNS")
	overrideBool(&cfg.JobStore.VacuumOnStart, "PODFORGE_JOB_STORE_VACUUM_ON_START")
	overrideString(&cfg.Synthesis.Mode, "PODFORGE_SYNTHESIS_MODE")
	overrideString(&cfg.Synthesis.Endpoint, "PODFORGE_SYNTHESIS_ENDPOINT")
	overrideString(&cfg.Synthesis.APIKey, "PODFORGE_SYNTHESIS_API_KEY")
	overrideString(&cfg.Synthesis.Model, "PODFORGE_SYNTHESIS_MODEL")
	overrideString(&cfg.Synthesis.Command, "PODFORGE_SYNTHESIS_COMMAND")
	overrideInt(&cfg.Synthesis.SampleRate, "PODFORGE_SYNTHESIS_SAMPLE_RATE")
	overrideInt(&cfg.Synthesis.Channels, "PODFORGE_SYNTHESIS_CHANNELS")
	overrideInt(&cfg.Synthesis.BitsPerSample, "PODFORGE_SYNTHESIS_BITS_PER_SAMPLE")
	overrideInt(&cfg.Synthesis.MaxAttempts, "PODFORGE_SYNTHESIS_MAX_ATTEMPTS")
	overrideInt(&cfg.Synthesis.BaseDelayMS, "PODFORGE_SYNTHESIS_BASE_DELAY_MS")
	overrideInt(&cfg.Synthesis.QuotaDelayMS, "PODFORGE_SYNTHESIS_QUOTA_DELAY_MS")
	overrideInt(&cfg.Synthesis.RequestTimeout, "PODFORGE_SYNTHESIS_REQUEST_TIMEOUT_MS")
	overrideString(&cfg.Audio.WorkDir, "PODFORGE_AUDIO_WORK_DIR")
	overrideString(&cfg.Audio.OutputDir, "PODFORGE_AUDIO_OUTPUT_DIR")
	overrideString(&cfg.Audio.FFmpegPath, "PODFORGE_AUDIO_FFMPEG_PATH")
	overrideString(&cfg.Audio.Codec, "PODFORGE_AUDIO_CODEC")
	overrideString(&cfg.Audio.Bitrate, "PODFORGE_AUDIO_BITRATE")
	overrideInt(&cfg.Pipeline.MaxChunkChars, "PODFORGE_PIPELINE_MAX_CHUNK_CHARS")
	overrideInt(&cfg.Pipeline.InterChunkDelayMS, "PODFORGE_PIPELINE_INTER_CHUNK_DELAY_MS")
	overrideInt(&cfg.Pipeline.SpeakerTurnDelayMS, "PODFORGE_PIPELINE_SPEAKER_TURN_DELAY_MS")
	overrideString(&cfg.Pipeline.DefaultSpeaker, "PODFORGE_PIPELINE_DEFAULT_SPEAKER")
	overrideBool(&cfg.Pipeline.KeepIntermediateWAV, "PODFORGE_PIPELINE_KEEP_INTERMEDIATE_WAV")
	overrideBool(&cfg.ScriptGen.Enabled, "PODFORGE_SCRIPT_GEN_ENABLED")
	overrideString(&cfg.ScriptGen.Mode, "PODFORGE_SCRIPT_GEN_MODE")
	overrideString(&cfg.ScriptGen.Endpoint, "PODFORGE_SCRIPT_GEN_ENDPOINT")
	overrideString(&cfg.ScriptGen.Model, "PODFORGE_SCRIPT_GEN_MODEL")
	overrideInt(&cfg.ScriptGen.MaxTokens, "PODFORGE_SCRIPT_GEN_MAX_TOKENS")
	overrideFloat(&cfg.ScriptGen.Temperature, "PODFORGE_SCRIPT_GEN_TEMPERATURE")
}

func overrideString(target *string, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok && strings.TrimSpace(value) != "" {
		*target = value
	}
}

func overrideInt(target *int, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok {
		if parsed, err := strconv.Atoi(value); err == nil {
			*target = parsed
		}
	}
}

func overrideBool(target *bool, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok {
		if parsed, err := strconv.ParseBool(value); err == nil {
			*target = parsed
		}
	}
}

func overrideStringSlice(target *[]string, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok {
		parts := strings.Split(value, ",")
		var trimmed []string
		for _, p := range parts {
			if s := strings.TrimSpace(p); s != "" {
				trimmed = append(trimmed, s)
			}
		}
		if len(trimmed) > 0 {
			*target = trimmed
		}
	}
}

func overrideFloat(target *float64, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			*target = parsed
		}
	}
}

func validate(cfg Config) error {
	if cfg.RuntimeName == "" {
		return errors.New("runtime_name must not be empty")
	}
	if cfg.HTTP.Port <= 0 || cfg.HTTP.Port > 65535 {
		return errors.New("http.port must be between 1 and 65535")
	}
	if cfg.Bus.Enabled {
		if cfg.Bus.Embedded {
			if cfg.Bus.Port <= 0 || cfg.Bus.Port > 65535 {
				return errors.New("bus.port must be between 1 and 65535 when embedded mode is enabled")
			}
		} else if len(cfg.Bus.Servers) == 0 {
			return errors.New("bus.servers must not be empty when embedded mode is disabled")
		}
	}
	if cfg.JobStore.Path == "" {
		return errors.New("job_store.path must not be empty")
	}
	switch cfg.JobStore.RetentionMode {
	case "ephemeral", "session", "persistent":
		// ok
	default:
		return errors.New("job_store.retention_mode must be one of ephemeral|session|persistent")
	}
	if cfg.JobStore.RetentionDays < 0 {
		return errors.New("job_store.retention_days must be >= 0")
	}
	if cfg.Telemetry.PrometheusBind == "" {
		return errors.New("telemetry.prometheus_bind must not be empty")
	}
	switch cfg.Synthesis.Mode {
	case "mock", "http", "exec":
	default:
		return errors.New("synthesis.mode must be one of mock|http|exec")
	}
	if cfg.Synthesis.Mode == "http" && cfg.Synthesis.Endpoint == "" {
		return errors.New("synthesis.endpoint must be set when mode=http")
	}
	if cfg.Synthesis.Mode == "exec" && cfg.Synthesis.Command == "" {
		return errors.New("synthesis.command must be set when mode=exec")
	}
	if cfg.Synthesis.SampleRate <= 0 {
		return errors.New("synthesis.sample_rate must be positive")
	}
	if cfg.Synthesis.Channels <= 0 {
		return errors.New("synthesis.channels must be positive")
	}
	if cfg.Synthesis.BitsPerSample != 8 && cfg.Synthesis.BitsPerSample != 16 && cfg.Synthesis.BitsPerSample != 32 {
		return errors.New("synthesis.bits_per_sample must be one of 8|16|32")
	}
	if cfg.Synthesis.MaxAttempts <= 0 {
		return errors.New("synthesis.max_attempts must be >= 1")
	}
	if cfg.Synthesis.BaseDelayMS < 0 {
		return errors.New("synthesis.base_delay_ms must be >= 0")
	}
	if cfg.Audio.WorkDir == "" {
		return errors.New("audio.work_dir must not be empty")
	}
	if cfg.Audio.OutputDir == "" {
		return errors.New("audio.output_dir must not be empty")
	}
	if cfg.Audio.FFmpegPath == "" {
		return errors.New("audio.ffmpeg_path must not be empty")
	}
	if cfg.Pipeline.MaxChunkChars <= 0 {
		return errors.New("pipeline.max_chunk_chars must be >= 1")
	}
	if cfg.Pipeline.DefaultSpeaker == "" {
		return errors.New("pipeline.default_speaker must not be empty")
	}
	defaults := 0
	for _, v := range cfg.Voices {
		if v.Speaker == "" {
			return errors.New("voices[].speaker must not be empty")
		}
		if v.Voice == "" {
			return errors.New("voices[].voice must not be empty")
		}
		if v.PitchFactor < 0 {
			return errors.New("voices[].pitch_factor must be >= 0")
		}
		if v.Default {
			defaults++
		}
	}
	if len(cfg.Voices) > 0 && defaults == 0 {
		return errors.New("exactly one voices[] entry must be marked default")
	}
	if defaults > 1 {
		return errors.New("only one voices[] entry may be marked default")
	}
	if cfg.ScriptGen.Enabled {
		switch cfg.ScriptGen.Mode {
		case "mock", "ollama":
		default:
			return errors.New("script_gen.mode must be one of mock|ollama")
		}
		if cfg.ScriptGen.Mode == "ollama" && cfg.ScriptGen.Endpoint == "" {
			return errors.New("script_gen.endpoint must be set when mode=ollama")
		}
		if cfg.ScriptGen.MaxTokens < 0 {
			return errors.New("script_gen.max_tokens must be >= 0")
		}
	}
	return nil
}
