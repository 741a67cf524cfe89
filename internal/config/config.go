// Package config provides the configuration schema, loader, and provider
// registry for the govorun transcription bot.
package config

import (
	"fmt"
	"log/slog"
	"time"

	"gopkg.in/yaml.v3"
)

// LogLevel controls log verbosity for the bot.
type LogLevel string

const (
	LogDebug LogLevel = "debug"
	LogInfo  LogLevel = "info"
	LogWarn  LogLevel = "warn"
	LogError LogLevel = "error"
)

// IsValid reports whether l is a recognised log level.
func (l LogLevel) IsValid() bool {
	switch l {
	case LogDebug, LogInfo, LogWarn, LogError:
		return true
	}
	return false
}

// Level converts l to its slog equivalent. Unknown values map to info.
func (l LogLevel) Level() slog.Level {
	switch l {
	case LogDebug:
		return slog.LevelDebug
	case LogWarn:
		return slog.LevelWarn
	case LogError:
		return slog.LevelError
	}
	return slog.LevelInfo
}

// Duration wraps time.Duration so YAML values can be written in the usual
// Go syntax ("30s", "500ms").
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return fmt.Errorf("duration must be a string like \"30s\": %w", err)
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// Std returns d as a time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// Config is the root configuration structure for govorun.
// It is typically loaded from a YAML file using [Load] or [LoadFromReader].
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Telegram   TelegramConfig   `yaml:"telegram"`
	Pipeline   PipelineConfig   `yaml:"pipeline"`
	Transcoder TranscoderConfig `yaml:"transcoder"`
	Providers  ProvidersConfig  `yaml:"providers"`
	Retry      RetryConfig      `yaml:"retry"`
	Breaker    BreakerConfig    `yaml:"breaker"`
}

// ServerConfig holds settings for the liveness/metrics HTTP server.
type ServerConfig struct {
	// ListenAddr is the TCP address the server listens on (e.g., ":10000").
	// The PORT environment variable, when set, takes precedence.
	ListenAddr string `yaml:"listen_addr"`

	// LogLevel controls verbosity.
	LogLevel LogLevel `yaml:"log_level"`
}

// TelegramConfig holds settings for the Telegram transport.
type TelegramConfig struct {
	// Token is the bot API token. Usually set via ${TELEGRAM_BOT_TOKEN}.
	Token string `yaml:"token"`

	// PollTimeout is the long-polling timeout for getUpdates.
	PollTimeout Duration `yaml:"poll_timeout"`

	// RestartDelay is how long to wait before restarting the polling loop
	// after it fails.
	RestartDelay Duration `yaml:"restart_delay"`
}

// PipelineConfig holds per-request processing settings.
type PipelineConfig struct {
	// TargetLanguage is the lowercase ISO 639-1 tag every transcript is
	// normalized into (e.g., "uk").
	TargetLanguage string `yaml:"target_language"`

	// LanguageOrder lists the languages the normalizer can detect, in the
	// priority the bot advertises them. Must include TargetLanguage.
	LanguageOrder []string `yaml:"language_order"`

	// FetchTimeout bounds one media download.
	FetchTimeout Duration `yaml:"fetch_timeout"`

	// TranscodeTimeout bounds one codec run.
	TranscodeTimeout Duration `yaml:"transcode_timeout"`

	// MinDuration rejects clips shorter than this after transcoding.
	MinDuration Duration `yaml:"min_duration"`

	// MinTranscriptChars is the acceptance threshold for one recognition.
	MinTranscriptChars int `yaml:"min_transcript_chars"`

	// WorkDir is where per-request scratch files live. Empty means the
	// system temp directory.
	WorkDir string `yaml:"work_dir"`
}

// TranscoderConfig selects the external codec binary.
type TranscoderConfig struct {
	// Command is the codec command line, shell-style. The input, output and
	// canonical-format flags are appended by the transcoder; extra flags
	// written here are preserved (e.g., "ffmpeg -loglevel error").
	Command string `yaml:"command"`
}

// ProvidersConfig declares the recognition order and the provider instances
// it refers to.
type ProvidersConfig struct {
	// Order is the recognition cascade, tried top to bottom.
	Order []OrderEntry `yaml:"order"`

	// STT maps provider names (as used in Order) to their settings.
	STT map[string]ProviderEntry `yaml:"stt"`

	// Translate configures the translation backend used by the normalizer.
	Translate TranslateConfig `yaml:"translate"`
}

// OrderEntry is one step of the recognition cascade.
type OrderEntry struct {
	// Name selects the provider instance from [ProvidersConfig.STT]
	// (e.g., "openai", "whisper", "deepgram").
	Name string `yaml:"name"`

	// Language is the lowercase ISO 639-1 hint for this step. Empty means
	// provider auto-detection.
	Language string `yaml:"language"`
}

// ProviderEntry is the common configuration block shared by all recognition
// providers. The map key in [ProvidersConfig.STT] is used to look up the
// constructor in the [Registry].
type ProviderEntry struct {
	// APIKey is the authentication key for the provider's API if any.
	APIKey string `yaml:"api_key"`

	// BaseURL overrides the provider's default API endpoint.
	// Required for self-hosted providers such as whisper.cpp.
	BaseURL string `yaml:"base_url"`

	// Model selects a specific model within the provider
	// (e.g., "whisper-1", "nova-2").
	Model string `yaml:"model"`

	// Timeout bounds one transcription call, retries included.
	Timeout Duration `yaml:"timeout"`
}

// TranslateConfig configures the translation backend.
type TranslateConfig struct {
	// Name selects the registered translator implementation
	// (e.g., "libretranslate"). Empty disables translation; transcripts
	// are then returned in whatever language was recognized.
	Name string `yaml:"name"`

	// BaseURL is the translation server endpoint.
	BaseURL string `yaml:"base_url"`

	// APIKey authenticates against hosted instances. Optional.
	APIKey string `yaml:"api_key"`

	// Timeout bounds one translation call.
	Timeout Duration `yaml:"timeout"`
}

// RetryConfig bounds the per-call retry policy for transient provider
// failures.
type RetryConfig struct {
	// MaxAttempts is the total number of tries per provider call, first
	// attempt included. Values below 2 disable retrying.
	MaxAttempts uint `yaml:"max_attempts"`

	// InitialInterval seeds the exponential backoff between attempts.
	InitialInterval Duration `yaml:"initial_interval"`
}

// BreakerConfig tunes the per-provider circuit breakers in the recognition
// cascade. Zero values fall back to the resilience package defaults.
type BreakerConfig struct {
	// MaxFailures is the number of consecutive failures before a provider's
	// breaker opens.
	MaxFailures int `yaml:"max_failures"`

	// ResetTimeout is how long an open breaker waits before probing the
	// provider again.
	ResetTimeout Duration `yaml:"reset_timeout"`

	// HalfOpenMax is the number of probe calls allowed while half-open.
	HalfOpenMax int `yaml:"half_open_max"`
}
