package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// ValidProviderNames lists known provider names per provider kind.
// Used by [Validate] to warn about unrecognised provider names.
var ValidProviderNames = map[string][]string{
	"stt":       {"openai", "whisper", "deepgram"},
	"translate": {"libretranslate"},
}

// Defaults applied by [LoadFromReader] for fields left empty.
const (
	DefaultListenAddr       = ":10000"
	DefaultPollTimeout      = 60 * time.Second
	DefaultRestartDelay     = 10 * time.Second
	DefaultFetchTimeout     = 30 * time.Second
	DefaultTranscodeTimeout = 60 * time.Second
	DefaultMinDuration      = 500 * time.Millisecond
	DefaultMinChars         = 8
	DefaultCodecCommand     = "ffmpeg"
)

// Load reads the YAML configuration file at path and returns a validated
// [Config]. Environment variable references of the form ${VAR} are expanded
// before parsing, so secrets stay out of the file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %q: %w", path, err)
	}
	cfg, err := LoadFromReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r, expands ${VAR} references,
// applies defaults, and validates the result. Useful in tests where configs
// are constructed from string literals.
func LoadFromReader(r io.Reader) (*Config, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("config: read: %w", err)
	}
	expanded := os.Expand(string(data), func(name string) string {
		return os.Getenv(name)
	})

	cfg := &Config{}
	dec := yaml.NewDecoder(strings.NewReader(expanded))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	applyDefaults(cfg)
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyDefaults fills in defaults for fields left empty.
func applyDefaults(cfg *Config) {
	if cfg.Server.ListenAddr == "" {
		cfg.Server.ListenAddr = DefaultListenAddr
	}
	if cfg.Server.LogLevel == "" {
		cfg.Server.LogLevel = LogInfo
	}
	if cfg.Telegram.PollTimeout == 0 {
		cfg.Telegram.PollTimeout = Duration(DefaultPollTimeout)
	}
	if cfg.Telegram.RestartDelay == 0 {
		cfg.Telegram.RestartDelay = Duration(DefaultRestartDelay)
	}
	if cfg.Pipeline.TargetLanguage == "" {
		cfg.Pipeline.TargetLanguage = "uk"
	}
	if len(cfg.Pipeline.LanguageOrder) == 0 {
		cfg.Pipeline.LanguageOrder = []string{"uk", "ru", "en"}
	}
	if cfg.Pipeline.FetchTimeout == 0 {
		cfg.Pipeline.FetchTimeout = Duration(DefaultFetchTimeout)
	}
	if cfg.Pipeline.TranscodeTimeout == 0 {
		cfg.Pipeline.TranscodeTimeout = Duration(DefaultTranscodeTimeout)
	}
	if cfg.Pipeline.MinDuration == 0 {
		cfg.Pipeline.MinDuration = Duration(DefaultMinDuration)
	}
	if cfg.Pipeline.MinTranscriptChars == 0 {
		cfg.Pipeline.MinTranscriptChars = DefaultMinChars
	}
	if cfg.Transcoder.Command == "" {
		cfg.Transcoder.Command = DefaultCodecCommand
	}
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	// Server
	if !cfg.Server.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Server.LogLevel))
	}

	// Telegram
	if cfg.Telegram.Token == "" {
		errs = append(errs, errors.New("telegram.token is required"))
	}

	// Pipeline
	if cfg.Pipeline.MinTranscriptChars < 0 {
		errs = append(errs, fmt.Errorf("pipeline.min_transcript_chars %d must not be negative", cfg.Pipeline.MinTranscriptChars))
	}
	if !slices.Contains(cfg.Pipeline.LanguageOrder, cfg.Pipeline.TargetLanguage) {
		errs = append(errs, fmt.Errorf("pipeline.language_order %v does not include target_language %q", cfg.Pipeline.LanguageOrder, cfg.Pipeline.TargetLanguage))
	}

	// Cascade order
	if len(cfg.Providers.Order) == 0 {
		errs = append(errs, errors.New("providers.order must list at least one entry"))
	}
	pairsSeen := make(map[OrderEntry]int, len(cfg.Providers.Order))
	for i, entry := range cfg.Providers.Order {
		prefix := fmt.Sprintf("providers.order[%d]", i)
		if entry.Name == "" {
			errs = append(errs, fmt.Errorf("%s.name is required", prefix))
			continue
		}
		if _, ok := cfg.Providers.STT[entry.Name]; !ok {
			errs = append(errs, fmt.Errorf("%s names provider %q but providers.stt has no such entry", prefix, entry.Name))
		}
		if prev, ok := pairsSeen[entry]; ok {
			slog.Warn("recognition order lists a duplicate step; it will run once",
				"provider", entry.Name, "language", entry.Language, "first", prev, "duplicate", i)
		} else {
			pairsSeen[entry] = i
		}
		if entry.Language != "" && !slices.Contains(cfg.Pipeline.LanguageOrder, entry.Language) {
			slog.Warn("recognition order uses a language outside pipeline.language_order; detection cannot confirm it",
				"provider", entry.Name, "language", entry.Language)
		}
		validateProviderName("stt", entry.Name)
	}

	// Translation
	if cfg.Providers.Translate.Name != "" {
		validateProviderName("translate", cfg.Providers.Translate.Name)
		if cfg.Providers.Translate.BaseURL == "" {
			errs = append(errs, fmt.Errorf("providers.translate.base_url is required when providers.translate.name is set"))
		}
	} else {
		slog.Warn("providers.translate.name is empty; transcripts will not be translated into the target language")
	}

	return errors.Join(errs...)
}

// validateProviderName logs a warning if name is non-empty and not found in
// the [ValidProviderNames] list for the given kind.
func validateProviderName(kind, name string) {
	if name == "" {
		return
	}
	known, ok := ValidProviderNames[kind]
	if !ok {
		return
	}
	if slices.Contains(known, name) {
		return
	}
	slog.Warn("unknown provider name, may be a typo or third-party provider",
		"kind", kind,
		"name", name,
		"known", known,
	)
}
