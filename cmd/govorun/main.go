// Command govorun is the main entry point for the Telegram transcription bot.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"github.com/govorun-bot/govorun/internal/cascade"
	"github.com/govorun-bot/govorun/internal/config"
	"github.com/govorun-bot/govorun/internal/health"
	"github.com/govorun-bot/govorun/internal/normalize"
	"github.com/govorun-bot/govorun/internal/observe"
	"github.com/govorun-bot/govorun/internal/pipeline"
	"github.com/govorun-bot/govorun/internal/resilience"
	"github.com/govorun-bot/govorun/internal/telegram"
	"github.com/govorun-bot/govorun/pkg/asset"
	"github.com/govorun-bot/govorun/pkg/fetch"
	"github.com/govorun-bot/govorun/pkg/provider/stt"
	"github.com/govorun-bot/govorun/pkg/provider/stt/deepgram"
	oaistt "github.com/govorun-bot/govorun/pkg/provider/stt/openai"
	"github.com/govorun-bot/govorun/pkg/provider/stt/whisperhttp"
	"github.com/govorun-bot/govorun/pkg/provider/translate"
	"github.com/govorun-bot/govorun/pkg/provider/translate/libretranslate"
	"github.com/govorun-bot/govorun/pkg/transcode"
)

// version is stamped at build time via -ldflags.
var version = "dev"

func main() {
	os.Exit(run())
}

func run() int {
	// ── CLI flags ──────────────────────────────────────────────────────────────
	configPath := flag.String("config", "config.yaml", "path to the YAML configuration file")
	flag.Parse()

	// ── Environment ───────────────────────────────────────────────────────────
	// Secrets come from the environment; a local .env is a convenience for
	// development and absent in production.
	if err := godotenv.Load(); err == nil {
		slog.Debug("loaded .env file")
	}

	// ── Load configuration ────────────────────────────────────────────────────
	cfg, err := config.Load(*configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			fmt.Fprintf(os.Stderr, "govorun: config file %q not found, copy configs/example.yaml to get started\n", *configPath)
		} else {
			fmt.Fprintf(os.Stderr, "govorun: %v\n", err)
		}
		return 1
	}

	// ── Logger ────────────────────────────────────────────────────────────────
	level := new(slog.LevelVar)
	level.Set(cfg.Server.LogLevel.Level())
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	slog.Info("govorun starting",
		"version", version,
		"config", *configPath,
		"log_level", cfg.Server.LogLevel,
	)

	// ── Config watcher ────────────────────────────────────────────────────────
	// Only the log level hot-reloads; everything else needs a restart.
	watcher, err := config.NewWatcher(*configPath, func(old, new *config.Config) {
		d := config.Diff(old, new)
		if d.LogLevelChanged {
			level.Set(d.NewLogLevel.Level())
			slog.Info("log level updated", "level", d.NewLogLevel)
		}
		if d.RestartNeeded {
			slog.Warn("configuration changed on disk; restart to apply the new settings")
		}
	})
	if err != nil {
		slog.Warn("config watcher disabled", "err", err)
	} else {
		defer watcher.Stop()
	}

	// ── Signal context ────────────────────────────────────────────────────────
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── Observability ─────────────────────────────────────────────────────────
	otelShutdown, err := observe.InitProvider(ctx, observe.ProviderConfig{
		ServiceVersion: version,
	})
	if err != nil {
		slog.Error("failed to initialise telemetry", "err", err)
		return 1
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := otelShutdown(shutdownCtx); err != nil {
			slog.Warn("telemetry shutdown error", "err", err)
		}
	}()
	metrics := observe.DefaultMetrics()

	// ── Provider registry ─────────────────────────────────────────────────────
	reg := config.NewRegistry()
	registerBuiltinProviders(reg)

	// ── Recognition cascade ───────────────────────────────────────────────────
	recognizer, err := buildCascade(cfg, reg, metrics)
	if err != nil {
		slog.Error("failed to build recognition cascade", "err", err)
		return 1
	}

	// ── Normalizer ────────────────────────────────────────────────────────────
	normalizer, err := buildNormalizer(cfg, reg)
	if err != nil {
		slog.Error("failed to build normalizer", "err", err)
		return 1
	}

	// ── Pipeline ──────────────────────────────────────────────────────────────
	transcoder, err := transcode.New(cfg.Transcoder.Command,
		transcode.WithTimeout(cfg.Pipeline.TranscodeTimeout.Std()),
		transcode.WithMinDuration(cfg.Pipeline.MinDuration.Std()),
	)
	if err != nil {
		slog.Error("failed to build transcoder", "err", err)
		return 1
	}

	fetcher := fetch.New(fetch.WithTimeout(cfg.Pipeline.FetchTimeout.Std()))

	workDir := cfg.Pipeline.WorkDir
	if workDir == "" {
		workDir = os.TempDir()
	}
	scopes := func() (asset.Scope, error) {
		return asset.NewScope(workDir, "govorun-"+uuid.NewString()[:8])
	}

	var norm pipeline.Normalizer
	if normalizer != nil {
		norm = normalizer
	}
	pipe, err := pipeline.New(scopes, fetcher, transcoder, recognizer, norm,
		pipeline.WithMetrics(metrics))
	if err != nil {
		slog.Error("failed to build pipeline", "err", err)
		return 1
	}

	// ── Telegram bot ──────────────────────────────────────────────────────────
	bot, err := telegram.New(telegram.Config{
		Token:        cfg.Telegram.Token,
		PollTimeout:  cfg.Telegram.PollTimeout.Std(),
		RestartDelay: cfg.Telegram.RestartDelay.Std(),
		Languages:    cfg.Pipeline.LanguageOrder,
	}, pipe, telegram.WithMetrics(metrics))
	if err != nil {
		slog.Error("failed to create telegram bot", "err", err)
		return 1
	}

	// ── Liveness server ───────────────────────────────────────────────────────
	addr := cfg.Server.ListenAddr
	if port := os.Getenv("PORT"); port != "" {
		addr = ":" + port
	}
	mux := http.NewServeMux()
	health.New().Register(mux)
	handler := observe.Middleware(metrics)(mux)

	// ── Run ───────────────────────────────────────────────────────────────────
	slog.Info("govorun ready", "listen_addr", addr)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return bot.Run(ctx) })
	g.Go(func() error { return health.Serve(ctx, addr, handler) })

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("run error", "err", err)
		return 1
	}
	slog.Info("goodbye")
	return 0
}

// ── Provider wiring ───────────────────────────────────────────────────────────

// registerBuiltinProviders wires all built-in provider factories into reg.
func registerBuiltinProviders(reg *config.Registry) {
	// ── Recognition ───────────────────────────────────────────────────────────

	reg.RegisterSTT("openai", func(entry config.ProviderEntry) (stt.Transcriber, error) {
		var opts []oaistt.Option
		if entry.Model != "" {
			opts = append(opts, oaistt.WithModel(entry.Model))
		}
		if entry.BaseURL != "" {
			opts = append(opts, oaistt.WithBaseURL(entry.BaseURL))
		}
		return oaistt.New(entry.APIKey, opts...)
	})

	reg.RegisterSTT("whisper", func(entry config.ProviderEntry) (stt.Transcriber, error) {
		var opts []whisperhttp.Option
		if entry.Model != "" {
			opts = append(opts, whisperhttp.WithModel(entry.Model))
		}
		return whisperhttp.New(entry.BaseURL, opts...)
	})

	reg.RegisterSTT("deepgram", func(entry config.ProviderEntry) (stt.Transcriber, error) {
		var opts []deepgram.Option
		if entry.Model != "" {
			opts = append(opts, deepgram.WithModel(entry.Model))
		}
		if entry.BaseURL != "" {
			opts = append(opts, deepgram.WithEndpoint(entry.BaseURL))
		}
		return deepgram.New(entry.APIKey, opts...)
	})

	// ── Translation ───────────────────────────────────────────────────────────

	reg.RegisterTranslator("libretranslate", func(tc config.TranslateConfig) (translate.Translator, error) {
		var opts []libretranslate.Option
		if tc.APIKey != "" {
			opts = append(opts, libretranslate.WithAPIKey(tc.APIKey))
		}
		return libretranslate.New(tc.BaseURL, opts...)
	})
}

// buildCascade instantiates every provider named in the recognition order
// and assembles the cascade.
func buildCascade(cfg *config.Config, reg *config.Registry, metrics *observe.Metrics) (*cascade.Cascade, error) {
	// One provider instance per name, shared across order entries.
	instances := make(map[string]stt.Transcriber, len(cfg.Providers.STT))

	entries := make([]cascade.Entry, 0, len(cfg.Providers.Order))
	for _, step := range cfg.Providers.Order {
		inst, ok := instances[step.Name]
		if !ok {
			var err error
			inst, err = reg.CreateSTT(step.Name, cfg.Providers.STT[step.Name])
			if err != nil {
				return nil, fmt.Errorf("create stt provider %q: %w", step.Name, err)
			}
			instances[step.Name] = inst
			slog.Info("provider created", "kind", "stt", "name", step.Name)
		}
		entries = append(entries, cascade.Entry{
			Label:       step.Name,
			Language:    step.Language,
			Timeout:     cfg.Providers.STT[step.Name].Timeout.Std(),
			Transcriber: inst,
		})
	}

	return cascade.New(entries,
		cascade.WithMetrics(metrics),
		cascade.WithMinTranscriptChars(cfg.Pipeline.MinTranscriptChars),
		cascade.WithRetryPolicy(cascade.RetryPolicy{
			MaxAttempts:     cfg.Retry.MaxAttempts,
			InitialInterval: cfg.Retry.InitialInterval.Std(),
		}),
		cascade.WithBreakers(resilience.Settings{
			MaxFailures:  cfg.Breaker.MaxFailures,
			ResetTimeout: cfg.Breaker.ResetTimeout.Std(),
			HalfOpenMax:  cfg.Breaker.HalfOpenMax,
		}),
	)
}

// buildNormalizer assembles the language normalizer, or returns nil when
// translation is disabled in the config.
func buildNormalizer(cfg *config.Config, reg *config.Registry) (*normalize.Normalizer, error) {
	if cfg.Providers.Translate.Name == "" {
		slog.Warn("translation disabled; transcripts keep their recognized language")
		return nil, nil
	}
	tr, err := reg.CreateTranslator(cfg.Providers.Translate)
	if err != nil {
		return nil, fmt.Errorf("create translator %q: %w", cfg.Providers.Translate.Name, err)
	}
	slog.Info("provider created", "kind", "translate", "name", cfg.Providers.Translate.Name)

	return normalize.New(cfg.Pipeline.TargetLanguage, cfg.Pipeline.LanguageOrder, tr)
}
