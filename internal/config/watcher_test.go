package config_test

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/govorun-bot/govorun/internal/config"
)

const watcherConfigV1 = `
server:
  log_level: info
telegram:
  token: "123:abc"
providers:
  order: [{name: whisper, language: uk}]
  stt:
    whisper: {base_url: "http://localhost:8080"}
`

const watcherConfigV2 = `
server:
  log_level: debug
telegram:
  token: "123:abc"
providers:
  order: [{name: whisper, language: uk}]
  stt:
    whisper: {base_url: "http://localhost:8080"}
`

func writeConfig(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func TestWatcherDetectsChange(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "config.yaml")
	writeConfig(t, path, watcherConfigV1)

	var mu sync.Mutex
	var got *config.Config
	w, err := config.NewWatcher(path, func(_, new *config.Config) {
		mu.Lock()
		got = new
		mu.Unlock()
	}, config.WithInterval(10*time.Millisecond))
	if err != nil {
		t.Fatalf("NewWatcher: %v", err)
	}
	t.Cleanup(w.Stop)

	if w.Current().Server.LogLevel != config.LogInfo {
		t.Fatalf("initial log level = %q", w.Current().Server.LogLevel)
	}

	// Backdate mtime detection by rewriting with different content.
	time.Sleep(20 * time.Millisecond)
	writeConfig(t, path, watcherConfigV2)

	deadline := time.Now().Add(2 * time.Second)
	for {
		mu.Lock()
		done := got != nil
		mu.Unlock()
		if done {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("watcher never reported the change")
		}
		time.Sleep(10 * time.Millisecond)
	}

	mu.Lock()
	level := got.Server.LogLevel
	mu.Unlock()
	if level != config.LogDebug {
		t.Errorf("reloaded log level = %q, want debug", level)
	}
	if w.Current().Server.LogLevel != config.LogDebug {
		t.Errorf("Current() log level = %q, want debug", w.Current().Server.LogLevel)
	}
}

func TestWatcherKeepsOldConfigOnInvalidEdit(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "config.yaml")
	writeConfig(t, path, watcherConfigV1)

	w, err := config.NewWatcher(path, nil, config.WithInterval(10*time.Millisecond))
	if err != nil {
		t.Fatalf("NewWatcher: %v", err)
	}
	t.Cleanup(w.Stop)

	time.Sleep(20 * time.Millisecond)
	writeConfig(t, path, "telegram: [this is not a mapping")

	time.Sleep(100 * time.Millisecond)
	if w.Current().Telegram.Token != "123:abc" {
		t.Errorf("invalid edit replaced the config: %+v", w.Current())
	}
}

func TestWatcherRejectsMissingFile(t *testing.T) {
	t.Parallel()

	if _, err := config.NewWatcher(filepath.Join(t.TempDir(), "nope.yaml"), nil); err == nil {
		t.Fatal("NewWatcher accepted a missing file")
	}
}
