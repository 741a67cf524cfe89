package asset_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/govorun-bot/govorun/pkg/asset"
)

func TestAcquireCreatesUniqueFiles(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	scope, err := asset.NewScope(dir, "req1")
	if err != nil {
		t.Fatalf("NewScope: %v", err)
	}
	t.Cleanup(scope.Close)

	a, err := scope.Acquire(asset.KindVoice, "ogg")
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	b, err := scope.Acquire(asset.KindVoice, "ogg")
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}

	if a.Path == b.Path {
		t.Errorf("two acquires returned the same path %q", a.Path)
	}
	for _, got := range []*asset.Asset{a, b} {
		if _, err := os.Stat(got.Path); err != nil {
			t.Errorf("acquired asset missing on disk: %v", err)
		}
		if !strings.HasSuffix(got.Path, ".ogg") {
			t.Errorf("path %q does not carry hint extension", got.Path)
		}
		if filepath.Dir(got.Path) != dir {
			t.Errorf("asset created outside work dir: %q", got.Path)
		}
	}
}

func TestReleaseDeletesBytes(t *testing.T) {
	t.Parallel()

	scope, err := asset.NewScope(t.TempDir(), "req2")
	if err != nil {
		t.Fatalf("NewScope: %v", err)
	}
	t.Cleanup(scope.Close)

	a, err := scope.Acquire(asset.KindAudio, "mp3")
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	if err := os.WriteFile(a.Path, []byte("bytes"), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	scope.Release(a)
	if _, err := os.Stat(a.Path); !os.IsNotExist(err) {
		t.Errorf("asset still present after Release: %v", err)
	}

	// Double release and nil release must be no-ops.
	scope.Release(a)
	scope.Release(nil)
}

func TestCloseReleasesEverything(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	scope, err := asset.NewScope(dir, "req3")
	if err != nil {
		t.Fatalf("NewScope: %v", err)
	}

	var paths []string
	for _, kind := range []asset.MediaKind{asset.KindVoice, asset.KindVideoNote, asset.KindCanonical} {
		a, err := scope.Acquire(kind, "bin")
		if err != nil {
			t.Fatalf("Acquire %s: %v", kind, err)
		}
		paths = append(paths, a.Path)
	}

	scope.Close()
	scope.Close() // second close must be safe

	for _, p := range paths {
		if _, err := os.Stat(p); !os.IsNotExist(err) {
			t.Errorf("asset %q survived Close", p)
		}
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("work dir not empty after Close: %d entries", len(entries))
	}
}

func TestReleaseToleratesMissingFile(t *testing.T) {
	t.Parallel()

	scope, err := asset.NewScope(t.TempDir(), "req4")
	if err != nil {
		t.Fatalf("NewScope: %v", err)
	}
	t.Cleanup(scope.Close)

	a, err := scope.Acquire(asset.KindVoice, "ogg")
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	// Simulate an external deletion; Release must stay silent.
	if err := os.Remove(a.Path); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	scope.Release(a)
}

func TestNewScopeRejectsBadDir(t *testing.T) {
	t.Parallel()

	if _, err := asset.NewScope(filepath.Join(t.TempDir(), "missing"), "x"); err == nil {
		t.Fatal("NewScope accepted a non-existent directory")
	}

	file := filepath.Join(t.TempDir(), "plain")
	if err := os.WriteFile(file, nil, 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if _, err := asset.NewScope(file, "x"); err == nil {
		t.Fatal("NewScope accepted a plain file as work dir")
	}
}
