// Package asset manages the lifecycle of temporary on-disk media files.
//
// Every pipeline run opens a [Scope], acquires uniquely-named temporary
// assets from it, and closes it when the run ends. Closing a scope removes
// every asset that was acquired and not yet released, so a request can never
// leak files regardless of where it failed. Scopes are never shared between
// concurrent requests.
package asset

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"sync"
)

// MediaKind tags an asset with the kind of media it holds.
type MediaKind string

const (
	// KindVoice is a voice message (typically OGG/Opus).
	KindVoice MediaKind = "voice"

	// KindAudio is a generic audio file (MP3, M4A, FLAC, ...).
	KindAudio MediaKind = "audio"

	// KindVideoNote is a round video message whose audio track must be
	// extracted before recognition.
	KindVideoNote MediaKind = "video-note"

	// KindCanonical is mono 16 kHz 16-bit linear PCM WAV, the only format
	// the recognition cascade accepts.
	KindCanonical MediaKind = "canonical"
)

// Asset is a handle to bytes on local storage. It is owned by the component
// that acquired it until it is handed to the next pipeline stage or released
// back to its scope. Assets are never aliased across scopes.
type Asset struct {
	// Path is the absolute filesystem path of the asset.
	Path string

	// Kind is the media kind the asset was acquired for.
	Kind MediaKind

	// Hint is the container/codec hint the asset was acquired with,
	// expressed as a file extension without the dot (e.g. "ogg", "wav").
	Hint string
}

// Scope owns a set of temporary assets that share one lifetime.
//
// Implementations must tolerate Release being called for an asset that was
// already released, and Close being called more than once. Deletion errors
// are logged and swallowed: they must never mask the pipeline's primary
// result.
type Scope interface {
	// Acquire reserves a uniquely-named temporary path for an asset of the
	// given kind. hint is the file extension the asset will carry.
	Acquire(kind MediaKind, hint string) (*Asset, error)

	// Release deletes the asset's bytes if they are still present.
	Release(a *Asset)

	// Close releases every asset acquired from this scope that has not been
	// released yet.
	Close()
}

// dirScope is the filesystem-backed Scope implementation.
type dirScope struct {
	dir    string
	prefix string

	mu   sync.Mutex
	live map[string]*Asset // keyed by path; removed on Release
}

var _ Scope = (*dirScope)(nil)

// NewScope returns a Scope that creates assets inside dir. An empty dir
// falls back to the system temp directory. prefix is embedded in generated
// file names so stray files are attributable to a request in the logs.
func NewScope(dir, prefix string) (Scope, error) {
	if dir == "" {
		dir = os.TempDir()
	}
	if fi, err := os.Stat(dir); err != nil {
		return nil, fmt.Errorf("asset: work dir %q: %w", dir, err)
	} else if !fi.IsDir() {
		return nil, fmt.Errorf("asset: work dir %q is not a directory", dir)
	}
	if prefix == "" {
		prefix = "govorun"
	}
	return &dirScope{
		dir:    dir,
		prefix: prefix,
		live:   make(map[string]*Asset),
	}, nil
}

// Acquire creates an empty uniquely-named file and registers it with the
// scope. The file descriptor is closed immediately; callers reopen or
// overwrite the path as needed.
func (s *dirScope) Acquire(kind MediaKind, hint string) (*Asset, error) {
	pattern := s.prefix + "_*"
	if hint != "" {
		pattern += "." + hint
	}
	f, err := os.CreateTemp(s.dir, pattern)
	if err != nil {
		return nil, fmt.Errorf("asset: acquire %s: %w", kind, err)
	}
	path := f.Name()
	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("asset: acquire %s: %w", kind, err)
	}

	a := &Asset{Path: path, Kind: kind, Hint: hint}
	s.mu.Lock()
	s.live[path] = a
	s.mu.Unlock()
	return a, nil
}

// Release deletes the asset's underlying file. Releasing a nil, foreign, or
// already-released asset is a no-op. Deletion failures are logged at warn
// level and otherwise ignored.
func (s *dirScope) Release(a *Asset) {
	if a == nil {
		return
	}
	s.mu.Lock()
	_, tracked := s.live[a.Path]
	delete(s.live, a.Path)
	s.mu.Unlock()
	if !tracked {
		return
	}
	s.remove(a)
}

// Close releases all remaining assets. Safe to call multiple times.
func (s *dirScope) Close() {
	s.mu.Lock()
	remaining := make([]*Asset, 0, len(s.live))
	for _, a := range s.live {
		remaining = append(remaining, a)
	}
	s.live = make(map[string]*Asset)
	s.mu.Unlock()

	for _, a := range remaining {
		s.remove(a)
	}
}

func (s *dirScope) remove(a *Asset) {
	err := os.Remove(a.Path)
	if err == nil || errors.Is(err, fs.ErrNotExist) {
		return
	}
	slog.Warn("asset: failed to delete temporary file",
		"path", a.Path,
		"kind", a.Kind,
		"err", err,
	)
}
