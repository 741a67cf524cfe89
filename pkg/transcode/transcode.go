// Package transcode converts arbitrary audio/video containers into the
// canonical recognition format: mono, 16 kHz, 16-bit linear PCM WAV.
//
// The conversion shells out to an external codec utility (ffmpeg by
// default) under a wall-clock timeout. For video assets the same invocation
// demultiplexes the container and discards the video track. The resulting
// file is probed before it is handed downstream: an empty or implausibly
// short clip is rejected here because every recognition backend would
// reject it anyway.
package transcode

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"time"

	shellwords "github.com/mattn/go-shellwords"

	"github.com/govorun-bot/govorun/pkg/asset"
)

const (
	// DefaultTimeout bounds one codec subprocess run.
	DefaultTimeout = 60 * time.Second

	// DefaultMinDuration is the shortest canonical clip accepted.
	DefaultMinDuration = 500 * time.Millisecond

	// stderrTail is how many trailing bytes of codec stderr are kept in
	// diagnostics. ffmpeg prints its banner first; the failure is at the end.
	stderrTail = 512
)

// ErrorKind classifies a transcode failure.
type ErrorKind string

const (
	// KindCodecFailure means the codec utility exited non-zero or could not run.
	KindCodecFailure ErrorKind = "codec-failure"

	// KindTimeout means the codec utility exceeded its wall-clock budget.
	KindTimeout ErrorKind = "timeout"

	// KindTooShort means the converted clip is below the minimum plausible
	// duration for recognition.
	KindTooShort ErrorKind = "too-short"
)

// Error is the typed failure returned by [Transcoder.ToCanonical].
type Error struct {
	Kind   ErrorKind
	Detail string // trailing codec stderr or probe diagnostic
	Err    error
}

func (e *Error) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("transcode: %s: %s", e.Kind, e.Detail)
	}
	return fmt.Sprintf("transcode: %s", e.Kind)
}

func (e *Error) Unwrap() error { return e.Err }

// Option is a functional option for configuring a Transcoder.
type Option func(*Transcoder)

// WithTimeout sets the wall-clock budget for one codec run.
// Defaults to [DefaultTimeout].
func WithTimeout(d time.Duration) Option {
	return func(t *Transcoder) {
		if d > 0 {
			t.timeout = d
		}
	}
}

// WithMinDuration sets the shortest accepted canonical clip.
// Defaults to [DefaultMinDuration].
func WithMinDuration(d time.Duration) Option {
	return func(t *Transcoder) {
		if d > 0 {
			t.minDuration = d
		}
	}
}

// Transcoder runs the external codec utility. It holds only immutable
// configuration and is safe for concurrent use.
type Transcoder struct {
	argv        []string
	timeout     time.Duration
	minDuration time.Duration
}

// New constructs a Transcoder from a codec command line. command is parsed
// shell-style, so extra fixed flags may be baked in
// (e.g. "ffmpeg -hide_banner -loglevel error").
func New(command string, opts ...Option) (*Transcoder, error) {
	argv, err := shellwords.Parse(command)
	if err != nil {
		return nil, fmt.Errorf("transcode: parse command %q: %w", command, err)
	}
	if len(argv) == 0 {
		return nil, errors.New("transcode: codec command is empty")
	}
	t := &Transcoder{
		argv:        argv,
		timeout:     DefaultTimeout,
		minDuration: DefaultMinDuration,
	}
	for _, o := range opts {
		o(t)
	}
	return t, nil
}

// ToCanonical converts in to mono 16 kHz 16-bit PCM WAV and returns the
// canonical asset. The video track of a video-note asset is dropped by the
// same invocation. The output asset is acquired from scope; on any failure
// it is released again before the error is returned.
func (t *Transcoder) ToCanonical(ctx context.Context, in *asset.Asset, scope asset.Scope) (*asset.Asset, error) {
	out, err := scope.Acquire(asset.KindCanonical, "wav")
	if err != nil {
		return nil, &Error{Kind: KindCodecFailure, Err: err}
	}

	if err := t.run(ctx, in.Path, out.Path); err != nil {
		scope.Release(out)
		return nil, err
	}

	if err := probeCanonical(out.Path, t.minDuration); err != nil {
		scope.Release(out)
		return nil, err
	}

	return out, nil
}

// run executes one codec subprocess under the wall-clock timeout.
func (t *Transcoder) run(ctx context.Context, inPath, outPath string) error {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	args := make([]string, 0, len(t.argv)+11)
	args = append(args, t.argv[1:]...)
	args = append(args,
		"-i", inPath,
		"-vn",
		"-acodec", "pcm_s16le",
		"-ac", "1",
		"-ar", "16000",
		"-y", outPath,
	)

	cmd := exec.CommandContext(ctx, t.argv[0], args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	err := cmd.Run()
	if err == nil {
		return nil
	}
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return &Error{Kind: KindTimeout, Err: ctx.Err()}
	}
	// Caller cancellation kills the subprocess too; don't blame the codec
	// for its own termination stderr.
	if errors.Is(ctx.Err(), context.Canceled) {
		return fmt.Errorf("transcode: cancelled: %w", ctx.Err())
	}
	return &Error{Kind: KindCodecFailure, Detail: tail(stderr.Bytes()), Err: err}
}

// tail returns the last stderrTail bytes of b as a string.
func tail(b []byte) string {
	if len(b) > stderrTail {
		b = b[len(b)-stderrTail:]
	}
	return string(bytes.TrimSpace(b))
}
