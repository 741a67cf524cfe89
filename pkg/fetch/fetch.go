// Package fetch retrieves remote audio/video blobs into local assets.
//
// The fetcher streams the response body straight into a freshly acquired
// [asset.Asset] so arbitrarily large clips never buffer in memory, enforces
// a transfer size ceiling, and classifies every failure into one of the
// [ErrorKind] values so the orchestrator can render a precise user message.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/govorun-bot/govorun/pkg/asset"
)

const (
	// DefaultTimeout bounds the whole connect+read cycle of one fetch.
	DefaultTimeout = 30 * time.Second

	// DefaultMaxBytes caps the downloaded payload. Telegram voice/video
	// notes are far below this; the cap guards against misbehaving URLs.
	DefaultMaxBytes = 64 << 20 // 64 MiB
)

// ErrorKind classifies a fetch failure.
type ErrorKind string

const (
	// KindNetwork covers DNS, dial, TLS, timeout, and body-read failures.
	KindNetwork ErrorKind = "network"

	// KindHTTPStatus means the server answered with a non-2xx status.
	KindHTTPStatus ErrorKind = "http-status"

	// KindEmptyBody means the server answered 2xx with zero payload bytes.
	KindEmptyBody ErrorKind = "empty-body"
)

// Error is the typed failure returned by [Fetcher.Fetch].
type Error struct {
	Kind   ErrorKind
	Status int // HTTP status code, set for KindHTTPStatus
	Err    error
}

func (e *Error) Error() string {
	switch e.Kind {
	case KindHTTPStatus:
		return fmt.Sprintf("fetch: remote returned HTTP %d", e.Status)
	case KindEmptyBody:
		return "fetch: remote returned an empty body"
	default:
		return fmt.Sprintf("fetch: network failure: %v", e.Err)
	}
}

func (e *Error) Unwrap() error { return e.Err }

// RemoteRef is an opaque locator for a remote audio/video blob plus the
// declared media kind. It is created once per inbound message and discarded
// when the pipeline finishes.
type RemoteRef struct {
	// URL is the direct download locator.
	URL string

	// Kind is the declared media kind of the blob.
	Kind asset.MediaKind

	// Hint is the expected container extension (e.g. "oga", "mp4").
	// May be empty when the transport does not declare one.
	Hint string
}

// Option is a functional option for configuring a Fetcher.
type Option func(*Fetcher)

// WithTimeout sets the connect/read timeout for a single fetch.
// Defaults to [DefaultTimeout].
func WithTimeout(d time.Duration) Option {
	return func(f *Fetcher) {
		if d > 0 {
			f.timeout = d
		}
	}
}

// WithMaxBytes caps the number of payload bytes accepted from the remote.
// Defaults to [DefaultMaxBytes].
func WithMaxBytes(n int64) Option {
	return func(f *Fetcher) {
		if n > 0 {
			f.maxBytes = n
		}
	}
}

// WithHTTPClient replaces the underlying HTTP client. Mainly useful in tests.
func WithHTTPClient(c *http.Client) Option {
	return func(f *Fetcher) {
		if c != nil {
			f.client = c
		}
	}
}

// Fetcher downloads remote blobs into scope-managed local assets.
// It is stateless apart from its HTTP client and safe for concurrent use.
type Fetcher struct {
	client   *http.Client
	timeout  time.Duration
	maxBytes int64
}

// New constructs a Fetcher with the given options applied over defaults.
func New(opts ...Option) *Fetcher {
	f := &Fetcher{
		client:   &http.Client{},
		timeout:  DefaultTimeout,
		maxBytes: DefaultMaxBytes,
	}
	for _, o := range opts {
		o(f)
	}
	return f
}

// Fetch streams the blob behind ref into a new asset acquired from scope.
//
// Exactly one asset is written on success. On failure the partially written
// asset is released back to the scope before the error is returned, so the
// caller never observes a half-fetched file.
func (f *Fetcher) Fetch(ctx context.Context, ref RemoteRef, scope asset.Scope) (*asset.Asset, error) {
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ref.URL, nil)
	if err != nil {
		return nil, &Error{Kind: KindNetwork, Err: err}
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, &Error{Kind: KindNetwork, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &Error{Kind: KindHTTPStatus, Status: resp.StatusCode}
	}

	a, err := scope.Acquire(ref.Kind, ref.Hint)
	if err != nil {
		return nil, &Error{Kind: KindNetwork, Err: err}
	}

	n, err := f.writeBody(a.Path, resp.Body)
	if err != nil {
		scope.Release(a)
		return nil, &Error{Kind: KindNetwork, Err: err}
	}
	if n == 0 {
		scope.Release(a)
		return nil, &Error{Kind: KindEmptyBody}
	}

	return a, nil
}

// writeBody copies body into the file at path, honouring the size cap.
// Reading one byte past the cap distinguishes an exactly-at-cap payload,
// which is accepted, from an over-cap one.
func (f *Fetcher) writeBody(path string, body io.Reader) (int64, error) {
	out, err := os.OpenFile(path, os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return 0, err
	}

	n, err := io.Copy(out, io.LimitReader(body, f.maxBytes+1))
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return n, err
	}
	if n > f.maxBytes {
		return n, errors.New("payload exceeds size cap")
	}
	return n, nil
}
