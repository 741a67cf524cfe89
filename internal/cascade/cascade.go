// Package cascade implements ordered fallback across speech-recognition
// backends and languages.
//
// A cascade holds a caller-configured sequence of (provider, language)
// entries, typically a language-agnostic high-quality backend first and then
// per-language backends in a fixed language priority. Entries are tried in
// order until one produces an acceptable transcript; the rest are never
// invoked. The cascade itself never retries an entry: retry-with-backoff is
// an inner policy wrapped around the single provider call (retry.go), so
// fallback ordering and retry never mix.
package cascade

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/govorun-bot/govorun/internal/observe"
	"github.com/govorun-bot/govorun/internal/resilience"
	"github.com/govorun-bot/govorun/pkg/provider/stt"
)

// DefaultMinTranscriptChars is the minimum trimmed transcript length that
// counts as an accepted recognition.
const DefaultMinTranscriptChars = 8

// Entry is one step of the fallback order.
type Entry struct {
	// Label names the backend in results and logs (e.g. "openai",
	// "whisper"). Required.
	Label string

	// Language is the lowercase ISO 639-1 hint passed to the backend.
	// Empty means backend auto-detection.
	Language string

	// Timeout bounds one Transcribe call to this backend, including all
	// retry attempts. Zero means no per-entry bound beyond the request
	// context.
	Timeout time.Duration

	// Transcriber is the backend itself. Required.
	Transcriber stt.Transcriber
}

// key identifies an entry for duplicate suppression.
func (e Entry) key() string { return e.Label + "\x00" + e.Language }

// AttemptOutcome classifies what one cascade attempt produced.
type AttemptOutcome string

const (
	OutcomeAccepted  AttemptOutcome = "accepted"
	OutcomeEmpty     AttemptOutcome = "empty"
	OutcomeTransient AttemptOutcome = "transient-failure"
	OutcomeHard      AttemptOutcome = "hard-failure"
)

// Attempt records one (provider, language) invocation and its outcome.
type Attempt struct {
	Label    string
	Language string
	Outcome  AttemptOutcome
	Reason   string
	Elapsed  time.Duration
}

// Transcript is one accepted recognition keyed by its entry label.
type Transcript struct {
	Label    string
	Language string
	Text     string
}

// Result is the ordered outcome of one cascade run. Transcripts holds the
// accepted recognitions in acceptance order (at most one per run, since the
// cascade stops at the first acceptance); an empty slice denotes total
// failure. Attempts records every invocation for diagnostics.
type Result struct {
	Transcripts []Transcript
	Attempts    []Attempt
}

// Empty reports whether no entry was accepted.
func (r Result) Empty() bool { return len(r.Transcripts) == 0 }

// Text returns the first accepted transcript text, or "".
func (r Result) Text() string {
	if r.Empty() {
		return ""
	}
	return r.Transcripts[0].Text
}

// Option is a functional option for configuring a Cascade.
type Option func(*Cascade)

// WithMinTranscriptChars sets the acceptance threshold: a transcript whose
// trimmed rune count is below n is treated as an empty attempt.
// Defaults to [DefaultMinTranscriptChars].
func WithMinTranscriptChars(n int) Option {
	return func(c *Cascade) {
		if n > 0 {
			c.minChars = n
		}
	}
}

// WithRetryPolicy sets the per-call retry policy applied to transient
// failures of a single entry. The zero policy disables retries.
func WithRetryPolicy(p RetryPolicy) Option {
	return func(c *Cascade) {
		c.retry = p
	}
}

// WithMetrics sets the metrics instance used for per-attempt provider
// recording. Defaults to [observe.DefaultMetrics].
func WithMetrics(m *observe.Metrics) Option {
	return func(c *Cascade) {
		if m != nil {
			c.metrics = m
		}
	}
}

// WithBreakers puts a circuit breaker in front of every backend, one per
// label, tuned by s (s.Name is overridden with the label). An open breaker
// makes the entry fail as transient without calling the backend, so the
// cascade falls through immediately.
func WithBreakers(s resilience.Settings) Option {
	return func(c *Cascade) {
		c.breakerCfg = &s
	}
}

// Cascade runs the ordered fallback. It holds only immutable configuration
// and is safe for concurrent use.
type Cascade struct {
	entries    []Entry
	minChars   int
	retry      RetryPolicy
	metrics    *observe.Metrics
	breakerCfg *resilience.Settings
	breakers   map[string]*resilience.Breaker
}

// New constructs a Cascade over the given order. Every entry needs a label
// and a transcriber; the order must not be empty.
func New(entries []Entry, opts ...Option) (*Cascade, error) {
	if len(entries) == 0 {
		return nil, fmt.Errorf("cascade: order must not be empty")
	}
	for i, e := range entries {
		if e.Label == "" {
			return nil, fmt.Errorf("cascade: entry %d has no label", i)
		}
		if e.Transcriber == nil {
			return nil, fmt.Errorf("cascade: entry %d (%s) has no transcriber", i, e.Label)
		}
	}
	c := &Cascade{
		entries:  entries,
		minChars: DefaultMinTranscriptChars,
	}
	for _, o := range opts {
		o(c)
	}
	if c.metrics == nil {
		c.metrics = observe.DefaultMetrics()
	}
	if c.breakerCfg != nil {
		c.breakers = make(map[string]*resilience.Breaker, len(entries))
		for _, e := range entries {
			if _, ok := c.breakers[e.Label]; ok {
				continue
			}
			cfg := *c.breakerCfg
			cfg.Name = e.Label
			c.breakers[e.Label] = resilience.New(cfg)
		}
	}
	return c, nil
}

// Recognize tries every configured entry against the canonical WAV at
// wavPath, in order, stopping at the first accepted transcript. A
// (provider, language) pair is never invoked twice within one run even if
// the configuration lists it twice. Provider failures never abort the run;
// only cancellation of ctx does.
func (c *Cascade) Recognize(ctx context.Context, wavPath string) Result {
	var res Result
	seen := make(map[string]struct{}, len(c.entries))

	for _, e := range c.entries {
		if err := ctx.Err(); err != nil {
			slog.Debug("cascade aborted by caller", "err", err)
			return res
		}
		if _, dup := seen[e.key()]; dup {
			slog.Warn("cascade order lists duplicate entry, skipping",
				"provider", e.Label, "language", e.Language)
			continue
		}
		seen[e.key()] = struct{}{}

		attempt := c.tryEntry(ctx, e, wavPath)
		res.Attempts = append(res.Attempts, attempt)

		c.metrics.RecordProviderRequest(ctx, e.Label, e.Language, string(attempt.Outcome))
		if attempt.Outcome == OutcomeTransient || attempt.Outcome == OutcomeHard {
			c.metrics.RecordProviderError(ctx, e.Label, string(attempt.Outcome))
		}

		slog.Debug("cascade attempt finished",
			"provider", e.Label,
			"language", e.Language,
			"outcome", attempt.Outcome,
			"duration", attempt.Elapsed,
		)

		if attempt.Outcome == OutcomeAccepted {
			res.Transcripts = append(res.Transcripts, Transcript{
				Label:    e.Label,
				Language: e.Language,
				Text:     attempt.Reason,
			})
			// Reason carried the accepted text internally; scrub it from
			// the attempt log so transcripts never leak into diagnostics.
			res.Attempts[len(res.Attempts)-1].Reason = ""
			return res
		}
	}
	return res
}

// tryEntry performs one entry's call under its timeout and retry policy
// and classifies the outcome. For an accepted attempt the transcript text
// travels back in Reason; Recognize moves it into the Result.
func (c *Cascade) tryEntry(ctx context.Context, e Entry, wavPath string) Attempt {
	callCtx := ctx
	if e.Timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, e.Timeout)
		defer cancel()
	}

	start := time.Now()
	var text string
	var err error
	if br := c.breakers[e.Label]; br != nil {
		err = br.Execute(func() error {
			var callErr error
			text, callErr = callWithRetry(callCtx, c.retry, e.Transcriber, wavPath, e.Language)
			return callErr
		})
	} else {
		text, err = callWithRetry(callCtx, c.retry, e.Transcriber, wavPath, e.Language)
	}
	elapsed := time.Since(start)

	a := Attempt{Label: e.Label, Language: e.Language, Elapsed: elapsed}
	switch {
	case errors.Is(err, resilience.ErrOpen):
		a.Outcome = OutcomeTransient
		a.Reason = "circuit open"
	case err == nil:
		trimmed := strings.TrimSpace(text)
		if len([]rune(trimmed)) >= c.minChars {
			a.Outcome = OutcomeAccepted
			a.Reason = trimmed
		} else {
			a.Outcome = OutcomeEmpty
		}
	case stt.IsHard(err):
		a.Outcome = OutcomeHard
		a.Reason = err.Error()
	default:
		// Transient errors and anything unclassified: recoverable by the
		// next entry.
		a.Outcome = OutcomeTransient
		a.Reason = err.Error()
	}
	return a
}
