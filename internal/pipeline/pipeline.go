// Package pipeline orchestrates one transcription request end to end:
// fetch the remote media, transcode it to canonical audio, run the
// recognition cascade, and normalize the accepted transcript.
//
// The orchestrator is a linear state machine. Each stage runs under the
// request context, logs its duration and outcome kind, and never logs
// transcript text. Every scratch file acquired during a run is released when
// the run leaves scope, on success and on every failure path alike.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/govorun-bot/govorun/internal/cascade"
	"github.com/govorun-bot/govorun/internal/normalize"
	"github.com/govorun-bot/govorun/internal/observe"
	"github.com/govorun-bot/govorun/pkg/asset"
	"github.com/govorun-bot/govorun/pkg/fetch"
)

// Stage identifies one step of the pipeline state machine.
type Stage string

const (
	StageFetching    Stage = "fetching"
	StageTranscoding Stage = "transcoding"
	StageRecognizing Stage = "recognizing"
	StageNormalizing Stage = "normalizing"
)

// Status classifies how a run ended.
type Status string

const (
	// StatusSuccess means an accepted transcript was produced.
	StatusSuccess Status = "success"

	// StatusRecognitionFailed means fetch and transcode succeeded but no
	// recognition entry accepted the audio.
	StatusRecognitionFailed Status = "recognition-failed"

	// StatusStageFailed means a stage before recognition failed outright.
	StatusStageFailed Status = "stage-failed"
)

// Request describes one piece of remote media to transcribe.
type Request struct {
	// URL is where the media can be downloaded from.
	URL string

	// Kind is the media kind as reported by the transport.
	Kind asset.MediaKind

	// Hint is the filename extension hint for the scratch file (e.g. "oga").
	Hint string

	// Notify, when non-nil, is called as the run enters each stage. Used by
	// the transport to edit progress messages. Must be fast; it runs on the
	// request goroutine.
	Notify func(Stage)
}

// Outcome is the final result of one run.
type Outcome struct {
	Status Status

	// Transcript is the normalized transcript text. Set only on success.
	Transcript string

	// Provider labels the recognition entry that produced the transcript.
	Provider string

	// Detected is the detected source language tag, when known.
	Detected string

	// Translated reports whether the transcript was translated into the
	// target language.
	Translated bool

	// Stage is the stage that failed. Set only for [StatusStageFailed].
	Stage Stage

	// Err is the stage failure. Set only for [StatusStageFailed].
	Err error
}

// Fetcher downloads remote media into a scratch scope.
type Fetcher interface {
	Fetch(ctx context.Context, ref fetch.RemoteRef, scope asset.Scope) (*asset.Asset, error)
}

// Transcoder converts fetched media into canonical audio.
type Transcoder interface {
	ToCanonical(ctx context.Context, in *asset.Asset, scope asset.Scope) (*asset.Asset, error)
}

// Recognizer runs the recognition cascade over canonical audio.
type Recognizer interface {
	Recognize(ctx context.Context, wavPath string) cascade.Result
}

// Normalizer post-processes an accepted transcript.
type Normalizer interface {
	Normalize(ctx context.Context, text string) normalize.Result
}

// ScopeFactory creates one scratch scope per run.
type ScopeFactory func() (asset.Scope, error)

// Pipeline wires the stages together. It holds only immutable collaborators
// and is safe for concurrent use; every run carries its own state.
type Pipeline struct {
	scopes     ScopeFactory
	fetcher    Fetcher
	transcoder Transcoder
	recognizer Recognizer
	normalizer Normalizer
	metrics    *observe.Metrics
}

// Option is a functional option for configuring a Pipeline.
type Option func(*Pipeline)

// WithMetrics sets the metrics instance used for stage and run recording.
// Defaults to [observe.DefaultMetrics].
func WithMetrics(m *observe.Metrics) Option {
	return func(p *Pipeline) {
		if m != nil {
			p.metrics = m
		}
	}
}

// New constructs a Pipeline. All collaborators are required except the
// normalizer; a nil normalizer passes transcripts through untouched.
func New(scopes ScopeFactory, f Fetcher, t Transcoder, r Recognizer, n Normalizer, opts ...Option) (*Pipeline, error) {
	if scopes == nil || f == nil || t == nil || r == nil {
		return nil, fmt.Errorf("pipeline: scope factory, fetcher, transcoder and recognizer are required")
	}
	p := &Pipeline{
		scopes:     scopes,
		fetcher:    f,
		transcoder: t,
		recognizer: r,
		normalizer: n,
	}
	for _, o := range opts {
		o(p)
	}
	if p.metrics == nil {
		p.metrics = observe.DefaultMetrics()
	}
	return p, nil
}

// Run processes one request to completion. It never panics: a panicking
// stage is reported as a stage failure after the scratch scope is cleaned
// up. Run is idempotent per request; re-running a failed request starts from
// a fresh scope.
func (p *Pipeline) Run(ctx context.Context, req Request) (out Outcome) {
	ctx, span := observe.StartSpan(ctx, "pipeline.run",
		trace.WithSpanKind(trace.SpanKindInternal))
	defer span.End()

	log := observe.Logger(ctx)
	start := time.Now()

	p.metrics.ActiveRequests.Add(ctx, 1)
	defer p.metrics.ActiveRequests.Add(ctx, -1)
	defer func() {
		p.metrics.RecordPipelineRun(ctx, string(out.Status))
		log.Info("pipeline run finished",
			"status", out.Status,
			"media_kind", req.Kind,
			"duration", time.Since(start),
		)
	}()
	defer func() {
		if r := recover(); r != nil {
			log.Error("pipeline stage panicked", "panic", fmt.Sprint(r))
			out = Outcome{
				Status: StatusStageFailed,
				Stage:  out.Stage,
				Err:    fmt.Errorf("pipeline: stage %s panicked: %v", out.Stage, r),
			}
		}
	}()

	scope, err := p.scopes()
	if err != nil {
		return Outcome{Status: StatusStageFailed, Stage: StageFetching,
			Err: fmt.Errorf("pipeline: acquire scratch scope: %w", err)}
	}
	defer scope.Close()

	// Fetching.
	out.Stage = StageFetching
	notify(req, StageFetching)
	fetchStart := time.Now()
	media, err := p.fetcher.Fetch(ctx, fetch.RemoteRef{URL: req.URL, Kind: req.Kind, Hint: req.Hint}, scope)
	p.recordStage(ctx, StageFetching, err, fetchStart)
	if err != nil {
		return Outcome{Status: StatusStageFailed, Stage: StageFetching, Err: err}
	}

	// Transcoding.
	out.Stage = StageTranscoding
	notify(req, StageTranscoding)
	codecStart := time.Now()
	canonical, err := p.transcoder.ToCanonical(ctx, media, scope)
	p.recordStage(ctx, StageTranscoding, err, codecStart)
	scope.Release(media)
	if err != nil {
		return Outcome{Status: StatusStageFailed, Stage: StageTranscoding, Err: err}
	}

	// Recognizing.
	out.Stage = StageRecognizing
	notify(req, StageRecognizing)
	recStart := time.Now()
	res := p.recognizer.Recognize(ctx, canonical.Path)
	scope.Release(canonical)
	if res.Empty() {
		p.metrics.RecordStage(ctx, string(StageRecognizing), "empty", time.Since(recStart))
		log.Warn("recognition produced no transcript", "attempts", len(res.Attempts))
		return Outcome{Status: StatusRecognitionFailed}
	}
	p.metrics.RecordStage(ctx, string(StageRecognizing), "ok", time.Since(recStart))
	accepted := res.Transcripts[0]

	// Normalizing.
	out.Stage = StageNormalizing
	notify(req, StageNormalizing)
	text := accepted.Text
	var detected string
	var translated bool
	if p.normalizer != nil {
		normStart := time.Now()
		norm := p.normalizer.Normalize(ctx, text)
		p.recordStage(ctx, StageNormalizing, nil, normStart)
		text = norm.Text
		detected = norm.Detected
		translated = norm.Translated
	}

	return Outcome{
		Status:     StatusSuccess,
		Transcript: text,
		Provider:   accepted.Label,
		Detected:   detected,
		Translated: translated,
	}
}

// recordStage records one stage's duration with an ok/failed outcome and
// logs it.
func (p *Pipeline) recordStage(ctx context.Context, stage Stage, err error, start time.Time) {
	outcome := "ok"
	if err != nil {
		outcome = "failed"
	}
	elapsed := time.Since(start)
	p.metrics.RecordStage(ctx, string(stage), outcome, elapsed)
	observe.Logger(ctx).Debug("pipeline stage finished",
		"stage", stage,
		"outcome", outcome,
		"duration", elapsed,
	)
}

func notify(req Request, s Stage) {
	if req.Notify != nil {
		req.Notify(s)
	}
}
