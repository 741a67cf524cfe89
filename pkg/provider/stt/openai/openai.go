// Package openai provides an stt.Transcriber backed by the OpenAI audio
// transcription API (Whisper) via the official Go SDK.
package openai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"

	oai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/govorun-bot/govorun/pkg/provider/stt"
)

// DefaultModel is the default OpenAI transcription model.
const DefaultModel = oai.AudioModelWhisper1

// Option is a functional option for configuring the Transcriber.
type Option func(*config)

type config struct {
	baseURL string
	model   string
}

// WithBaseURL overrides the default OpenAI API base URL. Useful for
// API-compatible gateways and for tests.
func WithBaseURL(url string) Option {
	return func(c *config) {
		c.baseURL = url
	}
}

// WithModel selects the transcription model. Defaults to [DefaultModel].
func WithModel(model string) Option {
	return func(c *config) {
		if model != "" {
			c.model = model
		}
	}
}

// Transcriber implements stt.Transcriber using the OpenAI API.
type Transcriber struct {
	client oai.Client
	model  string
}

var _ stt.Transcriber = (*Transcriber)(nil)

// New constructs an OpenAI Transcriber. apiKey must be non-empty.
func New(apiKey string, opts ...Option) (*Transcriber, error) {
	if apiKey == "" {
		return nil, errors.New("openai stt: apiKey must not be empty")
	}

	cfg := &config{model: string(DefaultModel)}
	for _, o := range opts {
		o(cfg)
	}

	reqOpts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		// The cascade owns retry policy; the SDK must not retry underneath it.
		option.WithMaxRetries(0),
	}
	if cfg.baseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(cfg.baseURL))
	}

	return &Transcriber{
		client: oai.NewClient(reqOpts...),
		model:  cfg.model,
	}, nil
}

// Transcribe uploads the WAV file to the transcription endpoint. The
// language hint is forwarded when set; Whisper detects the language itself
// otherwise.
func (t *Transcriber) Transcribe(ctx context.Context, wavPath, language string) (string, error) {
	f, err := os.Open(wavPath)
	if err != nil {
		return "", &stt.HardError{Reason: "cannot open canonical audio", Err: err}
	}
	defer f.Close()

	params := oai.AudioTranscriptionNewParams{
		Model: oai.AudioModel(t.model),
		File:  f,
	}
	if language != "" {
		params.Language = oai.String(language)
	}

	resp, err := t.client.Audio.Transcriptions.New(ctx, params)
	if err != nil {
		return "", classify(err)
	}
	return resp.Text, nil
}

// classify maps SDK errors onto the cascade's transient/hard taxonomy.
func classify(err error) error {
	var apierr *oai.Error
	if errors.As(err, &apierr) {
		switch apierr.StatusCode {
		case http.StatusServiceUnavailable, http.StatusTooManyRequests:
			return &stt.TransientError{Reason: fmt.Sprintf("openai returned HTTP %d", apierr.StatusCode), Err: err}
		default:
			return &stt.HardError{Reason: "openai request rejected", Status: apierr.StatusCode, Err: err}
		}
	}
	// No typed API error: the request never produced a response.
	return &stt.TransientError{Reason: "openai request failed", Err: err}
}
