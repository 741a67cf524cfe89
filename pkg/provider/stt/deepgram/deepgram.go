// Package deepgram provides an stt.Transcriber backed by the Deepgram
// pre-recorded REST API (POST /v1/listen with raw audio bytes).
package deepgram

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"

	"github.com/govorun-bot/govorun/pkg/provider/stt"
)

const (
	defaultEndpoint = "https://api.deepgram.com/v1/listen"
	defaultModel    = "nova-2"
)

// Option is a functional option for configuring the Transcriber.
type Option func(*Transcriber)

// WithModel sets the Deepgram model (e.g. "nova-2", "base").
func WithModel(model string) Option {
	return func(t *Transcriber) {
		if model != "" {
			t.model = model
		}
	}
}

// WithEndpoint overrides the API endpoint. Mainly useful in tests.
func WithEndpoint(endpoint string) Option {
	return func(t *Transcriber) {
		if endpoint != "" {
			t.endpoint = endpoint
		}
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(t *Transcriber) {
		if c != nil {
			t.httpClient = c
		}
	}
}

// Transcriber implements stt.Transcriber against the Deepgram REST API.
type Transcriber struct {
	apiKey     string
	model      string
	endpoint   string
	httpClient *http.Client
}

var _ stt.Transcriber = (*Transcriber)(nil)

// New creates a Deepgram Transcriber. apiKey must be non-empty.
func New(apiKey string, opts ...Option) (*Transcriber, error) {
	if apiKey == "" {
		return nil, errors.New("deepgram: apiKey must not be empty")
	}
	t := &Transcriber{
		apiKey:     apiKey,
		model:      defaultModel,
		endpoint:   defaultEndpoint,
		httpClient: &http.Client{},
	}
	for _, o := range opts {
		o(t)
	}
	return t, nil
}

// deepgramResponse is the subset of the pre-recorded API response we read.
type deepgramResponse struct {
	Results struct {
		Channels []struct {
			Alternatives []struct {
				Transcript string  `json:"transcript"`
				Confidence float64 `json:"confidence"`
			} `json:"alternatives"`
		} `json:"channels"`
	} `json:"results"`
}

// Transcribe streams the WAV file to /v1/listen and returns the transcript
// of the first alternative. An empty language enables Deepgram's own
// language detection.
func (t *Transcriber) Transcribe(ctx context.Context, wavPath, language string) (string, error) {
	u, err := t.buildURL(language)
	if err != nil {
		return "", &stt.HardError{Reason: "build URL", Err: err}
	}

	f, err := os.Open(wavPath)
	if err != nil {
		return "", &stt.HardError{Reason: "cannot open canonical audio", Err: err}
	}
	defer f.Close()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, f)
	if err != nil {
		return "", &stt.HardError{Reason: "build request", Err: err}
	}
	req.Header.Set("Authorization", "Token "+t.apiKey)
	req.Header.Set("Content-Type", "audio/wav")

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return "", &stt.TransientError{Reason: "http request failed", Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return "", &stt.TransientError{Reason: "read response", Err: err}
	}
	if resp.StatusCode != http.StatusOK {
		return "", stt.ClassifyStatus(resp.StatusCode, fmt.Sprintf("deepgram HTTP %d", resp.StatusCode))
	}

	var dr deepgramResponse
	if err := json.Unmarshal(body, &dr); err != nil {
		return "", &stt.HardError{Reason: "malformed JSON response", Err: err}
	}
	if len(dr.Results.Channels) == 0 || len(dr.Results.Channels[0].Alternatives) == 0 {
		return "", nil
	}
	return dr.Results.Channels[0].Alternatives[0].Transcript, nil
}

// buildURL constructs the pre-recorded endpoint URL for the given language.
func (t *Transcriber) buildURL(language string) (string, error) {
	u, err := url.Parse(t.endpoint)
	if err != nil {
		return "", err
	}
	q := u.Query()
	q.Set("model", t.model)
	q.Set("punctuate", "true")
	if language != "" {
		q.Set("language", language)
	} else {
		q.Set("detect_language", "true")
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}
