// Package whisperhttp provides an stt.Transcriber backed by a whisper.cpp
// server (the whisper-server binary, POST /inference).
//
// The pipeline operates on complete clips, so each call uploads the whole
// canonical WAV as one multipart request and reads back a single JSON
// result. whisper.cpp auto-detects the spoken language when no hint is
// given, which makes this provider a good language-agnostic first entry in
// the cascade order.
package whisperhttp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"

	"github.com/govorun-bot/govorun/pkg/provider/stt"
)

// Option is a functional option for configuring the Transcriber.
type Option func(*Transcriber)

// WithModel sets the model identifier forwarded to the server (e.g.
// "base", "small"). When empty, the default, the server uses whichever
// model it was started with.
func WithModel(model string) Option {
	return func(t *Transcriber) {
		t.model = model
	}
}

// WithHTTPClient replaces the underlying HTTP client. Mainly useful in tests.
func WithHTTPClient(c *http.Client) Option {
	return func(t *Transcriber) {
		if c != nil {
			t.httpClient = c
		}
	}
}

// Transcriber implements stt.Transcriber against a whisper.cpp HTTP server.
type Transcriber struct {
	serverURL  string
	model      string
	httpClient *http.Client
}

var _ stt.Transcriber = (*Transcriber)(nil)

// New creates a Transcriber that connects to the whisper.cpp server at
// serverURL (e.g. "http://localhost:8080"). serverURL must be non-empty.
func New(serverURL string, opts ...Option) (*Transcriber, error) {
	if serverURL == "" {
		return nil, errors.New("whisperhttp: serverURL must not be empty")
	}
	t := &Transcriber{
		serverURL:  serverURL,
		httpClient: &http.Client{},
	}
	for _, o := range opts {
		o(t)
	}
	return t, nil
}

// Transcribe uploads the WAV file as multipart/form-data and returns the
// text field of the JSON response.
func (t *Transcriber) Transcribe(ctx context.Context, wavPath, language string) (string, error) {
	f, err := os.Open(wavPath)
	if err != nil {
		return "", &stt.HardError{Reason: "cannot open canonical audio", Err: err}
	}
	defer f.Close()

	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)

	// Stream the upload so large clips never buffer fully in memory.
	go func() {
		err := writeForm(mw, f, filepath.Base(wavPath), language, t.model)
		if cerr := mw.Close(); err == nil {
			err = cerr
		}
		pw.CloseWithError(err)
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.serverURL+"/inference", pr)
	if err != nil {
		return "", &stt.HardError{Reason: "build request", Err: err}
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return "", &stt.TransientError{Reason: "http request failed", Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", &stt.TransientError{Reason: "read response", Err: err}
	}

	if resp.StatusCode != http.StatusOK {
		return "", stt.ClassifyStatus(resp.StatusCode, trimForLog(body))
	}

	var result struct {
		Text string `json:"text"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return "", &stt.HardError{Reason: "malformed JSON response", Err: err}
	}
	return result.Text, nil
}

// writeForm emits the multipart fields whisper-server expects: the audio
// file plus optional language and model hints.
func writeForm(mw *multipart.Writer, audio io.Reader, filename, language, model string) error {
	fw, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return fmt.Errorf("create form file: %w", err)
	}
	if _, err := io.Copy(fw, audio); err != nil {
		return fmt.Errorf("copy audio: %w", err)
	}
	if language != "" {
		if err := mw.WriteField("language", language); err != nil {
			return fmt.Errorf("write language field: %w", err)
		}
	}
	if model != "" {
		if err := mw.WriteField("model", model); err != nil {
			return fmt.Errorf("write model field: %w", err)
		}
	}
	return nil
}

// trimForLog bounds a response body for inclusion in an error message.
func trimForLog(b []byte) string {
	const max = 200
	if len(b) > max {
		b = b[:max]
	}
	return string(b)
}
