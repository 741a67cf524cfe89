// Package libretranslate provides a translate.Translator backed by a
// LibreTranslate server (POST /translate).
package libretranslate

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/govorun-bot/govorun/pkg/provider/translate"
)

// Option is a functional option for configuring the Translator.
type Option func(*Translator)

// WithAPIKey sets the API key sent with every request. Public instances
// require one; self-hosted instances usually do not.
func WithAPIKey(key string) Option {
	return func(t *Translator) {
		t.apiKey = key
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(t *Translator) {
		if c != nil {
			t.httpClient = c
		}
	}
}

// Translator implements translate.Translator against a LibreTranslate server.
type Translator struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

var _ translate.Translator = (*Translator)(nil)

// New creates a Translator for the LibreTranslate instance at baseURL
// (e.g. "http://localhost:5000"). baseURL must be non-empty.
func New(baseURL string, opts ...Option) (*Translator, error) {
	if baseURL == "" {
		return nil, errors.New("libretranslate: baseURL must not be empty")
	}
	t := &Translator{
		baseURL:    baseURL,
		httpClient: &http.Client{},
	}
	for _, o := range opts {
		o(t)
	}
	return t, nil
}

type request struct {
	Q      string `json:"q"`
	Source string `json:"source"`
	Target string `json:"target"`
	Format string `json:"format"`
	APIKey string `json:"api_key,omitempty"`
}

type response struct {
	TranslatedText string `json:"translatedText"`
}

// Translate posts text to /translate and returns the translated text.
func (t *Translator) Translate(ctx context.Context, text, source, target string) (string, error) {
	if source == "" {
		source = "auto"
	}
	payload, err := json.Marshal(request{
		Q:      text,
		Source: source,
		Target: target,
		Format: "text",
		APIKey: t.apiKey,
	})
	if err != nil {
		return "", fmt.Errorf("libretranslate: encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.baseURL+"/translate", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("libretranslate: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("libretranslate: http request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("libretranslate: read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("libretranslate: server returned HTTP %d", resp.StatusCode)
	}

	var r response
	if err := json.Unmarshal(body, &r); err != nil {
		return "", fmt.Errorf("libretranslate: parse response: %w", err)
	}
	if r.TranslatedText == "" {
		return "", errors.New("libretranslate: empty translation")
	}
	return r.TranslatedText, nil
}
