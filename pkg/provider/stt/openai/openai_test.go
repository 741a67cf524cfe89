package openai_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/govorun-bot/govorun/pkg/provider/stt"
	oaistt "github.com/govorun-bot/govorun/pkg/provider/stt/openai"
)

func fixture(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "clip.wav")
	if err := os.WriteFile(path, []byte("RIFFfakewav"), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

func TestTranscribeSuccess(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("ParseMultipartForm: %v", err)
		}
		if got := r.FormValue("language"); got != "uk" {
			t.Errorf("language = %q, want uk", got)
		}
		if _, _, err := r.FormFile("file"); err != nil {
			t.Errorf("FormFile: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"text":"Доброго ранку"}`))
	}))
	t.Cleanup(srv.Close)

	tr, err := oaistt.New("sk-test", oaistt.WithBaseURL(srv.URL+"/"))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	text, err := tr.Transcribe(context.Background(), fixture(t), "uk")
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if text != "Доброго ранку" {
		t.Errorf("text = %q", text)
	}
}

func TestTranscribeRateLimitIsTransient(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"message":"rate limited","type":"rate_limit_error"}}`))
	}))
	t.Cleanup(srv.Close)

	tr, err := oaistt.New("sk-test", oaistt.WithBaseURL(srv.URL+"/"))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	_, err = tr.Transcribe(context.Background(), fixture(t), "")
	if !stt.IsTransient(err) {
		t.Fatalf("err = %v, want transient for 429", err)
	}
}

func TestTranscribeAuthFailureIsHard(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"message":"bad key","type":"invalid_request_error"}}`))
	}))
	t.Cleanup(srv.Close)

	tr, err := oaistt.New("sk-bad", oaistt.WithBaseURL(srv.URL+"/"))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	_, err = tr.Transcribe(context.Background(), fixture(t), "")
	if !stt.IsHard(err) {
		t.Fatalf("err = %v, want hard for 401", err)
	}
}

func TestNewRequiresAPIKey(t *testing.T) {
	t.Parallel()

	if _, err := oaistt.New(""); err == nil {
		t.Fatal("New accepted an empty API key")
	}
}
