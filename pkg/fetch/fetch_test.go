package fetch_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/govorun-bot/govorun/pkg/asset"
	"github.com/govorun-bot/govorun/pkg/fetch"
)

func newScope(t *testing.T) asset.Scope {
	t.Helper()
	scope, err := asset.NewScope(t.TempDir(), "fetchtest")
	if err != nil {
		t.Fatalf("NewScope: %v", err)
	}
	t.Cleanup(scope.Close)
	return scope
}

func TestFetchWritesExactlyOneAsset(t *testing.T) {
	t.Parallel()

	payload := []byte("OggS fake voice bytes")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write(payload)
	}))
	t.Cleanup(srv.Close)

	scope := newScope(t)
	f := fetch.New()

	a, err := f.Fetch(context.Background(), fetch.RemoteRef{
		URL:  srv.URL,
		Kind: asset.KindVoice,
		Hint: "oga",
	}, scope)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if a.Kind != asset.KindVoice {
		t.Errorf("asset kind = %q, want %q", a.Kind, asset.KindVoice)
	}

	got, err := os.ReadFile(a.Path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if string(got) != string(payload) {
		t.Errorf("asset bytes = %q, want %q", got, payload)
	}
}

func TestFetchClassifiesHTTPStatus(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	t.Cleanup(srv.Close)

	_, err := fetch.New().Fetch(context.Background(), fetch.RemoteRef{URL: srv.URL, Kind: asset.KindAudio}, newScope(t))

	var fe *fetch.Error
	if !errors.As(err, &fe) {
		t.Fatalf("error type = %T, want *fetch.Error", err)
	}
	if fe.Kind != fetch.KindHTTPStatus || fe.Status != http.StatusNotFound {
		t.Errorf("got kind=%q status=%d, want http-status/404", fe.Kind, fe.Status)
	}
}

func TestFetchClassifiesEmptyBody(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(srv.Close)

	dir := t.TempDir()
	scope, err := asset.NewScope(dir, "empty")
	if err != nil {
		t.Fatalf("NewScope: %v", err)
	}
	t.Cleanup(scope.Close)

	_, err = fetch.New().Fetch(context.Background(), fetch.RemoteRef{URL: srv.URL, Kind: asset.KindVoice}, scope)

	var fe *fetch.Error
	if !errors.As(err, &fe) || fe.Kind != fetch.KindEmptyBody {
		t.Fatalf("err = %v, want empty-body fetch.Error", err)
	}

	// The partially acquired asset must have been released again.
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("work dir holds %d leftover files after failed fetch", len(entries))
	}
}

func TestFetchClassifiesNetworkFailure(t *testing.T) {
	t.Parallel()

	// Reserve a port and close the listener so the dial is refused.
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := fetch.New().Fetch(context.Background(), fetch.RemoteRef{URL: url, Kind: asset.KindVoice}, newScope(t))

	var fe *fetch.Error
	if !errors.As(err, &fe) || fe.Kind != fetch.KindNetwork {
		t.Fatalf("err = %v, want network fetch.Error", err)
	}
}

func TestFetchEnforcesSizeCap(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		big := make([]byte, 4096)
		_, _ = w.Write(big)
	}))
	t.Cleanup(srv.Close)

	f := fetch.New(fetch.WithMaxBytes(1024))
	_, err := f.Fetch(context.Background(), fetch.RemoteRef{URL: srv.URL, Kind: asset.KindAudio}, newScope(t))

	var fe *fetch.Error
	if !errors.As(err, &fe) || fe.Kind != fetch.KindNetwork {
		t.Fatalf("err = %v, want network fetch.Error for oversized payload", err)
	}
}

func TestFetchAcceptsPayloadAtSizeCap(t *testing.T) {
	t.Parallel()

	payload := make([]byte, 1024)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write(payload)
	}))
	t.Cleanup(srv.Close)

	f := fetch.New(fetch.WithMaxBytes(1024))
	a, err := f.Fetch(context.Background(), fetch.RemoteRef{URL: srv.URL, Kind: asset.KindAudio}, newScope(t))
	if err != nil {
		t.Fatalf("Fetch rejected a payload exactly at the cap: %v", err)
	}

	got, err := os.ReadFile(a.Path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if len(got) != len(payload) {
		t.Errorf("asset holds %d bytes, want %d", len(got), len(payload))
	}
}

func TestFetchHonoursCancellation(t *testing.T) {
	t.Parallel()

	block := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		<-block
	}))
	t.Cleanup(func() {
		close(block)
		srv.Close()
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := fetch.New().Fetch(ctx, fetch.RemoteRef{URL: srv.URL, Kind: asset.KindVoice}, newScope(t))

	var fe *fetch.Error
	if !errors.As(err, &fe) || fe.Kind != fetch.KindNetwork {
		t.Fatalf("err = %v, want network fetch.Error on cancellation", err)
	}
}
