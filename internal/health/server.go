package health

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"
)

// shutdownTimeout bounds the graceful drain when the server stops.
const shutdownTimeout = 5 * time.Second

// Serve runs the liveness server on addr until ctx is cancelled, then drains
// it gracefully. The handler is typically a [Handler]-registered mux wrapped
// in observability middleware. Returns nil on clean shutdown.
func Serve(ctx context.Context, addr string, handler http.Handler) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("liveness server listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}

	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
