package observe

import (
	"log/slog"
	"net/http"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
)

// statusRecorder wraps [http.ResponseWriter] to capture the status code
// written by the downstream handler.
type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

// WriteHeader captures the status code and delegates to the wrapped writer.
func (r *statusRecorder) WriteHeader(code int) {
	r.statusCode = code
	r.ResponseWriter.WriteHeader(code)
}

// Middleware returns an [http.Handler] wrapper that extracts W3C trace
// context from inbound headers, starts a server span, records request
// duration to [Metrics.HTTPRequestDuration], and logs completion with status
// code and trace info. The trace ID is echoed in the X-Request-ID response
// header.
func Middleware(m *Metrics) func(http.Handler) http.Handler {
	prop := propagation.TraceContext{}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			ctx := prop.Extract(r.Context(), propagation.HeaderCarrier(r.Header))
			ctx, span := StartSpan(ctx, "HTTP "+r.Method+" "+r.URL.Path,
				trace.WithSpanKind(trace.SpanKindServer),
				trace.WithAttributes(
					semconv.HTTPRequestMethodKey.String(r.Method),
					semconv.URLPath(r.URL.Path),
				),
			)
			defer span.End()

			rid := RequestID(ctx)
			if rid != "" {
				w.Header().Set("X-Request-ID", rid)
			}
			prop.Inject(ctx, propagation.HeaderCarrier(w.Header()))

			rec := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}
			next.ServeHTTP(rec, r.WithContext(ctx))

			duration := time.Since(start)
			m.HTTPRequestDuration.Record(ctx, duration.Seconds(),
				metric.WithAttributes(
					attribute.String("method", r.Method),
					attribute.String("path", r.URL.Path),
				),
			)
			span.SetAttributes(semconv.HTTPResponseStatusCode(rec.statusCode))

			slog.LogAttrs(ctx, slog.LevelInfo, "request completed",
				slog.String("trace_id", rid),
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", rec.statusCode),
				slog.Duration("duration", duration),
			)
		})
	}
}
