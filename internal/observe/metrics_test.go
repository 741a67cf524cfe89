package observe

import (
	"context"
	"testing"
	"time"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

// newTestMetrics returns a Metrics instance backed by a ManualReader for
// programmatic metric inspection.
func newTestMetrics(t *testing.T) (*Metrics, *sdkmetric.ManualReader) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })

	m, err := NewMetrics(mp)
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}
	return m, reader
}

// collect gathers all metric data from the reader.
func collect(t *testing.T, reader *sdkmetric.ManualReader) metricdata.ResourceMetrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("Collect: %v", err)
	}
	return rm
}

// findMetric searches for a metric by name across all scope metrics.
func findMetric(rm metricdata.ResourceMetrics, name string) *metricdata.Metrics {
	for _, sm := range rm.ScopeMetrics {
		for i := range sm.Metrics {
			if sm.Metrics[i].Name == name {
				return &sm.Metrics[i]
			}
		}
	}
	return nil
}

func TestNewMetrics_CreatesWithoutError(t *testing.T) {
	m, _ := newTestMetrics(t)
	if m == nil {
		t.Fatal("NewMetrics returned nil")
	}
}

func TestStageDurationHistogram(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.RecordStage(ctx, "fetching", "ok", 120*time.Millisecond)
	m.RecordStage(ctx, "fetching", "ok", 300*time.Millisecond)
	m.RecordStage(ctx, "transcoding", "failed", time.Second)

	rm := collect(t, reader)
	met := findMetric(rm, "govorun.stage.duration")
	if met == nil {
		t.Fatal("metric not found")
	}
	hist, ok := met.Data.(metricdata.Histogram[float64])
	if !ok {
		t.Fatal("metric is not a histogram")
	}

	var total uint64
	for _, dp := range hist.DataPoints {
		total += dp.Count
	}
	if total != 3 {
		t.Errorf("sample count = %d, want 3", total)
	}
}

func TestPipelineRequestsCounter(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.RecordPipelineRun(ctx, "success")
	m.RecordPipelineRun(ctx, "success")
	m.RecordPipelineRun(ctx, "recognition-failed")

	rm := collect(t, reader)
	met := findMetric(rm, "govorun.pipeline.requests")
	if met == nil {
		t.Fatal("metric not found")
	}
	sum, ok := met.Data.(metricdata.Sum[int64])
	if !ok {
		t.Fatal("metric is not a sum")
	}

	for _, dp := range sum.DataPoints {
		for _, kv := range dp.Attributes.ToSlice() {
			if string(kv.Key) == "outcome" && kv.Value.AsString() == "success" {
				if dp.Value != 2 {
					t.Errorf("counter value = %d, want 2", dp.Value)
				}
				return
			}
		}
	}
	t.Error("data point with outcome=success not found")
}

func TestProviderRequestCounters(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.RecordProviderRequest(ctx, "whisper", "uk", "ok")
	m.RecordProviderRequest(ctx, "whisper", "uk", "ok")
	m.RecordProviderRequest(ctx, "whisper", "ru", "error")
	m.RecordProviderError(ctx, "whisper", "transient-failure")

	rm := collect(t, reader)

	met := findMetric(rm, "govorun.provider.requests")
	if met == nil {
		t.Fatal("provider.requests not found")
	}
	sum, ok := met.Data.(metricdata.Sum[int64])
	if !ok {
		t.Fatal("provider.requests is not a sum")
	}
	var total int64
	for _, dp := range sum.DataPoints {
		total += dp.Value
	}
	if total != 3 {
		t.Errorf("provider requests total = %d, want 3", total)
	}

	met = findMetric(rm, "govorun.provider.errors")
	if met == nil {
		t.Fatal("provider.errors not found")
	}
	sum, ok = met.Data.(metricdata.Sum[int64])
	if !ok {
		t.Fatal("provider.errors is not a sum")
	}
	if len(sum.DataPoints) == 0 || sum.DataPoints[0].Value != 1 {
		t.Errorf("provider errors = %+v, want one data point of 1", sum.DataPoints)
	}
}

func TestTelegramUpdatesCounter(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.RecordTelegramUpdate(ctx, "voice")
	m.RecordTelegramUpdate(ctx, "voice")
	m.RecordTelegramUpdate(ctx, "command")

	rm := collect(t, reader)
	met := findMetric(rm, "govorun.telegram.updates")
	if met == nil {
		t.Fatal("metric not found")
	}
	sum, ok := met.Data.(metricdata.Sum[int64])
	if !ok {
		t.Fatal("metric is not a sum")
	}

	for _, dp := range sum.DataPoints {
		for _, kv := range dp.Attributes.ToSlice() {
			if string(kv.Key) == "kind" && kv.Value.AsString() == "voice" {
				if dp.Value != 2 {
					t.Errorf("counter value = %d, want 2", dp.Value)
				}
				return
			}
		}
	}
	t.Error("data point with kind=voice not found")
}

func TestActiveRequestsGauge(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.ActiveRequests.Add(ctx, 1)
	m.ActiveRequests.Add(ctx, 1)
	m.ActiveRequests.Add(ctx, -1)

	rm := collect(t, reader)
	met := findMetric(rm, "govorun.active_requests")
	if met == nil {
		t.Fatal("metric not found")
	}
	sum, ok := met.Data.(metricdata.Sum[int64])
	if !ok {
		t.Fatal("metric is not a sum")
	}
	if len(sum.DataPoints) == 0 || sum.DataPoints[0].Value != 1 {
		t.Errorf("active requests = %+v, want 1", sum.DataPoints)
	}
}

func TestDefaultMetrics_ReturnsSameInstance(t *testing.T) {
	// DefaultMetrics uses the global OTel provider so we just check
	// that repeated calls return the same pointer.
	a := DefaultMetrics()
	b := DefaultMetrics()
	if a != b {
		t.Error("DefaultMetrics returned different pointers")
	}
}
