package observability

import (
	"context"
	"testing"
	"time"

	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func newTestMetrics(t *testing.T) (*Metrics, *sdkmetric.ManualReader) {
	t.Helper()

	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })

	m, err := NewMetrics(provider.Meter("test"))
	if err != nil {
		t.Fatalf("failed to create metrics: %v", err)
	}
	return m, reader
}

func findMetric(t *testing.T, reader *sdkmetric.ManualReader, name string) metricdata.Metrics {
	t.Helper()

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("metric collection failed: %v", err)
	}
	for _, scope := range rm.ScopeMetrics {
		for _, metric := range scope.Metrics {
			if metric.Name == name {
				return metric
			}
		}
	}
	t.Fatalf("metric %q not found", name)
	return metricdata.Metrics{}
}

func TestMetrics_RecordCohortExecution(t *testing.T) {
	m, reader := newTestMetrics(t)

	m.RecordCohortExecution(context.Background(), "news", 250*time.Millisecond, 3)

	metric := findMetric(t, reader, "cohort_execution_duration_seconds")
	hist, ok := metric.Data.(metricdata.Histogram[float64])
	if !ok {
		t.Fatalf("expected a float64 histogram, got %T", metric.Data)
	}
	if len(hist.DataPoints) != 1 {
		t.Fatalf("expected one datapoint, got %d", len(hist.DataPoints))
	}

	dp := hist.DataPoints[0]
	if dp.Count != 1 {
		t.Errorf("expected count 1, got %d", dp.Count)
	}
	if dp.Sum < 0.24 || dp.Sum > 0.26 {
		t.Errorf("expected sum near 0.25s, got %v", dp.Sum)
	}
	if v, ok := dp.Attributes.Value(attribute.Key("source_type")); !ok || v.AsString() != "news" {
		t.Errorf("missing source_type attribute, got %v", dp.Attributes)
	}
	if v, ok := dp.Attributes.Value(attribute.Key("findings")); !ok || v.AsInt64() != 3 {
		t.Errorf("missing findings attribute, got %v", dp.Attributes)
	}
}

func TestMetrics_RecordDecision(t *testing.T) {
	m, reader := newTestMetrics(t)

	m.RecordDecision(context.Background(), "synthesize", 2)
	m.RecordDecision(context.Background(), "synthesize", 2)
	m.RecordDecision(context.Background(), "refine", 6)

	metric := findMetric(t, reader, "routing_decisions_total")
	sum, ok := metric.Data.(metricdata.Sum[int64])
	if !ok {
		t.Fatalf("expected an int64 sum, got %T", metric.Data)
	}
	if len(sum.DataPoints) != 2 {
		t.Fatalf("expected two attribute sets, got %d", len(sum.DataPoints))
	}

	var total int64
	for _, dp := range sum.DataPoints {
		total += dp.Value
	}
	if total != 3 {
		t.Errorf("expected three recorded decisions, got %d", total)
	}
}
