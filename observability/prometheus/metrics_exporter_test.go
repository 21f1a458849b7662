package prometheus

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Swind/go-worksteal/core"
	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
)

func TestMetricsExporter_RecordMethods(t *testing.T) {
	reg := prom.NewRegistry()
	exporter, err := NewMetricsExporter("worksteal", reg, ExporterOptions{})
	if err != nil {
		t.Fatalf("NewMetricsExporter failed: %v", err)
	}

	exporter.RecordTaskDuration("pool-a", core.SourceStolen, 250*time.Millisecond)
	exporter.RecordTaskFailed("pool-a", "panic")
	exporter.RecordTaskStolen("pool-a", 3)
	exporter.RecordTaskAbandoned("pool-a", 5)
	exporter.RecordQueueDepth("pool-a", 7)

	if got := testutil.ToFloat64(exporter.taskFailedTotal.WithLabelValues("pool-a", "panic")); got != 1 {
		t.Fatalf("failed total = %v, want 1", got)
	}
	if got := testutil.ToFloat64(exporter.taskStolenTotal.WithLabelValues("pool-a", "3")); got != 1 {
		t.Fatalf("stolen total = %v, want 1", got)
	}
	if got := testutil.ToFloat64(exporter.taskAbandonedTotal.WithLabelValues("pool-a")); got != 5 {
		t.Fatalf("abandoned total = %v, want 5", got)
	}
	if got := testutil.ToFloat64(exporter.queueDepth.WithLabelValues("pool-a")); got != 7 {
		t.Fatalf("queue depth = %v, want 7", got)
	}

	histCount, err := histogramSampleCount(exporter.taskDurationSeconds.WithLabelValues("pool-a", "stolen"))
	if err != nil {
		t.Fatalf("histogramSampleCount failed: %v", err)
	}
	if histCount != 1 {
		t.Fatalf("duration sample count = %d, want 1", histCount)
	}
}

func TestMetricsExporter_EmptyLabelsFallBack(t *testing.T) {
	reg := prom.NewRegistry()
	exporter, err := NewMetricsExporter("", reg, ExporterOptions{})
	if err != nil {
		t.Fatalf("NewMetricsExporter failed: %v", err)
	}

	exporter.RecordTaskFailed("", "")
	exporter.RecordTaskAbandoned("", 0)

	if got := testutil.ToFloat64(exporter.taskFailedTotal.WithLabelValues("unknown", "unknown")); got != 1 {
		t.Fatalf("failed total = %v, want 1", got)
	}
	if got := testutil.CollectAndCount(exporter.taskAbandonedTotal); got != 0 {
		t.Fatalf("abandoned series = %d, want 0 for a zero count", got)
	}
}

func TestMetricsExporter_AlreadyRegisteredReuse(t *testing.T) {
	reg := prom.NewRegistry()
	first, err := NewMetricsExporter("worksteal", reg, ExporterOptions{})
	if err != nil {
		t.Fatalf("first NewMetricsExporter failed: %v", err)
	}
	second, err := NewMetricsExporter("worksteal", reg, ExporterOptions{})
	if err != nil {
		t.Fatalf("second NewMetricsExporter failed: %v", err)
	}

	first.RecordTaskFailed("pool-a", "error")
	second.RecordTaskFailed("pool-a", "error")

	got := testutil.ToFloat64(first.taskFailedTotal.WithLabelValues("pool-a", "error"))
	if got != 2 {
		t.Fatalf("shared failed counter = %v, want 2", got)
	}
}

func TestMetricsExporter_WiredIntoPool(t *testing.T) {
	// Given: a pool reporting into a fresh registry
	reg := prom.NewRegistry()
	exporter, err := NewMetricsExporter("worksteal", reg, ExporterOptions{})
	if err != nil {
		t.Fatalf("NewMetricsExporter failed: %v", err)
	}
	pool, err := core.NewPool(core.WithID("metrics-pool"), core.WithWorkers(2), core.WithMetrics(exporter))
	if err != nil {
		t.Fatalf("NewPool failed: %v", err)
	}
	defer pool.Stop()

	// When: one task succeeds and one fails
	ok := core.Submit(context.Background(), pool, func(ctx context.Context) (int, error) { return 1, nil })
	bad := core.Submit(context.Background(), pool, func(ctx context.Context) (int, error) { return 0, errors.New("boom") })
	if _, err := ok.Get(); err != nil {
		t.Fatalf("ok task failed: %v", err)
	}
	if _, err := bad.Get(); err == nil {
		t.Fatal("expected error from failing task")
	}

	// Then: the failure is counted once the worker has finished recording it
	assertEventually(t, 2*time.Second, func() bool {
		return testutil.ToFloat64(exporter.taskFailedTotal.WithLabelValues("metrics-pool", "error")) == 1
	})
}

func histogramSampleCount(observer prom.Observer) (uint64, error) {
	collector, ok := observer.(prom.Collector)
	if !ok {
		return 0, nil
	}

	metricCh := make(chan prom.Metric, 1)
	collector.Collect(metricCh)
	close(metricCh)
	for metric := range metricCh {
		msg := &dto.Metric{}
		if err := metric.Write(msg); err != nil {
			return 0, err
		}
		if msg.Histogram != nil {
			return msg.Histogram.GetSampleCount(), nil
		}
	}
	return 0, nil
}
