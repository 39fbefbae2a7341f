package jwxt

import (
	"sync"
	"testing"
	"time"
)

func TestMetricsDisabledIsNoop(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: false})

	m.Inc(MetricLoginSuccess)
	m.Observe(MetricFetchLatency, 30*time.Millisecond)

	if m.Value(MetricLoginSuccess) != 0 {
		t.Fatal("disabled metrics must not count")
	}
	snap := m.Snapshot()
	if len(snap.Counters) != 0 || len(snap.Histograms) != 0 {
		t.Fatal("disabled metrics must snapshot empty")
	}
}

func TestMetricsCountersAndSnapshot(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: true})

	m.Inc(MetricLoginSuccess)
	m.Inc(MetricLoginSuccess)
	m.Inc(MetricFetchRetry)

	if m.Value(MetricLoginSuccess) != 2 {
		t.Fatalf("MetricLoginSuccess = %d, want 2", m.Value(MetricLoginSuccess))
	}

	snap := m.Snapshot()
	if snap.Counters[MetricLoginSuccess] != 2 {
		t.Fatalf("snapshot MetricLoginSuccess = %d, want 2", snap.Counters[MetricLoginSuccess])
	}
	if snap.Counters[MetricFetchRetry] != 1 {
		t.Fatalf("snapshot MetricFetchRetry = %d, want 1", snap.Counters[MetricFetchRetry])
	}
	if snap.Counters[MetricLogout] != 0 {
		t.Fatal("untouched counter must be zero")
	}
}

func TestMetricsLatencyHistogramBuckets(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: true, EnableLatencyHistograms: true})

	m.Observe(MetricFetchLatency, 10*time.Millisecond)
	m.Observe(MetricFetchLatency, 90*time.Millisecond)
	m.Observe(MetricFetchLatency, 3*time.Second)

	buckets := m.Snapshot().Histograms[MetricFetchLatency]
	if len(buckets) != histBucketCount {
		t.Fatalf("bucket count = %d, want %d", len(buckets), histBucketCount)
	}
	if buckets[0] != 1 {
		t.Fatalf("bucket[0] = %d, want 1", buckets[0])
	}
	if buckets[2] != 1 {
		t.Fatalf("bucket[2] = %d, want 1", buckets[2])
	}
	if buckets[histBucketCount-1] != 1 {
		t.Fatalf("overflow bucket = %d, want 1", buckets[histBucketCount-1])
	}
}

func TestMetricsLatencyDisabledWithoutFlag(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: true})

	m.Observe(MetricFetchLatency, 30*time.Millisecond)

	if len(m.Snapshot().Histograms) != 0 {
		t.Fatal("latency histogram must be off without the flag")
	}
}

func TestMetricsConcurrentIncrement(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: true})

	const workers = 8
	const perWorker = 1000

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perWorker; j++ {
				m.Inc(MetricFetchSuccess)
			}
		}()
	}
	wg.Wait()

	if got := m.Value(MetricFetchSuccess); got != workers*perWorker {
		t.Fatalf("MetricFetchSuccess = %d, want %d", got, workers*perWorker)
	}
}

func TestMetricsNilReceiverSafe(t *testing.T) {
	var m *Metrics
	m.Inc(MetricLoginSuccess)
	m.Observe(MetricFetchLatency, time.Millisecond)
	if m.Value(MetricLoginSuccess) != 0 {
		t.Fatal("nil metrics must read zero")
	}
	if m.Enabled() || m.LatencyEnabled() {
		t.Fatal("nil metrics must report disabled")
	}
}
