package jwxt

import (
	"sync/atomic"
	"time"
)

// MetricID identifies one internal counter or histogram.
type MetricID uint16

const (
	// MetricLoginSuccess counts completed CAS login sequences.
	MetricLoginSuccess MetricID = iota
	// MetricLoginFailure counts login sequences that ended in an error.
	MetricLoginFailure
	// MetricLoginNoop counts logins skipped because the session was still
	// live.
	MetricLoginNoop
	// MetricLoginRedirectOnly counts logins satisfied by redeeming an
	// existing CAS ticket without a credential POST.
	MetricLoginRedirectOnly
	// MetricInvalidCredentials counts credential POSTs that produced no
	// ticket cookie.
	MetricInvalidCredentials
	// MetricManualLoginSuccess counts successful manual logins.
	MetricManualLoginSuccess
	// MetricManualLoginFailure counts failed manual logins.
	MetricManualLoginFailure
	// MetricLogout counts logout operations.
	MetricLogout
	// MetricSessionExpired counts session-expired signals observed by
	// repositories.
	MetricSessionExpired
	// MetricReloginSuccess counts single-flight re-logins that recovered
	// the session.
	MetricReloginSuccess
	// MetricReloginFailure counts single-flight re-logins that failed.
	MetricReloginFailure
	// MetricFetchSuccess counts page fetches that returned a valid body.
	MetricFetchSuccess
	// MetricFetchRetry counts transient fetch attempts that were retried.
	MetricFetchRetry
	// MetricFetchFailure counts fetches that exhausted the retry budget.
	MetricFetchFailure
	// MetricPasswordChangeSuccess counts accepted password changes.
	MetricPasswordChangeSuccess
	// MetricPasswordChangeMismatch counts password changes rejected for a
	// wrong old password.
	MetricPasswordChangeMismatch
	// MetricPasswordChangeFailure counts password changes that failed for
	// any other reason.
	MetricPasswordChangeFailure
	// MetricFetchLatency is the page-fetch latency histogram.
	MetricFetchLatency
	metricIDCount
)

const (
	histBucketCount = 8
	cacheLineSize   = 64
)

type metricHistogram struct {
	buckets [histBucketCount]uint64
}

type paddedCounter struct {
	value uint64
	_     [cacheLineSize - 8]byte
}

// Metrics is the internal registry of atomic counters and the fetch
// latency histogram. A disabled registry costs one branch per call.
type Metrics struct {
	enabled       bool
	enableLatency bool
	counters      [metricIDCount]paddedCounter
	histograms    [metricIDCount]metricHistogram
}

// MetricsSnapshot is a point-in-time copy of every counter and histogram.
type MetricsSnapshot struct {
	Counters   map[MetricID]uint64
	Histograms map[MetricID][]uint64
}

// NewMetrics creates a registry according to cfg.
func NewMetrics(cfg MetricsConfig) *Metrics {
	return &Metrics{
		enabled:       cfg.Enabled,
		enableLatency: cfg.Enabled && cfg.EnableLatencyHistograms,
	}
}

// Enabled reports whether counters are being recorded.
func (m *Metrics) Enabled() bool {
	return m != nil && m.enabled
}

// LatencyEnabled reports whether the latency histogram is being recorded.
func (m *Metrics) LatencyEnabled() bool {
	return m != nil && m.enableLatency
}

// Inc increments a counter.
func (m *Metrics) Inc(id MetricID) {
	if m == nil || !m.enabled || id >= metricIDCount {
		return
	}
	atomic.AddUint64(&m.counters[id].value, 1)
}

// Observe records one latency sample. Only MetricFetchLatency is
// histogram backed.
func (m *Metrics) Observe(id MetricID, d time.Duration) {
	if m == nil || !m.enabled || !m.enableLatency || id >= metricIDCount {
		return
	}
	if id != MetricFetchLatency {
		return
	}

	b := bucketIndex(d)
	atomic.AddUint64(&m.histograms[id].buckets[b], 1)
}

// Value reads one counter.
func (m *Metrics) Value(id MetricID) uint64 {
	if m == nil || id >= metricIDCount {
		return 0
	}
	return atomic.LoadUint64(&m.counters[id].value)
}

// Snapshot copies every counter and histogram.
func (m *Metrics) Snapshot() MetricsSnapshot {
	if m == nil || !m.enabled {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}

	s := MetricsSnapshot{
		Counters:   make(map[MetricID]uint64, int(metricIDCount)),
		Histograms: make(map[MetricID][]uint64, 1),
	}

	for id := MetricID(0); id < metricIDCount; id++ {
		s.Counters[id] = atomic.LoadUint64(&m.counters[id].value)
	}

	if m.enableLatency {
		buckets := make([]uint64, histBucketCount)
		for i := 0; i < histBucketCount; i++ {
			buckets[i] = atomic.LoadUint64(&m.histograms[MetricFetchLatency].buckets[i])
		}
		s.Histograms[MetricFetchLatency] = buckets
	}

	return s
}

func bucketIndex(d time.Duration) int {
	ms := d.Milliseconds()

	switch {
	case ms <= 25:
		return 0
	case ms <= 50:
		return 1
	case ms <= 100:
		return 2
	case ms <= 250:
		return 3
	case ms <= 500:
		return 4
	case ms <= 1000:
		return 5
	case ms <= 2500:
		return 6
	default:
		return 7
	}
}
