package authflow

import (
	"sync/atomic"
	"time"
)

// MetricID identifies one engine counter or latency histogram.
type MetricID uint16

const (
	// MetricSignInSuccess counts completed password sign-ins.
	MetricSignInSuccess MetricID = iota
	// MetricSignInFailure counts rejected or failed sign-in submissions.
	MetricSignInFailure
	// MetricSignUpCreated counts sign-ups completed through any path.
	MetricSignUpCreated
	// MetricSignUpFailure counts rejected or failed sign-up submissions.
	MetricSignUpFailure
	// MetricProfileStepShown counts sign-up flows reaching the profile step.
	MetricProfileStepShown
	// MetricBotChallengeBlocked counts sign-ups parked on a bot challenge.
	MetricBotChallengeBlocked
	// MetricVerificationSent counts verification emails triggered at sign-up.
	MetricVerificationSent
	// MetricVerificationBypassed counts sign-ups authenticated on the early
	// session without a code round-trip.
	MetricVerificationBypassed
	// MetricVerificationSuccess counts accepted verification codes.
	MetricVerificationSuccess
	// MetricVerificationFailure counts rejected verification attempts.
	MetricVerificationFailure
	// MetricVerificationResent counts re-sent verification emails.
	MetricVerificationResent
	// MetricResendThrottled counts resend attempts stopped by the limiter.
	MetricResendThrottled
	// MetricResetEmailRequested counts password reset emails triggered.
	MetricResetEmailRequested
	// MetricResetEmailFailure counts reset requests the provider refused.
	MetricResetEmailFailure
	// MetricResetThrottled counts reset attempts stopped by the limiter.
	MetricResetThrottled
	// MetricMetadataRepushFailure counts best-effort metadata re-pushes that
	// failed and were swallowed.
	MetricMetadataRepushFailure
	// MetricSignInLatency is the sign-in provider round-trip histogram.
	MetricSignInLatency
	// MetricSignUpLatency is the sign-up creation round-trip histogram.
	MetricSignUpLatency
	// MetricVerificationLatency is the code verification round-trip histogram.
	MetricVerificationLatency
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

// Metrics is the engine's in-process metric store: fixed-size atomic counters
// plus latency histograms for the provider round-trips. A disabled store
// no-ops on every write.
type Metrics struct {
	enabled       bool
	enableLatency bool
	counters      [metricIDCount]paddedCounter
	histograms    [metricIDCount]metricHistogram
}

// MetricsSnapshot is a point-in-time copy of all counters and histogram
// buckets, as consumed by the exporters under metrics/export.
type MetricsSnapshot struct {
	Counters   map[MetricID]uint64
	Histograms map[MetricID][]uint64
}

func NewMetrics(cfg MetricsConfig) *Metrics {
	return &Metrics{
		enabled:       cfg.Enabled,
		enableLatency: cfg.Enabled && cfg.EnableLatencyHistograms,
	}
}

func (m *Metrics) Enabled() bool {
	return m != nil && m.enabled
}

func (m *Metrics) LatencyEnabled() bool {
	return m != nil && m.enableLatency
}

func (m *Metrics) Inc(id MetricID) {
	if m == nil || !m.enabled || id >= metricIDCount {
		return
	}
	atomic.AddUint64(&m.counters[id].value, 1)
}

func (m *Metrics) Observe(id MetricID, d time.Duration) {
	if m == nil || !m.enabled || !m.enableLatency || id >= metricIDCount {
		return
	}
	if !latencyMetric(id) {
		return
	}

	b := bucketIndex(d)
	atomic.AddUint64(&m.histograms[id].buckets[b], 1)
}

func (m *Metrics) Value(id MetricID) uint64 {
	if m == nil || id >= metricIDCount {
		return 0
	}
	return atomic.LoadUint64(&m.counters[id].value)
}

func (m *Metrics) Snapshot() MetricsSnapshot {
	if m == nil || !m.enabled {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}

	s := MetricsSnapshot{
		Counters:   make(map[MetricID]uint64, int(metricIDCount)),
		Histograms: make(map[MetricID][]uint64, 3),
	}

	for id := MetricID(0); id < metricIDCount; id++ {
		s.Counters[id] = atomic.LoadUint64(&m.counters[id].value)
	}

	if m.enableLatency {
		for id := MetricID(0); id < metricIDCount; id++ {
			if !latencyMetric(id) {
				continue
			}
			buckets := make([]uint64, histBucketCount)
			for i := 0; i < histBucketCount; i++ {
				buckets[i] = atomic.LoadUint64(&m.histograms[id].buckets[i])
			}
			s.Histograms[id] = buckets
		}
	}

	return s
}

func latencyMetric(id MetricID) bool {
	switch id {
	case MetricSignInLatency, MetricSignUpLatency, MetricVerificationLatency:
		return true
	default:
		return false
	}
}

// bucketIndex maps a provider round-trip duration onto the histogram bounds
// used by the exporters. Bounds are milliseconds, sized for network calls.
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
