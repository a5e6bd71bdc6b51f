package authkit

import "sync/atomic"

// MetricID identifies one engine counter.
type MetricID uint16

const (
	// MetricLoginSuccess is an exported counter incremented by the engine.
	MetricLoginSuccess MetricID = iota
	// MetricLoginFailure is an exported counter incremented by the engine.
	MetricLoginFailure
	// MetricLoginRateLimited is an exported counter incremented by the engine.
	MetricLoginRateLimited
	// MetricPINSetup is an exported counter incremented by the engine.
	MetricPINSetup
	// MetricPINLoginSuccess is an exported counter incremented by the engine.
	MetricPINLoginSuccess
	// MetricPINLoginFailure is an exported counter incremented by the engine.
	MetricPINLoginFailure
	// MetricPINLocked is an exported counter incremented by the engine.
	MetricPINLocked
	// MetricQuestionSetup is an exported counter incremented by the engine.
	MetricQuestionSetup
	// MetricRecoverySuccess is an exported counter incremented by the engine.
	MetricRecoverySuccess
	// MetricRecoveryFailure is an exported counter incremented by the engine.
	MetricRecoveryFailure
	// MetricTokenIssued is an exported counter incremented by the engine.
	MetricTokenIssued
	// MetricTokenRejected is an exported counter incremented by the engine.
	MetricTokenRejected
	// MetricLogout is an exported counter incremented by the engine.
	MetricLogout

	metricCount
)

// Metrics holds the in-process engine counters. Zero-cost when disabled.
type Metrics struct {
	enabled  bool
	counters [metricCount]atomic.Uint64
}

// MetricsSnapshot is a point-in-time copy of the counters.
type MetricsSnapshot struct {
	Counters map[MetricID]uint64
}

func newMetrics(cfg MetricsConfig) *Metrics {
	if !cfg.Enabled {
		return nil
	}
	return &Metrics{enabled: true}
}

// Inc increments one counter.
func (m *Metrics) Inc(id MetricID) {
	if m == nil || !m.enabled || id >= metricCount {
		return
	}
	m.counters[id].Add(1)
}

// Snapshot copies all counters.
func (m *Metrics) Snapshot() MetricsSnapshot {
	out := MetricsSnapshot{Counters: make(map[MetricID]uint64, metricCount)}
	if m == nil || !m.enabled {
		return out
	}
	for id := MetricID(0); id < metricCount; id++ {
		out.Counters[id] = m.counters[id].Load()
	}
	return out
}
