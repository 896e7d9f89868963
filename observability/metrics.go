package observability

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registryOnce sync.Once
	registry     *prometheus.Registry

	storeMetricsOnce sync.Once
	storeRegistry    *StoreMetrics

	reaperMetricsOnce sync.Once
	reaperRegistry    *ReaperMetrics
)

// Registry returns the process-wide prometheus registry served on /metrics.
func Registry() *prometheus.Registry {
	registryOnce.Do(func() {
		registry = prometheus.NewRegistry()
	})
	return registry
}

// StoreMetrics counts transaction-store operations segmented by direction,
// operation and outcome.
type StoreMetrics struct {
	operations *prometheus.CounterVec
	records    *prometheus.GaugeVec
}

// Store returns the lazily-initialised transaction-store metrics.
func Store() *StoreMetrics {
	storeMetricsOnce.Do(func() {
		storeRegistry = &StoreMetrics{
			operations: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "bridgeledger",
				Subsystem: "store",
				Name:      "operations_total",
				Help:      "Transaction store operations segmented by direction, operation and outcome.",
			}, []string{"direction", "operation", "outcome"}),
			records: prometheus.NewGaugeVec(prometheus.GaugeOpts{
				Namespace: "bridgeledger",
				Subsystem: "store",
				Name:      "unverified_records",
				Help:      "Unverified records currently awaiting confirmation per direction.",
			}, []string{"direction"}),
		}
		Registry().MustRegister(storeRegistry.operations, storeRegistry.records)
	})
	return storeRegistry
}

// ObserveOperation records one store operation outcome.
func (m *StoreMetrics) ObserveOperation(direction, operation, outcome string) {
	if m == nil {
		return
	}
	m.operations.WithLabelValues(direction, operation, outcome).Inc()
}

// SetUnverified publishes the current unverified backlog for a direction.
func (m *StoreMetrics) SetUnverified(direction string, count int) {
	if m == nil {
		return
	}
	m.records.WithLabelValues(direction).Set(float64(count))
}

// ReaperMetrics tracks the unverified-transfer sweep.
type ReaperMetrics struct {
	evicted  *prometheus.CounterVec
	skipped  prometheus.Counter
	duration prometheus.Histogram
}

// Reaper returns the lazily-initialised reaper metrics.
func Reaper() *ReaperMetrics {
	reaperMetricsOnce.Do(func() {
		reaperRegistry = &ReaperMetrics{
			evicted: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "bridgeledger",
				Subsystem: "reaper",
				Name:      "evicted_total",
				Help:      "Stale unverified records evicted, segmented by direction.",
			}, []string{"direction"}),
			skipped: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: "bridgeledger",
				Subsystem: "reaper",
				Name:      "skipped_total",
				Help:      "Sweep invocations abandoned because a sweep was already running.",
			}),
			duration: prometheus.NewHistogram(prometheus.HistogramOpts{
				Namespace: "bridgeledger",
				Subsystem: "reaper",
				Name:      "sweep_duration_seconds",
				Help:      "Wall time of completed sweeps.",
				Buckets:   prometheus.DefBuckets,
			}),
		}
		Registry().MustRegister(reaperRegistry.evicted, reaperRegistry.skipped, reaperRegistry.duration)
	})
	return reaperRegistry
}

// ObserveEviction records evicted entries for a direction.
func (m *ReaperMetrics) ObserveEviction(direction string, count int) {
	if m == nil || count == 0 {
		return
	}
	m.evicted.WithLabelValues(direction).Add(float64(count))
}

// ObserveSkip records an abandoned sweep invocation.
func (m *ReaperMetrics) ObserveSkip() {
	if m == nil {
		return
	}
	m.skipped.Inc()
}

// ObserveSweep records the duration of a completed sweep.
func (m *ReaperMetrics) ObserveSweep(elapsed time.Duration) {
	if m == nil {
		return
	}
	m.duration.Observe(elapsed.Seconds())
}
