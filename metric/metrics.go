// Package metric provides Prometheus instrumentation for the document store
// and change notifier.
package metric

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the repository-level counters. A nil *Metrics is valid and
// records nothing, so instrumentation stays optional.
type Metrics struct {
	WritesTotal       *prometheus.CounterVec
	VersionConflicts  *prometheus.CounterVec
	AllocationRetries prometheus.Counter
	PublishFailures   *prometheus.CounterVec
	BulkItemFailures  prometheus.Counter
	PurgedDocuments   prometheus.Counter
}

// New creates a Metrics instance with all repository counters.
func New() *Metrics {
	return &Metrics{
		WritesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "docvault",
				Subsystem: "store",
				Name:      "writes_total",
				Help:      "Write operations by entity type, operation, and outcome",
			},
			[]string{"entity_type", "operation", "outcome"},
		),
		VersionConflicts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "docvault",
				Subsystem: "store",
				Name:      "version_conflicts_total",
				Help:      "Conditional creates rejected by an existing document id",
			},
			[]string{"entity_type"},
		),
		AllocationRetries: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "docvault",
				Subsystem: "store",
				Name:      "allocation_retries_total",
				Help:      "Allocate-and-write cycles restarted after an id conflict",
			},
		),
		PublishFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "docvault",
				Subsystem: "notify",
				Name:      "publish_failures_total",
				Help:      "Change events that failed to publish after a committed write",
			},
			[]string{"channel"},
		),
		BulkItemFailures: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "docvault",
				Subsystem: "store",
				Name:      "bulk_item_failures_total",
				Help:      "Per-item failures during bulk inserts",
			},
		),
		PurgedDocuments: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "docvault",
				Subsystem: "store",
				Name:      "purged_documents_total",
				Help:      "Soft-deleted documents physically removed",
			},
		),
	}
}

// Register registers all counters with the given registerer.
func (m *Metrics) Register(reg prometheus.Registerer) error {
	collectors := []prometheus.Collector{
		m.WritesTotal,
		m.VersionConflicts,
		m.AllocationRetries,
		m.PublishFailures,
		m.BulkItemFailures,
		m.PurgedDocuments,
	}
	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

// ObserveWrite records a completed write operation.
func (m *Metrics) ObserveWrite(entityType, operation, outcome string) {
	if m == nil {
		return
	}
	m.WritesTotal.WithLabelValues(entityType, operation, outcome).Inc()
}

// ObserveConflictRetry records an id conflict that restarts the cycle.
func (m *Metrics) ObserveConflictRetry(entityType string) {
	if m == nil {
		return
	}
	m.VersionConflicts.WithLabelValues(entityType).Inc()
	m.AllocationRetries.Inc()
}

// ObservePublishFailure records a failed change-event publish.
func (m *Metrics) ObservePublishFailure(channel string) {
	if m == nil {
		return
	}
	m.PublishFailures.WithLabelValues(channel).Inc()
}

// ObserveBulkFailures records per-item bulk insert failures.
func (m *Metrics) ObserveBulkFailures(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.BulkItemFailures.Add(float64(n))
}

// ObservePurged records physically removed documents.
func (m *Metrics) ObservePurged(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.PurgedDocuments.Add(float64(n))
}
