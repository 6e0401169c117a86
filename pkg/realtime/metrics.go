package realtime

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Drop reasons reported by Metrics.
const (
	DropForeign         = "foreign_owner"
	DropHydrationFailed = "hydration_failed"
	DropNotFound        = "not_found"
	DropOwnerMismatch   = "owner_mismatch"
	DropCancelled       = "cancelled"
)

// Metrics counts what the ingestor does with pushed events. A nil
// *Metrics records nothing.
type Metrics struct {
	received   prometheus.Counter
	merged     prometheus.Counter
	duplicates prometheus.Counter
	dropped    *prometheus.CounterVec
	reconnects prometheus.Counter
}

// NewMetrics registers the ingestor counters with reg. Share one Metrics
// between all ingestors of a process.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		received: f.NewCounter(prometheus.CounterOpts{
			Namespace: "notifsync",
			Subsystem: "realtime",
			Name:      "events_received_total",
			Help:      "Insert events received from the push channel.",
		}),
		merged: f.NewCounter(prometheus.CounterOpts{
			Namespace: "notifsync",
			Subsystem: "realtime",
			Name:      "events_merged_total",
			Help:      "Hydrated notifications merged into a store.",
		}),
		duplicates: f.NewCounter(prometheus.CounterOpts{
			Namespace: "notifsync",
			Subsystem: "realtime",
			Name:      "events_duplicate_total",
			Help:      "Hydrated notifications already present in the store.",
		}),
		dropped: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "notifsync",
			Subsystem: "realtime",
			Name:      "events_dropped_total",
			Help:      "Insert events discarded before merging, by reason.",
		}, []string{"reason"}),
		reconnects: f.NewCounter(prometheus.CounterOpts{
			Namespace: "notifsync",
			Subsystem: "realtime",
			Name:      "reconnects_total",
			Help:      "Push channel reconnections that triggered a resync.",
		}),
	}
}

func (m *Metrics) incReceived() {
	if m != nil {
		m.received.Inc()
	}
}

func (m *Metrics) incMerged() {
	if m != nil {
		m.merged.Inc()
	}
}

func (m *Metrics) incDuplicate() {
	if m != nil {
		m.duplicates.Inc()
	}
}

func (m *Metrics) incDropped(reason string) {
	if m != nil {
		m.dropped.WithLabelValues(reason).Inc()
	}
}

func (m *Metrics) incReconnect() {
	if m != nil {
		m.reconnects.Inc()
	}
}
