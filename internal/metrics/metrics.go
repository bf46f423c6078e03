// Package metrics exposes the kernel's Prometheus collectors: one counter
// per pipeline stage the coordinator, ingestion service, and promotion
// service pass through, plus a duration histogram for interpretation. A
// private
// prometheus.Registry populated in init(), counter/histogram vecs
// labeled by outcome, a promhttp Handler(), and small Record* functions
// callers invoke at the point an operation completes rather than
// threading a *Metrics struct through every call.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry holds the kernel's own collectors, separate from the global
// Prometheus default registry so a host process can mount it wherever it
// likes.
var Registry = prometheus.NewRegistry()

var (
	interpretationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ledger_kernel",
			Subsystem: "interpretation",
			Name: "outcomes_total",
			Help: "Total interpretation outcomes by terminal/resumable state.",
		},
		[]string{"state", "reason_code"},
	)

	interpretationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "ledger_kernel",
			Subsystem: "interpretation",
			Name: "duration_seconds",
			Help: "Duration of one Coordinator.Interpret call.",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12),
		},
		[]string{"state"},
	)

	journalEntriesPostedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "ledger_kernel",
			Subsystem: "journal",
			Name: "entries_posted_total",
			Help: "Total journal entries successfully posted.",
		},
	)

	auditEventsAppendedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ledger_kernel",
			Subsystem: "audit",
			Name: "events_appended_total",
			Help: "Total audit chain links appended, by action.",
		},
		[]string{"action"},
	)

	importRecordsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ledger_kernel",
			Subsystem: "ingestion",
			Name: "records_total",
			Help: "Total staged import records, by terminal validation status.",
		},
		[]string{"entity_type", "status"},
	)

	promotionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ledger_kernel",
			Subsystem: "promotion",
			Name: "records_total",
			Help: "Total import records processed by PromoteBatch, by outcome.",
		},
		[]string{"entity_type", "outcome"},
	)
)

func init() {
	Registry.MustRegister(
		interpretationsTotal,
		interpretationDuration,
		journalEntriesPostedTotal,
		auditEventsAppendedTotal,
		importRecordsTotal,
		promotionsTotal,
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewGoCollector(),
	)
}

// Handler returns an HTTP handler exposing Registry in the Prometheus
// text exposition format.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// RecordInterpretation records one Coordinator.Interpret call's terminal
// state and wall-clock duration.
func RecordInterpretation(state, reasonCode string, duration time.Duration) {
	interpretationsTotal.WithLabelValues(state, reasonCode).Inc()
	interpretationDuration.WithLabelValues(state).Observe(duration.Seconds())
}

// RecordJournalEntryPosted increments the posted-entries counter once
// per journal entry the coordinator successfully writes.
func RecordJournalEntryPosted() {
	journalEntriesPostedTotal.Inc()
}

// RecordAuditEvent increments the audit counter for one appended link.
func RecordAuditEvent(action string) {
	auditEventsAppendedTotal.WithLabelValues(action).Inc()
}

// RecordImportRecord increments the staged-record counter once a record
// reaches a terminal validation status (valid/invalid).
func RecordImportRecord(entityType, status string) {
	importRecordsTotal.WithLabelValues(entityType, status).Inc()
}

// RecordPromotion increments the promotion counter once a record reaches
// a terminal promotion outcome (promoted/skipped/failed).
func RecordPromotion(entityType, outcome string) {
	promotionsTotal.WithLabelValues(entityType, outcome).Inc()
}
