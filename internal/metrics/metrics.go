// Package metrics registers the prometheus instruments of the service.
// Consumers hold a *Metrics that may be nil, so tests can run without a
// registry.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	RecordsCreated    prometheus.Counter
	RecordsUpdated    prometheus.Counter
	RecordsDeleted    prometheus.Counter
	AuditEntries      prometheus.Counter
	AuditFailures     prometheus.Counter
	AgencyCacheHits   prometheus.Counter
	AgencyCacheMisses prometheus.Counter
}

// New registers the instruments on the default registry, so it must be
// called once per process.
func New() *Metrics {
	return &Metrics{
		RecordsCreated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "fiscal_records_created_total",
			Help: "Fiscal records created.",
		}),
		RecordsUpdated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "fiscal_records_updated_total",
			Help: "Fiscal record updates applied.",
		}),
		RecordsDeleted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "fiscal_records_deleted_total",
			Help: "Fiscal records soft-deleted.",
		}),
		AuditEntries: promauto.NewCounter(prometheus.CounterOpts{
			Name: "audit_entries_written_total",
			Help: "Audit entries persisted.",
		}),
		AuditFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "audit_write_failures_total",
			Help: "Audit entries that could not be persisted.",
		}),
		AgencyCacheHits: promauto.NewCounter(prometheus.CounterOpts{
			Name: "ecac_cache_hits_total",
			Help: "e-CAC lookups served from cache.",
		}),
		AgencyCacheMisses: promauto.NewCounter(prometheus.CounterOpts{
			Name: "ecac_cache_misses_total",
			Help: "e-CAC lookups that went to the portal.",
		}),
	}
}

// IncRecordsCreated and friends are nil-safe wrappers.
func (m *Metrics) IncRecordsCreated() {
	if m != nil {
		m.RecordsCreated.Inc()
	}
}

func (m *Metrics) IncRecordsUpdated() {
	if m != nil {
		m.RecordsUpdated.Inc()
	}
}

func (m *Metrics) IncRecordsDeleted() {
	if m != nil {
		m.RecordsDeleted.Inc()
	}
}

func (m *Metrics) IncAuditEntries() {
	if m != nil {
		m.AuditEntries.Inc()
	}
}

func (m *Metrics) IncAuditFailures() {
	if m != nil {
		m.AuditFailures.Inc()
	}
}

func (m *Metrics) IncAgencyCacheHits() {
	if m != nil {
		m.AgencyCacheHits.Inc()
	}
}

func (m *Metrics) IncAgencyCacheMisses() {
	if m != nil {
		m.AgencyCacheMisses.Inc()
	}
}
