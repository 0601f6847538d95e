package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics exposes the Prometheus primitives for the consistency core.
type Metrics struct {
	quotaChecks       *prometheus.CounterVec
	quotaDenials      *prometheus.CounterVec
	versionConflicts  *prometheus.CounterVec
	permissionCache   *prometheus.CounterVec
	auditRecords      *prometheus.CounterVec
	uowRollbacks      prometheus.Counter
	overlapRejections prometheus.Counter
}

// NewMetrics registers and returns the core metrics.
func NewMetrics() *Metrics {
	m := &Metrics{
		quotaChecks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "propfolio_quota_checks_total",
			Help: "Counts quota handler evaluations by handler and outcome.",
		}, []string{"handler", "outcome"}),
		quotaDenials: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "propfolio_quota_denials_total",
			Help: "Counts quota denials by handler and denial kind.",
		}, []string{"handler", "kind"}),
		versionConflicts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "propfolio_version_conflicts_total",
			Help: "Counts optimistic-lock conflicts by entity kind.",
		}, []string{"entity"}),
		permissionCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "propfolio_permission_cache_ops_total",
			Help: "Counts permission cache lookups by result.",
		}, []string{"result"}),
		auditRecords: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "propfolio_audit_records_total",
			Help: "Counts audit records written by action.",
		}, []string{"action"}),
		uowRollbacks: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "propfolio_uow_rollbacks_total",
			Help: "Counts unit-of-work scopes rolled back.",
		}),
		overlapRejections: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "propfolio_revenue_overlap_rejections_total",
			Help: "Counts revenue periods rejected for overlapping an existing period.",
		}),
	}

	prometheus.MustRegister(
		m.quotaChecks,
		m.quotaDenials,
		m.versionConflicts,
		m.permissionCache,
		m.auditRecords,
		m.uowRollbacks,
		m.overlapRejections,
	)
	return m
}

// All recorder methods are nil-safe so call sites do not have to guard for
// tests constructed without metrics.

func (m *Metrics) QuotaCheck(handler, outcome string) {
	if m == nil {
		return
	}
	m.quotaChecks.WithLabelValues(handler, outcome).Inc()
}

func (m *Metrics) QuotaDenial(handler, kind string) {
	if m == nil {
		return
	}
	m.quotaDenials.WithLabelValues(handler, kind).Inc()
}

func (m *Metrics) VersionConflict(entity string) {
	if m == nil {
		return
	}
	m.versionConflicts.WithLabelValues(entity).Inc()
}

func (m *Metrics) PermissionCacheHit() {
	if m == nil {
		return
	}
	m.permissionCache.WithLabelValues("hit").Inc()
}

func (m *Metrics) PermissionCacheMiss() {
	if m == nil {
		return
	}
	m.permissionCache.WithLabelValues("miss").Inc()
}

func (m *Metrics) AuditRecord(action string) {
	if m == nil {
		return
	}
	m.auditRecords.WithLabelValues(action).Inc()
}

func (m *Metrics) UowRollback() {
	if m == nil {
		return
	}
	m.uowRollbacks.Inc()
}

func (m *Metrics) OverlapRejection() {
	if m == nil {
		return
	}
	m.overlapRejections.Inc()
}
