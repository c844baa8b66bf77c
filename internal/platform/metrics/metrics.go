package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the engine.
type Metrics struct {
	AccountsCreated    prometheus.Counter
	AccountsFunded     prometheus.Counter
	AccountsDisputed   prometheus.Counter
	AccountsExpired    prometheus.Counter
	MilestonesReleased prometheus.Counter

	QuickPayRequests  *prometheus.CounterVec
	DisbursementTime  prometheus.Histogram
	CertificatesIssue prometheus.Counter
	AuditEventsDrop   prometheus.Counter
}

// New creates and registers all Prometheus metrics on the given registerer.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		AccountsCreated: factory.NewCounter(prometheus.CounterOpts{
			Name: "keystone_escrow_accounts_created_total",
			Help: "Escrow accounts created.",
		}),
		AccountsFunded: factory.NewCounter(prometheus.CounterOpts{
			Name: "keystone_escrow_accounts_funded_total",
			Help: "Escrow accounts that reached Active via full funding.",
		}),
		AccountsDisputed: factory.NewCounter(prometheus.CounterOpts{
			Name: "keystone_escrow_accounts_disputed_total",
			Help: "Escrow accounts frozen by dispute.",
		}),
		AccountsExpired: factory.NewCounter(prometheus.CounterOpts{
			Name: "keystone_escrow_accounts_expired_total",
			Help: "PendingFunding accounts expired past their funding deadline.",
		}),
		MilestonesReleased: factory.NewCounter(prometheus.CounterOpts{
			Name: "keystone_milestones_released_total",
			Help: "Milestones released to recipients.",
		}),
		QuickPayRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "keystone_quickpay_requests_total",
			Help: "QuickPay requests by terminal status.",
		}, []string{"status"}),
		DisbursementTime: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "keystone_disbursement_duration_seconds",
			Help:    "Wall time of external disbursement calls.",
			Buckets: prometheus.DefBuckets,
		}),
		CertificatesIssue: factory.NewCounter(prometheus.CounterOpts{
			Name: "keystone_certificates_issued_total",
			Help: "Payment certificates issued on government funding.",
		}),
		AuditEventsDrop: factory.NewCounter(prometheus.CounterOpts{
			Name: "keystone_audit_events_dropped_total",
			Help: "Audit events dropped because the publisher buffer was full.",
		}),
	}
}

// NewForTest returns metrics registered on a private registry so parallel
// test packages don't collide on the default registerer.
func NewForTest() *Metrics {
	return New(prometheus.NewRegistry())
}
