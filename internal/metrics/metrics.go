package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Rejection reasons for sales.
const (
	ReasonValidation        = "validation"
	ReasonNotFound          = "not_found"
	ReasonInsufficientStock = "insufficient_stock"
	ReasonPersistence       = "persistence"
)

// Metrics holds the inventory counters. A nil *Metrics is valid and records
// nothing, which keeps services usable in tests without a registry.
type Metrics struct {
	registry       *prometheus.Registry
	salesRecorded  prometheus.Counter
	unitsSold      prometheus.Counter
	salesRejected  *prometheus.CounterVec
	reversals      prometheus.Counter
	compensations  *prometheus.CounterVec
	reconciliation prometheus.Counter
	auditFailures  *prometheus.CounterVec
}

// New registers the counters on a fresh registry, together with the Go and
// process collectors.
func New(namespace string) *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	m := &Metrics{
		registry: reg,
		salesRecorded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sales_recorded_total",
			Help:      "Number of sale transactions recorded.",
		}),
		unitsSold: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "units_sold_total",
			Help:      "Sum of quantities over recorded sales.",
		}),
		salesRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sales_rejected_total",
			Help:      "Number of sales rejected, by reason.",
		}, []string{"reason"}),
		reversals: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sales_reversed_total",
			Help:      "Number of sale transactions reversed.",
		}),
		compensations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stock_compensations_total",
			Help:      "Stock compensations after a failed ledger write, by outcome.",
		}, []string{"outcome"}),
		reconciliation: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stock_reconciliations_total",
			Help:      "Number of stock recomputations from sub-inventory.",
		}),
		auditFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "audit_write_failures_total",
			Help:      "Audit entries that could not be persisted, by action.",
		}, []string{"action"}),
	}
	reg.MustRegister(
		m.salesRecorded,
		m.unitsSold,
		m.salesRejected,
		m.reversals,
		m.compensations,
		m.reconciliation,
		m.auditFailures,
	)
	return m
}

// Registry exposes the registry the counters live on.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) SaleRecorded(quantity int) {
	if m == nil {
		return
	}
	m.salesRecorded.Inc()
	m.unitsSold.Add(float64(quantity))
}

func (m *Metrics) SaleRejected(reason string) {
	if m == nil {
		return
	}
	m.salesRejected.WithLabelValues(reason).Inc()
}

func (m *Metrics) SaleReversed() {
	if m == nil {
		return
	}
	m.reversals.Inc()
}

// Compensated records a stock rollback; ok is false when the rollback itself
// failed and stock may be off.
func (m *Metrics) Compensated(ok bool) {
	if m == nil {
		return
	}
	outcome := "applied"
	if !ok {
		outcome = "failed"
	}
	m.compensations.WithLabelValues(outcome).Inc()
}

func (m *Metrics) Reconciled() {
	if m == nil {
		return
	}
	m.reconciliation.Inc()
}

func (m *Metrics) AuditWriteFailed(action string) {
	if m == nil {
		return
	}
	m.auditFailures.WithLabelValues(action).Inc()
}
