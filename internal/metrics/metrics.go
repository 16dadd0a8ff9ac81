package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry holds the service's Prometheus collectors on a private registry,
// so tests can build as many as they like.
type Registry struct {
	reg *prometheus.Registry

	// Standard HTTP metrics, recorded by middleware
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Gate verdicts per operation: authorized, denied
	GateDecisionsTotal *prometheus.CounterVec
	// Operation outcomes per failure kind, "success" otherwise
	OperationsTotal *prometheus.CounterVec

	PricingDuration   prometheus.Histogram
	OrdersPlacedTotal prometheus.Counter
}

func NewRegistry() *Registry {
	r := &Registry{
		reg: prometheus.NewRegistry(),
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"handler", "method", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"handler", "method"},
		),
		GateDecisionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gate_decisions_total",
				Help: "Credential gate verdicts by operation",
			},
			[]string{"operation", "verdict"},
		),
		OperationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gated_operations_total",
				Help: "Gated operation outcomes",
			},
			[]string{"operation", "outcome"},
		),
		PricingDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "order_pricing_duration_seconds",
				Help:    "Duration of order breakdown calculations",
				Buckets: prometheus.DefBuckets,
			},
		),
		OrdersPlacedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "orders_placed_total",
				Help: "Total number of committed orders",
			},
		),
	}

	r.reg.MustRegister(
		r.HTTPRequestsTotal,
		r.HTTPRequestDuration,
		r.GateDecisionsTotal,
		r.OperationsTotal,
		r.PricingDuration,
		r.OrdersPlacedTotal,
		collectors.NewGoCollector(),
	)
	return r
}

// Handler serves the registry in the Prometheus text format.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{})
}
