package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const (
	namespace = "cosmos"

	LabelAllowed = "allowed"
	LabelDenied  = "denied"
	LabelError   = "error"

	LabelBound          = "bound"
	LabelSchemaNotFound = "schema_not_found"
	LabelUnresolved     = "tenant_not_resolved"
	LabelInvalid        = "invalid_tenant"
	LabelUnavailable    = "db_unavailable"
)

// Collectors is safe to use as a nil pointer; every method is a no-op then.
type Collectors struct {
	Decisions       *prometheus.CounterVec
	Routing         *prometheus.CounterVec
	RoutingDuration *prometheus.HistogramVec
	RateLimited     *prometheus.CounterVec
}

func New(reg prometheus.Registerer) *Collectors {
	c := &Collectors{
		Decisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "authz",
			Name:      "decisions_total",
			Help:      "Count of authorization decisions by engine and result",
		}, []string{"engine", "result"}),

		Routing: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "tenancy",
			Name:      "connections_total",
			Help:      "Count of tenant connection acquisitions by outcome",
		}, []string{"outcome"}),

		RoutingDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "tenancy",
			Name:      "acquire_duration_seconds",
			Help:      "Histogram of time spent validating and binding a tenant schema",
			Buckets:   prometheus.ExponentialBuckets(1e-4, 4, 8),
		}, []string{"outcome"}),

		RateLimited: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "rate_limited_total",
			Help:      "Count of requests rejected by the per-tenant rate limiter",
		}, []string{"route"}),
	}
	if reg != nil {
		reg.MustRegister(c.PrometheusCollectors()...)
	}
	return c
}

func (c *Collectors) PrometheusCollectors() []prometheus.Collector {
	return []prometheus.Collector{
		c.Decisions,
		c.Routing,
		c.RoutingDuration,
		c.RateLimited,
	}
}

func (c *Collectors) Decision(engine, result string) {
	if c == nil {
		return
	}
	c.Decisions.WithLabelValues(engine, result).Inc()
}

func (c *Collectors) Routed(outcome string, seconds float64) {
	if c == nil {
		return
	}
	c.Routing.WithLabelValues(outcome).Inc()
	c.RoutingDuration.WithLabelValues(outcome).Observe(seconds)
}

func (c *Collectors) Limited(route string) {
	if c == nil {
		return
	}
	c.RateLimited.WithLabelValues(route).Inc()
}
