// Package metrics exposes the service's Prometheus instrumentation.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics bundles every collector the service registers. Constructing it
// against an explicit Registerer keeps tests free of global-registry
// collisions.
type Metrics struct {
	FetchTotal    *prometheus.CounterVec
	FetchDuration prometheus.Summary
	CacheEvents   *prometheus.GaugeVec
	RefreshTotal  *prometheus.CounterVec
	HTTPRequests  *prometheus.CounterVec
}

// New creates and registers all collectors on reg. Passing nil registers on
// the default registry.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	m := &Metrics{
		FetchTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "eventscout",
			Name:      "fetch_total",
			Help:      "Provider fetches by source and outcome",
		}, []string{"source", "outcome"}),
		FetchDuration: prometheus.NewSummary(prometheus.SummaryOpts{
			Namespace: "eventscout",
			Name:      "fetch_duration_seconds",
			Help:      "Time spent fetching one provider during a category warm",
		}),
		CacheEvents: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "eventscout",
			Name:      "cache_events",
			Help:      "Cached events by source",
		}, []string{"source"}),
		RefreshTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "eventscout",
			Name:      "cache_refresh_total",
			Help:      "Cache refreshes by source",
		}, []string{"source"}),
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "eventscout",
			Name:      "http_requests_total",
			Help:      "API requests by path and status",
		}, []string{"path", "status"}),
	}

	reg.MustRegister(m.FetchTotal, m.FetchDuration, m.CacheEvents, m.RefreshTotal, m.HTTPRequests)
	return m
}
