package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Label values used with the metrics below.
const (
	OutcomeHit   = "hit"
	OutcomeMiss  = "miss"
	OutcomeError = "error"

	CacheHit  = "hit"
	CacheMiss = "miss"
)

type Metrics struct {
	Resolutions      *prometheus.CounterVec
	CacheLookups     *prometheus.CounterVec
	ProviderRequests *prometheus.CounterVec
	RequestSeconds   *prometheus.HistogramVec
	ActiveWorkers    prometheus.Gauge
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	return &Metrics{
		Resolutions: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "locator_resolutions_total",
			Help: "Total number of address resolutions by outcome.",
		}, []string{"outcome"}),
		CacheLookups: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "locator_cache_lookups_total",
			Help: "Total number of resolution cache reads by result.",
		}, []string{"result"}),
		ProviderRequests: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "locator_provider_requests_total",
			Help: "Total number of geocoding provider calls by provider and outcome.",
		}, []string{"provider", "outcome"}),
		RequestSeconds: promauto.With(reg).NewHistogramVec(prometheus.HistogramOpts{
			Name:    "locator_provider_request_duration_seconds",
			Help:    "Duration of requests to the geocoding provider API.",
			Buckets: prometheus.DefBuckets,
		}, []string{"provider"}),
		ActiveWorkers: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Name: "locator_active_workers",
			Help: "Current number of workers resolving a batch item.",
		}),
	}
}
