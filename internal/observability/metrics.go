package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	MatchesTotal      = promauto.NewCounter(prometheus.CounterOpts{Namespace: "nourish_matching", Name: "matches_total", Help: "Total number of matches offered"})
	MatchLatency      = promauto.NewHistogram(prometheus.HistogramOpts{Namespace: "nourish_matching", Name: "match_latency_seconds", Help: "Match computation latency seconds"})
	CandidatesSkipped = promauto.NewCounter(prometheus.CounterOpts{Namespace: "nourish_matching", Name: "candidates_skipped_total", Help: "Candidates dropped for malformed coordinates"})
	RoutesPlanned     = promauto.NewCounter(prometheus.CounterOpts{Namespace: "nourish_matching", Name: "routes_planned_total", Help: "Total pickup routes planned"})
	LocationEvents    = promauto.NewCounter(prometheus.CounterOpts{Namespace: "nourish_matching", Name: "location_events_total", Help: "Donation location updates ingested into the geo index"})

	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: "nourish_matching", Name: "http_requests_total", Help: "Total HTTP requests handled"},
		[]string{"method", "path", "status"},
	)
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "nourish_matching",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency distribution",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)
