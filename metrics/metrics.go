// Package metrics provides Prometheus metrics for JWT verification.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the verifier.
type Metrics struct {
	enabled bool

	// Verification metrics
	verifyRequestsTotal *prometheus.CounterVec
	verifyDuration      prometheus.Histogram

	// Algorithm metrics
	algorithmUsageTotal *prometheus.CounterVec

	// JWKS cache metrics
	cacheEntriesTotal *prometheus.GaugeVec
	cacheHitsTotal    *prometheus.CounterVec
	cacheMissTotal    *prometheus.CounterVec
	jwksFetchTotal    *prometheus.CounterVec

	// PenaltyBox metrics
	penaltyBoxTripsTotal *prometheus.CounterVec
}

// New creates and registers Prometheus metrics.
// If enabled is false, returns a no-op Metrics instance.
func New(enabled bool) *Metrics {
	m := &Metrics{enabled: enabled}

	if !enabled {
		return m
	}

	// Verification metrics
	m.verifyRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "jwtverify_requests_total",
		Help: "Total verification attempts by result",
	}, []string{"result"})

	m.verifyDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "jwtverify_duration_seconds",
		Help:    "Verification duration in seconds",
		Buckets: prometheus.DefBuckets,
	})

	// Algorithm metrics
	m.algorithmUsageTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "jwtverify_algorithm_usage_total",
		Help: "Total verifications by signing algorithm",
	}, []string{"alg"})

	// JWKS cache metrics
	m.cacheEntriesTotal = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "jwtverify_jwks_cache_entries",
		Help: "Current number of keys cached per JWKS URI",
	}, []string{"jwks_uri"})

	m.cacheHitsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "jwtverify_jwks_cache_hits_total",
		Help: "Total JWKS cache hits",
	}, []string{"jwks_uri"})

	m.cacheMissTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "jwtverify_jwks_cache_misses_total",
		Help: "Total JWKS cache misses",
	}, []string{"jwks_uri"})

	m.jwksFetchTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "jwtverify_jwks_fetch_total",
		Help: "Total JWKS fetch attempts by outcome",
	}, []string{"jwks_uri", "outcome"})

	// PenaltyBox metrics
	m.penaltyBoxTripsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "jwtverify_penalty_box_trips_total",
		Help: "Total times a caller was turned away by the penalty box",
	}, []string{"jwks_uri"})

	return m
}

// RecordVerification records the outcome and duration of a verification
// attempt.
func (m *Metrics) RecordVerification(result string, durationSeconds float64) {
	if !m.enabled {
		return
	}
	m.verifyRequestsTotal.WithLabelValues(result).Inc()
	m.verifyDuration.Observe(durationSeconds)
}

// RecordAlgorithmUsage records which signing algorithm a verified token used.
func (m *Metrics) RecordAlgorithmUsage(alg string) {
	if !m.enabled {
		return
	}
	m.algorithmUsageTotal.WithLabelValues(alg).Inc()
}

// RecordCacheHit records a JWKS cache hit for the given JWKS URI.
func (m *Metrics) RecordCacheHit(jwksURI string) {
	if !m.enabled {
		return
	}
	m.cacheHitsTotal.WithLabelValues(jwksURI).Inc()
}

// RecordCacheMiss records a JWKS cache miss for the given JWKS URI.
func (m *Metrics) RecordCacheMiss(jwksURI string) {
	if !m.enabled {
		return
	}
	m.cacheMissTotal.WithLabelValues(jwksURI).Inc()
}

// RecordFetch records a JWKS fetch attempt's outcome ("success" or
// "failure") for the given JWKS URI.
func (m *Metrics) RecordFetch(jwksURI, outcome string) {
	if !m.enabled {
		return
	}
	m.jwksFetchTotal.WithLabelValues(jwksURI, outcome).Inc()
}

// SetCacheSize sets the current number of keys cached for a JWKS URI.
func (m *Metrics) SetCacheSize(jwksURI string, size float64) {
	if !m.enabled {
		return
	}
	m.cacheEntriesTotal.WithLabelValues(jwksURI).Set(size)
}

// RecordPenaltyBoxTrip records a caller being turned away by the penalty
// box for the given JWKS URI.
func (m *Metrics) RecordPenaltyBoxTrip(jwksURI string) {
	if !m.enabled {
		return
	}
	m.penaltyBoxTripsTotal.WithLabelValues(jwksURI).Inc()
}
