package metrics

import (
	"testing"
)

// Global metrics instance (reused across enabled tests to avoid Prometheus registry conflicts)
var globalMetrics *Metrics

func init() {
	globalMetrics = New(true)
}

func TestMetricsEnabled(t *testing.T) {
	if globalMetrics == nil {
		t.Fatal("metrics should not be nil")
	}
}

func TestMetricsDisabled(t *testing.T) {
	metrics := New(false)

	if metrics == nil {
		t.Fatal("metrics should not be nil (noop)")
	}

	// These should not panic even though they're noop
	metrics.RecordVerification("success", 0.001)
	metrics.RecordAlgorithmUsage("RS256")
	metrics.RecordCacheHit("https://issuer.example/jwks.json")
	metrics.RecordCacheMiss("https://issuer.example/jwks.json")
	metrics.RecordFetch("https://issuer.example/jwks.json", "success")
	metrics.SetCacheSize("https://issuer.example/jwks.json", 3)
	metrics.RecordPenaltyBoxTrip("https://issuer.example/jwks.json")
}

func TestRecordVerification(t *testing.T) {
	// Should not panic
	globalMetrics.RecordVerification("success", 0.001)
	globalMetrics.RecordVerification("expired", 0.002)
	globalMetrics.RecordVerification("invalid_signature", 0.0005)
}

func TestRecordAlgorithmUsage(t *testing.T) {
	// Should not panic
	globalMetrics.RecordAlgorithmUsage("RS256")
	globalMetrics.RecordAlgorithmUsage("ES256")
	globalMetrics.RecordAlgorithmUsage("EdDSA")
}

func TestRecordCacheMetrics(t *testing.T) {
	// Should not panic
	globalMetrics.RecordCacheHit("https://a.example/jwks.json")
	globalMetrics.RecordCacheHit("https://b.example/jwks.json")
	globalMetrics.RecordCacheMiss("https://c.example/jwks.json")
	globalMetrics.SetCacheSize("https://a.example/jwks.json", 2)
	globalMetrics.SetCacheSize("https://b.example/jwks.json", 5)
}

func TestRecordFetch(t *testing.T) {
	// Should not panic
	globalMetrics.RecordFetch("https://a.example/jwks.json", "success")
	globalMetrics.RecordFetch("https://a.example/jwks.json", "failure")
}

func TestRecordPenaltyBoxTrip(t *testing.T) {
	// Should not panic
	globalMetrics.RecordPenaltyBoxTrip("https://a.example/jwks.json")
	globalMetrics.RecordPenaltyBoxTrip("https://b.example/jwks.json")
}

func TestNoopMetrics(t *testing.T) {
	metrics := New(false)

	tests := []func(){
		func() { metrics.RecordVerification("success", 0.001) },
		func() { metrics.RecordAlgorithmUsage("RS256") },
		func() { metrics.RecordCacheHit("uri") },
		func() { metrics.RecordCacheMiss("uri") },
		func() { metrics.RecordFetch("uri", "success") },
		func() { metrics.SetCacheSize("uri", 10) },
		func() { metrics.RecordPenaltyBoxTrip("uri") },
	}

	for _, test := range tests {
		test() // Should not panic
	}
}

func TestMultipleJwksURIs(t *testing.T) {
	uris := []string{
		"https://issuer-a.example/jwks.json",
		"https://issuer-b.example/jwks.json",
		"https://issuer-c.example/jwks.json",
	}

	for _, uri := range uris {
		globalMetrics.RecordCacheHit(uri)
		globalMetrics.RecordCacheMiss(uri)
		globalMetrics.SetCacheSize(uri, float64(len(uri)))
	}
}

func TestMultipleAlgorithms(t *testing.T) {
	algs := []string{"RS256", "RS384", "RS512", "PS256", "ES256", "ES384", "ES512", "EdDSA"}

	for _, alg := range algs {
		globalMetrics.RecordAlgorithmUsage(alg)
	}
}
