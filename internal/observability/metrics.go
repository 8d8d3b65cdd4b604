// Package observability provides Prometheus metrics and HTTP middleware
// for monitoring the relay.
package observability

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

// LLMBuckets defines histogram buckets suited for text generation latencies,
// ranging from 100ms to 120s.
var LLMBuckets = []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120}

var (
	// RequestsTotal counts all HTTP requests by method, route and status class.
	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pollinate_requests_total",
			Help: "Total requests",
		},
		[]string{"method", "route", "status"},
	)

	// RequestDuration records HTTP request duration in seconds.
	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pollinate_request_duration_seconds",
			Help:    "Request duration",
			Buckets: LLMBuckets,
		},
		[]string{"method", "route"},
	)

	// UpstreamRequestsTotal counts calls to the upstream API by kind and outcome.
	UpstreamRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pollinate_upstream_requests_total",
			Help: "Upstream requests",
		},
		[]string{"kind", "status"},
	)

	// UpstreamLatency records time to upstream response headers in seconds.
	UpstreamLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pollinate_upstream_latency_seconds",
			Help:    "Upstream latency",
			Buckets: LLMBuckets,
		},
		[]string{"kind"},
	)

	// ActiveRelays tracks relays whose output stream is still open.
	ActiveRelays = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "pollinate_relays_active",
			Help: "Open relay streams",
		},
	)

	// RelaysTotal counts finished relays by mode (sse, buffered) and final state.
	RelaysTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pollinate_relays_total",
			Help: "Finished relays",
		},
		[]string{"mode", "state"},
	)

	// RelayChunksTotal counts chunks emitted to callers.
	RelayChunksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pollinate_relay_chunks_total",
			Help: "Relayed chunks",
		},
		[]string{"mode"},
	)

	// MediaCacheLookups counts media preprocessing cache lookups by result.
	MediaCacheLookups = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pollinate_media_cache_lookups_total",
			Help: "Media cache lookups",
		},
		[]string{"op", "result"},
	)
)

func init() {
	prometheus.MustRegister(
		RequestsTotal,
		RequestDuration,
		UpstreamRequestsTotal,
		UpstreamLatency,
		ActiveRelays,
		RelaysTotal,
		RelayChunksTotal,
		MediaCacheLookups,
	)
}

// StatusClass returns a label like "2xx" for an HTTP status code,
// or "error" when no response was received.
func StatusClass(code int) string {
	if code <= 0 {
		return "error"
	}
	return strconv.Itoa(code/100) + "xx"
}
