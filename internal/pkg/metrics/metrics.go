package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	LatencyBucket = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "polyrelay_latency_bucket",
		Help:    "Request latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"endpoint", "status"})

	// DispatchAttempts counts every outbound attempt by route (direct/proxied)
	// and outcome (ok, blocked, error).
	DispatchAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "polyrelay_dispatch_attempts_total",
		Help: "Outbound dispatch attempts by route and outcome",
	}, []string{"route", "outcome"})

	// RPCFailures is labelled by ladder position, never by URL.
	RPCFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "polyrelay_rpc_failures_total",
		Help: "RPC endpoint failures that advanced the fallback ladder",
	}, []string{"endpoint"})

	SignerFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "polyrelay_signer_failures_total",
		Help: "Request signing failures",
	}, []string{"kind"})

	ServerTimeFallbacks = promauto.NewCounter(prometheus.CounterOpts{
		Name: "polyrelay_server_time_fallbacks_total",
		Help: "Times the local clock was used because the upstream /time call failed",
	})
)
