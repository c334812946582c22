package handlers

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	relayRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "genlayer_relay_requests_total",
			Help: "Total number of relayed JSON-RPC requests by method and status.",
		},
		[]string{"method", "status"},
	)

	relayDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "genlayer_relay_duration_seconds",
			Help:    "Upstream round trip time of relayed JSON-RPC requests.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method"},
	)
)
