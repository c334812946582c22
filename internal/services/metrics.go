package services

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	claimsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dragon_claims_total",
			Help: "Total number of treasure claims by outcome.",
		},
		[]string{"outcome"},
	)

	claimDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "dragon_claim_duration_seconds",
		Help:    "Time from submission to a classified claim outcome.",
		Buckets: []float64{1, 5, 10, 30, 60, 120, 240, 480},
	})

	receiptRefetchesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "dragon_receipt_refetches_total",
		Help: "Total number of full transaction refetches after an undecodable receipt.",
	})

	statsReadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dragon_stats_reads_total",
			Help: "Total number of get_stats reads by status.",
		},
		[]string{"status"},
	)
)
