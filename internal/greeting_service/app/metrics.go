package app

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	batchesCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "greetings",
			Name:      "batches_total",
			Help:      "Total batches run, by mode and outcome.",
		},
		[]string{"mode", "status"}, // status: completed, cancelled, error_select
	)

	candidatesCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "greetings",
			Name:      "candidates_total",
			Help:      "Per-recipient outcomes across all batches.",
		},
		[]string{"mode", "status", "stage"},
	)

	batchDurationHist = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "greetings",
			Name:      "batch_duration_seconds",
			Help:      "Duration of whole batches.",
			Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600, 1200},
		},
		[]string{"mode"},
	)
)
