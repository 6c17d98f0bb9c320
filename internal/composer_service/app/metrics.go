package app

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	compositionsCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "composer",
			Name:      "compositions_total",
			Help:      "Total greeting compositions by outcome.",
		},
		[]string{"generator", "status"}, // status: success, error_generator, error_output
	)

	generatorRequestDurationHist = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "composer",
			Name:      "generator_request_duration_seconds",
			Help:      "Duration of requests to the text generator.",
			Buckets:   []float64{0.5, 1, 2.5, 5, 10, 20, 40, 80},
		},
		[]string{"generator"},
	)

	shortBodyOverLimitCounter = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "composer",
			Name:      "short_body_over_limit_total",
			Help:      "Generated SMS bodies longer than the advisory limit.",
		},
	)
)
