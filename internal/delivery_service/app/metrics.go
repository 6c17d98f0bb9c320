package app

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	deliverySendsCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "delivery",
			Name:      "sends_total",
			Help:      "Total email send attempts by outcome.",
		},
		[]string{"provider_name", "status"}, // status: success, error_address, error_provider, panic
	)

	deliveryProviderRequestDurationHist = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "delivery",
			Name:      "provider_request_duration_seconds",
			Help:      "Duration of send requests to the mail provider.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"provider_name"},
	)
)
