package extraction

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	extractionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "paneld_extractions_total",
		Help: "Successful extractions, by schema type.",
	}, []string{"schema"})

	extractionFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "paneld_extraction_failures_total",
		Help: "Failed extractions, by schema type and failure stage.",
	}, []string{"schema", "stage"})

	extractionDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "paneld_extraction_duration_seconds",
		Help:    "End-to-end extraction latency, by schema type.",
		Buckets: prometheus.DefBuckets,
	}, []string{"schema"})
)
