package bridge

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var bridgeErrors = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "paneld_bridge_errors_total",
	Help: "Failed bridge round trips, by subject.",
}, []string{"subject"})
