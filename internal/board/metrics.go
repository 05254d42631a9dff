package board

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	boardRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "paneld_board_requests_total",
		Help: "Board API requests, by operation.",
	}, []string{"operation"})

	boardErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "paneld_board_errors_total",
		Help: "Failed board API requests, by operation.",
	}, []string{"operation"})
)
