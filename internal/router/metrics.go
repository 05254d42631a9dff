package router

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	messagesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "paneld_messages_total",
		Help: "Total panel messages dispatched, by type.",
	}, []string{"type"})

	messageErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "paneld_message_errors_total",
		Help: "Panel messages whose handler returned an error, by type.",
	}, []string{"type"})

	handlerPanics = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "paneld_message_panics_total",
		Help: "Panel messages whose handler panicked, by type.",
	}, []string{"type"})
)
