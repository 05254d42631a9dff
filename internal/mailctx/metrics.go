// internal/mailctx/metrics.go
package mailctx

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	contextChanges = promauto.NewCounter(prometheus.CounterOpts{
		Name: "paneld_context_changes_total",
		Help: "Number of thread-context changes broadcast to panel surfaces.",
	})

	resolveFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "paneld_thread_resolve_failures_total",
		Help: "Number of DOM thread resolutions that failed and collapsed to an empty result.",
	})
)
