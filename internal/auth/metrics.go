// internal/auth/metrics.go
package auth

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// revokeFailures is the monitoring hook for swallowed revoke
	// errors: revocation is best-effort by design, so this counter is
	// the only place those failures surface.
	revokeFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "paneld_token_revoke_failures_total",
		Help: "Token revocations that failed, by layer (platform or provider).",
	}, []string{"layer"})

	silentRefreshes = promauto.NewCounter(prometheus.CounterOpts{
		Name: "paneld_silent_refreshes_total",
		Help: "Silent refresh attempts triggered by the access gate.",
	})

	refreshFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "paneld_silent_refresh_failures_total",
		Help: "Silent refreshes that failed and cleared the token store.",
	})

	domainRejections = promauto.NewCounter(prometheus.CounterOpts{
		Name: "paneld_domain_rejections_total",
		Help: "Sign-ins rejected because the account domain is not allowed.",
	})
)
