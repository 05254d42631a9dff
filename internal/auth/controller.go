// Package auth orchestrates the OAuth token lifecycle: interactive
// sign-in with domain verification, the check-and-refresh access gate,
// and sign-out with best-effort revocation.
//
// State machine: SignedOut -> Authenticating -> SignedIn -> (Expired)
// -> SignedIn|SignedOut. The state lives entirely in the token store:
// a record present means SignedIn, absent means SignedOut.
//
// Concurrent calls to the access gate while a refresh is in flight are
// not deduplicated: both write fully-formed records and the last write
// wins, and the broker treats the duplicate mint as idempotent.
package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/lioncrest/paneld/internal/config"
	"github.com/lioncrest/paneld/internal/logging"
	"github.com/lioncrest/paneld/internal/tokenstore"
)

// ErrNotAuthenticated is returned by the access gate when no usable
// credential exists and silent refresh could not produce one.
var ErrNotAuthenticated = errors.New("not_authenticated")

// DomainRejectionError reports a sign-in by an account outside the
// allow-list.
type DomainRejectionError struct {
	Email   string
	Allowed []string
}

func (e *DomainRejectionError) Error() string {
	return fmt.Sprintf("account %s is not in an allowed domain (%s)",
		e.Email, strings.Join(e.Allowed, ", "))
}

// Controller owns the token lifecycle.
type Controller struct {
	broker     Broker
	store      tokenstore.Store
	logger     *logging.Logger
	httpClient *http.Client

	allowedDomains map[string]bool
	tokenLifetime  time.Duration
	userinfoURL    string
	revokeURL      string

	now func() time.Time
}

// NewController creates a controller from config.
func NewController(broker Broker, store tokenstore.Store, cfg config.AuthConfig, logger *logging.Logger) (*Controller, error) {
	if broker == nil {
		return nil, fmt.Errorf("broker is required")
	}
	if store == nil {
		return nil, fmt.Errorf("token store is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if len(cfg.AllowedDomains) == 0 {
		return nil, fmt.Errorf("at least one allowed domain is required")
	}

	allowed := make(map[string]bool, len(cfg.AllowedDomains))
	for _, d := range cfg.AllowedDomains {
		allowed[strings.ToLower(strings.TrimSpace(d))] = true
	}

	lifetime := cfg.TokenLifetime.Duration()
	if lifetime <= 0 {
		lifetime = config.DefaultTokenLifetime
	}

	return &Controller{
		broker:         broker,
		store:          store,
		logger:         logger.Named("auth"),
		httpClient:     &http.Client{Timeout: 30 * time.Second},
		allowedDomains: allowed,
		tokenLifetime:  lifetime,
		userinfoURL:    cfg.UserinfoURL,
		revokeURL:      cfg.RevokeURL,
		now:            time.Now,
	}, nil
}

// SignIn runs the interactive sign-in flow and returns the verified
// account email.
//
// Domain verification is mandatory before anything is persisted: a
// valid token for an account outside the allow-list is revoked at both
// layers and never reaches the store. Broker failures (user cancel,
// broker error) surface verbatim.
func (c *Controller) SignIn(ctx context.Context) (string, error) {
	token, err := c.broker.GetToken(ctx, true)
	if err != nil {
		c.logger.Info(ctx, "interactive sign-in failed", zap.Error(err))
		return "", err
	}

	profile, err := fetchProfile(ctx, c.userinfoURL, token)
	if err != nil {
		// Verification cannot be skipped, so an unreachable profile
		// endpoint is a hard auth failure. Drop the minted token so a
		// retry starts clean.
		if removeErr := c.broker.RemoveCachedToken(ctx, token); removeErr != nil {
			c.logger.Warn(ctx, "failed to drop cached token after profile failure", zap.Error(removeErr))
		}
		return "", fmt.Errorf("verify account: %w", err)
	}

	if !c.domainAllowed(profile) {
		domainRejections.Inc()
		c.logger.Warn(ctx, "sign-in rejected: domain not allowed",
			zap.String("email", profile.Email),
			zap.String("hosted_domain", profile.HostedDomain))

		c.revokeEverywhere(ctx, token)
		if err := c.store.Clear(ctx); err != nil {
			c.logger.Warn(ctx, "failed to clear store after domain rejection", zap.Error(err))
		}
		return "", &DomainRejectionError{Email: profile.Email, Allowed: c.allowedList()}
	}

	rec := tokenstore.Record{
		AccessToken: token,
		ExpiresAt:   c.now().Add(c.tokenLifetime),
		Email:       profile.Email,
	}
	if err := c.store.Save(ctx, rec); err != nil {
		return "", fmt.Errorf("persist token record: %w", err)
	}

	c.logger.Info(ctx, "signed in", zap.String("email", profile.Email))
	return profile.Email, nil
}

// AccessToken is the check-and-refresh gate. Callers never read the
// store directly: an unexpired record is returned as-is, a stale one
// triggers exactly one silent refresh. A failed refresh clears the
// store and reports ErrNotAuthenticated; the gate never prompts
// interactively.
func (c *Controller) AccessToken(ctx context.Context) (string, error) {
	rec, err := c.store.Load(ctx)
	if err != nil {
		return "", fmt.Errorf("load token record: %w", err)
	}
	if rec == nil {
		return "", ErrNotAuthenticated
	}

	if !rec.Expired(c.now()) {
		return rec.AccessToken, nil
	}

	silentRefreshes.Inc()
	token, err := c.broker.GetToken(ctx, false)
	if err != nil {
		refreshFailures.Inc()
		c.logger.Info(ctx, "silent refresh failed", zap.Error(err))
		// Never leave a stale record behind.
		if clearErr := c.store.Clear(ctx); clearErr != nil {
			c.logger.Warn(ctx, "failed to clear stale token record", zap.Error(clearErr))
		}
		return "", ErrNotAuthenticated
	}

	renewed := tokenstore.Record{
		AccessToken: token,
		ExpiresAt:   c.now().Add(c.tokenLifetime),
		Email:       rec.Email,
	}
	if err := c.store.Save(ctx, renewed); err != nil {
		return "", fmt.Errorf("persist renewed token record: %w", err)
	}

	c.logger.Debug(ctx, "silent refresh succeeded", zap.String("email", rec.Email))
	return token, nil
}

// Status reports whether a session exists and for which account.
func (c *Controller) Status(ctx context.Context) (bool, string, error) {
	rec, err := c.store.Load(ctx)
	if err != nil {
		return false, "", fmt.Errorf("load token record: %w", err)
	}
	if rec == nil {
		return false, "", nil
	}
	return true, rec.Email, nil
}

// SignOut revokes the current token at both layers (best effort) and
// clears the store unconditionally. Idempotent: signing out while
// signed out succeeds.
func (c *Controller) SignOut(ctx context.Context) error {
	rec, err := c.store.Load(ctx)
	if err != nil {
		c.logger.Warn(ctx, "load token record during sign-out", zap.Error(err))
	}
	if rec != nil {
		c.revokeEverywhere(ctx, rec.AccessToken)
	}

	if err := c.store.Clear(ctx); err != nil {
		return fmt.Errorf("clear token record: %w", err)
	}

	c.logger.Info(ctx, "signed out")
	return nil
}

// domainAllowed checks the email's domain and the optional
// workspace-domain claim against the allow-list, case-insensitively.
func (c *Controller) domainAllowed(profile Profile) bool {
	if at := strings.LastIndex(profile.Email, "@"); at >= 0 {
		if c.allowedDomains[strings.ToLower(profile.Email[at+1:])] {
			return true
		}
	}
	if profile.HostedDomain != "" && c.allowedDomains[strings.ToLower(profile.HostedDomain)] {
		return true
	}
	return false
}

func (c *Controller) allowedList() []string {
	out := make([]string, 0, len(c.allowedDomains))
	for d := range c.allowedDomains {
		out = append(out, d)
	}
	return out
}

// revokeEverywhere revokes the token at the platform layer (broker
// cache) and the identity provider (revoke endpoint). Both are
// best-effort: failures are counted and logged, never propagated, so a
// revoke outage cannot block local cleanup.
func (c *Controller) revokeEverywhere(ctx context.Context, token string) {
	if err := c.broker.RemoveCachedToken(ctx, token); err != nil {
		revokeFailures.WithLabelValues("platform").Inc()
		c.logger.Warn(ctx, "platform token revoke failed", zap.Error(err))
	}

	if c.revokeURL == "" {
		return
	}
	form := url.Values{"token": {token}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.revokeURL,
		strings.NewReader(form.Encode()))
	if err != nil {
		revokeFailures.WithLabelValues("provider").Inc()
		c.logger.Warn(ctx, "build provider revoke request", zap.Error(err))
		return
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		revokeFailures.WithLabelValues("provider").Inc()
		c.logger.Warn(ctx, "provider token revoke failed", zap.Error(err))
		return
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 400 {
		revokeFailures.WithLabelValues("provider").Inc()
		c.logger.Warn(ctx, "provider token revoke rejected",
			zap.Int("status", resp.StatusCode))
	}
}
