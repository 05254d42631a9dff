// internal/auth/broker.go
package auth

import "context"

// Broker is the platform identity broker that mints access tokens for
// the signed-in browser profile. Implemented over the browser bridge;
// faked in tests.
//
// Tokens from this broker carry no refresh token and no reported
// expiry: "silent refresh" is another GetToken call with interactive
// false, and expiry is assumed by the caller.
type Broker interface {
	// GetToken obtains an access token. When interactive is true the
	// broker may prompt the user; when false it must not.
	GetToken(ctx context.Context, interactive bool) (string, error)
	// RemoveCachedToken drops the broker's cached copy of the token so
	// the next GetToken mints a fresh one.
	RemoveCachedToken(ctx context.Context, token string) error
}
