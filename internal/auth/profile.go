// internal/auth/profile.go
package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"golang.org/x/oauth2"
)

const maxProfileResponseBytes = 1 << 20

// Profile is the authenticated user's identity as reported by the
// userinfo endpoint. HostedDomain is the optional workspace-domain
// claim.
type Profile struct {
	Email        string `json:"email"`
	HostedDomain string `json:"hd"`
}

// fetchProfile fetches the userinfo profile using the given token.
func fetchProfile(ctx context.Context, userinfoURL, token string) (Profile, error) {
	client := oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{
		AccessToken: token,
	}))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, userinfoURL, nil)
	if err != nil {
		return Profile{}, fmt.Errorf("create userinfo request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return Profile{}, fmt.Errorf("fetch userinfo: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return Profile{}, fmt.Errorf("userinfo endpoint returned status %d", resp.StatusCode)
	}

	var profile Profile
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxProfileResponseBytes)).Decode(&profile); err != nil {
		return Profile{}, fmt.Errorf("decode userinfo response: %w", err)
	}
	if profile.Email == "" {
		return Profile{}, fmt.Errorf("userinfo response missing email")
	}

	return profile, nil
}
