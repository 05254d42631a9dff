// Package tokenstore persists the single cached OAuth credential.
//
// The store is all-or-nothing: one fully-formed record under one fixed
// location, overwritten wholesale and cleared wholesale. Concurrent
// writers are tolerated because every write is a complete record; the
// last write wins.
package tokenstore

import (
	"context"
	"time"
)

// Record is the authenticated session.
type Record struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token,omitempty"`
	ExpiresAt    time.Time `json:"expires_at"`
	Email        string    `json:"email"`
}

// Expired reports whether the record is stale at the given instant.
// ExpiresAt is the authoritative expiry: a record expiring even 1ms
// from now is still usable.
func (r Record) Expired(now time.Time) bool {
	return !now.Before(r.ExpiresAt)
}

// Store persists at most one Record.
type Store interface {
	// Save overwrites the stored record.
	Save(ctx context.Context, rec Record) error
	// Load returns the stored record, or nil if absent.
	Load(ctx context.Context) (*Record, error)
	// Clear removes the stored record. Clearing an empty store is not
	// an error.
	Clear(ctx context.Context) error
}
