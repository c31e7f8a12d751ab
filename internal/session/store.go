package session

import (
	"context"
	"errors"
)

var (
	// ErrNotFound is returned for unknown session IDs.
	ErrNotFound = errors.New("session not found")

	// ErrExpired is returned for sessions past their TTL.
	ErrExpired = errors.New("session expired")
)

// Store is the keyed session storage used by the auth flow and the gateway.
//
// Implementations hand out copies: a *Session returned by Get or Create is
// detached from the stored value, and changes are persisted only through
// Update. Update calls for the same ID are serialized.
type Store interface {
	// Create starts a new anonymous session.
	Create(ctx context.Context) (*Session, error)

	// Get returns a copy of the session.
	Get(ctx context.Context, id string) (*Session, error)

	// Update applies fn to the stored session under the per-key write lock.
	// If fn returns an error the session is left unchanged.
	Update(ctx context.Context, id string, fn func(*Session) error) error

	// Destroy removes the session. Destroying an unknown ID is not an error.
	Destroy(ctx context.Context, id string) error
}
