package session

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound is returned when no live record exists for the identity.
	ErrNotFound = errors.New("session not found")
	// ErrUnavailable is returned when the backing store cannot be reached in time.
	ErrUnavailable = errors.New("session store unavailable")
	// ErrCorrupt is returned when a stored record cannot be decoded.
	ErrCorrupt = errors.New("session record corrupt")
)

// Store maps an identity to its single active encrypted refresh token.
//
// Put overwrites any previous record atomically. Delete is idempotent.
// DeleteIfMatch removes the record only while it still holds
// encryptedRefresh, and reports whether it removed anything.
type Store interface {
	Put(ctx context.Context, identity, encryptedRefresh string, ttl time.Duration) error
	Get(ctx context.Context, identity string) (string, error)
	Delete(ctx context.Context, identity string) error
	DeleteIfMatch(ctx context.Context, identity, encryptedRefresh string) (bool, error)
}
