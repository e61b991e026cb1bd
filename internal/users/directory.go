// Package users is an in-memory authguard.UserProvider for the demo
// server, the load generator and the examples.
package users

import (
	"context"
	"fmt"
	"sync"

	"github.com/MrEthical07/authguard"
)

// Hasher is satisfied by *authguard.Engine.
type Hasher interface {
	HashPassword(plain string) (string, error)
}

// Directory maps identifiers to user records.
type Directory struct {
	mu      sync.RWMutex
	byID    map[string]authguard.UserRecord
	byIdent map[string]string
}

var _ authguard.UserProvider = (*Directory)(nil)

func NewDirectory() *Directory {
	return &Directory{
		byID:    make(map[string]authguard.UserRecord),
		byIdent: make(map[string]string),
	}
}

// Put inserts or replaces u.
func (d *Directory) Put(u authguard.UserRecord) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if prev, ok := d.byID[u.UserID]; ok && prev.Identifier != u.Identifier {
		delete(d.byIdent, prev.Identifier)
	}
	d.byID[u.UserID] = u
	d.byIdent[u.Identifier] = u.UserID
}

// Add hashes plain with h and stores the user. The token details carry the
// user id and identifier.
func (d *Directory) Add(h Hasher, id, identifier, plain string) error {
	hash, err := h.HashPassword(plain)
	if err != nil {
		return fmt.Errorf("hash password for %s: %w", id, err)
	}
	d.Put(authguard.UserRecord{
		UserID:       id,
		Identifier:   identifier,
		PasswordHash: hash,
		Details:      map[string]any{"user_id": id, "identifier": identifier},
	})
	return nil
}

func (d *Directory) GetUserByIdentifier(_ context.Context, identifier string) (authguard.UserRecord, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	id, ok := d.byIdent[identifier]
	if !ok {
		return authguard.UserRecord{}, authguard.ErrUserNotFound
	}
	return d.byID[id], nil
}

func (d *Directory) UpdatePasswordHash(_ context.Context, userID, newHash string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	u, ok := d.byID[userID]
	if !ok {
		return authguard.ErrUserNotFound
	}
	u.PasswordHash = newHash
	d.byID[userID] = u
	return nil
}

// Len reports the number of users.
func (d *Directory) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.byID)
}
