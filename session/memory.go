package session

import (
	"context"
	"errors"
	"sync"
	"time"
)

type memoryEntry struct {
	value     string
	expiresAt time.Time
}

// MemoryStore is an in-process Store for development and tests. Expired
// entries are dropped lazily on access.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	now     func() time.Time
}

// NewMemoryStore returns an empty MemoryStore. A nil now uses time.Now.
func NewMemoryStore(now func() time.Time) *MemoryStore {
	if now == nil {
		now = time.Now
	}
	return &MemoryStore{entries: make(map[string]memoryEntry), now: now}
}

func (s *MemoryStore) Put(ctx context.Context, identity, encryptedRefresh string, ttl time.Duration) error {
	if err := ctx.Err(); err != nil {
		return errors.Join(ErrUnavailable, err)
	}
	if identity == "" {
		return errors.New("session identity is required")
	}
	if ttl <= 0 {
		return errors.New("session ttl must be positive")
	}
	if encryptedRefresh == "" {
		return ErrCorrupt
	}

	s.mu.Lock()
	s.entries[identity] = memoryEntry{value: encryptedRefresh, expiresAt: s.now().Add(ttl)}
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Get(ctx context.Context, identity string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", errors.Join(ErrUnavailable, err)
	}

	s.mu.RLock()
	entry, ok := s.entries[identity]
	s.mu.RUnlock()

	if !ok {
		return "", ErrNotFound
	}
	if !s.now().Before(entry.expiresAt) {
		s.mu.Lock()
		if cur, ok := s.entries[identity]; ok && cur == entry {
			delete(s.entries, identity)
		}
		s.mu.Unlock()
		return "", ErrNotFound
	}
	return entry.value, nil
}

func (s *MemoryStore) Delete(ctx context.Context, identity string) error {
	if err := ctx.Err(); err != nil {
		return errors.Join(ErrUnavailable, err)
	}

	s.mu.Lock()
	delete(s.entries, identity)
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) DeleteIfMatch(ctx context.Context, identity, encryptedRefresh string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, errors.Join(ErrUnavailable, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[identity]
	if !ok || entry.value != encryptedRefresh {
		return false, nil
	}
	delete(s.entries, identity)
	return true, nil
}

// Len returns the number of live records.
func (s *MemoryStore) Len() int {
	now := s.now()
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := 0
	for _, e := range s.entries {
		if now.Before(e.expiresAt) {
			n++
		}
	}
	return n
}
