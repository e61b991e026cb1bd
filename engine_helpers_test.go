package authguard

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/MrEthical07/authguard/cipher"
	"github.com/MrEthical07/authguard/session"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

const testSigningKey = "authguard-test-signing-key-0123456789abcdef"

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func testConfig(t *testing.T) Config {
	t.Helper()
	key, err := cipher.GenerateKey()
	if err != nil {
		t.Fatalf("cipher key: %v", err)
	}

	cfg := DefaultConfig()
	cfg.JWT.SigningKey = []byte(testSigningKey)
	cfg.Cipher.Key = key
	cfg.Password.Memory = 8 * 1024
	cfg.Password.Time = 1
	cfg.Password.Parallelism = 1
	cfg.Password.BcryptCost = 4
	cfg.Metrics.Enabled = true
	cfg.Audit.Enabled = true
	return cfg
}

type engineFixture struct {
	engine *Engine
	mr     *miniredis.Miniredis
	rdb    *redis.Client
	clock  *testClock
	cipher *cipher.Cipher
	audit  *ChannelSink
}

type fixtureOption func(*Builder)

func newEngineFixture(t *testing.T, cfg Config, opts ...fixtureOption) *engineFixture {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis start: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:       mr.Addr(),
		MaxRetries: -1,
	})
	clock := newTestClock()

	c, err := cipher.New(cfg.Cipher.Key)
	if err != nil {
		t.Fatalf("cipher: %v", err)
	}

	sink := NewChannelSink(256)
	b := New().
		WithConfig(cfg).
		WithRedis(rdb).
		WithAuditSink(sink).
		WithClock(clock.Now).
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
	for _, opt := range opts {
		opt(b)
	}

	engine, err := b.Build()
	if err != nil {
		t.Fatalf("build: %v", err)
	}

	t.Cleanup(func() {
		engine.Close()
		rdb.Close()
		mr.Close()
	})

	return &engineFixture{engine: engine, mr: mr, rdb: rdb, clock: clock, cipher: c, audit: sink}
}

func newMemoryStoreForTest(clock *testClock) *session.MemoryStore {
	return session.NewMemoryStore(clock.Now)
}

// storedRefresh decrypts the raw session record for identity.
func (f *engineFixture) storedRefresh(t *testing.T, identity string) string {
	t.Helper()
	raw, err := f.mr.Get("USER:" + identity)
	if err != nil {
		t.Fatalf("session record for %s: %v", identity, err)
	}
	const prefix, suffix = `{"refresh_token":"`, `"}`
	if len(raw) < len(prefix)+len(suffix) {
		t.Fatalf("unexpected record %q", raw)
	}
	plain, err := f.cipher.DecryptString(raw[len(prefix) : len(raw)-len(suffix)])
	if err != nil {
		t.Fatalf("decrypt record: %v", err)
	}
	return plain
}

func (f *engineFixture) drainAudit() []AuditEvent {
	var out []AuditEvent
	deadline := time.After(time.Second)
	for {
		select {
		case ev := <-f.audit.Events():
			out = append(out, ev)
		case <-time.After(50 * time.Millisecond):
			return out
		case <-deadline:
			return out
		}
	}
}

type mockUserProvider struct {
	mu      sync.Mutex
	users   map[string]UserRecord
	updated map[string]string
}

func newMockUserProvider() *mockUserProvider {
	return &mockUserProvider{
		users:   map[string]UserRecord{},
		updated: map[string]string{},
	}
}

func (m *mockUserProvider) add(rec UserRecord) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[rec.Identifier] = rec
}

func (m *mockUserProvider) GetUserByIdentifier(_ context.Context, identifier string) (UserRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.users[identifier]
	if !ok {
		return UserRecord{}, ErrUserNotFound
	}
	return rec, nil
}

func (m *mockUserProvider) UpdatePasswordHash(_ context.Context, userID, newHash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, rec := range m.users {
		if rec.UserID == userID {
			rec.PasswordHash = newHash
			m.users[id] = rec
			m.updated[userID] = newHash
			return nil
		}
	}
	return errors.New("unknown user")
}

func (m *mockUserProvider) hashFor(identifier string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.users[identifier].PasswordHash
}
