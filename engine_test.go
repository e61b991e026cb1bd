package authguard

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/MrEthical07/authguard/jwt"
	"github.com/MrEthical07/authguard/session"
)

func TestLoginIssuesPairThatValidates(t *testing.T) {
	f := newEngineFixture(t, testConfig(t))
	ctx := context.Background()

	pair, err := f.engine.Login(ctx, "u-1", map[string]any{"user_id": "u-1", "role": "admin"})
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if pair.AccessToken == "" || pair.RefreshToken == "" || pair.AccessToken == pair.RefreshToken {
		t.Fatalf("unexpected pair %+v", pair)
	}

	access, err := f.engine.ValidateAccess(ctx, pair.AccessToken, "u-1")
	if err != nil {
		t.Fatalf("validate access: %v", err)
	}
	if access.Identity != "u-1" || access.TokenType != jwt.TypeAccess {
		t.Fatalf("unexpected access result %+v", access)
	}
	if access.UserDetails["role"] != "admin" {
		t.Fatalf("user details not carried: %+v", access.UserDetails)
	}
	if want := f.clock.Now().Add(15 * time.Minute); !access.ExpiresAt.Equal(want) {
		t.Fatalf("access expiry %v, want %v", access.ExpiresAt, want)
	}

	refresh, err := f.engine.ValidateRefresh(ctx, pair.RefreshToken)
	if err != nil {
		t.Fatalf("validate refresh: %v", err)
	}
	if refresh.Identity != "u-1" || refresh.TokenType != jwt.TypeRefresh || refresh.RawToken != pair.RefreshToken {
		t.Fatalf("unexpected refresh result %+v", refresh)
	}
	if want := f.clock.Now().Add(30 * 24 * time.Hour); !refresh.ExpiresAt.Equal(want) {
		t.Fatalf("refresh expiry %v, want %v", refresh.ExpiresAt, want)
	}

	// Validation is repeatable while the session stands.
	if _, err := f.engine.ValidateRefresh(ctx, pair.RefreshToken); err != nil {
		t.Fatalf("second refresh validation: %v", err)
	}
}

func TestLoginStoresEncryptedRefreshUnderIdentityKey(t *testing.T) {
	f := newEngineFixture(t, testConfig(t))

	pair, err := f.engine.Login(context.Background(), "u-1", nil)
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	if keys := f.mr.Keys(); len(keys) != 1 || keys[0] != "USER:u-1" {
		t.Fatalf("unexpected keys %v", keys)
	}
	raw, _ := f.mr.Get("USER:u-1")
	if raw == pair.RefreshToken || len(raw) == 0 {
		t.Fatal("refresh token must be stored encrypted")
	}
	if got := f.storedRefresh(t, "u-1"); got != pair.RefreshToken {
		t.Fatal("stored record does not decrypt to the issued refresh token")
	}
	if ttl := f.mr.TTL("USER:u-1"); ttl != 30*24*time.Hour {
		t.Fatalf("expected 30d session ttl, got %v", ttl)
	}
}

func TestSecondLoginSupersedesFirstRefresh(t *testing.T) {
	f := newEngineFixture(t, testConfig(t))
	ctx := context.Background()

	first, err := f.engine.Login(ctx, "u-1", nil)
	if err != nil {
		t.Fatalf("first login: %v", err)
	}
	second, err := f.engine.Login(ctx, "u-1", nil)
	if err != nil {
		t.Fatalf("second login: %v", err)
	}

	if _, err := f.engine.ValidateRefresh(ctx, first.RefreshToken); !errors.Is(err, ErrSessionMismatch) {
		t.Fatalf("expected ErrSessionMismatch for superseded token, got %v", err)
	}

	// The mismatch removed the session, so the newest token is gone too.
	if f.mr.Exists("USER:u-1") {
		t.Fatal("session record must be deleted after a mismatch")
	}
	if _, err := f.engine.ValidateRefresh(ctx, second.RefreshToken); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound after invalidation, got %v", err)
	}

	// Access tokens are stateless and keep working until expiry.
	if _, err := f.engine.ValidateAccess(ctx, first.AccessToken, "u-1"); err != nil {
		t.Fatalf("access token should still validate: %v", err)
	}

	snap := f.engine.MetricsSnapshot()
	if snap.Counters[MetricSessionMismatch] != 1 || snap.Counters[MetricSessionInvalidated] != 1 {
		t.Fatalf("unexpected metrics %+v", snap.Counters)
	}
}

func TestLoginAfterInvalidationRestoresSession(t *testing.T) {
	f := newEngineFixture(t, testConfig(t))
	ctx := context.Background()

	first, _ := f.engine.Login(ctx, "u-1", nil)
	if _, err := f.engine.Login(ctx, "u-1", nil); err != nil {
		t.Fatalf("second login: %v", err)
	}
	if _, err := f.engine.ValidateRefresh(ctx, first.RefreshToken); !errors.Is(err, ErrSessionMismatch) {
		t.Fatalf("expected mismatch, got %v", err)
	}

	third, err := f.engine.Login(ctx, "u-1", nil)
	if err != nil {
		t.Fatalf("third login: %v", err)
	}
	if _, err := f.engine.ValidateRefresh(ctx, third.RefreshToken); err != nil {
		t.Fatalf("fresh login should validate: %v", err)
	}
}

func TestSessionsAreIsolatedPerIdentity(t *testing.T) {
	f := newEngineFixture(t, testConfig(t))
	ctx := context.Background()

	a, _ := f.engine.Login(ctx, "alice", nil)
	b, _ := f.engine.Login(ctx, "bob", nil)

	if _, err := f.engine.Login(ctx, "alice", nil); err != nil {
		t.Fatalf("relogin: %v", err)
	}
	if _, err := f.engine.ValidateRefresh(ctx, b.RefreshToken); err != nil {
		t.Fatalf("bob's session must survive alice's relogin: %v", err)
	}
	if _, err := f.engine.ValidateRefresh(ctx, a.RefreshToken); !errors.Is(err, ErrSessionMismatch) {
		t.Fatalf("expected mismatch for alice, got %v", err)
	}
}

func TestConcurrentLoginsLeaveExactlyOneValidRefresh(t *testing.T) {
	f := newEngineFixture(t, testConfig(t))
	ctx := context.Background()

	const n = 16
	pairs := make([]TokenPair, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			p, err := f.engine.Login(ctx, "u-1", nil)
			if err != nil {
				t.Errorf("login %d: %v", i, err)
				return
			}
			pairs[i] = p
		}(i)
	}
	wg.Wait()

	current := f.storedRefresh(t, "u-1")
	winners := 0
	var loser string
	for _, p := range pairs {
		if p.RefreshToken == current {
			winners++
		} else if loser == "" {
			loser = p.RefreshToken
		}
	}
	if winners != 1 {
		t.Fatalf("expected exactly one issued token to be current, got %d", winners)
	}

	if _, err := f.engine.ValidateRefresh(ctx, current); err != nil {
		t.Fatalf("current token must validate: %v", err)
	}
	if _, err := f.engine.ValidateRefresh(ctx, loser); !errors.Is(err, ErrSessionMismatch) {
		t.Fatalf("expected mismatch for a losing token, got %v", err)
	}
}

func TestAccessTokenHijackRejected(t *testing.T) {
	f := newEngineFixture(t, testConfig(t))
	ctx := context.Background()

	pair, _ := f.engine.Login(ctx, "u-1", nil)

	if _, err := f.engine.ValidateAccess(ctx, pair.AccessToken, "u-2"); !errors.Is(err, ErrIdentityMismatch) {
		t.Fatalf("expected ErrIdentityMismatch, got %v", err)
	}
	if _, err := f.engine.ValidateAccess(ctx, pair.AccessToken, ""); err != nil {
		t.Fatalf("no asserted identity should skip the check: %v", err)
	}

	events := f.drainAudit()
	found := false
	for _, ev := range events {
		if ev.EventType == auditEventHijackDetected {
			found = true
			if ev.Identity != "u-1" || ev.Metadata["asserted_identity"] != "u-2" || ev.Reason != "identity_mismatch" {
				t.Fatalf("unexpected hijack event %+v", ev)
			}
		}
	}
	if !found {
		t.Fatal("expected a hijack audit event")
	}
}

func TestExpiryBoundaries(t *testing.T) {
	cfg := testConfig(t)
	cfg.JWT.AccessTTL = time.Minute
	cfg.JWT.RefreshTTL = time.Hour
	f := newEngineFixture(t, cfg)
	ctx := context.Background()

	pair, err := f.engine.Login(ctx, "u-1", nil)
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	f.clock.Advance(59 * time.Second)
	if _, err := f.engine.ValidateAccess(ctx, pair.AccessToken, "u-1"); err != nil {
		t.Fatalf("access valid just before expiry: %v", err)
	}

	f.clock.Advance(time.Second)
	if _, err := f.engine.ValidateAccess(ctx, pair.AccessToken, "u-1"); !errors.Is(err, ErrExpiredToken) {
		t.Fatalf("expected ErrExpiredToken at exp, got %v", err)
	}

	f.clock.Advance(time.Hour)
	if _, err := f.engine.ValidateRefresh(ctx, pair.RefreshToken); !errors.Is(err, ErrExpiredToken) {
		t.Fatalf("expected expired refresh, got %v", err)
	}
	if !f.mr.Exists("USER:u-1") {
		t.Fatal("an expired token must not touch the session record")
	}
}

func TestWrongTokenClassRejected(t *testing.T) {
	f := newEngineFixture(t, testConfig(t))
	ctx := context.Background()

	pair, _ := f.engine.Login(ctx, "u-1", nil)

	_, err := f.engine.ValidateAccess(ctx, pair.RefreshToken, "u-1")
	var typeErr *TokenTypeError
	if !errors.As(err, &typeErr) || !errors.Is(err, ErrWrongTokenType) {
		t.Fatalf("expected TokenTypeError, got %v", err)
	}
	if typeErr.Expected != jwt.TypeAccess || typeErr.Actual != jwt.TypeRefresh {
		t.Fatalf("unexpected type error %+v", typeErr)
	}

	_, err = f.engine.ValidateRefresh(ctx, pair.AccessToken)
	if !errors.As(err, &typeErr) || typeErr.Expected != jwt.TypeRefresh {
		t.Fatalf("expected refresh TokenTypeError, got %v", err)
	}
	if !f.mr.Exists("USER:u-1") {
		t.Fatal("a wrong-class token must not touch the session record")
	}
}

func TestMissingAndForgedTokens(t *testing.T) {
	f := newEngineFixture(t, testConfig(t))
	ctx := context.Background()

	if _, err := f.engine.ValidateAccess(ctx, "", ""); !errors.Is(err, ErrMissingToken) {
		t.Fatalf("expected ErrMissingToken, got %v", err)
	}
	if _, err := f.engine.ValidateRefresh(ctx, ""); !errors.Is(err, ErrMissingToken) {
		t.Fatalf("expected ErrMissingToken, got %v", err)
	}

	other := testConfig(t)
	other.JWT.SigningKey = []byte("a-completely-different-signing-key-0123456789")
	forger := newEngineFixture(t, other)
	forged, err := forger.engine.Login(ctx, "u-1", nil)
	if err != nil {
		t.Fatalf("forger login: %v", err)
	}

	if _, err := f.engine.ValidateAccess(ctx, forged.AccessToken, "u-1"); !errors.Is(err, ErrInvalidSignature) {
		t.Fatalf("expected ErrInvalidSignature, got %v", err)
	}
	if _, err := f.engine.ValidateRefresh(ctx, forged.RefreshToken); !errors.Is(err, ErrInvalidSignature) {
		t.Fatalf("expected ErrInvalidSignature, got %v", err)
	}
	if _, err := f.engine.ValidateAccess(ctx, "not.a.token", ""); !errors.Is(err, ErrInvalidSignature) {
		t.Fatalf("expected ErrInvalidSignature for garbage, got %v", err)
	}
}

func TestRefreshWithoutSession(t *testing.T) {
	f := newEngineFixture(t, testConfig(t))
	ctx := context.Background()

	pair, _ := f.engine.Login(ctx, "u-1", nil)
	f.mr.Del("USER:u-1")

	if _, err := f.engine.ValidateRefresh(ctx, pair.RefreshToken); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestSessionRecordExpiresWithTTL(t *testing.T) {
	cfg := testConfig(t)
	cfg.Session.TTL = time.Hour
	f := newEngineFixture(t, cfg)
	ctx := context.Background()

	pair, _ := f.engine.Login(ctx, "u-1", nil)
	f.mr.FastForward(time.Hour + time.Second)

	if _, err := f.engine.ValidateRefresh(ctx, pair.RefreshToken); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound after record ttl, got %v", err)
	}
}

func TestUndecryptableRecordIsMismatchAndDeleted(t *testing.T) {
	f := newEngineFixture(t, testConfig(t))
	ctx := context.Background()

	pair, _ := f.engine.Login(ctx, "u-1", nil)

	// A record sealed under a rotated key.
	rotated := newEngineFixture(t, testConfig(t))
	if _, err := rotated.engine.Login(ctx, "u-1", nil); err != nil {
		t.Fatalf("rotated login: %v", err)
	}
	raw, _ := rotated.mr.Get("USER:u-1")
	if err := f.mr.Set("USER:u-1", raw); err != nil {
		t.Fatalf("overwrite record: %v", err)
	}

	_, err := f.engine.ValidateRefresh(ctx, pair.RefreshToken)
	if !errors.Is(err, ErrSessionMismatch) || !errors.Is(err, ErrDecryption) {
		t.Fatalf("expected ErrSessionMismatch wrapping ErrDecryption, got %v", err)
	}
	if f.mr.Exists("USER:u-1") {
		t.Fatal("undecryptable record must be deleted")
	}
	if got := f.engine.MetricsSnapshot().Counters[MetricDecryptionFailed]; got != 1 {
		t.Fatalf("expected one decryption failure, got %d", got)
	}
}

func TestMismatchDeletesRecordWrittenWithPaddedJSON(t *testing.T) {
	f := newEngineFixture(t, testConfig(t))
	ctx := context.Background()

	first, err := f.engine.Login(ctx, "u-1", nil)
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	second, err := f.engine.Login(ctx, "u-1", nil)
	if err != nil {
		t.Fatalf("relogin: %v", err)
	}
	sealed, err := f.cipher.EncryptString(second.RefreshToken)
	if err != nil {
		t.Fatalf("encrypt: %v", err)
	}
	if err := f.mr.Set("USER:u-1", `{"refresh_token": "`+sealed+`"}`); err != nil {
		t.Fatalf("overwrite record: %v", err)
	}

	if _, err := f.engine.ValidateRefresh(ctx, first.RefreshToken); !errors.Is(err, ErrSessionMismatch) {
		t.Fatalf("expected ErrSessionMismatch, got %v", err)
	}
	if f.mr.Exists("USER:u-1") {
		t.Fatal("session must be deleted after a mismatch")
	}
	if _, err := f.engine.ValidateRefresh(ctx, second.RefreshToken); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound after invalidation, got %v", err)
	}
}

func TestCorruptRecordIsMismatchAndDeleted(t *testing.T) {
	f := newEngineFixture(t, testConfig(t))
	ctx := context.Background()

	pair, _ := f.engine.Login(ctx, "u-1", nil)
	if err := f.mr.Set("USER:u-1", "not-json"); err != nil {
		t.Fatalf("overwrite record: %v", err)
	}

	if _, err := f.engine.ValidateRefresh(ctx, pair.RefreshToken); !errors.Is(err, ErrSessionMismatch) {
		t.Fatalf("expected ErrSessionMismatch, got %v", err)
	}
	if f.mr.Exists("USER:u-1") {
		t.Fatal("corrupt record must be deleted")
	}
}

func TestStoreUnavailableFailsClosed(t *testing.T) {
	f := newEngineFixture(t, testConfig(t))
	ctx := context.Background()

	pair, err := f.engine.Login(ctx, "u-1", nil)
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	f.mr.Close()

	_, err = f.engine.ValidateRefresh(ctx, pair.RefreshToken)
	if !errors.Is(err, ErrStoreUnavailable) {
		t.Fatalf("expected ErrStoreUnavailable, got %v", err)
	}
	if errors.Is(err, ErrSessionNotFound) {
		t.Fatal("store unavailability must not be reported as a missing session")
	}

	// Access validation never needs the store.
	if _, err := f.engine.ValidateAccess(ctx, pair.AccessToken, "u-1"); err != nil {
		t.Fatalf("access validation with store down: %v", err)
	}

	_, err = f.engine.Login(ctx, "u-1", nil)
	if !errors.Is(err, ErrIssuanceFailed) || !errors.Is(err, session.ErrUnavailable) {
		t.Fatalf("expected ErrIssuanceFailed wrapping session.ErrUnavailable with store down, got %v", err)
	}
	if err := f.engine.Logout(ctx, "u-1"); !errors.Is(err, ErrStoreUnavailable) {
		t.Fatalf("expected ErrStoreUnavailable on logout, got %v", err)
	}
	if _, err := f.engine.Ping(ctx); !errors.Is(err, ErrStoreUnavailable) {
		t.Fatalf("expected ping failure, got %v", err)
	}
}

func TestLoginRejectsEmptyIdentity(t *testing.T) {
	f := newEngineFixture(t, testConfig(t))

	pair, err := f.engine.Login(context.Background(), "", nil)
	if !errors.Is(err, ErrIssuanceFailed) {
		t.Fatalf("expected ErrIssuanceFailed, got %v", err)
	}
	if pair != (TokenPair{}) {
		t.Fatal("no partial pair may be returned")
	}
	if len(f.mr.Keys()) != 0 {
		t.Fatal("failed issuance must not write a session")
	}
}

func TestReissueAccessToken(t *testing.T) {
	f := newEngineFixture(t, testConfig(t))
	ctx := context.Background()

	pair, _ := f.engine.Login(ctx, "u-1", map[string]any{"plan": "pro"})
	before, _ := f.mr.Get("USER:u-1")

	f.clock.Advance(time.Minute)
	access, result, err := f.engine.Refresh(ctx, pair.RefreshToken)
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if access == "" || access == pair.AccessToken {
		t.Fatal("expected a new access token")
	}

	got, err := f.engine.ValidateAccess(ctx, access, "u-1")
	if err != nil {
		t.Fatalf("validate reissued: %v", err)
	}
	if got.UserDetails["plan"] != "pro" || got.TokenID == result.TokenID {
		t.Fatalf("unexpected reissued result %+v", got)
	}

	after, _ := f.mr.Get("USER:u-1")
	if before != after {
		t.Fatal("reissue must not touch the session record")
	}
	if _, err := f.engine.ValidateRefresh(ctx, pair.RefreshToken); err != nil {
		t.Fatalf("refresh token must remain valid: %v", err)
	}

	accessResult, _ := f.engine.ValidateAccess(ctx, pair.AccessToken, "")
	if _, err := f.engine.ReissueAccessToken(ctx, accessResult); !errors.Is(err, ErrWrongTokenType) {
		t.Fatalf("expected ErrWrongTokenType reissuing from access, got %v", err)
	}
	if _, err := f.engine.ReissueAccessToken(ctx, nil); !errors.Is(err, ErrWrongTokenType) {
		t.Fatalf("expected ErrWrongTokenType for nil result, got %v", err)
	}
}

func TestLogoutAndInvalidateSession(t *testing.T) {
	f := newEngineFixture(t, testConfig(t))
	ctx := context.Background()

	pair, _ := f.engine.Login(ctx, "u-1", nil)
	if err := f.engine.Logout(ctx, "u-1"); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if _, err := f.engine.ValidateRefresh(ctx, pair.RefreshToken); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound after logout, got %v", err)
	}
	if err := f.engine.Logout(ctx, "u-1"); err != nil {
		t.Fatalf("logout must be idempotent: %v", err)
	}

	pair, _ = f.engine.Login(ctx, "u-1", nil)
	if err := f.engine.InvalidateSession(ctx, "u-1"); err != nil {
		t.Fatalf("invalidate: %v", err)
	}
	if _, err := f.engine.ValidateRefresh(ctx, pair.RefreshToken); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound after invalidation, got %v", err)
	}
	if err := f.engine.Logout(ctx, ""); err == nil {
		t.Fatal("expected error for empty identity")
	}
}

func TestEngineWithMemoryStore(t *testing.T) {
	cfg := testConfig(t)
	clock := newTestClock()
	engine, err := New().
		WithConfig(cfg).
		WithSessionStore(newMemoryStoreForTest(clock)).
		WithClock(clock.Now).
		Build()
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	defer engine.Close()
	ctx := context.Background()

	pair, err := engine.Login(ctx, "u-1", nil)
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if _, err := engine.ValidateRefresh(ctx, pair.RefreshToken); err != nil {
		t.Fatalf("validate refresh: %v", err)
	}
	if d, err := engine.Ping(ctx); err != nil || d != 0 {
		t.Fatalf("memory store ping: %v %v", d, err)
	}
}

func TestZeroEngineNotReady(t *testing.T) {
	var e Engine
	ctx := context.Background()

	if _, err := e.Login(ctx, "u-1", nil); !errors.Is(err, ErrEngineNotReady) {
		t.Fatalf("expected ErrEngineNotReady, got %v", err)
	}
	if _, err := e.ValidateAccess(ctx, "x", ""); !errors.Is(err, ErrEngineNotReady) {
		t.Fatalf("expected ErrEngineNotReady, got %v", err)
	}
	if _, err := e.ValidateRefresh(ctx, "x"); !errors.Is(err, ErrEngineNotReady) {
		t.Fatalf("expected ErrEngineNotReady, got %v", err)
	}
}

func TestBuilderIsSingleUse(t *testing.T) {
	b := New().WithConfig(testConfig(t)).WithSessionStore(newMemoryStoreForTest(newTestClock()))
	e, err := b.Build()
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	defer e.Close()
	if _, err := b.Build(); err == nil {
		t.Fatal("expected second build to fail")
	}

	if _, err := New().WithConfig(testConfig(t)).Build(); err == nil {
		t.Fatal("expected build without a store to fail")
	}
}
