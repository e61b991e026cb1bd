package flows

import (
	"context"
	"errors"
	"time"

	"github.com/MrEthical07/authguard/jwt"
)

// LoginFailureKind classifies issuance failures for root-level mapping.
type LoginFailureKind int

const (
	LoginFailureNone LoginFailureKind = iota
	LoginFailureInvalidInput
	LoginFailureEncodeAccess
	LoginFailureEncodeRefresh
	LoginFailureEncrypt
	LoginFailureStore
)

// String returns the audit/log reason for k.
func (k LoginFailureKind) String() string {
	switch k {
	case LoginFailureNone:
		return "none"
	case LoginFailureInvalidInput:
		return "invalid_input"
	case LoginFailureEncodeAccess:
		return "encode_access_failed"
	case LoginFailureEncodeRefresh:
		return "encode_refresh_failed"
	case LoginFailureEncrypt:
		return "encrypt_refresh_failed"
	case LoginFailureStore:
		return "session_store_failed"
	default:
		return "unknown"
	}
}

// LoginResult is the flow-local issuance response shape. Tokens are only set
// when Failure is LoginFailureNone.
type LoginResult struct {
	AccessToken  string
	RefreshToken string
	Failure      LoginFailureKind
	Err          error
}

type LoginSessionStore interface {
	Put(ctx context.Context, identity, encryptedRefresh string, ttl time.Duration) error
}

// LoginDeps captures token issuance dependencies.
type LoginDeps struct {
	AccessTTL    time.Duration
	RefreshTTL   time.Duration
	SessionTTL   time.Duration
	Encode       func(jwt.Claims, time.Duration) (string, error)
	Encrypt      func(string) (string, error)
	SessionStore LoginSessionStore
}

// RunLogin mints an access/refresh pair for identity and registers the
// encrypted refresh token as the identity's only session. Every token is
// built before the store write; a failure at any step returns no tokens.
func RunLogin(ctx context.Context, identity string, details map[string]any, deps LoginDeps) LoginResult {
	if identity == "" {
		return LoginResult{Failure: LoginFailureInvalidInput, Err: errors.New("identity is required")}
	}

	access, err := deps.Encode(newClaims(identity, details, jwt.TypeAccess), deps.AccessTTL)
	if err != nil {
		return LoginResult{Failure: LoginFailureEncodeAccess, Err: err}
	}

	refresh, err := deps.Encode(newClaims(identity, details, jwt.TypeRefresh), deps.RefreshTTL)
	if err != nil {
		return LoginResult{Failure: LoginFailureEncodeRefresh, Err: err}
	}

	sealed, err := deps.Encrypt(refresh)
	if err != nil {
		return LoginResult{Failure: LoginFailureEncrypt, Err: err}
	}

	ttl := deps.SessionTTL
	if ttl <= 0 {
		ttl = deps.RefreshTTL
	}
	if err := deps.SessionStore.Put(ctx, identity, sealed, ttl); err != nil {
		return LoginResult{Failure: LoginFailureStore, Err: err}
	}

	return LoginResult{AccessToken: access, RefreshToken: refresh}
}

func newClaims(identity string, details map[string]any, typ jwt.TokenType) jwt.Claims {
	c := jwt.Claims{
		Type:        typ,
		UserDetails: cloneDetails(details),
	}
	c.Subject = identity
	return c
}

func cloneDetails(details map[string]any) map[string]any {
	if len(details) == 0 {
		return nil
	}
	out := make(map[string]any, len(details))
	for k, v := range details {
		out[k] = v
	}
	return out
}
