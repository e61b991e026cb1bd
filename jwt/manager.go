package jwt

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// TokenType is the token class carried in the "type" claim.
type TokenType string

const (
	TypeAccess  TokenType = "access"
	TypeRefresh TokenType = "refresh"
)

// Valid reports whether t is a known token class.
func (t TokenType) Valid() bool {
	return t == TypeAccess || t == TypeRefresh
}

var (
	// ErrExpired is returned by Decode when the current time is at or past exp.
	ErrExpired = errors.New("token expired")
	// ErrInvalidSignature is returned by Decode for any other verification failure.
	ErrInvalidSignature = errors.New("invalid token signature")
)

const minSigningKeyBytes = 32

// Config holds codec settings. SigningKey is distinct in purpose from the
// session cipher key and must never be shared with it.
type Config struct {
	SigningKey   []byte
	Issuer       string
	Audience     string
	Leeway       time.Duration
	MaxFutureIAT time.Duration

	// Now overrides the clock, mainly for expiry tests.
	Now func() time.Time
}

// Claims is the decoded token payload. Subject holds the identity.
type Claims struct {
	UserDetails map[string]any `json:"user_details,omitempty"`
	Type        TokenType      `json:"type"`
	jwt.RegisteredClaims
}

// Identity returns the token subject.
func (c *Claims) Identity() string {
	return c.Subject
}

// Manager signs and verifies tokens. It is immutable after NewManager.
type Manager struct {
	config  Config
	options []jwt.ParserOption
}

// NewManager validates cfg and returns a codec.
func NewManager(cfg Config) (*Manager, error) {
	if len(cfg.SigningKey) < minSigningKeyBytes {
		return nil, fmt.Errorf("signing key must be at least %d bytes", minSigningKeyBytes)
	}
	if cfg.Leeway < 0 || cfg.Leeway > 2*time.Minute {
		return nil, errors.New("invalid leeway configuration")
	}
	if cfg.MaxFutureIAT == 0 {
		cfg.MaxFutureIAT = 10 * time.Minute
	}
	if cfg.MaxFutureIAT < 0 || cfg.MaxFutureIAT > 24*time.Hour {
		return nil, errors.New("invalid MaxFutureIAT configuration")
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	cfg.Issuer = strings.TrimSpace(cfg.Issuer)
	cfg.Audience = strings.TrimSpace(cfg.Audience)
	cfg.SigningKey = append([]byte(nil), cfg.SigningKey...)

	options := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(cfg.Now),
		jwt.WithStrictDecoding(),
	}
	if cfg.Leeway > 0 {
		options = append(options, jwt.WithLeeway(cfg.Leeway))
	}
	if cfg.Issuer != "" {
		options = append(options, jwt.WithIssuer(cfg.Issuer))
	}
	if cfg.Audience != "" {
		options = append(options, jwt.WithAudience(cfg.Audience))
	}

	return &Manager{config: cfg, options: options}, nil
}

// Encode signs claims with an absolute expiry of now+ttl. Issue time and a
// fresh token ID are set here; any values the caller put there are replaced.
func (m *Manager) Encode(claims Claims, ttl time.Duration) (string, error) {
	if ttl <= 0 {
		return "", errors.New("token ttl must be positive")
	}
	if claims.Subject == "" {
		return "", errors.New("token subject is required")
	}
	if !claims.Type.Valid() {
		return "", fmt.Errorf("unknown token type %q", claims.Type)
	}

	now := m.config.Now()
	claims.ID = uuid.NewString()
	claims.IssuedAt = jwt.NewNumericDate(now)
	claims.ExpiresAt = jwt.NewNumericDate(now.Add(ttl))
	claims.NotBefore = nil
	claims.Issuer = m.config.Issuer
	claims.Audience = nil
	if m.config.Audience != "" {
		claims.Audience = jwt.ClaimStrings{m.config.Audience}
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.config.SigningKey)
}

// EncodeMinutes is Encode with a whole-minute lifetime.
func (m *Manager) EncodeMinutes(claims Claims, ttlMinutes int) (string, error) {
	return m.Encode(claims, time.Duration(ttlMinutes)*time.Minute)
}

// Decode verifies signature and expiry and returns the claims.
func (m *Manager) Decode(tokenStr string) (*Claims, error) {
	token, err := jwt.NewParser(m.options...).ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, fmt.Errorf("unexpected signing algorithm: %s", t.Method.Alg())
		}
		return m.config.SigningKey, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpired
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidSignature
	}
	if claims.Subject == "" || !claims.Type.Valid() {
		return nil, fmt.Errorf("%w: incomplete claims", ErrInvalidSignature)
	}
	if claims.IssuedAt != nil && claims.IssuedAt.Time.After(m.config.Now().Add(m.config.MaxFutureIAT)) {
		return nil, fmt.Errorf("%w: iat too far in the future", ErrInvalidSignature)
	}

	return claims, nil
}
