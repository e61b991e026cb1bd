package authguard

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"time"

	"github.com/MrEthical07/authguard/cipher"
)

const minSigningKeyBytes = 32

// Config is the full Engine configuration. It is cloned by [Builder.Build]
// and treated as immutable afterwards.
type Config struct {
	JWT      JWTConfig
	Cipher   CipherConfig
	Session  SessionConfig
	Password PasswordConfig
	Security SecurityConfig
	Audit    AuditConfig
	Metrics  MetricsConfig
}

// JWTConfig controls the token codec. SigningKey must never equal the
// cipher key.
type JWTConfig struct {
	SigningKey   []byte
	Issuer       string
	Audience     string
	AccessTTL    time.Duration
	RefreshTTL   time.Duration
	Leeway       time.Duration
	MaxFutureIAT time.Duration
}

// CipherConfig holds the Fernet key that seals refresh tokens at rest.
type CipherConfig struct {
	Key string
}

// SessionConfig controls the session store. A zero TTL keeps each record
// for RefreshTTL.
type SessionConfig struct {
	RedisPrefix string
	TTL         time.Duration
	OpTimeout   time.Duration
}

// PasswordConfig selects argon2id parameters for new hashes. AcceptBcrypt
// keeps existing bcrypt hashes verifiable; UpgradeOnLogin rewrites them
// as argon2id after a successful login.
type PasswordConfig struct {
	Memory         uint32
	Time           uint32
	Parallelism    uint8
	SaltLength     uint32
	KeyLength      uint32
	MinLength      int
	AcceptBcrypt   bool
	BcryptCost     int
	UpgradeOnLogin bool
}

// SecurityConfig controls failed-login throttling. MaxLoginAttempts of 0
// disables it.
type SecurityConfig struct {
	MaxLoginAttempts      int
	LoginCooldownDuration time.Duration
	EnableIPThrottle      bool
}

type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

// DefaultConfig returns production defaults: 15 minute access tokens and
// 30 day refresh tokens. SigningKey and Cipher.Key must still be set.
func DefaultConfig() Config {
	return Config{
		JWT: JWTConfig{
			AccessTTL:    15 * time.Minute,
			RefreshTTL:   30 * 24 * time.Hour,
			MaxFutureIAT: 10 * time.Minute,
		},
		Session: SessionConfig{
			RedisPrefix: "USER",
			OpTimeout:   2 * time.Second,
		},
		Password: PasswordConfig{
			Memory:         64 * 1024,
			Time:           3,
			Parallelism:    2,
			SaltLength:     16,
			KeyLength:      32,
			AcceptBcrypt:   true,
			UpgradeOnLogin: true,
		},
		Security: SecurityConfig{
			MaxLoginAttempts:      5,
			LoginCooldownDuration: 15 * time.Minute,
			EnableIPThrottle:      true,
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 1024,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled: true,
		},
	}
}

// Validate reports the first configuration problem found.
func (c *Config) Validate() error {
	// JWT
	if len(c.JWT.SigningKey) < minSigningKeyBytes {
		return fmt.Errorf("JWT SigningKey must be at least %d bytes", minSigningKeyBytes)
	}
	if c.JWT.AccessTTL <= 0 {
		return errors.New("JWT AccessTTL must be > 0")
	}
	if c.JWT.RefreshTTL <= 0 {
		return errors.New("JWT RefreshTTL must be > 0")
	}
	if c.JWT.AccessTTL >= c.JWT.RefreshTTL {
		return errors.New("JWT AccessTTL must be shorter than RefreshTTL")
	}
	if c.JWT.Leeway < 0 || c.JWT.Leeway > 2*time.Minute {
		return errors.New("JWT Leeway must be between 0 and 2m")
	}
	if c.JWT.MaxFutureIAT < 0 {
		return errors.New("JWT MaxFutureIAT must be >= 0")
	}

	// Cipher
	if c.Cipher.Key == "" {
		return errors.New("Cipher Key is required")
	}
	if _, err := cipher.New(c.Cipher.Key); err != nil {
		return fmt.Errorf("Cipher Key: %w", err)
	}
	if subtle.ConstantTimeCompare(c.JWT.SigningKey, []byte(c.Cipher.Key)) == 1 {
		return errors.New("JWT SigningKey and Cipher Key must differ")
	}

	// Session
	if c.Session.RedisPrefix == "" {
		return errors.New("Session RedisPrefix must not be empty")
	}
	if c.Session.TTL < 0 {
		return errors.New("Session TTL must be >= 0")
	}
	if c.Session.OpTimeout < 0 {
		return errors.New("Session OpTimeout must be >= 0")
	}

	// Password
	if c.Password.MinLength < 0 {
		return errors.New("Password MinLength must be >= 0")
	}

	// Security
	if c.Security.MaxLoginAttempts < 0 {
		return errors.New("Security MaxLoginAttempts must be >= 0")
	}
	if c.Security.LoginCooldownDuration < 0 {
		return errors.New("Security LoginCooldownDuration must be >= 0")
	}

	// Audit
	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit BufferSize must be > 0 when enabled")
	}

	return nil
}

func (c Config) sessionTTL() time.Duration {
	if c.Session.TTL > 0 {
		return c.Session.TTL
	}
	return c.JWT.RefreshTTL
}

func cloneConfig(in Config) Config {
	out := in
	out.JWT.SigningKey = cloneBytes(in.JWT.SigningKey)
	return out
}

func cloneBytes(in []byte) []byte {
	if in == nil {
		return nil
	}
	out := make([]byte, len(in))
	copy(out, in)
	return out
}
