package password

import (
	"errors"
	"log/slog"
)

var (
	// ErrMalformedHash is returned by Verify when the stored hash cannot be parsed.
	ErrMalformedHash = errors.New("malformed password hash")
	// ErrPolicy is returned by Hash when the password is shorter than the configured minimum.
	ErrPolicy = errors.New("password policy violation")
	// ErrUnsupportedHash is returned by Multi when no registered scheme recognises the hash.
	ErrUnsupportedHash = errors.New("unsupported password hash scheme")
)

// Hasher hashes and verifies passwords.
type Hasher interface {
	Hash(password string) (string, error)
	Verify(password, encoded string) (bool, error)
}

// Scheme is a Hasher that can recognise its own encodings.
type Scheme interface {
	Hasher
	Handles(encoded string) bool
	NeedsUpgrade(encoded string) bool
}

// Multi hashes with a primary scheme and verifies against any registered
// scheme, chosen by the encoded prefix.
type Multi struct {
	primary Scheme
	legacy  []Scheme
}

// NewMulti returns a Multi that hashes with primary and also accepts legacy encodings.
func NewMulti(primary Scheme, legacy ...Scheme) *Multi {
	return &Multi{primary: primary, legacy: legacy}
}

func (m *Multi) Hash(password string) (string, error) {
	return m.primary.Hash(password)
}

func (m *Multi) Verify(password, encoded string) (bool, error) {
	s := m.schemeFor(encoded)
	if s == nil {
		return false, ErrUnsupportedHash
	}
	return s.Verify(password, encoded)
}

// NeedsUpgrade is true when encoded is a legacy scheme or carries weaker
// parameters than the primary scheme.
func (m *Multi) NeedsUpgrade(encoded string) bool {
	if m.primary.Handles(encoded) {
		return m.primary.NeedsUpgrade(encoded)
	}
	return true
}

func (m *Multi) Handles(encoded string) bool {
	return m.schemeFor(encoded) != nil
}

func (m *Multi) schemeFor(encoded string) Scheme {
	if m.primary.Handles(encoded) {
		return m.primary
	}
	for _, s := range m.legacy {
		if s.Handles(encoded) {
			return s
		}
	}
	return nil
}

// Check verifies password against encoded for untrusted callers. It never
// returns an error: malformed input yields false and a diagnostic log line.
func Check(h Hasher, logger *slog.Logger, password, encoded string) bool {
	if h == nil || encoded == "" {
		return false
	}
	ok, err := h.Verify(password, encoded)
	if err != nil {
		if logger != nil {
			logger.Warn("password verification failed", slog.String("error", err.Error()))
		}
		return false
	}
	return ok
}
