package authguard

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/MrEthical07/authguard/jwt"
)

var (
	// ErrMissingToken is returned when no token was presented.
	ErrMissingToken = errors.New("token is missing")
	// ErrExpiredToken is returned when the token's expiry has passed.
	ErrExpiredToken = errors.New("token expired")
	// ErrInvalidSignature covers every other decode failure: bad signature,
	// malformed payload, unexpected algorithm or incomplete claims.
	ErrInvalidSignature = errors.New("invalid token signature")
	// ErrWrongTokenType is returned when an access token is presented where a
	// refresh token is required, or the reverse. See [TokenTypeError].
	ErrWrongTokenType = errors.New("wrong token type")
	// ErrIdentityMismatch is returned when the asserted identity differs from
	// the token subject.
	ErrIdentityMismatch = errors.New("token identity mismatch")
	// ErrSessionNotFound is returned when no live session exists for the
	// refresh token's identity.
	ErrSessionNotFound = errors.New("session not found")
	// ErrSessionMismatch is returned when the presented refresh token is not
	// the identity's current one. The stored session is invalidated.
	ErrSessionMismatch = errors.New("session mismatch")
	// ErrDecryption is wrapped by ErrSessionMismatch when the stored record
	// could not be decrypted.
	ErrDecryption = errors.New("session decryption failed")
	// ErrIssuanceFailed is returned by Login when no token pair could be
	// issued. No partial pair is ever returned.
	ErrIssuanceFailed = errors.New("token issuance failed")
	// ErrStoreUnavailable is returned when the session store cannot be
	// reached. Validation fails closed.
	ErrStoreUnavailable = errors.New("session store unavailable")

	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrLoginRateLimited   = errors.New("login rate limited")
	ErrUserNotFound       = errors.New("user not found")
	ErrEngineNotReady     = errors.New("engine not initialized")
)

// TokenTypeError reports the token class that was expected and the one that
// was presented. It matches ErrWrongTokenType with errors.Is.
type TokenTypeError struct {
	Expected jwt.TokenType
	Actual   jwt.TokenType
}

func (e *TokenTypeError) Error() string {
	return fmt.Sprintf("wrong token type: expected %s, got %s", e.Expected, e.Actual)
}

func (e *TokenTypeError) Unwrap() error {
	return ErrWrongTokenType
}

// Rejection is the HTTP response a guard writes for a failed validation.
type Rejection struct {
	Status  int    `json:"-"`
	Message string `json:"message"`
	Reason  string `json:"reason,omitempty"`
}

const loginRequiredMessage = "Please login to continue"

// RejectionFor maps an Engine error onto its HTTP rejection. Unknown errors
// are rejected as an invalid signature.
func RejectionFor(err error) Rejection {
	var typeErr *TokenTypeError

	switch {
	case errors.Is(err, ErrMissingToken):
		return Rejection{Status: http.StatusForbidden, Message: "Token is missing!"}
	case errors.Is(err, ErrExpiredToken):
		return Rejection{Status: http.StatusUnauthorized, Message: loginRequiredMessage, Reason: "Token Expired"}
	case errors.Is(err, ErrIdentityMismatch):
		return Rejection{Status: http.StatusForbidden, Message: loginRequiredMessage, Reason: "Hacker attack identified!"}
	case errors.As(err, &typeErr):
		return Rejection{Status: http.StatusForbidden, Message: "Please provide " + string(typeErr.Expected) + " token", Reason: "Invalid signature type"}
	case errors.Is(err, ErrWrongTokenType):
		return Rejection{Status: http.StatusForbidden, Message: "Please provide a valid token", Reason: "Invalid signature type"}
	case errors.Is(err, ErrSessionMismatch), errors.Is(err, ErrSessionNotFound):
		return Rejection{Status: http.StatusForbidden, Message: loginRequiredMessage, Reason: "Attack identified!"}
	case errors.Is(err, ErrStoreUnavailable):
		return Rejection{Status: http.StatusServiceUnavailable, Message: "Please try again later", Reason: "Session store unavailable"}
	case errors.Is(err, ErrLoginRateLimited):
		return Rejection{Status: http.StatusTooManyRequests, Message: "Too many login attempts", Reason: "Rate limited"}
	case errors.Is(err, ErrInvalidCredentials), errors.Is(err, ErrUserNotFound):
		return Rejection{Status: http.StatusUnauthorized, Message: "Invalid credentials"}
	case errors.Is(err, ErrIssuanceFailed), errors.Is(err, ErrEngineNotReady):
		return Rejection{Status: http.StatusInternalServerError, Message: "Unable to issue tokens"}
	default:
		return Rejection{Status: http.StatusForbidden, Message: loginRequiredMessage, Reason: "Invalid signature"}
	}
}
