package authguard

import (
	"context"
	"time"

	"github.com/MrEthical07/authguard/jwt"
)

// TokenPair is the result of a successful [Engine.Login].
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// AuthResult is returned by [Engine.ValidateAccess] and
// [Engine.ValidateRefresh]. RawToken is the presented token, kept so a
// refresh result can be checked again without re-reading the request.
type AuthResult struct {
	Identity    string
	UserDetails map[string]any
	TokenType   jwt.TokenType
	TokenID     string
	ExpiresAt   time.Time
	RawToken    string
}

// UserRecord is the credential record returned by [UserProvider].
// Details is embedded verbatim in every token issued for the user.
type UserRecord struct {
	UserID       string
	Identifier   string
	PasswordHash string
	Details      map[string]any
}

// UserProvider is implemented by callers to connect [Engine.Authenticate]
// to their user database.
type UserProvider interface {
	GetUserByIdentifier(ctx context.Context, identifier string) (UserRecord, error)
	UpdatePasswordHash(ctx context.Context, userID, newHash string) error
}
