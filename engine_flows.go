package authguard

import (
	"context"
	"errors"
	"log/slog"

	internalflows "github.com/MrEthical07/authguard/internal/flows"
	"github.com/MrEthical07/authguard/password"
	"github.com/google/uuid"
)

func (e *Engine) buildFlowDeps() internalflows.Deps {
	return internalflows.Deps{
		Login: internalflows.LoginDeps{
			AccessTTL:    e.config.JWT.AccessTTL,
			RefreshTTL:   e.config.JWT.RefreshTTL,
			SessionTTL:   e.config.sessionTTL(),
			Encode:       e.jwtManager.Encode,
			Encrypt:      e.cipher.EncryptString,
			SessionStore: e.sessionStore,
		},
		Authenticate: e.authenticateFlowDeps(),
		Validate: internalflows.ValidateDeps{
			Decode:       e.jwtManager.Decode,
			Decrypt:      e.cipher.DecryptString,
			SessionStore: e.sessionStore,
		},
		Reissue: internalflows.ReissueDeps{
			AccessTTL: e.config.JWT.AccessTTL,
			Encode:    e.jwtManager.Encode,
		},
		Logout: internalflows.LogoutDeps{
			SessionStore: e.sessionStore,
		},
	}
}

func (e *Engine) authenticateFlowDeps() internalflows.AuthenticateDeps {
	deps := internalflows.AuthenticateDeps{
		UpgradeOnLogin:      e.config.Password.UpgradeOnLogin,
		ClientIPFromContext: clientIPFromContext,
		VerifyPassword: func(plain, encoded string) bool {
			return password.Check(e.passwordHash, e.logger, plain, encoded)
		},
		PasswordNeedsUpgrade: e.passwordHash.NeedsUpgrade,
		HashPassword:         e.passwordHash.Hash,
	}

	if e.rateLimiter != nil {
		deps.CheckLoginRate = e.rateLimiter.CheckLogin
		deps.IncrementLoginRate = e.rateLimiter.IncrementLogin
		deps.ResetLoginRate = e.rateLimiter.ResetLogin
	}

	if e.userProvider != nil {
		deps.GetUserByIdentifier = func(ctx context.Context, identifier string) (internalflows.AuthenticateUser, error) {
			rec, err := e.userProvider.GetUserByIdentifier(ctx, identifier)
			if err != nil {
				return internalflows.AuthenticateUser{}, err
			}
			if rec.UserID == "" {
				return internalflows.AuthenticateUser{}, errors.New("user record has no id")
			}
			return internalflows.AuthenticateUser{
				Identity:     rec.UserID,
				PasswordHash: rec.PasswordHash,
				Details:      rec.Details,
			}, nil
		}
		deps.UpdatePasswordHash = e.userProvider.UpdatePasswordHash
		deps.DummyHash = e.dummyPasswordHash
	}

	return deps
}

// dummyPasswordHash lazily hashes a random secret with the primary scheme.
// An empty result skips the extra verification.
func (e *Engine) dummyPasswordHash() string {
	e.dummyHashOnce.Do(func() {
		hash, err := e.passwordHash.Hash(uuid.NewString())
		if err != nil {
			e.logger.Error("dummy password hash failed", slog.Any("error", err))
			return
		}
		e.dummyHash = hash
	})
	return e.dummyHash
}
