package flows

import (
	"context"
	"crypto/subtle"
	"errors"
	"time"

	"github.com/MrEthical07/authguard/jwt"
	"github.com/MrEthical07/authguard/session"
)

type ValidateSessionStore interface {
	Get(ctx context.Context, identity string) (string, error)
	Delete(ctx context.Context, identity string) error
	DeleteIfMatch(ctx context.Context, identity, encryptedRefresh string) (bool, error)
}

// RunValidateRefresh walks PRESENT, DECODE, CHECK_CLASS, LOOKUP, DECRYPT and
// COMPARE for a refresh token. Any failure after LOOKUP found a record
// invalidates that record, so a superseded or forged token cannot be
// replayed against it again.
func RunValidateRefresh(ctx context.Context, tokenStr string, deps ValidateDeps) ValidateResult {
	claims, res, ok := decodeAndClassify(tokenStr, jwt.TypeRefresh, deps)
	if !ok {
		return res
	}
	identity := claims.Identity()

	stored, err := deps.SessionStore.Get(ctx, identity)
	switch {
	case err == nil:
	case errors.Is(err, session.ErrNotFound):
		return ValidateResult{Failure: ValidateFailureSessionNotFound, Err: err, Claims: claims}
	case errors.Is(err, session.ErrCorrupt):
		res := ValidateResult{Failure: ValidateFailureSessionMismatch, Err: err, Claims: claims}
		if delErr := deps.SessionStore.Delete(ctx, identity); delErr != nil {
			res.InvalidateErr = delErr
		} else {
			res.Invalidated = true
		}
		return res
	default:
		return ValidateResult{Failure: ValidateFailureStoreUnavailable, Err: err, Claims: claims}
	}

	plain, err := deps.Decrypt(stored)
	if err != nil {
		return invalidate(ctx, identity, stored, ValidateResult{
			Failure: ValidateFailureDecryption,
			Err:     err,
			Claims:  claims,
		}, deps)
	}

	if subtle.ConstantTimeCompare([]byte(plain), []byte(tokenStr)) != 1 {
		return invalidate(ctx, identity, stored, ValidateResult{
			Failure: ValidateFailureSessionMismatch,
			Claims:  claims,
		}, deps)
	}

	return ValidateResult{Claims: claims}
}

// invalidate deletes the observed record only if it is still current, so a
// session written by a concurrent login survives a stale token's rejection.
func invalidate(ctx context.Context, identity, observed string, res ValidateResult, deps ValidateDeps) ValidateResult {
	deleted, err := deps.SessionStore.DeleteIfMatch(ctx, identity, observed)
	if err != nil {
		res.InvalidateErr = err
		return res
	}
	res.Invalidated = deleted
	return res
}

// ReissueFailureKind classifies access reissue failures.
type ReissueFailureKind int

const (
	ReissueFailureNone ReissueFailureKind = iota
	ReissueFailureNotRefresh
	ReissueFailureEncode
)

// ReissueDeps captures access-token reissue dependencies.
type ReissueDeps struct {
	AccessTTL time.Duration
	Encode    func(jwt.Claims, time.Duration) (string, error)
}

// ReissueResult is the flow-local reissue response shape.
type ReissueResult struct {
	AccessToken string
	Failure     ReissueFailureKind
	Err         error
}

// RunReissue mints a new access token for a refresh validation that already
// succeeded. The refresh token and the stored session are left untouched.
func RunReissue(identity string, details map[string]any, typ jwt.TokenType, deps ReissueDeps) ReissueResult {
	if typ != jwt.TypeRefresh || identity == "" {
		return ReissueResult{Failure: ReissueFailureNotRefresh}
	}

	access, err := deps.Encode(newClaims(identity, details, jwt.TypeAccess), deps.AccessTTL)
	if err != nil {
		return ReissueResult{Failure: ReissueFailureEncode, Err: err}
	}
	return ReissueResult{AccessToken: access}
}
