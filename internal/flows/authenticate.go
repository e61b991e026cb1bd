package flows

import (
	"context"
	"errors"
)

// AuthenticateFailureKind classifies credential login failures.
type AuthenticateFailureKind int

const (
	AuthenticateFailureNone AuthenticateFailureKind = iota
	AuthenticateFailureRateLimited
	AuthenticateFailureInvalidCredentials
	AuthenticateFailureIssuance
)

// AuthenticateUser is a flow-local user model.
type AuthenticateUser struct {
	Identity     string
	PasswordHash string
	Details      map[string]any
}

// AuthenticateResult carries the issued pair or a classified failure.
// Reason is a short machine-readable cause for audit and logs.
type AuthenticateResult struct {
	Identity   string
	Login      LoginResult
	Failure    AuthenticateFailureKind
	Reason     string
	Err        error
	Upgraded   bool
	UpgradeErr error
}

// AuthenticateDeps captures credential login dependencies. Rate limit hooks
// may be nil to disable throttling.
type AuthenticateDeps struct {
	UpgradeOnLogin bool

	ClientIPFromContext func(context.Context) string

	CheckLoginRate     func(context.Context, string, string) error
	IncrementLoginRate func(context.Context, string, string) error
	ResetLoginRate     func(context.Context, string, string) error

	GetUserByIdentifier  func(context.Context, string) (AuthenticateUser, error)
	// DummyHash returns a valid hash verified on the unknown-user path so
	// both rejections cost one password check.
	DummyHash            func() string
	UpdatePasswordHash   func(context.Context, string, string) error
	VerifyPassword       func(password, encoded string) bool
	PasswordNeedsUpgrade func(string) bool
	HashPassword         func(string) (string, error)

	Login func(context.Context, string, map[string]any) LoginResult
}

// RunAuthenticate checks credentials and, on success, delegates to Login.
// Every credential failure counts against the identifier and client IP.
func RunAuthenticate(ctx context.Context, identifier, password string, deps AuthenticateDeps) AuthenticateResult {
	ip := ""
	if deps.ClientIPFromContext != nil {
		ip = deps.ClientIPFromContext(ctx)
	}

	if deps.CheckLoginRate != nil {
		if err := deps.CheckLoginRate(ctx, identifier, ip); err != nil {
			return AuthenticateResult{Failure: AuthenticateFailureRateLimited, Reason: "rate_limited", Err: err}
		}
	}

	fail := func(identity, reason string, cause error) AuthenticateResult {
		if deps.IncrementLoginRate != nil {
			if err := deps.IncrementLoginRate(ctx, identifier, ip); err != nil {
				return AuthenticateResult{
					Identity: identity,
					Failure:  AuthenticateFailureRateLimited,
					Reason:   "rate_limited",
					Err:      errors.Join(err, cause),
				}
			}
		}
		return AuthenticateResult{
			Identity: identity,
			Failure:  AuthenticateFailureInvalidCredentials,
			Reason:   reason,
			Err:      cause,
		}
	}

	if identifier == "" || password == "" {
		return fail("", "empty_credentials", nil)
	}

	user, err := deps.GetUserByIdentifier(ctx, identifier)
	if err != nil {
		if deps.DummyHash != nil {
			if dummy := deps.DummyHash(); dummy != "" {
				_ = deps.VerifyPassword(password, dummy)
			}
		}
		return fail("", "user_not_found", err)
	}

	if !deps.VerifyPassword(password, user.PasswordHash) {
		return fail(user.Identity, "password_mismatch", nil)
	}

	res := AuthenticateResult{Identity: user.Identity}

	if deps.UpgradeOnLogin && deps.PasswordNeedsUpgrade != nil && deps.PasswordNeedsUpgrade(user.PasswordHash) {
		// Upgrade is best-effort and never blocks a successful login.
		upgraded, err := deps.HashPassword(password)
		if err == nil {
			err = deps.UpdatePasswordHash(ctx, user.Identity, upgraded)
		}
		res.Upgraded = err == nil
		res.UpgradeErr = err
	}
	if deps.ResetLoginRate != nil {
		// Reset failures are ignored; the window expires on its own.
		_ = deps.ResetLoginRate(ctx, identifier, ip)
	}

	res.Login = deps.Login(ctx, user.Identity, user.Details)
	if res.Login.Failure != LoginFailureNone {
		res.Failure = AuthenticateFailureIssuance
		res.Reason = res.Login.Failure.String()
		res.Err = res.Login.Err
	}
	return res
}
