package middleware

import (
	"context"
	"net/http"

	"github.com/MrEthical07/authguard"
)

// HeaderName is the request header that carries the token.
const HeaderName = "Auth-Token"

type authResultContextKey struct{}

// AuthResultFromContext returns the result attached by a guard.
func AuthResultFromContext(ctx context.Context) (*authguard.AuthResult, bool) {
	res, ok := ctx.Value(authResultContextKey{}).(*authguard.AuthResult)
	return res, ok
}

// ContextWithAuthResult attaches res the way the guards do.
func ContextWithAuthResult(ctx context.Context, res *authguard.AuthResult) context.Context {
	return context.WithValue(ctx, authResultContextKey{}, res)
}

// AccessValidator is satisfied by *authguard.Engine.
type AccessValidator interface {
	ValidateAccess(ctx context.Context, token, asserted string) (*authguard.AuthResult, error)
}

// RefreshValidator is satisfied by *authguard.Engine.
type RefreshValidator interface {
	ValidateRefresh(ctx context.Context, token string) (*authguard.AuthResult, error)
}

// Option customises a guard.
type Option func(*options)

type options struct {
	asserted func(*http.Request) string
}

// WithAssertedIdentity names the identity the request claims to act for,
// usually a path parameter such as r.PathValue("user_id"). The access
// guard rejects tokens issued to anyone else.
func WithAssertedIdentity(fn func(*http.Request) string) Option {
	return func(o *options) {
		o.asserted = fn
	}
}

func buildOptions(opts []Option) options {
	var o options
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	return o
}

// AccessGuard admits requests that carry a valid access token.
func AccessGuard(engine AccessValidator, opts ...Option) func(http.Handler) http.Handler {
	o := buildOptions(opts)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := TokenFromRequest(r)
			if !ok {
				WriteRejection(w, authguard.RejectionFor(authguard.ErrMissingToken))
				return
			}
			if engine == nil {
				WriteRejection(w, authguard.RejectionFor(authguard.ErrEngineNotReady))
				return
			}

			asserted := ""
			if o.asserted != nil {
				asserted = o.asserted(r)
			}

			res, err := engine.ValidateAccess(r.Context(), token, asserted)
			if err != nil {
				WriteRejection(w, authguard.RejectionFor(err))
				return
			}

			next.ServeHTTP(w, r.WithContext(ContextWithAuthResult(r.Context(), res)))
		})
	}
}

// RefreshGuard admits requests that carry the identity's current refresh
// token. A rejected stale token also ends that identity's session. An
// asserted identity, when configured, is compared after validation.
func RefreshGuard(engine RefreshValidator, opts ...Option) func(http.Handler) http.Handler {
	o := buildOptions(opts)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := TokenFromRequest(r)
			if !ok {
				WriteRejection(w, authguard.RejectionFor(authguard.ErrMissingToken))
				return
			}
			if engine == nil {
				WriteRejection(w, authguard.RejectionFor(authguard.ErrEngineNotReady))
				return
			}

			res, err := engine.ValidateRefresh(r.Context(), token)
			if err != nil {
				WriteRejection(w, authguard.RejectionFor(err))
				return
			}
			if o.asserted != nil {
				if asserted := o.asserted(r); asserted != "" && asserted != res.Identity {
					WriteRejection(w, authguard.RejectionFor(authguard.ErrIdentityMismatch))
					return
				}
			}

			next.ServeHTTP(w, r.WithContext(ContextWithAuthResult(r.Context(), res)))
		})
	}
}
