// Package ginguard adapts the Auth-Token guards to gin.
package ginguard

import (
	"github.com/MrEthical07/authguard"
	"github.com/MrEthical07/authguard/middleware"
	"github.com/gin-gonic/gin"
)

// ContextKey is the gin context key holding the *authguard.AuthResult.
const ContextKey = "authguard.result"

// AssertedIdentity extracts the identity a request claims to act for.
type AssertedIdentity func(*gin.Context) string

// Param reads the asserted identity from a route parameter.
func Param(name string) AssertedIdentity {
	return func(c *gin.Context) string {
		return c.Param(name)
	}
}

// AuthResultFromGin returns the result stored by a guard.
func AuthResultFromGin(c *gin.Context) (*authguard.AuthResult, bool) {
	v, ok := c.Get(ContextKey)
	if !ok {
		return nil, false
	}
	res, ok := v.(*authguard.AuthResult)
	return res, ok && res != nil
}

func reject(c *gin.Context, err error) {
	rej := authguard.RejectionFor(err)
	c.Header("Cache-Control", "no-store")
	c.AbortWithStatusJSON(rej.Status, rej)
}

func accept(c *gin.Context, res *authguard.AuthResult) {
	c.Set(ContextKey, res)
	c.Request = c.Request.WithContext(middleware.ContextWithAuthResult(c.Request.Context(), res))
	c.Next()
}

// AccessGuard admits requests carrying a valid access token. When asserted
// is non-nil, tokens issued to another identity are rejected as a hijack.
func AccessGuard(engine middleware.AccessValidator, asserted AssertedIdentity) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := middleware.TokenFromRequest(c.Request)
		if !ok {
			reject(c, authguard.ErrMissingToken)
			return
		}
		if engine == nil {
			reject(c, authguard.ErrEngineNotReady)
			return
		}

		claimed := ""
		if asserted != nil {
			claimed = asserted(c)
		}

		res, err := engine.ValidateAccess(c.Request.Context(), token, claimed)
		if err != nil {
			reject(c, err)
			return
		}
		accept(c, res)
	}
}

// RefreshGuard admits requests carrying the identity's current refresh
// token.
func RefreshGuard(engine middleware.RefreshValidator, asserted AssertedIdentity) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := middleware.TokenFromRequest(c.Request)
		if !ok {
			reject(c, authguard.ErrMissingToken)
			return
		}
		if engine == nil {
			reject(c, authguard.ErrEngineNotReady)
			return
		}

		res, err := engine.ValidateRefresh(c.Request.Context(), token)
		if err != nil {
			reject(c, err)
			return
		}
		if asserted != nil {
			if claimed := asserted(c); claimed != "" && claimed != res.Identity {
				reject(c, authguard.ErrIdentityMismatch)
				return
			}
		}
		accept(c, res)
	}
}
