// Package middleware exposes net/http guards built on authguard.Engine
// validation.
//
// # Guards
//
//   - [AccessGuard]: access token from the Auth-Token header, optional
//     asserted-identity check against the token subject.
//   - [RefreshGuard]: refresh token checked against the stored session.
//
// A request without a token is rejected with 403 "Token is missing!" and
// never reaches the Engine. Every other rejection is rendered from
// authguard.RejectionFor as a JSON body {"message", "reason"}.
//
// # Architecture boundaries
//
// This package translates HTTP semantics into Engine calls. It does NOT
// implement authentication logic itself.
//
// # What this package must NOT do
//
//   - Parse or create tokens directly.
//   - Access Redis.
//   - Write to the response after the wrapped handler has run.
//
// The gin adapter lives in middleware/ginguard.
package middleware
