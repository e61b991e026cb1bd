// Package authguard issues short-lived access tokens and long-lived refresh
// tokens, and enforces a single active refresh token per identity through an
// encrypted session record in Redis.
//
// Engine methods are safe to call from multiple goroutines after
// [Builder.Build].
//
// # Token lifecycle
//
// [Engine.Login] mints an HS256 access/refresh pair and overwrites the
// identity's session record with the Fernet-encrypted refresh token. From
// that moment only the newest refresh token validates: any older one fails
// [Engine.ValidateRefresh] with [ErrSessionMismatch], and the failure itself
// removes the stored session, so a stolen token costs the thief and the
// owner their session alike.
//
// [Engine.ValidateAccess] is stateless. When the caller passes the identity
// a request claims to act for, a token belonging to another identity fails
// with [ErrIdentityMismatch].
//
// # Architecture boundaries
//
// authguard is the public surface. It exposes [Engine], [Builder], [Config],
// the error taxonomy and [RejectionFor]. Flow orchestration, rate limiting
// and audit dispatch live under internal/ and are never exported.
//
// # What this package must NOT do
//
//   - Log, return or audit raw tokens, ciphertext or key material.
//   - Treat an unreachable session store as a missing session.
//   - Hold per-identity locks; the store's atomic overwrite is the only
//     serialization point between concurrent logins.
package authguard
