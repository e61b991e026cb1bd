// Package jwt encodes and decodes the signed, expiring claims that back both
// access and refresh tokens.
//
// Tokens are compact HS256 JWTs carrying the subject identity, the caller's
// user-detail payload, the token class and an absolute expiry. Decode reports
// exactly two failure kinds: [ErrExpired] for routine expiry and
// [ErrInvalidSignature] for everything else (bad signature, wrong algorithm,
// malformed payload, foreign issuer).
//
// # What this package must NOT do
//
//   - Access the session store or any I/O.
//   - Decide token class policy; the Engine checks Claims.Type.
package jwt
