// Package session persists the single active refresh session per identity.
//
// # Record layout
//
// Each identity owns at most one key, <prefix>:<identity>, whose value is the
// JSON document {"refresh_token": "<ciphertext>"}. The ciphertext is the
// cipher package's base64 text, so the record never needs binary parsing.
//
// # Architecture boundaries
//
// This package stores and returns opaque ciphertext. It does NOT decrypt,
// decode tokens, or decide whether a presented token is acceptable; that is
// the Engine's job.
//
// # Failure modes
//
// Absent or expired records return [ErrNotFound]. Transport failures and
// timeouts return [ErrUnavailable] and are never reported as absence.
// Undecodable values return [ErrCorrupt].
package session
