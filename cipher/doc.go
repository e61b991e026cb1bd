// Package cipher seals refresh tokens before they reach the session store, so
// the store never holds a usable token in clear text.
//
// Ciphertexts are Fernet tokens (AES-128-CBC + HMAC-SHA256): versioned,
// timestamped, authenticated and already URL-safe base64 text, which makes them
// safe to persist as plain strings.
//
// # What this package must NOT do
//
//   - Access the session store or any I/O.
//   - Decide what a decryption failure means for the session; callers own that.
package cipher
