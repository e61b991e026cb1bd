// Package flows contains pure-function orchestrators for every Engine operation.
//
// Each flow function (RunLogin, RunValidateAccess, RunValidateRefresh, etc.)
// accepts a typed dependency struct and returns a result carrying a failure
// kind instead of a host-level error. The Engine maps kinds to its public
// sentinel errors, so this package never needs to import it.
//
// # Architecture boundaries
//
// Flow functions coordinate calls to the token codec, the session cipher, the
// session store and the rate limiter. They do NOT own any of these resources;
// ownership stays with the Engine.
//
// # What this package must NOT do
//
//   - Hold mutable state between calls.
//   - Import authguard (to avoid import cycles).
//   - Perform I/O directly. All I/O is mediated through dependency interfaces.
//   - Log or emit audit events. The Engine does that from the returned result.
package flows
