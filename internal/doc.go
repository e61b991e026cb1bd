// Package internal holds packages that are private to authguard and its
// commands.
//
// # Sub-packages
//
//   - audit: async event dispatch (Dispatcher and Sink implementations)
//   - flows: pure-function orchestrators for every Engine operation
//   - rate: Redis-backed failed-login throttling
//   - logging: slog setup with rotating file output for the commands
//   - settings: environment and file configuration for the commands
//   - users: in-memory user directory used by the server and examples
//
// # What this package must NOT do
//
//   - Export types that appear in the public authguard API.
package internal
