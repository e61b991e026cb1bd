// Package rate provides Redis-backed fixed-window counters that throttle
// failed credential logins per identifier and per client IP.
//
// # Window semantics
//
// INCR plus EXPIRE on the first hit of a window. Key prefixes:
//   - rl:login:id: for the submitted identifier
//   - rl:login:ip: for the client IP
//
// # What this package must NOT do
//
//   - Decide what counts as a failure. The caller increments.
//   - Be imported outside the authguard module.
package rate
