// Package session provides the Redis-backed session store, the compact
// binary session record and the signed session cookie value.
//
// # Session state
//
// A session is in exactly one of three states: [Anonymous], [Authenticated]
// or [RecoveryPending]. Only Authenticated carries a user, so a session
// that grants access without an identity cannot be built.
//
// # Architecture boundaries
//
// This package owns persistence and encoding. It does not decide whether a
// session may access anything; that is the Engine's job.
//
// # What this package must NOT do
//
//   - Import goSession (no upward imports).
//   - Store raw session tokens in Redis. Keys use the token's SHA-256.
//   - Store plaintext secrets in session records.
package session
