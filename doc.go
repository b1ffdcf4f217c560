// Package goSession provides a server-side session authentication engine:
// account signup, login, a two-step security-question recovery and an
// access gate, all keyed by an opaque token kept in a signed cookie.
//
// Engine methods are safe to call from multiple goroutines after
// [Builder.Build]. The *session.Session handle passed to them belongs to a
// single request.
//
// # Architecture boundaries
//
// goSession is the public surface: [Engine], [Builder], [Config], the
// [CredentialStore] contract and the error sentinels. Flow orchestration
// lives in internal/flows; session persistence and encoding live in the
// session package; secret hashing lives in password.
//
// # Errors
//
// Business outcomes are plain sentinels (ErrDuplicateEmail,
// ErrInvalidCredentials, ...) or a *ValidationError. Infrastructure failures
// wrap ErrCredentialStore, ErrSessionStore or ErrHashing; use
// [IsBackendError] to tell them apart.
//
// # What this package must NOT do
//
//   - Put anything but the signed token in the cookie.
//   - Grant access to a session that is not Authenticated.
//   - Tell a caller which half of a failed recovery was wrong.
package goSession
