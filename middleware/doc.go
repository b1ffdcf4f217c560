// Package middleware adapts goSession.Engine to net/http.
//
//   - [LoadSession] turns the session cookie into a request-scoped handle
//     and keeps the cookie in sync with it.
//   - [RequireAuthenticated] is the single access gate for protected routes.
//
// # Architecture boundaries
//
// This package translates HTTP semantics into Engine calls. The access
// decision itself is Engine.Authorize.
//
// # What this package must NOT do
//
//   - Read or sign cookie values itself (delegates to Engine).
//   - Access Redis (Engine handles I/O).
package middleware
