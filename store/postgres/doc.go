// Package postgres implements goSession.CredentialStore on PostgreSQL with
// pgx, and ships the schema as embedded golang-migrate migrations.
//
// Email and identity uniqueness is enforced by the schema; Insert maps the
// violated constraint to goSession.ErrDuplicateEmail or
// goSession.ErrDuplicateIdentity.
package postgres
