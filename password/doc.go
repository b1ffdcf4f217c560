// Package password implements one-way salted secret hashing.
//
// # Output format
//
// Argon2id hashes are encoded in PHC string format:
//
//	$argon2id$v=19$m=<memory>,t=<time>,p=<threads>$<salt>$<hash>
//
// Bcrypt hashes use the standard modular crypt format ($2a$, $2b$, $2y$).
// A [Suite] verifies either format and reports non-primary or weaker hashes
// through NeedsUpgrade so callers can re-hash after a successful login.
//
// # Concurrency
//
// Hashing is CPU-bound. [Pool] bounds the number of concurrent
// computations and lets callers give up through their context.
//
// # What this package must NOT do
//
//   - Store or retrieve secrets. Callers supply plaintext and receive hashes.
//   - Enforce secret strength policy.
//   - Log plaintext secrets or hash parameters at runtime.
package password
