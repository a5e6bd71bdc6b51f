// Package authkit provides the authentication and session-integrity core of
// the backend: password, PIN, and security-question verification, signed
// session tokens, and an append-only security activity log.
//
// The package is designed for concurrent server workloads: Engine methods are
// safe to call from multiple goroutines after initialization through
// [Builder.Build].
//
// # Architecture boundaries
//
// authkit is the public surface. It exposes [Engine], [Builder], [Config],
// the store and provider interfaces ([CredentialStore], [SecurityQuestionStore],
// [ActivityLogStore], [IdentityProvider]), and value types (Credential,
// ActivityLogEntry, AuthResult). Coordination details — per-user locking,
// login throttling, audit dispatch — live under internal/ and are never
// exported. Storage adapters live under stores/ and implement the interfaces
// declared here; the engine never imports them.
//
// # What this package must NOT do
//
//   - Hold long-lived per-request state. Sessions are self-contained signed
//     tokens; there is no server-side session cache.
//   - Persist a plaintext PIN or recovery answer. Both go through the argon2id
//     hasher in the password package before any store call.
//   - Let an activity-log write failure abort the authentication flow that
//     triggered it. Audit writes are best-effort and asynchronous.
//
// # Performance contract
//
// ValidateSession is the hot path: pure signature verification, no store
// round-trips. Login, LoginWithPIN, and the setup operations are allowed
// store and provider round-trips; their slow hash computations run behind a
// bounded gate so a burst cannot monopolize request goroutines.
package authkit
