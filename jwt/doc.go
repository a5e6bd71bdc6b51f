// Package jwt wraps session token signing and verification for authkit.
//
// Tokens are HS256-signed, self-contained claim sets {uid, email, role} plus
// registered issued-at/expiry claims. One secret and one TTL apply to every
// token a Manager issues. Verification collapses every failure — bad
// signature, malformed token, expired — into [ErrTokenInvalid] so callers
// cannot hand attackers a diagnostic signal.
package jwt
