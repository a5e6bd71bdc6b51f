// Package middleware provides net/http middleware that resolves the session
// token from the auth cookie (or a bearer header) and injects the verified
// [authkit.AuthResult] into the request context.
package middleware
