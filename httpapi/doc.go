// Package httpapi exposes the authentication core over HTTP: login, PIN
// setup and login, security-question setup, session introspection, logout,
// and the user-visible activity history. Responses are JSON; failures carry
// a single {"error": string} body with internal details logged server-side
// only.
package httpapi
