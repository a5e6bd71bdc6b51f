// Package password provides the argon2id hasher used for PINs and recovery
// answers. Hashes are emitted in PHC string format so parameters travel with
// the hash and verification works across parameter upgrades.
//
// The primary account password is NOT hashed here; it belongs to the external
// identity provider and never reaches this process.
package password
