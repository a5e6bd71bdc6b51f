// Package lock serializes check-then-write sequences that share a key, such
// as concurrent PIN setups for one user. With a Redis client the lock spans
// processes; without one it degrades to a process-local keyed mutex.
package lock
