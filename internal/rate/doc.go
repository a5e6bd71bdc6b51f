// Package rate enforces per-identifier and per-IP login attempt budgets
// using Redis counters with cooldown TTLs.
package rate
