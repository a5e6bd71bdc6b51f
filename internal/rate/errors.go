package rate

import "errors"

var (
	// ErrRateLimited signals an exhausted attempt budget.
	ErrRateLimited = errors.New("rate limited")
	// ErrRedisUnavailable signals a failed Redis round-trip.
	ErrRedisUnavailable = errors.New("redis unavailable")
)
