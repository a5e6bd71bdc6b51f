package authkit

import (
	"context"
	"errors"

	"github.com/allyelvis/authkit/internal/lock"
	"github.com/allyelvis/authkit/internal/rate"
	"github.com/allyelvis/authkit/jwt"
	"github.com/allyelvis/authkit/password"
)

// Engine is the authentication core. Instances are configured through
// [Builder.Build] and immutable afterwards; all methods are safe for
// concurrent use.
type Engine struct {
	config      Config
	credentials CredentialStore
	questions   SecurityQuestionStore
	activity    ActivityLogStore
	identity    IdentityProvider
	rateLimiter *rate.Limiter
	setupLocks  *lock.Keyed
	audit       *auditDispatcher
	metrics     *Metrics
	hasher      *password.Hasher
	hashGate    chan struct{}
	jwtManager  *jwt.Manager
}

// Close drains and stops the audit pipeline. It does not close the stores or
// clients handed to the builder; their lifecycle belongs to the caller.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	if e.audit != nil {
		e.audit.Close()
	}
}

// AuditDropped reports how many activity entries were dropped or failed to
// persist since the engine started.
func (e *Engine) AuditDropped() uint64 {
	if e == nil || e.audit == nil {
		return 0
	}
	return e.audit.Dropped()
}

// Profile returns the credential record for a user id.
func (e *Engine) Profile(ctx context.Context, userID string) (Credential, error) {
	if e == nil || e.credentials == nil {
		return Credential{}, ErrEngineNotReady
	}
	if userID == "" {
		return Credential{}, ErrUserNotFound
	}
	cred, err := e.credentials.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return Credential{}, ErrUserNotFound
		}
		return Credential{}, ErrStoreUnavailable
	}
	return cred, nil
}

// hashSecret computes the argon2id hash of a PIN or recovery answer behind
// the bounded gate so concurrent hashing cannot starve request goroutines.
func (e *Engine) hashSecret(ctx context.Context, secret string) (string, error) {
	select {
	case e.hashGate <- struct{}{}:
	case <-ctx.Done():
		return "", ctx.Err()
	}
	defer func() { <-e.hashGate }()
	return e.hasher.Hash(secret)
}

func (e *Engine) verifySecret(ctx context.Context, secret, encoded string) (bool, error) {
	select {
	case e.hashGate <- struct{}{}:
	case <-ctx.Done():
		return false, ctx.Err()
	}
	defer func() { <-e.hashGate }()
	return e.hasher.Verify(secret, encoded)
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}

// MetricsSnapshot returns a copy of the engine counters.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{Counters: map[MetricID]uint64{}}
	}
	return e.metrics.Snapshot()
}
