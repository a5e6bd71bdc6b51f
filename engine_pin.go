package authkit

import (
	"context"
	"errors"
	"log"
	"regexp"
	"time"
)

var pinPattern = regexp.MustCompile(`^\d{6}$`)

// SetupPIN hashes and stores a six-digit PIN for the user, replacing any
// prior one. Attempt and lockout bookkeeping reset with the new PIN.
//
// Setup for one user is serialized: the stored-hash check and the upsert run
// under a per-user lock (redis-backed when a client is configured) so
// concurrent calls cannot interleave into a lost update.
func (e *Engine) SetupPIN(ctx context.Context, userID, pin string) error {
	if e == nil || e.credentials == nil {
		return ErrEngineNotReady
	}
	if userID == "" {
		return ErrUserNotFound
	}
	if !pinPattern.MatchString(pin) {
		return ErrPINFormat
	}

	if _, err := e.credentials.FindByID(ctx, userID); err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return ErrUserNotFound
		}
		return ErrStoreUnavailable
	}

	unlock, err := e.setupLocks.Acquire(ctx, "pin-setup:"+userID)
	if err != nil {
		return ErrStoreUnavailable
	}
	defer unlock()

	hash, err := e.hashSecret(ctx, pin)
	if err != nil {
		return err
	}

	existed, err := e.credentials.SetPINHash(ctx, userID, hash)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return ErrUserNotFound
		}
		return ErrStoreUnavailable
	}

	action := ActionPinSetup
	if existed {
		action = ActionPinUpdate
	}
	e.metricInc(MetricPINSetup)
	e.emitAudit(ctx, userID, action, nil)
	return nil
}

// LoginWithPIN verifies a six-digit PIN for the account behind email and
// issues a session token on success.
//
// While the lockout window is open the call rejects with [ErrPINLocked]
// before any hash comparison. Every other mismatch — unknown account, unset
// PIN, wrong PIN — surfaces as [ErrInvalidPIN]. Reaching the attempt
// threshold locks the PIN and logs account_locked once, on the transition.
func (e *Engine) LoginWithPIN(ctx context.Context, email, pin string) (*LoginResult, error) {
	if e == nil || e.credentials == nil {
		return nil, ErrEngineNotReady
	}

	email = normalizeEmail(email)
	if email == "" || pin == "" {
		return nil, ErrInvalidPIN
	}

	cred, err := e.credentials.FindByEmail(ctx, email)
	if err != nil {
		e.metricInc(MetricPINLoginFailure)
		return nil, ErrInvalidPIN
	}

	if cred.PINLockedUntil != nil && cred.PINLockedUntil.After(time.Now()) {
		e.emitAudit(ctx, cred.ID, ActionFailedLogin, map[string]string{
			"method": "pin",
			"reason": "PIN locked",
		})
		return nil, ErrPINLocked
	}

	if !cred.PINSet || cred.PINHash == "" {
		e.metricInc(MetricPINLoginFailure)
		e.emitAudit(ctx, cred.ID, ActionFailedLogin, map[string]string{
			"method": "pin",
			"reason": "PIN not configured",
		})
		return nil, ErrInvalidPIN
	}

	ok, err := e.verifySecret(ctx, pin, cred.PINHash)
	if err != nil || !ok {
		e.metricInc(MetricPINLoginFailure)
		e.registerPINMismatch(ctx, cred)
		return nil, ErrInvalidPIN
	}

	if !cred.IsActive {
		e.metricInc(MetricPINLoginFailure)
		e.emitAudit(ctx, cred.ID, ActionFailedLogin, map[string]string{
			"method": "pin",
			"reason": "Account inactive",
		})
		return nil, ErrAccountInactive
	}

	if err := e.credentials.ResetPINAttempts(ctx, cred.ID); err != nil {
		log.Printf("authkit: pin attempt reset failed for %s: %v", cred.ID, err)
	}
	cred.PINAttempts = 0
	cred.PINLockedUntil = nil

	now := time.Now().UTC()
	if err := e.credentials.UpdateProfile(ctx, cred.ID, ProfilePatch{LastActive: &now}); err != nil {
		log.Printf("authkit: last_active update failed for %s: %v", cred.ID, err)
	}
	cred.LastActive = &now

	token, claims, err := e.jwtManager.Issue(cred.ID, cred.Email, string(cred.Role))
	if err != nil {
		return nil, ErrSessionCreationFailed
	}

	e.metricInc(MetricPINLoginSuccess)
	e.metricInc(MetricTokenIssued)
	e.emitAudit(ctx, cred.ID, ActionLogin, map[string]string{"method": "pin"})

	return &LoginResult{
		Credential: cred,
		Token:      token,
		ExpiresAt:  claims.ExpiresAt.Time,
	}, nil
}

func (e *Engine) registerPINMismatch(ctx context.Context, cred Credential) {
	attempts, err := e.credentials.IncrementPINAttempts(ctx, cred.ID)
	if err != nil {
		log.Printf("authkit: pin attempt increment failed for %s: %v", cred.ID, err)
		e.emitAudit(ctx, cred.ID, ActionFailedLogin, map[string]string{
			"method": "pin",
			"reason": "PIN mismatch",
		})
		return
	}

	e.emitAudit(ctx, cred.ID, ActionFailedLogin, map[string]string{
		"method": "pin",
		"reason": "PIN mismatch",
	})

	if e.config.PIN.MaxAttempts > 0 && attempts >= e.config.PIN.MaxAttempts {
		until := time.Now().UTC().Add(e.config.PIN.LockDuration)
		if err := e.credentials.LockPIN(ctx, cred.ID, until); err != nil {
			log.Printf("authkit: pin lock failed for %s: %v", cred.ID, err)
			return
		}
		e.metricInc(MetricPINLocked)
		e.emitAudit(ctx, cred.ID, ActionAccountLocked, map[string]string{
			"until": until.Format(time.RFC3339),
		})
	}
}
