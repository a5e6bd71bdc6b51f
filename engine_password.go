package authkit

import (
	"context"
	"log"
	"strings"
	"time"
)

// Login verifies an email/password pair against the external identity
// provider and issues a session token on success.
//
// Every failure surfaces as [ErrInvalidCredentials] regardless of cause so
// responses carry no account-enumeration signal; the provider's declared
// reason goes to the activity log only. Inactive accounts are rejected after
// the secret checked out, with [ErrAccountInactive].
func (e *Engine) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	if e == nil || e.identity == nil || e.credentials == nil {
		return nil, ErrEngineNotReady
	}

	email = normalizeEmail(email)
	if email == "" || password == "" {
		return nil, ErrInvalidCredentials
	}

	ip := clientIPFromContext(ctx)
	if e.rateLimiter != nil {
		if err := e.rateLimiter.CheckLogin(ctx, email, ip); err != nil {
			e.metricInc(MetricLoginRateLimited)
			return nil, ErrLoginRateLimited
		}
	}

	if err := e.identity.SignIn(ctx, email, password); err != nil {
		e.metricInc(MetricLoginFailure)
		if e.rateLimiter != nil {
			_ = e.rateLimiter.IncrementLogin(ctx, email, ip)
		}
		// Best-effort: the account may not exist on this side at all.
		if cred, lookupErr := e.credentials.FindByEmail(ctx, email); lookupErr == nil {
			e.emitAudit(ctx, cred.ID, ActionFailedLogin, map[string]string{
				"method": "password",
				"reason": err.Error(),
			})
		}
		return nil, ErrInvalidCredentials
	}

	cred, err := e.credentials.FindByEmail(ctx, email)
	if err != nil {
		e.metricInc(MetricLoginFailure)
		return nil, ErrInvalidCredentials
	}

	if !cred.IsActive {
		e.metricInc(MetricLoginFailure)
		e.emitAudit(ctx, cred.ID, ActionFailedLogin, map[string]string{
			"method": "password",
			"reason": "Account inactive",
		})
		return nil, ErrAccountInactive
	}

	now := time.Now().UTC()
	if err := e.credentials.UpdateProfile(ctx, cred.ID, ProfilePatch{LastActive: &now}); err != nil {
		log.Printf("authkit: last_active update failed for %s: %v", cred.ID, err)
	}
	cred.LastActive = &now

	token, claims, err := e.jwtManager.Issue(cred.ID, cred.Email, string(cred.Role))
	if err != nil {
		return nil, ErrSessionCreationFailed
	}

	if e.rateLimiter != nil {
		_ = e.rateLimiter.ResetLogin(ctx, email, ip)
	}

	e.metricInc(MetricLoginSuccess)
	e.metricInc(MetricTokenIssued)
	e.emitAudit(ctx, cred.ID, ActionLogin, map[string]string{"method": "password"})

	return &LoginResult{
		Credential: cred,
		Token:      token,
		ExpiresAt:  claims.ExpiresAt.Time,
	}, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
