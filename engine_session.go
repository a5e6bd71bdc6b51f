package authkit

import "context"

// IssueSession signs a session token for an already-authenticated credential.
// Login and LoginWithPIN call it implicitly; it is exposed for recovery flows
// that establish identity through other means.
func (e *Engine) IssueSession(cred Credential) (string, *AuthResult, error) {
	if e == nil || e.jwtManager == nil {
		return "", nil, ErrEngineNotReady
	}

	token, claims, err := e.jwtManager.Issue(cred.ID, cred.Email, string(cred.Role))
	if err != nil {
		return "", nil, ErrSessionCreationFailed
	}

	e.metricInc(MetricTokenIssued)
	return token, &AuthResult{
		UserID:    claims.UID,
		Email:     claims.Email,
		Role:      Role(claims.Role),
		IssuedAt:  claims.IssuedAt.Time,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}

// ValidateSession verifies a session token's signature and expiry. Pure
// computation, no store round-trips. Every failure mode — forged, malformed,
// expired — collapses to [ErrTokenInvalid].
func (e *Engine) ValidateSession(token string) (*AuthResult, error) {
	if e == nil || e.jwtManager == nil {
		return nil, ErrEngineNotReady
	}

	claims, err := e.jwtManager.Parse(token)
	if err != nil {
		e.metricInc(MetricTokenRejected)
		return nil, ErrTokenInvalid
	}

	out := &AuthResult{
		UserID: claims.UID,
		Email:  claims.Email,
		Role:   Role(claims.Role),
	}
	if claims.IssuedAt != nil {
		out.IssuedAt = claims.IssuedAt.Time
	}
	if claims.ExpiresAt != nil {
		out.ExpiresAt = claims.ExpiresAt.Time
	}
	return out, nil
}

// Logout records the logout event. Tokens are self-contained, so the session
// itself dies at the transport boundary when the cookie is cleared.
func (e *Engine) Logout(ctx context.Context, userID string) {
	if e == nil || userID == "" {
		return
	}
	e.metricInc(MetricLogout)
	e.emitAudit(ctx, userID, ActionLogout, nil)
}
