package httpapi

import (
	"net/http"
	"time"
)

// CookieConfig configures the session cookie. Secure should be set in
// production so the cookie travels only over TLS.
type CookieConfig struct {
	Name   string
	Path   string
	Domain string
	Secure bool
}

// CookieManager persists the session token at the transport boundary as an
// HTTP-only, SameSite=Lax cookie.
type CookieManager struct {
	config CookieConfig
}

// NewCookieManager applies defaults (name "auth_token", path "/") and
// returns a manager.
func NewCookieManager(cfg CookieConfig) *CookieManager {
	if cfg.Name == "" {
		cfg.Name = "auth_token"
	}
	if cfg.Path == "" {
		cfg.Path = "/"
	}
	return &CookieManager{config: cfg}
}

// Name returns the cookie name.
func (m *CookieManager) Name() string {
	return m.config.Name
}

// Set writes the session cookie, expiring with the token.
func (m *CookieManager) Set(w http.ResponseWriter, token string, expiresAt time.Time) {
	maxAge := int(time.Until(expiresAt).Seconds())
	if maxAge < 0 {
		maxAge = 0
	}
	http.SetCookie(w, &http.Cookie{
		Name:     m.config.Name,
		Value:    token,
		Path:     m.config.Path,
		Domain:   m.config.Domain,
		MaxAge:   maxAge,
		Expires:  expiresAt,
		HttpOnly: true,
		Secure:   m.config.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// Clear destroys the session cookie: empty value, immediate expiry.
func (m *CookieManager) Clear(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     m.config.Name,
		Value:    "",
		Path:     m.config.Path,
		Domain:   m.config.Domain,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   m.config.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// Read returns the session token from the request cookie, if present.
func (m *CookieManager) Read(r *http.Request) (string, bool) {
	cookie, err := r.Cookie(m.config.Name)
	if err != nil || cookie.Value == "" {
		return "", false
	}
	return cookie.Value, true
}
