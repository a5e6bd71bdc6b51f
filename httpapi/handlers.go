package httpapi

import (
	"encoding/json"
	"net"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	authkit "github.com/allyelvis/authkit"
	"github.com/allyelvis/authkit/middleware"
)

// Handler serves the authentication endpoints.
type Handler struct {
	engine  *authkit.Engine
	cookies *CookieManager
}

// New returns a Handler over the given engine and cookie manager.
func New(engine *authkit.Engine, cookies *CookieManager) *Handler {
	return &Handler{engine: engine, cookies: cookies}
}

// Routes mounts the auth API. Request metadata (client IP, user agent) is
// attached to the context here so every flow beneath sees it.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(h.requestMeta)

	r.Post("/api/auth/login", h.handleLogin)
	r.Post("/api/auth/pin/login", h.handlePINLogin)
	r.Post("/api/auth/logout", h.handleLogout)

	r.Group(func(pr chi.Router) {
		pr.Use(middleware.Guard(h.engine, h.cookies.Name()))
		pr.Post("/api/auth/security-questions", h.handleSecurityQuestions)
		pr.Post("/api/auth/pin/setup", h.handlePINSetup)
		pr.Get("/api/auth/session", h.handleSession)
		pr.Get("/api/auth/activity", h.handleActivity)
	})

	return r
}

func (h *Handler) requestMeta(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := authkit.WithClientIP(r.Context(), clientIP(r))
		ctx = authkit.WithUserAgent(ctx, r.UserAgent())
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
		return
	}

	result, err := h.engine.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, r, err)
		return
	}

	h.cookies.Set(w, result.Token, result.ExpiresAt)
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"user":    userPayload(result.Credential),
	})
}

type pinLoginRequest struct {
	Email string `json:"email"`
	PIN   string `json:"pin"`
}

func (h *Handler) handlePINLogin(w http.ResponseWriter, r *http.Request) {
	var req pinLoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
		return
	}

	result, err := h.engine.LoginWithPIN(r.Context(), req.Email, req.PIN)
	if err != nil {
		writeError(w, r, err)
		return
	}

	h.cookies.Set(w, result.Token, result.ExpiresAt)
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"user":    userPayload(result.Credential),
	})
}

type pinSetupRequest struct {
	PIN string `json:"pin"`
}

func (h *Handler) handlePINSetup(w http.ResponseWriter, r *http.Request) {
	res, ok := middleware.AuthResultFromContext(r.Context())
	if !ok {
		writeError(w, r, authkit.ErrNotAuthenticated)
		return
	}

	var req pinSetupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
		return
	}

	if err := h.engine.SetupPIN(r.Context(), res.UserID, req.PIN); err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

type securityQuestionsRequest struct {
	Questions []struct {
		Question string `json:"question"`
		Answer   string `json:"answer"`
	} `json:"questions"`
}

func (h *Handler) handleSecurityQuestions(w http.ResponseWriter, r *http.Request) {
	res, ok := middleware.AuthResultFromContext(r.Context())
	if !ok {
		writeError(w, r, authkit.ErrNotAuthenticated)
		return
	}

	var req securityQuestionsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
		return
	}

	pairs := make([]authkit.QuestionAnswer, 0, len(req.Questions))
	for _, q := range req.Questions {
		pairs = append(pairs, authkit.QuestionAnswer{Question: q.Question, Answer: q.Answer})
	}

	if err := h.engine.SetupSecurityQuestions(r.Context(), res.UserID, pairs); err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	// Best-effort attribution: an expired or absent cookie still logs out.
	if token, ok := h.cookies.Read(r); ok {
		if res, err := h.engine.ValidateSession(token); err == nil {
			h.engine.Logout(r.Context(), res.UserID)
		}
	}

	h.cookies.Clear(w)
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (h *Handler) handleSession(w http.ResponseWriter, r *http.Request) {
	res, ok := middleware.AuthResultFromContext(r.Context())
	if !ok {
		writeError(w, r, authkit.ErrNotAuthenticated)
		return
	}

	cred, err := h.engine.Profile(r.Context(), res.UserID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"user": userPayload(cred)})
}

func (h *Handler) handleActivity(w http.ResponseWriter, r *http.Request) {
	res, ok := middleware.AuthResultFromContext(r.Context())
	if !ok {
		writeError(w, r, authkit.ErrNotAuthenticated)
		return
	}

	limit := queryInt(r, "limit", 20)
	if limit > 100 {
		limit = 100
	}
	offset := queryInt(r, "offset", 0)

	entries, total, err := h.engine.ActivityLog(r.Context(), res.UserID, limit, offset)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"entries": entries,
		"total":   total,
	})
}

func userPayload(cred authkit.Credential) map[string]any {
	return map[string]any{
		"id":       cred.ID,
		"email":    cred.Email,
		"name":     cred.Name,
		"role":     cred.Role,
		"isActive": cred.IsActive,
		"pinSet":   cred.PINSet,
	}
}

func queryInt(r *http.Request, name string, fallback int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return fallback
	}
	return v
}

func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		if idx := strings.IndexByte(fwd, ','); idx >= 0 {
			fwd = fwd[:idx]
		}
		return strings.TrimSpace(fwd)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
