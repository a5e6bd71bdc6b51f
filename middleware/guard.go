package middleware

import (
	"context"
	"net/http"
	"strings"

	authkit "github.com/allyelvis/authkit"
)

type authResultContextKey struct{}

// AuthResultFromContext returns the verified session placed by [Guard].
func AuthResultFromContext(ctx context.Context) (*authkit.AuthResult, bool) {
	res, ok := ctx.Value(authResultContextKey{}).(*authkit.AuthResult)
	return res, ok
}

// Guard rejects requests without a valid session. The token is read from the
// named cookie, falling back to an Authorization bearer header. Rejections
// are a uniform 401 {"error":"Not authenticated"} with no detail about why
// the token was refused.
func Guard(engine *authkit.Engine, cookieName string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if engine == nil {
				unauthorized(w)
				return
			}

			token, ok := sessionToken(r, cookieName)
			if !ok {
				unauthorized(w)
				return
			}

			res, err := engine.ValidateSession(token)
			if err != nil {
				unauthorized(w)
				return
			}

			ctx := context.WithValue(r.Context(), authResultContextKey{}, res)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func sessionToken(r *http.Request, cookieName string) (string, bool) {
	if cookieName != "" {
		if cookie, err := r.Cookie(cookieName); err == nil && cookie.Value != "" {
			return cookie.Value, true
		}
	}
	return bearerToken(r.Header.Get("Authorization"))
}

func bearerToken(value string) (string, bool) {
	const bearer = "Bearer "
	if !strings.HasPrefix(value, bearer) {
		return "", false
	}

	token := value[len(bearer):]
	if token == "" {
		return "", false
	}

	return token, true
}

func unauthorized(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(`{"error":"Not authenticated"}`))
}
