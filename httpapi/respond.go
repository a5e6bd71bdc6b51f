package httpapi

import (
	"encoding/json"
	"log"
	"net/http"

	authkit "github.com/allyelvis/authkit"
)

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body != nil {
		_ = json.NewEncoder(w).Encode(body)
	}
}

// writeError maps an engine error to a status code and a single-field JSON
// body. Internal errors are logged and replaced with a generic message; the
// client never sees store or provider detail.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	kind := authkit.Classify(err)
	status := statusFor(kind)
	message := err.Error()
	if kind == authkit.KindInternal {
		log.Printf("httpapi: %s %s failed: %v", r.Method, r.URL.Path, err)
		message = "Internal server error"
	}
	writeJSON(w, status, map[string]string{"error": message})
}

func statusFor(kind authkit.Kind) int {
	switch kind {
	case authkit.KindValidation:
		return http.StatusBadRequest
	case authkit.KindAuthentication, authkit.KindAuthorization:
		return http.StatusUnauthorized
	case authkit.KindNotFound:
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}
