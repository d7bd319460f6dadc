package middleware

import (
	"encoding/json"
	"net/http"
)

// APIKeyAuth rejects requests whose Api-Key header is missing or not
// in the allowed set.
func APIKeyAuth(validKeys map[string]bool) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			apiKey := r.Header.Get("Api-Key")
			if apiKey == "" {
				unauthorized(w, "missing api-key")
				return
			}
			if !validKeys[apiKey] {
				unauthorized(w, "invalid api-key")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func unauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	json.NewEncoder(w).Encode(map[string]string{"message": message})
}
