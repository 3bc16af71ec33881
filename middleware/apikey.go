package middleware

import (
	"crypto/subtle"
	"net/http"
)

// APIKeyMiddleware gates the sensor ingest endpoint with a static key
// carried in the X-API-Key header. Sensors and gateways don't hold JWTs.
func APIKeyMiddleware(apiKey string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if apiKey == "" {
				writeError(w, "Ingest is not configured", http.StatusServiceUnavailable)
				return
			}

			provided := r.Header.Get("X-API-Key")
			if subtle.ConstantTimeCompare([]byte(provided), []byte(apiKey)) != 1 {
				writeError(w, "Invalid API key", http.StatusUnauthorized)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
