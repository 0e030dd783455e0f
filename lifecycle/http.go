package lifecycle

import (
	"encoding/json"
	"net/http"
)

// LivenessHandler returns an HTTP handler for liveness probes. It reports
// only that the process is serving requests.
func LivenessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	}
}

// SnapshotHandler returns an HTTP handler serving the health snapshot as
// JSON. Healthy and degraded servers answer 200 so orchestrators keep
// routing traffic during partial outages; only an unhealthy server answers
// 503.
func SnapshotHandler(c *Controller) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		snapshot := c.Health()

		w.Header().Set("Content-Type", "application/json")
		if snapshot.Status == "unhealthy" {
			w.WriteHeader(http.StatusServiceUnavailable)
		} else {
			w.WriteHeader(http.StatusOK)
		}
		_ = json.NewEncoder(w).Encode(snapshot)
	}
}

// RequireBearer wraps a handler with bearer token verification. A nil
// verifier leaves the handler unprotected.
func RequireBearer(verifier *TokenVerifier, next http.HandlerFunc) http.HandlerFunc {
	if verifier == nil {
		return next
	}
	return func(w http.ResponseWriter, r *http.Request) {
		if err := verifier.Verify(r.Header.Get("Authorization")); err != nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			_ = json.NewEncoder(w).Encode(map[string]string{"error": "unauthorized"})
			return
		}
		next(w, r)
	}
}

// RegisterHandlers registers the lifecycle HTTP endpoints on the given mux.
// The liveness endpoint is always unauthenticated; the snapshot endpoint is
// protected when a verifier is supplied.
func RegisterHandlers(mux *http.ServeMux, c *Controller, verifier *TokenVerifier) {
	mux.HandleFunc("/healthz", LivenessHandler())
	mux.HandleFunc("/health", RequireBearer(verifier, SnapshotHandler(c)))
}
