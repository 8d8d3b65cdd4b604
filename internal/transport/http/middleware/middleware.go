// Package middleware provides HTTP middleware for request handling.
package middleware

import "net/http"

// CORS adds Cross-Origin Resource Sharing headers so browser front ends can
// call the API directly. Only GET and POST are offered cross-origin, so a
// page on another origin cannot pass the preflight for DELETE /api/logs.
func CORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, X-Request-ID")
		w.Header().Set("Access-Control-Expose-Headers", "X-Request-ID")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}
