package infra

import (
	"net/http"
	"time"

	"github.com/mandalnilabja/pollinate/internal/transport/http/handler/shared"
	"github.com/mandalnilabja/pollinate/internal/version"
)

// RootStatus returns JSON status and version information at /.
func (h *Handlers) RootStatus(w http.ResponseWriter, r *http.Request) {
	shared.WriteJSON(w, map[string]any{
		"name":     "pollinate",
		"version":  version.Version,
		"status":   "running",
		"upstream": h.UpstreamURL,
		"endpoints": []string{
			"POST /api/chat",
			"POST /api/analyze/image",
			"POST /api/analyze/video",
			"GET /api/usage",
			"GET /api/logs",
			"GET /metrics",
		},
	}, http.StatusOK)
}

// HealthCheck handler returns the application health status.
func (h *Handlers) HealthCheck(w http.ResponseWriter, r *http.Request) {
	shared.WriteJSON(w, map[string]any{
		"status":         "active",
		"app":            "pollinate",
		"version":        version.Version,
		"commit":         version.Commit,
		"uptime_seconds": int64(time.Since(h.StartTime).Seconds()),
	}, http.StatusOK)
}
