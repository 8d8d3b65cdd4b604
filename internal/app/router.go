package app

import (
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mandalnilabja/pollinate/internal/observability"
	"github.com/mandalnilabja/pollinate/internal/transport/http/handler"
	"github.com/mandalnilabja/pollinate/internal/transport/http/middleware"
)

// RouterOptions configures the HTTP router behavior.
type RouterOptions struct {
	Logger *slog.Logger
}

// NewRouter creates and configures the HTTP router with all application routes.
// Returns an http.Handler with middleware applied. opts may be nil.
func NewRouter(repo *handler.Repo, opts *RouterOptions) http.Handler {
	mux := http.NewServeMux()

	// Relay and analysis
	mux.HandleFunc("POST /api/chat", repo.Proxy.Chat)
	mux.HandleFunc("POST /api/analyze/image", repo.Proxy.AnalyzeImage)
	mux.HandleFunc("POST /api/analyze/video", repo.Proxy.AnalyzeVideo)

	// Usage and logs
	mux.HandleFunc("GET /api/usage", repo.Admin.GetUsageStats)
	mux.HandleFunc("GET /api/usage/daily", repo.Admin.GetDailyUsage)
	mux.HandleFunc("GET /api/logs", repo.Admin.GetRequestLogs)
	mux.HandleFunc("DELETE /api/logs", repo.Admin.DeleteRequestLogs)

	// Infrastructure
	mux.HandleFunc("GET /api/health", repo.Infra.HealthCheck)
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("GET /{$}", repo.Infra.RootStatus)

	// Apply middleware chain (order: inner to outer)
	var h http.Handler = observability.MetricsMiddleware(mux)

	if opts != nil && opts.Logger != nil {
		h = middleware.RequestLogger(opts.Logger)(h)
	}

	h = middleware.RequestID(h)
	h = middleware.CORS(h)

	return h
}
