package admin

import (
	"net/http"
	"time"

	"github.com/mandalnilabja/pollinate/internal/storage"
	"github.com/mandalnilabja/pollinate/internal/transport/http/handler/shared"
)

// GetUsageStats handles GET /api/usage.
func (h *Handlers) GetUsageStats(w http.ResponseWriter, r *http.Request) {
	if !h.available(w) {
		return
	}
	filter := parseStatsFilter(r)

	stats, err := h.Storage.GetUsageStats(filter)
	if err != nil {
		shared.WriteJSONError(w, "Failed to get usage stats: "+err.Error(), http.StatusInternalServerError)
		return
	}

	shared.WriteJSON(w, stats, http.StatusOK)
}

// GetDailyUsage handles GET /api/usage/daily.
func (h *Handlers) GetDailyUsage(w http.ResponseWriter, r *http.Request) {
	if !h.available(w) {
		return
	}
	startDate := r.URL.Query().Get("start_date")
	endDate := r.URL.Query().Get("end_date")

	// Default to last 30 days if not specified
	now := time.Now().UTC()
	if startDate == "" {
		startDate = now.AddDate(0, 0, -30).Format(dateLayout)
	}
	if endDate == "" {
		endDate = now.Format(dateLayout)
	}
	for _, d := range []string{startDate, endDate} {
		if _, err := time.Parse(dateLayout, d); err != nil {
			shared.WriteJSONError(w, "Invalid date format. Use YYYY-MM-DD", http.StatusBadRequest)
			return
		}
	}

	usage, err := h.Storage.GetDailyUsage(startDate, endDate)
	if err != nil {
		shared.WriteJSONError(w, "Failed to get daily usage: "+err.Error(), http.StatusInternalServerError)
		return
	}
	if usage == nil {
		usage = []*storage.DailyUsage{}
	}

	shared.WriteJSON(w, map[string]any{
		"daily_usage": usage,
		"start_date":  startDate,
		"end_date":    endDate,
	}, http.StatusOK)
}

// parseStatsFilter creates a StatsFilter from query parameters.
func parseStatsFilter(r *http.Request) storage.StatsFilter {
	q := r.URL.Query()
	filter := storage.StatsFilter{
		Kind:  q.Get("kind"),
		Model: q.Get("model"),
	}

	if v := q.Get("start_date"); v != "" {
		if t, err := time.Parse(dateLayout, v); err == nil {
			filter.StartDate = &t
		}
	}
	if v := q.Get("end_date"); v != "" {
		if t, err := time.Parse(dateLayout, v); err == nil {
			filter.EndDate = &t
		}
	}

	return filter
}
