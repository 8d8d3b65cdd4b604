package admin

import (
	"net/http"
	"strconv"
	"time"

	"github.com/mandalnilabja/pollinate/internal/storage"
	"github.com/mandalnilabja/pollinate/internal/transport/http/handler/shared"
)

const (
	dateLayout      = "2006-01-02"
	defaultLogLimit = 50
	maxLogLimit     = 1000
)

// available reports whether request logging is enabled, writing a 503 if not.
func (h *Handlers) available(w http.ResponseWriter) bool {
	if h.Storage == nil {
		shared.WriteJSONError(w, "request logging is disabled", http.StatusServiceUnavailable)
		return false
	}
	return true
}

// GetRequestLogs handles GET /api/logs.
func (h *Handlers) GetRequestLogs(w http.ResponseWriter, r *http.Request) {
	if !h.available(w) {
		return
	}
	filter := parseLogFilter(r)

	logs, err := h.Storage.GetRequestLogs(filter)
	if err != nil {
		shared.WriteJSONError(w, "Failed to get request logs: "+err.Error(), http.StatusInternalServerError)
		return
	}
	if logs == nil {
		logs = []*storage.RequestLog{}
	}

	shared.WriteJSON(w, map[string]any{
		"logs":   logs,
		"limit":  filter.Limit,
		"offset": filter.Offset,
	}, http.StatusOK)
}

// DeleteRequestLogs handles DELETE /api/logs.
func (h *Handlers) DeleteRequestLogs(w http.ResponseWriter, r *http.Request) {
	if !h.available(w) {
		return
	}
	beforeDate := r.URL.Query().Get("before_date")
	if beforeDate == "" {
		shared.WriteJSONError(w, "before_date query parameter is required (format: YYYY-MM-DD)", http.StatusBadRequest)
		return
	}

	if _, err := time.Parse(dateLayout, beforeDate); err != nil {
		shared.WriteJSONError(w, "Invalid date format. Use YYYY-MM-DD", http.StatusBadRequest)
		return
	}

	deleted, err := h.Storage.DeleteRequestLogs(beforeDate)
	if err != nil {
		shared.WriteJSONError(w, "Failed to delete logs: "+err.Error(), http.StatusInternalServerError)
		return
	}

	shared.WriteJSON(w, map[string]any{
		"deleted_count": deleted,
		"before_date":   beforeDate,
	}, http.StatusOK)
}

// parseLogFilter creates a LogFilter from query parameters. Invalid values
// are ignored; end_date includes the whole day.
func parseLogFilter(r *http.Request) storage.LogFilter {
	q := r.URL.Query()
	filter := storage.LogFilter{Limit: defaultLogLimit}

	filter.Kind = q.Get("kind")
	filter.Model = q.Get("model")

	if v := q.Get("status_code"); v != "" {
		if code, err := strconv.Atoi(v); err == nil {
			filter.StatusCode = &code
		}
	}
	if v := q.Get("limit"); v != "" {
		if limit, err := strconv.Atoi(v); err == nil && limit > 0 {
			filter.Limit = min(limit, maxLogLimit)
		}
	}
	if v := q.Get("offset"); v != "" {
		if offset, err := strconv.Atoi(v); err == nil && offset >= 0 {
			filter.Offset = offset
		}
	}
	if v := q.Get("start_date"); v != "" {
		if t, err := time.Parse(dateLayout, v); err == nil {
			filter.StartDate = &t
		}
	}
	if v := q.Get("end_date"); v != "" {
		if t, err := time.Parse(dateLayout, v); err == nil {
			end := t.Add(24*time.Hour - time.Millisecond)
			filter.EndDate = &end
		}
	}

	return filter
}
