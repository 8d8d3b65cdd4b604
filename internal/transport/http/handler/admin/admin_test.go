package admin

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mandalnilabja/pollinate/internal/storage"
)

func setupHandlers(t *testing.T) (*Handlers, storage.Storage) {
	t.Helper()
	store, err := storage.NewSQLiteStorage(filepath.Join(t.TempDir(), "admin.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return New(store), store
}

func seed(t *testing.T, store storage.Storage) {
	t.Helper()
	day := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	logs := []*storage.RequestLog{
		{RequestID: "r1", Kind: storage.KindChat, Model: "mistral", StatusCode: 200, PromptTokens: 10, CompletionTokens: 5, CreatedAt: day},
		{RequestID: "r2", Kind: storage.KindChat, Model: "openai", StatusCode: 502, ErrorMessage: "upstream", CreatedAt: day.Add(time.Hour)},
		{RequestID: "r3", Kind: storage.KindImage, Model: "openai", StatusCode: 200, CreatedAt: day.AddDate(0, 0, 2)},
	}
	for _, l := range logs {
		require.NoError(t, store.LogRequest(l))
	}

	usage := []*storage.DailyUsage{
		{Date: "2026-03-10", Kind: storage.KindChat, Model: "mistral", RequestCount: 1, PromptTokens: 10, CompletionTokens: 5, TotalTokens: 15},
		{Date: "2026-03-10", Kind: storage.KindChat, Model: "openai", RequestCount: 1, ErrorCount: 1},
		{Date: "2026-03-12", Kind: storage.KindImage, Model: "openai", RequestCount: 1, PromptTokens: 800, TotalTokens: 800},
	}
	for _, u := range usage {
		require.NoError(t, store.UpdateDailyUsage(u))
	}
}

func serve(h http.HandlerFunc, method, target string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h(rec, httptest.NewRequest(method, target, nil))
	return rec
}

func TestGetRequestLogs(t *testing.T) {
	h, store := setupHandlers(t)
	seed(t, store)

	tests := []struct {
		name  string
		query string
		want  []string
	}{
		{"all newest first", "", []string{"r3", "r2", "r1"}},
		{"by kind", "?kind=chat", []string{"r2", "r1"}},
		{"by model", "?model=openai", []string{"r3", "r2"}},
		{"by status", "?status_code=502", []string{"r2"}},
		{"end date inclusive", "?end_date=2026-03-10", []string{"r2", "r1"}},
		{"start date", "?start_date=2026-03-11", []string{"r3"}},
		{"limit and offset", "?limit=1&offset=1", []string{"r2"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(h.GetRequestLogs, http.MethodGet, "/api/logs"+tt.query)
			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

			var resp struct {
				Logs []storage.RequestLog `json:"logs"`
			}
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))

			var got []string
			for _, l := range resp.Logs {
				got = append(got, l.RequestID)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestGetRequestLogsEmpty(t *testing.T) {
	h, _ := setupHandlers(t)

	rec := serve(h.GetRequestLogs, http.MethodGet, "/api/logs")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"logs":[],"limit":50,"offset":0}`, rec.Body.String())
}

func TestParseLogFilterLimits(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/api/logs?limit=5000&offset=-3&status_code=abc", nil)
	f := parseLogFilter(r)

	assert.Equal(t, maxLogLimit, f.Limit)
	assert.Equal(t, 0, f.Offset)
	assert.Nil(t, f.StatusCode)
}

func TestDeleteRequestLogs(t *testing.T) {
	h, store := setupHandlers(t)
	seed(t, store)

	rec := serve(h.DeleteRequestLogs, http.MethodDelete, "/api/logs?before_date=2026-03-11")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.JSONEq(t, `{"deleted_count":2,"before_date":"2026-03-11"}`, rec.Body.String())

	logs, err := store.GetRequestLogs(storage.LogFilter{Limit: 10})
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, "r3", logs[0].RequestID)
}

func TestDeleteRequestLogsValidation(t *testing.T) {
	h, _ := setupHandlers(t)

	for _, target := range []string{"/api/logs", "/api/logs?before_date=11-03-2026"} {
		rec := serve(h.DeleteRequestLogs, http.MethodDelete, target)
		assert.Equal(t, http.StatusBadRequest, rec.Code, target)
	}
}

func TestGetUsageStats(t *testing.T) {
	h, store := setupHandlers(t)
	seed(t, store)

	rec := serve(h.GetUsageStats, http.MethodGet, "/api/usage")
	require.Equal(t, http.StatusOK, rec.Code)

	var stats storage.UsageStats
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
	assert.Equal(t, 3, stats.TotalRequests)
	assert.Equal(t, 815, stats.TotalTokens)
	assert.Equal(t, 1, stats.ErrorCount)
	require.Contains(t, stats.ModelBreakdown, "openai")
	assert.Equal(t, 2, stats.ModelBreakdown["openai"].RequestCount)

	rec = serve(h.GetUsageStats, http.MethodGet, "/api/usage?kind=image")
	require.Equal(t, http.StatusOK, rec.Code)
	stats = storage.UsageStats{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
	assert.Equal(t, 1, stats.TotalRequests)
	assert.Equal(t, 800, stats.TotalPromptTokens)
}

func TestGetDailyUsage(t *testing.T) {
	h, store := setupHandlers(t)
	seed(t, store)

	rec := serve(h.GetDailyUsage, http.MethodGet, "/api/usage/daily?start_date=2026-03-01&end_date=2026-03-10")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		DailyUsage []storage.DailyUsage `json:"daily_usage"`
		StartDate  string               `json:"start_date"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "2026-03-01", resp.StartDate)
	require.Len(t, resp.DailyUsage, 2)
	assert.Equal(t, "mistral", resp.DailyUsage[0].Model)
	assert.Equal(t, "openai", resp.DailyUsage[1].Model)

	rec = serve(h.GetDailyUsage, http.MethodGet, "/api/usage/daily?start_date=yesterday")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestStorageDisabled(t *testing.T) {
	h := New(nil)

	handlers := map[string]http.HandlerFunc{
		"logs":        h.GetRequestLogs,
		"delete logs": h.DeleteRequestLogs,
		"usage":       h.GetUsageStats,
		"daily usage": h.GetDailyUsage,
	}
	for name, fn := range handlers {
		t.Run(name, func(t *testing.T) {
			rec := serve(fn, http.MethodGet, "/")
			assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
		})
	}
}
