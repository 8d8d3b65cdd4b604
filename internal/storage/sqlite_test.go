package storage

import (
	"errors"
	"path/filepath"
	"testing"
	"time"
)

func setupTestDB(t *testing.T) Storage {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "test.db")
	storage, err := NewSQLiteStorage(dbPath)
	if err != nil {
		t.Fatalf("failed to create storage: %v", err)
	}
	t.Cleanup(func() { storage.Close() })

	return storage
}

func TestRequestLogging(t *testing.T) {
	storage := setupTestDB(t)

	log := &RequestLog{
		RequestID:        "req-123",
		Kind:             KindChat,
		Model:            "mistral",
		PromptTokens:     100,
		CompletionTokens: 50,
		TotalTokens:      150,
		IsStreaming:      true,
		JSONMode:         true,
		ChunkCount:       12,
		StatusCode:       200,
		DurationMs:       1500,
	}

	if err := storage.LogRequest(log); err != nil {
		t.Fatalf("LogRequest failed: %v", err)
	}
	if log.ID == "" {
		t.Error("expected ID to be generated")
	}

	logs, err := storage.GetRequestLogs(LogFilter{Limit: 10})
	if err != nil {
		t.Fatalf("GetRequestLogs failed: %v", err)
	}
	if len(logs) != 1 {
		t.Fatalf("expected 1 log, got %d", len(logs))
	}

	got := logs[0]
	if got.Model != "mistral" {
		t.Errorf("expected model %q, got %q", "mistral", got.Model)
	}
	if got.TotalTokens != 150 {
		t.Errorf("expected total tokens %d, got %d", 150, got.TotalTokens)
	}
	if !got.IsStreaming || !got.JSONMode {
		t.Errorf("expected streaming and json mode flags, got %+v", got)
	}
	if got.ChunkCount != 12 {
		t.Errorf("expected chunk count %d, got %d", 12, got.ChunkCount)
	}
	if got.CreatedAt.Sub(log.CreatedAt).Abs() > time.Millisecond {
		t.Errorf("created_at = %v, want %v", got.CreatedAt, log.CreatedAt)
	}

	// Filter by model
	logs, err = storage.GetRequestLogs(LogFilter{Model: "openai"})
	if err != nil {
		t.Fatalf("GetRequestLogs with filter failed: %v", err)
	}
	if len(logs) != 0 {
		t.Errorf("expected 0 logs for openai, got %d", len(logs))
	}
}

func TestRequestLogFilters(t *testing.T) {
	storage := setupTestDB(t)

	base := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	entries := []*RequestLog{
		{RequestID: "a", Kind: KindChat, Model: "mistral", StatusCode: 200, CreatedAt: base},
		{RequestID: "b", Kind: KindImage, Model: "openai", StatusCode: 502, CreatedAt: base.Add(time.Hour)},
		{RequestID: "c", Kind: KindVideo, Model: "openai", StatusCode: 200, CreatedAt: base.Add(48 * time.Hour)},
	}
	for _, e := range entries {
		if err := storage.LogRequest(e); err != nil {
			t.Fatalf("LogRequest failed: %v", err)
		}
	}

	status := 200
	start := base.Add(30 * time.Minute)

	tests := []struct {
		name   string
		filter LogFilter
		want   []string
	}{
		{"all newest first", LogFilter{}, []string{"c", "b", "a"}},
		{"by kind", LogFilter{Kind: KindImage}, []string{"b"}},
		{"by model", LogFilter{Model: "openai"}, []string{"c", "b"}},
		{"by status", LogFilter{StatusCode: &status}, []string{"c", "a"}},
		{"by start date", LogFilter{StartDate: &start}, []string{"c", "b"}},
		{"limit and offset", LogFilter{Limit: 1, Offset: 1}, []string{"b"}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			logs, err := storage.GetRequestLogs(tc.filter)
			if err != nil {
				t.Fatalf("GetRequestLogs failed: %v", err)
			}
			var ids []string
			for _, l := range logs {
				ids = append(ids, l.RequestID)
			}
			if len(ids) != len(tc.want) {
				t.Fatalf("got %v, want %v", ids, tc.want)
			}
			for i := range ids {
				if ids[i] != tc.want[i] {
					t.Fatalf("got %v, want %v", ids, tc.want)
				}
			}
		})
	}
}

func TestDeleteRequestLogs(t *testing.T) {
	storage := setupTestDB(t)

	old := &RequestLog{RequestID: "old", Kind: KindChat, Model: "mistral",
		CreatedAt: time.Date(2026, 1, 1, 23, 59, 0, 0, time.UTC)}
	recent := &RequestLog{RequestID: "new", Kind: KindChat, Model: "mistral",
		CreatedAt: time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC)}
	for _, l := range []*RequestLog{old, recent} {
		if err := storage.LogRequest(l); err != nil {
			t.Fatalf("LogRequest failed: %v", err)
		}
	}

	n, err := storage.DeleteRequestLogs("2026-01-02")
	if err != nil {
		t.Fatalf("DeleteRequestLogs failed: %v", err)
	}
	if n != 1 {
		t.Errorf("expected 1 deleted log, got %d", n)
	}

	logs, _ := storage.GetRequestLogs(LogFilter{})
	if len(logs) != 1 || logs[0].RequestID != "new" {
		t.Errorf("expected only the recent log to remain, got %d logs", len(logs))
	}

	if _, err := storage.DeleteRequestLogs("yesterday"); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput, got %v", err)
	}
}

func TestLogRequestRequiresModelAndKind(t *testing.T) {
	storage := setupTestDB(t)

	if err := storage.LogRequest(&RequestLog{Kind: KindChat}); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("missing model: expected ErrInvalidInput, got %v", err)
	}
	if err := storage.LogRequest(&RequestLog{Model: "mistral"}); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("missing kind: expected ErrInvalidInput, got %v", err)
	}
}

func TestDailyUsage(t *testing.T) {
	storage := setupTestDB(t)

	today := time.Now().Format("2006-01-02")

	usage := &DailyUsage{
		Date:             today,
		Kind:             KindChat,
		Model:            "mistral",
		RequestCount:     10,
		PromptTokens:     1000,
		CompletionTokens: 500,
		TotalTokens:      1500,
		ErrorCount:       1,
	}
	if err := storage.UpdateDailyUsage(usage); err != nil {
		t.Fatalf("UpdateDailyUsage failed: %v", err)
	}

	// Update again (should add)
	usage2 := &DailyUsage{
		Date:             today,
		Kind:             KindChat,
		Model:            "mistral",
		RequestCount:     5,
		PromptTokens:     500,
		CompletionTokens: 250,
		TotalTokens:      750,
	}
	if err := storage.UpdateDailyUsage(usage2); err != nil {
		t.Fatalf("UpdateDailyUsage second time failed: %v", err)
	}

	dailyUsage, err := storage.GetDailyUsage(today, today)
	if err != nil {
		t.Fatalf("GetDailyUsage failed: %v", err)
	}
	if len(dailyUsage) != 1 {
		t.Fatalf("expected 1 daily usage entry, got %d", len(dailyUsage))
	}
	if dailyUsage[0].RequestCount != 15 {
		t.Errorf("expected request count %d, got %d", 15, dailyUsage[0].RequestCount)
	}
	if dailyUsage[0].TotalTokens != 2250 {
		t.Errorf("expected total tokens %d, got %d", 2250, dailyUsage[0].TotalTokens)
	}
	if dailyUsage[0].ErrorCount != 1 {
		t.Errorf("expected error count %d, got %d", 1, dailyUsage[0].ErrorCount)
	}
}

func TestUsageStats(t *testing.T) {
	storage := setupTestDB(t)

	today := time.Now().Format("2006-01-02")

	for _, u := range []*DailyUsage{
		{Date: today, Kind: KindChat, Model: "mistral", RequestCount: 10, TotalTokens: 1500},
		{Date: today, Kind: KindImage, Model: "openai", RequestCount: 5, TotalTokens: 1000, ErrorCount: 2},
		{Date: today, Kind: KindVideo, Model: "openai", RequestCount: 1, TotalTokens: 4000},
	} {
		if err := storage.UpdateDailyUsage(u); err != nil {
			t.Fatalf("UpdateDailyUsage failed: %v", err)
		}
	}

	stats, err := storage.GetUsageStats(StatsFilter{})
	if err != nil {
		t.Fatalf("GetUsageStats failed: %v", err)
	}
	if stats.TotalRequests != 16 {
		t.Errorf("expected total requests %d, got %d", 16, stats.TotalRequests)
	}
	if stats.TotalTokens != 6500 {
		t.Errorf("expected total tokens %d, got %d", 6500, stats.TotalTokens)
	}
	if stats.ErrorCount != 2 {
		t.Errorf("expected error count %d, got %d", 2, stats.ErrorCount)
	}
	if len(stats.ModelBreakdown) != 2 {
		t.Errorf("expected 2 models in breakdown, got %d", len(stats.ModelBreakdown))
	}
	if got := stats.ModelBreakdown["openai"].RequestCount; got != 6 {
		t.Errorf("expected openai request count %d, got %d", 6, got)
	}

	stats, err = storage.GetUsageStats(StatsFilter{Kind: KindImage})
	if err != nil {
		t.Fatalf("GetUsageStats with kind failed: %v", err)
	}
	if stats.TotalRequests != 5 {
		t.Errorf("expected image requests %d, got %d", 5, stats.TotalRequests)
	}

	tomorrow := time.Now().AddDate(0, 0, 1)
	stats, err = storage.GetUsageStats(StatsFilter{StartDate: &tomorrow})
	if err != nil {
		t.Fatalf("GetUsageStats with start date failed: %v", err)
	}
	if stats.TotalRequests != 0 {
		t.Errorf("expected no requests after today, got %d", stats.TotalRequests)
	}
}

func TestStorageClosedError(t *testing.T) {
	storage := setupTestDB(t)
	storage.Close()

	// All operations should return ErrStorageClosed
	if _, err := storage.GetRequestLogs(LogFilter{}); err != ErrStorageClosed {
		t.Errorf("expected ErrStorageClosed, got %v", err)
	}
	err := storage.LogRequest(&RequestLog{Kind: KindChat, Model: "mistral"})
	if err != ErrStorageClosed {
		t.Errorf("expected ErrStorageClosed, got %v", err)
	}
	if err := storage.UpdateDailyUsage(&DailyUsage{Date: "2026-01-01", Kind: KindChat, Model: "m"}); err != ErrStorageClosed {
		t.Errorf("expected ErrStorageClosed, got %v", err)
	}
	if err := storage.Close(); err != nil {
		t.Errorf("second Close returned %v", err)
	}
}
