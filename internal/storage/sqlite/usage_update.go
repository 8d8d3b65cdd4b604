package sqlite

import "github.com/mandalnilabja/pollinate/internal/storage/models"

// UpdateDailyUsage upserts daily usage data, adding to any existing row
// for the same date, kind and model.
func (s *Storage) UpdateDailyUsage(usage *models.DailyUsage) error {
	if usage == nil || usage.Date == "" || usage.Model == "" || usage.Kind == "" {
		return ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStorageClosed
	}

	_, err := s.db.Exec(`
		INSERT INTO usage_daily (date, kind, model, request_count,
			prompt_tokens, completion_tokens, total_tokens, error_count)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(date, kind, model) DO UPDATE SET
			request_count = request_count + excluded.request_count,
			prompt_tokens = prompt_tokens + excluded.prompt_tokens,
			completion_tokens = completion_tokens + excluded.completion_tokens,
			total_tokens = total_tokens + excluded.total_tokens,
			error_count = error_count + excluded.error_count
	`, usage.Date, usage.Kind, usage.Model, usage.RequestCount,
		usage.PromptTokens, usage.CompletionTokens, usage.TotalTokens, usage.ErrorCount)

	return err
}
