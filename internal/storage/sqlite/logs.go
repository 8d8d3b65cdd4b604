package sqlite

import (
	"fmt"
	"time"

	"github.com/mandalnilabja/pollinate/internal/storage/models"
)

// LogRequest stores a request log entry
func (s *Storage) LogRequest(log *models.RequestLog) error {
	if log == nil || log.Model == "" || log.Kind == "" {
		return ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStorageClosed
	}

	if log.ID == "" {
		log.ID = generateID("log")
	}
	if log.CreatedAt.IsZero() {
		log.CreatedAt = time.Now()
	}
	log.CreatedAt = log.CreatedAt.UTC()

	_, err := s.db.Exec(`
		INSERT INTO request_logs (id, request_id, kind, model,
			prompt_tokens, completion_tokens, total_tokens, is_streaming,
			json_mode, chunk_count, status_code, error_message, duration_ms, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, log.ID, log.RequestID, log.Kind, log.Model,
		log.PromptTokens, log.CompletionTokens, log.TotalTokens, boolToInt(log.IsStreaming),
		boolToInt(log.JSONMode), log.ChunkCount, log.StatusCode, log.ErrorMessage, log.DurationMs,
		log.CreatedAt.Format(timeLayout))

	return err
}

// GetRequestLogs retrieves request logs with filtering, newest first
func (s *Storage) GetRequestLogs(filter models.LogFilter) ([]*models.RequestLog, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, ErrStorageClosed
	}

	query := `SELECT id, request_id, kind, model,
		prompt_tokens, completion_tokens, total_tokens, is_streaming,
		json_mode, chunk_count, status_code, COALESCE(error_message, ''), duration_ms, created_at
		FROM request_logs WHERE 1=1`

	var args []any

	if filter.Kind != "" {
		query += " AND kind = ?"
		args = append(args, filter.Kind)
	}
	if filter.Model != "" {
		query += " AND model = ?"
		args = append(args, filter.Model)
	}
	if filter.StatusCode != nil {
		query += " AND status_code = ?"
		args = append(args, *filter.StatusCode)
	}
	if filter.StartDate != nil {
		query += " AND created_at >= ?"
		args = append(args, filter.StartDate.UTC().Format(timeLayout))
	}
	if filter.EndDate != nil {
		query += " AND created_at <= ?"
		args = append(args, filter.EndDate.UTC().Format(timeLayout))
	}

	query += " ORDER BY created_at DESC"

	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", filter.Limit)
		if filter.Offset > 0 {
			query += fmt.Sprintf(" OFFSET %d", filter.Offset)
		}
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var logs []*models.RequestLog
	for rows.Next() {
		var log models.RequestLog
		var isStreaming, jsonMode int
		var createdAt string

		err := rows.Scan(&log.ID, &log.RequestID, &log.Kind, &log.Model,
			&log.PromptTokens, &log.CompletionTokens, &log.TotalTokens, &isStreaming,
			&jsonMode, &log.ChunkCount, &log.StatusCode, &log.ErrorMessage, &log.DurationMs, &createdAt)
		if err != nil {
			return nil, err
		}

		log.IsStreaming = isStreaming == 1
		log.JSONMode = jsonMode == 1
		log.CreatedAt, err = time.Parse(timeLayout, createdAt)
		if err != nil {
			return nil, fmt.Errorf("invalid created_at %q: %w", createdAt, err)
		}
		logs = append(logs, &log)
	}

	return logs, rows.Err()
}

// DeleteRequestLogs removes logs created before the given YYYY-MM-DD date
func (s *Storage) DeleteRequestLogs(olderThan string) (int64, error) {
	if _, err := time.Parse(dateLayout, olderThan); err != nil {
		return 0, ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return 0, ErrStorageClosed
	}

	result, err := s.db.Exec("DELETE FROM request_logs WHERE created_at < ?", olderThan)
	if err != nil {
		return 0, err
	}

	return result.RowsAffected()
}
