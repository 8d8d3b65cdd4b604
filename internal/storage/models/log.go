package models

import "time"

// Request kinds.
const (
	KindChat  = "chat"
	KindImage = "image"
	KindVideo = "video"
)

// RequestLog is the metadata of one relayed request.
type RequestLog struct {
	ID               string    `json:"id"`
	RequestID        string    `json:"request_id"`
	Kind             string    `json:"kind"`
	Model            string    `json:"model"`
	PromptTokens     int       `json:"prompt_tokens"`
	CompletionTokens int       `json:"completion_tokens"`
	TotalTokens      int       `json:"total_tokens"`
	IsStreaming      bool      `json:"is_streaming"`
	JSONMode         bool      `json:"json_mode"`
	ChunkCount       int       `json:"chunk_count"`
	StatusCode       int       `json:"status_code"`
	ErrorMessage     string    `json:"error_message,omitempty"`
	DurationMs       int64     `json:"duration_ms"`
	CreatedAt        time.Time `json:"created_at"`
}

// LogFilter contains parameters for filtering request logs
type LogFilter struct {
	Kind       string
	Model      string
	StatusCode *int
	StartDate  *time.Time
	EndDate    *time.Time
	Limit      int
	Offset     int
}
