// Package storage provides the storage interface and implementations.
package storage

import (
	"github.com/mandalnilabja/pollinate/internal/storage/models"
	"github.com/mandalnilabja/pollinate/internal/storage/sqlite"
)

// Re-export types from models package for convenience
type (
	RequestLog  = models.RequestLog
	LogFilter   = models.LogFilter
	DailyUsage  = models.DailyUsage
	ModelStats  = models.ModelStats
	UsageStats  = models.UsageStats
	StatsFilter = models.StatsFilter
)

// Request kinds recorded in the log.
const (
	KindChat  = models.KindChat
	KindImage = models.KindImage
	KindVideo = models.KindVideo
)

// Re-export errors from sqlite package
var (
	ErrInvalidInput  = sqlite.ErrInvalidInput
	ErrStorageClosed = sqlite.ErrStorageClosed
)

// Storage defines the interface for request metadata storage.
// Prompt and completion text are never stored.
type Storage interface {
	// Request logging operations
	LogRequest(log *models.RequestLog) error
	GetRequestLogs(filter models.LogFilter) ([]*models.RequestLog, error)
	DeleteRequestLogs(olderThan string) (int64, error)

	// Usage statistics operations
	GetUsageStats(filter models.StatsFilter) (*models.UsageStats, error)
	GetDailyUsage(startDate, endDate string) ([]*models.DailyUsage, error)
	UpdateDailyUsage(usage *models.DailyUsage) error

	Close() error
}

// NewSQLiteStorage creates a new SQLite storage instance
func NewSQLiteStorage(dbPath string) (Storage, error) {
	return sqlite.New(dbPath)
}
