// Package config loads service configuration from defaults, the TOML
// config file and environment variables.
package config

import (
	"os"
	"strconv"
	"time"

	"github.com/mandalnilabja/pollinate/internal/types"
	"github.com/mandalnilabja/pollinate/internal/upstream"
)

// Config holds application configuration loaded from environment and file.
// Priority: env vars → config.toml → defaults
type Config struct {
	// ServerPort is the address to bind the server to (e.g., ":8080")
	ServerPort string

	// UpstreamURL is the generative text endpoint prompts are posted to.
	UpstreamURL string

	DefaultModel string
	VisionModel  string

	// LogLevel is one of debug, info, warn, error.
	LogLevel string
	// LogFormat is "text" or "json".
	LogFormat string

	// EnableRequestLog stores request metadata and daily usage in SQLite.
	EnableRequestLog bool

	// Media preprocessing
	MaxImageWidth  int
	MaxImageHeight int
	FrameInterval  time.Duration
	FFmpegPath     string
	MediaCacheMB   int
	MaxUploadMB    int
}

// Load reads configuration from file and environment variables.
// Environment variables override file config values.
func Load() *Config {
	fileConfig, err := LoadFile()
	if err != nil {
		fileConfig = &FileConfig{} // unreadable file, use defaults
	}

	return &Config{
		ServerPort:       getEnvOrFile("SERVER_PORT", fileConfig.ServerPort, ":8080"),
		UpstreamURL:      getEnvOrFile("UPSTREAM_URL", fileConfig.UpstreamURL, upstream.DefaultURL),
		DefaultModel:     getEnvOrFile("DEFAULT_MODEL", fileConfig.DefaultModel, types.DefaultModel),
		VisionModel:      getEnvOrFile("VISION_MODEL", fileConfig.VisionModel, types.DefaultVisionModel),
		LogLevel:         getEnvOrFile("LOG_LEVEL", fileConfig.Log.Level, "info"),
		LogFormat:        getEnvOrFile("LOG_FORMAT", fileConfig.Log.Format, "text"),
		EnableRequestLog: getEnvBoolOrFile("ENABLE_REQUEST_LOG", fileConfig.EnableRequestLog, true),
		MaxImageWidth:    getEnvIntOrFile("MAX_IMAGE_WIDTH", fileConfig.Media.MaxWidth, 768),
		MaxImageHeight:   getEnvIntOrFile("MAX_IMAGE_HEIGHT", fileConfig.Media.MaxHeight, 768),
		FrameInterval:    getEnvSecondsOrFile("FRAME_INTERVAL", fileConfig.Media.FrameInterval, time.Second),
		FFmpegPath:       getEnvOrFile("FFMPEG_PATH", fileConfig.Media.FFmpegPath, "ffmpeg"),
		MediaCacheMB:     getEnvIntOrFile("MEDIA_CACHE_MB", fileConfig.Media.CacheMB, 64),
		MaxUploadMB:      getEnvIntOrFile("MAX_UPLOAD_MB", fileConfig.Media.MaxUploadMB, 50),
	}
}

// getEnvOrFile returns env value, file value, or default (in priority order)
func getEnvOrFile(key, fileValue, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	if fileValue != "" {
		return fileValue
	}
	return defaultValue
}

// getEnvBoolOrFile returns env bool, file bool, or default (in priority order)
func getEnvBoolOrFile(key string, fileValue *bool, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return value == "true" || value == "1" || value == "yes"
	}
	if fileValue != nil {
		return *fileValue
	}
	return defaultValue
}

// getEnvIntOrFile returns a positive env int, file int, or default.
// Unparseable or non-positive values are skipped.
func getEnvIntOrFile(key string, fileValue int, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil && n > 0 {
			return n
		}
	}
	if fileValue > 0 {
		return fileValue
	}
	return defaultValue
}

// getEnvSecondsOrFile reads a duration given in (possibly fractional) seconds.
func getEnvSecondsOrFile(key string, fileValue float64, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if secs, err := strconv.ParseFloat(value, 64); err == nil && secs > 0 {
			return time.Duration(secs * float64(time.Second))
		}
	}
	if fileValue > 0 {
		return time.Duration(fileValue * float64(time.Second))
	}
	return defaultValue
}
