package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// FileConfig represents the TOML configuration file structure.
type FileConfig struct {
	ServerPort       string `toml:"server_port"`
	UpstreamURL      string `toml:"upstream_url"`
	DefaultModel     string `toml:"default_model"`
	VisionModel      string `toml:"vision_model"`
	EnableRequestLog *bool  `toml:"enable_request_log"`

	Log   LogSection   `toml:"log"`
	Media MediaSection `toml:"media"`
}

// LogSection is the [log] table.
type LogSection struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// MediaSection is the [media] table.
type MediaSection struct {
	MaxWidth      int     `toml:"max_width"`
	MaxHeight     int     `toml:"max_height"`
	FrameInterval float64 `toml:"frame_interval"` // seconds
	FFmpegPath    string  `toml:"ffmpeg_path"`
	CacheMB       int     `toml:"cache_mb"`
	MaxUploadMB   int     `toml:"max_upload_mb"`
}

// ConfigPath returns the path to the config file (~/.pollinate/config.toml).
func ConfigPath() string {
	return filepath.Join(DataDir(), "config.toml")
}

// LoadFile loads configuration from the TOML file.
// Returns an empty FileConfig if the file doesn't exist.
func LoadFile() (*FileConfig, error) {
	cfg := &FileConfig{}

	path := ConfigPath()
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return cfg, nil
	}

	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// EnsureConfigFile creates a default config file with commented examples if none exists.
func EnsureConfigFile() error {
	path := ConfigPath()

	if _, err := os.Stat(path); err == nil {
		return nil
	}

	if err := EnsureDataDir(); err != nil {
		return err
	}

	defaultConfig := `# Pollinate Configuration
# Environment variables override every value below.

# server_port = ":8080"
# upstream_url = "https://text.pollinations.ai/"
# default_model = "mistral"
# vision_model = "openai"
# enable_request_log = true

# [log]
# level = "info"     # debug, info, warn, error
# format = "text"    # text or json

# [media]
# max_width = 768
# max_height = 768
# frame_interval = 1.0   # seconds between sampled video frames
# ffmpeg_path = "ffmpeg"
# cache_mb = 64
# max_upload_mb = 50
`

	return os.WriteFile(path, []byte(defaultConfig), 0644)
}
