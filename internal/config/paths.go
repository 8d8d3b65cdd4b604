package config

import (
	"os"
	"path/filepath"
	"runtime"
)

// DataDir returns the path to the Pollinate data directory.
// - POLLINATE_DATA_DIR when set
// - Windows: %APPDATA%\pollinate
// - Other OS: ~/.pollinate
func DataDir() string {
	if dir := os.Getenv("POLLINATE_DATA_DIR"); dir != "" {
		return dir
	}

	if runtime.GOOS == "windows" {
		if appData := os.Getenv("APPDATA"); appData != "" {
			return filepath.Join(appData, "pollinate")
		}
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return ".pollinate"
	}
	return filepath.Join(home, ".pollinate")
}

// DBPath returns the path to the SQLite database file.
func DBPath() string {
	return filepath.Join(DataDir(), "pollinate.db")
}

// EnsureDataDir creates the data directory if it doesn't exist.
func EnsureDataDir() error {
	return os.MkdirAll(DataDir(), 0700)
}
