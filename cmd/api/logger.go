package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/mandalnilabja/pollinate/internal/config"
	"github.com/mandalnilabja/pollinate/internal/version"
)

func setupLogger(cfg *config.Config) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLevel(cfg.LogLevel)}

	var handler slog.Handler
	if strings.EqualFold(cfg.LogFormat, "json") {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	return slog.New(handler)
}

// parseLevel maps a config level name to a slog level, defaulting to info.
func parseLevel(s string) slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo
	}
	return level
}

func printStartupBanner(cfg *config.Config) {
	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "Pollinate %s - Streaming Text Relay\n", version.Version)
	fmt.Fprintln(os.Stderr, "════════════════════════════════════════════════")
	fmt.Fprintf(os.Stderr, "Chat API:   http://localhost%s/api/chat\n", cfg.ServerPort)
	fmt.Fprintf(os.Stderr, "Analyze:    http://localhost%s/api/analyze/{image,video}\n", cfg.ServerPort)
	fmt.Fprintf(os.Stderr, "Metrics:    http://localhost%s/metrics\n", cfg.ServerPort)
	fmt.Fprintf(os.Stderr, "Upstream:   %s\n", cfg.UpstreamURL)
	if cfg.EnableRequestLog {
		fmt.Fprintf(os.Stderr, "Data:       %s\n", config.DataDir())
	}
	fmt.Fprintln(os.Stderr, "════════════════════════════════════════════════")
	fmt.Fprintf(os.Stderr, "\n")
}
