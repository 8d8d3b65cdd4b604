package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/joho/godotenv/autoload"

	"github.com/mandalnilabja/pollinate/internal/app"
	"github.com/mandalnilabja/pollinate/internal/config"
	"github.com/mandalnilabja/pollinate/internal/media"
	"github.com/mandalnilabja/pollinate/internal/storage"
	"github.com/mandalnilabja/pollinate/internal/tokenizer"
	"github.com/mandalnilabja/pollinate/internal/transport/http/handler"
	"github.com/mandalnilabja/pollinate/internal/transport/http/handler/proxy"
	"github.com/mandalnilabja/pollinate/internal/upstream"
)

func main() {
	if err := run(); err != nil {
		slog.Error("pollinate exited", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// 1. Configuration
	if err := config.EnsureConfigFile(); err != nil {
		slog.Warn("could not create config file", "path", config.ConfigPath(), "error", err)
	}
	cfg := config.Load()

	logger := setupLogger(cfg)
	slog.SetDefault(logger)

	// 2. Request log storage (optional)
	var store storage.Storage
	if cfg.EnableRequestLog {
		if err := config.EnsureDataDir(); err != nil {
			return fmt.Errorf("create data directory: %w", err)
		}
		var err error
		store, err = storage.NewSQLiteStorage(config.DBPath())
		if err != nil {
			return fmt.Errorf("open storage: %w", err)
		}
		defer store.Close()
	}

	// 3. Media preprocessing
	pre, err := media.NewProcessor(media.Options{
		FFmpegPath: cfg.FFmpegPath,
		CacheBytes: int64(cfg.MediaCacheMB) << 20,
		Logger:     logger,
	})
	if err != nil {
		return fmt.Errorf("create media processor: %w", err)
	}
	defer pre.Close()

	// 4. Upstream client and handlers
	client := upstream.NewClient(cfg.UpstreamURL, upstream.WithLogger(logger))

	repo := handler.NewRepo(handler.Deps{
		Upstream:    client,
		UpstreamURL: client.BaseURL(),
		Media:       pre,
		Storage:     store,
		Tokenizer:   tokenizer.New(),
		Logger:      logger,
		Options: proxy.Options{
			DefaultModel:   cfg.DefaultModel,
			VisionModel:    cfg.VisionModel,
			MaxImageWidth:  cfg.MaxImageWidth,
			MaxImageHeight: cfg.MaxImageHeight,
			FrameInterval:  cfg.FrameInterval,
			MaxUploadBytes: int64(cfg.MaxUploadMB) << 20,
		},
	})

	// 5. Router and server
	router := app.NewRouter(repo, &app.RouterOptions{Logger: logger})
	srv := app.NewServer(cfg, router, logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	printStartupBanner(cfg)
	return srv.Start(ctx)
}
