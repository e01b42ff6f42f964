package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/sathyapriyan07/metamovies-sub001/internal/app"
	"github.com/sathyapriyan07/metamovies-sub001/internal/repository/postgres"
	"github.com/sathyapriyan07/metamovies-sub001/internal/sitemap"
)

func main() {
	cfg := app.LoadConfig()
	options := &slog.HandlerOptions{Level: slog.LevelInfo}
	if cfg.LogLevel == "debug" {
		options.Level = slog.LevelDebug
	}
	var logger *slog.Logger
	if strings.EqualFold(cfg.LogFormat, "json") {
		logger = slog.New(slog.NewJSONHandler(os.Stdout, options))
	} else {
		logger = slog.New(slog.NewTextHandler(os.Stdout, options))
	}
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, 5*time.Minute)
	defer cancel()

	pool, err := postgres.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("postgres connect failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer pool.Close()

	generator := sitemap.NewGenerator(cfg.SiteBaseURL, postgres.NewCatalogRepository(pool), logger)
	startedAt := time.Now()
	count, err := generator.WriteFile(ctx, cfg.SitemapOutput)
	if err != nil {
		logger.Error("sitemap generation failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
	logger.Info("sitemap written",
		slog.String("path", cfg.SitemapOutput),
		slog.String("baseURL", cfg.SiteBaseURL),
		slog.Int("urls", count),
		slog.Duration("elapsed", time.Since(startedAt)),
	)
}
