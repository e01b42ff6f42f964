package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.opentelemetry.io/contrib/instrumentation/go.mongodb.org/mongo-driver/mongo/otelmongo"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	apihttp "github.com/sathyapriyan07/metamovies-sub001/internal/api/http"
	"github.com/sathyapriyan07/metamovies-sub001/internal/app"
	"github.com/sathyapriyan07/metamovies-sub001/internal/auth"
	"github.com/sathyapriyan07/metamovies-sub001/internal/importer"
	"github.com/sathyapriyan07/metamovies-sub001/internal/metrics"
	"github.com/sathyapriyan07/metamovies-sub001/internal/providers/deezer"
	"github.com/sathyapriyan07/metamovies-sub001/internal/providers/tmdb"
	mongorepo "github.com/sathyapriyan07/metamovies-sub001/internal/repository/mongo"
	"github.com/sathyapriyan07/metamovies-sub001/internal/repository/postgres"
	"github.com/sathyapriyan07/metamovies-sub001/internal/search"
	"github.com/sathyapriyan07/metamovies-sub001/internal/telemetry"
	"github.com/sathyapriyan07/metamovies-sub001/internal/watchlist"
)

func main() {
	cfg := app.LoadConfig()
	logger := newLogger(cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(logger)
	metrics.Register(prometheus.DefaultRegisterer)

	shutdownTracer, err := telemetry.Init(context.Background(), "metamovies-catalog")
	if err != nil {
		logger.Warn("otel init failed", slog.String("error", err.Error()))
	}
	defer func() {
		if shutdownTracer != nil {
			_ = shutdownTracer(context.Background())
		}
	}()

	logger.Info("configuration loaded",
		slog.String("service", "metamovies-catalog"),
		slog.String("httpAddr", cfg.HTTPAddr),
		slog.String("logLevel", cfg.LogLevel),
		slog.String("logFormat", cfg.LogFormat),
		slog.Duration("requestTimeout", cfg.RequestTimeout),
		slog.Duration("debounceDelay", cfg.DebounceDelay),
		slog.Bool("cacheDisabled", cfg.CacheDisabled),
		slog.Bool("hasRedis", strings.TrimSpace(cfg.RedisURL) != ""),
		slog.Bool("hasTMDBKey", cfg.TMDBAPIKey != ""),
		slog.Bool("hasAuthSecret", cfg.AuthJWTSecret != ""),
		slog.String("mongoDatabase", cfg.MongoDatabase),
	)

	rootCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := postgres.Connect(rootCtx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("postgres connect failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer pool.Close()
	catalog := postgres.NewCatalogRepository(pool)
	if err := catalog.EnsureSchema(rootCtx); err != nil {
		logger.Error("catalog schema setup failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
	logger.Info("postgres connected")

	redisClient := connectRedis(cfg, logger)
	if redisClient != nil {
		defer redisClient.Close()
	}

	tmdbClient := buildTMDBClient(cfg, redisClient, logger)
	deezerClient := deezer.NewClient(deezer.Config{
		BaseURL:  cfg.DeezerBaseURL,
		Client:   &http.Client{Timeout: cfg.RequestTimeout, Transport: otelhttp.NewTransport(http.DefaultTransport)},
		Redis:    redisCmdable(redisClient),
		CacheTTL: cfg.DeezerCacheTTL,
	})

	var resultBackend *search.RedisCacheBackend
	if redisClient != nil && !cfg.CacheDisabled {
		resultBackend = search.NewRedisCacheBackend(redisClient)
		go purgeStaleResults(rootCtx, resultBackend, logger)
	}
	searchService := search.NewService(catalog, cfg.RequestTimeout, buildServiceOptions(cfg, resultBackend, tmdbClient, logger)...)

	var revocations auth.Revocations
	if redisClient != nil {
		revocations = auth.NewRedisRevocations(redisClient)
	}
	authStore := auth.NewStore(auth.NewVerifier(cfg.AuthJWTSecret), revocations)
	if !authStore.Enabled() {
		logger.Warn("auth secret not configured, watchlist and admin routes will reject every request")
	}

	catalogImporter := importer.New(catalog,
		importer.WithAlbumSource(deezerClient),
		importer.WithMovieSource(tmdbClient),
		importer.WithMaxAlbums(cfg.ImportMaxAlbums),
		importer.WithCacheInvalidator(searchService),
		importer.WithLogger(logger),
	)

	serverOpts := []apihttp.ServerOption{
		apihttp.WithLogger(logger),
		apihttp.WithAuth(authStore),
		apihttp.WithImporter(catalogImporter),
		apihttp.WithRateLimit(cfg.RateLimitRPS, cfg.RateLimitBurst),
	}
	mongoClient := connectMongo(rootCtx, cfg, logger)
	if mongoClient != nil {
		defer func() {
			disconnectCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = mongoClient.Disconnect(disconnectCtx)
		}()
		watchlistRepo := mongorepo.NewWatchlistRepository(mongoClient, cfg.MongoDatabase)
		if err := watchlistRepo.EnsureIndexes(rootCtx); err != nil {
			logger.Warn("watchlist index setup failed", slog.String("error", err.Error()))
		}
		serverOpts = append(serverOpts,
			apihttp.WithWatchlist(watchlist.NewService(watchlistRepo, searchService)),
			apihttp.WithPreferences(mongorepo.NewPreferencesRepository(mongoClient, cfg.MongoDatabase)),
		)
	}

	api := apihttp.NewServer(searchService, serverOpts...)
	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           api.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		// Live search websockets are long-lived; write deadlines are set per frame.
		WriteTimeout: 0,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	logger.Info("catalog service started",
		slog.String("addr", cfg.HTTPAddr),
		slog.Duration("timeout", cfg.RequestTimeout),
	)

	select {
	case <-rootCtx.Done():
		logger.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}

	api.Close()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn("shutdown error", slog.String("error", err.Error()))
	}
	logger.Info("catalog service stopped")
}

func newLogger(levelRaw, formatRaw string) *slog.Logger {
	options := &slog.HandlerOptions{Level: parseLogLevel(levelRaw)}
	if strings.ToLower(strings.TrimSpace(formatRaw)) == "json" {
		return slog.New(slog.NewJSONHandler(os.Stdout, options))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, options))
}

func parseLogLevel(raw string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func connectRedis(cfg app.Config, logger *slog.Logger) *redis.Client {
	redisURL := strings.TrimSpace(cfg.RedisURL)
	if redisURL == "" {
		return nil
	}
	redisOpts, err := redis.ParseURL(redisURL)
	if err != nil {
		logger.Warn("invalid redis url, running without redis", slog.String("error", err.Error()))
		return nil
	}
	client := redis.NewClient(redisOpts)
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn("redis not reachable, running without redis", slog.String("error", err.Error()))
		_ = client.Close()
		return nil
	}
	logger.Info("redis connected", slog.String("addr", redisOpts.Addr))
	return client
}

// redisCmdable keeps a nil *redis.Client from becoming a non-nil interface.
func redisCmdable(client *redis.Client) redis.Cmdable {
	if client == nil {
		return nil
	}
	return client
}

func connectMongo(ctx context.Context, cfg app.Config, logger *slog.Logger) *mongo.Client {
	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	client, err := mongorepo.Connect(connectCtx, cfg.MongoURI, options.Client().SetMonitor(otelmongo.NewMonitor()))
	if err != nil {
		logger.Warn("mongo connect failed, watchlist disabled", slog.String("error", err.Error()))
		return nil
	}
	if err := client.Ping(connectCtx, readpref.Primary()); err != nil {
		logger.Warn("mongo ping failed, watchlist disabled", slog.String("error", err.Error()))
		_ = client.Disconnect(context.Background())
		return nil
	}
	logger.Info("mongo connected", slog.String("database", cfg.MongoDatabase))
	return client
}

func buildServiceOptions(cfg app.Config, backend *search.RedisCacheBackend, trending *tmdb.Client, logger *slog.Logger) []search.ServiceOption {
	opts := []search.ServiceOption{
		search.WithLogger(logger),
		search.WithSessionDebounce(cfg.DebounceDelay),
		search.WithTrending(trending),
	}
	if cfg.CacheDisabled {
		return append(opts, search.WithCacheDisabled(true))
	}
	if backend != nil {
		opts = append(opts, search.WithRedisCache(backend))
	}
	return opts
}

// purgeStaleResults removes result lists written by earlier processes.
func purgeStaleResults(ctx context.Context, backend *search.RedisCacheBackend, logger *slog.Logger) {
	ctx, cancel := context.WithTimeout(ctx, time.Minute)
	defer cancel()
	removed, err := backend.PurgeStale(ctx)
	if err != nil {
		logger.Warn("stale result cache purge failed", slog.String("error", err.Error()))
		return
	}
	if removed > 0 {
		logger.Info("stale result cache purged", slog.Int("keys", removed), slog.String("generation", backend.Generation()))
	}
}

func buildTMDBClient(cfg app.Config, redisClient *redis.Client, logger *slog.Logger) *tmdb.Client {
	client := tmdb.NewClient(tmdb.Config{
		APIKey:   cfg.TMDBAPIKey,
		BaseURL:  cfg.TMDBBaseURL,
		Client:   &http.Client{Timeout: cfg.RequestTimeout, Transport: otelhttp.NewTransport(http.DefaultTransport)},
		Redis:    redisCmdable(redisClient),
		CacheTTL: cfg.TMDBCacheTTL,
	})
	if !client.Enabled() {
		logger.Info("tmdb api key not configured, trending falls back to the catalog")
	}
	return client
}
