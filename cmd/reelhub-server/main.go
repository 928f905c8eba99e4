// Package main is the entry point for the Reelhub API server.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/prn-tf/reelhub/internal/auth"
	"github.com/prn-tf/reelhub/internal/cache/memory"
	rediscache "github.com/prn-tf/reelhub/internal/cache/redis"
	"github.com/prn-tf/reelhub/internal/config"
	"github.com/prn-tf/reelhub/internal/handler"
	"github.com/prn-tf/reelhub/internal/lock"
	"github.com/prn-tf/reelhub/internal/metrics"
	"github.com/prn-tf/reelhub/internal/repository"
	"github.com/prn-tf/reelhub/internal/repository/store"
	"github.com/prn-tf/reelhub/internal/service"
	"github.com/prn-tf/reelhub/internal/storage"
)

// Version information (set at build time)
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	setupLogger(cfg.Logging)

	log.Info().
		Str("version", Version).
		Str("build_time", BuildTime).
		Str("git_commit", GitCommit).
		Msg("Starting Reelhub server")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log.Logger); err != nil {
		log.Fatal().Err(err).Msg("server exited with error")
	}
	log.Info().Msg("server stopped")
}

func setupLogger(cfg config.LoggingConfig) {
	zerolog.TimeFieldFormat = time.RFC3339Nano

	level, err := zerolog.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if cfg.Format == "console" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	} else {
		log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
	}
}

func run(ctx context.Context, cfg *config.Config, logger zerolog.Logger) error {
	// Store
	st, err := store.Open(ctx, cfg.Database, logger)
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer st.Close()

	// Redis, when either the cache or the locks live there
	var redisClient *goredis.Client
	if cfg.Redis.Enabled {
		redisClient, err = rediscache.NewClient(ctx, cfg.Redis, logger)
		if err != nil {
			return err
		}
		defer redisClient.Close()
	}

	var cache repository.Cache
	if cfg.Cache.Backend == "redis" {
		cache = rediscache.NewCache(redisClient)
	} else {
		mem := memory.NewCache()
		defer mem.Stop()
		cache = mem
	}

	var locker lock.Locker
	switch cfg.Lock.Backend {
	case "redis":
		locker = lock.NewRedisLocker(redisClient)
	case "noop":
		locker = lock.NewNoOpLocker()
	default:
		mem := lock.NewMemoryLocker()
		defer mem.Close()
		locker = mem
	}
	lockOpts := lock.Options{TTL: cfg.Lock.TTL, MaxRetries: cfg.Lock.MaxRetries, RetryDelay: cfg.Lock.RetryDelay}

	// Media storage is optional; without it upload URLs answer 503.
	presigner, err := storage.New(ctx, cfg.Storage)
	if err != nil {
		if !errors.Is(err, storage.ErrDisabled) {
			return fmt.Errorf("failed to initialize media storage: %w", err)
		}
		logger.Warn().Msg("media storage disabled, upload URLs are unavailable")
		presigner = nil
	}

	tokens, err := auth.NewTokenManager(cfg.Auth, logger)
	if err != nil {
		return err
	}

	// Services
	users, videos := st.Repos.User, st.Repos.Video
	userService := service.NewUserService(users, videos, cache, service.UserServiceConfig{
		BcryptCost: cfg.Auth.BcryptCost,
		StatsTTL:   cfg.Cache.StatsTTL,
	}, logger)
	authService := service.NewAuthService(users, tokens, logger)
	socialService := service.NewSocialService(users, locker, lockOpts, cache, logger)
	engagementService := service.NewEngagementService(users, videos, cache, logger)
	feedService := service.NewFeedService(users, videos, logger)
	bookmarkService := service.NewBookmarkService(users, videos, locker, lockOpts, logger)
	videoService := service.NewVideoService(users, videos, cache, logger)
	mediaService := service.NewMediaService(presigner, cfg.Storage.PresignExpiry, logger)

	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New()
	}

	router := handler.NewRouter(handler.RouterConfig{
		AuthHandler: handler.NewAuthHandler(userService, authService, cfg.Server.MaxBodySize),
		VideoHandler: handler.NewVideoHandler(handler.VideoHandlerConfig{
			Videos:      videoService,
			Engagement:  engagementService,
			Feeds:       feedService,
			Bookmarks:   bookmarkService,
			Media:       mediaService,
			Metrics:     m,
			Paging:      cfg.Feed,
			MaxBodySize: cfg.Server.MaxBodySize,
		}),
		UserHandler: handler.NewUserHandler(handler.UserHandlerConfig{
			Users:       userService,
			Social:      socialService,
			Metrics:     m,
			Paging:      cfg.Feed,
			MaxBodySize: cfg.Server.MaxBodySize,
		}),
		Verifier:    tokens,
		Health:      st.Database,
		Metrics:     m,
		MetricsPath: cfg.Metrics.Path,
		CORSOrigins: cfg.Server.CORSOrigins,
		Logger:      logger,
	})

	srv := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      router.Handler(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().
			Str("addr", srv.Addr).
			Str("driver", st.Driver).
			Str("cache", cfg.Cache.Backend).
			Str("lock", cfg.Lock.Backend).
			Msg("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server failed: %w", err)
	case <-ctx.Done():
	}

	logger.Info().Msg("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	return nil
}
