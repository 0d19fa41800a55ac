package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/common-repository/sms-manager/internal/cache"
	"github.com/common-repository/sms-manager/internal/config"
	"github.com/common-repository/sms-manager/internal/dispatch"
	"github.com/common-repository/sms-manager/internal/events"
	"github.com/common-repository/sms-manager/internal/httpserver"
	"github.com/common-repository/sms-manager/internal/logging"
	"github.com/common-repository/sms-manager/internal/metrics"
	"github.com/common-repository/sms-manager/internal/notice"
	"github.com/common-repository/sms-manager/internal/repo"
	"github.com/common-repository/sms-manager/internal/settings"
	"github.com/common-repository/sms-manager/internal/twilio"
	"github.com/common-repository/sms-manager/migrations"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger := logging.NewLogger(cfg.LogLevel)
	logger.Info("starting sms-manager", "env", cfg.AppEnv, "trigger_status", cfg.TriggerStatus)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	metricRegistry := metrics.Registry(cfg.MetricsNamespace)

	repository, err := newRepository(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("init repository: %w", err)
	}
	defer repository.Close()

	if err := repository.RunMigrations(ctx, migrations.Files); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	logger.Info("database migrated")

	redisClient := cache.New(cache.Config{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
		UseTLS:   cfg.RedisTLS,
	}, logger)
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("failed closing redis", "error", err)
		}
	}()
	if err := redisClient.Ping(ctx); err != nil {
		logger.Warn("redis ping failed", "error", err)
	}

	settingsStore := settings.NewStore(repository, logger)
	noticeStore := notice.NewStore(redisClient, logger, metricRegistry)

	gateway := twilio.New(twilio.Config{
		BaseURL: cfg.TwilioBaseURL,
		Timeout: cfg.TwilioTimeout,
	}, logger, metricRegistry)

	bus := events.NewBus()

	dispatcher := dispatch.New(
		settingsStore,
		repository,
		gateway,
		noticeStore,
		redisClient,
		metricRegistry,
		logger,
		dispatch.Config{
			TriggerStatus: cfg.TriggerStatus,
			DedupEnabled:  cfg.DedupEnabled,
			DedupTTL:      cfg.DedupTTL,
		},
	)
	dispatcher.Register(bus)

	httpSrv := httpserver.New(cfg.HTTPListenAddr, logger, metricRegistry, httpserver.Dependencies{
		Repository: repository,
		Settings:   settingsStore,
		Notices:    noticeStore,
		Bus:        bus,
	})

	errCh := make(chan error, 1)
	go func() {
		if err := httpSrv.Start(); err != nil {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server error: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}

	return nil
}

func newRepository(ctx context.Context, cfg *config.Config, logger *slog.Logger) (repo.Repository, error) {
	if cfg.DatabaseURL != "" {
		return repo.NewPostgres(ctx, cfg.DatabaseURL, logger)
	}
	return repo.NewSQLite(ctx, cfg.SQLitePath, logger)
}
