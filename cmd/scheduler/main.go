package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/jackc/pgx/v5/pgxpool"

	redis_cache "fediclock/internal/cache/redis"
	"fediclock/internal/command"
	"fediclock/internal/config"
	metrics_server "fediclock/internal/delivery/metrics"
	"fediclock/internal/logger"
	"fediclock/internal/mastodon"
	"fediclock/internal/media"
	prometheus_metrics "fediclock/internal/metrics/prometheus"
	list_repository_cached "fediclock/internal/repository/list/cached"
	list_repository_postgres "fediclock/internal/repository/list/postgres"
	post_repository_postgres "fediclock/internal/repository/post/postgres"
	postlog_repository_postgres "fediclock/internal/repository/postlog/postgres"
	token_repository_cached "fediclock/internal/repository/token/cached"
	token_repository_postgres "fediclock/internal/repository/token/postgres"
	scheduler_service "fediclock/internal/service/scheduler"
)

func main() {
	clearNextRun := flag.Bool("clear-next-run", false, "reset next_run for all posts and exit")
	flag.Parse()

	cfg := config.MustLoad()
	dsn := fmt.Sprintf("postgresql://%s:%s@%s:%s/%s?sslmode=disable",
		cfg.Database.Username,
		cfg.Database.Password,
		cfg.Database.Host,
		cfg.Database.Port,
		cfg.Database.DbName)
	ctx := context.Background()
	log := logger.New(cfg.Env)

	if err := runMigrations(cfg.Database); err != nil {
		log.Error("Failed to run migrations", slog.String("error", err.Error()))
		os.Exit(1)
	}

	poolConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		log.Error("Failed to parse postgres poolConfig", slog.String("error", err.Error()))
		os.Exit(1)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		log.Error("Failed to create postgres pool", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer pool.Close()

	metrics := prometheus_metrics.NewPrometheusMetricsProvider()

	postRepo := post_repository_postgres.NewPostRepository(pool, log, metrics)

	if *clearNextRun {
		if err := postRepo.ClearNextRun(ctx); err != nil {
			log.Error("Failed to clear next_run", slog.String("error", err.Error()))
			os.Exit(1)
		}
		log.Info("Cleared next_run for all posts")
		return
	}

	log.Info("Connecting to Redis",
		slog.String("address", cfg.Redis.Address),
		slog.Int("port", cfg.Redis.Port),
		slog.Int("db", cfg.Redis.DB))
	redisClient, err := redis_cache.NewClient(cfg.Redis, log)
	if err != nil {
		log.Error("Failed to create Redis client", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			log.Error("Failed to close Redis connection", slog.String("error", err.Error()))
		}
	}()

	metrics.SetServiceHealth(true)

	listCache := redis_cache.NewListCache(redisClient, log)
	tokenCache := redis_cache.NewTokenCache(redisClient, log)

	listRepo := list_repository_cached.NewListRepository(
		list_repository_postgres.NewListRepository(pool, log, metrics),
		listCache, log, metrics)
	tokenRepo := token_repository_cached.NewTokenRepository(
		token_repository_postgres.NewTokenRepository(pool, log, metrics),
		tokenCache, log, metrics)
	postLogRepo := postlog_repository_postgres.NewPostLogRepository(pool, log, metrics)

	mastodonClient := mastodon.NewClient(cfg.Mastodon, log)

	registry := command.NewDefaultRegistry(listRepo, mastodonClient.HTTPClient(), log)
	interpreter := command.NewInterpreter(registry, log, metrics)
	uploader := media.NewUploader(mastodonClient, log, metrics)

	scheduler := scheduler_service.NewService(
		postRepo,
		tokenRepo,
		postLogRepo,
		interpreter,
		uploader,
		mastodonClient,
		cfg.Scheduler,
		log,
		metrics,
	)

	metricsServer := metrics_server.NewMetricsServer(cfg.Prometheus.Address, cfg.Prometheus.Port, log)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	schedulerCtx, schedulerCancel := context.WithCancel(ctx)
	done := make(chan bool, 1)
	metricsDone := make(chan bool, 1)

	go func() {
		if err := scheduler.Start(schedulerCtx); err != nil {
			log.Error("Scheduler error", slog.String("error", err.Error()))
		}
		done <- true
	}()

	go func() {
		if err := metricsServer.Run(); err != nil {
			log.Error("Metrics server error", slog.String("error", err.Error()))
		}
		metricsDone <- true
	}()

	<-quit
	log.Info("Shutting down...")

	metrics.SetServiceHealth(false)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	schedulerCancel()

	if err := metricsServer.Shutdown(shutdownCtx); err != nil {
		log.Error("Metrics server shutdown error", slog.String("error", err.Error()))
	}

	<-done
	<-metricsDone

	log.Info("Scheduler exited")
}

func runMigrations(cfg config.Database) error {
	dsn := fmt.Sprintf("pgx5://%s:%s@%s:%s/%s?sslmode=disable",
		cfg.Username,
		cfg.Password,
		cfg.Host,
		cfg.Port,
		cfg.DbName)

	m, err := migrate.New("file://"+cfg.MigrationsPath, dsn)
	if err != nil {
		return err
	}
	defer func() {
		_, _ = m.Close()
	}()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}
	return nil
}
