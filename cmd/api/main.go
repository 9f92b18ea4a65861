// Copyright (c) 2026 Helpline. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Command api is the entry point for the Helpline HTTP API server.
//
// # Startup Sequence
//
//  1. Initialize structured logger.
//  2. Load configuration from environment variables.
//  3. Connect to PostgreSQL (pgxpool) and Redis.
//  4. Run database migrations (idempotent).
//  5. Build the L1 cache, metrics registry, token verifier and cursor codec.
//  6. Connect the event broker selected by EVENT_BROKER.
//  7. Wire stores, services and HTTP handlers.
//  8. Start HTTP server with graceful shutdown.
//
// No business logic lives here. All wiring is explicit constructor injection.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/taibuivan/helpline/internal/api"
	"github.com/taibuivan/helpline/internal/block"
	"github.com/taibuivan/helpline/internal/chat"
	"github.com/taibuivan/helpline/internal/identity"
	"github.com/taibuivan/helpline/internal/message"
	"github.com/taibuivan/helpline/internal/platform/cache"
	"github.com/taibuivan/helpline/internal/platform/config"
	"github.com/taibuivan/helpline/internal/platform/constants"
	"github.com/taibuivan/helpline/internal/platform/events"
	"github.com/taibuivan/helpline/internal/platform/metrics"
	"github.com/taibuivan/helpline/internal/platform/migration"
	pgstore "github.com/taibuivan/helpline/internal/platform/postgres"
	redisstore "github.com/taibuivan/helpline/internal/platform/redis"
	"github.com/taibuivan/helpline/internal/platform/sec"
	"github.com/taibuivan/helpline/internal/tenant"
	"github.com/taibuivan/helpline/pkg/pagination"
)

// brokerPublisher is a publisher that can also report its connection state.
type brokerPublisher interface {
	events.Publisher
	Healthy() error
}

func main() {
	// ── 1. Logger ──────────────────────────────────────────────────────────
	log := newLogger(slog.LevelInfo)
	log.Info("service_initializing")

	// ── 2. Configuration ──────────────────────────────────────────────────
	cfg, err := config.Load()
	must(log, err, "load configuration")

	if cfg.Debug {
		log = newLogger(slog.LevelDebug)
		log.Debug("debug_logging_enabled")
	}

	log.Info("configuration_loaded",
		slog.String("environment", cfg.Environment),
		slog.String("port", cfg.ServerPort),
		slog.String("event_broker", cfg.EventBroker),
	)

	startupCtx, startupCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer startupCancel()

	// ── 3. PostgreSQL & Redis ─────────────────────────────────────────────
	pool, err := pgstore.NewPool(startupCtx, cfg.DatabaseURL, log)
	must(log, err, "connect to postgres")
	defer pool.Close()

	rdb, err := redisstore.NewClient(startupCtx, cfg.RedisURL, log)
	must(log, err, "connect to redis")
	defer func() {
		if cerr := rdb.Close(); cerr != nil {
			log.Error("redis_close_failed", slog.String("error", cerr.Error()))
		}
	}()

	// ── 4. Migrations ─────────────────────────────────────────────────────
	must(log, migration.RunUp(cfg.DatabaseURL, cfg.MigrationPath, log), "run migrations")

	// ── 5. Shared Infrastructure ──────────────────────────────────────────
	l1, err := cache.New(cfg.CacheNumCounters, cfg.CacheMaxCost)
	must(log, err, "initialize l1 cache")
	defer l1.Close()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	collectorSet := metrics.New(registry)

	tokens, err := sec.NewTokenService(cfg.JWTPrivKeyPath, cfg.JWTPubKeyPath, constants.AuthIssuer)
	must(log, err, "initialize token service")

	cursors, err := pagination.NewCodec([]byte(cfg.CursorSecret))
	must(log, err, "initialize cursor codec")

	// ── 6. Event Broker ───────────────────────────────────────────────────
	publisher, err := connectBroker(startupCtx, cfg, log)
	must(log, err, "connect event broker")
	defer func() {
		if cerr := publisher.Close(); cerr != nil {
			log.Error("event_broker_close_failed", slog.String("error", cerr.Error()))
		}
	}()

	// ── 7. Domain Wiring ──────────────────────────────────────────────────
	accountService := identity.NewService(identity.NewPostgresRepository(pool), log)
	tenantService := tenant.NewService(tenant.NewPostgresRepository(pool), l1, collectorSet, log)
	blockService := block.NewService(
		block.NewPostgresRepository(pool),
		block.NewRedisAnswerCache(rdb),
		tenantService, collectorSet, log,
	)

	chatService := chat.NewService(chat.Dependencies{
		Accounts:  accountService,
		Tenants:   tenantService,
		Blocks:    blockService,
		Messages:  message.NewPostgresRepository(pool),
		Deduper:   chat.NewRedisDeduper(rdb),
		Cursors:   cursors,
		Publisher: publisher,
		Metrics:   collectorSet,
		Logger:    log,
	})

	checks := []api.Check{
		{Name: "postgres", Probe: func() error { return pgstore.Ping(context.Background(), pool) }},
		{Name: "redis", Probe: func() error { return redisstore.Ping(context.Background(), rdb) }},
	}
	if broker, ok := publisher.(brokerPublisher); ok {
		checks = append(checks, api.Check{Name: cfg.EventBroker, Probe: broker.Healthy})
	}
	liveness, readiness := api.NewHealthHandlers(checks, log)

	// ── 8. HTTP Server ────────────────────────────────────────────────────
	serverCtx, serverCancel := context.WithCancel(context.Background())
	defer serverCancel()

	server := api.NewServer(serverCtx, cfg, log, tokens, collectorSet, api.Handlers{
		Liveness:  liveness,
		Readiness: readiness,
		Metrics:   promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry}),
		Accounts:  identity.NewHandler(accountService),
		Chat:      chat.NewHandler(chatService),
	})

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGTERM, syscall.SIGINT)

	serverErr := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case sig := <-quit:
		log.Info("shutdown_signal_received", slog.String("signal", sig.String()))
	case err := <-serverErr:
		log.Error("server_startup_failed", slog.String("error", err.Error()))
	}

	log.Info("server_shutting_down", slog.Duration("timeout", cfg.ShutdownTimeout))
	if err := server.Shutdown(cfg.ShutdownTimeout); err != nil {
		log.Error("server_shutdown_failed", slog.String("error", err.Error()))
	}

	log.Info("server_stopped")
}

// newLogger builds the JSON logger and installs it as the default.
func newLogger(level slog.Level) *slog.Logger {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})).
		With(slog.String("app", constants.AppName), slog.String("version", constants.AppVersion))
	slog.SetDefault(logger)
	return logger
}

// connectBroker returns the publisher selected by EVENT_BROKER.
func connectBroker(context context.Context, cfg *config.Config, log *slog.Logger) (events.Publisher, error) {
	switch cfg.EventBroker {
	case config.BrokerNATS:
		return events.ConnectNATS(context, cfg.NATSURL, cfg.NATSStream, log)
	case config.BrokerAMQP:
		return events.DialAMQP(cfg.AMQPURL, cfg.AMQPExchange, log)
	default:
		return events.Noop{}, nil
	}
}

// must logs a structured fatal error and terminates the process if err is non-nil.
//
// It is limited to startup wiring. After startup, all errors are returned
// and handled explicitly.
func must(log *slog.Logger, err error, step string) {
	if err != nil {
		log.Error("startup_failure",
			slog.String("step", step),
			slog.String("error", err.Error()),
		)
		os.Exit(1)
	}
}
