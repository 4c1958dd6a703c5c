package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/freestartupia/startupia/internal/adapter/httpserver"
	"github.com/freestartupia/startupia/internal/adapter/metrics"
	"github.com/freestartupia/startupia/internal/adapter/postgres"
	"github.com/freestartupia/startupia/internal/adapter/redis"
	"github.com/freestartupia/startupia/internal/adapter/resilience"
	"github.com/freestartupia/startupia/internal/app"
	"github.com/freestartupia/startupia/internal/domain"
	"github.com/freestartupia/startupia/internal/platform/config"
	"github.com/freestartupia/startupia/internal/platform/logging"
	"github.com/freestartupia/startupia/internal/platform/version"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jonboulle/clockwork"
	goredis "github.com/redis/go-redis/v9"
)

const shutdownTimeout = 10 * time.Second

func runGracefulShutdown(srv *httpserver.Server, appSvc *app.Service, stopListener context.CancelFunc) <-chan struct{} {
	done := make(chan struct{})
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		slog.Info("Shutdown signal received, cleaning up...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("Server shutdown error", "error", err)
		}

		stopListener()
		appSvc.Stop()

		close(done)
	}()

	return done
}

const resubscribeDelay = 2 * time.Second

// runCountListener resubscribes after the subscription drops until ctx ends.
func runCountListener(ctx context.Context, listener *app.CountListener) {
	for {
		err := listener.Run(ctx)
		if ctx.Err() != nil {
			return
		}
		slog.Error("Count listener stopped, resubscribing", "error", err, "delay", resubscribeDelay)

		select {
		case <-time.After(resubscribeDelay):
		case <-ctx.Done():
			return
		}
	}
}

func setupConfig() *config.Config {
	cfg, err := config.Load()
	if err != nil {
		// Use log before slog is initialized
		log.Fatalf("Failed to load config: %v", err)
	}
	return cfg
}

func setupDB(cfg *config.Config, m *metrics.StoreMetrics) *pgxpool.Pool {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := postgres.Connect(ctx, cfg.DatabaseURL, m)
	if err != nil {
		slog.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}

	if cfg.RunMigrations {
		if _, err := postgres.Migrate(ctx, pool); err != nil {
			slog.Error("Failed to run migrations", "error", err)
			os.Exit(1)
		}
	}

	return pool
}

// setupRedis returns nil when no REDIS_URL is configured; confirmed counts
// then only reach sessions on this instance.
func setupRedis(cfg *config.Config, m *metrics.Set) *goredis.Client {
	if cfg.RedisURL == "" {
		slog.Info("REDIS_URL not set, realtime counts stay local to this instance")
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	breaker := redis.NewCircuitBreakerHook(resilience.NewBreaker(resilience.BreakerSettings{
		Name:             "redis",
		FailureThreshold: uint(cfg.GatewayBreakerFailures),
		Delay:            cfg.GatewayBreakerDelay,
	}, m.Gateway))

	client, err := redis.NewClient(ctx, cfg.RedisURL, redis.NewMetricsHook(m.Store), breaker)
	if err != nil {
		slog.Error("Failed to connect to Redis", "error", err)
		os.Exit(1)
	}
	return client
}

func setupGateway(cfg *config.Config, pool *pgxpool.Pool, m *metrics.GatewayMetrics) domain.VoteGateway {
	cb := resilience.NewBreaker(resilience.BreakerSettings{
		Name:             "postgres",
		FailureThreshold: uint(cfg.GatewayBreakerFailures),
		Delay:            cfg.GatewayBreakerDelay,
	}, m)
	return resilience.NewGateway(postgres.NewGateway(pool), cb, m)
}

func main() {
	clock := clockwork.NewRealClock()

	cfg := setupConfig()

	logging.InitLogger(cfg.LogLevel, cfg.LogFormat)
	slog.Info("Application starting", "env", cfg.AppEnv, "port", cfg.Port, "version", version.Get().Version)

	metricSet := metrics.NewSet()

	pool := setupDB(cfg, metricSet.Store)
	defer pool.Close()

	redisClient := setupRedis(cfg, metricSet)
	if redisClient != nil {
		defer func() { _ = redisClient.Close() }()
	}

	gateway := setupGateway(cfg, pool, metricSet.Gateway)
	identities := postgres.NewIdentityRepo(pool)

	deps := app.SessionDeps{
		Gateway:        gateway,
		VoteMetrics:    metricSet.Vote,
		SessionMetrics: metricSet.Session,
		WriteTimeout:   cfg.VoteWriteTimeout,
		Clock:          clock,
	}
	registry := app.NewRegistry(cfg.SessionIdleTTL, clock, func(identity domain.Identity) *app.Session {
		return app.NewSession(identity, deps)
	}, metricSet.Session)

	listenerCtx, stopListener := context.WithCancel(context.Background())
	healthChecks := []httpserver.HealthCheck{{Name: "postgres", Check: postgres.Ping(pool)}}

	if redisClient != nil {
		channel := redis.NewCountChannel(redisClient)
		deps.Publisher = channel
		healthChecks = append(healthChecks, httpserver.HealthCheck{Name: "redis", Check: redis.Ping(redisClient)})

		go runCountListener(listenerCtx, app.NewCountListener(channel, registry))
	} else {
		deps.Publisher = app.NewLocalPublisher(registry)
	}

	appSvc := app.NewService(identities, gateway, registry)

	srv := httpserver.NewServer(cfg, appSvc, healthChecks, metricSet.HTTP, metrics.Handler(metricSet.Registry))

	done := runGracefulShutdown(srv, appSvc, stopListener)

	if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("Server error", "error", err)
		os.Exit(1)
	}

	<-done
}
