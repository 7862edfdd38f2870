package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"

	"github.com/jschmidtnj/ewaab-sub000/pkg/accounts"
	"github.com/jschmidtnj/ewaab-sub000/pkg/api"
	"github.com/jschmidtnj/ewaab-sub000/pkg/audit"
	"github.com/jschmidtnj/ewaab-sub000/pkg/config"
	"github.com/jschmidtnj/ewaab-sub000/pkg/media"
	"github.com/jschmidtnj/ewaab-sub000/pkg/middleware"
	"github.com/jschmidtnj/ewaab-sub000/pkg/observability"
	"github.com/jschmidtnj/ewaab-sub000/pkg/session"
	"github.com/jschmidtnj/ewaab-sub000/pkg/token"
)

// version is stamped at build time via -ldflags
var version = "dev"

func main() {
	configPath := flag.String("config", "", "Path to a YAML config file (optional; env vars override)")
	flag.Parse()

	if err := run(*configPath); err != nil {
		fmt.Fprintf(os.Stderr, "ewaab-auth: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logger := observability.NewLogger(cfg.Observability.LogLevel, os.Stdout)
	logger.WithField("version", version).Info("Starting ewaab-auth")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Tracing and OTel metrics, no-op unless enabled
	providers, err := observability.InitOTel(ctx, observability.OTelConfig{
		Enabled:        cfg.Observability.OTelEnabled,
		Endpoint:       cfg.Observability.OTelEndpoint,
		ServiceName:    cfg.Observability.OTelServiceName,
		ServiceVersion: cfg.Observability.OTelServiceVersion,
		Insecure:       cfg.Observability.OTelInsecure,
	}, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize OpenTelemetry: %w", err)
	}

	// Signing credentials, rotated from disk when a secret file is configured
	creds, err := config.NewCredentials(cfg.Auth, logger)
	if err != nil {
		return fmt.Errorf("failed to load signing credentials: %w", err)
	}
	defer creds.Close()

	codec := token.NewCodec(creds)

	db, err := openDatabase(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close()

	store := accounts.NewStore(db)
	if err := store.Migrate(ctx); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	registry := prometheus.NewRegistry()
	metrics := observability.NewMetrics(registry)

	// Token versions live in Redis when available so revocation is shared
	// across instances; otherwise they ride along in SQL
	var redisClient *redis.Client
	var versions session.VersionStore = store
	if cfg.Redis.Enabled {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})

		if err := redisClient.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("failed to connect to redis at %s: %w", cfg.Redis.Addr, err)
		}
		versions = session.NewRedisVersionStore(redisClient, "")
		logger.WithField("addr", cfg.Redis.Addr).Info("Token versions stored in Redis")
	}

	sessions := session.NewManager(codec, versions, store, session.Config{
		AccessTTL:  cfg.Auth.AccessTTL,
		RefreshTTL: cfg.Auth.RefreshTTL,
		MediaTTL:   cfg.Auth.MediaTTL,
	}, metrics)

	trail := audit.NewTrail(audit.NewLogrusLogger(os.Stdout))

	sweeper, err := accounts.NewSweeper(store, logger, cfg.Auth.VisitorSweepSchedule)
	if err != nil {
		return err
	}
	sweeper.Start()

	// Login throttling shares its window through Redis when available so a
	// brute-force attempt cannot shop around instances
	loginLimit := middleware.NewLoginLimit(ctx, redisClient, middleware.LoginRateLimitConfig())

	serviceName := ""
	if cfg.Observability.OTelEnabled {
		serviceName = cfg.Observability.OTelServiceName
	}

	server := api.NewServer(cfg, api.Deps{
		Store:       store,
		Sessions:    sessions,
		Codec:       codec,
		Media:       media.NewIssuer(codec),
		Trail:       trail,
		Metrics:     metrics,
		Logger:      logger,
		LoginLimit:  loginLimit,
		ServiceName: serviceName,
	})
	apiServer := api.NewHTTPServer(cfg.Server, server)

	healthServer := newHealthServer(cfg, db, redisClient, registry)

	shutdown := observability.NewShutdownManager(logger, cfg.Server.ShutdownTimeout)
	shutdown.RegisterServer("api", apiServer)
	shutdown.RegisterServer("health", healthServer)
	shutdown.RegisterShutdownFunc("sweeper", func(context.Context) error {
		sweeper.Stop()
		return nil
	})
	shutdown.RegisterShutdownFunc("audit", func(context.Context) error {
		return trail.Close()
	})
	shutdown.RegisterShutdownFunc("otel", func(shutdownCtx context.Context) error {
		return observability.ShutdownOTel(shutdownCtx, providers, logger)
	})
	if redisClient != nil {
		shutdown.RegisterShutdownFunc("redis", func(context.Context) error {
			return redisClient.Close()
		})
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.WithField("addr", apiServer.Addr).Info("API server listening")
		if err := apiServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("api server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		logger.WithField("addr", healthServer.Addr).Info("Health server listening")
		if err := healthServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("health server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		return shutdown.Wait(gctx)
	})

	if err := g.Wait(); err != nil {
		return err
	}

	logger.Info("Shutdown complete")
	return nil
}

// openDatabase opens and verifies the SQL handle for either driver
func openDatabase(ctx context.Context, cfg config.DatabaseConfig) (*sql.DB, error) {
	db, err := sql.Open(cfg.Driver, cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	db.SetConnMaxLifetime(5 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return db, nil
}

// newHealthServer builds the separate health/metrics listener used by
// orchestrator probes
func newHealthServer(cfg *config.Config, db *sql.DB, redisClient *redis.Client, registry *prometheus.Registry) *http.Server {
	checker := observability.NewHealthChecker(db, redisClient, version)

	mux := http.NewServeMux()
	mux.HandleFunc("/health/live", checker.Liveness)
	mux.HandleFunc("/health/ready", checker.Readiness)
	if cfg.Observability.MetricsEnabled {
		observability.RegisterMetricsEndpoint(mux, registry)
	}

	return &http.Server{
		Addr:         net.JoinHostPort(cfg.Server.Host, cfg.Server.HealthPort),
		Handler:      mux,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
}
