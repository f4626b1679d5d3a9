package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/bryanwahyu/accommodation-engine/internal/application"
	appai "github.com/bryanwahyu/accommodation-engine/internal/application/ai"
	"github.com/bryanwahyu/accommodation-engine/internal/application/analysis"
	"github.com/bryanwahyu/accommodation-engine/internal/application/cascade"
	"github.com/bryanwahyu/accommodation-engine/internal/application/jobs"
	"github.com/bryanwahyu/accommodation-engine/internal/application/pathway"
	"github.com/bryanwahyu/accommodation-engine/internal/application/resolver"
	"github.com/bryanwahyu/accommodation-engine/internal/config"
	aiopenai "github.com/bryanwahyu/accommodation-engine/internal/infra/ai/openai"
	mysqlp "github.com/bryanwahyu/accommodation-engine/internal/infra/db/mysql"
	pgp "github.com/bryanwahyu/accommodation-engine/internal/infra/db/postgres"
	"github.com/bryanwahyu/accommodation-engine/internal/infra/db/sqlstore"
	"github.com/bryanwahyu/accommodation-engine/internal/infra/httpserver"
	minioStore "github.com/bryanwahyu/accommodation-engine/internal/infra/storage"
	"github.com/bryanwahyu/accommodation-engine/internal/middleware"
)

func main() {
	// path config.yaml
	path := "config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		path = v
	}

	// load config
	cfg, err := config.Load(path)
	if err != nil {
		slog.Error("config load error", slog.Any("error", err))
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel()}))
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("fatal", slog.Any("error", err))
		os.Exit(1)
	}
}

func openStore(ctx context.Context, cfg *config.Config) (*sqlstore.Store, sqlstore.Dialect, error) {
	if cfg.Database.Driver == "postgres" {
		s, err := pgp.Open(ctx, cfg.DSN())
		return s, pgp.Dialect, err
	}
	s, err := mysqlp.Open(ctx, cfg.DSN())
	return s, mysqlp.Dialect, err
}

func run(cfg *config.Config, logger *slog.Logger) error {
	// ctx is cancelled on SIGINT/SIGTERM, which starts the shutdown
	ctx, stopSignals := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stopSignals()

	catalog, err := config.LoadCatalog(cfg.Engine.PromptCatalogPath, cfg.Modules)
	if err != nil {
		return fmt.Errorf("prompt catalog: %w", err)
	}

	// connect database
	store, dialect, err := openStore(ctx, cfg)
	if err != nil {
		return fmt.Errorf("%s connect: %w", cfg.Database.Driver, err)
	}
	defer store.DB().Close()

	if cfg.Database.Migrate {
		if err := sqlstore.Migrate(ctx, store.DB(), dialect); err != nil {
			return err
		}
		logger.Info("migrations applied", slog.String("dialect", dialect.Name))
	}

	// init minio
	reports, err := minioStore.New(ctx,
		cfg.Minio.Endpoint,
		cfg.Minio.Region,
		cfg.Minio.BucketName,
		cfg.Minio.AccessKey,
		cfg.Minio.SecretKey,
		cfg.Minio.UseSSL,
	)
	if err != nil {
		return fmt.Errorf("minio init: %w", err)
	}

	// engine
	gateway := appai.NewGateway(aiopenai.NewClient(cfg.OpenAI.APIKey, cfg.OpenAI.BaseURL), cfg.OpenAI.FallbackModel, logger)
	svc := &analysis.Service{
		Gateway:    gateway,
		Pathways:   pathway.NewSelector(pathway.DemoPolicy{}, cfg.Engine.Demo),
		Config:     catalog,
		Resolver:   resolver.New(gateway, catalog, logger),
		Cascade:    cascade.New(store, gateway, logger),
		Findings:   store,
		ItemMaster: store,
		Lookups:    store,
		Clock:      application.SystemClock{},
		Logger:     logger,
	}

	runner := jobs.NewRunner(svc, store, store, reports, jobs.Config{
		Slots:       int64(cfg.Worker.Slots),
		Timeout:     time.Duration(cfg.Worker.TimeoutSeconds) * time.Second,
		MaxAttempts: cfg.Worker.MaxAttempts,
		BaseBackoff: time.Duration(cfg.Worker.BaseBackoffMS) * time.Millisecond,
	}, logger)

	var limiter *middleware.RateLimiter
	if cfg.Server.RateLimit > 0 {
		limiter = middleware.NewRateLimiter(cfg.Server.RateLimit, cfg.Server.RateBurst)
		go limiter.PruneEvery(ctx, 5*time.Minute, 10*time.Minute)
	}

	// init router
	mux := chi.NewRouter()
	mux.Mount("/", httpserver.NewRouter(httpserver.Deps{
		Jobs:       runner,
		Results:    store,
		Findings:   store,
		ItemMaster: store,
		JobErrors:  store,
		Checkers: map[string]middleware.HealthChecker{
			"database": middleware.CheckerFunc(store.Ping),
			"minio":    reports,
		},
		AllowedOrigins: cfg.Server.AllowedOrigins,
		APIKeys:        cfg.Server.APIKeys,
		Limiter:        limiter,
		Logger:         logger,
	}))

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// run server
	errc := make(chan error, 1)
	go func() {
		logger.Info("server listening", slog.String("addr", addr), slog.Bool("demo", cfg.Engine.Demo))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
	}()

	// graceful shutdown
	select {
	case <-ctx.Done():
	case err := <-errc:
		return fmt.Errorf("server: %w", err)
	}
	logger.Info("shutting down server...")

	ctx2, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx2); err != nil {
		logger.Error("http shutdown error", slog.Any("error", err))
	}
	// running analyses get the rest of the grace period, then are cancelled
	if err := runner.Shutdown(ctx2); err != nil {
		logger.Warn("jobs cancelled at shutdown", slog.Any("error", err))
	}
	return nil
}
