package main

import (
	"context"
	"errors"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	sqlassets "github.com/assessio/assessio-backend/database"
	orgshandler "github.com/assessio/assessio-backend/domains/orgs/be/handler"
	orgsservice "github.com/assessio/assessio-backend/domains/orgs/be/service"
	platformlogging "github.com/assessio/assessio-backend/platform/go/logging"
	"github.com/assessio/assessio-backend/platform/go/metrics"
	platformmiddleware "github.com/assessio/assessio-backend/platform/go/middleware"
	"github.com/assessio/assessio-backend/platform/go/migrate"
	"github.com/assessio/assessio-backend/platform/go/persistence"
	"github.com/assessio/assessio-backend/platform/go/ratelimit"
	tenantmiddleware "github.com/assessio/assessio-backend/platform/go/tenant/middleware"
)

type config struct {
	Port            string        `env:"PORT" envDefault:"3000"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`
	RequestTimeout  time.Duration `env:"REQUEST_TIMEOUT" envDefault:"15s"`
	LogLevel        string        `env:"LOG_LEVEL" envDefault:"info"`
	DatabaseURL     string        `env:"DATABASE_URL,required"`
	TenantCacheTTL  time.Duration `env:"TENANT_CACHE_TTL" envDefault:"30s"`
	RateLimit       int           `env:"RATE_LIMIT" envDefault:"0"` // requests per window per client; 0 disables
	RateLimitWindow time.Duration `env:"RATE_LIMIT_WINDOW" envDefault:"1m"`
	MigrateFleet    bool          `env:"MIGRATE_FLEET_ON_START" envDefault:"false"`
}

func main() {
	ctx := context.Background()

	var cfg config
	if err := env.Parse(&cfg); err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger, err := platformlogging.NewLogger(platformlogging.Config{
		Component: "api-server",
		Level:     cfg.LogLevel,
	})
	if err != nil {
		log.Fatalf("init zap logger: %v", err)
	}
	defer func() {
		_ = logger.Sync()
	}()

	pool, err := persistence.NewPool(ctx, persistence.PoolConfig{ConnString: cfg.DatabaseURL})
	if err != nil {
		logger.Fatal("init postgres pool", zap.Error(err))
	}
	defer persistence.ClosePool(pool)

	collector := metrics.NewCollector()
	tenantDB := persistence.NewTenantDB(persistence.TenantDBConfig{Pool: pool, Metrics: collector})

	runner := migrate.NewRunner(migrate.RunnerConfig{
		DB: tenantDB,
		Source: migrate.Source{
			FS:        sqlassets.Migrations,
			PublicDir: sqlassets.PublicDir,
			TenantDir: sqlassets.TenantDir,
		},
		Logger:  logger,
		Metrics: collector,
	})

	applied, err := runner.Public(ctx)
	if err != nil {
		logger.Fatal("apply public migrations", zap.Error(err))
	}
	logger.Info("public schema up to date", zap.Int("applied", applied))

	orgStore, err := persistence.NewOrgStore(pool)
	if err != nil {
		logger.Fatal("init org store", zap.Error(err))
	}

	if cfg.MigrateFleet {
		fleet := migrate.NewFleet(orgStore, runner, logger)
		report, err := fleet.MigrateAll(ctx)
		if err != nil {
			logger.Fatal("migrate tenant fleet", zap.Error(err))
		}
		logger.Info("tenant fleet swept",
			zap.Int("migrated", len(report.Migrated)),
			zap.Int("failed", len(report.Failed)),
		)
	}

	orgService := orgsservice.New(orgStore, runner, tenantDB, logger)
	orgHandler := orgshandler.New(orgService, logger)
	candidatesHandler := orgshandler.NewCandidatesHandler(tenantDB, logger)

	limiter := ratelimit.New(cfg.RateLimit, cfg.RateLimitWindow)

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Timeout(cfg.RequestTimeout))
	r.Use(platformlogging.RequestLogger(logger))
	r.Use(platformmiddleware.DefaultCORS())
	r.Use(rateLimitMiddleware(limiter))

	r.Get("/healthz", func(w http.ResponseWriter, req *http.Request) {
		if err := pool.Ping(req.Context()); err != nil {
			http.Error(w, "database unreachable", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	})
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(collector.Registry, promhttp.HandlerOpts{}))

	r.Route("/api/v1", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			orgHandler.Routes(r)
		})

		r.Group(func(r chi.Router) {
			r.Use(tenantmiddleware.WithTenantSpace(orgStore, tenantmiddleware.Config{
				CacheTTL: cfg.TenantCacheTTL,
			}))
			r.Get("/me/candidates", candidatesHandler.List)
		})
	})

	server := &http.Server{
		Addr:              net.JoinHostPort("", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("api server listening", zap.String("port", cfg.Port))
		errCh <- server.ListenAndServe()
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server failed", zap.Error(err))
		}
	case sig := <-stop:
		logger.Info("shutting down", zap.String("signal", sig.String()))
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("graceful shutdown failed", zap.Error(err))
		}
	}
}

// rateLimitMiddleware rejects clients over their per-window budget before
// any tenant resolution or database work happens.
func rateLimitMiddleware(limiter *ratelimit.Limiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limiter.Allow(r.RemoteAddr) {
				http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
