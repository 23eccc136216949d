package app

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

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/utafrali/pos-promotions/internal/config"
	"github.com/utafrali/pos-promotions/internal/domain"
	"github.com/utafrali/pos-promotions/internal/event"
	handler "github.com/utafrali/pos-promotions/internal/handler/http"
	"github.com/utafrali/pos-promotions/internal/repository"
	filerepo "github.com/utafrali/pos-promotions/internal/repository/file"
	pgrepo "github.com/utafrali/pos-promotions/internal/repository/postgres"
	redisrepo "github.com/utafrali/pos-promotions/internal/repository/redis"
	remoterepo "github.com/utafrali/pos-promotions/internal/repository/remote"
	"github.com/utafrali/pos-promotions/internal/service"
	"github.com/utafrali/pos-promotions/pkg/database"
	apperrors "github.com/utafrali/pos-promotions/pkg/errors"
	"github.com/utafrali/pos-promotions/pkg/health"
	"github.com/utafrali/pos-promotions/pkg/httpclient"
	pkgkafka "github.com/utafrali/pos-promotions/pkg/kafka"
	"github.com/utafrali/pos-promotions/pkg/tracing"
)

// ServiceName identifies the service in logs, metrics and traces.
const ServiceName = "promotion-service"

// App wires together all dependencies and runs the promotion service.
type App struct {
	cfg        *config.Config
	logger     *slog.Logger
	pool       *pgxpool.Pool
	rdb        *redis.Client
	producer   *pkgkafka.Producer
	fileRepo   *filerepo.PromotionRepository
	cache      *redisrepo.PromotionCache
	httpServer *http.Server

	shutdownTracer func(context.Context) error
}

// NewApp creates a new application instance, initializing all dependencies.
func NewApp(cfg *config.Config, logger *slog.Logger) (*App, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	a := &App{cfg: cfg, logger: logger}
	ok := false
	defer func() {
		if !ok {
			a.close()
		}
	}()

	shutdownTracer, err := tracing.InitTracer(ctx, tracing.Config{
		ServiceName:    ServiceName,
		ServiceVersion: cfg.ServiceVersion,
		Environment:    cfg.Environment,
		OTLPEndpoint:   cfg.OTelEndpoint,
		SampleRate:     cfg.OTelSampleRate,
		Enabled:        cfg.OTelEnabled,
	})
	if err != nil {
		return nil, fmt.Errorf("init tracer: %w", err)
	}
	a.shutdownTracer = shutdownTracer

	healthHandler := health.NewHandler()

	catalog, err := a.newCatalog(ctx, healthHandler)
	if err != nil {
		return nil, err
	}

	// Cart snapshots, and optionally a shared catalog cache, live in Redis.
	var carts repository.CartRepository = disabledCartStore{}
	if cfg.RedisEnabled {
		rdb, err := database.NewRedisClient(ctx, cfg.Redis())
		if err != nil {
			return nil, fmt.Errorf("connect to redis: %w", err)
		}
		a.rdb = rdb
		logger.Info("connected to Redis",
			slog.String("addr", cfg.RedisAddr),
			slog.Int("db", cfg.RedisDB),
		)
		healthHandler.Register("redis", func(ctx context.Context) error {
			return rdb.Ping(ctx).Err()
		})

		carts = redisrepo.NewCartRepository(rdb)
		if cfg.CatalogCacheTTL > 0 {
			a.cache = redisrepo.NewPromotionCache(catalog, rdb, cfg.CatalogCacheTTL, logger)
			catalog = a.cache
			logger.Info("promotion catalog cache enabled", slog.Duration("ttl", cfg.CatalogCacheTTL))
		}
	}

	var events service.EventPublisher = event.NoopPublisher{}
	if cfg.KafkaEnabled {
		producer := pkgkafka.NewProducer(pkgkafka.DefaultProducerConfig(cfg.KafkaBrokers), logger)
		a.producer = producer
		events = event.NewProducer(producer, logger)
		healthHandler.Register("kafka", producer.Ping)
		logger.Info("kafka producer initialized", slog.Any("brokers", cfg.KafkaBrokers))
	}

	promotionService := service.NewPromotionService(catalog, carts, events, logger)

	router := handler.NewRouter(promotionService, healthHandler, logger, handler.RouterConfig{
		RequestTimeout: cfg.RequestTimeout,
		PprofCIDRs:     cfg.PprofAllowedCIDRs,
	})

	a.httpServer = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      cfg.RequestTimeout + 5*time.Second,
		IdleTimeout:       60 * time.Second,
	}

	ok = true
	return a, nil
}

// newCatalog builds the promotion catalog selected by CATALOG_SOURCE.
func (a *App) newCatalog(ctx context.Context, healthHandler *health.Handler) (repository.PromotionRepository, error) {
	cfg, logger := a.cfg, a.logger

	switch cfg.CatalogSource {
	case config.CatalogSourceFile:
		repo, err := filerepo.NewPromotionRepository(cfg.CatalogFile)
		if err != nil {
			return nil, fmt.Errorf("load promotion catalog: %w", err)
		}
		a.fileRepo = repo
		logger.Info("promotion catalog loaded from file", slog.String("path", cfg.CatalogFile))
		return repo, nil

	case config.CatalogSourcePostgres:
		pool, err := database.NewPostgresPool(ctx, cfg.Postgres(), logger)
		if err != nil {
			return nil, fmt.Errorf("connect to postgres: %w", err)
		}
		a.pool = pool
		logger.Info("connected to PostgreSQL",
			slog.String("host", cfg.PostgresHost),
			slog.String("db", cfg.PostgresDB),
		)

		if err := database.RunMigrations(ctx, pool, pgrepo.Migrations(), logger); err != nil {
			return nil, fmt.Errorf("run migrations: %w", err)
		}
		database.RegisterPoolMetrics(pool, ServiceName)
		database.SetSlowQueryLogging(cfg.PostgresSlowQueryTime, logger)
		healthHandler.Register("postgres", pool.Ping)
		return pgrepo.NewPromotionRepository(pool), nil

	case config.CatalogSourceRemote:
		clientCfg := httpclient.DefaultConfig()
		clientCfg.Timeout = cfg.CatalogTimeout
		client := httpclient.NewCircuitBreakerClient(
			httpclient.New(clientCfg),
			httpclient.DefaultCircuitBreakerConfig("promotion-catalog"),
			logger,
		)
		repo := remoterepo.NewPromotionRepository(cfg.CatalogURL, client, logger)
		healthHandler.Register("catalog", repo.Ping)
		logger.Info("using remote promotion catalog", slog.String("url", cfg.CatalogURL))
		return repo, nil
	}

	return nil, fmt.Errorf("unknown catalog source %q", cfg.CatalogSource)
}

// Run starts the HTTP server and blocks until the context is canceled.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	go func() {
		a.logger.Info("starting HTTP server",
			slog.String("addr", a.httpServer.Addr),
		)
		if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	if a.fileRepo != nil {
		go a.reloadOnHangup(ctx)
	}

	select {
	case <-ctx.Done():
		a.logger.Info("shutdown signal received")
	case err := <-errCh:
		a.close()
		return err
	}

	return a.Shutdown()
}

// reloadOnHangup re-reads the catalog file on SIGHUP.
func (a *App) reloadOnHangup(ctx context.Context) {
	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)

	for {
		select {
		case <-ctx.Done():
			return
		case <-hup:
			if err := a.fileRepo.Reload(); err != nil {
				a.logger.Error("promotion catalog reload failed, keeping previous catalog",
					slog.String("error", err.Error()),
				)
				continue
			}
			if a.cache != nil {
				if err := a.cache.Invalidate(ctx); err != nil {
					a.logger.Warn("promotion cache invalidation failed", slog.String("error", err.Error()))
				}
			}
			a.logger.Info("promotion catalog reloaded", slog.String("path", a.cfg.CatalogFile))
		}
	}
}

// Shutdown gracefully stops all components.
func (a *App) Shutdown() error {
	a.logger.Info("shutting down application...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancel()

	if err := a.httpServer.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("http server shutdown error", slog.String("error", err.Error()))
	}

	a.close()
	a.logger.Info("application shutdown complete")
	return nil
}

// close releases every initialized dependency. It tolerates a partially
// built App.
func (a *App) close() {
	if a.producer != nil {
		if err := a.producer.Close(); err != nil {
			a.logger.Error("kafka producer close error", slog.String("error", err.Error()))
		}
	}
	if a.rdb != nil {
		if err := a.rdb.Close(); err != nil {
			a.logger.Error("redis close error", slog.String("error", err.Error()))
		}
	}
	if a.pool != nil {
		a.pool.Close()
	}
	if a.shutdownTracer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := a.shutdownTracer(ctx); err != nil {
			a.logger.Error("tracer shutdown error", slog.String("error", err.Error()))
		}
	}
}

// disabledCartStore answers every lookup with 503 when Redis is disabled.
type disabledCartStore struct{}

func (disabledCartStore) Get(context.Context, string) (*domain.Cart, error) {
	return nil, apperrors.Unavailable("cart store is disabled", errors.New("REDIS_ENABLED=false"))
}
