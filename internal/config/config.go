package config

import (
	"errors"
	"fmt"
	"time"

	pkgconfig "github.com/utafrali/pos-promotions/pkg/config"
	"github.com/utafrali/pos-promotions/pkg/database"
)

// Catalog source values for CATALOG_SOURCE.
const (
	CatalogSourceFile     = "file"
	CatalogSourcePostgres = "postgres"
	CatalogSourceRemote   = "remote"
)

// Config holds all configuration for the promotion service.
type Config struct {
	Environment    string `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel       string `env:"LOG_LEVEL" envDefault:"info"`
	ServiceVersion string `env:"SERVICE_VERSION" envDefault:"dev"`

	// HTTP server
	HTTPPort        int           `env:"PROMOTION_HTTP_PORT" envDefault:"8010"`
	RequestTimeout  time.Duration `env:"HTTP_REQUEST_TIMEOUT" envDefault:"10s"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"15s"`

	// Promotions catalog
	CatalogSource   string        `env:"CATALOG_SOURCE" envDefault:"file"`
	CatalogFile     string        `env:"CATALOG_FILE" envDefault:"config/promotions.yaml"`
	CatalogURL      string        `env:"CATALOG_URL"`
	CatalogTimeout  time.Duration `env:"CATALOG_TIMEOUT" envDefault:"2s"`
	CatalogCacheTTL time.Duration `env:"CATALOG_CACHE_TTL" envDefault:"0s"`

	// PostgreSQL, used when CatalogSource is postgres
	PostgresHost          string        `env:"POSTGRES_HOST" envDefault:"localhost"`
	PostgresPort          int           `env:"POSTGRES_PORT" envDefault:"5432"`
	PostgresUser          string        `env:"POSTGRES_USER" envDefault:"pos"`
	PostgresPass          string        `env:"POSTGRES_PASSWORD" envDefault:"pos_secret"`
	PostgresDB            string        `env:"PROMOTION_DB_NAME" envDefault:"promotion_db"`
	PostgresSSL           string        `env:"POSTGRES_SSL_MODE" envDefault:"disable"`
	PostgresMaxConns      int32         `env:"POSTGRES_MAX_CONNS" envDefault:"10"`
	PostgresSlowQueryTime time.Duration `env:"POSTGRES_SLOW_QUERY_THRESHOLD" envDefault:"200ms"`

	// Redis cart snapshots
	RedisEnabled  bool   `env:"REDIS_ENABLED" envDefault:"true"`
	RedisAddr     string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`

	// Kafka
	KafkaEnabled bool     `env:"KAFKA_ENABLED" envDefault:"false"`
	KafkaBrokers []string `env:"KAFKA_BROKERS" envDefault:"localhost:9092" envSeparator:","`

	// OpenTelemetry
	OTelEnabled    bool    `env:"OTEL_ENABLED" envDefault:"false"`
	OTelEndpoint   string  `env:"OTEL_ENDPOINT" envDefault:"localhost:4318"`
	OTelSampleRate float64 `env:"OTEL_SAMPLE_RATE" envDefault:"1.0"`

	// Profiling; empty disables /debug/pprof.
	PprofAllowedCIDRs []string `env:"PPROF_ALLOWED_CIDRS" envSeparator:","`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := pkgconfig.Load(cfg); err != nil {
		return nil, fmt.Errorf("load promotion config: %w", err)
	}
	return cfg, nil
}

// Validate checks configuration invariants.
func (c *Config) Validate() error {
	if c.HTTPPort < 1 || c.HTTPPort > 65535 {
		return fmt.Errorf("invalid HTTP port: %d", c.HTTPPort)
	}

	switch c.CatalogSource {
	case CatalogSourceFile:
		if c.CatalogFile == "" {
			return errors.New("CATALOG_FILE is required when CATALOG_SOURCE=file")
		}
	case CatalogSourceRemote:
		if c.CatalogURL == "" {
			return errors.New("CATALOG_URL is required when CATALOG_SOURCE=remote")
		}
	case CatalogSourcePostgres:
		if c.PostgresMaxConns < 1 {
			return fmt.Errorf("invalid POSTGRES_MAX_CONNS: %d", c.PostgresMaxConns)
		}
	default:
		return fmt.Errorf("invalid CATALOG_SOURCE %q, must be one of: file, postgres, remote", c.CatalogSource)
	}

	if c.CatalogCacheTTL < 0 {
		return fmt.Errorf("invalid CATALOG_CACHE_TTL: %s", c.CatalogCacheTTL)
	}
	if c.CatalogCacheTTL > 0 && !c.RedisEnabled {
		return errors.New("CATALOG_CACHE_TTL requires REDIS_ENABLED")
	}
	if c.KafkaEnabled && len(c.KafkaBrokers) == 0 {
		return errors.New("KAFKA_BROKERS is required when KAFKA_ENABLED")
	}
	if c.OTelSampleRate < 0 || c.OTelSampleRate > 1 {
		return fmt.Errorf("invalid OTEL_SAMPLE_RATE: %v, must be between 0 and 1", c.OTelSampleRate)
	}
	return nil
}

// Postgres returns the connection settings for database.NewPostgresPool.
func (c *Config) Postgres() *database.PostgresConfig {
	pg := database.DefaultPostgresConfig()
	pg.Host = c.PostgresHost
	pg.Port = c.PostgresPort
	pg.User = c.PostgresUser
	pg.Password = c.PostgresPass
	pg.DBName = c.PostgresDB
	pg.SSLMode = c.PostgresSSL
	pg.MaxConns = c.PostgresMaxConns
	if pg.MinConns > pg.MaxConns {
		pg.MinConns = pg.MaxConns
	}
	return &pg
}

// Redis returns the connection settings for database.NewRedisClient.
func (c *Config) Redis() database.RedisConfig {
	return database.RedisConfig{
		Addr:     c.RedisAddr,
		Password: c.RedisPassword,
		DB:       c.RedisDB,
	}
}
