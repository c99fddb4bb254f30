package config

import (
	"context"
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/sethvargo/go-envconfig"

	"github.com/showads/data-connector/internal/core/domain"
)

type Config struct {
	Port     string `env:"PORT,      default=8080"`
	Env      string `env:"ENV,       default=development"`
	LogLevel string `env:"LOG_LEVEL, default=info"`

	ShowAds  ShowAdsConfig
	Filter   FilterConfig
	Fallback FallbackConfig
	Ingest   IngestConfig
	Redis    RedisConfig
	Mongo    MongoConfig
}

type ShowAdsConfig struct {
	BaseURL     string        `env:"API_URL,              required"`
	ProjectKey  string        `env:"PROJECT_KEY,          required"`
	HTTPTimeout time.Duration `env:"SHOWADS_HTTP_TIMEOUT, default=30s"`
}

// FilterConfig holds the environment-level age defaults.
type FilterConfig struct {
	MinAge int  `env:"MIN_AGE_FILTER, default=18"`
	MaxAge *int `env:"MAX_AGE_FILTER, noinit"`
}

type FallbackConfig struct {
	Dir string `env:"FAILED_RECORDS_DIRPATH, default=/tmp"`
}

type IngestConfig struct {
	// JWTSecret enables bearer JWT checks on the ingestion routes when set.
	JWTSecret string `env:"INGEST_JWT_SECRET"`
}

// RedisConfig is optional; an empty Addr disables the token cache.
type RedisConfig struct {
	Addr string `env:"REDIS_ADDR"`
	DB   int    `env:"REDIS_DB, default=0"`
}

// MongoConfig is optional; an empty URI disables the delivery journal.
type MongoConfig struct {
	URI      string `env:"MONGO_URI"`
	Database string `env:"MONGO_DB, default=data_connector"`
}

// AgeLimits converts the filter settings into domain limits.
func (f FilterConfig) AgeLimits() domain.AgeLimits {
	return domain.AgeLimits{Min: f.MinAge, Max: f.MaxAge}
}

// Load reads a .env file when present, then the process environment.
func Load(ctx context.Context) (*Config, error) {
	_ = godotenv.Load()
	return load(ctx, envconfig.OsLookuper())
}

// MustLoad is Load that panics on error.
func MustLoad(ctx context.Context) *Config {
	cfg, err := Load(ctx)
	if err != nil {
		panic(err)
	}
	return cfg
}

func load(ctx context.Context, lookuper envconfig.Lookuper) (*Config, error) {
	var cfg Config
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{
		Target:   &cfg,
		Lookuper: lookuper,
	}); err != nil {
		return nil, fmt.Errorf("config: failed to load configuration: %w", err)
	}
	return &cfg, nil
}
