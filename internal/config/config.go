package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/tropicaldog17/folio/internal/db"
	"github.com/tropicaldog17/folio/internal/engine"
	"github.com/tropicaldog17/folio/internal/models"
)

const (
	CacheMemory = "memory"
	CacheRedis  = "redis"

	ProviderYahoo = "yahoo"
	ProviderMock  = "mock"
)

// Config is the application configuration assembled from the environment.
type Config struct {
	AppEnv     string
	ServerPort string
	DB         *db.Config

	BaseCurrency string
	FXPolicy     engine.FXPolicy
	FXMaxLagDays int
	FetchTimeout time.Duration

	CacheBackend  string
	CacheTTL      time.Duration
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	MarketDataProvider     string
	MarketDataRPS          float64
	MarketDataLookbackDays int
	RefreshInterval        time.Duration
}

// Load reads an optional .env file, then the process environment. Malformed
// values fall back to their defaults with a warning.
func Load(logger *zap.Logger) (*Config, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := godotenv.Load(); err != nil {
		logger.Debug("No .env file loaded, using environment", zap.Error(err))
	}
	env := &envReader{logger: logger}

	policy, err := engine.ParseFXPolicy(getEnv("FX_POLICY", "permissive"))
	if err != nil {
		return nil, err
	}
	cfg := &Config{
		AppEnv:     getEnv("APP_ENV", "development"),
		ServerPort: getEnv("SERVER_PORT", "8080"),
		DB:         db.NewConfig(),

		BaseCurrency: strings.ToUpper(getEnv("BASE_CURRENCY", "USD")),
		FXPolicy:     policy,
		FXMaxLagDays: env.int("FX_MAX_LAG_DAYS", 0),
		FetchTimeout: env.duration("FETCH_TIMEOUT", 15*time.Second),

		CacheBackend:  strings.ToLower(getEnv("CACHE_BACKEND", CacheMemory)),
		CacheTTL:      env.duration("CACHE_TTL", 5*time.Minute),
		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		RedisDB:       env.int("REDIS_DB", 0),

		MarketDataProvider:     strings.ToLower(getEnv("MARKET_DATA_PROVIDER", ProviderYahoo)),
		MarketDataRPS:          env.float("MARKET_DATA_RPS", 2),
		MarketDataLookbackDays: env.int("MARKET_DATA_LOOKBACK_DAYS", 1825),
		RefreshInterval:        env.duration("REFRESH_INTERVAL", 24*time.Hour),
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects values no component can run with.
func (c *Config) Validate() error {
	if !models.ValidCurrency(c.BaseCurrency) {
		return fmt.Errorf("BASE_CURRENCY %q is not an ISO 4217 code", c.BaseCurrency)
	}
	if c.FXMaxLagDays < 0 {
		return fmt.Errorf("FX_MAX_LAG_DAYS must be >= 0, got %d", c.FXMaxLagDays)
	}
	switch c.CacheBackend {
	case CacheMemory, CacheRedis:
	default:
		return fmt.Errorf("unknown CACHE_BACKEND %q", c.CacheBackend)
	}
	switch c.MarketDataProvider {
	case ProviderYahoo, ProviderMock:
	default:
		return fmt.Errorf("unknown MARKET_DATA_PROVIDER %q", c.MarketDataProvider)
	}
	if c.DB != nil {
		switch c.DB.Driver {
		case db.DriverPostgres, db.DriverSQLite:
		default:
			return fmt.Errorf("unknown DB_DRIVER %q", c.DB.Driver)
		}
	}
	return nil
}

// IsProduction reports whether APP_ENV selects production behaviour.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.AppEnv, "production")
}

type envReader struct {
	logger *zap.Logger
}

func (e *envReader) int(key string, def int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		e.logger.Warn("Invalid integer, using default", zap.String("key", key), zap.String("value", raw), zap.Int("default", def))
		return def
	}
	return v
}

func (e *envReader) float(key string, def float64) float64 {
	raw := os.Getenv(key)
	if raw == "" {
		return def
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		e.logger.Warn("Invalid number, using default", zap.String("key", key), zap.String("value", raw), zap.Float64("default", def))
		return def
	}
	return v
}

func (e *envReader) duration(key string, def time.Duration) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return def
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		e.logger.Warn("Invalid duration, using default", zap.String("key", key), zap.String("value", raw), zap.Duration("default", def))
		return def
	}
	return v
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
