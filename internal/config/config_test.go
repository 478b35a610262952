package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tropicaldog17/folio/internal/db"
	"github.com/tropicaldog17/folio/internal/engine"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("FX_POLICY", "")
	t.Setenv("BASE_CURRENCY", "")
	t.Setenv("CACHE_BACKEND", "")
	t.Setenv("MARKET_DATA_PROVIDER", "")
	t.Setenv("DB_DRIVER", "")
	t.Setenv("FETCH_TIMEOUT", "")
	t.Setenv("REFRESH_INTERVAL", "")

	cfg, err := Load(nil)
	require.NoError(t, err)
	assert.Equal(t, "USD", cfg.BaseCurrency)
	assert.Equal(t, engine.FXPermissive, cfg.FXPolicy)
	assert.Equal(t, 15*time.Second, cfg.FetchTimeout)
	assert.Equal(t, CacheMemory, cfg.CacheBackend)
	assert.Equal(t, ProviderYahoo, cfg.MarketDataProvider)
	assert.Equal(t, 24*time.Hour, cfg.RefreshInterval)
	assert.Equal(t, db.DriverPostgres, cfg.DB.Driver)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("BASE_CURRENCY", "eur")
	t.Setenv("FX_POLICY", "strict")
	t.Setenv("FX_MAX_LAG_DAYS", "5")
	t.Setenv("CACHE_BACKEND", "REDIS")
	t.Setenv("MARKET_DATA_PROVIDER", "mock")
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("FETCH_TIMEOUT", "not-a-duration")
	t.Setenv("MARKET_DATA_RPS", "0.5")

	cfg, err := Load(nil)
	require.NoError(t, err)
	assert.Equal(t, "EUR", cfg.BaseCurrency)
	assert.Equal(t, engine.FXStrict, cfg.FXPolicy)
	assert.Equal(t, 5, cfg.FXMaxLagDays)
	assert.Equal(t, CacheRedis, cfg.CacheBackend)
	assert.Equal(t, ProviderMock, cfg.MarketDataProvider)
	assert.Equal(t, db.DriverSQLite, cfg.DB.Driver)
	assert.Equal(t, 15*time.Second, cfg.FetchTimeout, "malformed values fall back")
	assert.Equal(t, 0.5, cfg.MarketDataRPS)
}

func TestLoadRejectsInvalid(t *testing.T) {
	tests := []struct {
		key, value string
	}{
		{"FX_POLICY", "nearest"},
		{"BASE_CURRENCY", "XXY"},
		{"CACHE_BACKEND", "memcached"},
		{"MARKET_DATA_PROVIDER", "bloomberg"},
		{"DB_DRIVER", "mysql"},
		{"FX_MAX_LAG_DAYS", "-1"},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			_, err := Load(nil)
			assert.Error(t, err)
		})
	}
}
