package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"PORT", "ENV", "LOG_LEVEL", "DATABASE_URL", "SQLITE_PATH", "REDIS_URL", "JWT_SECRET", "CORS_ORIGINS", "RATE_LIMIT_WHITELIST", "AUTO_BLOCK_ENABLED"} {
		t.Setenv(key, "")
	}

	cfg := Load()
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "development", cfg.Env)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "./data/poro.db", cfg.SQLitePath)
	assert.Equal(t, []string{"*"}, cfg.CORSOrigins)
	assert.Equal(t, devSecret, cfg.JWTSecret)
	assert.Empty(t, cfg.RateLimitWhitelist)
	assert.False(t, cfg.AutoBlockEnabled)
	assert.True(t, cfg.IsDevelopment())
}

func TestLoadLists(t *testing.T) {
	t.Setenv("ENV", "staging")
	t.Setenv("CORS_ORIGINS", "https://a.example, ,https://b.example")
	t.Setenv("RATE_LIMIT_WHITELIST", "10.0.0.0/8,127.0.0.1")
	t.Setenv("AUTO_BLOCK_ENABLED", "true")
	t.Setenv("JWT_SECRET", "s3cret")

	cfg := Load()
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSOrigins)
	assert.Equal(t, []string{"10.0.0.0/8", "127.0.0.1"}, cfg.RateLimitWhitelist)
	assert.True(t, cfg.AutoBlockEnabled)
	assert.Equal(t, "s3cret", cfg.JWTSecret)
	assert.False(t, cfg.IsDevelopment())
}

func TestLoadProductionRequirements(t *testing.T) {
	t.Setenv("ENV", "production")
	t.Setenv("DATABASE_URL", "")
	t.Setenv("JWT_SECRET", "x")
	require.PanicsWithValue(t, "DATABASE_URL is required in production", func() { Load() })

	t.Setenv("DATABASE_URL", "postgres://localhost/poro")
	t.Setenv("JWT_SECRET", "")
	require.PanicsWithValue(t, "JWT_SECRET is required in production", func() { Load() })

	t.Setenv("JWT_SECRET", "x")
	t.Setenv("REDIS_URL", "")
	require.NotPanics(t, func() { Load() })
}
