package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFromEnv_Defaults(t *testing.T) {
	for _, key := range []string{"PORT", "ALLOWED_ORIGINS", "POSTGRES_URL", "SQLITE_PATH", "LOG_PRETTY", "MAX_PLAYERS_PER_ROOM", "RATE_LIMIT_PER_SECOND", "SWEEP_INTERVAL"} {
		t.Setenv(key, "")
	}

	cfg := FromEnv()

	assert.Equal(t, "5000", cfg.Port)
	assert.Equal(t, []string{"http://localhost:3000"}, cfg.AllowedOrigins)
	assert.Empty(t, cfg.PostgresURL)
	assert.Equal(t, "data/hotel.db", cfg.SQLitePath)
	assert.False(t, cfg.LogPretty)
	assert.Equal(t, 6, cfg.MaxPlayersPerRoom)
	assert.Equal(t, 10, cfg.RateLimitPerSecond)
	assert.Equal(t, time.Minute, cfg.SweepInterval)
}

func TestFromEnv_Overrides(t *testing.T) {
	t.Setenv("PORT", "8080")
	t.Setenv("ALLOWED_ORIGINS", " https://a.example , ,https://b.example")
	t.Setenv("POSTGRES_URL", "postgres://u:p@db:5432/hotel")
	t.Setenv("LOG_PRETTY", "true")
	t.Setenv("MAX_PLAYERS_PER_ROOM", "8")
	t.Setenv("RATE_LIMIT_PER_SECOND", "-3")
	t.Setenv("SWEEP_INTERVAL", "30s")

	cfg := FromEnv()

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.AllowedOrigins)
	assert.Equal(t, "postgres://u:p@db:5432/hotel", cfg.PostgresURL)
	assert.True(t, cfg.LogPretty)
	assert.Equal(t, 8, cfg.MaxPlayersPerRoom)
	assert.Equal(t, 10, cfg.RateLimitPerSecond, "invalid values fall back")
	assert.Equal(t, 30*time.Second, cfg.SweepInterval)
}
