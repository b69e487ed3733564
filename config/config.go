package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

type Config struct {
	Port               string
	AllowedOrigins     []string
	PostgresURL        string
	SQLitePath         string
	GinMode            string
	LogLevel           string
	LogPretty          bool
	MaxPlayersPerRoom  int
	RateLimitPerSecond int
	SweepInterval      time.Duration
}

const (
	defaultPort               = "5000"
	defaultAllowedOrigin      = "http://localhost:3000"
	defaultSQLitePath         = "data/hotel.db"
	defaultGinMode            = "release"
	defaultLogLevel           = "info"
	defaultMaxPlayersPerRoom  = 6
	defaultRateLimitPerSecond = 10
	defaultSweepInterval      = time.Minute
)

// Load reads .env when present and then the process environment.
func Load() Config {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Warn().Err(err).Msg("reading .env")
	}
	return FromEnv()
}

// FromEnv builds a Config from the environment alone.
func FromEnv() Config {
	return Config{
		Port:               getEnv("PORT", defaultPort),
		AllowedOrigins:     parseAllowedOrigins(getEnv("ALLOWED_ORIGINS", defaultAllowedOrigin)),
		PostgresURL:        os.Getenv("POSTGRES_URL"),
		SQLitePath:         getEnv("SQLITE_PATH", defaultSQLitePath),
		GinMode:            getEnv("GIN_MODE", defaultGinMode),
		LogLevel:           getEnv("LOG_LEVEL", defaultLogLevel),
		LogPretty:          getBool("LOG_PRETTY", false),
		MaxPlayersPerRoom:  getPositiveInt("MAX_PLAYERS_PER_ROOM", defaultMaxPlayersPerRoom),
		RateLimitPerSecond: getPositiveInt("RATE_LIMIT_PER_SECOND", defaultRateLimitPerSecond),
		SweepInterval:      getDuration("SWEEP_INTERVAL", defaultSweepInterval),
	}
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getPositiveInt(key string, fallback int) int {
	if raw := os.Getenv(key); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v > 0 {
			return v
		}
		log.Warn().Str("key", key).Str("value", raw).Msg("ignoring invalid value")
	}
	return fallback
}

func getBool(key string, fallback bool) bool {
	if raw := os.Getenv(key); raw != "" {
		if v, err := strconv.ParseBool(raw); err == nil {
			return v
		}
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	if raw := os.Getenv(key); raw != "" {
		if v, err := time.ParseDuration(raw); err == nil && v > 0 {
			return v
		}
		log.Warn().Str("key", key).Str("value", raw).Msg("ignoring invalid duration")
	}
	return fallback
}

func parseAllowedOrigins(raw string) []string {
	var origins []string
	for _, origin := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(origin); trimmed != "" {
			origins = append(origins, trimmed)
		}
	}
	if len(origins) == 0 {
		origins = []string{defaultAllowedOrigin}
	}
	return origins
}
