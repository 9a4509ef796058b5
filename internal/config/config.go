package config

import (
	"log/slog"
	"os"
	"strings"
)

type Config struct {
	Port            string
	LogLevel        slog.Level
	CronSecret      string
	DefaultTimezone string
	// SendEndpointURL is the base URL the dispatcher uses to reach the
	// internal send endpoint; defaults to this process itself.
	SendEndpointURL string
	Postgres        *PostgresConfig
	Redis           *RedisConfig
	VAPID           *VAPIDConfig
}

func Load() (*Config, error) {
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	defaultTimezone := os.Getenv("DEFAULT_TIMEZONE")
	if defaultTimezone == "" {
		defaultTimezone = "America/Chicago"
	}

	sendEndpointURL := os.Getenv("SEND_ENDPOINT_URL")
	if sendEndpointURL == "" {
		sendEndpointURL = "http://localhost:" + port
	}

	redisConfig, err := LoadRedisConfig()
	if err != nil {
		return nil, err
	}

	return &Config{
		Port:            port,
		LogLevel:        parseLogLevel(os.Getenv("LOG_LEVEL")),
		CronSecret:      os.Getenv("CRON_SECRET"),
		DefaultTimezone: defaultTimezone,
		SendEndpointURL: sendEndpointURL,
		Postgres:        LoadPostgresConfig(),
		Redis:           redisConfig,
		VAPID:           LoadVAPIDConfig(),
	}, nil
}

func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
