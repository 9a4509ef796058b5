package config

import "os"

const (
	postgresDSNEnv = "POSTGRES_DSN"

	defaultPostgresDSN = "host=localhost port=5432 user=postgres dbname=circadian sslmode=disable"
)

type PostgresConfig struct {
	DSN string
}

func LoadPostgresConfig() *PostgresConfig {
	dsn := os.Getenv(postgresDSNEnv)
	if dsn == "" {
		dsn = defaultPostgresDSN
	}

	return &PostgresConfig{
		DSN: dsn,
	}
}

func (c *PostgresConfig) Validate() error {
	if c == nil || c.DSN == "" {
		return ErrPostgresDSNMissing
	}
	return nil
}
