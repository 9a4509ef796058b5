package config

import (
	"fmt"
	"time"
)

func ValidateForRun(cfg *Config) error {
	if cfg.CronSecret == "" {
		return ErrCronSecretMissing
	}

	if _, err := time.LoadLocation(cfg.DefaultTimezone); err != nil {
		return fmt.Errorf("DEFAULT_TIMEZONE is not a recognized IANA zone: %w", err)
	}

	if err := cfg.Postgres.Validate(); err != nil {
		return err
	}

	if err := cfg.Redis.Validate(); err != nil {
		return err
	}

	return cfg.VAPID.Validate()
}
