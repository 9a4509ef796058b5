package config

import "errors"

var (
	ErrRedisAddrMissing   = errors.New("REDIS_ADDR is required")
	ErrInvalidRedisDB     = errors.New("REDIS_DB must be a valid integer")
	ErrPostgresDSNMissing = errors.New("POSTGRES_DSN is required")
	ErrCronSecretMissing  = errors.New("CRON_SECRET environment variable is required")
	ErrVAPIDKeysMissing   = errors.New("VAPID_PUBLIC_KEY, VAPID_PRIVATE_KEY and VAPID_SUBSCRIBER are required")
)
