package repository

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/circadian-app/reminder-scheduler/internal/domain"
)

const (
	sentMarkerKeyPrefix = "reminder:sent:"

	// Long enough to cover the whole local day in any timezone plus clock
	// skew between runs; the durable store remains authoritative after expiry.
	sentMarkerTTL = 48 * time.Hour
)

type sentMarkerRepository struct {
	client *redis.Client
}

func NewSentMarkerRepository(client *redis.Client) domain.SentMarkerRepository {
	return &sentMarkerRepository{
		client: client,
	}
}

func sentMarkerKey(userID, localDay string) string {
	return sentMarkerKeyPrefix + localDay + ":" + userID
}

func (r *sentMarkerRepository) MarkSentToday(ctx context.Context, userID, localDay string) error {
	return r.client.Set(ctx, sentMarkerKey(userID, localDay), 1, sentMarkerTTL).Err()
}

func (r *sentMarkerRepository) WasSentToday(ctx context.Context, userID, localDay string) (bool, error) {
	exists, err := r.client.Exists(ctx, sentMarkerKey(userID, localDay)).Result()
	if err != nil {
		return false, err
	}
	return exists > 0, nil
}
