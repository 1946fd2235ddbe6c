package archive

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"askline/internal/constants"
	"askline/internal/logger"
	"askline/pkg/metrics"
)

// Deduper tracks already-archived event IDs in Redis so kafka redeliveries
// do not duplicate transcript entries.
type Deduper struct {
	client       *redis.Client
	ttl          time.Duration
	onRedisError string
	logger       logger.Logger
}

func NewDeduper(client *redis.Client, ttlSeconds int, onRedisError string, log logger.Logger) *Deduper {
	ttl := time.Duration(ttlSeconds) * time.Second
	if ttl <= 0 {
		ttl = constants.DefaultDedupTTLSeconds * time.Second
	}

	return &Deduper{
		client:       client,
		ttl:          ttl,
		onRedisError: onRedisError,
		logger:       log,
	}
}

// FirstSeen claims the event ID. False means the event was archived before.
// A Redis failure falls back per configuration: "archive" processes the
// event anyway, "skip" surfaces the error so the consumer retries.
func (d *Deduper) FirstSeen(ctx context.Context, eventID string) (bool, error) {
	key := constants.CacheKeyPrefixArchive + eventID

	claimed, err := d.client.SetNX(ctx, key, time.Now().Unix(), d.ttl).Result()
	if err != nil {
		if d.onRedisError == constants.ArchiveOnRedisError {
			metrics.FallbackUsageTotal.WithLabelValues("archive", "archive_on_error", "redis_error").Inc()
			d.logger.WarnwCtx(ctx, "Redis error during dedup check, archiving anyway",
				"error", err,
				"event_id", eventID,
			)
			return true, nil
		}

		metrics.FallbackUsageTotal.WithLabelValues("archive", "skip_on_error", "redis_error").Inc()
		return false, fmt.Errorf("redis error during dedup check for event %s: %w", eventID, err)
	}

	return claimed, nil
}
