package session

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"nanobanana/internal/workflow"
)

const DefaultTTL = time.Hour

// Backend is a workflow.Store that can be shut down.
type Backend interface {
	workflow.Store
	Close() error
}

type memoryBackend struct{ *MemoryStore }

func (b memoryBackend) Close() error {
	b.Stop()
	return nil
}

type redisBackend struct{ *RedisStore }

// Close is a no-op; the client is shared with the event broker and owned by
// the caller.
func (b redisBackend) Close() error { return nil }

// Open picks the Redis store when a client is supplied and the in-memory
// store otherwise.
func Open(ctx context.Context, rdb *redis.Client, ttl time.Duration, log zerolog.Logger) (Backend, error) {
	if rdb != nil {
		if err := rdb.Ping(ctx).Err(); err != nil {
			return nil, fmt.Errorf("session: redis ping: %w", err)
		}
		log.Info().Msg("sessions stored in redis")
		return redisBackend{NewRedisStore(rdb, ttl)}, nil
	}
	mem := NewMemoryStore(ttl, log)
	if err := mem.StartSweeper(); err != nil {
		return nil, fmt.Errorf("session: start sweeper: %w", err)
	}
	log.Info().Dur("ttl", mem.ttl).Msg("sessions stored in memory")
	return memoryBackend{mem}, nil
}
