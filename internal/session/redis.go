package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"nanobanana/internal/workflow"
)

const (
	redisKeyPrefix  = "nanobanana:session:"
	redisLockSuffix = ":lock"
	lockTTL         = 15 * time.Second
	lockRetry       = 50 * time.Millisecond
)

var ErrLockTimeout = errors.New("session: lock timeout")

// unlockScript deletes the lock only if it still holds our token.
var unlockScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisStore keeps session states as JSON under a TTL so several web
// instances can serve the same browser session.
type RedisStore struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisStore(rdb *redis.Client, ttl time.Duration) *RedisStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisStore{rdb: rdb, ttl: ttl}
}

func stateKey(id string) string { return redisKeyPrefix + id }

func (s *RedisStore) Load(ctx context.Context, id string) (*workflow.State, error) {
	raw, err := s.rdb.Get(ctx, stateKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return workflow.NewState(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("session: redis get: %w", err)
	}
	st := workflow.NewState()
	if err := json.Unmarshal(raw, st); err != nil {
		return nil, fmt.Errorf("session: decode state: %w", err)
	}
	return st, nil
}

func (s *RedisStore) Save(ctx context.Context, id string, st *workflow.State) error {
	raw, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("session: encode state: %w", err)
	}
	if err := s.rdb.Set(ctx, stateKey(id), raw, s.ttl).Err(); err != nil {
		return fmt.Errorf("session: redis set: %w", err)
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, id string) error {
	return s.rdb.Del(ctx, stateKey(id)).Err()
}

// Lock takes a SET NX lock on the session, polling until ctx expires.
func (s *RedisStore) Lock(ctx context.Context, id string) (func(), error) {
	key := stateKey(id) + redisLockSuffix
	token := uuid.NewString()
	ticker := time.NewTicker(lockRetry)
	defer ticker.Stop()
	for {
		ok, err := s.rdb.SetNX(ctx, key, token, lockTTL).Result()
		if err != nil {
			if ctx.Err() != nil {
				return nil, fmt.Errorf("%w: %v", ErrLockTimeout, ctx.Err())
			}
			return nil, fmt.Errorf("session: redis lock: %w", err)
		}
		if ok {
			return func() {
				ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
				defer cancel()
				_ = unlockScript.Run(ctx, s.rdb, []string{key}, token).Err()
			}, nil
		}
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %v", ErrLockTimeout, ctx.Err())
		case <-ticker.C:
		}
	}
}
