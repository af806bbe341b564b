package lock

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"roombooking/internal/config"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const (
	redisKeyPrefix    = "roombooking:lock:room:"
	redisRetryBackoff = 15 * time.Millisecond
	redisUnlockWait   = 2 * time.Second
)

var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// NewRedisClient builds a Redis client from configuration.
func NewRedisClient(cfg config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	})
}

// Ping checks the Redis connection.
func Ping(ctx context.Context, client *redis.Client) error {
	if _, err := client.Ping(ctx).Result(); err != nil {
		return fmt.Errorf("failed to ping Redis: %w", err)
	}
	return nil
}

// RedisRoomLocker holds room locks as Redis keys so several API processes sharing one
// database serialise on the same room.
type RedisRoomLocker struct {
	client *redis.Client
	ttl    time.Duration
	logger *zerolog.Logger
}

func NewRedisRoomLocker(client *redis.Client, ttl time.Duration, logger *zerolog.Logger) *RedisRoomLocker {
	return &RedisRoomLocker{client: client, ttl: ttl, logger: logger}
}

func (l *RedisRoomLocker) Lock(ctx context.Context, roomID int64) (func(), error) {
	if l.client == nil {
		return nil, errors.New("redis client is nil")
	}

	key := fmt.Sprintf("%s%d", redisKeyPrefix, roomID)
	token := uuid.NewString()

	for {
		ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
		if err != nil {
			if ctx.Err() != nil {
				return nil, fmt.Errorf("%w: room %d: %w", ErrLockTimeout, roomID, ctx.Err())
			}
			return nil, fmt.Errorf("failed to acquire redis lock: %w", err)
		}
		if ok {
			break
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: room %d: %w", ErrLockTimeout, roomID, ctx.Err())
		case <-time.After(redisRetryBackoff):
		}
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			releaseCtx, cancel := context.WithTimeout(context.Background(), redisUnlockWait)
			defer cancel()
			if err := releaseScript.Run(releaseCtx, l.client, []string{key}, token).Err(); err != nil {
				l.logger.Warn().Err(err).Int64("room_id", roomID).Msg("failed to release redis room lock; it expires with its ttl")
			}
		})
	}, nil
}
