package lock

import (
	"context"
	"testing"
	"time"

	"roombooking/internal/config"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisRoomLocker(t *testing.T) {
	s, err := miniredis.Run()
	require.NoError(t, err)
	defer s.Close()

	client := NewRedisClient(config.RedisConfig{Address: s.Addr()})
	defer client.Close()
	require.NoError(t, Ping(context.Background(), client))

	logger := zerolog.Nop()
	l := NewRedisRoomLocker(client, 30*time.Second, &logger)
	ctx := context.Background()

	t.Run("AcquireAndRelease", func(t *testing.T) {
		unlock, err := l.Lock(ctx, 1)
		require.NoError(t, err)
		assert.True(t, s.Exists("roombooking:lock:room:1"))
		assert.Equal(t, 30*time.Second, s.TTL("roombooking:lock:room:1"))

		unlock()
		assert.False(t, s.Exists("roombooking:lock:room:1"))
	})

	t.Run("HeldLockTimesOut", func(t *testing.T) {
		unlock, err := l.Lock(ctx, 2)
		require.NoError(t, err)
		defer unlock()

		waitCtx, cancel := context.WithTimeout(ctx, 60*time.Millisecond)
		defer cancel()
		_, err = l.Lock(waitCtx, 2)
		assert.ErrorIs(t, err, ErrLockTimeout)
	})

	t.Run("WaiterAcquiresAfterRelease", func(t *testing.T) {
		unlock, err := l.Lock(ctx, 3)
		require.NoError(t, err)

		acquired := make(chan error, 1)
		go func() {
			waitCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
			defer cancel()
			u, err := l.Lock(waitCtx, 3)
			if err == nil {
				u()
			}
			acquired <- err
		}()

		time.Sleep(40 * time.Millisecond)
		unlock()
		assert.NoError(t, <-acquired)
	})

	t.Run("ReleaseDoesNotDropForeignToken", func(t *testing.T) {
		unlock, err := l.Lock(ctx, 4)
		require.NoError(t, err)

		// Simulate expiry and another holder taking the key.
		require.NoError(t, s.Set("roombooking:lock:room:4", "someone-else"))
		unlock()

		got, err := s.Get("roombooking:lock:room:4")
		require.NoError(t, err)
		assert.Equal(t, "someone-else", got)
	})

	t.Run("NilClient", func(t *testing.T) {
		_, err := NewRedisRoomLocker(nil, time.Second, &logger).Lock(ctx, 1)
		assert.Error(t, err)
	})
}

func TestRedisRoomLockerServerDown(t *testing.T) {
	s, err := miniredis.Run()
	require.NoError(t, err)
	client := redis.NewClient(&redis.Options{Addr: s.Addr(), MaxRetries: -1})
	defer client.Close()
	s.Close()

	logger := zerolog.Nop()
	l := NewRedisRoomLocker(client, time.Second, &logger)
	_, err = l.Lock(context.Background(), 1)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrLockTimeout)
}
