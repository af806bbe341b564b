package lock

import (
	"context"
	"errors"
	"sync"
	"time"

	"roombooking/internal/domain"

	"github.com/rs/zerolog"
)

const recoveryInterval = time.Minute

// FailoverRoomLocker uses the primary locker and switches to the fallback when the
// primary errors. The primary is retried once the recovery interval has passed.
type FailoverRoomLocker struct {
	primary  domain.RoomLocker
	fallback domain.RoomLocker
	logger   *zerolog.Logger
	now      func() time.Time

	mu        sync.Mutex
	down      bool
	lastCheck time.Time
}

func NewFailoverRoomLocker(primary, fallback domain.RoomLocker, logger *zerolog.Logger) *FailoverRoomLocker {
	return &FailoverRoomLocker{
		primary:  primary,
		fallback: fallback,
		logger:   logger,
		now:      time.Now,
	}
}

func (l *FailoverRoomLocker) usePrimary() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return !l.down || l.now().Sub(l.lastCheck) > recoveryInterval
}

func (l *FailoverRoomLocker) markDown() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.down = true
	l.lastCheck = l.now()
}

func (l *FailoverRoomLocker) markUp() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.down {
		l.logger.Info().Msg("primary room locker recovered")
	}
	l.down = false
}

func (l *FailoverRoomLocker) Lock(ctx context.Context, roomID int64) (func(), error) {
	if l.usePrimary() {
		unlock, err := l.primary.Lock(ctx, roomID)
		if err == nil {
			l.markUp()
			return unlock, nil
		}
		// A timeout means the lock is held elsewhere, not that the primary is broken.
		if errors.Is(err, ErrLockTimeout) {
			return nil, err
		}
		l.logger.Error().Err(err).Int64("room_id", roomID).Msg("primary room locker failed, falling back to memory")
		l.markDown()
	}

	return l.fallback.Lock(ctx, roomID)
}
