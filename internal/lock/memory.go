package lock

import (
	"context"
	"fmt"
	"sync"
)

// MemoryRoomLocker serialises bookings per room inside a single process.
type MemoryRoomLocker struct {
	mu    sync.Mutex
	rooms map[int64]chan struct{}
}

func NewMemoryRoomLocker() *MemoryRoomLocker {
	return &MemoryRoomLocker{rooms: make(map[int64]chan struct{})}
}

func (l *MemoryRoomLocker) slot(roomID int64) chan struct{} {
	l.mu.Lock()
	defer l.mu.Unlock()

	ch, ok := l.rooms[roomID]
	if !ok {
		ch = make(chan struct{}, 1)
		l.rooms[roomID] = ch
	}
	return ch
}

func (l *MemoryRoomLocker) Lock(ctx context.Context, roomID int64) (func(), error) {
	ch := l.slot(roomID)
	select {
	case ch <- struct{}{}:
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: room %d: %w", ErrLockTimeout, roomID, ctx.Err())
	}

	var once sync.Once
	return func() {
		once.Do(func() { <-ch })
	}, nil
}
