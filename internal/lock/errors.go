package lock

import "errors"

// ErrLockTimeout is returned when the context ends before the room lock is acquired.
var ErrLockTimeout = errors.New("room lock not acquired")
