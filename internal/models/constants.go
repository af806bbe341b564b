package models

const (
	StatusActive    = "active"
	StatusCancelled = "cancelled"
	// StatusCompleted is part of the stored vocabulary but nothing transitions into it.
	StatusCompleted = "completed"
)

// TimestampLayout is the fixed-width UTC layout used for stored instants so that
// lexical order in SQL matches chronological order.
const TimestampLayout = "2006-01-02T15:04:05.000000000Z"

const (
	// DefaultLockAcquireTimeout bounds how long a booking waits for its room lock.
	DefaultLockAcquireTimeout = 5 // seconds

	// DefaultLockTTL is the Redis room-lock expiry.
	DefaultLockTTL = 30 // seconds

	// DefaultEventQueueSize is the forwarder buffer size.
	DefaultEventQueueSize = 1000

	DefaultEventSubjectPrefix = "roombooking."
)

// ValidStatus reports whether s is a known reservation status.
func ValidStatus(s string) bool {
	switch s {
	case StatusActive, StatusCancelled, StatusCompleted:
		return true
	}
	return false
}
