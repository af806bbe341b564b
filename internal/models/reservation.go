package models

import "time"

// Reservation claims a room for the half-open interval [StartTime, EndTime).
type Reservation struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	RoomID    int64     `json:"room_id"`
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`
	Status    string    `json:"status"` // active, cancelled, completed
}

// Overlaps reports whether r intersects [start, end). Touching intervals do not overlap.
// It is the in-memory form of the conflict predicate CreateReservationIfFree runs in SQL
// (start_time < end AND end_time > start).
func (r *Reservation) Overlaps(start, end time.Time) bool {
	return r.StartTime.Before(end) && r.EndTime.After(start)
}
