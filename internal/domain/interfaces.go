package domain

import (
	"context"
	"time"

	"roombooking/internal/models"
)

type UserRepository interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetUserByID(ctx context.Context, id int64) (*models.User, error)
	ListUsers(ctx context.Context) ([]*models.User, error)
}

type RoomRepository interface {
	CreateRoom(ctx context.Context, room *models.Room) error
	GetRoomByID(ctx context.Context, id int64) (*models.Room, error)
	ListRooms(ctx context.Context) ([]*models.Room, error)
	CountRooms(ctx context.Context) (int, error)
}

type ReservationRepository interface {
	// CreateReservationIfFree inserts the reservation unless an active reservation on the
	// same room overlaps it; the check and the insert share one write transaction.
	CreateReservationIfFree(ctx context.Context, reservation *models.Reservation) error
	GetReservation(ctx context.Context, id int64) (*models.Reservation, error)
	ListReservations(ctx context.Context) ([]*models.Reservation, error)
	ListReservationsByRoom(ctx context.Context, roomID int64) ([]*models.Reservation, error)
	// CancelReservation moves a non-cancelled reservation to cancelled.
	CancelReservation(ctx context.Context, id int64) error
}

type AdminRepository interface {
	ResetAll(ctx context.Context) error
}

// RoomLocker serialises booking attempts on the same room.
type RoomLocker interface {
	// Lock blocks until the room lock is held or ctx ends. The returned func releases it.
	Lock(ctx context.Context, roomID int64) (unlock func(), err error)
}

type EventPublisher interface {
	PublishJSON(eventType string, payload interface{}) error
}

// Clock is the time source for past-start checks and creation timestamps.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock in UTC.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now().UTC() }

// ClockFunc adapts a function to Clock.
type ClockFunc func() time.Time

func (f ClockFunc) Now() time.Time { return f() }
