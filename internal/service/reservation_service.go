package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"roombooking/internal/database"
	"roombooking/internal/domain"
	"roombooking/internal/events"
	"roombooking/internal/metrics"
	"roombooking/internal/models"

	"github.com/rs/zerolog"
)

// CreateReservationInput is the caller-supplied part of a new reservation.
type CreateReservationInput struct {
	UserID    int64
	RoomID    int64
	StartTime time.Time
	EndTime   time.Time
}

// ReservationService is the booking engine: it validates requests, prevents
// double-booking and drives the status lifecycle.
type ReservationService struct {
	reservations   domain.ReservationRepository
	users          domain.UserRepository
	rooms          domain.RoomRepository
	locker         domain.RoomLocker
	eventBus       domain.EventPublisher
	clock          domain.Clock
	acquireTimeout time.Duration
	logger         *zerolog.Logger
}

func NewReservationService(
	reservations domain.ReservationRepository,
	users domain.UserRepository,
	rooms domain.RoomRepository,
	locker domain.RoomLocker,
	eventBus domain.EventPublisher,
	clock domain.Clock,
	acquireTimeout time.Duration,
	logger *zerolog.Logger,
) *ReservationService {
	if clock == nil {
		clock = domain.SystemClock{}
	}
	if acquireTimeout <= 0 {
		acquireTimeout = models.DefaultLockAcquireTimeout * time.Second
	}
	return &ReservationService{
		reservations:   reservations,
		users:          users,
		rooms:          rooms,
		locker:         locker,
		eventBus:       eventBus,
		clock:          clock,
		acquireTimeout: acquireTimeout,
		logger:         logger,
	}
}

// Create validates and stores a reservation. Checks run in a fixed order and the first
// failing one determines the error.
func (s *ReservationService) Create(ctx context.Context, in CreateReservationInput) (*models.Reservation, error) {
	start, end := in.StartTime.UTC(), in.EndTime.UTC()

	if !end.After(start) {
		metrics.IncReservation("invalid_range")
		return nil, ErrInvalidRange
	}
	if start.Before(s.clock.Now()) {
		metrics.IncReservation("past_start")
		return nil, ErrPastStartTime
	}

	if _, err := s.users.GetUserByID(ctx, in.UserID); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			metrics.IncReservation("user_not_found")
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("load user %d: %w", in.UserID, err)
	}

	room, err := s.rooms.GetRoomByID(ctx, in.RoomID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			metrics.IncReservation("room_not_found")
			return nil, ErrRoomNotFound
		}
		return nil, fmt.Errorf("load room %d: %w", in.RoomID, err)
	}

	unlock, err := s.lockRoom(ctx, room.ID)
	if err != nil {
		metrics.IncReservation("lock_error")
		return nil, err
	}
	defer unlock()

	// Re-read under the lock so the active flag is current.
	room, err = s.rooms.GetRoomByID(ctx, in.RoomID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			metrics.IncReservation("room_not_found")
			return nil, ErrRoomNotFound
		}
		return nil, fmt.Errorf("load room %d: %w", in.RoomID, err)
	}
	if !room.IsActive {
		metrics.IncReservation("room_inactive")
		return nil, ErrRoomInactive
	}

	reservation := &models.Reservation{
		UserID:    in.UserID,
		RoomID:    in.RoomID,
		StartTime: start,
		EndTime:   end,
		Status:    models.StatusActive,
	}
	if err := s.reservations.CreateReservationIfFree(ctx, reservation); err != nil {
		if errors.Is(err, database.ErrConflict) {
			metrics.IncReservation("conflict")
			return nil, ErrRoomAlreadyBooked
		}
		metrics.IncReservation("error")
		return nil, fmt.Errorf("store reservation: %w", err)
	}

	metrics.IncReservation("created")
	s.logger.Info().
		Int64("reservation_id", reservation.ID).
		Int64("room_id", reservation.RoomID).
		Int64("user_id", reservation.UserID).
		Time("start_time", reservation.StartTime).
		Time("end_time", reservation.EndTime).
		Msg("reservation created")
	s.publishEvent(events.EventReservationCreated, reservation)

	return reservation, nil
}

// Cancel moves a reservation to cancelled and returns the updated record.
func (s *ReservationService) Cancel(ctx context.Context, id int64) (*models.Reservation, error) {
	if err := s.reservations.CancelReservation(ctx, id); err != nil {
		switch {
		case errors.Is(err, database.ErrNotFound):
			metrics.IncCancellation("not_found")
			return nil, ErrReservationNotFound
		case errors.Is(err, database.ErrAlreadyCancelled):
			metrics.IncCancellation("already_cancelled")
			return nil, ErrAlreadyCancelled
		default:
			metrics.IncCancellation("error")
			return nil, fmt.Errorf("cancel reservation %d: %w", id, err)
		}
	}

	reservation, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	metrics.IncCancellation("cancelled")
	s.logger.Info().Int64("reservation_id", id).Int64("room_id", reservation.RoomID).Msg("reservation cancelled")
	s.publishEvent(events.EventReservationCancelled, reservation)

	return reservation, nil
}

func (s *ReservationService) Get(ctx context.Context, id int64) (*models.Reservation, error) {
	reservation, err := s.reservations.GetReservation(ctx, id)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, ErrReservationNotFound
		}
		return nil, fmt.Errorf("get reservation %d: %w", id, err)
	}
	return reservation, nil
}

// List returns every reservation in creation order.
func (s *ReservationService) List(ctx context.Context) ([]*models.Reservation, error) {
	return s.reservations.ListReservations(ctx)
}

func (s *ReservationService) ListByRoom(ctx context.Context, roomID int64) ([]*models.Reservation, error) {
	return s.reservations.ListReservationsByRoom(ctx, roomID)
}

func (s *ReservationService) lockRoom(ctx context.Context, roomID int64) (func(), error) {
	lockCtx, cancel := context.WithTimeout(ctx, s.acquireTimeout)
	defer cancel()

	started := time.Now()
	unlock, err := s.locker.Lock(lockCtx, roomID)
	metrics.ObserveLockWait(time.Since(started))
	if err != nil {
		s.logger.Error().Err(err).Int64("room_id", roomID).Msg("failed to acquire room lock")
		return nil, fmt.Errorf("acquire room lock: %w", err)
	}
	return unlock, nil
}

func (s *ReservationService) publishEvent(eventType string, r *models.Reservation) {
	if s.eventBus == nil {
		return
	}

	if err := s.eventBus.PublishJSON(eventType, events.NewReservationPayload(r)); err != nil {
		s.logger.Error().Err(err).Str("event_type", eventType).Int64("reservation_id", r.ID).Msg("publish event error")
	}
}
