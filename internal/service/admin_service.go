package service

import (
	"context"
	"fmt"

	"roombooking/internal/domain"
	"roombooking/internal/events"

	"github.com/rs/zerolog"
)

// AdminService exposes destructive maintenance operations.
type AdminService struct {
	repo     domain.AdminRepository
	eventBus domain.EventPublisher
	clock    domain.Clock
	logger   *zerolog.Logger
}

func NewAdminService(repo domain.AdminRepository, eventBus domain.EventPublisher, clock domain.Clock, logger *zerolog.Logger) *AdminService {
	if clock == nil {
		clock = domain.SystemClock{}
	}
	return &AdminService{repo: repo, eventBus: eventBus, clock: clock, logger: logger}
}

// Reset deletes all reservations, rooms and users.
func (s *AdminService) Reset(ctx context.Context) error {
	if err := s.repo.ResetAll(ctx); err != nil {
		return fmt.Errorf("reset database: %w", err)
	}

	if s.eventBus != nil {
		if err := s.eventBus.PublishJSON(events.EventDatabaseReset, events.ResetEventPayload{ResetAt: s.clock.Now()}); err != nil {
			s.logger.Error().Err(err).Msg("publish reset event error")
		}
	}
	return nil
}
