package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"roombooking/internal/database"
	"roombooking/internal/domain"
	"roombooking/internal/models"

	"github.com/rs/zerolog"
)

type CreateUserInput struct {
	FullName string
	Phone    string
}

type UserService struct {
	repo   domain.UserRepository
	clock  domain.Clock
	logger *zerolog.Logger
}

func NewUserService(repo domain.UserRepository, clock domain.Clock, logger *zerolog.Logger) *UserService {
	if clock == nil {
		clock = domain.SystemClock{}
	}
	return &UserService{repo: repo, clock: clock, logger: logger}
}

func (s *UserService) Create(ctx context.Context, in CreateUserInput) (*models.User, error) {
	fullName := strings.TrimSpace(in.FullName)
	phone := strings.TrimSpace(in.Phone)
	if fullName == "" {
		return nil, fmt.Errorf("%w: full_name is required", ErrInvalidInput)
	}
	if phone == "" {
		return nil, fmt.Errorf("%w: phone is required", ErrInvalidInput)
	}

	user := &models.User{FullName: fullName, Phone: phone, CreatedAt: s.clock.Now().UTC()}
	if err := s.repo.CreateUser(ctx, user); err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}

	s.logger.Info().Int64("user_id", user.ID).Msg("user created")
	return user, nil
}

func (s *UserService) Get(ctx context.Context, id int64) (*models.User, error) {
	user, err := s.repo.GetUserByID(ctx, id)
	if errors.Is(err, database.ErrNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get user %d: %w", id, err)
	}
	return user, nil
}

func (s *UserService) List(ctx context.Context) ([]*models.User, error) {
	return s.repo.ListUsers(ctx)
}
