package service

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"roombooking/internal/database"
	"roombooking/internal/domain"
	"roombooking/internal/models"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v2"
)

// CreateRoomInput describes a new room. A nil IsActive means active.
type CreateRoomInput struct {
	Name        string
	Description *string
	Capacity    int
	IsActive    *bool
}

type RoomService struct {
	repo   domain.RoomRepository
	logger *zerolog.Logger
}

func NewRoomService(repo domain.RoomRepository, logger *zerolog.Logger) *RoomService {
	return &RoomService{repo: repo, logger: logger}
}

func (s *RoomService) Create(ctx context.Context, in CreateRoomInput) (*models.Room, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrInvalidInput)
	}
	if in.Capacity <= 0 {
		return nil, fmt.Errorf("%w: capacity must be positive", ErrInvalidInput)
	}

	active := true
	if in.IsActive != nil {
		active = *in.IsActive
	}

	room := &models.Room{Name: name, Description: in.Description, Capacity: in.Capacity, IsActive: active}
	if err := s.repo.CreateRoom(ctx, room); err != nil {
		return nil, fmt.Errorf("create room: %w", err)
	}

	s.logger.Info().Int64("room_id", room.ID).Str("name", room.Name).Msg("room created")
	return room, nil
}

func (s *RoomService) Get(ctx context.Context, id int64) (*models.Room, error) {
	room, err := s.repo.GetRoomByID(ctx, id)
	if errors.Is(err, database.ErrNotFound) {
		return nil, ErrRoomNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get room %d: %w", id, err)
	}
	return room, nil
}

func (s *RoomService) List(ctx context.Context) ([]*models.Room, error) {
	return s.repo.ListRooms(ctx)
}

type roomsFile struct {
	Rooms []seedRoom `yaml:"rooms"`
}

type seedRoom struct {
	Name        string  `yaml:"name"`
	Description *string `yaml:"description"`
	Capacity    int     `yaml:"capacity"`
	IsActive    *bool   `yaml:"is_active"`
}

// LoadRoomsFile reads a YAML rooms list.
func LoadRoomsFile(path string) ([]CreateRoomInput, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var f roomsFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse rooms file: %w", err)
	}

	inputs := make([]CreateRoomInput, 0, len(f.Rooms))
	for _, r := range f.Rooms {
		inputs = append(inputs, CreateRoomInput(r))
	}
	return inputs, nil
}

// Seed creates the given rooms when no room exists yet. It returns how many were created.
func (s *RoomService) Seed(ctx context.Context, rooms []CreateRoomInput) (int, error) {
	count, err := s.repo.CountRooms(ctx)
	if err != nil {
		return 0, err
	}
	if count > 0 {
		s.logger.Info().Int("existing", count).Msg("rooms already present, skipping seed")
		return 0, nil
	}

	for i, in := range rooms {
		if _, err := s.Create(ctx, in); err != nil {
			return i, fmt.Errorf("seed room %q: %w", in.Name, err)
		}
	}
	s.logger.Info().Int("count", len(rooms)).Msg("rooms seeded")
	return len(rooms), nil
}
