package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"roombooking/internal/models"
)

func (db *DB) CreateRoom(ctx context.Context, room *models.Room) error {
	query := `INSERT INTO rooms (name, description, capacity, is_active) VALUES (?, ?, ?, ?)`
	result, err := db.ExecContext(ctx, query, room.Name, nullString(room.Description), room.Capacity, room.IsActive)
	if err != nil {
		return fmt.Errorf("failed to create room: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	room.ID = id
	return nil
}

func (db *DB) GetRoomByID(ctx context.Context, id int64) (*models.Room, error) {
	query := `SELECT id, name, description, capacity, is_active FROM rooms WHERE id = ?`
	room, err := scanRoom(db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get room: %w", err)
	}
	return room, nil
}

func (db *DB) ListRooms(ctx context.Context) ([]*models.Room, error) {
	query := `SELECT id, name, description, capacity, is_active FROM rooms ORDER BY id ASC`
	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list rooms: %w", err)
	}
	defer rows.Close()

	rooms := []*models.Room{}
	for rows.Next() {
		r, err := scanRoom(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan room: %w", err)
		}
		rooms = append(rooms, r)
	}
	return rooms, rows.Err()
}

func (db *DB) CountRooms(ctx context.Context) (int, error) {
	var count int
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM rooms`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count rooms: %w", err)
	}
	return count, nil
}

func scanRoom(row rowScanner) (*models.Room, error) {
	var r models.Room
	var description sql.NullString
	if err := row.Scan(&r.ID, &r.Name, &description, &r.Capacity, &r.IsActive); err != nil {
		return nil, err
	}
	if description.Valid {
		d := description.String
		r.Description = &d
	}
	return &r, nil
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}
