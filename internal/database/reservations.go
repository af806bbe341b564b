package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"roombooking/internal/models"
)

const reservationColumns = `id, user_id, room_id, start_time, end_time, status`

// CreateReservationIfFree inserts the reservation unless an active reservation on the same
// room overlaps [StartTime, EndTime). Touching intervals do not overlap.
func (db *DB) CreateReservationIfFree(ctx context.Context, r *models.Reservation) error {
	if r.Status == "" {
		r.Status = models.StatusActive
	}
	start, end := formatTime(r.StartTime), formatTime(r.EndTime)

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var conflictID int64
	err = tx.QueryRowContext(ctx, `
		SELECT id FROM reservations
		WHERE room_id = ? AND status = ? AND start_time < ? AND end_time > ?
		LIMIT 1`,
		r.RoomID, models.StatusActive, end, start,
	).Scan(&conflictID)
	switch {
	case err == nil:
		err = ErrConflict
		db.logger.Debug().
			Int64("room_id", r.RoomID).
			Int64("conflicting_reservation_id", conflictID).
			Msg("reservation overlaps an active one")
		return err
	case !errors.Is(err, sql.ErrNoRows):
		return fmt.Errorf("failed to check overlap: %w", err)
	}

	result, err := tx.ExecContext(ctx, `
		INSERT INTO reservations (user_id, room_id, start_time, end_time, status)
		VALUES (?, ?, ?, ?, ?)`,
		r.UserID, r.RoomID, start, end, r.Status,
	)
	if err != nil {
		return fmt.Errorf("failed to insert reservation: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit reservation: %w", err)
	}

	r.ID = id
	r.StartTime = r.StartTime.UTC()
	r.EndTime = r.EndTime.UTC()
	return nil
}

func (db *DB) GetReservation(ctx context.Context, id int64) (*models.Reservation, error) {
	query := `SELECT ` + reservationColumns + ` FROM reservations WHERE id = ?`
	r, err := scanReservation(db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get reservation: %w", err)
	}
	return r, nil
}

func (db *DB) ListReservations(ctx context.Context) ([]*models.Reservation, error) {
	query := `SELECT ` + reservationColumns + ` FROM reservations ORDER BY id ASC`
	return db.queryReservations(ctx, query)
}

func (db *DB) ListReservationsByRoom(ctx context.Context, roomID int64) ([]*models.Reservation, error) {
	query := `SELECT ` + reservationColumns + ` FROM reservations WHERE room_id = ? ORDER BY id ASC`
	return db.queryReservations(ctx, query, roomID)
}

// CancelReservation flips a reservation to cancelled. Only one of several concurrent
// cancels of the same reservation can succeed.
func (db *DB) CancelReservation(ctx context.Context, id int64) error {
	result, err := db.ExecContext(ctx,
		`UPDATE reservations SET status = ? WHERE id = ? AND status <> ?`,
		models.StatusCancelled, id, models.StatusCancelled,
	)
	if err != nil {
		return fmt.Errorf("failed to cancel reservation: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if affected > 0 {
		return nil
	}

	var status string
	err = db.QueryRowContext(ctx, `SELECT status FROM reservations WHERE id = ?`, id).Scan(&status)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to read reservation status: %w", err)
	}
	return ErrAlreadyCancelled
}

func (db *DB) queryReservations(ctx context.Context, query string, args ...any) ([]*models.Reservation, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list reservations: %w", err)
	}
	defer rows.Close()

	reservations := []*models.Reservation{}
	for rows.Next() {
		r, err := scanReservation(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan reservation: %w", err)
		}
		reservations = append(reservations, r)
	}
	return reservations, rows.Err()
}

func scanReservation(row rowScanner) (*models.Reservation, error) {
	var r models.Reservation
	var start, end string
	if err := row.Scan(&r.ID, &r.UserID, &r.RoomID, &start, &end, &r.Status); err != nil {
		return nil, err
	}
	if !models.ValidStatus(r.Status) {
		return nil, fmt.Errorf("reservation %d: unknown status %q", r.ID, r.Status)
	}

	var err error
	if r.StartTime, err = parseTime(start); err != nil {
		return nil, err
	}
	if r.EndTime, err = parseTime(end); err != nil {
		return nil, err
	}
	return &r, nil
}
