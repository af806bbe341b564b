package database

import (
	"context"
	"fmt"
)

// ResetAll removes every reservation, room and user in one transaction and restarts the
// id counters.
func (db *DB) ResetAll(ctx context.Context) (err error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	for _, stmt := range []string{
		`DELETE FROM reservations`,
		`DELETE FROM rooms`,
		`DELETE FROM users`,
		`DELETE FROM sqlite_sequence WHERE name IN ('reservations', 'rooms', 'users')`,
	} {
		if _, err = tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("reset failed on %q: %w", stmt, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit reset: %w", err)
	}

	db.logger.Warn().Msg("database reset: all users, rooms and reservations removed")
	return nil
}
