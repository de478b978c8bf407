package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/rocketscienceinc/tictactoe-sessions/internal/apperror"
)

// IdentityRepository remembers which player a device registered as.
type IdentityRepository interface {
	Save(ctx context.Context, deviceID, playerID string) error
	Find(ctx context.Context, deviceID string) (string, error)
}

type identityRepository struct {
	conn *sql.DB
}

func NewIdentityRepository(conn *sql.DB) IdentityRepository {
	return &identityRepository{
		conn: conn,
	}
}

func (that *identityRepository) Save(ctx context.Context, deviceID, playerID string) error {
	query := `INSERT INTO identities (device_id, player_id) VALUES (?, ?)
		ON CONFLICT(device_id) DO UPDATE SET player_id = excluded.player_id`

	_, err := that.conn.ExecContext(ctx, query, deviceID, playerID)
	if err != nil {
		return fmt.Errorf("can't save identity: %w", err)
	}

	return nil
}

func (that *identityRepository) Find(ctx context.Context, deviceID string) (string, error) {
	query := `SELECT player_id FROM identities WHERE device_id = ?`

	var playerID string

	err := that.conn.QueryRowContext(ctx, query, deviceID).Scan(&playerID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", apperror.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("can't find identity: %w", err)
	}

	return playerID, nil
}
