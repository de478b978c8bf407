package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/rocketscienceinc/tictactoe-sessions/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-sessions/internal/entity"
)

type identityRepo interface {
	Save(ctx context.Context, deviceID, playerID string) error
	Find(ctx context.Context, deviceID string) (string, error)
}

type playerRegistry interface {
	RegisterPlayer(ctx context.Context, name string) (*entity.Player, error)
	GetPlayer(ctx context.Context, id string) (*entity.Player, error)
}

// IdentityManager binds a device to the player it registered once.
type IdentityManager struct {
	logger       *slog.Logger
	identityRepo identityRepo
	players      playerRegistry
}

func NewIdentityManager(logger *slog.Logger, identityRepo identityRepo, players playerRegistry) *IdentityManager {
	return &IdentityManager{
		logger:       logger.With("component", "identity-manager"),
		identityRepo: identityRepo,
		players:      players,
	}
}

// Resolve returns the player remembered for the device.
// A device without a usable identity registers a new player under name.
func (that *IdentityManager) Resolve(ctx context.Context, deviceID, name string) (*entity.Player, error) {
	log := that.logger.With("method", "Resolve", "deviceID", deviceID)

	playerID, err := that.identityRepo.Find(ctx, deviceID)
	switch {
	case errors.Is(err, apperror.ErrNotFound):
	case err != nil:
		return nil, fmt.Errorf("failed to find identity: %w", err)
	default:
		player, err := that.players.GetPlayer(ctx, playerID)
		if err == nil {
			return player, nil
		}

		if !errors.Is(err, apperror.ErrPlayerNotFound) {
			return nil, err
		}

		log.Warn("identity points to a missing player, registering again", "playerID", playerID)
	}

	player, err := that.players.RegisterPlayer(ctx, name)
	if err != nil {
		return nil, err
	}

	if err = that.identityRepo.Save(ctx, deviceID, player.ID); err != nil {
		return nil, fmt.Errorf("failed to save identity: %w", err)
	}

	log.Info("new identity saved", "playerID", player.ID)

	return player, nil
}
