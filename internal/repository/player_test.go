package repository

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/rocketscienceinc/tictactoe-sessions/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-sessions/internal/entity"
	"github.com/rocketscienceinc/tictactoe-sessions/internal/repository/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlayerRepository_Create(t *testing.T) {
	forEachBackend(t, func(t *testing.T, ctx context.Context, logger *slog.Logger, store storage.Documents) {
		playerRepo := NewPlayerRepository(logger, store)

		// Given: a player without an id
		player := &entity.Player{Name: "Bob"}

		// When: Create is called
		err := playerRepo.Create(ctx, player)

		// Then: no error should be returned, and the store assigned an id
		require.NoError(t, err)
		assert.NotEmpty(t, player.ID)
	})
}

func TestPlayerRepository_GetByID(t *testing.T) {
	forEachBackend(t, func(t *testing.T, ctx context.Context, logger *slog.Logger, store storage.Documents) {
		playerRepo := NewPlayerRepository(logger, store)

		t.Run("GetByID_Success", func(t *testing.T) {
			// Given: a stored player
			player := &entity.Player{Name: "Bob"}
			require.NoError(t, playerRepo.Create(ctx, player))

			// When: GetByID is called with existing ID
			retrievedPlayer, err := playerRepo.GetByID(ctx, player.ID)

			// Then: the retrieved player should match the saved player
			require.NoError(t, err)
			require.Equal(t, player, retrievedPlayer)
		})

		t.Run("GetByID_NotFound", func(t *testing.T) {
			// When: GetByID is called with non-existent ID
			retrievedPlayer, err := playerRepo.GetByID(ctx, "9999999")

			// Then: an ErrPlayerNotFound error should be returned
			require.ErrorIs(t, err, apperror.ErrPlayerNotFound)
			assert.Nil(t, retrievedPlayer)
		})

		t.Run("GetByID_EmptyID", func(t *testing.T) {
			_, err := playerRepo.GetByID(ctx, "")

			require.ErrorIs(t, err, apperror.ErrPlayerNotFound)
		})
	})
}

func TestPlayerRepository_ListAndSubscribe(t *testing.T) {
	forEachBackend(t, func(t *testing.T, ctx context.Context, logger *slog.Logger, store storage.Documents) {
		playerRepo := NewPlayerRepository(logger, store)

		// Given: one registered player
		bob := &entity.Player{Name: "Bob"}
		require.NoError(t, playerRepo.Create(ctx, bob))

		players, err := playerRepo.List(ctx)
		require.NoError(t, err)
		assert.Equal(t, map[string]entity.Player{bob.ID: *bob}, players)

		updates := make(chan map[string]entity.Player, 16)
		sub, err := playerRepo.Subscribe(ctx, func(players map[string]entity.Player) {
			updates <- players
		})
		require.NoError(t, err)
		defer sub.Close()

		// When: another player registers
		alice := &entity.Player{Name: "Alice"}
		require.NoError(t, playerRepo.Create(ctx, alice))

		// Then: subscribers eventually see both players
		deadline := time.After(5 * time.Second)
		for {
			select {
			case players := <-updates:
				if len(players) == 2 {
					assert.Equal(t, "Alice", players[alice.ID].Name)
					return
				}
			case <-deadline:
				t.Fatal("players update never arrived")
			}
		}
	})
}
