package repository

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/rocketscienceinc/tictactoe-sessions/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-sessions/internal/entity"
	"github.com/rocketscienceinc/tictactoe-sessions/internal/repository/storage"
)

const (
	PlayersCollection = "players"

	fieldName = "name"
)

type PlayerRepository interface {
	Create(ctx context.Context, player *entity.Player) error
	GetByID(ctx context.Context, id string) (*entity.Player, error)
	List(ctx context.Context) (map[string]entity.Player, error)
	Subscribe(ctx context.Context, onChange func(players map[string]entity.Player)) (*storage.Subscription, error)
}

type dbPlayer struct {
	logger *slog.Logger
	store  storage.Documents
}

func NewPlayerRepository(logger *slog.Logger, store storage.Documents) PlayerRepository {
	return &dbPlayer{
		logger: logger.With("component", "player-repository"),
		store:  store,
	}
}

// Create stores the player and fills in the id assigned by the store.
func (that *dbPlayer) Create(ctx context.Context, player *entity.Player) error {
	id, err := that.store.Create(ctx, PlayersCollection, storage.Document{fieldName: player.Name})
	if err != nil {
		return fmt.Errorf("failed to create player: %w", err)
	}

	player.ID = id

	return nil
}

func (that *dbPlayer) GetByID(ctx context.Context, id string) (*entity.Player, error) {
	if id == "" {
		return nil, apperror.ErrPlayerNotFound
	}

	doc, err := that.store.Get(ctx, PlayersCollection, id)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, apperror.ErrPlayerNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("failed to get player by ID: %w", err)
	}

	player := decodePlayer(id, doc)

	return &player, nil
}

func (that *dbPlayer) List(ctx context.Context) (map[string]entity.Player, error) {
	docs, err := that.store.List(ctx, PlayersCollection)
	if err != nil {
		return nil, fmt.Errorf("failed to list players: %w", err)
	}

	return decodePlayers(docs), nil
}

func (that *dbPlayer) Subscribe(ctx context.Context, onChange func(players map[string]entity.Player)) (*storage.Subscription, error) {
	sub, err := that.store.Subscribe(ctx, PlayersCollection, func(docs map[string]storage.Document) {
		onChange(decodePlayers(docs))
	})
	if err != nil {
		return nil, fmt.Errorf("failed to subscribe to players: %w", err)
	}

	return sub, nil
}

func decodePlayer(id string, doc storage.Document) entity.Player {
	return entity.Player{
		ID:   id,
		Name: doc[fieldName],
	}
}

func decodePlayers(docs map[string]storage.Document) map[string]entity.Player {
	players := make(map[string]entity.Player, len(docs))
	for id, doc := range docs {
		players[id] = decodePlayer(id, doc)
	}

	return players
}
