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
	GamesCollection = "games"

	fieldBoard     = "board"
	fieldState     = "state"
	fieldPlayer1ID = "player1_id"
	fieldPlayer2ID = "player2_id"
)

// ErrStaleGame - the stored game no longer matches the copy a write was computed from.
var ErrStaleGame = errors.New("game changed since it was read")

type GameRepository interface {
	Create(ctx context.Context, game *entity.Game) error
	GetByID(ctx context.Context, id string) (*entity.Game, error)
	List(ctx context.Context) (map[string]entity.Game, error)

	// UpdateIf writes the board and state of next while the stored board and state still equal prev.
	UpdateIf(ctx context.Context, prev, next *entity.Game) error
	// DeleteIf removes the game while its stored state still equals the one of game.
	DeleteIf(ctx context.Context, game *entity.Game) error

	Subscribe(ctx context.Context, onChange func(games map[string]entity.Game)) (*storage.Subscription, error)
}

type dbGame struct {
	logger *slog.Logger
	store  storage.Documents
}

func NewGameRepository(logger *slog.Logger, store storage.Documents) GameRepository {
	return &dbGame{
		logger: logger.With("component", "game-repository"),
		store:  store,
	}
}

// Create stores the game and fills in the id assigned by the store.
func (that *dbGame) Create(ctx context.Context, game *entity.Game) error {
	doc, err := encodeGame(game)
	if err != nil {
		return err
	}

	id, err := that.store.Create(ctx, GamesCollection, doc)
	if err != nil {
		return fmt.Errorf("could not create game: %w", err)
	}

	game.ID = id

	return nil
}

func (that *dbGame) GetByID(ctx context.Context, id string) (*entity.Game, error) {
	if id == "" {
		return nil, apperror.ErrGameNotFound
	}

	doc, err := that.store.Get(ctx, GamesCollection, id)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, apperror.ErrGameNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("failed to get game by id: %w", err)
	}

	game, err := decodeGame(id, doc)
	if err != nil {
		return nil, err
	}

	return &game, nil
}

func (that *dbGame) List(ctx context.Context) (map[string]entity.Game, error) {
	docs, err := that.store.List(ctx, GamesCollection)
	if err != nil {
		return nil, fmt.Errorf("failed to list games: %w", err)
	}

	return that.decodeGames(docs), nil
}

func (that *dbGame) UpdateIf(ctx context.Context, prev, next *entity.Game) error {
	nextState, err := next.State.MarshalText()
	if err != nil {
		return fmt.Errorf("could not encode game: %w", err)
	}

	expect := storage.Document{
		fieldBoard: prev.Board.String(),
		fieldState: prev.State.String(),
	}
	delta := storage.Document{
		fieldBoard: next.Board.String(),
		fieldState: string(nextState),
	}

	err = that.store.UpdateIf(ctx, GamesCollection, prev.ID, expect, delta)

	switch {
	case errors.Is(err, storage.ErrNotFound):
		return apperror.ErrGameNotFound
	case errors.Is(err, storage.ErrConflict):
		return ErrStaleGame
	case err != nil:
		return fmt.Errorf("failed to update game: %w", err)
	}

	return nil
}

func (that *dbGame) DeleteIf(ctx context.Context, game *entity.Game) error {
	err := that.store.DeleteIf(ctx, GamesCollection, game.ID, storage.Document{fieldState: game.State.String()})

	switch {
	case errors.Is(err, storage.ErrNotFound):
		return apperror.ErrGameNotFound
	case errors.Is(err, storage.ErrConflict):
		return ErrStaleGame
	case err != nil:
		return fmt.Errorf("failed to delete game by ID: %w", err)
	}

	return nil
}

func (that *dbGame) Subscribe(ctx context.Context, onChange func(games map[string]entity.Game)) (*storage.Subscription, error) {
	sub, err := that.store.Subscribe(ctx, GamesCollection, func(docs map[string]storage.Document) {
		onChange(that.decodeGames(docs))
	})
	if err != nil {
		return nil, fmt.Errorf("failed to subscribe to games: %w", err)
	}

	return sub, nil
}

// decodeGames skips documents that do not decode, one bad writer must not hide every game.
func (that *dbGame) decodeGames(docs map[string]storage.Document) map[string]entity.Game {
	games := make(map[string]entity.Game, len(docs))
	for id, doc := range docs {
		game, err := decodeGame(id, doc)
		if err != nil {
			that.logger.Warn("skipping undecodable game", "gameID", id, "error", err)
			continue
		}
		games[id] = game
	}

	return games
}

func encodeGame(game *entity.Game) (storage.Document, error) {
	state, err := game.State.MarshalText()
	if err != nil {
		return nil, fmt.Errorf("could not encode game: %w", err)
	}

	return storage.Document{
		fieldBoard:     game.Board.String(),
		fieldState:     string(state),
		fieldPlayer1ID: game.Player1ID,
		fieldPlayer2ID: game.Player2ID,
	}, nil
}

func decodeGame(id string, doc storage.Document) (entity.Game, error) {
	board, err := entity.ParseBoard(doc[fieldBoard])
	if err != nil {
		return entity.Game{}, fmt.Errorf("could not decode game %s: %w", id, err)
	}

	state, err := entity.ParseState(doc[fieldState])
	if err != nil {
		return entity.Game{}, fmt.Errorf("could not decode game %s: %w", id, err)
	}

	return entity.Game{
		ID:        id,
		Board:     board,
		State:     state,
		Player1ID: doc[fieldPlayer1ID],
		Player2ID: doc[fieldPlayer2ID],
	}, nil
}
