package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/rocketscienceinc/tictactoe-sessions/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-sessions/internal/entity"
	"github.com/rocketscienceinc/tictactoe-sessions/internal/metrics"
	"github.com/rocketscienceinc/tictactoe-sessions/internal/repository"
	"github.com/rocketscienceinc/tictactoe-sessions/internal/repository/storage"
	"github.com/rocketscienceinc/tictactoe-sessions/internal/tictactoe"
)

type playerRepo interface {
	Create(ctx context.Context, player *entity.Player) error
	GetByID(ctx context.Context, id string) (*entity.Player, error)
	Subscribe(ctx context.Context, onChange func(players map[string]entity.Player)) (*storage.Subscription, error)
}

type gameRepo interface {
	Create(ctx context.Context, game *entity.Game) error
	GetByID(ctx context.Context, id string) (*entity.Game, error)
	UpdateIf(ctx context.Context, prev, next *entity.Game) error
	DeleteIf(ctx context.Context, game *entity.Game) error
	Subscribe(ctx context.Context, onChange func(games map[string]entity.Game)) (*storage.Subscription, error)
}

// Outcome tells what became of a move or an invite response.
// Dropped requests are not errors: they come from stale or racing clients.
type Outcome struct {
	// Game is the stored game after the operation, nil when it does not exist.
	Game    *entity.Game
	Applied bool
	// Reason says why the request was dropped.
	Reason error
}

type SessionEngine struct {
	logger  *slog.Logger
	metrics *metrics.Metrics

	playerRepo playerRepo
	gameRepo   gameRepo
}

func NewSessionEngine(logger *slog.Logger, m *metrics.Metrics, playerRepo playerRepo, gameRepo gameRepo) *SessionEngine {
	return &SessionEngine{
		logger:  logger.With("component", "session-engine"),
		metrics: m,

		playerRepo: playerRepo,
		gameRepo:   gameRepo,
	}
}

// RegisterPlayer creates a player with the given display name.
func (that *SessionEngine) RegisterPlayer(ctx context.Context, name string) (*entity.Player, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperror.ErrInvalidPlayerName
	}

	player := &entity.Player{Name: name}
	if err := that.playerRepo.Create(ctx, player); err != nil {
		return nil, fmt.Errorf("failed to register player: %w", err)
	}

	that.metrics.PlayersRegistered.Inc()
	that.logger.Info("player registered", "playerID", player.ID)

	return player, nil
}

func (that *SessionEngine) GetPlayer(ctx context.Context, id string) (*entity.Player, error) {
	player, err := that.playerRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get player: %w", err)
	}

	return player, nil
}

func (that *SessionEngine) GetGame(ctx context.Context, id string) (*entity.Game, error) {
	game, err := that.gameRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get game: %w", err)
	}

	return game, nil
}

// CreateInvite opens a new game from one player to another.
// Pending invites between the same pair are not deduplicated.
func (that *SessionEngine) CreateInvite(ctx context.Context, fromPlayerID, toPlayerID string) (*entity.Game, error) {
	if fromPlayerID == "" || toPlayerID == "" {
		return nil, apperror.ErrPlayerNotFound
	}

	if fromPlayerID == toPlayerID {
		return nil, apperror.ErrSelfInvite
	}

	for _, id := range []string{fromPlayerID, toPlayerID} {
		if _, err := that.playerRepo.GetByID(ctx, id); err != nil {
			return nil, fmt.Errorf("failed get player %s: %w", id, err)
		}
	}

	game := entity.NewGame("", fromPlayerID, toPlayerID)
	if err := that.gameRepo.Create(ctx, game); err != nil {
		return nil, fmt.Errorf("failed to create invite: %w", err)
	}

	that.metrics.Invites.WithLabelValues(metrics.ResultCreated).Inc()
	that.logger.Info("invite created", "gameID", game.ID, "from", fromPlayerID, "to", toPlayerID)

	return game, nil
}

// RespondToInvite starts the game on accept and deletes it on decline.
// Anything but a stored invite is left alone.
func (that *SessionEngine) RespondToInvite(ctx context.Context, gameID string, accept bool) (Outcome, error) {
	log := that.logger.With("method", "RespondToInvite", "gameID", gameID, "accept", accept)

	game, outcome, err := that.loadGame(ctx, gameID)
	if game == nil {
		if err == nil {
			that.ignoreInvite(log, outcome.Reason)
		}
		return outcome, err
	}

	if !game.IsInvite() {
		that.ignoreInvite(log, apperror.ErrNotInvite)
		return Outcome{Game: game, Reason: apperror.ErrNotInvite}, nil
	}

	if !accept {
		return that.declineInvite(ctx, log, game)
	}

	accepted := *game
	accepted.State = entity.StatePlayer1Turn

	if err = that.gameRepo.UpdateIf(ctx, game, &accepted); err != nil {
		return that.dropStale(ctx, log, gameID, err, that.metrics.Invites)
	}

	that.metrics.Invites.WithLabelValues(metrics.ResultAccepted).Inc()
	log.Info("invite accepted")

	return Outcome{Game: &accepted, Applied: true}, nil
}

func (that *SessionEngine) declineInvite(ctx context.Context, log *slog.Logger, game *entity.Game) (Outcome, error) {
	if err := that.gameRepo.DeleteIf(ctx, game); err != nil {
		return that.dropStale(ctx, log, game.ID, err, that.metrics.Invites)
	}

	that.metrics.Invites.WithLabelValues(metrics.ResultDeclined).Inc()
	log.Info("invite declined, game deleted")

	return Outcome{Applied: true}, nil
}

// ApplyMove places the acting player's mark when the move is legal.
// The write only lands if the game is still the one the move was computed from.
func (that *SessionEngine) ApplyMove(ctx context.Context, gameID, playerID string, cell int) (Outcome, error) {
	log := that.logger.With("method", "ApplyMove", "gameID", gameID, "playerID", playerID, "cell", cell)

	if cell < 0 || cell >= entity.BoardSize {
		reason := fmt.Errorf("%w: cell %d", apperror.ErrInvalidCell, cell)
		that.rejectMove(log, reason)
		return Outcome{Reason: reason}, nil
	}

	game, outcome, err := that.loadGame(ctx, gameID)
	if game == nil {
		if err == nil {
			that.rejectMove(log, outcome.Reason)
		}
		return outcome, err
	}

	next := *game
	if err = tictactoe.MakeTurn(&next, playerID, cell); err != nil {
		that.rejectMove(log, err)
		return Outcome{Game: game, Reason: err}, nil
	}

	if err = that.gameRepo.UpdateIf(ctx, game, &next); err != nil {
		return that.dropStale(ctx, log, gameID, err, that.metrics.Moves)
	}

	that.metrics.Moves.WithLabelValues(metrics.ResultAccepted).Inc()
	log.Debug("move applied", "state", next.State)

	return Outcome{Game: &next, Applied: true}, nil
}

// loadGame returns a nil game with a filled outcome when the game does not exist.
func (that *SessionEngine) loadGame(ctx context.Context, gameID string) (*entity.Game, Outcome, error) {
	game, err := that.gameRepo.GetByID(ctx, gameID)
	if errors.Is(err, apperror.ErrGameNotFound) {
		return nil, Outcome{Reason: apperror.ErrGameNotFound}, nil
	}

	if err != nil {
		return nil, Outcome{}, fmt.Errorf("failed to get game: %w", err)
	}

	return game, Outcome{}, nil
}

// dropStale turns a lost race into a silent drop and reports any other write failure.
// The returned outcome carries the fresh stored game.
func (that *SessionEngine) dropStale(ctx context.Context, log *slog.Logger, gameID string, err error, counter *prometheus.CounterVec) (Outcome, error) {
	if !errors.Is(err, repository.ErrStaleGame) && !errors.Is(err, apperror.ErrGameNotFound) {
		return Outcome{}, fmt.Errorf("failed to store game: %w", err)
	}

	counter.WithLabelValues(metrics.ResultConflict).Inc()
	log.Debug("stale snapshot, request dropped", "reason", err)

	game, outcome, loadErr := that.loadGame(ctx, gameID)
	if loadErr != nil {
		return Outcome{}, loadErr
	}

	if game == nil {
		return outcome, nil
	}

	return Outcome{Game: game, Reason: err}, nil
}

func (that *SessionEngine) rejectMove(log *slog.Logger, reason error) {
	that.metrics.Moves.WithLabelValues(metrics.ResultRejected).Inc()
	log.Debug("move rejected", "reason", reason)
}

func (that *SessionEngine) ignoreInvite(log *slog.Logger, reason error) {
	that.metrics.Invites.WithLabelValues(metrics.ResultIgnored).Inc()
	log.Debug("invite response ignored", "reason", reason)
}
