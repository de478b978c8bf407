package tictactoe

import (
	"fmt"

	"github.com/rocketscienceinc/tictactoe-sessions/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-sessions/internal/entity"
)

// Result is the outcome of evaluating a board.
type Result uint8

const (
	NoResult Result = iota
	WonByMarkA
	WonByMarkB
	Draw
)

var WinCombos = [][3]int{
	{0, 1, 2},
	{3, 4, 5},
	{6, 7, 8},
	{0, 3, 6},
	{1, 4, 7},
	{2, 5, 8},
	{0, 4, 8},
	{2, 4, 6},
}

// MakeTurn places the acting player's mark and advances the state.
// The game is left untouched when the turn is rejected.
func MakeTurn(game *entity.Game, playerID string, cell int) error {
	if err := validateMove(game, playerID, cell); err != nil {
		return fmt.Errorf("invalid turn: %w", err)
	}

	game.Board[cell] = game.MarkOf(playerID)
	game.State = NextState(game.State, game.Board)

	return nil
}

// validateMove - checks the move in a fixed order: cell range, state, turn owner, cell content.
func validateMove(game *entity.Game, playerID string, cell int) error {
	if cell < 0 || cell >= len(game.Board) {
		return fmt.Errorf("%w: cell %d", apperror.ErrInvalidCell, cell)
	}

	switch {
	case game.IsInvite():
		return apperror.ErrGameIsNotStarted
	case game.IsTerminal():
		return apperror.ErrGameFinished
	case !game.IsActive():
		return fmt.Errorf("%w: %s", entity.ErrUnknownState, game.State)
	}

	if !game.IsMyTurn(playerID) {
		return apperror.ErrNotYourTurn
	}

	if game.Board[cell] != entity.EmptyCell {
		return apperror.ErrCellOccupied
	}

	return nil
}

// NextState - the state following a move made in current that produced board.
func NextState(current entity.State, board entity.Board) entity.State {
	switch DetermineGameResult(board) {
	case WonByMarkA:
		return entity.StatePlayer1Won
	case WonByMarkB:
		return entity.StatePlayer2Won
	case Draw:
		return entity.StateDraw
	case NoResult:
	}

	if current == entity.StatePlayer1Turn {
		return entity.StatePlayer2Turn
	}

	return entity.StatePlayer1Turn
}

func DetermineGameResult(board entity.Board) Result {
	for _, combo := range WinCombos {
		a, b, c := board[combo[0]], board[combo[1]], board[combo[2]]
		if a != entity.EmptyCell && a == b && b == c {
			if a == entity.MarkA {
				return WonByMarkA
			}
			return WonByMarkB
		}
	}

	// the game will continue until all the squares are full
	if !board.IsFull() {
		return NoResult
	}

	return Draw
}
