package apperror

import "errors"

var (
	ErrGameFinished     = errors.New("game is already finished")
	ErrGameIsNotStarted = errors.New("game is not started")
	ErrNotYourTurn      = errors.New("it's not your turn")
	ErrCellOccupied     = errors.New("cell is already occupied")
	ErrInvalidCell      = errors.New("invalid cell index")
	ErrGameNotFound     = errors.New("game not found")

	ErrNotInvite         = errors.New("game is not an invite")
	ErrSelfInvite        = errors.New("invite to self is not allowed")
	ErrPlayerNotFound    = errors.New("player not found")
	ErrInvalidPlayerName = errors.New("player name is blank")

	ErrNotFound = errors.New("not found")
)
