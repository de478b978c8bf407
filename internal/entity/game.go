package entity

import (
	"errors"
	"fmt"
	"strings"
)

// Mark is the content of a single board cell.
type Mark uint8

const (
	EmptyCell Mark = iota
	MarkA          // placed by player 1
	MarkB          // placed by player 2
)

const BoardSize = 9

var (
	ErrInvalidBoard = errors.New("invalid board encoding")
	ErrUnknownState = errors.New("unknown game state")
)

// Board is a row-major 3x3 grid: index i*3+j is row i, column j.
type Board [BoardSize]Mark

// String encodes the board as nine digits, e.g. "102000000".
func (that Board) String() string {
	var sb strings.Builder
	sb.Grow(BoardSize)

	for _, cell := range that {
		sb.WriteByte('0' + byte(cell))
	}

	return sb.String()
}

func ParseBoard(raw string) (Board, error) {
	var board Board

	if len(raw) != BoardSize {
		return board, fmt.Errorf("%w: length %d", ErrInvalidBoard, len(raw))
	}

	for i := range len(raw) {
		mark := Mark(raw[i] - '0')
		if raw[i] < '0' || mark > MarkB {
			return board, fmt.Errorf("%w: cell %d is %q", ErrInvalidBoard, i, raw[i])
		}
		board[i] = mark
	}

	return board, nil
}

func (that Board) IsFull() bool {
	for _, cell := range that {
		if cell == EmptyCell {
			return false
		}
	}

	return true
}

// State is the position of a game in its lifecycle.
type State uint8

const (
	StateInvite State = iota
	StatePlayer1Turn
	StatePlayer2Turn
	StatePlayer1Won
	StatePlayer2Won
	StateDraw
)

var stateNames = [...]string{
	StateInvite:      "invite",
	StatePlayer1Turn: "player1_turn",
	StatePlayer2Turn: "player2_turn",
	StatePlayer1Won:  "player1_won",
	StatePlayer2Won:  "player2_won",
	StateDraw:        "draw",
}

func (that State) String() string {
	if !that.IsValid() {
		return fmt.Sprintf("state(%d)", uint8(that))
	}

	return stateNames[that]
}

func (that State) IsValid() bool {
	return int(that) < len(stateNames)
}

func ParseState(raw string) (State, error) {
	for state, name := range stateNames {
		if name == raw {
			return State(state), nil
		}
	}

	return 0, fmt.Errorf("%w: %q", ErrUnknownState, raw)
}

func (that State) MarshalText() ([]byte, error) {
	if !that.IsValid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownState, uint8(that))
	}

	return []byte(stateNames[that]), nil
}

func (that *State) UnmarshalText(text []byte) error {
	state, err := ParseState(string(text))
	if err != nil {
		return err
	}

	*that = state

	return nil
}

// Game is one session between an inviter (player 1) and an invitee (player 2).
type Game struct {
	ID        string `json:"id"`
	Board     Board  `json:"board"`
	State     State  `json:"state"`
	Player1ID string `json:"player1_id"`
	Player2ID string `json:"player2_id"`
}

func NewGame(id, player1ID, player2ID string) *Game {
	return &Game{
		ID:        id,
		State:     StateInvite,
		Player1ID: player1ID,
		Player2ID: player2ID,
	}
}

func (that *Game) IsInvite() bool {
	return that.State == StateInvite
}

func (that *Game) IsActive() bool {
	return that.State == StatePlayer1Turn || that.State == StatePlayer2Turn
}

func (that *Game) IsTerminal() bool {
	switch that.State {
	case StatePlayer1Won, StatePlayer2Won, StateDraw:
		return true
	default:
		return false
	}
}

func (that *Game) IsMyTurn(playerID string) bool {
	return (that.State == StatePlayer1Turn && playerID == that.Player1ID) ||
		(that.State == StatePlayer2Turn && playerID == that.Player2ID)
}

func (that *Game) Participant(playerID string) bool {
	return playerID != "" && (playerID == that.Player1ID || playerID == that.Player2ID)
}

// MarkOf returns EmptyCell for players outside the game.
func (that *Game) MarkOf(playerID string) Mark {
	switch playerID {
	case "":
		return EmptyCell
	case that.Player1ID:
		return MarkA
	case that.Player2ID:
		return MarkB
	default:
		return EmptyCell
	}
}

// TurnOwner returns the id of the player entitled to move, or "" outside active play.
func (that *Game) TurnOwner() string {
	switch that.State {
	case StatePlayer1Turn:
		return that.Player1ID
	case StatePlayer2Turn:
		return that.Player2ID
	default:
		return ""
	}
}
