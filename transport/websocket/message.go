package websocket

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/rocketscienceinc/tictactoe-sessions/internal/entity"
	"github.com/rocketscienceinc/tictactoe-sessions/internal/usecase"
)

const (
	actionConnect        = "connect"
	actionInviteCreate   = "invite:create"
	actionInviteRespond  = "invite:respond"
	actionGameTurn       = "game:turn"
	actionPlayersChanged = "players:changed"
	actionGamesChanged   = "games:changed"
	actionError          = "error"
)

// Message represents a WebSocket message with an action type and a payload.
type Message struct {
	Action  string          `json:"action"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

type ResponsePayload struct {
	Player *entity.Player `json:"player,omitempty"`
	Game   *entity.Game   `json:"game,omitempty"`
	Error  string         `json:"error,omitempty"`
}

type PlayersPayload struct {
	Players map[string]entity.Player `json:"players"`
}

type GamesPayload struct {
	Games []entity.Game `json:"games"`
}

type connectRequest struct {
	Name string `json:"name"`
}

type inviteCreateRequest struct {
	To string `json:"to"`
}

type inviteRespondRequest struct {
	GameID string `json:"game_id"`
	Accept bool   `json:"accept"`
}

type turnRequest struct {
	GameID string `json:"game_id"`
	Cell   *int   `json:"cell"`
}

// client is one websocket connection and the player bound to it.
type client struct {
	conn     *websocket.Conn
	deviceID string

	writeMu sync.Mutex

	// owned by the read loop
	player *entity.Player
	sub    *usecase.Subscription
}

// send writes one message, gorilla connections allow a single concurrent writer.
func (that *client) send(action string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	that.writeMu.Lock()
	defer that.writeMu.Unlock()

	if err = that.conn.WriteJSON(Message{Action: action, Payload: body}); err != nil {
		return fmt.Errorf("failed to write message: %w", err)
	}

	return nil
}

func (that *client) sendError(action, reason string) error {
	return that.send(action, ResponsePayload{Error: reason})
}

// closeSubscription stops the pushes of the previous connect.
func (that *client) closeSubscription() error {
	if that.sub == nil {
		return nil
	}

	err := that.sub.Close()
	that.sub = nil

	return err
}
