package websocket

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rocketscienceinc/tictactoe-sessions/internal/entity"
	"github.com/rocketscienceinc/tictactoe-sessions/internal/metrics"
	"github.com/rocketscienceinc/tictactoe-sessions/internal/repository"
	"github.com/rocketscienceinc/tictactoe-sessions/internal/repository/storage"
	"github.com/rocketscienceinc/tictactoe-sessions/internal/repository/storage/sqlite"
	"github.com/rocketscienceinc/tictactoe-sessions/internal/usecase"
)

const readTimeout = 2 * time.Second

func newTestServer(t *testing.T) string {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	store := storage.NewMemoryStorage()

	db, err := sqlite.New(ctx, filepath.Join(t.TempDir(), "identity.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, db.Init(ctx))

	engine := usecase.NewSessionEngine(logger, metrics.New(prometheus.NewRegistry()),
		repository.NewPlayerRepository(logger, store),
		repository.NewGameRepository(logger, store),
	)
	identities := usecase.NewIdentityManager(logger, repository.NewIdentityRepository(db.Connection), engine)

	srv := httptest.NewServer(New(logger, engine, identities).Handler(ctx))
	t.Cleanup(srv.Close)

	return "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
}

func dial(t *testing.T, url, deviceID string) *websocket.Conn {
	t.Helper()

	header := http.Header{}
	if deviceID != "" {
		header.Set("Cookie", sessionCookie+"="+deviceID)
	}

	conn, resp, err := websocket.DefaultDialer.Dial(url, header)
	require.NoError(t, err)
	_ = resp.Body.Close()
	t.Cleanup(func() { _ = conn.Close() })

	return conn
}

func send(t *testing.T, conn *websocket.Conn, action string, payload any) {
	t.Helper()

	body, err := json.Marshal(payload)
	require.NoError(t, err)
	require.NoError(t, conn.WriteJSON(Message{Action: action, Payload: body}))
}

// readUntil skips messages until one with the action satisfies the condition.
func readUntil[T any](t *testing.T, conn *websocket.Conn, action string, condition func(payload T) bool) T {
	t.Helper()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(readTimeout)))

	for {
		var msg Message
		require.NoError(t, conn.ReadJSON(&msg))

		if msg.Action != action {
			continue
		}

		var payload T
		require.NoError(t, json.Unmarshal(msg.Payload, &payload))

		if condition(payload) {
			return payload
		}
	}
}

func reply(t *testing.T, conn *websocket.Conn, action string) ResponsePayload {
	t.Helper()

	return readUntil(t, conn, action, func(ResponsePayload) bool { return true })
}

func connect(t *testing.T, url, deviceID, name string) (*websocket.Conn, *entity.Player) {
	t.Helper()

	conn := dial(t, url, deviceID)
	send(t, conn, actionConnect, connectRequest{Name: name})

	resp := reply(t, conn, actionConnect)
	require.Empty(t, resp.Error)
	require.NotNil(t, resp.Player)

	return conn, resp.Player
}

func TestServer_Connect(t *testing.T) {
	url := newTestServer(t)

	t.Run("Same device keeps its player", func(t *testing.T) {
		// Given: a device that connected once
		first, player := connect(t, url, "device-a", "alice")
		require.NoError(t, first.Close())

		// When: it connects again without a name
		_, again := connect(t, url, "device-a", "")

		// Then: the same player is returned
		assert.Equal(t, player, again)
	})

	t.Run("New device needs a name", func(t *testing.T) {
		conn := dial(t, url, "device-b")
		send(t, conn, actionConnect, connectRequest{})

		resp := reply(t, conn, actionConnect)

		assert.Equal(t, "name is required", resp.Error)
		assert.Nil(t, resp.Player)
	})

	t.Run("Session cookie is issued when missing", func(t *testing.T) {
		conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
		require.NoError(t, err)
		defer conn.Close()
		defer resp.Body.Close()

		var found bool
		for _, cookie := range resp.Cookies() {
			if cookie.Name == sessionCookie && cookie.Value != "" {
				found = true
			}
		}
		assert.True(t, found)
	})

	t.Run("Actions require connect", func(t *testing.T) {
		conn := dial(t, url, "device-c")
		send(t, conn, actionGameTurn, turnRequest{GameID: "g1"})

		resp := reply(t, conn, actionGameTurn)

		assert.Equal(t, "connect first", resp.Error)
	})

	t.Run("Unknown actions are answered", func(t *testing.T) {
		conn, _ := connect(t, url, "device-d", "dave")
		send(t, conn, "game:leave", struct{}{})

		resp := reply(t, conn, "game:leave")

		assert.Equal(t, "unknown action", resp.Error)
	})
}

func TestServer_GameFlow(t *testing.T) {
	url := newTestServer(t)

	alice, _ := connect(t, url, "device-alice", "alice")
	bob, bobPlayer := connect(t, url, "device-bob", "bob")

	// Then: alice sees bob in the lobby
	readUntil(t, alice, actionPlayersChanged, func(payload PlayersPayload) bool {
		_, ok := payload.Players[bobPlayer.ID]
		return ok
	})

	// When: alice invites bob
	send(t, alice, actionInviteCreate, inviteCreateRequest{To: bobPlayer.ID})
	invite := reply(t, alice, actionInviteCreate)
	require.Empty(t, invite.Error)
	require.NotNil(t, invite.Game)
	assert.Equal(t, entity.StateInvite, invite.Game.State)

	// Then: bob is told about the invite
	readUntil(t, bob, actionGamesChanged, func(payload GamesPayload) bool {
		return len(payload.Games) == 1 && payload.Games[0].IsInvite()
	})

	// When: alice tries to accept her own invite
	send(t, alice, actionInviteRespond, inviteRespondRequest{GameID: invite.Game.ID, Accept: true})
	assert.Equal(t, "not your invite", reply(t, alice, actionInviteRespond).Error)

	// When: bob accepts
	send(t, bob, actionInviteRespond, inviteRespondRequest{GameID: invite.Game.ID, Accept: true})
	accepted := reply(t, bob, actionInviteRespond)
	require.NotNil(t, accepted.Game)
	assert.Equal(t, entity.StatePlayer1Turn, accepted.Game.State)

	// When: bob moves out of turn
	cell := 4
	send(t, bob, actionGameTurn, turnRequest{GameID: invite.Game.ID, Cell: &cell})
	rejected := reply(t, bob, actionGameTurn)

	// Then: the unchanged game comes back without an error
	assert.Empty(t, rejected.Error)
	require.NotNil(t, rejected.Game)
	assert.Equal(t, entity.Board{}, rejected.Game.Board)

	// When: alice plays the center
	send(t, alice, actionGameTurn, turnRequest{GameID: invite.Game.ID, Cell: &cell})
	moved := reply(t, alice, actionGameTurn)
	require.NotNil(t, moved.Game)
	assert.Equal(t, entity.StatePlayer2Turn, moved.Game.State)

	// Then: bob's view follows
	readUntil(t, bob, actionGamesChanged, func(payload GamesPayload) bool {
		return len(payload.Games) == 1 && payload.Games[0].Board[4] == entity.MarkA
	})

}

func TestServer_MalformedPayload(t *testing.T) {
	url := newTestServer(t)
	conn, _ := connect(t, url, "device-e", "eve")

	require.NoError(t, conn.WriteJSON(Message{Action: actionGameTurn, Payload: json.RawMessage(`{"cell":"x"}`)}))

	resp := reply(t, conn, actionGameTurn)

	assert.Contains(t, resp.Error, errInvalidPayload.Error())
}
