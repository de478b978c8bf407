package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/rocketscienceinc/tictactoe-sessions/internal/entity"
	"github.com/rocketscienceinc/tictactoe-sessions/internal/pkg"
	"github.com/rocketscienceinc/tictactoe-sessions/internal/usecase"
)

const (
	sessionCookie   = "user_session"
	shutdownTimeout = 5 * time.Second
)

type sessionEngine interface {
	GetGame(ctx context.Context, id string) (*entity.Game, error)
	CreateInvite(ctx context.Context, fromPlayerID, toPlayerID string) (*entity.Game, error)
	RespondToInvite(ctx context.Context, gameID string, accept bool) (usecase.Outcome, error)
	ApplyMove(ctx context.Context, gameID, playerID string, cell int) (usecase.Outcome, error)
	Subscribe(ctx context.Context, onPlayers func(players map[string]entity.Player), onGames func(games map[string]entity.Game)) (*usecase.Subscription, error)
}

type identityResolver interface {
	Resolve(ctx context.Context, deviceID, name string) (*entity.Player, error)
}

type Server struct {
	logger     *slog.Logger
	engine     sessionEngine
	identities identityResolver
	upgrader   websocket.Upgrader

	handlers map[string]func(ctx context.Context, c *client, message *Message) error
}

func New(logger *slog.Logger, engine sessionEngine, identities identityResolver) *Server {
	server := &Server{
		logger:     logger.With("component", "websocket"),
		engine:     engine,
		identities: identities,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},

		handlers: make(map[string]func(context.Context, *client, *Message) error),
	}

	server.handlers[actionConnect] = server.handleConnect
	server.handlers[actionInviteCreate] = server.handleInviteCreate
	server.handlers[actionInviteRespond] = server.handleInviteRespond
	server.handlers[actionGameTurn] = server.handleGameTurn

	return server
}

// Handler serves /ws, connections live until ctx ends or the client leaves.
func (that *Server) Handler(ctx context.Context) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		that.upgradeToWebSocket(ctx, w, r)
	})

	return mux
}

// Start - starts WebSocket server.
func (that *Server) Start(ctx context.Context, port string) error {
	srv := &http.Server{
		Addr:        ":" + port,
		Handler:     that.Handler(ctx),
		ReadTimeout: 10 * time.Second,
		IdleTimeout: 30 * time.Second,
	}

	go func() {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			that.logger.Error("failed to shut down server", "error", err)
		}
	}()

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to start server: %w", err)
	}

	return nil
}

// upgradeToWebSocket - upgrades the connection to WebSocket.
func (that *Server) upgradeToWebSocket(ctx context.Context, writer http.ResponseWriter, req *http.Request) {
	log := that.logger.With("method", "upgradeConnection")

	deviceID, header := that.ensureSessionCookie(req, log)

	conn, err := that.upgrader.Upgrade(writer, req, header)
	if err != nil {
		log.Error("failed to upgrade connection", "error", err)
		return
	}

	c := &client{conn: conn, deviceID: deviceID}

	connCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	// unblock the read loop on shutdown
	stop := context.AfterFunc(connCtx, func() { _ = conn.Close() })
	defer stop()

	log.Info("WebSocket connection established", "deviceID", deviceID)

	that.handleMessages(connCtx, c)

	if err = c.closeSubscription(); err != nil {
		log.Error("failed to close subscription", "error", err)
	}

	_ = conn.Close()
}

// handleMessages - processes messages from the client until it disconnects.
func (that *Server) handleMessages(ctx context.Context, c *client) {
	log := that.logger.With("method", "handleMessages", "deviceID", c.deviceID)

	for {
		_, body, err := c.conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) && ctx.Err() == nil {
				log.Warn("connection closed", "error", err)
			}
			return
		}

		var message Message
		if err = json.Unmarshal(body, &message); err != nil {
			log.Warn("failed to unmarshal message", "error", err)
			that.reply(log, c, actionError, "malformed message")
			continue
		}

		handler, ok := that.handlers[message.Action]
		if !ok {
			log.Warn("unknown action", "action", message.Action)
			that.reply(log, c, message.Action, "unknown action")
			continue
		}

		if c.player == nil && message.Action != actionConnect {
			that.reply(log, c, message.Action, "connect first")
			continue
		}

		if err = handler(ctx, c, &message); err != nil {
			log.Error("error processing message", "action", message.Action, "error", err)
		}
	}
}

func (that *Server) reply(log *slog.Logger, c *client, action, reason string) {
	if err := c.sendError(action, reason); err != nil {
		log.Error("failed to send error", "error", err)
	}
}

// ensureSessionCookie - returns the device id, creating the user session when absent.
func (that *Server) ensureSessionCookie(req *http.Request, log *slog.Logger) (string, http.Header) {
	cookie, err := req.Cookie(sessionCookie)
	if err == nil && cookie.Value != "" {
		log.Debug("session cookie found", "cookie", cookie.Value)
		return cookie.Value, nil
	}

	cookie = &http.Cookie{
		Name:     sessionCookie,
		Value:    pkg.GenerateNewSessionID(),
		Expires:  time.Now().Add(365 * 24 * time.Hour),
		Path:     "/ws",
		HttpOnly: true,
	}

	log.Info("session cookie not found, new one created", "cookie", cookie.Value)

	header := http.Header{}
	header.Add("Set-Cookie", cookie.String())

	return cookie.Value, header
}
