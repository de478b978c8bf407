package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/rocketscienceinc/tictactoe-sessions/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-sessions/internal/entity"
)

// handleConnect binds the device to its player and starts the pushes.
func (that *Server) handleConnect(ctx context.Context, c *client, msg *Message) error {
	log := that.logger.With("method", "handleConnect", "deviceID", c.deviceID)

	var req connectRequest
	if err := decode(msg, &req); err != nil {
		return c.sendError(msg.Action, err.Error())
	}

	player, err := that.identities.Resolve(ctx, c.deviceID, req.Name)
	if errors.Is(err, apperror.ErrInvalidPlayerName) {
		return c.sendError(msg.Action, "name is required")
	}

	if err != nil {
		log.Error("failed to resolve player", "error", err)
		return c.sendError(msg.Action, "failed to connect player")
	}

	if err = c.closeSubscription(); err != nil {
		log.Warn("failed to close previous subscription", "error", err)
	}

	c.player = player

	if err = c.send(msg.Action, ResponsePayload{Player: player}); err != nil {
		return fmt.Errorf("failed to send response: %w", err)
	}

	sub, err := that.engine.Subscribe(ctx,
		func(players map[string]entity.Player) {
			that.push(log, c, actionPlayersChanged, PlayersPayload{Players: players})
		},
		func(games map[string]entity.Game) {
			own := entity.NewSnapshot(nil, games).GamesFor(player.ID)
			that.push(log, c, actionGamesChanged, GamesPayload{Games: own})
		},
	)
	if err != nil {
		log.Error("failed to subscribe", "error", err)
		return c.sendError(msg.Action, "failed to subscribe")
	}

	c.sub = sub

	log.Info("successfully connected player", "playerID", player.ID)

	return nil
}

func (that *Server) push(log *slog.Logger, c *client, action string, payload any) {
	if err := c.send(action, payload); err != nil {
		log.Warn("failed to push update", "action", action, "error", err)
	}
}

func (that *Server) handleInviteCreate(ctx context.Context, c *client, msg *Message) error {
	log := that.logger.With("method", "handleInviteCreate", "playerID", c.player.ID)

	var req inviteCreateRequest
	if err := decode(msg, &req); err != nil {
		return c.sendError(msg.Action, err.Error())
	}

	game, err := that.engine.CreateInvite(ctx, c.player.ID, req.To)
	switch {
	case errors.Is(err, apperror.ErrSelfInvite), errors.Is(err, apperror.ErrPlayerNotFound):
		return c.sendError(msg.Action, err.Error())
	case err != nil:
		log.Error("failed to create invite", "error", err)
		return c.sendError(msg.Action, "failed to create invite")
	}

	return c.send(msg.Action, ResponsePayload{Player: c.player, Game: game})
}

// handleInviteRespond lets the invitee accept and either participant drop the invite.
func (that *Server) handleInviteRespond(ctx context.Context, c *client, msg *Message) error {
	log := that.logger.With("method", "handleInviteRespond", "playerID", c.player.ID)

	var req inviteRespondRequest
	if err := decode(msg, &req); err != nil {
		return c.sendError(msg.Action, err.Error())
	}

	game, err := that.engine.GetGame(ctx, req.GameID)
	if errors.Is(err, apperror.ErrGameNotFound) {
		return c.send(msg.Action, ResponsePayload{Player: c.player})
	}

	if err != nil {
		log.Error("failed to get game", "error", err)
		return c.sendError(msg.Action, "failed to respond to invite")
	}

	allowed := game.Player2ID == c.player.ID || (!req.Accept && game.Participant(c.player.ID))
	if !allowed {
		return c.sendError(msg.Action, "not your invite")
	}

	outcome, err := that.engine.RespondToInvite(ctx, req.GameID, req.Accept)
	if err != nil {
		log.Error("failed to respond to invite", "error", err)
		return c.sendError(msg.Action, "failed to respond to invite")
	}

	return c.send(msg.Action, ResponsePayload{Player: c.player, Game: outcome.Game})
}

// handleGameTurn replies with the stored game, rejected moves leave it unchanged.
func (that *Server) handleGameTurn(ctx context.Context, c *client, msg *Message) error {
	log := that.logger.With("method", "handleGameTurn", "playerID", c.player.ID)

	var req turnRequest
	if err := decode(msg, &req); err != nil {
		return c.sendError(msg.Action, err.Error())
	}

	if req.Cell == nil {
		return c.sendError(msg.Action, "cell is required")
	}

	outcome, err := that.engine.ApplyMove(ctx, req.GameID, c.player.ID, *req.Cell)
	if err != nil {
		log.Error("failed to make turn", "gameID", req.GameID, "error", err)
		return c.sendError(msg.Action, "failed to make turn")
	}

	return c.send(msg.Action, ResponsePayload{Player: c.player, Game: outcome.Game})
}

var errInvalidPayload = errors.New("invalid payload")

func decode(msg *Message, target any) error {
	if len(msg.Payload) == 0 {
		return nil
	}

	if err := json.Unmarshal(msg.Payload, target); err != nil {
		return fmt.Errorf("%w: %w", errInvalidPayload, err)
	}

	return nil
}
