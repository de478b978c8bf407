package entity

import (
	"maps"
	"slices"
	"strings"
)

const UnknownPlayerName = "Unknown?"

// Snapshot is an immutable view of both collections at one point in time.
// Callers pass the latest snapshot into the queries instead of sharing live maps.
type Snapshot struct {
	players map[string]Player
	games   map[string]Game
}

// NewSnapshot copies the given maps.
func NewSnapshot(players map[string]Player, games map[string]Game) Snapshot {
	return Snapshot{
		players: maps.Clone(players),
		games:   maps.Clone(games),
	}
}

// WithPlayers returns a copy of the snapshot with the player set replaced.
func (that Snapshot) WithPlayers(players map[string]Player) Snapshot {
	return Snapshot{players: maps.Clone(players), games: that.games}
}

// WithGames returns a copy of the snapshot with the game set replaced.
func (that Snapshot) WithGames(games map[string]Game) Snapshot {
	return Snapshot{players: that.players, games: maps.Clone(games)}
}

func (that Snapshot) Players() map[string]Player {
	return maps.Clone(that.players)
}

func (that Snapshot) Games() map[string]Game {
	return maps.Clone(that.games)
}

func (that Snapshot) Player(id string) (Player, bool) {
	player, ok := that.players[id]
	return player, ok
}

func (that Snapshot) PlayerName(id string) string {
	if player, ok := that.players[id]; ok {
		return player.Name
	}

	return UnknownPlayerName
}

func (that Snapshot) Game(id string) (Game, bool) {
	game, ok := that.games[id]
	return game, ok
}

// OtherPlayers lists everyone except self, ordered by name and then id.
func (that Snapshot) OtherPlayers(self string) []Player {
	others := make([]Player, 0, len(that.players))
	for id, player := range that.players {
		if id != self {
			others = append(others, player)
		}
	}

	slices.SortFunc(others, func(a, b Player) int {
		if c := strings.Compare(a.Name, b.Name); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})

	return others
}

// GamesFor lists every game the player takes part in, ordered by id.
func (that Snapshot) GamesFor(playerID string) []Game {
	return that.filterGames(func(game *Game) bool {
		return game.Participant(playerID)
	})
}

// InvitesFor lists the pending invites addressed to the player.
func (that Snapshot) InvitesFor(playerID string) []Game {
	return that.filterGames(func(game *Game) bool {
		return game.IsInvite() && game.Player2ID == playerID
	})
}

// PendingInvite finds an open invite sent from one player to another.
// Several may exist, the one with the smallest id wins.
func (that Snapshot) PendingInvite(fromPlayerID, toPlayerID string) (Game, bool) {
	invites := that.filterGames(func(game *Game) bool {
		return game.IsInvite() && game.Player1ID == fromPlayerID && game.Player2ID == toPlayerID
	})
	if len(invites) == 0 {
		return Game{}, false
	}

	return invites[0], true
}

// ActiveGameFor finds a game in play that involves the player.
func (that Snapshot) ActiveGameFor(playerID string) (Game, bool) {
	active := that.filterGames(func(game *Game) bool {
		return game.IsActive() && game.Participant(playerID)
	})
	if len(active) == 0 {
		return Game{}, false
	}

	return active[0], true
}

func (that Snapshot) filterGames(keep func(game *Game) bool) []Game {
	var result []Game
	for _, game := range that.games {
		if keep(&game) {
			result = append(result, game)
		}
	}

	slices.SortFunc(result, func(a, b Game) int {
		return strings.Compare(a.ID, b.ID)
	})

	return result
}
