package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rocketscienceinc/tictactoe-sessions/internal/entity"
	"github.com/rocketscienceinc/tictactoe-sessions/internal/repository/storage"
)

// Subscription joins the player and game feeds of one client.
type Subscription struct {
	feeds []*storage.Subscription
	done  chan struct{}
}

// Done is closed once both feeds have stopped.
func (that *Subscription) Done() <-chan struct{} {
	return that.done
}

// Close stops both feeds and waits for their goroutines to exit.
func (that *Subscription) Close() error {
	var errs []error
	for _, feed := range that.feeds {
		errs = append(errs, feed.Close())
	}

	<-that.done

	return errors.Join(errs...)
}

// Subscribe pushes the full player set and the full game set to the callbacks on every change.
// Each callback receives freshly allocated maps and is never called concurrently with itself.
func (that *SessionEngine) Subscribe(ctx context.Context, onPlayers func(players map[string]entity.Player), onGames func(games map[string]entity.Game)) (*Subscription, error) {
	players, err := that.playerRepo.Subscribe(ctx, onPlayers)
	if err != nil {
		return nil, fmt.Errorf("could not subscribe: %w", err)
	}

	games, err := that.gameRepo.Subscribe(ctx, onGames)
	if err != nil {
		_ = players.Close()
		return nil, fmt.Errorf("could not subscribe: %w", err)
	}

	sub := &Subscription{
		feeds: []*storage.Subscription{players, games},
		done:  make(chan struct{}),
	}

	that.metrics.ActiveSubscriptions.Inc()

	go func() {
		<-players.Done()
		<-games.Done()

		that.metrics.ActiveSubscriptions.Dec()
		close(sub.done)
	}()

	return sub, nil
}

// Snapshots merges both feeds into immutable snapshots.
// The channel holds only the latest snapshot: a slow reader skips intermediate ones.
// The first snapshot is sent once both collections have been delivered,
// and the channel is closed when the subscription stops.
func (that *SessionEngine) Snapshots(ctx context.Context) (<-chan entity.Snapshot, *Subscription, error) {
	out := make(chan entity.Snapshot, 1)

	var (
		mu          sync.Mutex
		current     entity.Snapshot
		havePlayers bool
		haveGames   bool
	)

	publish := func(update func()) {
		mu.Lock()
		defer mu.Unlock()

		update()
		if !havePlayers || !haveGames {
			return
		}

		select {
		case <-out:
		default:
		}
		out <- current
	}

	sub, err := that.Subscribe(ctx,
		func(players map[string]entity.Player) {
			publish(func() {
				current = current.WithPlayers(players)
				havePlayers = true
			})
		},
		func(games map[string]entity.Game) {
			publish(func() {
				current = current.WithGames(games)
				haveGames = true
			})
		},
	)
	if err != nil {
		return nil, nil, err
	}

	go func() {
		<-sub.Done()
		close(out)
	}()

	return out, sub, nil
}
