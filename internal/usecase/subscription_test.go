package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/rocketscienceinc/tictactoe-sessions/internal/entity"
	"github.com/rocketscienceinc/tictactoe-sessions/internal/metrics"
	mockedUseCase "github.com/rocketscienceinc/tictactoe-sessions/mocks/usecase"
)

const waitTimeout = 2 * time.Second

// waitForSnapshot reads snapshots until one satisfies the condition.
func waitForSnapshot(t *testing.T, snapshots <-chan entity.Snapshot, condition func(snapshot entity.Snapshot) bool) entity.Snapshot {
	t.Helper()

	timeout := time.After(waitTimeout)
	for {
		select {
		case snapshot, ok := <-snapshots:
			require.True(t, ok, "snapshot channel closed")
			if condition(snapshot) {
				return snapshot
			}
		case <-timeout:
			require.FailNow(t, "no matching snapshot")
		}
	}
}

func TestSessionEngine_Subscribe(t *testing.T) {
	defer goleak.VerifyNone(t)

	ctx := context.Background()

	t.Run("Callbacks receive both collections", func(t *testing.T) {
		engine, m := newTestEngine(t)

		alice, err := engine.RegisterPlayer(ctx, "alice")
		require.NoError(t, err)

		players := make(chan map[string]entity.Player, 16)
		games := make(chan map[string]entity.Game, 16)

		// When: subscribing
		sub, err := engine.Subscribe(ctx,
			func(p map[string]entity.Player) { players <- p },
			func(g map[string]entity.Game) { games <- g },
		)
		require.NoError(t, err)
		assert.InDelta(t, 1, testutil.ToFloat64(m.ActiveSubscriptions), 0)

		// Then: the current content is delivered first
		select {
		case p := <-players:
			assert.Equal(t, map[string]entity.Player{alice.ID: *alice}, p)
		case <-time.After(waitTimeout):
			require.FailNow(t, "players were not delivered")
		}

		select {
		case g := <-games:
			assert.Empty(t, g)
		case <-time.After(waitTimeout):
			require.FailNow(t, "games were not delivered")
		}

		// When: closing
		require.NoError(t, sub.Close())

		// Then: the gauge drops back
		<-sub.Done()
		assert.InDelta(t, 0, testutil.ToFloat64(m.ActiveSubscriptions), 0)
	})

	t.Run("Failed game feed releases the player feed", func(t *testing.T) {
		engine, _ := newTestEngine(t)

		mockGameRepo := mockedUseCase.NewMockgameRepo(t)
		mockGameRepo.EXPECT().Subscribe(mock.Anything, mock.Anything).Return(nil, errRedisDown).Once()

		broken := NewSessionEngine(newTestLogger(), metrics.New(prometheus.NewRegistry()), engine.playerRepo, mockGameRepo)

		// When: the second subscription fails
		sub, err := broken.Subscribe(ctx, func(map[string]entity.Player) {}, func(map[string]entity.Game) {})

		// Then: the error is returned and no goroutine is left behind
		require.ErrorIs(t, err, errRedisDown)
		assert.Nil(t, sub)
	})
}

func TestSessionEngine_Snapshots(t *testing.T) {
	defer goleak.VerifyNone(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	engine, _ := newTestEngine(t)

	alice, err := engine.RegisterPlayer(ctx, "alice")
	require.NoError(t, err)

	// Given: a running snapshot feed
	snapshots, sub, err := engine.Snapshots(ctx)
	require.NoError(t, err)

	first := waitForSnapshot(t, snapshots, func(entity.Snapshot) bool { return true })
	assert.Equal(t, "alice", first.PlayerName(alice.ID))
	assert.Empty(t, first.Games())

	// When: another player joins and invites alice
	bob, err := engine.RegisterPlayer(ctx, "bob")
	require.NoError(t, err)

	invite, err := engine.CreateInvite(ctx, bob.ID, alice.ID)
	require.NoError(t, err)

	// Then: the invite shows up for alice
	latest := waitForSnapshot(t, snapshots, func(snapshot entity.Snapshot) bool {
		return len(snapshot.InvitesFor(alice.ID)) == 1 && len(snapshot.OtherPlayers(alice.ID)) == 1
	})
	assert.Equal(t, invite.ID, latest.InvitesFor(alice.ID)[0].ID)
	assert.Equal(t, []entity.Player{*bob}, latest.OtherPlayers(alice.ID))

	// When: the context ends
	cancel()

	// Then: the channel is closed once the feeds stopped
	select {
	case <-sub.Done():
	case <-time.After(waitTimeout):
		require.FailNow(t, "subscription did not stop")
	}

	for range snapshots {
	}
}
