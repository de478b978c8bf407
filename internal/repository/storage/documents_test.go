package storage

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const waitTimeout = 5 * time.Second

// runDocumentsContract checks the behaviour every Documents backend must share.
func runDocumentsContract(t *testing.T, newStore func(t *testing.T) (context.Context, Documents)) {
	t.Run("Create_Get", func(t *testing.T) {
		ctx, store := newStore(t)

		// Given: a stored document
		id, err := store.Create(ctx, "players", Document{"name": "Bob"})
		require.NoError(t, err)
		require.NotEmpty(t, id)

		// When: reading it back
		doc, err := store.Get(ctx, "players", id)

		// Then: the fields are intact
		require.NoError(t, err)
		assert.Equal(t, Document{"name": "Bob"}, doc)
	})

	t.Run("Create_EmptyDocument", func(t *testing.T) {
		ctx, store := newStore(t)

		_, err := store.Create(ctx, "players", Document{})

		require.ErrorIs(t, err, ErrEmptyDocument)
	})

	t.Run("Get_NotFound", func(t *testing.T) {
		ctx, store := newStore(t)

		_, err := store.Get(ctx, "players", "9999999")

		require.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("List", func(t *testing.T) {
		ctx, store := newStore(t)

		// Given: two documents in one collection and one in another
		id1, err := store.Create(ctx, "games", Document{"state": "invite"})
		require.NoError(t, err)
		id2, err := store.Create(ctx, "games", Document{"state": "draw"})
		require.NoError(t, err)
		_, err = store.Create(ctx, "players", Document{"name": "Bob"})
		require.NoError(t, err)

		// When: listing the games
		docs, err := store.List(ctx, "games")

		// Then: only games are returned, keyed by id
		require.NoError(t, err)
		assert.Equal(t, map[string]Document{
			id1: {"state": "invite"},
			id2: {"state": "draw"},
		}, docs)
	})

	t.Run("Update_MergesFields", func(t *testing.T) {
		ctx, store := newStore(t)

		id, err := store.Create(ctx, "games", Document{"state": "invite", "player1_id": "p1"})
		require.NoError(t, err)

		// When: updating one field
		err = store.Update(ctx, "games", id, Document{"state": "player1_turn"})
		require.NoError(t, err)

		// Then: the other fields are kept
		doc, err := store.Get(ctx, "games", id)
		require.NoError(t, err)
		assert.Equal(t, Document{"state": "player1_turn", "player1_id": "p1"}, doc)
	})

	t.Run("Update_NotFound", func(t *testing.T) {
		ctx, store := newStore(t)

		err := store.Update(ctx, "games", "9999999", Document{"state": "draw"})

		require.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("UpdateIf_Conflict", func(t *testing.T) {
		ctx, store := newStore(t)

		// Given: a document that moved on since it was read
		id, err := store.Create(ctx, "games", Document{"board": "000000000", "state": "player1_turn"})
		require.NoError(t, err)
		require.NoError(t, store.Update(ctx, "games", id, Document{"board": "100000000", "state": "player2_turn"}))

		// When: writing against the stale copy
		err = store.UpdateIf(ctx, "games", id,
			Document{"board": "000000000", "state": "player1_turn"},
			Document{"board": "000010000", "state": "player2_turn"})

		// Then: the write is refused and the newer content stays
		require.ErrorIs(t, err, ErrConflict)

		doc, err := store.Get(ctx, "games", id)
		require.NoError(t, err)
		assert.Equal(t, "100000000", doc["board"])
	})

	t.Run("UpdateIf_Matches", func(t *testing.T) {
		ctx, store := newStore(t)

		id, err := store.Create(ctx, "games", Document{"board": "000000000", "state": "player1_turn"})
		require.NoError(t, err)

		err = store.UpdateIf(ctx, "games", id,
			Document{"board": "000000000", "state": "player1_turn"},
			Document{"board": "100000000", "state": "player2_turn"})
		require.NoError(t, err)

		doc, err := store.Get(ctx, "games", id)
		require.NoError(t, err)
		assert.Equal(t, Document{"board": "100000000", "state": "player2_turn"}, doc)
	})

	t.Run("UpdateIf_OnlyOneRacerWins", func(t *testing.T) {
		ctx, store := newStore(t)

		id, err := store.Create(ctx, "games", Document{"board": "000000000", "state": "player1_turn"})
		require.NoError(t, err)

		// When: several writers race against the same snapshot
		const racers = 8
		results := make([]error, racers)

		var wg sync.WaitGroup
		for i := range racers {
			wg.Add(1)
			go func() {
				defer wg.Done()
				results[i] = store.UpdateIf(ctx, "games", id,
					Document{"board": "000000000"},
					Document{"board": "100000000", "state": "player2_turn"})
			}()
		}
		wg.Wait()

		// Then: exactly one write lands and the rest conflict
		wins := 0
		for _, err := range results {
			if err == nil {
				wins++
				continue
			}
			require.ErrorIs(t, err, ErrConflict)
		}
		assert.Equal(t, 1, wins)
	})

	t.Run("DeleteIf", func(t *testing.T) {
		ctx, store := newStore(t)

		id, err := store.Create(ctx, "games", Document{"state": "player1_turn"})
		require.NoError(t, err)

		// When: the guard does not match
		err = store.DeleteIf(ctx, "games", id, Document{"state": "invite"})

		// Then: the document survives
		require.ErrorIs(t, err, ErrConflict)
		_, err = store.Get(ctx, "games", id)
		require.NoError(t, err)

		// When: the guard matches
		err = store.DeleteIf(ctx, "games", id, Document{"state": "player1_turn"})
		require.NoError(t, err)

		// Then: it is gone from Get and List
		_, err = store.Get(ctx, "games", id)
		require.ErrorIs(t, err, ErrNotFound)

		docs, err := store.List(ctx, "games")
		require.NoError(t, err)
		assert.Empty(t, docs)
	})

	t.Run("Delete_NotFound", func(t *testing.T) {
		ctx, store := newStore(t)

		err := store.Delete(ctx, "games", "9999999")

		require.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("Subscribe", func(t *testing.T) {
		ctx, store := newStore(t)

		// Given: one document before subscribing
		first, err := store.Create(ctx, "players", Document{"name": "Bob"})
		require.NoError(t, err)

		snapshots := make(chan map[string]Document, 16)
		sub, err := store.Subscribe(ctx, "players", func(docs map[string]Document) {
			snapshots <- docs
		})
		require.NoError(t, err)

		// Then: the current content is delivered first
		initial := nextSnapshot(t, snapshots)
		assert.Equal(t, map[string]Document{first: {"name": "Bob"}}, initial)

		// When: the collection changes
		second, err := store.Create(ctx, "players", Document{"name": "Alice"})
		require.NoError(t, err)
		require.NoError(t, store.Delete(ctx, "players", first))

		// Then: a later snapshot shows the latest content
		waitForSnapshot(t, snapshots, func(docs map[string]Document) bool {
			_, hasFirst := docs[first]
			_, hasSecond := docs[second]
			return !hasFirst && hasSecond
		})

		// And: changes to other collections are not delivered
		_, err = store.Create(ctx, "games", Document{"state": "invite"})
		require.NoError(t, err)

		// When: the subscription is closed
		require.NoError(t, sub.Close())

		// Then: the feed has stopped
		select {
		case <-sub.Done():
		default:
			t.Fatal("subscription still running after Close")
		}
	})

	t.Run("Subscribe_StopsWithContext", func(t *testing.T) {
		ctx, store := newStore(t)
		subCtx, cancel := context.WithCancel(ctx)

		sub, err := store.Subscribe(subCtx, "players", func(map[string]Document) {})
		require.NoError(t, err)

		// When: the context ends
		cancel()

		// Then: the feed stops on its own
		select {
		case <-sub.Done():
		case <-time.After(waitTimeout):
			t.Fatal("subscription did not stop")
		}
		require.NoError(t, sub.Close())
	})
}

func nextSnapshot(t *testing.T, snapshots <-chan map[string]Document) map[string]Document {
	t.Helper()

	select {
	case docs := <-snapshots:
		return docs
	case <-time.After(waitTimeout):
		t.Fatal("no snapshot delivered")
		return nil
	}
}

func waitForSnapshot(t *testing.T, snapshots <-chan map[string]Document, done func(docs map[string]Document) bool) {
	t.Helper()

	deadline := time.After(waitTimeout)
	for {
		select {
		case docs := <-snapshots:
			if done(docs) {
				return
			}
		case <-deadline:
			t.Fatal(errors.New("expected snapshot never arrived"))
		}
	}
}
