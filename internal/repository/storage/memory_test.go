package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMemoryStorage(t *testing.T) {
	defer goleak.VerifyNone(t)

	runDocumentsContract(t, func(t *testing.T) (context.Context, Documents) {
		t.Helper()

		return context.Background(), NewMemoryStorage()
	})
}

func TestMemoryStorage_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStorage()

	// Given: a stored document
	doc := Document{"name": "Bob"}
	id, err := store.Create(ctx, "players", doc)
	require.NoError(t, err)

	// When: the caller mutates both its input and the returned copy
	doc["name"] = "Mallory"
	got, err := store.Get(ctx, "players", id)
	require.NoError(t, err)
	got["name"] = "Eve"

	// Then: the stored document is untouched
	stored, err := store.Get(ctx, "players", id)
	require.NoError(t, err)
	require.Equal(t, "Bob", stored["name"])
}
