package repository

import (
	"context"
	"log/slog"
	"os"
	"testing"

	"github.com/rocketscienceinc/tictactoe-sessions/internal/repository/storage"
	"github.com/rocketscienceinc/tictactoe-sessions/testing/suite"
)

// forEachBackend runs the test against the in-memory store and a disposable Redis.
func forEachBackend(t *testing.T, test func(t *testing.T, ctx context.Context, logger *slog.Logger, store storage.Documents)) {
	t.Helper()

	t.Run("memory", func(t *testing.T) {
		logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
		test(t, context.Background(), logger, storage.NewMemoryStorage())
	})

	t.Run("redis", func(t *testing.T) {
		ctx, st := suite.New(t)
		test(t, ctx, st.Logger, storage.WrapRedis(st.Logger, st.Storage))
	})
}
