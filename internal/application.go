package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"

	"github.com/rocketscienceinc/tictactoe-sessions/internal/config"
	"github.com/rocketscienceinc/tictactoe-sessions/internal/metrics"
	"github.com/rocketscienceinc/tictactoe-sessions/internal/repository"
	"github.com/rocketscienceinc/tictactoe-sessions/internal/repository/storage"
	"github.com/rocketscienceinc/tictactoe-sessions/internal/repository/storage/sqlite"
	"github.com/rocketscienceinc/tictactoe-sessions/internal/usecase"
	"github.com/rocketscienceinc/tictactoe-sessions/transport/rest"
	"github.com/rocketscienceinc/tictactoe-sessions/transport/websocket"
)

var ErrAddrNotFound = errors.New("redis address string is empty")

// RunApp - runs the application.
func RunApp(logger *slog.Logger, conf *config.Config) error {
	log := logger.With("component", "app")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigs
		log.Info("Received signal, shutting down", "signal", sig)
		cancel()
	}()

	store, closeStore, err := openStore(ctx, logger, conf)
	if err != nil {
		return err
	}

	defer func() {
		if err = closeStore(); err != nil {
			log.Error("could not close document store", "error", err)
		}
	}()

	identityStorage, err := sqlite.New(ctx, conf.SQLiteStoragePath)
	if err != nil {
		return fmt.Errorf("could not open identity storage: %w", err)
	}

	defer func() {
		if err = identityStorage.Close(); err != nil {
			log.Error("could not close identity storage", "error", err)
		}
	}()

	if err = identityStorage.Init(ctx); err != nil {
		return fmt.Errorf("could not init identity storage: %w", err)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	engine := usecase.NewSessionEngine(logger, metrics.New(reg),
		repository.NewPlayerRepository(logger, store),
		repository.NewGameRepository(logger, store),
	)
	identities := usecase.NewIdentityManager(logger, repository.NewIdentityRepository(identityStorage.Connection), engine)

	// run HTTP server
	httpErrCh := make(chan error, 1)
	go func() {
		log.Info("Starting HTTP server", "port", conf.HTTPPort)
		if httpErr := rest.New(logger, reg).Start(ctx, conf.HTTPPort); httpErr != nil {
			log.Error("HTTP server error", "error", httpErr)
			httpErrCh <- httpErr
		}
	}()

	// run Websocket server
	wsErrCh := make(chan error, 1)
	go func() {
		log.Info("Starting WebSocket server", "port", conf.SocketPort)
		wsServer := websocket.New(logger, engine, identities)
		if wsErr := wsServer.Start(ctx, conf.SocketPort); wsErr != nil {
			log.Error("WebSocket server error", "error", wsErr)
			wsErrCh <- wsErr
		}
	}()

	select {
	case err = <-httpErrCh:
		return fmt.Errorf("HTTP server error: %w", err)
	case err = <-wsErrCh:
		return fmt.Errorf("WebSocket server error: %w", err)
	case <-ctx.Done():
		log.Info("Application context canceled, shutting down")
		return nil
	}
}

// openStore picks the shared document store named by the config.
func openStore(ctx context.Context, logger *slog.Logger, conf *config.Config) (storage.Documents, func() error, error) {
	if conf.Store.Driver == config.StoreMemory {
		logger.Warn("using in-memory store, state is lost on restart")
		return storage.NewMemoryStorage(), func() error { return nil }, nil
	}

	redisAddrString := conf.Redis.GetRedisAddr()
	if conf.Redis.Host == "" {
		return nil, nil, ErrAddrNotFound
	}

	redisStorage, err := storage.NewRedisStorage(ctx, logger, &redis.Options{
		Addr:     redisAddrString,
		Password: conf.Redis.Password,
		DB:       conf.Redis.DB,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("could not connect to redis storage: %w", err)
	}

	return redisStorage, redisStorage.Close, nil
}
