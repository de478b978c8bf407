package suite

import (
	"context"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/ory/dockertest/v3"
	"github.com/ory/dockertest/v3/docker"
	"github.com/redis/go-redis/v9"
)

const (
	expireDuration  = 120
	maxWaitDuration = 120 * time.Second
)

const (
	redisPort  = "6379/tcp"
	redisImage = "redis"
	redisTag   = "alpine"

	// redisAddrEnv points the suite at an already running Redis instead of a container.
	redisAddrEnv = "TEST_REDIS_ADDR"
)

type Suite struct {
	*testing.T
	Logger *slog.Logger

	Storage *redis.Client
}

// New returns a client connected to an empty Redis: the one named by TEST_REDIS_ADDR,
// or a disposable container otherwise.
func New(t *testing.T) (context.Context, *Suite) {
	t.Helper()

	if testing.Short() {
		t.Skip("redis tests are skipped in short mode")
	}

	ctx, cancel := context.WithTimeout(context.Background(), maxWaitDuration)
	t.Cleanup(cancel)

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	addr, ok := os.LookupEnv(redisAddrEnv)
	if !ok {
		addr = startRedis(t)
	}

	client := redis.NewClient(&redis.Options{Addr: addr})
	t.Cleanup(func() { _ = client.Close() })

	st := &Suite{
		T:       t,
		Logger:  logger,
		Storage: client,
	}
	st.Flush(ctx)

	return ctx, st
}

// Flush empties the database between cases sharing one Redis.
func (that *Suite) Flush(ctx context.Context) {
	that.Helper()

	if err := that.Storage.FlushDB(ctx).Err(); err != nil {
		that.Fatalf("could not flush database: %v", err)
	}
}

// startRedis runs a Redis container for the test and returns its address once it answers.
func startRedis(t *testing.T) string {
	t.Helper()

	pool, err := dockertest.NewPool("")
	if err != nil {
		t.Fatalf("could not connect to docker: %v", err)
	}

	resource, err := pool.RunWithOptions(&dockertest.RunOptions{
		Repository: redisImage,
		Tag:        redisTag,
	}, func(config *docker.HostConfig) {
		config.AutoRemove = true
		config.RestartPolicy = docker.RestartPolicy{Name: "no"}
	})
	if err != nil {
		t.Fatalf("could not start resource: %v", err)
	}

	t.Cleanup(func() {
		if err := pool.Purge(resource); err != nil {
			t.Errorf("could not purge resource: %v", err)
		}
	})

	// hard kill if the cleanup never runs
	_ = resource.Expire(expireDuration)

	addr := resource.GetHostPort(redisPort)
	pool.MaxWait = maxWaitDuration

	if err = pool.Retry(func() error {
		probe := redis.NewClient(&redis.Options{Addr: addr})
		defer probe.Close()

		return probe.Ping(context.Background()).Err()
	}); err != nil {
		t.Fatalf("could not connect to redis: %v", err)
	}

	return addr
}
