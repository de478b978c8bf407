package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

var ErrEmptyDocument = errors.New("document has no fields")

// RedisStorage keeps every document as a hash at "<collection>:<id>" and the ids of a
// collection in the set "<collection>". Committed writes publish the id on "<collection>:changed".
type RedisStorage struct {
	Connection *redis.Client
	logger     *slog.Logger
}

func NewRedisStorage(ctx context.Context, logger *slog.Logger, opts *redis.Options) (*RedisStorage, error) {
	conn := redis.NewClient(opts)

	_, err := conn.Ping(ctx).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return WrapRedis(logger, conn), nil
}

// WrapRedis builds the storage on top of an already connected client.
func WrapRedis(logger *slog.Logger, conn *redis.Client) *RedisStorage {
	return &RedisStorage{
		Connection: conn,
		logger:     logger.With("component", "redis-storage"),
	}
}

func (that *RedisStorage) Close() error {
	return that.Connection.Close()
}

func docKey(collection, id string) string {
	return collection + ":" + id
}

func changesChannel(collection string) string {
	return collection + ":changed"
}

func fieldArgs(doc Document) []string {
	args := make([]string, 0, len(doc)*2)
	for field, value := range doc {
		args = append(args, field, value)
	}

	return args
}

func (that *RedisStorage) Create(ctx context.Context, collection string, doc Document) (string, error) {
	if len(doc) == 0 {
		return "", ErrEmptyDocument
	}

	id := uuid.NewString()

	_, err := that.Connection.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, docKey(collection, id), fieldArgs(doc))
		pipe.SAdd(ctx, collection, id)
		pipe.Publish(ctx, changesChannel(collection), id)
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("failed to create document in %s: %w", collection, err)
	}

	return id, nil
}

func (that *RedisStorage) Get(ctx context.Context, collection, id string) (Document, error) {
	fields, err := that.Connection.HGetAll(ctx, docKey(collection, id)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get document %s: %w", id, err)
	}

	if len(fields) == 0 {
		return nil, ErrNotFound
	}

	return fields, nil
}

func (that *RedisStorage) List(ctx context.Context, collection string) (map[string]Document, error) {
	ids, err := that.Connection.SMembers(ctx, collection).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", collection, err)
	}

	cmds := make([]*redis.MapStringStringCmd, len(ids))
	_, err = that.Connection.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for i, id := range ids {
			cmds[i] = pipe.HGetAll(ctx, docKey(collection, id))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", collection, err)
	}

	docs := make(map[string]Document, len(ids))
	for i, id := range ids {
		fields := cmds[i].Val()
		// deleted between SMEMBERS and HGETALL
		if len(fields) == 0 {
			continue
		}
		docs[id] = fields
	}

	return docs, nil
}

func (that *RedisStorage) Update(ctx context.Context, collection, id string, delta Document) error {
	return that.UpdateIf(ctx, collection, id, nil, delta)
}

func (that *RedisStorage) UpdateIf(ctx context.Context, collection, id string, expect, delta Document) error {
	if len(delta) == 0 {
		return nil
	}

	key := docKey(collection, id)

	return that.guarded(ctx, key, expect, func(pipe redis.Pipeliner) {
		pipe.HSet(ctx, key, fieldArgs(delta))
		pipe.Publish(ctx, changesChannel(collection), id)
	})
}

func (that *RedisStorage) Delete(ctx context.Context, collection, id string) error {
	return that.DeleteIf(ctx, collection, id, nil)
}

func (that *RedisStorage) DeleteIf(ctx context.Context, collection, id string, expect Document) error {
	key := docKey(collection, id)

	return that.guarded(ctx, key, expect, func(pipe redis.Pipeliner) {
		pipe.Del(ctx, key)
		pipe.SRem(ctx, collection, id)
		pipe.Publish(ctx, changesChannel(collection), id)
	})
}

// guarded runs write in MULTI while key is WATCHed and still matches expect.
func (that *RedisStorage) guarded(ctx context.Context, key string, expect Document, write func(pipe redis.Pipeliner)) error {
	err := that.Connection.Watch(ctx, func(tx *redis.Tx) error {
		current, err := tx.HGetAll(ctx, key).Result()
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", key, err)
		}

		if len(current) == 0 {
			return ErrNotFound
		}

		if !matches(current, expect) {
			return ErrConflict
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			write(pipe)
			return nil
		})

		return err
	}, key)

	if errors.Is(err, redis.TxFailedErr) {
		return ErrConflict
	}

	return err
}

func (that *RedisStorage) Subscribe(ctx context.Context, collection string, onChange ChangeFunc) (*Subscription, error) {
	log := that.logger.With("method", "Subscribe", "collection", collection)

	pubsub := that.Connection.Subscribe(ctx, changesChannel(collection))
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("failed to subscribe to %s: %w", collection, err)
	}

	// listen first, then read, so no change slips between the two
	initial, err := that.List(ctx, collection)
	if err != nil {
		_ = pubsub.Close()
		return nil, err
	}

	signals := make(chan struct{}, 1)
	pumpDone := make(chan struct{})
	messages := pubsub.Channel()

	go func() {
		defer close(pumpDone)

		for range messages {
			notify(signals)
		}
	}()

	subCtx, cancel := context.WithCancel(ctx)
	sub := newSubscription(cancel, func() error {
		err := pubsub.Close()
		<-pumpDone

		return err
	})

	go sub.run(subCtx, initial, signals, func(ctx context.Context) (map[string]Document, error) {
		return that.List(ctx, collection)
	}, onChange, func(err error) {
		log.Error("failed to reload collection", "error", err)
	})

	return sub, nil
}
