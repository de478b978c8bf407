package storage

import (
	"context"
	"maps"
	"sync"

	"github.com/google/uuid"
)

// MemoryStorage keeps collections in process memory.
type MemoryStorage struct {
	mu          sync.RWMutex
	collections map[string]map[string]Document
	subscribers map[string]map[chan struct{}]struct{}
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		collections: make(map[string]map[string]Document),
		subscribers: make(map[string]map[chan struct{}]struct{}),
	}
}

func (that *MemoryStorage) Create(_ context.Context, collection string, doc Document) (string, error) {
	if len(doc) == 0 {
		return "", ErrEmptyDocument
	}

	id := uuid.NewString()

	that.mu.Lock()
	defer that.mu.Unlock()

	docs, ok := that.collections[collection]
	if !ok {
		docs = make(map[string]Document)
		that.collections[collection] = docs
	}
	docs[id] = maps.Clone(doc)

	that.notifyLocked(collection)

	return id, nil
}

func (that *MemoryStorage) Get(_ context.Context, collection, id string) (Document, error) {
	that.mu.RLock()
	defer that.mu.RUnlock()

	doc, ok := that.collections[collection][id]
	if !ok {
		return nil, ErrNotFound
	}

	return maps.Clone(doc), nil
}

func (that *MemoryStorage) List(_ context.Context, collection string) (map[string]Document, error) {
	that.mu.RLock()
	defer that.mu.RUnlock()

	return cloneDocs(that.collections[collection]), nil
}

func (that *MemoryStorage) Update(ctx context.Context, collection, id string, delta Document) error {
	return that.UpdateIf(ctx, collection, id, nil, delta)
}

func (that *MemoryStorage) UpdateIf(_ context.Context, collection, id string, expect, delta Document) error {
	that.mu.Lock()
	defer that.mu.Unlock()

	doc, ok := that.collections[collection][id]
	if !ok {
		return ErrNotFound
	}

	if !matches(doc, expect) {
		return ErrConflict
	}

	if len(delta) == 0 {
		return nil
	}

	maps.Copy(doc, delta)
	that.notifyLocked(collection)

	return nil
}

func (that *MemoryStorage) Delete(ctx context.Context, collection, id string) error {
	return that.DeleteIf(ctx, collection, id, nil)
}

func (that *MemoryStorage) DeleteIf(_ context.Context, collection, id string, expect Document) error {
	that.mu.Lock()
	defer that.mu.Unlock()

	doc, ok := that.collections[collection][id]
	if !ok {
		return ErrNotFound
	}

	if !matches(doc, expect) {
		return ErrConflict
	}

	delete(that.collections[collection], id)
	that.notifyLocked(collection)

	return nil
}

func (that *MemoryStorage) Subscribe(ctx context.Context, collection string, onChange ChangeFunc) (*Subscription, error) {
	signals := make(chan struct{}, 1)

	that.mu.Lock()
	subs, ok := that.subscribers[collection]
	if !ok {
		subs = make(map[chan struct{}]struct{})
		that.subscribers[collection] = subs
	}
	subs[signals] = struct{}{}
	initial := cloneDocs(that.collections[collection])
	that.mu.Unlock()

	subCtx, cancel := context.WithCancel(ctx)
	sub := newSubscription(cancel, func() error {
		that.mu.Lock()
		delete(that.subscribers[collection], signals)
		that.mu.Unlock()

		return nil
	})

	go sub.run(subCtx, initial, signals, func(ctx context.Context) (map[string]Document, error) {
		return that.List(ctx, collection)
	}, onChange, func(error) {})

	return sub, nil
}

func (that *MemoryStorage) notifyLocked(collection string) {
	for signals := range that.subscribers[collection] {
		notify(signals)
	}
}
