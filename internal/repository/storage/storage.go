package storage

import (
	"context"
	"errors"
	"maps"
)

var (
	ErrNotFound = errors.New("document not found")
	ErrConflict = errors.New("document changed since it was read")
)

// Document is a flat set of string fields.
type Document map[string]string

// ChangeFunc receives the full content of a collection after a change.
type ChangeFunc func(docs map[string]Document)

// Documents is the shared store: collections of documents keyed by opaque ids.
// Every write is atomic per document.
type Documents interface {
	Create(ctx context.Context, collection string, doc Document) (string, error)
	Get(ctx context.Context, collection, id string) (Document, error)
	List(ctx context.Context, collection string) (map[string]Document, error)

	Update(ctx context.Context, collection, id string, delta Document) error
	// UpdateIf applies delta only while every field of expect matches the stored document.
	UpdateIf(ctx context.Context, collection, id string, expect, delta Document) error

	Delete(ctx context.Context, collection, id string) error
	DeleteIf(ctx context.Context, collection, id string, expect Document) error

	// Subscribe delivers the current content of the collection and then a fresh copy after each change.
	// Deliveries are sequential and never go back in time, bursts may be coalesced.
	Subscribe(ctx context.Context, collection string, onChange ChangeFunc) (*Subscription, error)
}

func matches(doc, expect Document) bool {
	for field, value := range expect {
		if doc[field] != value {
			return false
		}
	}

	return true
}

func cloneDocs(docs map[string]Document) map[string]Document {
	result := make(map[string]Document, len(docs))
	for id, doc := range docs {
		result[id] = maps.Clone(doc)
	}

	return result
}

// Subscription is a running change feed. It stops when its context ends or Close is called.
type Subscription struct {
	cancel  context.CancelFunc
	done    chan struct{}
	release func() error
	err     error
}

func newSubscription(cancel context.CancelFunc, release func() error) *Subscription {
	return &Subscription{
		cancel:  cancel,
		done:    make(chan struct{}),
		release: release,
	}
}

// Done is closed once the feed has stopped and released its resources.
func (that *Subscription) Done() <-chan struct{} {
	return that.done
}

// Close stops the feed and waits until it has released its resources.
func (that *Subscription) Close() error {
	that.cancel()
	<-that.done

	return that.err
}

// run drives deliveries: the initial snapshot, then one fresh load per signal.
// Signals are coalesced by the sender through a channel with a buffer of one.
func (that *Subscription) run(ctx context.Context, initial map[string]Document, signals <-chan struct{}, load func(ctx context.Context) (map[string]Document, error), onChange ChangeFunc, onError func(err error)) {
	defer close(that.done)
	defer func() {
		if that.release != nil {
			that.err = that.release()
		}
	}()

	onChange(initial)

	for {
		select {
		case <-ctx.Done():
			return
		case _, ok := <-signals:
			if !ok {
				return
			}

			docs, err := load(ctx)
			if err != nil {
				if ctx.Err() == nil {
					onError(err)
				}
				continue
			}

			onChange(docs)
		}
	}
}

// notify wakes a subscriber without blocking, a pending signal already covers the change.
func notify(signals chan<- struct{}) {
	select {
	case signals <- struct{}{}:
	default:
	}
}
