package openfetch

import (
	"context"
	"fmt"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"
)

// DefaultStoreSize bounds the number of payloads a Store keeps.
const DefaultStoreSize = 1024

// Store is the shared state behind async data: the last successful payload
// per key and in-flight deduplication. Two AsyncData values with the same
// key share one request and one payload. Safe for concurrent use.
type Store struct {
	payload *lru.Cache[string, any]
	group   singleflight.Group
}

// NewStore creates a Store holding at most size payloads. A size of zero or
// less uses DefaultStoreSize.
func NewStore(size int) *Store {
	if size <= 0 {
		size = DefaultStoreSize
	}
	cache, err := lru.New[string, any](size)
	if err != nil {
		// lru.New only fails for non-positive sizes.
		panic(err)
	}
	return &Store{payload: cache}
}

// Payload returns the cached payload for key.
func (s *Store) Payload(key string) (any, bool) {
	return s.payload.Get(key)
}

// Clear removes the payload for key.
func (s *Store) Clear(key string) {
	s.payload.Remove(key)
}

// do runs fn once per key at a time and caches a successful result.
func (s *Store) do(ctx context.Context, key string, fn func(context.Context) (any, error)) (any, error) {
	v, err, _ := s.group.Do(key, func() (any, error) {
		v, err := fn(ctx)
		if err != nil {
			return nil, err
		}
		s.payload.Add(key, v)
		return v, nil
	})
	return v, err
}

// AsyncDataStatus is the lifecycle state of an AsyncData.
type AsyncDataStatus string

const (
	StatusIdle    AsyncDataStatus = "idle"
	StatusPending AsyncDataStatus = "pending"
	StatusSuccess AsyncDataStatus = "success"
	StatusError   AsyncDataStatus = "error"
)

// AsyncDataOptions configures UseAsyncData.
type AsyncDataOptions struct {
	// Lazy defers the first fetch until Execute or Refresh is called.
	// Otherwise the fetch starts immediately in the background.
	Lazy bool
}

// AsyncData is a keyed, deduplicated asynchronous value.
type AsyncData[T any] struct {
	store *Store
	fn    func(ctx context.Context, key string) (T, error)

	mu     sync.Mutex
	key    string
	data   T
	err    error
	status AsyncDataStatus
	done   chan struct{}
}

// UseAsyncData binds fn to key in store. If the store already holds a
// payload for key, Data returns it before the first fetch completes.
func UseAsyncData[T any](ctx context.Context, store *Store, key string, fn func(ctx context.Context) (T, error), opts AsyncDataOptions) *AsyncData[T] {
	return useAsyncData(ctx, store, key, func(ctx context.Context, _ string) (T, error) { return fn(ctx) }, opts)
}

func useAsyncData[T any](ctx context.Context, store *Store, key string, fn func(ctx context.Context, key string) (T, error), opts AsyncDataOptions) *AsyncData[T] {
	a := &AsyncData[T]{
		store:  store,
		fn:     fn,
		key:    key,
		status: StatusIdle,
	}
	if v, ok := store.Payload(key); ok {
		if data, ok := v.(T); ok {
			a.data = data
		}
	}
	if !opts.Lazy {
		a.start(ctx)
	}
	return a
}

// Key returns the current key.
func (a *AsyncData[T]) Key() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.key
}

// Data returns the last successful value.
func (a *AsyncData[T]) Data() T {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.data
}

// Error returns the error of the last fetch, if it failed.
func (a *AsyncData[T]) Error() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.err
}

// Status returns the lifecycle state.
func (a *AsyncData[T]) Status() AsyncDataStatus {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.status
}

// Pending reports whether a fetch is in flight.
func (a *AsyncData[T]) Pending() bool {
	return a.Status() == StatusPending
}

// Execute starts a fetch unless one is already in flight and waits for it.
func (a *AsyncData[T]) Execute(ctx context.Context) error {
	a.mu.Lock()
	done := a.done
	pending := a.status == StatusPending
	a.mu.Unlock()
	if !pending {
		done = a.start(ctx)
	}
	select {
	case <-done:
		return a.Error()
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Refresh is an alias for Execute.
func (a *AsyncData[T]) Refresh(ctx context.Context) error {
	return a.Execute(ctx)
}

// Wait blocks until the current fetch finishes and returns its result. For
// an idle lazy AsyncData it starts the fetch.
func (a *AsyncData[T]) Wait(ctx context.Context) (T, error) {
	a.mu.Lock()
	done := a.done
	a.mu.Unlock()
	if done == nil {
		if err := a.Execute(ctx); err != nil {
			return a.Data(), err
		}
		return a.Data(), nil
	}
	select {
	case <-done:
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.data, a.err
}

// rekey switches to a new key. The payload cached under the new key, if
// any, becomes the current data.
func (a *AsyncData[T]) rekey(key string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.key = key
	if v, ok := a.store.Payload(key); ok {
		if data, ok := v.(T); ok {
			a.data = data
		}
	}
}

func (a *AsyncData[T]) start(ctx context.Context) chan struct{} {
	a.mu.Lock()
	key := a.key
	done := make(chan struct{})
	a.done = done
	a.status = StatusPending
	a.mu.Unlock()

	go func() {
		defer close(done)
		v, err := a.store.do(ctx, key, func(ctx context.Context) (any, error) {
			return a.fn(ctx, key)
		})
		a.mu.Lock()
		defer a.mu.Unlock()
		if err != nil {
			a.err = err
			a.status = StatusError
			return
		}
		data, ok := v.(T)
		if !ok {
			a.err = fmt.Errorf("async data %q: payload is %T", key, v)
			a.status = StatusError
			return
		}
		a.data, a.err, a.status = data, nil, StatusSuccess
	}()
	return done
}
