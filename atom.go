package openfetch

import (
	"context"
	"iter"
	"sync"
)

// Ref is a reactive value. Fetch inputs that implement Ref are read at call
// time, so the same options value can be reused as the referenced value
// changes.
type Ref interface {
	Unwrap() any
}

// Unwrap resolves v to its current plain value. Refs are unwrapped, as are
// Refs nested inside map[string]any and []any values. Other values are
// returned unchanged.
func Unwrap(v any) any {
	for {
		r, ok := v.(Ref)
		if !ok {
			break
		}
		v = r.Unwrap()
	}
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[k] = Unwrap(val)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = Unwrap(val)
		}
		return out
	}
	return v
}

// Atom holds a single value that can be read, written, and watched.
// Thread-safe for concurrent Get/Set operations.
//
// Watchers are notified that the value changed, not of each value;
// intermediate updates may be coalesced if a watcher is slow.
//
// Example:
//
//	petID := openfetch.NewAtom(1)
//	data := openfetch.UseFetch[Pet](ctx, store, pets, "/pet/{petId}", openfetch.UseFetchOptions{
//	    Path:  map[string]any{"petId": petID},
//	    Watch: true,
//	})
//	petID.Set(2) // data refreshes with the new key
type Atom[T any] struct {
	mu       sync.RWMutex
	value    T
	watchers map[int64]chan struct{}
	nextID   int64
}

// NewAtom creates a new Atom with the given initial value.
func NewAtom[T any](initial T) *Atom[T] {
	return &Atom[T]{
		value:    initial,
		watchers: make(map[int64]chan struct{}),
	}
}

// Get returns the current value.
func (a *Atom[T]) Get() T {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.value
}

// Unwrap implements Ref.
func (a *Atom[T]) Unwrap() any {
	return a.Get()
}

// Set updates the value and notifies all watchers.
func (a *Atom[T]) Set(value T) {
	a.mu.Lock()
	a.value = value
	chans := make([]chan struct{}, 0, len(a.watchers))
	for _, ch := range a.watchers {
		chans = append(chans, ch)
	}
	a.mu.Unlock()

	// Non-blocking sends; a pending notification already covers this one.
	for _, ch := range chans {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

// Update atomically applies fn to the current value.
// Useful for read-modify-write operations.
func (a *Atom[T]) Update(fn func(T) T) {
	a.mu.Lock()
	newValue := fn(a.value)
	a.mu.Unlock()
	a.Set(newValue)
}

// Changes returns a channel that receives a signal after each Set until ctx
// is canceled.
func (a *Atom[T]) Changes(ctx context.Context) <-chan struct{} {
	ch := make(chan struct{}, 1)
	id := a.addWatcher(ch)
	go func() {
		<-ctx.Done()
		a.removeWatcher(id)
	}()
	return ch
}

// Subscribe returns an iterator that yields the current value and all future
// updates until ctx is canceled.
func (a *Atom[T]) Subscribe(ctx context.Context) iter.Seq[T] {
	return func(yield func(T) bool) {
		if !yield(a.Get()) {
			return
		}
		ch := make(chan struct{}, 1)
		id := a.addWatcher(ch)
		defer a.removeWatcher(id)
		for {
			select {
			case <-ctx.Done():
				return
			case <-ch:
				if !yield(a.Get()) {
					return
				}
			}
		}
	}
}

func (a *Atom[T]) addWatcher(ch chan struct{}) int64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	id := a.nextID
	a.nextID++
	a.watchers[id] = ch
	return id
}

func (a *Atom[T]) removeWatcher(id int64) {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.watchers, id)
}

// Watchable is implemented by Refs that can signal changes, such as Atom.
type Watchable interface {
	Changes(ctx context.Context) <-chan struct{}
}

// Computed is a Ref whose value is produced by fn on every read.
type Computed func() any

// Unwrap implements Ref.
func (c Computed) Unwrap() any { return c() }
