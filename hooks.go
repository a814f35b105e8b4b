package openfetch

import (
	"context"
	"fmt"
	"net/http"
	"slices"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// DefaultModuleName prefixes hook channel names.
const DefaultModuleName = "open-fetch"

// HookKind identifies a fetch lifecycle event.
type HookKind int

const (
	HookRequest HookKind = iota
	HookRequestError
	HookResponse
	HookResponseError
)

var hookKindNames = [...]string{
	HookRequest:       "onRequest",
	HookRequestError:  "onRequestError",
	HookResponse:      "onResponse",
	HookResponseError: "onResponseError",
}

// HookKinds lists every hook kind in lifecycle order.
var HookKinds = []HookKind{HookRequest, HookRequestError, HookResponse, HookResponseError}

func (k HookKind) String() string {
	if int(k) < len(hookKindNames) {
		return hookKindNames[k]
	}
	return fmt.Sprintf("HookKind(%d)", int(k))
}

// FetchContext is the payload handed to every hook.
//
// Request is set for all kinds. Response is set for HookResponse and
// HookResponseError, Error for HookRequestError and HookResponseError.
// Hooks in the same stage run concurrently and must synchronize any
// mutation of the context themselves.
type FetchContext struct {
	Client   string
	Kind     HookKind
	Request  *http.Request
	Options  *Options
	Response *Response
	Error    error

	// Started is when the fetch began, before any hook ran.
	Started time.Time
}

// Hook handles one lifecycle event. Returning an error aborts the fetch.
type Hook func(ctx context.Context, fc *FetchContext) error

// Hooks holds handlers per kind. It is used both for per-call hooks in
// [Options] and for bulk registration on a [HookBus].
type Hooks struct {
	OnRequest       []Hook
	OnRequestError  []Hook
	OnResponse      []Hook
	OnResponseError []Hook
}

// Of returns the handlers for kind.
func (h Hooks) Of(kind HookKind) []Hook {
	switch kind {
	case HookRequest:
		return h.OnRequest
	case HookRequestError:
		return h.OnRequestError
	case HookResponse:
		return h.OnResponse
	case HookResponseError:
		return h.OnResponseError
	}
	return nil
}

// HookBus routes lifecycle events through a global stage and a per-client
// stage. Safe for concurrent use.
type HookBus struct {
	module string

	mu     sync.RWMutex
	nextID int
	global map[HookKind][]registeredHook
	named  map[string]map[HookKind][]registeredHook
}

type registeredHook struct {
	id int
	fn Hook
}

// NewHookBus creates an empty bus. An empty module name uses
// [DefaultModuleName].
func NewHookBus(module string) *HookBus {
	if module == "" {
		module = DefaultModuleName
	}
	return &HookBus{
		module: module,
		global: make(map[HookKind][]registeredHook),
		named:  make(map[string]map[HookKind][]registeredHook),
	}
}

// Module returns the channel prefix of the bus.
func (b *HookBus) Module() string { return b.module }

// Channel returns the channel name for kind, e.g. "open-fetch:onRequest" or
// "open-fetch:onRequest:pets" when client is not empty.
func (b *HookBus) Channel(kind HookKind, client string) string {
	name := b.module + ":" + kind.String()
	if client != "" {
		name += ":" + client
	}
	return name
}

// Hook registers fn on the global channel for kind. The returned function
// removes the registration.
func (b *HookBus) Hook(kind HookKind, fn Hook) (unregister func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	id := b.add(b.global, kind, fn)
	return func() { b.remove(func() map[HookKind][]registeredHook { return b.global }, kind, id) }
}

// HookClient registers fn on the channel of a single client.
func (b *HookBus) HookClient(kind HookKind, client string, fn Hook) (unregister func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	m := b.named[client]
	if m == nil {
		m = make(map[HookKind][]registeredHook)
		b.named[client] = m
	}
	id := b.add(m, kind, fn)
	return func() { b.remove(func() map[HookKind][]registeredHook { return b.named[client] }, kind, id) }
}

// Register adds all handlers in h to the global channels.
func (b *HookBus) Register(h Hooks) {
	for _, kind := range HookKinds {
		for _, fn := range h.Of(kind) {
			b.Hook(kind, fn)
		}
	}
}

// RegisterClient adds all handlers in h to the channels of client.
func (b *HookBus) RegisterClient(client string, h Hooks) {
	for _, kind := range HookKinds {
		for _, fn := range h.Of(kind) {
			b.HookClient(kind, client, fn)
		}
	}
}

func (b *HookBus) add(m map[HookKind][]registeredHook, kind HookKind, fn Hook) int {
	b.nextID++
	m[kind] = append(m[kind], registeredHook{id: b.nextID, fn: fn})
	return b.nextID
}

func (b *HookBus) remove(get func() map[HookKind][]registeredHook, kind HookKind, id int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	m := get()
	if m == nil {
		return
	}
	m[kind] = slices.DeleteFunc(m[kind], func(r registeredHook) bool { return r.id == id })
}

func (b *HookBus) snapshot(kind HookKind, client string) (global, named []Hook) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, r := range b.global[kind] {
		global = append(global, r.fn)
	}
	for _, r := range b.named[client][kind] {
		named = append(named, r.fn)
	}
	return global, named
}

// Fire runs the global stage, then the client stage, then local. Each stage
// completes before the next one starts. A nil bus only runs local.
func (b *HookBus) Fire(ctx context.Context, fc *FetchContext, local []Hook) error {
	var global, named []Hook
	if b != nil {
		global, named = b.snapshot(fc.Kind, fc.Client)
	}
	for _, stage := range [][]Hook{global, named, local} {
		if err := runStage(ctx, stage, fc); err != nil {
			return err
		}
	}
	return nil
}

// runStage runs every handler of one stage concurrently and waits for all
// of them.
func runStage(ctx context.Context, stage []Hook, fc *FetchContext) error {
	switch len(stage) {
	case 0:
		return nil
	case 1:
		return stage[0](ctx, fc)
	}
	g, gctx := errgroup.WithContext(ctx)
	for _, fn := range stage {
		g.Go(func() error { return fn(gctx, fc) })
	}
	return g.Wait()
}
