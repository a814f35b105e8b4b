package openfetch

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"sync"
)

// ErrUnknownClient is returned by Registry lookups for names that were
// neither configured nor registered.
var ErrUnknownClient = errors.New("unknown client")

// Registry builds and holds the named clients of an application.
// Clients described by the runtime config are created on first lookup and
// share the registry's hook bus, transport and logger.
//
// Configure the registry with the With methods before the first lookup.
type Registry struct {
	mu      sync.RWMutex
	config  RuntimeConfig
	clients map[string]*Client
	servers map[string]*Client
	hooks   *HookBus
	doer    Doer
	local   http.Handler
	logger  *slog.Logger
}

// NewRegistry validates cfg and returns a registry for its clients.
func NewRegistry(cfg RuntimeConfig) (*Registry, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Registry{
		config:  cfg,
		clients: make(map[string]*Client),
		servers: make(map[string]*Client),
		hooks:   NewHookBus(DefaultModuleName),
	}, nil
}

// WithHookBus replaces the registry's hook bus.
// It returns the registry for chaining.
func (r *Registry) WithHookBus(b *HookBus) *Registry {
	r.hooks = b
	return r
}

// WithDoer sets the global transport of every client.
func (r *Registry) WithDoer(d Doer) *Registry {
	r.doer = d
	return r
}

// WithLocalHandler sets the in-process handler used by server clients for
// root-relative calls.
func (r *Registry) WithLocalHandler(h http.Handler) *Registry {
	r.local = h
	return r
}

// WithLogger sets a custom logger for the registry and its clients.
// If not set, slog.Default() will be used.
func (r *Registry) WithLogger(logger *slog.Logger) *Registry {
	r.logger = logger
	return r
}

// Hooks returns the registry's hook bus.
func (r *Registry) Hooks() *HookBus { return r.hooks }

// Register adds a client built elsewhere. A client registered under a name
// that already exists replaces it, with a warning.
func (r *Registry) Register(c *Client) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.clients[c.Name()]; exists {
		r.getLogger().Warn("duplicate client registration",
			slog.String("client", c.Name()),
			slog.String("note", "previous client will be replaced"))
	}
	r.clients[c.Name()] = c
}

// Client returns the browser-facing client named name.
func (r *Registry) Client(name string) (*Client, error) {
	return r.lookup(name, false)
}

// Server returns the client named name for server-side calls. It uses the
// servers config when it has an entry for name and falls back to clients.
// Server clients may serve root-relative calls through the local handler.
func (r *Registry) Server(name string) (*Client, error) {
	return r.lookup(name, true)
}

// MustClient is like Client but panics if name is unknown.
func (r *Registry) MustClient(name string) *Client {
	c, err := r.Client(name)
	if err != nil {
		panic(err)
	}
	return c
}

// Names returns the configured and registered client names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	seen := make(map[string]bool)
	for name := range r.config.Clients {
		seen[name] = true
	}
	for name := range r.config.Servers {
		seen[name] = true
	}
	for name := range r.clients {
		seen[name] = true
	}
	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (r *Registry) lookup(name string, server bool) (*Client, error) {
	cache := r.clients
	if server {
		cache = r.servers
	}
	r.mu.RLock()
	c, ok := cache[name]
	if !ok && server {
		// Explicit registrations serve both sides unless a server entry exists.
		if _, configured := r.config.Servers[name]; !configured {
			c, ok = r.clients[name]
		}
	}
	r.mu.RUnlock()
	if ok {
		return c, nil
	}

	opts, ok := r.config.Clients[name]
	if server {
		if s, configured := r.config.Servers[name]; configured {
			opts, ok = s, true
		}
	}
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownClient, name)
	}

	copts := []ClientOption{
		WithOptions(opts.Options()),
		WithHookBus(r.hooks),
		WithLogger(r.getLogger()),
	}
	if r.doer != nil {
		copts = append(copts, WithDoer(r.doer))
	}
	if server && r.local != nil {
		copts = append(copts, WithLocalHandler(r.local))
	}
	c = NewClient(name, copts...)

	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := cache[name]; ok {
		return existing, nil
	}
	cache[name] = c
	return c, nil
}

func (r *Registry) getLogger() *slog.Logger {
	if r.logger != nil {
		return r.logger
	}
	return slog.Default()
}
