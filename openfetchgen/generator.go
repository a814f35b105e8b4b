// Package openfetchgen generates typed TypeScript clients from OpenAPI
// schemas declared across configuration layers.
package openfetchgen

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"path"
	"path/filepath"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/broady/openfetch"
	"github.com/broady/openfetch/internal/validate"
	"github.com/broady/openfetch/openfetchgen/cache"
	"github.com/broady/openfetch/openfetchgen/openapi"
	"github.com/broady/openfetch/openfetchgen/sink"
	"github.com/broady/openfetch/openfetchgen/typescript"
)

// Output file names, relative to the output directory.
const (
	SchemasDir        = "schemas"
	ClientsFile       = "open-fetch.ts"
	DeclarationsFile  = "open-fetch.d.ts"
	RuntimeConfigFile = "runtime-config.json"
)

// DefaultModuleName prefixes hook channels and names the cache directory.
const DefaultModuleName = "open-fetch"

// Config holds the configuration for code generation.
type Config struct {
	// Layers in priority order, highest first.
	Layers []Layer `validate:"required,dive"`

	// OutDir is the directory where generated files are written.
	OutDir string

	// BuildCacheDir holds compiled schema artifacts under
	// <BuildCacheDir>/<ModuleName>.
	// Default: <first layer root>/.openfetch/cache
	BuildCacheDir string

	// ModuleName prefixes hook channels.
	// Default: "open-fetch"
	ModuleName string `validate:"omitempty,clientname"`

	// RuntimeModule is the import path of the TypeScript runtime.
	// Default: "open-fetch/runtime"
	RuntimeModule string

	// Compiler compiles schemas. Default: openapi.NewCompiler().
	Compiler openapi.Compiler `validate:"-"`

	// Concurrency bounds parallel schema compiles.
	// Default: GOMAXPROCS
	Concurrency int `validate:"gte=0"`

	Logger *slog.Logger `validate:"-"`
}

// GenerateResult describes one generation run.
type GenerateResult struct {
	// Clients are the resolved clients in name order.
	Clients []ResolvedClient

	// Files are the written paths, relative to the output directory.
	Files []string

	// Cache reports schema cache activity.
	Cache cache.Stats
}

// applyConfigDefaults applies default values to Config.
func applyConfigDefaults(cfg *Config) *Config {
	// Make a copy to avoid mutating the input
	result := *cfg

	if result.ModuleName == "" {
		result.ModuleName = DefaultModuleName
	}
	if result.BuildCacheDir == "" && len(result.Layers) > 0 {
		result.BuildCacheDir = filepath.Join(result.Layers[0].RootDir, ".openfetch", "cache")
	}
	if result.Compiler == nil {
		result.Compiler = openapi.NewCompiler()
	}
	if result.Concurrency == 0 {
		result.Concurrency = runtime.GOMAXPROCS(0)
	}
	if result.Logger == nil {
		result.Logger = slog.Default()
	}
	return &result
}

// Generate resolves every client, compiles the schemas through the cache
// and writes the generated files to out.
func Generate(ctx context.Context, cfg *Config, out sink.OutputSink) (*GenerateResult, error) {
	if err := validate.Struct(cfg); err != nil {
		return nil, err
	}
	cfg = applyConfigDefaults(cfg)
	logger := cfg.Logger

	clients, err := Resolve(cfg.Layers)
	if err != nil {
		return nil, err
	}

	c := cache.New(cfg.BuildCacheDir, cfg.ModuleName, cfg.Compiler).WithLogger(logger)

	// 1. Compile schemas concurrently; the cache serializes per artifact.
	compiled := make([]string, len(clients))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.Concurrency)
	for i, rc := range clients {
		g.Go(func() error {
			text, err := c.Compile(gctx, rc.Name, rc.Source, rc.Options)
			if err != nil {
				return fmt.Errorf("client %q: %w", rc.Name, err)
			}
			compiled[i] = text
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	result := &GenerateResult{Clients: clients}
	write := func(name string, content []byte) error {
		if err := out.WriteFile(ctx, name, content); err != nil {
			return fmt.Errorf("write %s: %w", name, err)
		}
		result.Files = append(result.Files, name)
		return nil
	}

	// 2. Schema declaration modules.
	for i, rc := range clients {
		if err := write(path.Join(SchemasDir, rc.Name+".ts"), []byte(compiled[i])); err != nil {
			return nil, err
		}
	}

	// 3. Client factories, composables and ambient declarations.
	bindings := Bindings(clients)
	moduleOpts := typescript.ModuleOptions{
		ModuleName:    cfg.ModuleName,
		RuntimeModule: cfg.RuntimeModule,
		SchemaDir:     "./" + SchemasDir,
	}
	if err := write(ClientsFile, []byte(typescript.PrintClients(bindings, moduleOpts))); err != nil {
		return nil, err
	}
	if err := write(DeclarationsFile, []byte(typescript.PrintDeclarations(bindings, moduleOpts))); err != nil {
		return nil, err
	}

	// 4. Public runtime configuration, without schema sources.
	data, err := json.MarshalIndent(RuntimeConfig(clients), "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode runtime config: %w", err)
	}
	if err := write(RuntimeConfigFile, append(data, '\n')); err != nil {
		return nil, err
	}

	result.Cache = c.Stats()
	logger.InfoContext(ctx, "openfetch generated",
		"clients", len(clients),
		"files", len(result.Files),
		"cache_hits", result.Cache.Hits,
		"compiles", result.Cache.Compiles,
	)
	return result, nil
}

// Bindings returns the generated symbol names of each client.
func Bindings(clients []ResolvedClient) []typescript.ClientBinding {
	bindings := make([]typescript.ClientBinding, len(clients))
	for i, rc := range clients {
		bindings[i] = typescript.ClientBinding{
			Name:           rc.Name,
			Pascal:         rc.Pascal,
			Composable:     rc.Composable,
			LazyComposable: rc.LazyComposable,
			FetchProperty:  rc.FetchProperty,
			Client:         rc.Client,
			Server:         rc.Server,
		}
	}
	return bindings
}

// RuntimeConfig returns the public configuration of clients as loaded by
// openfetch.LoadRuntimeConfig. Schema sources are never included.
func RuntimeConfig(clients []ResolvedClient) *openfetch.RuntimeConfig {
	cfg := &openfetch.RuntimeConfig{}
	for _, rc := range clients {
		if rc.Client {
			if cfg.Clients == nil {
				cfg.Clients = map[string]openfetch.ClientOptions{}
			}
			cfg.Clients[rc.Name] = publicOptions(rc.Config)
		}
		if rc.Server {
			if cfg.Servers == nil {
				cfg.Servers = map[string]openfetch.ClientOptions{}
			}
			cfg.Servers[rc.Name] = publicOptions(rc.ServerConfig)
		}
	}
	return cfg
}

func publicOptions(c ClientConfig) openfetch.ClientOptions {
	return openfetch.ClientOptions{
		BaseURL: c.BaseURL,
		Query:   c.Query,
		Headers: c.Headers,
	}
}
