package openfetchgen

import (
	"context"
	"log/slog"

	"github.com/broady/openfetch/openfetchgen/cache"
	"github.com/broady/openfetch/openfetchgen/openapi"
	"github.com/broady/openfetch/openfetchgen/sink"
)

// Generator provides a fluent API for code generation.
// Create with New() or FromDir() and configure with method chaining.
//
// Example:
//
//	openfetchgen.New().
//	    WithLayers(project, base).
//	    WithCacheDir("./.nuxt/cache").
//	    ToDir(ctx, "./.nuxt/open-fetch")
type Generator struct {
	cfg Config
}

// New creates a Generator with no layers.
func New() *Generator {
	return &Generator{}
}

// FromDir creates a Generator for the layer in dir and the layers it
// extends.
func FromDir(dir string) (*Generator, error) {
	layers, err := LoadLayers(dir)
	if err != nil {
		return nil, err
	}
	return New().WithLayers(layers...), nil
}

// WithLayers appends layers, highest priority first.
func (g *Generator) WithLayers(layers ...Layer) *Generator {
	g.cfg.Layers = append(g.cfg.Layers, layers...)
	return g
}

// WithCacheDir sets the build cache directory.
func (g *Generator) WithCacheDir(dir string) *Generator {
	g.cfg.BuildCacheDir = dir
	return g
}

// WithModuleName sets the hook channel prefix and cache subdirectory.
func (g *Generator) WithModuleName(name string) *Generator {
	g.cfg.ModuleName = name
	return g
}

// WithRuntimeModule sets the TypeScript runtime import path.
func (g *Generator) WithRuntimeModule(module string) *Generator {
	g.cfg.RuntimeModule = module
	return g
}

// WithCompiler replaces the schema compiler.
func (g *Generator) WithCompiler(c openapi.Compiler) *Generator {
	g.cfg.Compiler = c
	return g
}

// WithConcurrency bounds parallel schema compiles.
func (g *Generator) WithConcurrency(n int) *Generator {
	g.cfg.Concurrency = n
	return g
}

// WithLogger sets the logger.
func (g *Generator) WithLogger(logger *slog.Logger) *Generator {
	g.cfg.Logger = logger
	return g
}

// Config returns the generator configuration with defaults applied.
func (g *Generator) Config() Config {
	return *applyConfigDefaults(&g.cfg)
}

// CacheDir returns the directory holding this generator's cache artifacts.
func (g *Generator) CacheDir() string {
	cfg := g.Config()
	return cache.Dir(cfg.BuildCacheDir, cfg.ModuleName)
}

// ToDir generates files into dir.
// This is a terminal operation that writes files to disk.
func (g *Generator) ToDir(ctx context.Context, dir string) (*GenerateResult, error) {
	g.cfg.OutDir = dir
	return Generate(ctx, &g.cfg, sink.NewFilesystemSink(dir))
}

// ToSink generates files into s.
func (g *Generator) ToSink(ctx context.Context, s sink.OutputSink) (*GenerateResult, error) {
	return Generate(ctx, &g.cfg, s)
}

// Check resolves and compiles every client without writing output files.
// Cache artifacts are still written.
func (g *Generator) Check(ctx context.Context) (*GenerateResult, error) {
	return Generate(ctx, &g.cfg, sink.NewMemorySink())
}
