package gen

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/broady/openfetch/openfetchgen"
)

type Cmd struct {
	Out           string `arg:"" help:"Output directory for generated files."`
	Dir           string `help:"Project layer directory." short:"C" default:"." type:"existingdir"`
	CacheDir      string `help:"Build cache directory (default: <dir>/.openfetch/cache)." name:"cache-dir"`
	ModuleName    string `help:"Hook channel prefix and cache subdirectory." name:"module-name" default:"open-fetch"`
	RuntimeModule string `help:"Import path of the TypeScript runtime." name:"runtime-module"`
	Concurrency   int    `help:"Maximum parallel schema compiles (default: GOMAXPROCS)." short:"j"`
}

func (c *Cmd) Run(ctx context.Context, logger *slog.Logger) error {
	g, err := openfetchgen.FromDir(c.Dir)
	if err != nil {
		return fmt.Errorf("load layers: %w", err)
	}

	outDir, err := filepath.Abs(c.Out)
	if err != nil {
		return fmt.Errorf("resolve output path: %w", err)
	}

	result, err := g.
		WithCacheDir(c.CacheDir).
		WithModuleName(c.ModuleName).
		WithRuntimeModule(c.RuntimeModule).
		WithConcurrency(c.Concurrency).
		WithLogger(logger).
		ToDir(ctx, outDir)
	if err != nil {
		return err
	}

	for _, f := range result.Files {
		fmt.Printf("✓ %s\n", filepath.Join(outDir, f))
	}
	fmt.Printf("✓ %d clients, %d schemas compiled, %d from cache\n",
		len(result.Clients), result.Cache.Compiles, result.Cache.Hits)
	return nil
}
