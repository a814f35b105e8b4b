package check

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/broady/openfetch/openfetchgen"
)

type Cmd struct {
	Dir        string `help:"Project layer directory." short:"C" default:"." type:"existingdir"`
	CacheDir   string `help:"Build cache directory (default: <dir>/.openfetch/cache)." name:"cache-dir"`
	ModuleName string `help:"Hook channel prefix and cache subdirectory." name:"module-name" default:"open-fetch"`
}

func (c *Cmd) Run(ctx context.Context, logger *slog.Logger) error {
	g, err := openfetchgen.FromDir(c.Dir)
	if err != nil {
		return fmt.Errorf("load layers: %w", err)
	}

	cfg := g.Config()
	fmt.Printf("✓ %d layers\n", len(cfg.Layers))

	result, err := g.
		WithCacheDir(c.CacheDir).
		WithModuleName(c.ModuleName).
		WithLogger(logger).
		Check(ctx)
	if err != nil {
		return err
	}

	for _, rc := range result.Clients {
		fmt.Printf("✓ %s: %s (%s, %s)\n", rc.Name, rc.Source, rc.Composable, rc.LazyComposable)
	}
	fmt.Printf("✓ %d clients, %d schemas compiled, %d from cache\n",
		len(result.Clients), result.Cache.Compiles, result.Cache.Hits)
	fmt.Println("✓ All schemas compile")
	return nil
}
