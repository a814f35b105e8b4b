package clean

import (
	"fmt"
	"os"

	"github.com/broady/openfetch/openfetchgen"
)

type Cmd struct {
	Dir        string `help:"Project layer directory." short:"C" default:"." type:"existingdir"`
	CacheDir   string `help:"Build cache directory (default: <dir>/.openfetch/cache)." name:"cache-dir"`
	ModuleName string `help:"Hook channel prefix and cache subdirectory." name:"module-name" default:"open-fetch"`
}

func (c *Cmd) Run() error {
	g, err := openfetchgen.FromDir(c.Dir)
	if err != nil {
		return fmt.Errorf("load layers: %w", err)
	}
	dir := g.WithCacheDir(c.CacheDir).WithModuleName(c.ModuleName).CacheDir()
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("remove %s: %w", dir, err)
	}
	fmt.Printf("✓ removed %s\n", dir)
	return nil
}
