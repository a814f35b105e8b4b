package openfetchgen

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/broady/openfetch"
	"github.com/broady/openfetch/internal/testfixtures"
	"github.com/broady/openfetch/openfetchgen/openapi"
	"github.com/broady/openfetch/openfetchgen/sink"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func fixtureGenerator(t *testing.T) *Generator {
	t.Helper()
	root := testfixtures.WriteLayers(t)
	g, err := FromDir(filepath.Join(root, "app"))
	require.NoError(t, err)
	return g.WithCacheDir(t.TempDir()).WithLogger(quietLogger())
}

func TestGenerate_Outputs(t *testing.T) {
	ctx := context.Background()
	out := sink.NewMemorySink()

	result, err := fixtureGenerator(t).ToSink(ctx, out)
	require.NoError(t, err)

	assert.Equal(t, []string{
		"schemas/pets.ts",
		"schemas/ping.ts",
		ClientsFile,
		DeclarationsFile,
		RuntimeConfigFile,
	}, result.Files)

	pets := string(out.Get("schemas/pets.ts"))
	assert.Contains(t, pets, `"/pet/{petId}": {`)
	assert.Contains(t, pets, `"application/vnd.petstore.v2+json": components["schemas"]["PetV2"];`)
	assert.Contains(t, pets, "breed: string;")
	assert.Contains(t, pets, "age: number;")

	ping := string(out.Get("schemas/ping.ts"))
	assert.Contains(t, ping, `"text/plain": string;`)

	clients := string(out.Get(ClientsFile))
	assert.Contains(t, clients, `export const usePets = createUseOpenFetch<PetsPaths>("pets");`)
	assert.Contains(t, clients, `export const useLazyPing = createUseOpenFetch<PingPaths>("ping", true);`)
	assert.Contains(t, clients, `export type OpenFetchClientName = "pets" | "ping";`)

	decls := string(out.Get(DeclarationsFile))
	assert.Contains(t, decls, "interface OpenFetchServerContext {\n        $pets: OpenFetchClient<PetsPaths>;\n    }")
	assert.Contains(t, decls, `"open-fetch:onResponse:ping": OpenFetchHook<"onResponse">;`)

	runtimeConfig := string(out.Get(RuntimeConfigFile))
	assert.NotContains(t, runtimeConfig, "schema")
	assert.NotContains(t, runtimeConfig, "openapi")
	assert.Contains(t, runtimeConfig, `"baseURL": "/petsProxy"`)
}

// A second run with unchanged schemas is served from the cache.
func TestGenerate_CacheReuse(t *testing.T) {
	ctx := context.Background()
	g := fixtureGenerator(t)

	first, err := g.Check(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), first.Cache.Compiles)

	second, err := g.Check(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), second.Cache.Hits, "file schema served from cache")
	assert.Equal(t, int64(1), second.Cache.Compiles, "inline schema always compiled")

	entries, err := os.ReadDir(g.CacheDir())
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestGenerate_RuntimeConfigRoundTrip(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	_, err := fixtureGenerator(t).ToDir(ctx, dir)
	require.NoError(t, err)

	t.Setenv(openfetch.BaseURLEnv("ping"), "https://ping.example.com")
	cfg, err := openfetch.LoadRuntimeConfig(filepath.Join(dir, RuntimeConfigFile))
	require.NoError(t, err)

	assert.Equal(t, "/petsProxy", cfg.Clients["pets"].BaseURL)
	assert.Equal(t, map[string]string{"X-Client": "app", "X-Base": "1"}, cfg.Clients["pets"].Headers)
	assert.Equal(t, "http://localhost:8080", cfg.Servers["pets"].BaseURL)
	assert.Equal(t, "https://ping.example.com", cfg.Clients["ping"].BaseURL)

	_, err = os.Stat(filepath.Join(dir, "schemas", "pets.ts"))
	assert.NoError(t, err)
}

func TestGenerate_Errors(t *testing.T) {
	ctx := context.Background()

	t.Run("no layers", func(t *testing.T) {
		_, err := New().Check(ctx)
		var cerr *openfetch.ConfigError
		require.True(t, errors.As(err, &cerr))
		assert.Contains(t, cerr.Fields, "Layers")
	})

	t.Run("invalid client name", func(t *testing.T) {
		layer := Layer{RootDir: t.TempDir(), Clients: map[string]ClientConfig{"bad name": {Schema: "x.yaml"}}}
		_, err := New().WithLayers(layer).Check(ctx)
		var cerr *openfetch.ConfigError
		require.True(t, errors.As(err, &cerr))
		assert.Contains(t, err.Error(), "not a valid client name")
	})

	t.Run("invalid base url", func(t *testing.T) {
		layer := Layer{RootDir: t.TempDir(), Clients: map[string]ClientConfig{"pets": {BaseURL: "petsProxy"}}}
		_, err := New().WithLayers(layer).Check(ctx)
		assert.ErrorContains(t, err, "must be an absolute http(s) URL")
	})

	t.Run("missing schema", func(t *testing.T) {
		layer := Layer{RootDir: t.TempDir(), Clients: map[string]ClientConfig{"pets": {}}}
		_, err := New().WithLayers(layer).WithLogger(quietLogger()).Check(ctx)
		var rerr *ResolutionError
		require.True(t, errors.As(err, &rerr))
	})

	t.Run("compiler error names the client", func(t *testing.T) {
		boom := errors.New("boom")
		layer := Layer{RootDir: t.TempDir(), Clients: map[string]ClientConfig{"pets": {Schema: "https://example.com/openapi.json"}}}
		_, err := New().
			WithLayers(layer).
			WithLogger(quietLogger()).
			WithCompiler(openapi.CompilerFunc(func(ctx context.Context, src openapi.Source, opts openapi.Options) (string, error) {
				return "", boom
			})).
			Check(ctx)
		assert.ErrorIs(t, err, boom)
		assert.ErrorContains(t, err, `client "pets"`)
	})
}

func TestGenerator_Config(t *testing.T) {
	root := t.TempDir()
	cfg := New().WithLayers(Layer{RootDir: root}).WithConcurrency(2).Config()

	assert.Equal(t, DefaultModuleName, cfg.ModuleName)
	assert.Equal(t, filepath.Join(root, ".openfetch", "cache"), cfg.BuildCacheDir)
	assert.Equal(t, 2, cfg.Concurrency)
	assert.NotNil(t, cfg.Compiler)
	assert.NotNil(t, cfg.Logger)

	g := New().WithLayers(Layer{RootDir: root}).WithModuleName("pets-fetch").WithCacheDir("/tmp/cache")
	assert.Equal(t, filepath.Join("/tmp/cache", "pets-fetch"), g.CacheDir())
}
