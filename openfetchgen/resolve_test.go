package openfetchgen

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/broady/openfetch/internal/testfixtures"
	"github.com/broady/openfetch/openfetchgen/openapi"
)

func TestLoadLayers(t *testing.T) {
	root := testfixtures.WriteLayers(t)

	layers, err := LoadLayers(filepath.Join(root, "app"))
	require.NoError(t, err)
	require.Len(t, layers, 2)

	app, base := layers[0], layers[1]
	assert.Equal(t, filepath.Join(root, "app"), app.RootDir)
	assert.Equal(t, filepath.Join(root, "base"), base.RootDir)
	assert.Equal(t, "/petsProxy", app.Clients["pets"].BaseURL)
	require.NotNil(t, app.Compiler)
	assert.True(t, app.Compiler.DefaultNonNullable)
	assert.NotNil(t, base.Clients["ping"].Schema)
}

func TestLoadLayers_Cycle(t *testing.T) {
	root := t.TempDir()
	testfixtures.WriteTree(t, root, []byte(`-- a/openfetch.yaml --
openFetch:
  extends: [../b]
-- b/openfetch.yaml --
openFetch:
  extends: [../a]
`))
	layers, err := LoadLayers(filepath.Join(root, "a"))
	require.NoError(t, err)
	assert.Len(t, layers, 2)
}

func TestLoadLayer_Missing(t *testing.T) {
	dir := t.TempDir()
	layer, err := LoadLayer(dir)
	require.NoError(t, err)
	assert.Equal(t, dir, layer.RootDir)
	assert.Empty(t, layer.Clients)
}

func TestLoadLayer_UnknownField(t *testing.T) {
	dir := t.TempDir()
	testfixtures.WriteFile(t, filepath.Join(dir, LayerFile), []byte("openFetch:\n  clientz: {}\n"))
	_, err := LoadLayer(dir)
	assert.ErrorContains(t, err, "clientz")
}

func TestResolve_Layers(t *testing.T) {
	root := testfixtures.WriteLayers(t)
	layers, err := LoadLayers(filepath.Join(root, "app"))
	require.NoError(t, err)

	clients, err := Resolve(layers)
	require.NoError(t, err)
	require.Len(t, clients, 2)

	pets := clients[0]
	assert.Equal(t, "pets", pets.Name)
	assert.Equal(t, "usePets", pets.Composable)
	assert.Equal(t, "useLazyPets", pets.LazyComposable)
	assert.Equal(t, "$pets", pets.FetchProperty)
	assert.True(t, pets.Client)
	assert.True(t, pets.Server)

	// The project lists pets without a schema; the base layer supplies it
	// by convention.
	assert.Equal(t, openapi.SourceFile, pets.Source.Kind)
	assert.Equal(t, filepath.Join(root, filepath.FromSlash(testfixtures.PetstorePath)), pets.Source.Path)
	assert.Equal(t, filepath.Join(root, "base"), pets.Layer)

	// Scalars from the project win; maps merge per key.
	assert.Equal(t, "/petsProxy", pets.Config.BaseURL)
	assert.Equal(t, map[string]string{"X-Client": "app", "X-Base": "1"}, pets.Config.Headers)
	assert.Equal(t, map[string]string{"v": "1"}, pets.Config.Query)
	assert.Nil(t, pets.Config.Schema)
	assert.Equal(t, "http://localhost:8080", pets.ServerConfig.BaseURL)

	ping := clients[1]
	assert.Equal(t, openapi.SourceInline, ping.Source.Kind)
	assert.False(t, ping.Server)

	var doc map[string]any
	require.NoError(t, json.Unmarshal(ping.Source.Inline, &doc))
	responses := doc["paths"].(map[string]any)["/ping"].(map[string]any)["get"].(map[string]any)["responses"].(map[string]any)
	assert.Contains(t, responses, "200")
}

func TestResolve_FirstSchemaWins(t *testing.T) {
	root := t.TempDir()
	testfixtures.WriteFile(t, filepath.Join(root, "app", "openapi", "pets", "openapi.json"), []byte(`{}`))
	testfixtures.WriteFile(t, filepath.Join(root, "app", "openapi", "pets", "openapi.yaml"), []byte(`x`))

	layers := []Layer{
		{RootDir: filepath.Join(root, "app"), Clients: map[string]ClientConfig{"pets": {}}},
		{RootDir: filepath.Join(root, "base"), Clients: map[string]ClientConfig{"pets": {Schema: "https://example.com/pets.json"}}},
	}
	clients, err := Resolve(layers)
	require.NoError(t, err)
	require.Len(t, clients, 1)
	assert.Equal(t, filepath.Join(root, "app", "openapi", "pets", "openapi.json"), clients[0].Source.Path, "json is probed first")
}

func TestResolve_Missing(t *testing.T) {
	layers := []Layer{
		{RootDir: t.TempDir(), Clients: map[string]ClientConfig{"pets": {BaseURL: "/api"}}},
		{RootDir: t.TempDir()},
	}
	_, err := Resolve(layers)

	var rerr *ResolutionError
	require.True(t, errors.As(err, &rerr))
	assert.Equal(t, "pets", rerr.Name)
	assert.Len(t, rerr.Layers, 2)
	assert.Contains(t, err.Error(), `"pets"`)
}

func TestExplicitSource(t *testing.T) {
	root := t.TempDir()
	tests := []struct {
		name   string
		schema any
		kind   openapi.SourceKind
		want   string
	}{
		{"https url", "https://example.com/openapi.json", openapi.SourceURL, "https://example.com/openapi.json"},
		{"file url", "file:///schemas/pets.yaml", openapi.SourceFile, "/schemas/pets.yaml"},
		{"relative path", "./schemas/pets.yaml", openapi.SourceFile, filepath.Join(root, "schemas", "pets.yaml")},
		{"absolute path", "/srv/pets.yaml", openapi.SourceFile, "/srv/pets.yaml"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src, err := explicitSource(root, tt.schema)
			require.NoError(t, err)
			assert.Equal(t, tt.kind, src.Kind)
			switch tt.kind {
			case openapi.SourceURL:
				assert.Equal(t, tt.want, src.URL)
			case openapi.SourceFile:
				assert.Equal(t, filepath.FromSlash(tt.want), src.Path)
			}
		})
	}

	src, err := explicitSource(root, map[string]any{"openapi": "3.0.3", "paths": map[any]any{200: "x"}})
	require.NoError(t, err)
	assert.Equal(t, openapi.SourceInline, src.Kind)
	assert.JSONEq(t, `{"openapi":"3.0.3","paths":{"200":"x"}}`, string(src.Inline))

	_, err = explicitSource(root, 42)
	assert.Error(t, err)
	_, err = explicitSource(root, "")
	assert.Error(t, err)
}

func TestPascalCase(t *testing.T) {
	tests := map[string]string{
		"pets":        "Pets",
		"pets-api":    "PetsApi",
		"pets_api.v2": "PetsApiV2",
		"petsAPI":     "PetsAPI",
		"my pets":     "MyPets",
	}
	for in, want := range tests {
		assert.Equal(t, want, PascalCase(in), in)
	}
}

func TestMergeClientConfig(t *testing.T) {
	lower := ClientConfig{BaseURL: "https://a", Headers: map[string]string{"A": "1", "B": "1"}}
	higher := ClientConfig{Headers: map[string]string{"B": "2"}, Schema: "x"}

	got := mergeClientConfig(lower, higher)
	assert.Equal(t, "https://a", got.BaseURL)
	assert.Equal(t, map[string]string{"A": "1", "B": "2"}, got.Headers)
	assert.Nil(t, got.Query)
	assert.Nil(t, got.Schema)

	// Inputs are not mutated.
	assert.Equal(t, "1", lower.Headers["B"])
}

func TestLayerSchemaDir(t *testing.T) {
	assert.Equal(t, filepath.Join("/p", "openapi"), Layer{RootDir: "/p"}.schemaDir())
	assert.Equal(t, filepath.Join("/p", "specs"), Layer{RootDir: "/p", SchemaDir: "specs"}.schemaDir())
	abs := filepath.Join(os.TempDir(), "specs")
	assert.Equal(t, abs, Layer{RootDir: "/p", SchemaDir: abs}.schemaDir())
}
