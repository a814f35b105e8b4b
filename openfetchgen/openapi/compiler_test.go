package openapi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKinCompiler_Sources(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "openapi.yaml")
	require.NoError(t, os.WriteFile(path, []byte(petstoreYAML), 0o644))

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/yaml")
		w.Write([]byte(petstoreYAML))
	}))
	defer srv.Close()

	c := NewCompiler()
	c.HTTPClient = srv.Client()

	for _, src := range []Source{
		InlineSource([]byte(petstoreYAML)),
		FileSource(path),
		URLSource(srv.URL + "/openapi.yaml"),
	} {
		t.Run(src.Kind.String(), func(t *testing.T) {
			out, err := c.Compile(context.Background(), src, DefaultOptions())
			require.NoError(t, err)
			assert.Contains(t, out, `"/pet/{petId}": {`)
			assert.Contains(t, out, `"application/vnd.petstore.v2+json": components["schemas"]["PetV2"];`)
			assert.Contains(t, out, "uploadFile: {")
		})
	}
}

func TestKinCompiler_Immutable(t *testing.T) {
	out, err := NewCompiler().Compile(context.Background(), InlineSource([]byte(petstoreYAML)), Options{Immutable: true})
	require.NoError(t, err)
	assert.Contains(t, out, "readonly name: string;")
}

func TestKinCompiler_Errors(t *testing.T) {
	c := NewCompiler()

	_, err := c.Compile(context.Background(), FileSource(filepath.Join(t.TempDir(), "missing.yaml")), DefaultOptions())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing.yaml")

	_, err = c.Compile(context.Background(), Source{Kind: SourceKind(9)}, DefaultOptions())
	assert.ErrorContains(t, err, "unsupported source kind")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = c.Compile(ctx, InlineSource([]byte(petstoreYAML)), DefaultOptions())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestCompilerFunc(t *testing.T) {
	var got Source
	var c Compiler = CompilerFunc(func(ctx context.Context, src Source, opts Options) (string, error) {
		got = src
		return "export interface paths {}\n", nil
	})
	out, err := c.Compile(context.Background(), URLSource("https://example.com/openapi.json"), Options{})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "export interface paths"))
	assert.Equal(t, "https://example.com/openapi.json", got.Identity())
}

func TestSource(t *testing.T) {
	inline := InlineSource([]byte(`{"openapi":"3.0.3"}`))
	assert.True(t, strings.HasPrefix(inline.Identity(), "inline:"))
	assert.Len(t, strings.TrimPrefix(inline.Identity(), "inline:"), 64)
	assert.Equal(t, "inline document", inline.String())
	assert.False(t, inline.IsFile())

	file := FileSource("relative/openapi.yaml")
	assert.True(t, filepath.IsAbs(file.Path))
	assert.True(t, strings.HasPrefix(file.Identity(), "file://"))
	assert.True(t, file.IsFile())

	assert.Equal(t, "url", SourceURL.String())
	assert.Equal(t, "SourceKind(7)", SourceKind(7).String())
}

func TestOptions_Fingerprint(t *testing.T) {
	a := DefaultOptions().Fingerprint()
	b := DefaultOptions().Fingerprint()
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, Options{Immutable: true}.Fingerprint())
	assert.Contains(t, string(a), `"defaultNonNullable":true`)
}
