package cache

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/broady/openfetch/openfetchgen/openapi"
	"github.com/broady/openfetch/openfetchgen/sink"
)

// countingCompiler returns the source identity and counts calls.
type countingCompiler struct {
	calls atomic.Int64
	err   error
}

func (c *countingCompiler) Compile(ctx context.Context, src openapi.Source, opts openapi.Options) (string, error) {
	c.calls.Add(1)
	if c.err != nil {
		return "", c.err
	}
	data, _ := os.ReadFile(src.Path)
	return "// " + src.Identity() + "\n" + string(data), nil
}

func writeSchema(t *testing.T, dir, name, content string) openapi.Source {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return openapi.FileSource(path)
}

func artifacts(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

func TestCache_HitOnRepeat(t *testing.T) {
	ctx := context.Background()
	schemas, buildDir := t.TempDir(), t.TempDir()
	src := writeSchema(t, schemas, "pets.yaml", "openapi: 3.0.3\n")

	compiler := &countingCompiler{}
	c := New(buildDir, "open-fetch", compiler)

	first, err := c.Compile(ctx, "pets", src, openapi.DefaultOptions())
	require.NoError(t, err)
	require.Equal(t, int64(1), compiler.calls.Load())

	second, err := c.Compile(ctx, "pets", src, openapi.DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, int64(1), compiler.calls.Load(), "repeat compile must not invoke the compiler")
	assert.Equal(t, first, second)

	assert.Equal(t, Stats{Hits: 1, Misses: 1, Compiles: 1}, c.Stats())

	names := artifacts(t, Dir(buildDir, "open-fetch"))
	require.Len(t, names, 1)
	onDisk, err := os.ReadFile(filepath.Join(Dir(buildDir, "open-fetch"), names[0]))
	require.NoError(t, err)
	assert.Equal(t, first, string(onDisk))
}

func TestCache_ChangePrunesStale(t *testing.T) {
	ctx := context.Background()
	schemas, buildDir := t.TempDir(), t.TempDir()
	src := writeSchema(t, schemas, "pets.yaml", "version: 1\n")
	dir := Dir(buildDir, "open-fetch")

	compiler := &countingCompiler{}
	c := New(buildDir, "open-fetch", compiler)

	_, err := c.Compile(ctx, "pets", src, openapi.DefaultOptions())
	require.NoError(t, err)
	before := artifacts(t, dir)
	require.Len(t, before, 1)

	writeSchema(t, schemas, "pets.yaml", "version: 2\n")
	out, err := c.Compile(ctx, "pets", src, openapi.DefaultOptions())
	require.NoError(t, err)
	assert.Contains(t, out, "version: 2")
	assert.Equal(t, int64(2), compiler.calls.Load())

	after := artifacts(t, dir)
	require.Len(t, after, 1)
	assert.NotEqual(t, before[0], after[0])

	// Changing options is a different fingerprint too.
	_, err = c.Compile(ctx, "pets", src, openapi.Options{Immutable: true})
	require.NoError(t, err)
	assert.Len(t, artifacts(t, dir), 1)
}

func TestCache_PrefixIsExact(t *testing.T) {
	ctx := context.Background()
	schemas, buildDir := t.TempDir(), t.TempDir()
	dir := Dir(buildDir, "open-fetch")

	c := New(buildDir, "open-fetch", &countingCompiler{})

	v2 := writeSchema(t, schemas, "pets-v2.yaml", "v2\n")
	_, err := c.Compile(ctx, "pets-v2", v2, openapi.DefaultOptions())
	require.NoError(t, err)

	pets := writeSchema(t, schemas, "pets.yaml", "v1\n")
	_, err = c.Compile(ctx, "pets", pets, openapi.DefaultOptions())
	require.NoError(t, err)
	writeSchema(t, schemas, "pets.yaml", "v1 changed\n")
	_, err = c.Compile(ctx, "pets", pets, openapi.DefaultOptions())
	require.NoError(t, err)

	names := artifacts(t, dir)
	require.Len(t, names, 2)
	var shorts []string
	for _, n := range names {
		e, ok := ParseArtifactName(n)
		require.True(t, ok, n)
		shorts = append(shorts, e.ShortName)
	}
	assert.ElementsMatch(t, []string{"pets", "pets-v2"}, shorts)
}

func TestCache_NonFileSourcesBypass(t *testing.T) {
	ctx := context.Background()
	store := sink.NewMemorySink()
	compiler := openapi.CompilerFunc(func(ctx context.Context, src openapi.Source, opts openapi.Options) (string, error) {
		return "export interface paths {}\n", nil
	})
	c := New(t.TempDir(), "open-fetch", compiler).WithStore(store)

	for range 3 {
		_, err := c.Compile(ctx, "remote", openapi.URLSource("https://example.com/openapi.json"), openapi.DefaultOptions())
		require.NoError(t, err)
		_, err = c.Compile(ctx, "inline", openapi.InlineSource([]byte(`{}`)), openapi.DefaultOptions())
		require.NoError(t, err)
	}
	assert.Empty(t, store.Files())
	assert.Equal(t, Stats{Compiles: 6}, c.Stats())
}

func TestCache_Errors(t *testing.T) {
	ctx := context.Background()
	schemas := t.TempDir()
	store := sink.NewMemorySink()

	boom := errors.New("boom")
	c := New("", "open-fetch", &countingCompiler{err: boom}).WithStore(store)

	_, err := c.Compile(ctx, "pets", openapi.FileSource(filepath.Join(schemas, "missing.yaml")), openapi.DefaultOptions())
	assert.ErrorIs(t, err, os.ErrNotExist)

	src := writeSchema(t, schemas, "pets.yaml", "x\n")
	_, err = c.Compile(ctx, "pets", src, openapi.DefaultOptions())
	assert.ErrorIs(t, err, boom)
	assert.Empty(t, store.Files(), "failed compiles are not cached")
}

// Concurrent compiles of the same artifact share one compiler call.
func TestCache_ConcurrentCompile(t *testing.T) {
	ctx := context.Background()
	src := writeSchema(t, t.TempDir(), "pets.yaml", "x\n")
	compiler := &countingCompiler{}
	c := New(t.TempDir(), "open-fetch", compiler)

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := c.Compile(ctx, "pets", src, openapi.DefaultOptions())
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
	assert.LessOrEqual(t, compiler.calls.Load(), int64(8))
	assert.GreaterOrEqual(t, compiler.calls.Load(), int64(1))

	entries, err := c.Entries(ctx)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestFingerprint(t *testing.T) {
	src := openapi.FileSource("/schemas/pets.yaml")
	opts := openapi.DefaultOptions()
	base := Fingerprint(src, opts, "open-fetch", "pets", []byte("a"))
	assert.Len(t, base, 64)
	assert.Equal(t, base, Fingerprint(src, opts, "open-fetch", "pets", []byte("a")))

	for name, fp := range map[string]string{
		"source":  Fingerprint(openapi.FileSource("/schemas/other.yaml"), opts, "open-fetch", "pets", []byte("a")),
		"options": Fingerprint(src, openapi.Options{}, "open-fetch", "pets", []byte("a")),
		"module":  Fingerprint(src, opts, "other", "pets", []byte("a")),
		"short":   Fingerprint(src, opts, "open-fetch", "pets2", []byte("a")),
		"data":    Fingerprint(src, opts, "open-fetch", "pets", []byte("b")),
		"shifted": Fingerprint(src, opts, "open-fetc", "hpets", []byte("a")),
	} {
		assert.NotEqual(t, base, fp, name)
	}
}

func TestParseArtifactName(t *testing.T) {
	fp := strings.Repeat("ab", 32)
	e, ok := ParseArtifactName("pets-v2-" + fp + ".ts")
	require.True(t, ok)
	assert.Equal(t, "pets-v2", e.ShortName)
	assert.Equal(t, fp, e.Fingerprint)

	for _, name := range []string{
		"pets.ts",
		"pets-" + fp + ".js",
		"pets-" + strings.ToUpper(fp) + ".ts",
		"pets-" + fp[:63] + ".ts",
		"-" + fp + ".ts",
	} {
		_, ok := ParseArtifactName(name)
		assert.False(t, ok, name)
	}
}
