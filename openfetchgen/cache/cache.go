// Package cache stores compiled schema declarations on disk, keyed by a
// fingerprint of everything that affects the output.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"

	"golang.org/x/sync/singleflight"

	"github.com/broady/openfetch/openfetchgen/openapi"
	"github.com/broady/openfetch/openfetchgen/sink"
)

const artifactExt = ".ts"

// Entry is one cached artifact.
type Entry struct {
	// ShortName is the client name the artifact was compiled for.
	ShortName string

	// Fingerprint is the hex-encoded sha256 fingerprint.
	Fingerprint string

	// Path is the artifact name relative to the cache directory.
	Path string
}

// Stats counts cache activity.
type Stats struct {
	Hits     int64
	Misses   int64
	Compiles int64
}

// Cache compiles schemas through a Compiler, reusing artifacts for file
// sources whose fingerprint is unchanged. Only the newest artifact per short
// name is kept.
type Cache struct {
	store      sink.Store
	compiler   openapi.Compiler
	moduleName string
	logger     *slog.Logger
	group      singleflight.Group

	hits, misses, compiles atomic.Int64
}

// New returns a Cache storing artifacts under <buildCacheDir>/<moduleName>.
func New(buildCacheDir, moduleName string, compiler openapi.Compiler) *Cache {
	return &Cache{
		store:      sink.NewFilesystemSink(Dir(buildCacheDir, moduleName)),
		compiler:   compiler,
		moduleName: moduleName,
	}
}

// Dir returns the cache directory for moduleName.
func Dir(buildCacheDir, moduleName string) string {
	return filepath.Join(buildCacheDir, moduleName)
}

// WithStore replaces the artifact store.
func (c *Cache) WithStore(store sink.Store) *Cache {
	c.store = store
	return c
}

// WithLogger sets the logger for cache activity.
func (c *Cache) WithLogger(logger *slog.Logger) *Cache {
	c.logger = logger
	return c
}

func (c *Cache) getLogger() *slog.Logger {
	if c.logger != nil {
		return c.logger
	}
	return slog.Default()
}

// Stats returns a snapshot of the counters.
func (c *Cache) Stats() Stats {
	return Stats{
		Hits:     c.hits.Load(),
		Misses:   c.misses.Load(),
		Compiles: c.compiles.Load(),
	}
}

// Compile returns the declarations for src. Non-file sources are always
// compiled. File sources are served from the cache when an artifact with the
// same fingerprint exists; otherwise the result is stored and older artifacts
// for shortName are removed.
func (c *Cache) Compile(ctx context.Context, shortName string, src openapi.Source, opts openapi.Options) (string, error) {
	logger := c.getLogger().With("client", shortName, "source", src.String())

	if !src.IsFile() {
		logger.DebugContext(ctx, "schema cache bypassed", "kind", src.Kind.String())
		return c.compile(ctx, src, opts)
	}

	data, err := os.ReadFile(src.Path)
	if err != nil {
		return "", fmt.Errorf("read schema %s: %w", src.Path, err)
	}
	fp := Fingerprint(src, opts, c.moduleName, shortName, data)
	name := ArtifactName(shortName, fp)

	v, err, _ := c.group.Do(name, func() (any, error) {
		cached, err := c.store.ReadFile(ctx, name)
		if err == nil {
			c.hits.Add(1)
			logger.DebugContext(ctx, "schema cache hit", "artifact", name)
			return string(cached), nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("read cached schema %s: %w", name, err)
		}

		c.misses.Add(1)
		logger.DebugContext(ctx, "schema cache miss", "artifact", name)
		text, err := c.compile(ctx, src, opts)
		if err != nil {
			return "", err
		}
		if err := c.store.WriteFile(ctx, name, []byte(text)); err != nil {
			return "", fmt.Errorf("write cached schema %s: %w", name, err)
		}
		c.prune(ctx, logger, shortName, name)
		return text, nil
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

func (c *Cache) compile(ctx context.Context, src openapi.Source, opts openapi.Options) (string, error) {
	c.compiles.Add(1)
	return c.compiler.Compile(ctx, src, opts)
}

// prune removes every artifact for shortName except keep. Failures are
// logged and otherwise ignored.
func (c *Cache) prune(ctx context.Context, logger *slog.Logger, shortName, keep string) {
	entries, err := c.Entries(ctx)
	if err != nil {
		logger.DebugContext(ctx, "schema cache prune skipped", "error", err)
		return
	}
	for _, e := range entries {
		if e.ShortName != shortName || e.Path == keep {
			continue
		}
		if err := c.store.Remove(ctx, e.Path); err != nil {
			logger.DebugContext(ctx, "schema cache prune failed", "artifact", e.Path, "error", err)
			continue
		}
		logger.DebugContext(ctx, "schema cache pruned", "artifact", e.Path)
	}
}

// Entries lists the artifacts in the cache directory.
func (c *Cache) Entries(ctx context.Context) ([]Entry, error) {
	names, err := c.store.List(ctx, ".")
	if err != nil {
		return nil, err
	}
	var entries []Entry
	for _, name := range names {
		if e, ok := ParseArtifactName(name); ok {
			entries = append(entries, e)
		}
	}
	return entries, nil
}

// Fingerprint returns the hex sha256 over the source identity, the compiler
// options, the module name, the short name and the schema bytes.
func Fingerprint(src openapi.Source, opts openapi.Options, moduleName, shortName string, data []byte) string {
	h := sha256.New()
	for _, part := range [][]byte{
		[]byte(src.Identity()),
		opts.Fingerprint(),
		[]byte(moduleName),
		[]byte(shortName),
		data,
	} {
		// Length prefixes keep adjacent parts from running together.
		fmt.Fprintf(h, "%d:", len(part))
		h.Write(part)
	}
	return hex.EncodeToString(h.Sum(nil))
}

// ArtifactName returns "<shortName>-<fingerprint>.ts".
func ArtifactName(shortName, fingerprint string) string {
	return shortName + "-" + fingerprint + artifactExt
}

// ParseArtifactName reports whether name is an artifact and splits it. The
// fingerprint must be exactly 64 lower-case hex digits, so "pets-v2-<fp>.ts"
// is never taken for an artifact of "pets".
func ParseArtifactName(name string) (Entry, bool) {
	base, ok := strings.CutSuffix(name, artifactExt)
	if !ok || len(base) < 66 || base[len(base)-65] != '-' {
		return Entry{}, false
	}
	short, fp := base[:len(base)-65], base[len(base)-64:]
	for _, r := range fp {
		if (r < '0' || r > '9') && (r < 'a' || r > 'f') {
			return Entry{}, false
		}
	}
	return Entry{ShortName: short, Fingerprint: fp, Path: name}, true
}
