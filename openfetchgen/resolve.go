package openfetchgen

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/broady/openfetch/openfetchgen/openapi"
)

// schemaExtensions are probed in order for conventional schema files.
var schemaExtensions = []string{"json", "yaml", "yml"}

// ResolutionError reports a client for which no layer supplies a schema.
type ResolutionError struct {
	Name   string
	Layers []string
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("no schema found for client %q (searched layers: %s)", e.Name, strings.Join(e.Layers, ", "))
}

// ResolvedClient is a client with its schema source and merged public
// configuration. It is produced once per name per build.
type ResolvedClient struct {
	Name           string
	Pascal         string
	Composable     string
	LazyComposable string
	FetchProperty  string

	// Client and Server report whether any layer declares the name under
	// clients or servers.
	Client bool
	Server bool

	Source  openapi.Source
	Options openapi.Options

	// Config and ServerConfig are the merged clients and servers entries,
	// with the schema stripped.
	Config       ClientConfig
	ServerConfig ClientConfig

	// Layer is the root directory of the layer that supplied the schema.
	Layer string
}

// Resolve finds the schema source of every client declared in layers,
// ordered highest priority first. The first layer that supplies a schema
// wins; layers without one defer to later layers.
func Resolve(layers []Layer) ([]ResolvedClient, error) {
	opts := openapi.DefaultOptions()
	for _, l := range layers {
		if l.Compiler != nil {
			opts = *l.Compiler
			break
		}
	}

	names := map[string]bool{}
	for _, l := range layers {
		for name := range l.Clients {
			names[name] = true
		}
		for name := range l.Servers {
			names[name] = true
		}
	}
	sorted := make([]string, 0, len(names))
	for name := range names {
		sorted = append(sorted, name)
	}
	sort.Strings(sorted)

	resolved := make([]ResolvedClient, 0, len(sorted))
	for _, name := range sorted {
		rc := newResolvedClient(name)
		rc.Options = opts
		rc.Config, rc.Client = mergeLayers(layers, name, clientsOf)
		rc.ServerConfig, rc.Server = mergeLayers(layers, name, serversOf)

		found := false
		for _, l := range layers {
			src, ok, err := layerSource(l, name)
			if err != nil {
				return nil, fmt.Errorf("client %q: %w", name, err)
			}
			if ok {
				rc.Source = src
				rc.Layer = l.RootDir
				found = true
				break
			}
		}
		if !found {
			roots := make([]string, len(layers))
			for i, l := range layers {
				roots[i] = l.RootDir
			}
			return nil, &ResolutionError{Name: name, Layers: roots}
		}
		resolved = append(resolved, rc)
	}
	return resolved, nil
}

// layerSource returns the schema source layer l supplies for name: an
// explicit schema on its clients or servers entry, else a conventional file.
func layerSource(l Layer, name string) (openapi.Source, bool, error) {
	for _, m := range []map[string]ClientConfig{l.Clients, l.Servers} {
		cfg, ok := m[name]
		if !ok || cfg.Schema == nil {
			continue
		}
		src, err := explicitSource(l.RootDir, cfg.Schema)
		return src, err == nil, err
	}

	dir := filepath.Join(l.schemaDir(), name)
	for _, ext := range schemaExtensions {
		path := filepath.Join(dir, "openapi."+ext)
		info, err := os.Stat(path)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return openapi.Source{}, false, err
		}
		if info.Mode().IsRegular() {
			return openapi.FileSource(path), true, nil
		}
	}
	return openapi.Source{}, false, nil
}

// explicitSource converts a configured schema value.
func explicitSource(root string, schema any) (openapi.Source, error) {
	switch v := schema.(type) {
	case string:
		if v == "" {
			return openapi.Source{}, errors.New("empty schema")
		}
		if u, err := url.Parse(v); err == nil && u.Scheme != "" {
			if u.Scheme == "file" {
				return openapi.FileSource(u.Path), nil
			}
			if u.Host != "" {
				return openapi.URLSource(v), nil
			}
		}
		if !filepath.IsAbs(v) {
			v = filepath.Join(root, v)
		}
		return openapi.FileSource(v), nil
	case map[string]any, map[any]any:
		data, err := json.Marshal(normalizeYAML(v))
		if err != nil {
			return openapi.Source{}, fmt.Errorf("encode inline schema: %w", err)
		}
		return openapi.InlineSource(data), nil
	default:
		return openapi.Source{}, fmt.Errorf("schema must be a string or a mapping, got %T", schema)
	}
}

// normalizeYAML converts decoded YAML into values encoding/json accepts.
// Mapping keys that are not strings (such as unquoted status codes) are
// formatted with fmt.
func normalizeYAML(v any) any {
	switch v := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(v))
		for k, val := range v {
			out[k] = normalizeYAML(val)
		}
		return out
	case map[any]any:
		out := make(map[string]any, len(v))
		for k, val := range v {
			out[fmt.Sprint(k)] = normalizeYAML(val)
		}
		return out
	case []any:
		out := make([]any, len(v))
		for i, val := range v {
			out[i] = normalizeYAML(val)
		}
		return out
	default:
		return v
	}
}

// PascalCase splits name on '-', '_', '.' and spaces and title-cases each
// segment: "pets-api" becomes "PetsApi".
func PascalCase(name string) string {
	parts := strings.FieldsFunc(name, func(r rune) bool {
		return r == '-' || r == '_' || r == '.' || r == ' '
	})
	caser := cases.Title(language.Und, cases.NoLower)
	var sb strings.Builder
	for _, p := range parts {
		sb.WriteString(caser.String(p))
	}
	return sb.String()
}

func newResolvedClient(name string) ResolvedClient {
	pascal := PascalCase(name)
	return ResolvedClient{
		Name:           name,
		Pascal:         pascal,
		Composable:     "use" + pascal,
		LazyComposable: "useLazy" + pascal,
		FetchProperty:  "$" + name,
	}
}
