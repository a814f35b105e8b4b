package openfetchgen

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"maps"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/broady/openfetch/openfetchgen/openapi"
)

// LayerFile is the configuration file name looked up in each layer
// directory.
const LayerFile = "openfetch.yaml"

// DefaultSchemaDir is the directory, relative to a layer root, probed for
// conventional schema files.
const DefaultSchemaDir = "openapi"

// ClientConfig configures one client in a layer.
type ClientConfig struct {
	// Schema is a URL, a path relative to the layer root, or an inline
	// OpenAPI document (a mapping). Nil means the schema is looked up by
	// convention.
	Schema any `yaml:"schema,omitempty" json:"schema,omitempty"`

	BaseURL string            `yaml:"baseURL,omitempty" json:"baseURL,omitempty" validate:"omitempty,baseurl"`
	Query   map[string]string `yaml:"query,omitempty" json:"query,omitempty"`
	Headers map[string]string `yaml:"headers,omitempty" json:"headers,omitempty"`
}

// Layer is one configuration directory. The project is a layer; so is each
// base it extends.
type Layer struct {
	// RootDir is the layer directory. Relative schema paths resolve
	// against it.
	RootDir string `yaml:"-" json:"-" validate:"required"`

	// SchemaDir is probed for <SchemaDir>/<name>/openapi.{json,yaml,yml}.
	// Relative to RootDir. Defaults to DefaultSchemaDir.
	SchemaDir string `yaml:"schemaDir,omitempty" json:"schemaDir,omitempty"`

	// Extends lists base layer directories, relative to RootDir, in
	// priority order.
	Extends []string `yaml:"extends,omitempty" json:"extends,omitempty"`

	Clients map[string]ClientConfig `yaml:"clients,omitempty" json:"clients,omitempty" validate:"dive,keys,clientname,endkeys"`
	Servers map[string]ClientConfig `yaml:"servers,omitempty" json:"servers,omitempty" validate:"dive,keys,clientname,endkeys"`

	// Compiler sets the compiler options. The highest-priority layer that
	// sets them wins.
	Compiler *openapi.Options `yaml:"compiler,omitempty" json:"compiler,omitempty"`
}

// schemaDir returns the absolute schema directory.
func (l Layer) schemaDir() string {
	dir := l.SchemaDir
	if dir == "" {
		dir = DefaultSchemaDir
	}
	if filepath.IsAbs(dir) {
		return dir
	}
	return filepath.Join(l.RootDir, dir)
}

type layerFile struct {
	OpenFetch Layer `yaml:"openFetch"`
}

// LoadLayer reads <dir>/openfetch.yaml. A directory without the file is a
// layer that relies on schema conventions only.
func LoadLayer(dir string) (Layer, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return Layer{}, err
	}
	layer := Layer{RootDir: abs}

	data, err := os.ReadFile(filepath.Join(abs, LayerFile))
	if errors.Is(err, fs.ErrNotExist) {
		return layer, nil
	}
	if err != nil {
		return Layer{}, fmt.Errorf("read layer: %w", err)
	}

	var file layerFile
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil && !errors.Is(err, io.EOF) {
		return Layer{}, fmt.Errorf("parse %s: %w", filepath.Join(abs, LayerFile), err)
	}
	layer = file.OpenFetch
	layer.RootDir = abs
	return layer, nil
}

// LoadLayers loads the layer in dir followed by the layers it extends,
// depth first, highest priority first. A layer reached twice is loaded once.
func LoadLayers(dir string) ([]Layer, error) {
	var (
		layers []Layer
		seen   = map[string]bool{}
	)
	var visit func(dir string) error
	visit = func(dir string) error {
		abs, err := filepath.Abs(dir)
		if err != nil {
			return err
		}
		if seen[abs] {
			return nil
		}
		seen[abs] = true

		layer, err := LoadLayer(abs)
		if err != nil {
			return err
		}
		layers = append(layers, layer)
		for _, base := range layer.Extends {
			if !filepath.IsAbs(base) {
				base = filepath.Join(abs, base)
			}
			if err := visit(base); err != nil {
				return err
			}
		}
		return nil
	}
	if err := visit(dir); err != nil {
		return nil, err
	}
	return layers, nil
}

// mergeClientConfig folds higher over lower: set scalar fields win and maps
// merge key by key with higher winning. The schema is never merged.
func mergeClientConfig(lower, higher ClientConfig) ClientConfig {
	out := ClientConfig{
		BaseURL: lower.BaseURL,
		Query:   mergeStringMaps(lower.Query, higher.Query),
		Headers: mergeStringMaps(lower.Headers, higher.Headers),
	}
	if higher.BaseURL != "" {
		out.BaseURL = higher.BaseURL
	}
	return out
}

func mergeStringMaps(lower, higher map[string]string) map[string]string {
	if len(lower) == 0 && len(higher) == 0 {
		return nil
	}
	out := make(map[string]string, len(lower)+len(higher))
	maps.Copy(out, lower)
	maps.Copy(out, higher)
	return out
}

// mergeLayers reduces the entries for name across layers, leaf to root.
// pick selects the clients or servers map of a layer. ok reports whether
// any layer declares name.
func mergeLayers(layers []Layer, name string, pick func(Layer) map[string]ClientConfig) (merged ClientConfig, ok bool) {
	for i := len(layers) - 1; i >= 0; i-- {
		cfg, declared := pick(layers[i])[name]
		if !declared {
			continue
		}
		merged = mergeClientConfig(merged, cfg)
		ok = true
	}
	return merged, ok
}

func clientsOf(l Layer) map[string]ClientConfig { return l.Clients }
func serversOf(l Layer) map[string]ClientConfig { return l.Servers }
