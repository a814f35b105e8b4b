package openfetch

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"unicode"

	"github.com/joho/godotenv"

	"github.com/broady/openfetch/internal/validate"
)

// ClientOptions are the public per-client options exposed at runtime.
// The schema source is stripped from them at generation time.
type ClientOptions struct {
	BaseURL string            `json:"baseURL,omitempty" validate:"omitempty,baseurl"`
	Query   map[string]string `json:"query,omitempty"`
	Headers map[string]string `json:"headers,omitempty"`
}

// Options converts c to base call options.
func (c ClientOptions) Options() Options {
	var query any
	if len(c.Query) > 0 {
		query = c.Query
	}
	return Options{
		BaseURL: c.BaseURL,
		Query:   query,
		Header:  c.Headers,
	}
}

// RuntimeConfig is the runtime configuration written by the generator to
// runtime-config.json. Clients are browser-facing; Servers are used for
// server-side calls and take precedence there.
type RuntimeConfig struct {
	Clients map[string]ClientOptions `json:"clients,omitempty" validate:"dive,keys,clientname,endkeys"`
	Servers map[string]ClientOptions `json:"servers,omitempty" validate:"dive,keys,clientname,endkeys"`
}

// Validate checks client names and base URLs.
func (c *RuntimeConfig) Validate() error {
	return validate.Struct(c)
}

// BaseURLEnv returns the environment variable that overrides the base URL
// of client name: OPEN_FETCH_<NAME>_BASE_URL, with name upper-cased and
// every character outside [A-Z0-9] replaced by an underscore.
func BaseURLEnv(name string) string {
	var sb strings.Builder
	for _, r := range strings.ToUpper(name) {
		if r < unicode.MaxASCII && (unicode.IsUpper(r) || unicode.IsDigit(r)) {
			sb.WriteRune(r)
		} else {
			sb.WriteByte('_')
		}
	}
	return "OPEN_FETCH_" + sb.String() + "_BASE_URL"
}

// ApplyEnv overrides base URLs from env, keyed as in BaseURLEnv.
func (c *RuntimeConfig) ApplyEnv(env map[string]string) {
	apply := func(m map[string]ClientOptions) {
		for name, opts := range m {
			if v, ok := env[BaseURLEnv(name)]; ok && v != "" {
				opts.BaseURL = v
				m[name] = opts
			}
		}
	}
	apply(c.Clients)
	apply(c.Servers)
}

// LoadRuntimeConfig reads a runtime-config.json file and applies base URL
// overrides. envFiles are read with godotenv; variables already present in
// the process environment win over the files.
func LoadRuntimeConfig(path string, envFiles ...string) (*RuntimeConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read runtime config: %w", err)
	}
	var cfg RuntimeConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse runtime config %s: %w", path, err)
	}

	env := map[string]string{}
	if len(envFiles) > 0 {
		fromFiles, err := godotenv.Read(envFiles...)
		if err != nil {
			return nil, fmt.Errorf("read env files: %w", err)
		}
		env = fromFiles
	}
	for _, kv := range os.Environ() {
		if k, v, ok := strings.Cut(kv, "="); ok && strings.HasPrefix(k, "OPEN_FETCH_") {
			env[k] = v
		}
	}
	cfg.ApplyEnv(env)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
