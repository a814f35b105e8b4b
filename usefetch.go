package openfetch

import (
	"context"
	"encoding/hex"
	"fmt"
	"net/http"

	jsonv2 "github.com/go-json-experiment/json"
	"github.com/zeebo/xxh3"
)

// UseFetchOptions configures UseFetch. Method, Path values, Query and Body
// may be Refs; they are unwrapped when the key is computed and when the
// request is sent.
type UseFetchOptions struct {
	// Key replaces the derived key verbatim when set.
	Key string

	Method         any
	Path           map[string]any
	Query          any
	Body           any
	Accept         []string
	Headers        http.Header
	Header         map[string]string
	BodySerializer BodySerializer
	Hooks          Hooks

	// Lazy defers the fetch until Execute is called.
	Lazy bool

	// Watch refreshes the data whenever a Watchable input changes.
	Watch bool
}

// FetchKey derives the async data key of a request from the current values
// of its inputs. Equal plain values give equal keys regardless of which Refs
// they were read from.
func FetchKey(url, method, path, query, body any) string {
	shape := map[string]any{
		"url":    Unwrap(url),
		"method": Unwrap(method),
		"path":   Unwrap(path),
		"query":  Unwrap(query),
		"body":   Unwrap(body),
	}
	data, err := jsonv2.Marshal(shape, jsonv2.Deterministic(true))
	if err != nil {
		// Unencodable inputs still need a stable key.
		data = []byte(fmt.Sprintf("%#v", shape))
	}
	sum := xxh3.Hash128(data).Bytes()
	return "$openfetch:" + hex.EncodeToString(sum[:])
}

// UseFetch binds a fetch through client to store. url may be a string or a
// Ref yielding one.
func UseFetch[T any](ctx context.Context, store *Store, client *Client, url any, opts UseFetchOptions) *AsyncData[T] {
	keyFor := func() string {
		if opts.Key != "" {
			return opts.Key
		}
		return client.Name() + ":" + FetchKey(url, opts.Method, opts.Path, opts.Query, opts.Body)
	}
	fetch := func(ctx context.Context, _ string) (T, error) {
		return Do[T](ctx, client, fmt.Sprint(Unwrap(url)), opts.callOptions())
	}
	a := useAsyncData(ctx, store, keyFor(), fetch, AsyncDataOptions{Lazy: opts.Lazy})
	if opts.Watch {
		sources := collectWatchables(url, opts.Method, mapToAny(opts.Path), opts.Query, opts.Body)
		if len(sources) > 0 {
			go watchSources(ctx, sources, func() {
				if key := keyFor(); key != a.Key() {
					a.rekey(key)
				}
				_ = a.Refresh(ctx)
			})
		}
	}
	return a
}

// UseLazyFetch is UseFetch with Lazy set.
func UseLazyFetch[T any](ctx context.Context, store *Store, client *Client, url any, opts UseFetchOptions) *AsyncData[T] {
	opts.Lazy = true
	return UseFetch[T](ctx, store, client, url, opts)
}

func (o UseFetchOptions) callOptions() *Options {
	method, _ := Unwrap(o.Method).(string)
	var path map[string]any
	if o.Path != nil {
		path, _ = Unwrap(mapToAny(o.Path)).(map[string]any)
	}
	return &Options{
		Method:         method,
		Path:           path,
		Query:          Unwrap(o.Query),
		Body:           Unwrap(o.Body),
		Accept:         o.Accept,
		Headers:        o.Headers,
		Header:         o.Header,
		BodySerializer: o.BodySerializer,
		Hooks:          o.Hooks,
	}
}

func mapToAny(m map[string]any) any {
	if m == nil {
		return nil
	}
	return m
}

func collectWatchables(values ...any) []Watchable {
	var out []Watchable
	var walk func(v any)
	walk = func(v any) {
		switch t := v.(type) {
		case Watchable:
			out = append(out, t)
		case map[string]any:
			for _, k := range sortedKeys(t) {
				walk(t[k])
			}
		case []any:
			for _, item := range t {
				walk(item)
			}
		}
	}
	for _, v := range values {
		walk(v)
	}
	return out
}

// watchSources calls onChange after any source changes, until ctx is done.
func watchSources(ctx context.Context, sources []Watchable, onChange func()) {
	signal := make(chan struct{}, 1)
	for _, src := range sources {
		ch := src.Changes(ctx)
		go func() {
			for {
				select {
				case <-ctx.Done():
					return
				case <-ch:
					select {
					case signal <- struct{}{}:
					default:
					}
				}
			}
		}()
	}
	for {
		select {
		case <-ctx.Done():
			return
		case <-signal:
			onChange()
		}
	}
}
