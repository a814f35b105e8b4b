package openfetch

import (
	"maps"
	"net/http"
	"slices"
)

// Options describes a single fetch call. The zero value is a GET with no
// parameters.
//
// Path holds values for {name} placeholders in the request path. Query may be
// a map[string]string, map[string][]string, url.Values, map[string]any or a
// struct with `schema` tags. Header is a shorthand for a single-valued header
// map; it is folded into Headers before dispatch.
type Options struct {
	Method         string
	BaseURL        string
	Path           map[string]any
	Query          any
	Body           any
	Accept         []string
	Headers        http.Header
	Header         map[string]string
	BodySerializer BodySerializer
	Hooks          Hooks
}

// BaseOptions produces the options a client applies to every call. It
// receives the per-call options so base values can depend on them.
type BaseOptions func(call Options) Options

// StaticOptions returns BaseOptions that always yield opts.
func StaticOptions(opts Options) BaseOptions {
	return func(Options) Options { return opts }
}

// mergeOptions merges call over base. Scalars set on call win; header and
// path maps merge key by key with call winning; queries are merged by
// resolveQuery at dispatch time. Hooks of a kind the call leaves empty fall
// back to the base hooks of that kind.
//
// The Header shorthand of each side is folded into that side's Headers
// before merging, so the result carries Headers only.
func mergeOptions(base, call Options) Options {
	out := base
	if call.Method != "" {
		out.Method = call.Method
	}
	if call.BaseURL != "" {
		out.BaseURL = call.BaseURL
	}
	if call.Body != nil {
		out.Body = call.Body
	}
	if len(call.Accept) > 0 {
		out.Accept = call.Accept
	}
	if call.BodySerializer != nil {
		out.BodySerializer = call.BodySerializer
	}
	out.Path = mergeMaps(base.Path, call.Path)
	out.Header = nil
	out.Headers = mergeHeaders(foldHeader(base), foldHeader(call))
	out.Query = call.Query
	out.Hooks = mergeHooks(base.Hooks, call.Hooks)
	return out
}

// foldHeader returns a copy of opts.Headers with the Header shorthand
// applied over it.
func foldHeader(opts Options) http.Header {
	h := mergeHeaders(opts.Headers, nil)
	for _, k := range sortedKeys(opts.Header) {
		h.Set(k, opts.Header[k])
	}
	return h
}

func mergeHooks(base, call Hooks) Hooks {
	pick := func(b, c []Hook) []Hook {
		if len(c) > 0 {
			return c
		}
		return b
	}
	return Hooks{
		OnRequest:       pick(base.OnRequest, call.OnRequest),
		OnRequestError:  pick(base.OnRequestError, call.OnRequestError),
		OnResponse:      pick(base.OnResponse, call.OnResponse),
		OnResponseError: pick(base.OnResponseError, call.OnResponseError),
	}
}

func mergeMaps[V any](base, over map[string]V) map[string]V {
	if len(base) == 0 && len(over) == 0 {
		return nil
	}
	out := make(map[string]V, len(base)+len(over))
	maps.Copy(out, base)
	maps.Copy(out, over)
	return out
}

func mergeHeaders(base, over http.Header) http.Header {
	out := make(http.Header, len(base)+len(over))
	for k, v := range base {
		out[http.CanonicalHeaderKey(k)] = slices.Clone(v)
	}
	for k, v := range over {
		out[http.CanonicalHeaderKey(k)] = slices.Clone(v)
	}
	return out
}

func sortedKeys[V any](m map[string]V) []string {
	return slices.Sorted(maps.Keys(m))
}
