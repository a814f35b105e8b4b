package openfetch

import (
	"fmt"
	"net/url"
	"strings"
)

// FillPath replaces each {name} placeholder in template with the escaped
// string form of params[name]. Placeholders without a value are left as-is.
func FillPath(template string, params map[string]any) string {
	if len(params) == 0 || !strings.Contains(template, "{") {
		return template
	}
	for _, name := range sortedKeys(params) {
		v := Unwrap(params[name])
		if v == nil {
			continue
		}
		template = strings.ReplaceAll(template, "{"+name+"}", url.PathEscape(fmt.Sprint(v)))
	}
	return template
}

// isRootRelative reports whether u is a path such as "/api/x" (and not a
// protocol-relative "//host/x" URL).
func isRootRelative(u string) bool {
	return strings.HasPrefix(u, "/") && !strings.HasPrefix(u, "//")
}

// hasProtocol reports whether u carries a scheme, e.g. "https://".
func hasProtocol(u string) bool {
	parsed, err := url.Parse(u)
	return err == nil && parsed.Scheme != "" && (parsed.Host != "" || parsed.Opaque != "")
}

// joinBase prefixes u with base unless u is already absolute or already
// starts with base.
func joinBase(base, u string) string {
	if base == "" || base == "/" || hasProtocol(u) {
		return u
	}
	trimmed := strings.TrimSuffix(base, "/")
	if u == trimmed || strings.HasPrefix(u, trimmed+"/") || strings.HasPrefix(u, trimmed+"?") {
		return u
	}
	if u == "" {
		return trimmed
	}
	return trimmed + "/" + strings.TrimPrefix(u, "/")
}

// withQuery appends q to u, merging with any query already present.
func withQuery(u string, q url.Values) string {
	if len(q) == 0 {
		return u
	}
	base, existing, _ := strings.Cut(u, "?")
	merged, err := url.ParseQuery(existing)
	if err != nil {
		merged = url.Values{}
	}
	for k, v := range q {
		merged[k] = v
	}
	return base + "?" + merged.Encode()
}
