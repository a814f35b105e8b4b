package openfetch

import (
	"context"
	"net/http"
)

type contextKey struct {
	name string
}

var (
	serverKey  = &contextKey{"server"}
	requestKey = &contextKey{"request"}
)

// WithServerContext marks ctx as running inside the server that also hosts
// the local handler of a client. Fetches made with such a context may be
// served in-process (see [WithLocalHandler]).
func WithServerContext(ctx context.Context) context.Context {
	return context.WithValue(ctx, serverKey, true)
}

// IsServerContext reports whether ctx was created by [WithServerContext] or
// [ServerMiddleware].
func IsServerContext(ctx context.Context) bool {
	v, _ := ctx.Value(serverKey).(bool)
	return v
}

// RequestFromContext returns the incoming HTTP request stored by
// [ServerMiddleware], or nil.
func RequestFromContext(ctx context.Context) *http.Request {
	if r, ok := ctx.Value(requestKey).(*http.Request); ok {
		return r
	}
	return nil
}

// ServerMiddleware marks every request context as a server context so that
// handlers calling clients can take the local fast path.
func ServerMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := WithServerContext(r.Context())
		ctx = context.WithValue(ctx, requestKey, r)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
