// Package openfetch is the runtime half of openfetch: a named HTTP client
// whose calls follow the shape of generated OpenAPI bindings.
//
// A call names a path template and an [Options] value:
//
//	res, err := pets.Fetch(ctx, "/pet/{petId}", &openfetch.Options{
//	    Path:   map[string]any{"petId": 1},
//	    Accept: []string{"application/vnd.petstore.v2+json"},
//	})
//
// The client merges its base options, fills path parameters, negotiates the
// Accept header, serializes the body, runs lifecycle hooks and hands the
// request to its transport.
package openfetch

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// Doer sends an HTTP request. *http.Client satisfies it.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client dispatches fetch calls for one named API binding.
// A Client is immutable after construction and safe for concurrent use.
type Client struct {
	name   string
	base   BaseOptions
	doer   Doer
	local  http.Handler
	hooks  *HookBus
	logger *slog.Logger
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithBaseOptions sets a function producing per-call base options.
func WithBaseOptions(fn BaseOptions) ClientOption {
	return func(c *Client) { c.base = fn }
}

// WithOptions sets static base options.
func WithOptions(opts Options) ClientOption {
	return WithBaseOptions(StaticOptions(opts))
}

// WithDoer sets the global transport. Defaults to http.DefaultClient.
func WithDoer(d Doer) ClientOption {
	return func(c *Client) { c.doer = d }
}

// WithLocalHandler sets the handler used for root-relative calls made from
// a server context. Such calls never leave the process.
func WithLocalHandler(h http.Handler) ClientOption {
	return func(c *Client) { c.local = h }
}

// WithHookBus attaches the bus whose global and per-client channels run
// around every call.
func WithHookBus(b *HookBus) ClientOption {
	return func(c *Client) { c.hooks = b }
}

// WithLogger sets a custom logger. If not set, slog.Default() is used.
func WithLogger(l *slog.Logger) ClientOption {
	return func(c *Client) { c.logger = l }
}

// NewClient creates a client named name.
func NewClient(name string, opts ...ClientOption) *Client {
	c := &Client{name: name}
	for _, opt := range opts {
		opt(c)
	}
	if c.doer == nil {
		c.doer = http.DefaultClient
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	return c
}

// Name returns the client name.
func (c *Client) Name() string { return c.name }

// Fetch performs one call. The returned error is a *FetchError for
// transport failures and for responses with status >= 400; the response is
// returned alongside status errors.
func (c *Client) Fetch(ctx context.Context, path string, call *Options) (*Response, error) {
	start := time.Now()
	if call == nil {
		call = &Options{}
	}
	var base Options
	if c.base != nil {
		base = c.base(*call)
	}
	opts := mergeOptions(base, *call)
	if len(opts.Accept) > 0 {
		opts.Headers.Set("Accept", strings.Join(opts.Accept, ", "))
	}

	query, err := resolveQuery(base.Query, call.Query)
	if err != nil {
		return nil, err
	}
	opts.Query = query

	method := strings.ToUpper(opts.Method)
	if method == "" {
		method = http.MethodGet
	}
	opts.Method = method

	body, contentType, err := encodeBody(opts.Body, opts.BodySerializer)
	if err != nil {
		return nil, err
	}
	if contentType != "" && opts.Headers.Get("Content-Type") == "" {
		opts.Headers.Set("Content-Type", contentType)
	}

	filled := FillPath(path, opts.Path)
	target := withQuery(joinBase(opts.BaseURL, filled), query)
	local := c.local != nil && IsServerContext(ctx) && isRootRelative(filled) &&
		(opts.BaseURL == "" || isRootRelative(opts.BaseURL))

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return nil, newTransportError(c.name, method, target, err)
	}
	req.Header = opts.Headers

	fc := &FetchContext{Client: c.name, Kind: HookRequest, Started: start, Request: req, Options: &opts}
	if err := c.hooks.Fire(ctx, fc, opts.Hooks.OnRequest); err != nil {
		return nil, err
	}

	c.logger.DebugContext(ctx, "fetch",
		slog.String("client", c.name),
		slog.String("method", method),
		slog.String("url", target),
		slog.Bool("local", local))

	res, err := c.roundTrip(fc.Request, local)
	if err != nil {
		fe := newTransportError(c.name, method, target, err)
		fc.Kind, fc.Error = HookRequestError, fe
		if herr := c.hooks.Fire(ctx, fc, opts.Hooks.OnRequestError); herr != nil {
			return nil, herr
		}
		return nil, fe
	}

	fc.Kind, fc.Response = HookResponse, res
	if err := c.hooks.Fire(ctx, fc, opts.Hooks.OnResponse); err != nil {
		return res, err
	}
	if !res.OK() {
		fe := newStatusError(c.name, res)
		fc.Kind, fc.Error = HookResponseError, fe
		if herr := c.hooks.Fire(ctx, fc, opts.Hooks.OnResponseError); herr != nil {
			return res, herr
		}
		return res, fe
	}
	return res, nil
}

func (c *Client) roundTrip(req *http.Request, local bool) (*Response, error) {
	var hres *http.Response
	if local {
		hres = serveLocal(c.local, req)
	} else {
		var err error
		hres, err = c.doer.Do(req)
		if err != nil {
			return nil, err
		}
	}
	defer hres.Body.Close()
	data, err := io.ReadAll(hres.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	return &Response{
		Method:    req.Method,
		URL:       req.URL.String(),
		Status:    hres.StatusCode,
		Header:    hres.Header,
		MediaType: parseMediaType(hres.Header.Get("Content-Type")),
		Body:      data,
	}, nil
}

// Do performs a call and decodes a successful response into T.
func Do[T any](ctx context.Context, c *Client, path string, opts *Options) (T, error) {
	var out T
	res, err := c.Fetch(ctx, path, opts)
	if err != nil {
		return out, err
	}
	if err := res.Decode(&out); err != nil {
		return out, err
	}
	return out, nil
}

// localAddr is the RemoteAddr of requests served by the local handler.
const localAddr = "127.0.0.1:0"

// serveLocal runs req through h the way a server would receive it and
// returns the recorded response.
func serveLocal(h http.Handler, outbound *http.Request) *http.Response {
	req := outbound.Clone(outbound.Context())
	if req.Body == nil {
		req.Body = http.NoBody
	}
	req.RequestURI = req.URL.RequestURI()
	if req.Host == "" {
		req.Host = "localhost"
	}
	req.RemoteAddr = localAddr

	w := &localResponse{header: make(http.Header)}
	h.ServeHTTP(w, req)
	if w.status == 0 {
		w.status = http.StatusOK
	}
	return &http.Response{
		Status:        fmt.Sprintf("%d %s", w.status, http.StatusText(w.status)),
		StatusCode:    w.status,
		Proto:         "HTTP/1.1",
		ProtoMajor:    1,
		ProtoMinor:    1,
		Header:        w.header,
		Body:          io.NopCloser(&w.body),
		ContentLength: int64(w.body.Len()),
		Request:       outbound,
	}
}

// localResponse is the http.ResponseWriter handed to the local handler.
type localResponse struct {
	header http.Header
	status int
	body   bytes.Buffer
}

func (w *localResponse) Header() http.Header { return w.header }

func (w *localResponse) WriteHeader(status int) {
	if w.status == 0 {
		w.status = status
	}
}

func (w *localResponse) Write(p []byte) (int, error) {
	if w.status == 0 {
		w.WriteHeader(http.StatusOK)
	}
	return w.body.Write(p)
}
