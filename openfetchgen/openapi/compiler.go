package openapi

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/getkin/kin-openapi/openapi3"

	"github.com/broady/openfetch/openfetchgen/ir"
	"github.com/broady/openfetch/openfetchgen/typescript"
)

// Compiler turns a schema source into TypeScript declarations.
type Compiler interface {
	Compile(ctx context.Context, src Source, opts Options) (string, error)
}

// CompilerFunc adapts a function to the Compiler interface.
type CompilerFunc func(ctx context.Context, src Source, opts Options) (string, error)

// Compile calls f.
func (f CompilerFunc) Compile(ctx context.Context, src Source, opts Options) (string, error) {
	return f(ctx, src, opts)
}

// KinCompiler loads documents with kin-openapi, builds the IR and prints it
// with the typescript package.
type KinCompiler struct {
	// HTTPClient fetches remote documents and external references.
	// Defaults to http.DefaultClient.
	HTTPClient *http.Client

	// AllowExternalRefs permits references to other files and URLs.
	AllowExternalRefs bool
}

// NewCompiler returns a KinCompiler that follows external references.
func NewCompiler() *KinCompiler {
	return &KinCompiler{AllowExternalRefs: true}
}

// Load reads and parses the document named by src.
func (c *KinCompiler) Load(ctx context.Context, src Source) (*openapi3.T, error) {
	httpClient := c.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	loader := openapi3.NewLoader()
	loader.Context = ctx
	loader.IsExternalRefsAllowed = c.AllowExternalRefs
	loader.ReadFromURIFunc = openapi3.ReadFromURIs(openapi3.ReadFromHTTP(httpClient), openapi3.ReadFromFile)

	var (
		doc *openapi3.T
		err error
	)
	switch src.Kind {
	case SourceInline:
		doc, err = loader.LoadFromData(src.Inline)
	case SourceURL:
		var u *url.URL
		if u, err = url.Parse(src.URL); err == nil {
			doc, err = loader.LoadFromURI(u)
		}
	case SourceFile:
		doc, err = loader.LoadFromFile(src.Path)
	default:
		err = fmt.Errorf("unsupported source kind %s", src.Kind)
	}
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", src, err)
	}
	return doc, nil
}

// Build loads src and converts it to the IR.
func (c *KinCompiler) Build(ctx context.Context, src Source, opts Options) (*ir.Document, error) {
	doc, err := c.Load(ctx, src)
	if err != nil {
		return nil, err
	}
	out, err := Build(doc, opts)
	if err != nil {
		return nil, fmt.Errorf("compile %s: %w", src, err)
	}
	return out, nil
}

// Compile implements Compiler.
func (c *KinCompiler) Compile(ctx context.Context, src Source, opts Options) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	doc, err := c.Build(ctx, src, opts)
	if err != nil {
		return "", err
	}
	text, err := typescript.Print(doc, typescript.Options{Immutable: opts.Immutable})
	if err != nil {
		return "", fmt.Errorf("print %s: %w", src, err)
	}
	return text, nil
}
