package ir

import (
	"sort"
	"strings"
)

// Document is a compiled OpenAPI document.
type Document struct {
	Title   string
	Version string

	// Schemas are the component schemas, sorted by name.
	Schemas []NamedSchema

	// Paths are the path items, sorted by path template.
	Paths []PathItem

	// Warnings contains non-fatal issues encountered while compiling.
	Warnings []Warning
}

// NamedSchema is a component schema.
type NamedSchema struct {
	Name string
	Type TypeDescriptor
}

// PathItem groups the operations of one path template.
type PathItem struct {
	// Path is the template, e.g. "/pet/{petId}".
	Path string

	// Operations in method order (see Methods).
	Operations []*Operation
}

// Methods lists HTTP methods in emission order.
var Methods = []string{"get", "put", "post", "delete", "options", "head", "patch", "trace"}

// Operation is one method on one path.
type Operation struct {
	// Method is lower case.
	Method      string
	OperationID string
	Doc         Documentation
	Parameters  []Parameter
	RequestBody *RequestBody
	// Responses sorted by status: numeric codes first, then ranges such as
	// "4XX", then "default".
	Responses []Response
}

// ParameterLocation is where a parameter is sent.
type ParameterLocation string

const (
	InPath   ParameterLocation = "path"
	InQuery  ParameterLocation = "query"
	InHeader ParameterLocation = "header"
	InCookie ParameterLocation = "cookie"
)

// ParameterLocations lists locations in emission order.
var ParameterLocations = []ParameterLocation{InQuery, InHeader, InPath, InCookie}

// Parameter is an operation parameter.
type Parameter struct {
	Name     string
	In       ParameterLocation
	Required bool
	Type     TypeDescriptor
	Doc      Documentation
}

// RequestBody describes the accepted request payloads.
type RequestBody struct {
	Required bool
	Content  []MediaContent
}

// Response describes one response status.
type Response struct {
	// Status is "200", "4XX", "default", ...
	Status      string
	Description string
	Headers     []Parameter
	Content     []MediaContent
}

// MediaContent is the payload type for one media type.
type MediaContent struct {
	MediaType string
	Type      TypeDescriptor
}

// Operation returns the operation for path and method, or nil.
func (d *Document) Operation(path, method string) *Operation {
	method = strings.ToLower(method)
	for i := range d.Paths {
		if d.Paths[i].Path != path {
			continue
		}
		for _, op := range d.Paths[i].Operations {
			if op.Method == method {
				return op
			}
		}
	}
	return nil
}

// Schema returns the component schema named name, or nil.
func (d *Document) Schema(name string) TypeDescriptor {
	i := sort.Search(len(d.Schemas), func(i int) bool { return d.Schemas[i].Name >= name })
	if i < len(d.Schemas) && d.Schemas[i].Name == name {
		return d.Schemas[i].Type
	}
	return nil
}

// ParametersIn returns the parameters sent in loc.
func (o *Operation) ParametersIn(loc ParameterLocation) []Parameter {
	var out []Parameter
	for _, p := range o.Parameters {
		if p.In == loc {
			out = append(out, p)
		}
	}
	return out
}

// Response returns the response for status, or nil.
func (o *Operation) Response(status string) *Response {
	for i := range o.Responses {
		if o.Responses[i].Status == status {
			return &o.Responses[i]
		}
	}
	return nil
}

// ResponseType returns the payload type of the response for status,
// narrowed to the media types in accept. It mirrors what a caller sending
// that Accept header can expect: the union of the matching content types.
// An empty accept list selects every media type. Entries may use the
// "type/*" and "*/*" wildcards. It returns nil when nothing matches.
func (o *Operation) ResponseType(status string, accept []string) TypeDescriptor {
	res := o.Response(status)
	if res == nil {
		return nil
	}
	var types []TypeDescriptor
	for _, c := range res.Content {
		if len(accept) == 0 || acceptsMediaType(accept, c.MediaType) {
			types = append(types, c.Type)
		}
	}
	switch len(types) {
	case 0:
		return nil
	case 1:
		return types[0]
	}
	return Union(types...)
}

func acceptsMediaType(accept []string, mediaType string) bool {
	mt := strings.ToLower(mediaType)
	for _, a := range accept {
		a, _, _ = strings.Cut(strings.ToLower(strings.TrimSpace(a)), ";")
		a = strings.TrimSpace(a)
		switch {
		case a == mt, a == "*/*":
			return true
		case strings.HasSuffix(a, "/*"):
			if strings.HasPrefix(mt, strings.TrimSuffix(a, "*")) {
				return true
			}
		}
	}
	return false
}

// StatusLess orders response statuses: numeric codes first, then ranges
// such as "4XX", then "default".
func StatusLess(a, b string) bool {
	ra, rb := statusRank(a), statusRank(b)
	if ra != rb {
		return ra < rb
	}
	return a < b
}

func statusRank(s string) int {
	switch {
	case s == "default":
		return 2
	case strings.ContainsAny(s, "Xx"):
		return 1
	}
	return 0
}
