package openapi

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"

	"github.com/broady/openfetch/openfetchgen/ir"
)

const componentSchemaPrefix = "#/components/schemas/"

// Build converts a loaded document into the IR. References to component
// schemas stay references; everything else is inlined.
func Build(doc *openapi3.T, opts Options) (*ir.Document, error) {
	b := &builder{opts: opts, inStack: make(map[*openapi3.Schema]bool)}
	out := &ir.Document{}
	if doc.Info != nil {
		out.Title = doc.Info.Title
		out.Version = doc.Info.Version
	}

	if doc.Components != nil {
		for _, name := range sortedKeys(doc.Components.Schemas) {
			out.Schemas = append(out.Schemas, ir.NamedSchema{
				Name: name,
				Type: b.schema(doc.Components.Schemas[name].Value, "#/components/schemas/"+name),
			})
		}
	}

	if doc.Paths != nil {
		paths := doc.Paths.Map()
		for _, p := range sortedKeys(paths) {
			item := ir.PathItem{Path: p}
			for _, method := range ir.Methods {
				op := paths[p].GetOperation(strings.ToUpper(method))
				if op == nil {
					continue
				}
				if op.Deprecated && opts.ExcludeDeprecated {
					continue
				}
				item.Operations = append(item.Operations, b.operation(method, p, paths[p], op))
			}
			if len(item.Operations) > 0 {
				out.Paths = append(out.Paths, item)
			}
		}
	}

	out.Warnings = b.warnings
	if errs := out.Validate(); len(errs) > 0 {
		return nil, fmt.Errorf("invalid document: %w", errors.Join(errs...))
	}
	return out, nil
}

type builder struct {
	opts     Options
	inStack  map[*openapi3.Schema]bool
	warnings []ir.Warning
}

func (b *builder) warn(code, pointer, format string, args ...any) {
	b.warnings = append(b.warnings, ir.Warning{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Pointer: pointer,
	})
}

func (b *builder) operation(method, path string, item *openapi3.PathItem, op *openapi3.Operation) *ir.Operation {
	pointer := "#/paths/" + escapePointer(path) + "/" + method
	out := &ir.Operation{
		Method:      method,
		OperationID: op.OperationID,
		Doc:         ir.Documentation{Summary: op.Summary, Body: op.Description, Deprecated: op.Deprecated},
	}

	// Operation parameters override path-level ones with the same name and
	// location.
	params := make(map[string]*openapi3.Parameter)
	var order []string
	for _, list := range []openapi3.Parameters{item.Parameters, op.Parameters} {
		for _, ref := range list {
			if ref == nil || ref.Value == nil {
				continue
			}
			key := ref.Value.In + ":" + ref.Value.Name
			if _, seen := params[key]; !seen {
				order = append(order, key)
			}
			params[key] = ref.Value
		}
	}
	for _, key := range order {
		p := params[key]
		if p.Deprecated && b.opts.ExcludeDeprecated {
			continue
		}
		out.Parameters = append(out.Parameters, ir.Parameter{
			Name:     p.Name,
			In:       ir.ParameterLocation(p.In),
			Required: p.Required || p.In == openapi3.ParameterInPath,
			Type:     b.parameterType(p, pointer),
			Doc:      ir.Documentation{Body: p.Description, Deprecated: p.Deprecated},
		})
	}

	if op.RequestBody != nil && op.RequestBody.Value != nil {
		out.RequestBody = &ir.RequestBody{
			Required: op.RequestBody.Value.Required,
			Content:  b.content(op.RequestBody.Value.Content, pointer+"/requestBody"),
		}
	}

	if op.Responses != nil {
		responses := op.Responses.Map()
		statuses := sortedKeys(responses)
		sort.SliceStable(statuses, func(i, j int) bool { return ir.StatusLess(statuses[i], statuses[j]) })
		for _, status := range statuses {
			ref := responses[status]
			if ref == nil || ref.Value == nil {
				continue
			}
			res := ir.Response{
				Status:  status,
				Content: b.content(ref.Value.Content, pointer+"/responses/"+status),
			}
			if ref.Value.Description != nil {
				res.Description = *ref.Value.Description
			}
			for _, name := range sortedKeys(ref.Value.Headers) {
				h := ref.Value.Headers[name]
				if h == nil || h.Value == nil {
					continue
				}
				res.Headers = append(res.Headers, ir.Parameter{
					Name:     name,
					In:       ir.InHeader,
					Required: h.Value.Required,
					Type:     b.parameterType(&h.Value.Parameter, pointer),
				})
			}
			out.Responses = append(out.Responses, res)
		}
	}
	return out
}

func (b *builder) parameterType(p *openapi3.Parameter, pointer string) ir.TypeDescriptor {
	if p.Schema != nil {
		return b.ref(p.Schema, pointer)
	}
	for _, mt := range sortedKeys(p.Content) {
		if c := p.Content[mt]; c != nil && c.Schema != nil {
			return b.ref(c.Schema, pointer)
		}
	}
	b.warn("parameter_without_schema", pointer, "parameter %s has no schema; typed as string", p.Name)
	return ir.String()
}

func (b *builder) content(content openapi3.Content, pointer string) []ir.MediaContent {
	var out []ir.MediaContent
	for _, mt := range sortedKeys(content) {
		c := content[mt]
		var td ir.TypeDescriptor = ir.Unknown()
		if c != nil && c.Schema != nil {
			td = b.ref(c.Schema, pointer+"/content/"+escapePointer(mt))
		}
		out = append(out, ir.MediaContent{MediaType: mt, Type: td})
	}
	return out
}

// ref converts a schema reference. Local component references become
// ir.Ref; anything else is inlined.
func (b *builder) ref(ref *openapi3.SchemaRef, pointer string) ir.TypeDescriptor {
	if ref == nil {
		return ir.Unknown()
	}
	if name, ok := strings.CutPrefix(ref.Ref, componentSchemaPrefix); ok && !strings.Contains(name, "/") {
		return ir.Ref(name)
	}
	if ref.Ref != "" {
		b.warn("external_reference", pointer, "reference %s inlined", ref.Ref)
	}
	return b.schema(ref.Value, pointer)
}

func (b *builder) schema(s *openapi3.Schema, pointer string) ir.TypeDescriptor {
	if s == nil {
		return ir.Unknown()
	}
	if b.inStack[s] {
		b.warn("recursive_inline_schema", pointer, "recursive inline schema typed as unknown")
		return ir.Unknown()
	}
	b.inStack[s] = true
	defer delete(b.inStack, s)

	td := b.schemaBody(s, pointer)
	if s.Nullable && !isNull(td) {
		td = ir.Nullable(td)
	}
	setDoc(td, ir.Documentation{Summary: s.Title, Body: s.Description, Deprecated: s.Deprecated})
	return td
}

func (b *builder) schemaBody(s *openapi3.Schema, pointer string) ir.TypeDescriptor {
	if len(s.Enum) > 0 {
		members := make([]ir.TypeDescriptor, 0, len(s.Enum))
		for _, v := range s.Enum {
			members = append(members, ir.Literal(v))
		}
		if len(members) == 1 {
			return members[0]
		}
		return ir.Union(members...)
	}

	if len(s.AllOf) > 0 {
		var parts []ir.TypeDescriptor
		for i, ref := range s.AllOf {
			parts = append(parts, b.ref(ref, fmt.Sprintf("%s/allOf/%d", pointer, i)))
		}
		if len(s.Properties) > 0 {
			parts = append(parts, b.object(s, pointer))
		}
		if len(parts) == 1 {
			return parts[0]
		}
		return ir.Intersection(parts...)
	}

	for kw, refs := range map[string]openapi3.SchemaRefs{"oneOf": s.OneOf, "anyOf": s.AnyOf} {
		if len(refs) == 0 {
			continue
		}
		var members []ir.TypeDescriptor
		for i, ref := range refs {
			members = append(members, b.ref(ref, fmt.Sprintf("%s/%s/%d", pointer, kw, i)))
		}
		if len(members) == 1 {
			return members[0]
		}
		return ir.Union(members...)
	}

	var types []string
	nullable := false
	if s.Type != nil {
		for _, t := range *s.Type {
			if t == openapi3.TypeNull {
				nullable = true
				continue
			}
			types = append(types, t)
		}
	}

	var td ir.TypeDescriptor
	switch len(types) {
	case 0:
		switch {
		case nullable:
			return ir.Null()
		case len(s.Properties) > 0 || s.AdditionalProperties.Has != nil || s.AdditionalProperties.Schema != nil:
			td = b.object(s, pointer)
		case s.Items != nil:
			td = ir.Array(b.ref(s.Items, pointer+"/items"))
		default:
			td = ir.Unknown()
		}
	case 1:
		td = b.typed(s, types[0], pointer)
	default:
		var members []ir.TypeDescriptor
		for _, t := range types {
			members = append(members, b.typed(s, t, pointer))
		}
		td = ir.Union(members...)
	}
	if nullable {
		td = ir.Nullable(td)
	}
	return td
}

func (b *builder) typed(s *openapi3.Schema, t, pointer string) ir.TypeDescriptor {
	switch t {
	case openapi3.TypeString:
		if s.Format == "binary" {
			return &ir.PrimitiveDescriptor{PrimitiveKind: ir.PrimitiveBinary, Format: s.Format}
		}
		return &ir.PrimitiveDescriptor{PrimitiveKind: ir.PrimitiveString, Format: s.Format}
	case openapi3.TypeInteger, openapi3.TypeNumber:
		return &ir.PrimitiveDescriptor{PrimitiveKind: ir.PrimitiveNumber, Format: s.Format}
	case openapi3.TypeBoolean:
		return ir.Boolean()
	case openapi3.TypeArray:
		return ir.Array(b.ref(s.Items, pointer+"/items"))
	case openapi3.TypeObject:
		return b.object(s, pointer)
	}
	b.warn("unknown_type", pointer, "unknown schema type %q typed as unknown", t)
	return ir.Unknown()
}

func (b *builder) object(s *openapi3.Schema, pointer string) ir.TypeDescriptor {
	required := make(map[string]bool, len(s.Required))
	for _, name := range s.Required {
		required[name] = true
	}

	obj := &ir.ObjectDescriptor{}
	for _, name := range sortedKeys(s.Properties) {
		ref := s.Properties[name]
		var prop *openapi3.Schema
		if ref != nil {
			prop = ref.Value
		}
		if prop != nil && prop.Deprecated && b.opts.ExcludeDeprecated {
			continue
		}
		optional := !required[name]
		if optional && b.opts.DefaultNonNullable && prop != nil && prop.Default != nil {
			optional = false
		}
		field := ir.Field{
			Name:     name,
			Type:     b.ref(ref, pointer+"/properties/"+escapePointer(name)),
			Optional: optional,
		}
		if prop != nil {
			field.ReadOnly = prop.ReadOnly
			field.Doc = ir.Documentation{Summary: prop.Title, Body: prop.Description, Deprecated: prop.Deprecated}
		}
		obj.Fields = append(obj.Fields, field)
	}

	ap := s.AdditionalProperties
	switch {
	case ap.Schema != nil:
		obj.Additional = b.ref(ap.Schema, pointer+"/additionalProperties")
	case ap.Has != nil && *ap.Has:
		obj.Additional = ir.Unknown()
	case ap.Has == nil && b.opts.AdditionalProperties:
		obj.Additional = ir.Unknown()
	}

	if len(obj.Fields) == 0 {
		if obj.Additional != nil {
			return ir.Map(obj.Additional)
		}
		if b.opts.EmptyObjectsUnknown {
			return ir.Map(ir.Unknown())
		}
		return ir.Map(ir.Primitive(ir.PrimitiveNever))
	}
	return obj
}

func isNull(td ir.TypeDescriptor) bool {
	p, ok := td.(*ir.PrimitiveDescriptor)
	return ok && p.PrimitiveKind == ir.PrimitiveNull
}

// setDoc attaches documentation to descriptors that do not carry any yet.
func setDoc(td ir.TypeDescriptor, doc ir.Documentation) {
	if doc.IsZero() {
		return
	}
	switch d := td.(type) {
	case *ir.ObjectDescriptor:
		d.Documentation = doc
	case *ir.UnionDescriptor:
		d.Documentation = doc
	case *ir.IntersectionDescriptor:
		d.Documentation = doc
	case *ir.ArrayDescriptor:
		d.Documentation = doc
	case *ir.MapDescriptor:
		d.Documentation = doc
	case *ir.PrimitiveDescriptor:
		d.Documentation = doc
	case *ir.LiteralDescriptor:
		d.Documentation = doc
	}
}

// escapePointer escapes a JSON pointer segment.
func escapePointer(s string) string {
	return strings.ReplaceAll(strings.ReplaceAll(s, "~", "~0"), "/", "~1")
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
