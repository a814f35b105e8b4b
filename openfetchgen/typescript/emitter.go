// Package typescript prints compiled OpenAPI documents and client bindings
// as TypeScript source.
package typescript

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/broady/openfetch/openfetchgen/ir"
)

// Header is written at the top of every generated file.
const Header = `/**
 * This file was auto-generated by openfetch.
 * Do not make direct changes to the file.
 */
`

const indentUnit = "    "

// Options control declaration printing.
type Options struct {
	// Immutable marks properties and arrays readonly.
	Immutable bool
}

// Print renders doc as the paths, webhooks, components and operations
// declarations of a schema module.
func Print(doc *ir.Document, opts Options) (string, error) {
	e := &Emitter{doc: doc, opts: opts}
	var buf bytes.Buffer
	buf.WriteString(Header)
	buf.WriteString("\n")
	if err := e.emitPaths(&buf); err != nil {
		return "", err
	}
	buf.WriteString("export type webhooks = Record<string, never>;\n")
	if err := e.emitComponents(&buf); err != nil {
		return "", err
	}
	buf.WriteString("export type $defs = Record<string, never>;\n")
	if err := e.emitOperations(&buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// Emitter handles TypeScript code emission for one document.
type Emitter struct {
	doc  *ir.Document
	opts Options
}

func (e *Emitter) emitPaths(buf *bytes.Buffer) error {
	buf.WriteString("export interface paths {\n")
	for _, item := range e.doc.Paths {
		writeIndent(buf, 1)
		buf.WriteString(quote(item.Path))
		buf.WriteString(": {\n")
		writeIndent(buf, 2)
		buf.WriteString("parameters: {\n")
		for _, loc := range ir.ParameterLocations {
			writeIndent(buf, 3)
			buf.WriteString(string(loc))
			buf.WriteString("?: never;\n")
		}
		writeIndent(buf, 2)
		buf.WriteString("};\n")

		byMethod := make(map[string]*ir.Operation, len(item.Operations))
		for _, op := range item.Operations {
			byMethod[op.Method] = op
		}
		for _, method := range ir.Methods {
			op, ok := byMethod[method]
			if !ok {
				writeIndent(buf, 2)
				buf.WriteString(method)
				buf.WriteString("?: never;\n")
				continue
			}
			if !op.Doc.IsZero() {
				e.emitJSDoc(buf, op.Doc, 2)
			}
			writeIndent(buf, 2)
			buf.WriteString(method)
			buf.WriteString(": ")
			if op.OperationID != "" {
				buf.WriteString("operations[")
				buf.WriteString(quote(op.OperationID))
				buf.WriteString("];\n")
				continue
			}
			if err := e.emitOperation(buf, op, 2); err != nil {
				return fmt.Errorf("%s %s: %w", strings.ToUpper(method), item.Path, err)
			}
			buf.WriteString(";\n")
		}
		writeIndent(buf, 1)
		buf.WriteString("};\n")
	}
	buf.WriteString("}\n")
	return nil
}

func (e *Emitter) emitComponents(buf *bytes.Buffer) error {
	buf.WriteString("export interface components {\n")
	writeIndent(buf, 1)
	if len(e.doc.Schemas) == 0 {
		buf.WriteString("schemas: never;\n")
	} else {
		buf.WriteString("schemas: {\n")
		for _, s := range e.doc.Schemas {
			if doc := s.Type.Doc(); !doc.IsZero() {
				e.emitJSDoc(buf, doc, 2)
			}
			writeIndent(buf, 2)
			e.emitKey(buf, s.Name, false)
			expr, err := e.expr(s.Type, 2)
			if err != nil {
				return fmt.Errorf("schema %s: %w", s.Name, err)
			}
			buf.WriteString(expr)
			buf.WriteString(";\n")
		}
		writeIndent(buf, 1)
		buf.WriteString("};\n")
	}
	for _, section := range []string{"responses", "parameters", "requestBodies", "headers", "pathItems"} {
		writeIndent(buf, 1)
		buf.WriteString(section)
		buf.WriteString(": never;\n")
	}
	buf.WriteString("}\n")
	return nil
}

func (e *Emitter) emitOperations(buf *bytes.Buffer) error {
	var ops []*ir.Operation
	for _, item := range e.doc.Paths {
		for _, op := range item.Operations {
			if op.OperationID != "" {
				ops = append(ops, op)
			}
		}
	}
	if len(ops) == 0 {
		buf.WriteString("export type operations = Record<string, never>;\n")
		return nil
	}

	buf.WriteString("export interface operations {\n")
	for _, op := range ops {
		writeIndent(buf, 1)
		buf.WriteString(propertyKey(op.OperationID))
		buf.WriteString(": ")
		if err := e.emitOperation(buf, op, 1); err != nil {
			return fmt.Errorf("operation %s: %w", op.OperationID, err)
		}
		buf.WriteString(";\n")
	}
	buf.WriteString("}\n")
	return nil
}

// emitOperation writes the parameters, requestBody and responses object of
// op. depth is the indentation of the line the object starts on.
func (e *Emitter) emitOperation(buf *bytes.Buffer, op *ir.Operation, depth int) error {
	buf.WriteString("{\n")

	writeIndent(buf, depth+1)
	buf.WriteString("parameters: {\n")
	for _, loc := range ir.ParameterLocations {
		params := op.ParametersIn(loc)
		writeIndent(buf, depth+2)
		buf.WriteString(string(loc))
		if len(params) == 0 {
			buf.WriteString("?: never;\n")
			continue
		}
		if !anyRequired(params) {
			buf.WriteString("?")
		}
		buf.WriteString(": ")
		if err := e.emitParameters(buf, params, depth+2, false); err != nil {
			return err
		}
		buf.WriteString(";\n")
	}
	writeIndent(buf, depth+1)
	buf.WriteString("};\n")

	writeIndent(buf, depth+1)
	if op.RequestBody == nil {
		buf.WriteString("requestBody?: never;\n")
	} else {
		buf.WriteString("requestBody")
		if !op.RequestBody.Required {
			buf.WriteString("?")
		}
		buf.WriteString(": {\n")
		writeIndent(buf, depth+2)
		buf.WriteString("content: ")
		if err := e.emitContent(buf, op.RequestBody.Content, depth+2); err != nil {
			return fmt.Errorf("request body: %w", err)
		}
		buf.WriteString(";\n")
		writeIndent(buf, depth+1)
		buf.WriteString("};\n")
	}

	writeIndent(buf, depth+1)
	if len(op.Responses) == 0 {
		buf.WriteString("responses: never;\n")
	} else {
		buf.WriteString("responses: {\n")
		for _, r := range op.Responses {
			if r.Description != "" {
				e.emitJSDoc(buf, ir.Documentation{Body: r.Description}, depth+2)
			}
			writeIndent(buf, depth+2)
			buf.WriteString(statusKey(r.Status))
			buf.WriteString(": {\n")

			writeIndent(buf, depth+3)
			buf.WriteString("headers: ")
			if err := e.emitParameters(buf, r.Headers, depth+3, true); err != nil {
				return fmt.Errorf("response %s headers: %w", r.Status, err)
			}
			buf.WriteString(";\n")

			writeIndent(buf, depth+3)
			if len(r.Content) == 0 {
				buf.WriteString("content?: never;\n")
			} else {
				buf.WriteString("content: ")
				if err := e.emitContent(buf, r.Content, depth+3); err != nil {
					return fmt.Errorf("response %s: %w", r.Status, err)
				}
				buf.WriteString(";\n")
			}

			writeIndent(buf, depth+2)
			buf.WriteString("};\n")
		}
		writeIndent(buf, depth+1)
		buf.WriteString("};\n")
	}

	writeIndent(buf, depth)
	buf.WriteString("}")
	return nil
}

// emitParameters writes params as an object type. open adds an index
// signature for unlisted names, as response headers are.
func (e *Emitter) emitParameters(buf *bytes.Buffer, params []ir.Parameter, depth int, open bool) error {
	buf.WriteString("{\n")
	for _, p := range params {
		if !p.Doc.IsZero() {
			e.emitJSDoc(buf, p.Doc, depth+1)
		}
		writeIndent(buf, depth+1)
		buf.WriteString(propertyKey(p.Name))
		if !p.Required {
			buf.WriteString("?")
		}
		buf.WriteString(": ")
		expr, err := e.expr(p.Type, depth+1)
		if err != nil {
			return fmt.Errorf("parameter %s: %w", p.Name, err)
		}
		buf.WriteString(expr)
		buf.WriteString(";\n")
	}
	if open {
		writeIndent(buf, depth+1)
		buf.WriteString("[name: string]: unknown;\n")
	}
	writeIndent(buf, depth)
	buf.WriteString("}")
	return nil
}

func (e *Emitter) emitContent(buf *bytes.Buffer, content []ir.MediaContent, depth int) error {
	buf.WriteString("{\n")
	for _, c := range content {
		writeIndent(buf, depth+1)
		buf.WriteString(quote(c.MediaType))
		buf.WriteString(": ")
		expr, err := e.expr(c.Type, depth+1)
		if err != nil {
			return fmt.Errorf("%s: %w", c.MediaType, err)
		}
		buf.WriteString(expr)
		buf.WriteString(";\n")
	}
	writeIndent(buf, depth)
	buf.WriteString("}")
	return nil
}

// emitKey writes "name: " or "readonly name?: " for a property.
func (e *Emitter) emitKey(buf *bytes.Buffer, name string, optional bool) {
	buf.WriteString(propertyKey(name))
	if optional {
		buf.WriteString("?")
	}
	buf.WriteString(": ")
}

// EmitTypeExpr returns the TypeScript expression for td at the top level.
func (e *Emitter) EmitTypeExpr(td ir.TypeDescriptor) (string, error) {
	return e.expr(td, 0)
}

// expr returns the expression for td. depth is the indentation of the line
// the expression starts on; multi-line objects indent relative to it.
func (e *Emitter) expr(td ir.TypeDescriptor, depth int) (string, error) {
	switch t := td.(type) {
	case nil:
		return "unknown", nil
	case *ir.PrimitiveDescriptor:
		return e.emitPrimitive(t), nil
	case *ir.LiteralDescriptor:
		return formatLiteral(t.Value)
	case *ir.ArrayDescriptor:
		return e.emitArray(t, depth)
	case *ir.MapDescriptor:
		value, err := e.expr(t.Value, depth)
		if err != nil {
			return "", err
		}
		if e.opts.Immutable {
			return "Readonly<Record<string, " + value + ">>", nil
		}
		return "Record<string, " + value + ">", nil
	case *ir.ReferenceDescriptor:
		return "components[\"schemas\"][" + quote(t.Target) + "]", nil
	case *ir.UnionDescriptor:
		return e.join(t.Types, " | ", depth, ir.KindIntersection)
	case *ir.IntersectionDescriptor:
		return e.join(t.Types, " & ", depth, ir.KindUnion)
	case *ir.ObjectDescriptor:
		return e.emitObject(t, depth)
	default:
		return "", fmt.Errorf("unsupported type expression kind: %s", td.Kind())
	}
}

// emitPrimitive emits a primitive type.
func (e *Emitter) emitPrimitive(p *ir.PrimitiveDescriptor) string {
	switch p.PrimitiveKind {
	case ir.PrimitiveString:
		return "string"
	case ir.PrimitiveNumber:
		return "number"
	case ir.PrimitiveBoolean:
		return "boolean"
	case ir.PrimitiveNull:
		return "null"
	case ir.PrimitiveNever:
		return "never"
	case ir.PrimitiveBinary:
		return "Blob"
	default:
		return "unknown"
	}
}

// emitArray emits T[], parenthesizing composite element types.
func (e *Emitter) emitArray(a *ir.ArrayDescriptor, depth int) (string, error) {
	elem, err := e.expr(a.Element, depth)
	if err != nil {
		return "", err
	}
	if k := a.Element.Kind(); k == ir.KindUnion || k == ir.KindIntersection {
		elem = "(" + elem + ")"
	}
	if e.opts.Immutable {
		return "readonly " + elem + "[]", nil
	}
	return elem + "[]", nil
}

// join emits members separated by sep. Members of kind wrap are
// parenthesized.
func (e *Emitter) join(types []ir.TypeDescriptor, sep string, depth int, wrap ir.DescriptorKind) (string, error) {
	if len(types) == 0 {
		return "never", nil
	}
	parts := make([]string, 0, len(types))
	for _, t := range types {
		part, err := e.expr(t, depth)
		if err != nil {
			return "", err
		}
		if t != nil && t.Kind() == wrap {
			part = "(" + part + ")"
		}
		parts = append(parts, part)
	}
	return strings.Join(parts, sep), nil
}

func (e *Emitter) emitObject(o *ir.ObjectDescriptor, depth int) (string, error) {
	var buf bytes.Buffer
	buf.WriteString("{\n")
	for _, f := range o.Fields {
		doc := f.Doc
		if doc.IsZero() && f.Type != nil {
			doc = f.Type.Doc()
		}
		if !doc.IsZero() {
			e.emitJSDoc(&buf, doc, depth+1)
		}
		writeIndent(&buf, depth+1)
		if e.opts.Immutable || f.ReadOnly {
			buf.WriteString("readonly ")
		}
		e.emitKey(&buf, f.Name, f.Optional)
		expr, err := e.expr(f.Type, depth+1)
		if err != nil {
			return "", fmt.Errorf("failed to emit field %s type: %w", f.Name, err)
		}
		buf.WriteString(expr)
		buf.WriteString(";\n")
	}
	if o.Additional != nil {
		writeIndent(&buf, depth+1)
		if e.opts.Immutable {
			buf.WriteString("readonly ")
		}
		buf.WriteString("[key: string]: ")
		expr, err := e.expr(o.Additional, depth+1)
		if err != nil {
			return "", err
		}
		buf.WriteString(expr)
		buf.WriteString(";\n")
	}
	writeIndent(&buf, depth)
	buf.WriteString("}")
	return buf.String(), nil
}

// emitJSDoc emits a JSDoc block at depth.
func (e *Emitter) emitJSDoc(buf *bytes.Buffer, doc ir.Documentation, depth int) {
	var lines []string
	if doc.Summary != "" {
		lines = append(lines, doc.Summary)
	}
	if doc.Body != "" {
		for _, line := range strings.Split(strings.TrimSpace(doc.Body), "\n") {
			lines = append(lines, strings.ReplaceAll(strings.TrimRight(line, " \t"), "*/", "*\\/"))
		}
	}
	if doc.Deprecated {
		lines = append(lines, "@deprecated")
	}
	if len(lines) == 0 {
		return
	}

	if len(lines) == 1 {
		writeIndent(buf, depth)
		buf.WriteString("/** ")
		buf.WriteString(lines[0])
		buf.WriteString(" */\n")
		return
	}

	writeIndent(buf, depth)
	buf.WriteString("/**\n")
	for _, line := range lines {
		writeIndent(buf, depth)
		if line == "" {
			buf.WriteString(" *\n")
			continue
		}
		buf.WriteString(" * ")
		buf.WriteString(line)
		buf.WriteString("\n")
	}
	writeIndent(buf, depth)
	buf.WriteString(" */\n")
}

// formatLiteral formats an enum member value.
func formatLiteral(value any) (string, error) {
	switch v := value.(type) {
	case nil:
		return "null", nil
	case string:
		return quote(v), nil
	case bool:
		return strconv.FormatBool(v), nil
	case float64:
		return strconv.FormatFloat(v, 'g', -1, 64), nil
	case int:
		return strconv.Itoa(v), nil
	case int64:
		return strconv.FormatInt(v, 10), nil
	default:
		data, err := json.Marshal(v)
		if err != nil {
			return "", fmt.Errorf("unsupported literal %v: %w", v, err)
		}
		return string(data), nil
	}
}

func anyRequired(params []ir.Parameter) bool {
	for _, p := range params {
		if p.Required {
			return true
		}
	}
	return false
}

func writeIndent(buf *bytes.Buffer, depth int) {
	for range depth {
		buf.WriteString(indentUnit)
	}
}
