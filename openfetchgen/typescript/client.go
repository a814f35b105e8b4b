package typescript

import (
	"bytes"
	"cmp"
	"slices"
	"strings"
)

// HookKinds lists the fetch lifecycle hooks in channel order.
var HookKinds = []string{"onRequest", "onRequestError", "onResponse", "onResponseError"}

// ClientBinding names the generated symbols of one client.
type ClientBinding struct {
	// Name is the client name, e.g. "pets-api".
	Name string

	// Pascal is the PascalCase name, e.g. "PetsApi".
	Pascal string

	// Composable and LazyComposable are the composable export names.
	Composable     string
	LazyComposable string

	// FetchProperty is the context property, e.g. "$pets-api".
	FetchProperty string

	// Client and Server report whether the name is declared under clients,
	// servers or both.
	Client bool
	Server bool
}

// ModuleOptions configure the generated client modules.
type ModuleOptions struct {
	// ModuleName prefixes hook channels. Defaults to "open-fetch".
	ModuleName string

	// RuntimeModule is the import path of the TypeScript runtime. Defaults
	// to "open-fetch/runtime".
	RuntimeModule string

	// SchemaDir is the import prefix of the schema modules, relative to the
	// client module. Defaults to "./schemas".
	SchemaDir string
}

func (o ModuleOptions) withDefaults() ModuleOptions {
	o.ModuleName = cmp.Or(o.ModuleName, "open-fetch")
	o.RuntimeModule = cmp.Or(o.RuntimeModule, "open-fetch/runtime")
	o.SchemaDir = strings.TrimSuffix(cmp.Or(o.SchemaDir, "./schemas"), "/")
	return o
}

func sortedBindings(bindings []ClientBinding) []ClientBinding {
	out := slices.Clone(bindings)
	slices.SortFunc(out, func(a, b ClientBinding) int { return cmp.Compare(a.Name, b.Name) })
	return out
}

func pathsAlias(b ClientBinding) string {
	return sanitizeIdentifier(b.Pascal) + "Paths"
}

func writeSchemaImports(buf *bytes.Buffer, bindings []ClientBinding, opts ModuleOptions) {
	for _, b := range bindings {
		buf.WriteString("import type { paths as ")
		buf.WriteString(pathsAlias(b))
		buf.WriteString(", operations as ")
		buf.WriteString(sanitizeIdentifier(b.Pascal))
		buf.WriteString("Operations } from ")
		buf.WriteString(quote(opts.SchemaDir + "/" + b.Name))
		buf.WriteString(";\n")
	}
}

// writeClientNameUnion writes the OpenFetchClientName union of every client
// name.
func writeClientNameUnion(buf *bytes.Buffer, bindings []ClientBinding) {
	buf.WriteString("export type OpenFetchClientName = ")
	if len(bindings) == 0 {
		buf.WriteString("never;\n")
		return
	}
	names := make([]string, len(bindings))
	for i, b := range bindings {
		names[i] = quote(b.Name)
	}
	buf.WriteString(strings.Join(names, " | "))
	buf.WriteString(";\n")
}

// PrintClients renders open-fetch.ts: per client, the path and operation
// types, a direct fetch factory and the use/useLazy composables.
func PrintClients(bindings []ClientBinding, opts ModuleOptions) string {
	opts = opts.withDefaults()
	bindings = sortedBindings(bindings)

	var buf bytes.Buffer
	buf.WriteString(Header)
	buf.WriteString("\n")
	buf.WriteString("import { createOpenFetch, createUseOpenFetch } from ")
	buf.WriteString(quote(opts.RuntimeModule))
	buf.WriteString(";\n")
	writeSchemaImports(&buf, bindings, opts)
	buf.WriteString("\n")
	writeClientNameUnion(&buf, bindings)

	for _, b := range bindings {
		alias := pathsAlias(b)
		pascal := sanitizeIdentifier(b.Pascal)
		name := quote(b.Name)

		buf.WriteString("\n")
		buf.WriteString("export type { ")
		buf.WriteString(alias)
		buf.WriteString(", ")
		buf.WriteString(pascal)
		buf.WriteString("Operations };\n")
		buf.WriteString("export const create")
		buf.WriteString(pascal)
		buf.WriteString("Client = createOpenFetch<")
		buf.WriteString(alias)
		buf.WriteString(">(")
		buf.WriteString(name)
		buf.WriteString(");\n")

		buf.WriteString("export const ")
		buf.WriteString(escapeReservedWord(b.Composable))
		buf.WriteString(" = createUseOpenFetch<")
		buf.WriteString(alias)
		buf.WriteString(">(")
		buf.WriteString(name)
		buf.WriteString(");\n")

		buf.WriteString("export const ")
		buf.WriteString(escapeReservedWord(b.LazyComposable))
		buf.WriteString(" = createUseOpenFetch<")
		buf.WriteString(alias)
		buf.WriteString(">(")
		buf.WriteString(name)
		buf.WriteString(", true);\n")
	}
	return buf.String()
}

// PrintDeclarations renders open-fetch.d.ts: declaration merging that adds
// each client to the app or server context and types every hook channel.
func PrintDeclarations(bindings []ClientBinding, opts ModuleOptions) string {
	opts = opts.withDefaults()
	bindings = sortedBindings(bindings)

	var buf bytes.Buffer
	buf.WriteString(Header)
	buf.WriteString("\n")
	buf.WriteString("import type { OpenFetchClient, OpenFetchHook } from ")
	buf.WriteString(quote(opts.RuntimeModule))
	buf.WriteString(";\n")
	writeSchemaImports(&buf, bindings, opts)
	buf.WriteString("\n")

	buf.WriteString("declare module ")
	buf.WriteString(quote(opts.RuntimeModule))
	buf.WriteString(" {\n")

	writeContext := func(iface string, include func(ClientBinding) bool) {
		writeIndent(&buf, 1)
		buf.WriteString("interface ")
		buf.WriteString(iface)
		buf.WriteString(" {\n")
		for _, b := range bindings {
			if !include(b) {
				continue
			}
			writeIndent(&buf, 2)
			buf.WriteString(propertyKey(b.FetchProperty))
			buf.WriteString(": OpenFetchClient<")
			buf.WriteString(pathsAlias(b))
			buf.WriteString(">;\n")
		}
		writeIndent(&buf, 1)
		buf.WriteString("}\n")
	}
	writeContext("OpenFetchAppContext", func(b ClientBinding) bool { return b.Client })
	writeContext("OpenFetchServerContext", func(b ClientBinding) bool { return b.Server })

	writeIndent(&buf, 1)
	buf.WriteString("interface OpenFetchHooks {\n")
	for _, kind := range HookKinds {
		hook := "OpenFetchHook<" + quote(kind) + ">;\n"
		writeIndent(&buf, 2)
		buf.WriteString(quote(opts.ModuleName + ":" + kind))
		buf.WriteString(": ")
		buf.WriteString(hook)
		for _, b := range bindings {
			writeIndent(&buf, 2)
			buf.WriteString(quote(opts.ModuleName + ":" + kind + ":" + b.Name))
			buf.WriteString(": ")
			buf.WriteString(hook)
		}
	}
	writeIndent(&buf, 1)
	buf.WriteString("}\n")

	buf.WriteString("}\n\nexport {};\n")
	return buf.String()
}
