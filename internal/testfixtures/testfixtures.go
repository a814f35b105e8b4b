// Package testfixtures provides OpenAPI documents and layer trees for tests.
package testfixtures

import (
	_ "embed"
	"os"
	"path/filepath"
	"testing"

	"golang.org/x/tools/txtar"
)

// Petstore is an OpenAPI 3.0 document with a v2 media type on
// GET /pet/{petId} whose schema adds breed and age.
//
//go:embed petstore.yaml
var Petstore []byte

//go:embed layers.txtar
var layersArchive []byte

// PetstorePath is where WriteLayers puts the pets schema, relative to the
// tree root. It follows the <schemaDir>/<name>/openapi.yaml convention.
const PetstorePath = "base/openapi/pets/openapi.yaml"

// WriteTree writes every file of a txtar archive under dir.
func WriteTree(t testing.TB, dir string, archive []byte) {
	t.Helper()
	for _, f := range txtar.Parse(archive).Files {
		WriteFile(t, filepath.Join(dir, filepath.FromSlash(f.Name)), f.Data)
	}
}

// WriteFile writes data to path, creating parent directories.
func WriteFile(t testing.TB, path string, data []byte) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

// WriteLayers writes a project layer ("app") extending a base layer
// ("base") into a temporary directory and returns the tree root. The base
// layer supplies the pets schema by convention and an inline ping schema.
func WriteLayers(t testing.TB) string {
	t.Helper()
	root := t.TempDir()
	WriteTree(t, root, layersArchive)
	WriteFile(t, filepath.Join(root, filepath.FromSlash(PetstorePath)), Petstore)
	return root
}
