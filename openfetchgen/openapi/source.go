// Package openapi loads OpenAPI documents with kin-openapi and compiles
// them into TypeScript declarations.
package openapi

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"path/filepath"
)

// SourceKind identifies where a schema document comes from.
type SourceKind int

const (
	SourceInline SourceKind = iota // document embedded in configuration
	SourceURL                      // remote document fetched over HTTP(S)
	SourceFile                     // document on the local filesystem
)

func (k SourceKind) String() string {
	switch k {
	case SourceInline:
		return "inline"
	case SourceURL:
		return "url"
	case SourceFile:
		return "file"
	}
	return fmt.Sprintf("SourceKind(%d)", int(k))
}

// Source is a resolved schema location.
type Source struct {
	Kind SourceKind

	// Inline holds the JSON document for SourceInline.
	Inline []byte

	// URL is the absolute URL for SourceURL.
	URL string

	// Path is the absolute filesystem path for SourceFile.
	Path string
}

// InlineSource returns a source for an embedded JSON or YAML document.
func InlineSource(data []byte) Source {
	return Source{Kind: SourceInline, Inline: data}
}

// URLSource returns a source for a remote document.
func URLSource(u string) Source {
	return Source{Kind: SourceURL, URL: u}
}

// FileSource returns a source for a local document. path is made absolute.
func FileSource(path string) Source {
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	return Source{Kind: SourceFile, Path: filepath.Clean(path)}
}

// Identity returns a stable string naming the source: "inline:<sha256>",
// the URL, or "file://<abs path>".
func (s Source) Identity() string {
	switch s.Kind {
	case SourceInline:
		sum := sha256.Sum256(s.Inline)
		return "inline:" + hex.EncodeToString(sum[:])
	case SourceURL:
		return s.URL
	case SourceFile:
		return "file://" + filepath.ToSlash(s.Path)
	}
	return ""
}

// IsFile reports whether s is a filesystem source.
func (s Source) IsFile() bool { return s.Kind == SourceFile }

func (s Source) String() string {
	if s.Kind == SourceInline {
		return "inline document"
	}
	return s.Identity()
}
