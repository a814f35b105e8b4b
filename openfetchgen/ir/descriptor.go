// Package ir defines the intermediate representation of a compiled OpenAPI
// document. The openapi package builds it and the typescript package prints
// it; neither depends on the other.
package ir

// DescriptorKind identifies the category of a type descriptor.
type DescriptorKind int

const (
	KindPrimitive    DescriptorKind = iota // string, number, boolean, null, unknown, ...
	KindLiteral                            // A single constant value (enum member)
	KindArray                              // Ordered collection (T[])
	KindMap                                // String-keyed record (Record<string, T>)
	KindReference                          // Reference to a named component schema
	KindUnion                              // oneOf / anyOf / enum / nullable
	KindIntersection                       // allOf
	KindObject                             // Object with named properties
)

// String returns the string representation of the descriptor kind.
func (k DescriptorKind) String() string {
	switch k {
	case KindPrimitive:
		return "Primitive"
	case KindLiteral:
		return "Literal"
	case KindArray:
		return "Array"
	case KindMap:
		return "Map"
	case KindReference:
		return "Reference"
	case KindUnion:
		return "Union"
	case KindIntersection:
		return "Intersection"
	case KindObject:
		return "Object"
	default:
		return "Unknown"
	}
}

// TypeDescriptor is the base interface for all type descriptors.
type TypeDescriptor interface {
	// Kind returns the descriptor kind for type switching.
	Kind() DescriptorKind

	// Doc returns the schema description, if any.
	Doc() Documentation

	// Ensure only types in this package can implement TypeDescriptor.
	sealed()
}

// exprBase carries the documentation shared by every descriptor.
type exprBase struct {
	Documentation Documentation
}

func (b exprBase) Doc() Documentation { return b.Documentation }
func (exprBase) sealed()              {}

// Documentation holds the human-readable parts of a schema or operation.
type Documentation struct {
	// Summary is a one-line description, suitable for inline comments.
	Summary string

	// Body is the full description text.
	Body string

	// Deprecated marks the element deprecated.
	Deprecated bool
}

// IsZero returns true if the documentation is empty.
func (d Documentation) IsZero() bool {
	return d.Summary == "" && d.Body == "" && !d.Deprecated
}

// Warning represents a non-fatal issue encountered while compiling.
type Warning struct {
	// Code is a machine-readable warning identifier.
	Code string

	// Message is a human-readable description.
	Message string

	// Pointer locates the element in the source document, e.g.
	// "#/paths/~1pet/get".
	Pointer string
}
