package ir

// PrimitiveKind identifies a scalar type.
type PrimitiveKind int

const (
	PrimitiveString PrimitiveKind = iota
	PrimitiveNumber               // number and integer
	PrimitiveBoolean
	PrimitiveNull
	PrimitiveUnknown // untyped schema or {} with EmptyObjectsUnknown
	PrimitiveNever   // a schema that admits no values
	PrimitiveBinary  // string with format binary (Blob)
)

// String returns the string representation of the primitive kind.
func (k PrimitiveKind) String() string {
	switch k {
	case PrimitiveString:
		return "String"
	case PrimitiveNumber:
		return "Number"
	case PrimitiveBoolean:
		return "Boolean"
	case PrimitiveNull:
		return "Null"
	case PrimitiveUnknown:
		return "Unknown"
	case PrimitiveNever:
		return "Never"
	case PrimitiveBinary:
		return "Binary"
	default:
		return "Invalid"
	}
}

// PrimitiveDescriptor represents a scalar type.
type PrimitiveDescriptor struct {
	exprBase

	PrimitiveKind PrimitiveKind

	// Format is the OpenAPI format, kept for documentation (e.g. "int64",
	// "date-time").
	Format string
}

// Kind returns KindPrimitive.
func (d *PrimitiveDescriptor) Kind() DescriptorKind { return KindPrimitive }

// Primitive returns a PrimitiveDescriptor of kind k.
func Primitive(k PrimitiveKind) *PrimitiveDescriptor {
	return &PrimitiveDescriptor{PrimitiveKind: k}
}

// String, Number, Boolean, Null and Unknown are shorthands for Primitive.
func String() *PrimitiveDescriptor  { return Primitive(PrimitiveString) }
func Number() *PrimitiveDescriptor  { return Primitive(PrimitiveNumber) }
func Boolean() *PrimitiveDescriptor { return Primitive(PrimitiveBoolean) }
func Null() *PrimitiveDescriptor    { return Primitive(PrimitiveNull) }
func Unknown() *PrimitiveDescriptor { return Primitive(PrimitiveUnknown) }

// LiteralDescriptor is a single constant value. Value is a string, float64,
// bool or nil.
type LiteralDescriptor struct {
	exprBase

	Value any
}

// Kind returns KindLiteral.
func (d *LiteralDescriptor) Kind() DescriptorKind { return KindLiteral }

// Literal returns a LiteralDescriptor for v.
func Literal(v any) *LiteralDescriptor {
	return &LiteralDescriptor{Value: v}
}

// ArrayDescriptor represents an ordered collection.
type ArrayDescriptor struct {
	exprBase

	// Element is the array element type.
	Element TypeDescriptor
}

// Kind returns KindArray.
func (d *ArrayDescriptor) Kind() DescriptorKind { return KindArray }

// Array returns an ArrayDescriptor of element.
func Array(element TypeDescriptor) *ArrayDescriptor {
	return &ArrayDescriptor{Element: element}
}

// MapDescriptor represents an object used as a string-keyed dictionary.
type MapDescriptor struct {
	exprBase

	// Value is the map value type.
	Value TypeDescriptor
}

// Kind returns KindMap.
func (d *MapDescriptor) Kind() DescriptorKind { return KindMap }

// Map returns a MapDescriptor with values of type value.
func Map(value TypeDescriptor) *MapDescriptor {
	return &MapDescriptor{Value: value}
}

// ReferenceDescriptor represents a reference to a component schema.
type ReferenceDescriptor struct {
	exprBase

	// Target is the component schema name, e.g. "Pet" for
	// "#/components/schemas/Pet".
	Target string
}

// Kind returns KindReference.
func (d *ReferenceDescriptor) Kind() DescriptorKind { return KindReference }

// Ref returns a ReferenceDescriptor for a component schema.
func Ref(name string) *ReferenceDescriptor {
	return &ReferenceDescriptor{Target: name}
}

// UnionDescriptor represents T1 | T2 | ...
type UnionDescriptor struct {
	exprBase

	// Types contains the union members. Must have at least 1 element.
	Types []TypeDescriptor
}

// Kind returns KindUnion.
func (d *UnionDescriptor) Kind() DescriptorKind { return KindUnion }

// Union returns a UnionDescriptor for types.
func Union(types ...TypeDescriptor) *UnionDescriptor {
	return &UnionDescriptor{Types: types}
}

// Nullable returns t | null.
func Nullable(t TypeDescriptor) *UnionDescriptor {
	return Union(t, Null())
}

// IntersectionDescriptor represents T1 & T2 & ...
type IntersectionDescriptor struct {
	exprBase

	Types []TypeDescriptor
}

// Kind returns KindIntersection.
func (d *IntersectionDescriptor) Kind() DescriptorKind { return KindIntersection }

// Intersection returns an IntersectionDescriptor for types.
func Intersection(types ...TypeDescriptor) *IntersectionDescriptor {
	return &IntersectionDescriptor{Types: types}
}

// Field is a named object property.
type Field struct {
	Name     string
	Type     TypeDescriptor
	Optional bool
	ReadOnly bool
	Doc      Documentation
}

// ObjectDescriptor represents an object with named properties.
type ObjectDescriptor struct {
	exprBase

	// Fields in declaration order.
	Fields []Field

	// Additional is the type of additional properties, or nil when the
	// object is closed.
	Additional TypeDescriptor
}

// Kind returns KindObject.
func (d *ObjectDescriptor) Kind() DescriptorKind { return KindObject }

// Object returns an ObjectDescriptor with fields.
func Object(fields ...Field) *ObjectDescriptor {
	return &ObjectDescriptor{Fields: fields}
}

// Field returns the field named name, or nil.
func (d *ObjectDescriptor) Field(name string) *Field {
	for i := range d.Fields {
		if d.Fields[i].Name == name {
			return &d.Fields[i]
		}
	}
	return nil
}
