package ir

import (
	"sort"
	"strings"
	"testing"
)

// petsV2 is the pets document with a v2 media type on GET /pet/{petId}.
func petsV2() *Document {
	return &Document{
		Title: "Petstore",
		Schemas: []NamedSchema{
			{Name: "Pet", Type: Object(
				Field{Name: "id", Type: Number(), Optional: true},
				Field{Name: "name", Type: String()},
			)},
			{Name: "PetV2", Type: Intersection(Ref("Pet"), Object(
				Field{Name: "breed", Type: String()},
				Field{Name: "age", Type: Number()},
			))},
		},
		Paths: []PathItem{{
			Path: "/pet/{petId}",
			Operations: []*Operation{{
				Method:      "get",
				OperationID: "getPetById",
				Parameters:  []Parameter{{Name: "petId", In: InPath, Required: true, Type: Number()}},
				Responses: []Response{
					{Status: "200", Content: []MediaContent{
						{MediaType: "application/json", Type: Ref("Pet")},
						{MediaType: "application/vnd.petstore.v2+json", Type: Ref("PetV2")},
					}},
					{Status: "404", Description: "not found"},
				},
			}},
		}},
	}
}

func TestDocument_Operation(t *testing.T) {
	doc := petsV2()
	if op := doc.Operation("/pet/{petId}", "GET"); op == nil || op.OperationID != "getPetById" {
		t.Errorf("expected getPetById, got %v", op)
	}
	if op := doc.Operation("/pet/{petId}", "post"); op != nil {
		t.Errorf("expected nil, got %v", op)
	}
	if doc.Schema("PetV2") == nil || doc.Schema("Nope") != nil {
		t.Error("unexpected Schema lookup result")
	}
}

func TestOperation_ResponseType(t *testing.T) {
	op := petsV2().Operation("/pet/{petId}", "get")

	tests := []struct {
		name   string
		accept []string
		want   []string // referenced schema names
	}{
		{"no accept is every media type", nil, []string{"Pet", "PetV2"}},
		{"v2 only", []string{"application/vnd.petstore.v2+json"}, []string{"PetV2"}},
		{"json only", []string{"application/json"}, []string{"Pet"}},
		{"both", []string{"application/json", "application/vnd.petstore.v2+json"}, []string{"Pet", "PetV2"}},
		{"wildcard", []string{"application/*"}, []string{"Pet", "PetV2"}},
		{"any", []string{"*/*"}, []string{"Pet", "PetV2"}},
		{"params ignored", []string{"application/vnd.petstore.v2+json; q=0.9"}, []string{"PetV2"}},
		{"no match", []string{"text/html"}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := refNames(op.ResponseType("200", tt.accept))
			if strings.Join(got, ",") != strings.Join(tt.want, ",") {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
		})
	}

	if op.ResponseType("404", nil) != nil {
		t.Error("expected nil type for a response without content")
	}
	if op.ResponseType("500", nil) != nil {
		t.Error("expected nil type for an unknown status")
	}
}

// The v2 response type narrowed by Accept carries the v2-only fields.
func TestOperation_ResponseTypeV2Fields(t *testing.T) {
	doc := petsV2()
	op := doc.Operation("/pet/{petId}", "get")

	ref, ok := op.ResponseType("200", []string{"application/vnd.petstore.v2+json"}).(*ReferenceDescriptor)
	if !ok {
		t.Fatal("expected a reference")
	}
	inter := doc.Schema(ref.Target).(*IntersectionDescriptor)
	obj := inter.Types[1].(*ObjectDescriptor)
	for _, name := range []string{"breed", "age"} {
		if obj.Field(name) == nil {
			t.Errorf("expected field %s", name)
		}
	}
}

func refNames(td TypeDescriptor) []string {
	var out []string
	switch d := td.(type) {
	case *ReferenceDescriptor:
		out = append(out, d.Target)
	case *UnionDescriptor:
		for _, t := range d.Types {
			out = append(out, refNames(t)...)
		}
	}
	return out
}

func TestStatusLess(t *testing.T) {
	statuses := []string{"default", "4XX", "404", "200", "201"}
	sort.Slice(statuses, func(i, j int) bool { return StatusLess(statuses[i], statuses[j]) })
	if got := strings.Join(statuses, ","); got != "200,201,404,4XX,default" {
		t.Errorf("unexpected order %s", got)
	}
}

func TestDocument_Validate(t *testing.T) {
	if errs := petsV2().Validate(); len(errs) != 0 {
		t.Fatalf("expected valid document, got %v", errs)
	}

	doc := petsV2()
	doc.Schemas = append(doc.Schemas, NamedSchema{Name: "Pet", Type: String()})
	doc.Schemas = append(doc.Schemas, NamedSchema{Name: "Broken", Type: Array(Ref("Missing"))})
	doc.Paths = append(doc.Paths, PathItem{
		Path: "/store/{orderId}",
		Operations: []*Operation{{
			Method:      "get",
			OperationID: "getPetById",
			Parameters:  []Parameter{{Name: "id", In: InPath}},
		}},
	})

	codes := map[string]bool{}
	for _, err := range doc.Validate() {
		codes[err.(*ValidationError).Code] = true
	}
	for _, want := range []string{
		"duplicate_schema",
		"missing_schema_reference",
		"duplicate_operation_id",
		"optional_path_parameter",
		"unknown_path_parameter",
	} {
		if !codes[want] {
			t.Errorf("expected %s, got %v", want, codes)
		}
	}
}

func TestDescriptorKinds(t *testing.T) {
	tests := []struct {
		td   TypeDescriptor
		want DescriptorKind
	}{
		{String(), KindPrimitive},
		{Literal("available"), KindLiteral},
		{Array(Number()), KindArray},
		{Map(Unknown()), KindMap},
		{Ref("Pet"), KindReference},
		{Nullable(String()), KindUnion},
		{Intersection(Ref("A"), Ref("B")), KindIntersection},
		{Object(), KindObject},
	}
	for _, tt := range tests {
		if got := tt.td.Kind(); got != tt.want {
			t.Errorf("expected %s, got %s", tt.want, got)
		}
	}
	if PrimitiveBinary.String() != "Binary" || DescriptorKind(99).String() != "Unknown" {
		t.Error("unexpected String output")
	}
}
