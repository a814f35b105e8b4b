package ir

import "strings"

// ValidationError represents a structural problem in a Document.
type ValidationError struct {
	Code    string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// Validate checks the document for structural issues.
// Returns all validation errors found (not just the first).
func (d *Document) Validate() []error {
	var errs []*ValidationError

	names := make(map[string]bool, len(d.Schemas))
	for _, s := range d.Schemas {
		if names[s.Name] {
			errs = append(errs, &ValidationError{
				Code:    "duplicate_schema",
				Message: "duplicate component schema: " + s.Name,
			})
		}
		names[s.Name] = true
	}
	for _, s := range d.Schemas {
		errs = append(errs, validateReferences(s.Type, names, "schema "+s.Name)...)
	}

	operationIDs := make(map[string]string)
	seenPaths := make(map[string]bool)
	for _, item := range d.Paths {
		if seenPaths[item.Path] {
			errs = append(errs, &ValidationError{
				Code:    "duplicate_path",
				Message: "duplicate path: " + item.Path,
			})
		}
		seenPaths[item.Path] = true

		for _, op := range item.Operations {
			where := strings.ToUpper(op.Method) + " " + item.Path
			if op.OperationID != "" {
				if prev, ok := operationIDs[op.OperationID]; ok {
					errs = append(errs, &ValidationError{
						Code:    "duplicate_operation_id",
						Message: "operationId " + op.OperationID + " used by " + prev + " and " + where,
					})
				}
				operationIDs[op.OperationID] = where
			}
			for _, p := range op.Parameters {
				if p.In == InPath {
					if !p.Required {
						errs = append(errs, &ValidationError{
							Code:    "optional_path_parameter",
							Message: where + ": path parameter " + p.Name + " must be required",
						})
					}
					if !strings.Contains(item.Path, "{"+p.Name+"}") {
						errs = append(errs, &ValidationError{
							Code:    "unknown_path_parameter",
							Message: where + ": path parameter " + p.Name + " does not appear in the path",
						})
					}
				}
				errs = append(errs, validateReferences(p.Type, names, where+" parameter "+p.Name)...)
			}
			if op.RequestBody != nil {
				for _, c := range op.RequestBody.Content {
					errs = append(errs, validateReferences(c.Type, names, where+" request "+c.MediaType)...)
				}
			}
			for _, r := range op.Responses {
				for _, c := range r.Content {
					errs = append(errs, validateReferences(c.Type, names, where+" response "+r.Status+" "+c.MediaType)...)
				}
			}
		}
	}

	var result []error
	for _, e := range errs {
		result = append(result, e)
	}
	return result
}

// validateReferences walks td and checks that every reference names a
// component schema.
func validateReferences(td TypeDescriptor, names map[string]bool, context string) []*ValidationError {
	if td == nil {
		return nil
	}

	var errs []*ValidationError
	switch d := td.(type) {
	case *ReferenceDescriptor:
		if !names[d.Target] {
			errs = append(errs, &ValidationError{
				Code:    "missing_schema_reference",
				Message: context + " references unknown schema: " + d.Target,
			})
		}
	case *ArrayDescriptor:
		errs = append(errs, validateReferences(d.Element, names, context)...)
	case *MapDescriptor:
		errs = append(errs, validateReferences(d.Value, names, context)...)
	case *UnionDescriptor:
		for _, t := range d.Types {
			errs = append(errs, validateReferences(t, names, context)...)
		}
	case *IntersectionDescriptor:
		for _, t := range d.Types {
			errs = append(errs, validateReferences(t, names, context)...)
		}
	case *ObjectDescriptor:
		for _, f := range d.Fields {
			errs = append(errs, validateReferences(f.Type, names, context+"."+f.Name)...)
		}
		errs = append(errs, validateReferences(d.Additional, names, context)...)
	}
	return errs
}
