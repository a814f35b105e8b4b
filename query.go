package openfetch

import (
	"fmt"
	"net/url"
	"reflect"

	"github.com/gorilla/schema"
)

var schemaEncoder = schema.NewEncoder()

// EncodeQuery converts a query value into url.Values.
//
// Supported inputs are nil, url.Values, map[string][]string,
// map[string]string, map[string]any (values may be Refs or slices) and
// structs or struct pointers, which are encoded using `schema` field tags.
func EncodeQuery(q any) (url.Values, error) {
	q = Unwrap(q)
	switch v := q.(type) {
	case nil:
		return nil, nil
	case url.Values:
		return cloneValues(v), nil
	case map[string][]string:
		return cloneValues(v), nil
	case map[string]string:
		out := make(url.Values, len(v))
		for k, s := range v {
			out.Set(k, s)
		}
		return out, nil
	case map[string]any:
		out := make(url.Values, len(v))
		for _, k := range sortedKeys(v) {
			switch val := Unwrap(v[k]).(type) {
			case nil:
			case []string:
				out[k] = append(out[k], val...)
			case []any:
				for _, item := range val {
					out.Add(k, fmt.Sprint(Unwrap(item)))
				}
			default:
				out.Set(k, fmt.Sprint(val))
			}
		}
		return out, nil
	}

	rv := reflect.ValueOf(q)
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return nil, nil
		}
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct {
		return nil, fmt.Errorf("unsupported query type %T", q)
	}
	out := make(url.Values)
	if err := schemaEncoder.Encode(rv.Interface(), out); err != nil {
		return nil, fmt.Errorf("encode query: %w", err)
	}
	return out, nil
}

// resolveQuery encodes base and call queries and merges them, call keys
// replacing base keys.
func resolveQuery(base, call any) (url.Values, error) {
	b, err := EncodeQuery(base)
	if err != nil {
		return nil, err
	}
	c, err := EncodeQuery(call)
	if err != nil {
		return nil, err
	}
	if len(b) == 0 {
		return c, nil
	}
	for k, v := range c {
		b[k] = v
	}
	return b, nil
}

func cloneValues(v map[string][]string) url.Values {
	out := make(url.Values, len(v))
	for k, vals := range v {
		out[k] = append([]string(nil), vals...)
	}
	return out
}
