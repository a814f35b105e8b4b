// Package validate holds the struct validation rules shared by the runtime
// and the generator.
package validate

import (
	"errors"
	"fmt"
	"net/url"
	"reflect"
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

// ClientNamePattern matches names usable as a client identifier in
// generated code and in hook channel names.
var ClientNamePattern = regexp.MustCompile(`^[A-Za-z_$][A-Za-z0-9_$-]*$`)

var (
	once     sync.Once
	instance *validator.Validate
)

// Validator returns the shared validator with the openfetch rules
// registered. Field names in errors use the json or yaml tag when present.
func Validator() *validator.Validate {
	once.Do(func() {
		v := validator.New(validator.WithRequiredStructEnabled())
		v.RegisterTagNameFunc(tagName)
		// Registration only fails for empty tags or nil funcs.
		_ = v.RegisterValidation("clientname", func(fl validator.FieldLevel) bool {
			return ClientNamePattern.MatchString(fl.Field().String())
		})
		_ = v.RegisterValidation("baseurl", func(fl validator.FieldLevel) bool {
			return IsBaseURL(fl.Field().String())
		})
		instance = v
	})
	return instance
}

// IsBaseURL reports whether s is an absolute http(s) URL or a root-relative
// path.
func IsBaseURL(s string) bool {
	if strings.HasPrefix(s, "/") && !strings.HasPrefix(s, "//") {
		return true
	}
	u, err := url.Parse(s)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// Struct validates v and converts validation failures to *Error.
func Struct(v any) error {
	if err := Validator().Struct(v); err != nil {
		return From(err)
	}
	return nil
}

// Error reports invalid configuration. Fields maps the offending field path
// to a message.
type Error struct {
	Fields map[string]string
}

func (e *Error) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	msgs := make([]string, len(keys))
	for i, k := range keys {
		msgs[i] = k + ": " + e.Fields[k]
	}
	return "invalid configuration: " + strings.Join(msgs, "; ")
}

// From converts validator errors to *Error. Other errors are returned
// unchanged.
func From(err error) error {
	var valErrs validator.ValidationErrors
	if !errors.As(err, &valErrs) {
		return err
	}
	fields := make(map[string]string, len(valErrs))
	for _, ve := range valErrs {
		fields[fieldPath(ve)] = Message(ve)
	}
	return &Error{Fields: fields}
}

// fieldPath drops the root struct name from the namespace.
func fieldPath(ve validator.FieldError) string {
	ns := ve.Namespace()
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return ns
}

// Message converts a validator.FieldError to a human-readable message.
func Message(ve validator.FieldError) string {
	switch ve.Tag() {
	case "required":
		return "required"
	case "url":
		return "must be a valid URL"
	case "oneof":
		return fmt.Sprintf("must be one of: %s", ve.Param())
	case "clientname":
		return fmt.Sprintf("%q is not a valid client name", ve.Value())
	case "baseurl":
		return fmt.Sprintf("%q must be an absolute http(s) URL or start with /", ve.Value())
	default:
		if ve.Param() != "" {
			return fmt.Sprintf("failed %s=%s validation", ve.Tag(), ve.Param())
		}
		return fmt.Sprintf("failed %s validation", ve.Tag())
	}
}

func tagName(f reflect.StructField) string {
	for _, key := range []string{"json", "yaml"} {
		name, _, _ := strings.Cut(f.Tag.Get(key), ",")
		if name == "-" {
			return ""
		}
		if name != "" {
			return name
		}
	}
	return f.Name
}
