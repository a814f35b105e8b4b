package openapi

import (
	jsonv2 "github.com/go-json-experiment/json"
)

// Options control how a document is compiled.
type Options struct {
	// Immutable marks properties and arrays readonly.
	Immutable bool `json:"immutable" yaml:"immutable"`

	// AdditionalProperties allows unknown keys on objects that do not set
	// additionalProperties explicitly.
	AdditionalProperties bool `json:"additionalProperties" yaml:"additionalProperties"`

	// DefaultNonNullable treats properties with a default value as always
	// present.
	DefaultNonNullable bool `json:"defaultNonNullable" yaml:"defaultNonNullable"`

	// EmptyObjectsUnknown types objects without properties as
	// Record<string, unknown> instead of Record<string, never>.
	EmptyObjectsUnknown bool `json:"emptyObjectsUnknown" yaml:"emptyObjectsUnknown"`

	// ExcludeDeprecated drops deprecated operations and properties.
	ExcludeDeprecated bool `json:"excludeDeprecated" yaml:"excludeDeprecated"`
}

// DefaultOptions returns the options used when a layer sets none.
func DefaultOptions() Options {
	return Options{DefaultNonNullable: true}
}

// Fingerprint returns a deterministic encoding of o for cache keys.
func (o Options) Fingerprint() []byte {
	data, err := jsonv2.Marshal(o, jsonv2.Deterministic(true))
	if err != nil {
		// A struct of bools always encodes.
		panic(err)
	}
	return data
}
