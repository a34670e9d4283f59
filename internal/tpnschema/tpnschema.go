// Package tpnschema decodes and validates the external valid-values
// documents sometimes called the "external valid_values map": one
// entry per parameter naming its declared literal values, used by
// selector.Match.ValidateKeys to reject undeclared field values.
//
// The name echoes the original source's ".tpn" (type parameter name)
// files; this implementation stores them as TOML rather than the
// original's fixed-column text format, validated against a JSON Schema
// before being trusted.
package tpnschema

import (
	"fmt"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/pelletier/go-toml/v2"
)

// Document is the decoded shape of one TPN document.
type Document struct {
	Parameters map[string]ParameterSpec `toml:"parameters"`
}

// ParameterSpec names one parameter's declared allowed values.
type ParameterSpec struct {
	Values []string `toml:"values"`
}

// Schema is the JSON Schema every TPN document must conform to: an
// object whose "parameters" property maps names to {"values": [...]}.
var Schema = &jsonschema.Schema{
	Type: "object",
	Properties: map[string]*jsonschema.Schema{
		"parameters": {
			Type: "object",
			AdditionalProperties: &jsonschema.Schema{
				Type: "object",
				Properties: map[string]*jsonschema.Schema{
					"values": {
						Type:  "array",
						Items: &jsonschema.Schema{Type: "string"},
					},
				},
				Required: []string{"values"},
			},
		},
	},
	Required: []string{"parameters"},
}

// Parse decodes a TOML-formatted TPN document, validates its shape
// against Schema, and returns the parameter -> allowed-values map
// mapping.LoadReference's validValues argument expects.
func Parse(content []byte) (map[string][]string, error) {
	var raw any
	if err := toml.Unmarshal(content, &raw); err != nil {
		return nil, fmt.Errorf("tpnschema: decoding TOML: %w", err)
	}

	resolved, err := Schema.Resolve(nil)
	if err != nil {
		return nil, fmt.Errorf("tpnschema: resolving schema: %w", err)
	}
	if err := resolved.Validate(raw); err != nil {
		return nil, fmt.Errorf("tpnschema: document failed schema validation: %w", err)
	}

	var doc Document
	if err := toml.Unmarshal(content, &doc); err != nil {
		return nil, fmt.Errorf("tpnschema: decoding TOML: %w", err)
	}

	out := make(map[string][]string, len(doc.Parameters))
	for name, spec := range doc.Parameters {
		out[name] = spec.Values
	}
	return out, nil
}
