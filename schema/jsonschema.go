package schema

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

// JSONSchema validates payloads against a compiled JSON Schema document.
type JSONSchema struct {
	dataType      string
	assetClass    string
	schemaVersion string
	compiled      *jsonschema.Schema
}

// CompileJSONSchema compiles schema content for one tuple. The tuple is
// carried only for error reporting.
func CompileJSONSchema(dataType, assetClass, schemaVersion string, content []byte) (*JSONSchema, error) {
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("schema: parse %s/%s@%s: %w", dataType, assetClass, schemaVersion, err)
	}

	name := fmt.Sprintf("%s-%s-%s.schema.json", dataType, assetClass, schemaVersion)
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(name, doc); err != nil {
		return nil, fmt.Errorf("schema: add %s: %w", name, err)
	}
	compiled, err := compiler.Compile(name)
	if err != nil {
		return nil, fmt.Errorf("schema: compile %s: %w", name, err)
	}

	return &JSONSchema{
		dataType:      dataType,
		assetClass:    assetClass,
		schemaVersion: schemaVersion,
		compiled:      compiled,
	}, nil
}

// Validate checks the payload, returning a *PayloadError listing every
// violated rule.
func (s *JSONSchema) Validate(payload []byte) error {
	instance, err := jsonschema.UnmarshalJSON(bytes.NewReader(payload))
	if err != nil {
		return &PayloadError{
			DataType:      s.dataType,
			AssetClass:    s.assetClass,
			SchemaVersion: s.schemaVersion,
			Violations:    []string{fmt.Sprintf("malformed JSON: %v", err)},
		}
	}

	if err := s.compiled.Validate(instance); err != nil {
		var ve *jsonschema.ValidationError
		if errors.As(err, &ve) {
			return &PayloadError{
				DataType:      s.dataType,
				AssetClass:    s.assetClass,
				SchemaVersion: s.schemaVersion,
				Violations:    flatten(ve),
			}
		}
		return err
	}
	return nil
}

// flatten collects leaf causes so the error lists every violation, not just
// the first.
func flatten(ve *jsonschema.ValidationError) []string {
	if len(ve.Causes) == 0 {
		return []string{ve.Error()}
	}
	var out []string
	for _, cause := range ve.Causes {
		out = append(out, flatten(cause)...)
	}
	return out
}
