package llm

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/invopop/jsonschema"
	"github.com/xeipuuv/gojsonschema"
)

// Schema is a compiled JSON schema reflected from a Go type, used both to
// tell the provider the shape we want and to validate what comes back
// before the caller unmarshals it.
type Schema struct {
	Name string
	raw  json.RawMessage
	doc  *gojsonschema.Schema
}

// NewSchema reflects v's type into a JSON schema and compiles it for
// validation. v should be a pointer to the target struct, e.g. new(Step).
func NewSchema(name string, v interface{}) (*Schema, error) {
	reflector := &jsonschema.Reflector{
		DoNotReference:            true,
		ExpandedStruct:            true,
		AllowAdditionalProperties: false,
	}
	s := reflector.Reflect(v)
	raw, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("marshal schema %s: %w", name, err)
	}
	doc, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(raw))
	if err != nil {
		return nil, fmt.Errorf("compile schema %s: %w", name, err)
	}
	return &Schema{Name: name, raw: raw, doc: doc}, nil
}

// JSON returns the compiled schema document, for embedding in a prompt so
// the model knows the expected shape.
func (s *Schema) JSON() string {
	return string(s.raw)
}

// Validate checks data against the compiled schema. A mismatch returns a
// *SchemaError, which callers should treat as recoverable (re-prompt,
// fall back) rather than retried as a transient failure.
func (s *Schema) Validate(data json.RawMessage) error {
	result, err := s.doc.Validate(gojsonschema.NewBytesLoader(data))
	if err != nil {
		return fmt.Errorf("validate against schema %s: %w", s.Name, err)
	}
	if result.Valid() {
		return nil
	}
	msgs := make([]string, 0, len(result.Errors()))
	for _, e := range result.Errors() {
		msgs = append(msgs, e.String())
	}
	return &SchemaError{Schema: s.Name, Violations: msgs}
}

// SchemaError reports that a provider's response did not conform to the
// requested schema.
type SchemaError struct {
	Schema     string
	Violations []string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("response did not match schema %s: %s", e.Schema, strings.Join(e.Violations, "; "))
}
