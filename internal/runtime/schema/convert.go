package schema

import (
	js "github.com/reoring/goskema/jsonschema"

	"github.com/asyncflow/asyncflow/internal/runtime/asyncapi"
)

// FromJSONSchema converts a goskema JSON Schema export into the document
// schema model.
func FromJSONSchema(s *js.Schema) *asyncapi.SchemaObject {
	if s == nil {
		return nil
	}

	out := &asyncapi.SchemaObject{
		Type:     s.Type,
		Format:   s.Format,
		Default:  s.Default,
		MinItems: s.MinItems,
		MaxItems: s.MaxItems,
	}

	if len(s.Properties) > 0 {
		out.Properties = make(map[string]*asyncapi.SchemaObject, len(s.Properties))
		for name, child := range s.Properties {
			out.Properties[name] = FromJSONSchema(child)
		}
	}
	if len(s.Required) > 0 {
		out.Required = append([]string(nil), s.Required...)
	}

	switch ap := s.AdditionalProperties.(type) {
	case nil:
	case bool:
		out.AdditionalProperties = ap
	case *js.Schema:
		out.AdditionalProperties = FromJSONSchema(ap)
	}

	out.Items = FromJSONSchema(s.Items)

	for _, branch := range s.OneOf {
		out.OneOf = append(out.OneOf, FromJSONSchema(branch))
	}
	return out
}
