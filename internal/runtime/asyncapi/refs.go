package asyncapi

import "strings"

// local reference prefixes produced by schema generators before their
// definitions are lifted into the components section.
var localRefPrefixes = []string{"#/definitions/", "#/$defs/"}

// PrefixRefs rewrites local definition references in place so they resolve
// against components.schemas once the definitions are lifted there.
func PrefixRefs(s *SchemaObject) {
	if s == nil {
		return
	}

	for _, prefix := range localRefPrefixes {
		if strings.HasPrefix(s.Ref, prefix) {
			s.Ref = "#/components/schemas/" + strings.TrimPrefix(s.Ref, prefix)
			break
		}
	}

	for _, child := range s.Properties {
		PrefixRefs(child)
	}
	for _, child := range s.Definitions {
		PrefixRefs(child)
	}
	PrefixRefs(s.Items)
	if child, ok := s.AdditionalProperties.(*SchemaObject); ok {
		PrefixRefs(child)
	}
	for _, child := range s.OneOf {
		PrefixRefs(child)
	}
	for _, child := range s.AnyOf {
		PrefixRefs(child)
	}
	for _, child := range s.AllOf {
		PrefixRefs(child)
	}
}
