package asyncapi

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/asyncflow/asyncflow/internal/runtime/jsoncodec"
)

// JSON renders the document as indented JSON.
func (d *Document) JSON() ([]byte, error) {
	out, err := jsoncodec.MarshalIndent(d, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to render document as JSON: %w", err)
	}
	return out, nil
}

// YAML renders the document as YAML. The document is round-tripped through
// its JSON form first so both encodings share the same tags and omit-empty
// behavior, and so map keys come out in a stable sorted order.
func (d *Document) YAML() ([]byte, error) {
	raw, err := jsoncodec.Marshal(d)
	if err != nil {
		return nil, fmt.Errorf("failed to render document as JSON: %w", err)
	}

	var generic any
	if err := jsoncodec.Unmarshal(raw, &generic); err != nil {
		return nil, fmt.Errorf("failed to reload document for YAML rendering: %w", err)
	}

	out, err := yaml.Marshal(generic)
	if err != nil {
		return nil, fmt.Errorf("failed to render document as YAML: %w", err)
	}
	return out, nil
}

// Clone returns a deep copy of the document via a JSON round trip.
func (d *Document) Clone() (*Document, error) {
	raw, err := jsoncodec.Marshal(d)
	if err != nil {
		return nil, fmt.Errorf("failed to clone document: %w", err)
	}
	clone := &Document{}
	if err := jsoncodec.Unmarshal(raw, clone); err != nil {
		return nil, fmt.Errorf("failed to clone document: %w", err)
	}
	return clone, nil
}
