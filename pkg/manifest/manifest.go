// Package manifest loads declarative widget manifests: the widget's identity
// plus its parameter schema, authored as YAML or JSON. Manifests let hosts
// render configuration UI for widgets that are not running.
package manifest

import (
	"bytes"
	"encoding/json"
	"fmt"
	"path"
	"strings"

	"github.com/goliatone/go-widgetsync/pkg/param"
	"github.com/goliatone/go-widgetsync/pkg/widget"
)

// Manifest declares a widget's identity and parameter schema.
type Manifest struct {
	Name        string       `json:"name"`
	Version     string       `json:"version,omitempty"`
	Description string       `json:"description,omitempty"`
	Parameters  param.Schema `json:"parameters"`
}

// Validate enforces manifest invariants: a name and a valid, non-empty
// parameter schema.
func (m Manifest) Validate() error {
	if m.Name == "" {
		return fmt.Errorf("manifest: name is required")
	}
	if m.Parameters.Len() == 0 {
		return fmt.Errorf("manifest %q: parameters are required", m.Name)
	}
	if err := m.Parameters.Validate(); err != nil {
		return fmt.Errorf("manifest %q: %w", m.Name, err)
	}
	return nil
}

// Definition projects the manifest into a runtime definition. The evaluator
// stays nil; manifests are declarative and carry no code.
func (m Manifest) Definition() widget.Definition {
	return widget.Definition{
		Name:        m.Name,
		Version:     m.Version,
		Description: m.Description,
		Parameters:  m.Parameters,
	}
}

// Parse decodes a manifest document, selecting the decoder from the source
// location's extension and falling back to content sniffing.
func Parse(doc Document) (Manifest, error) {
	raw := doc.Raw()

	data := raw
	if !looksLikeJSON(doc, raw) {
		converted, err := yamlDocToJSON(raw)
		if err != nil {
			return Manifest{}, fmt.Errorf("manifest: parse %s: %w", doc.Location(), err)
		}
		data = converted
	}

	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return Manifest{}, fmt.Errorf("manifest: parse %s: %w", doc.Location(), err)
	}
	if err := m.Validate(); err != nil {
		return Manifest{}, err
	}
	return m, nil
}

func looksLikeJSON(doc Document, raw []byte) bool {
	switch strings.ToLower(path.Ext(doc.Location())) {
	case ".json":
		return true
	case ".yaml", ".yml":
		return false
	}
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) > 0 && (trimmed[0] == '{' || trimmed[0] == '[')
}
