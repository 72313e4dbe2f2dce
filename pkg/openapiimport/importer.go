// Package openapiimport derives widget parameter schemas from OpenAPI
// component schemas, so services that already publish an API contract can
// expose configuration UI without authoring a second schema by hand.
//
// OpenAPI properties carry no declaration order, so imported fields are
// sorted by name for deterministic output.
package openapiimport

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"

	"github.com/goliatone/go-widgetsync/pkg/param"
)

// Component extracts one named component schema as a parameter schema. The
// component must be an object type; leaves map by type, format, and enum.
func Component(ctx context.Context, raw []byte, name string) (param.Schema, error) {
	components, err := Components(ctx, raw)
	if err != nil {
		return param.Schema{}, err
	}
	schema, ok := components[name]
	if !ok {
		return param.Schema{}, fmt.Errorf("openapiimport: component %q not found", name)
	}
	return schema, nil
}

// Components extracts every object-typed component schema from an OpenAPI
// document. Non-object components are skipped; they cannot form a parameter
// tree.
func Components(ctx context.Context, raw []byte) (map[string]param.Schema, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(raw) == 0 {
		return nil, errors.New("openapiimport: document payload is empty")
	}

	loader := &openapi3.Loader{Context: ctx}
	spec, err := loader.LoadFromData(raw)
	if err != nil {
		return nil, fmt.Errorf("openapiimport: load document: %w", err)
	}
	if spec.Components == nil || len(spec.Components.Schemas) == 0 {
		return nil, errors.New("openapiimport: document has no component schemas")
	}

	result := make(map[string]param.Schema)
	for name, ref := range spec.Components.Schemas {
		if ref == nil || ref.Value == nil {
			continue
		}
		if schemaType(ref.Value) != "object" {
			continue
		}
		schema, err := convertObject(ref.Value)
		if err != nil {
			return nil, fmt.Errorf("openapiimport: component %q: %w", name, err)
		}
		if err := schema.Validate(); err != nil {
			return nil, fmt.Errorf("openapiimport: component %q: %w", name, err)
		}
		result[name] = schema
	}
	if len(result) == 0 {
		return nil, errors.New("openapiimport: no object components extracted")
	}
	return result, nil
}

func convertObject(src *openapi3.Schema) (param.Schema, error) {
	required := make(map[string]bool, len(src.Required))
	for _, name := range src.Required {
		required[name] = true
	}

	names := make([]string, 0, len(src.Properties))
	for name := range src.Properties {
		names = append(names, name)
	}
	sort.Strings(names)

	var schema param.Schema
	for _, name := range names {
		ref := src.Properties[name]
		if ref == nil || ref.Value == nil {
			continue
		}
		field, err := convertField(ref.Value, required[name])
		if err != nil {
			return param.Schema{}, fmt.Errorf("property %q: %w", name, err)
		}
		if err := schema.Add(name, field); err != nil {
			return param.Schema{}, err
		}
	}
	return schema, nil
}

func convertField(src *openapi3.Schema, required bool) (param.Field, error) {
	if schemaType(src) == "object" {
		nested, err := convertObject(src)
		if err != nil {
			return param.Field{}, err
		}
		expanded := false
		return param.Field{
			Type:        param.KindFolder,
			Title:       src.Title,
			Description: src.Description,
			Expanded:    &expanded,
			Fields:      &nested,
		}, nil
	}

	field := param.Field{
		Label:       src.Title,
		Description: src.Description,
		Default:     src.Default,
		Required:    required,
	}

	if len(src.Enum) > 0 {
		field.Type = param.KindSelect
		field.Options = append([]any(nil), src.Enum...)
		return field, nil
	}

	switch schemaType(src) {
	case "boolean":
		field.Type = param.KindBoolean
	case "number", "integer":
		field.Type = param.KindNumber
		if src.Min != nil {
			value := *src.Min
			field.Min = &value
		}
		if src.Max != nil {
			value := *src.Max
			field.Max = &value
		}
		if src.MultipleOf != nil {
			value := *src.MultipleOf
			field.Step = &value
		}
		if n, ok := src.Default.(int); ok {
			field.Default = float64(n)
		}
	case "string":
		switch src.Format {
		case "color":
			field.Type = param.KindColor
		case "uri", "binary":
			field.Type = param.KindImage
		default:
			field.Type = param.KindString
		}
	default:
		return param.Field{}, fmt.Errorf("unsupported schema type %q", schemaType(src))
	}
	return field, nil
}

func schemaType(src *openapi3.Schema) string {
	if src.Type == nil {
		return ""
	}
	values := src.Type.Slice()
	switch len(values) {
	case 0:
		return ""
	case 1:
		return values[0]
	default:
		return strings.Join(values, ",")
	}
}
