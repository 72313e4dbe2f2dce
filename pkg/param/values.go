package param

import (
	"fmt"

	"github.com/goliatone/go-widgetsync/pkg/visibility"
)

// Values is a schema-validated accessor over a runtime value tree. Every
// getter checks the path against the schema, so consumers without a static
// struct projection still get contractually typed access: a wrong kind or an
// unknown path is an error, never a silent zero value.
type Values struct {
	schema Schema
	tree   map[string]any
}

// NewValues wraps a value tree with its schema. The tree is typically the
// defaults merged with the latest parameter push.
func NewValues(schema Schema, tree map[string]any) Values {
	return Values{schema: schema, tree: tree}
}

// Raw exposes the underlying tree. Callers must treat it as read-only.
func (v Values) Raw() map[string]any {
	return v.tree
}

// Value resolves a leaf path, falling back to the schema default when the
// tree has no entry.
func (v Values) Value(path string) (any, error) {
	field, ok := v.schema.FieldAt(path)
	if !ok {
		return nil, fmt.Errorf("param: unknown path %q", path)
	}
	if field.IsFolder() {
		return nil, fmt.Errorf("param: path %q is a folder, not a leaf", path)
	}
	if value, ok := visibility.Lookup(v.tree, path); ok {
		return value, nil
	}
	if field.Default != nil {
		return field.Default, nil
	}
	return nil, fmt.Errorf("param: no value or default at %q", path)
}

// String reads a string-valued leaf (string, color, image, or a select over
// string options).
func (v Values) String(path string) (string, error) {
	value, err := v.typedValue(path, KindString, KindColor, KindImage, KindSelect)
	if err != nil {
		return "", err
	}
	s, ok := value.(string)
	if !ok {
		return "", fmt.Errorf("param: value at %q is %T, not string", path, value)
	}
	return s, nil
}

// Number reads a numeric leaf.
func (v Values) Number(path string) (float64, error) {
	value, err := v.typedValue(path, KindNumber, KindSelect)
	if err != nil {
		return 0, err
	}
	n, ok := asNumber(value)
	if !ok {
		return 0, fmt.Errorf("param: value at %q is %T, not a number", path, value)
	}
	return n, nil
}

// Bool reads a boolean leaf.
func (v Values) Bool(path string) (bool, error) {
	value, err := v.typedValue(path, KindBoolean)
	if err != nil {
		return false, err
	}
	b, ok := value.(bool)
	if !ok {
		return false, fmt.Errorf("param: value at %q is %T, not bool", path, value)
	}
	return b, nil
}

// Folder scopes the accessor to a folder path. Folder keys always resolve to
// a mapping once initialized; a missing subtree yields an empty one.
func (v Values) Folder(path string) (Values, error) {
	field, ok := v.schema.FieldAt(path)
	if !ok {
		return Values{}, fmt.Errorf("param: unknown path %q", path)
	}
	if !field.IsFolder() || field.Fields == nil {
		return Values{}, fmt.Errorf("param: path %q is not a folder", path)
	}
	subtree := map[string]any{}
	if value, ok := visibility.Lookup(v.tree, path); ok {
		if m, ok := value.(map[string]any); ok {
			subtree = m
		}
	}
	return Values{schema: *field.Fields, tree: subtree}, nil
}

func (v Values) typedValue(path string, kinds ...Kind) (any, error) {
	field, ok := v.schema.FieldAt(path)
	if !ok {
		return nil, fmt.Errorf("param: unknown path %q", path)
	}
	allowed := false
	for _, kind := range kinds {
		if field.Type == kind {
			allowed = true
			break
		}
	}
	if !allowed {
		return nil, fmt.Errorf("param: field %q has type %q", path, field.Type)
	}
	return v.Value(path)
}
