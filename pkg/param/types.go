package param

import (
	"fmt"
	"strings"

	"github.com/goliatone/go-widgetsync/pkg/visibility"
)

// Kind discriminates the field variants a schema can declare.
type Kind string

const (
	KindString  Kind = "string"
	KindNumber  Kind = "number"
	KindBoolean Kind = "boolean"
	KindColor   Kind = "color"
	KindImage   Kind = "image"
	KindSelect  Kind = "select"
	KindFolder  Kind = "folder"
)

// Field is one node of a parameter schema: either a leaf input or a folder
// grouping further fields. The JSON tags freeze the external contract other
// tooling binds to; names must not change.
type Field struct {
	Type        Kind                  `json:"type"`
	Label       string                `json:"label,omitempty"`
	Description string                `json:"description,omitempty"`
	Default     any                   `json:"default,omitempty"`
	Required    bool                  `json:"required,omitempty"`
	VisibleIf   *visibility.Condition `json:"visibleIf,omitempty"`

	// Number constraints.
	Min  *float64 `json:"min,omitempty"`
	Max  *float64 `json:"max,omitempty"`
	Step *float64 `json:"step,omitempty"`

	// Select options.
	Options []any `json:"options,omitempty"`

	// Image presentation hint.
	Placeholder string `json:"placeholder,omitempty"`

	// Folder attributes. Expanded is a display hint, not a validity
	// constraint; it serializes explicitly (including false) for folders.
	Title    string  `json:"title,omitempty"`
	Expanded *bool   `json:"expanded,omitempty"`
	Fields   *Schema `json:"fields,omitempty"`
}

// IsFolder reports whether the field groups nested fields.
func (f Field) IsFolder() bool {
	return f.Type == KindFolder
}

// Schema is an ordered mapping from key to Field. Folders nest further
// schemas. Key order is preserved through JSON round trips because editing
// surfaces render fields in declaration order.
type Schema struct {
	keys   []string
	fields map[string]Field
}

// Len reports the number of top-level entries.
func (s Schema) Len() int {
	return len(s.keys)
}

// Keys returns the entry keys in declaration order. The returned slice is a
// copy.
func (s Schema) Keys() []string {
	out := make([]string, len(s.keys))
	copy(out, s.keys)
	return out
}

// Get looks up a top-level field by key.
func (s Schema) Get(key string) (Field, bool) {
	field, ok := s.fields[key]
	return field, ok
}

// Add appends an entry. Keys must be unique within a schema and may not
// contain ".", which is reserved for flattened paths; a dotted key would make
// the flat view ambiguous.
func (s *Schema) Add(key string, field Field) error {
	if strings.Contains(key, ".") {
		return fmt.Errorf("param: key %q contains a path separator", key)
	}
	return s.add(key, field)
}

// add inserts without the separator check. Flatten uses it to key derived
// views by dotted path.
func (s *Schema) add(key string, field Field) error {
	if key == "" {
		return fmt.Errorf("param: empty key")
	}
	if _, exists := s.fields[key]; exists {
		return fmt.Errorf("param: duplicate key %q", key)
	}
	if s.fields == nil {
		s.fields = make(map[string]Field)
	}
	s.keys = append(s.keys, key)
	s.fields[key] = field
	return nil
}

// MustAdd panics on Add failure. Useful for init-time wiring and tests.
func (s *Schema) MustAdd(key string, field Field) {
	if err := s.Add(key, field); err != nil {
		panic(err)
	}
}

// Walk visits every field depth-first in declaration order, passing the
// dot-delimited path. Folders are visited before their children. Returning an
// error aborts the walk.
func (s Schema) Walk(fn func(path string, field Field) error) error {
	return s.walk("", fn)
}

func (s Schema) walk(prefix string, fn func(path string, field Field) error) error {
	for _, key := range s.keys {
		path := key
		if prefix != "" {
			path = prefix + "." + key
		}
		field := s.fields[key]
		if err := fn(path, field); err != nil {
			return err
		}
		if field.IsFolder() && field.Fields != nil {
			if err := field.Fields.walk(path, fn); err != nil {
				return err
			}
		}
	}
	return nil
}

// FieldAt resolves a dot-delimited path to a field, descending through
// folders.
func (s Schema) FieldAt(path string) (Field, bool) {
	if path == "" {
		return Field{}, false
	}
	current := s
	segments := splitPath(path)
	for i, segment := range segments {
		field, ok := current.Get(segment)
		if !ok {
			return Field{}, false
		}
		if i == len(segments)-1 {
			return field, true
		}
		if !field.IsFolder() || field.Fields == nil {
			return Field{}, false
		}
		current = *field.Fields
	}
	return Field{}, false
}

// Validate checks every field recursively: the kind must be known, select
// options must be non-empty with a member default, and leaf defaults must
// match the type their kind implies.
func (s Schema) Validate() error {
	return s.Walk(func(path string, field Field) error {
		if err := validateField(field); err != nil {
			return fmt.Errorf("param: field %q: %w", path, err)
		}
		return nil
	})
}

func validateField(field Field) error {
	switch field.Type {
	case KindString, KindColor, KindImage:
		if field.Default != nil {
			if _, ok := field.Default.(string); !ok {
				return fmt.Errorf("default %v is not a string", field.Default)
			}
		}
	case KindNumber:
		if field.Default != nil {
			if _, ok := asNumber(field.Default); !ok {
				return fmt.Errorf("default %v is not a number", field.Default)
			}
		}
	case KindBoolean:
		if field.Default != nil {
			if _, ok := field.Default.(bool); !ok {
				return fmt.Errorf("default %v is not a boolean", field.Default)
			}
		}
	case KindSelect:
		if len(field.Options) == 0 {
			return fmt.Errorf("select requires at least one option")
		}
		if field.Default != nil && !containsOption(field.Options, field.Default) {
			return fmt.Errorf("default %v is not a declared option", field.Default)
		}
	case KindFolder:
		if field.Default != nil {
			return fmt.Errorf("folders cannot declare defaults")
		}
	default:
		return fmt.Errorf("unknown field type %q", field.Type)
	}
	return nil
}

func containsOption(options []any, candidate any) bool {
	for _, option := range options {
		if looseEqual(option, candidate) {
			return true
		}
	}
	return false
}

func asNumber(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}

func looseEqual(a, b any) bool {
	if af, ok := asNumber(a); ok {
		bf, ok := asNumber(b)
		return ok && af == bf
	}
	return a == b
}

func splitPath(path string) []string {
	var segments []string
	start := 0
	for i := 0; i < len(path); i++ {
		if path[i] == '.' {
			segments = append(segments, path[start:i])
			start = i + 1
		}
	}
	return append(segments, path[start:])
}
