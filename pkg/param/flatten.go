package param

import "fmt"

// Flatten derives the dot-path keyed view of a nested schema. Folder entries
// are retained (with their Fields cleared) ahead of their children so the
// nested structure, including folder titles, expansion hints, and visibility
// conditions, survives a later Nest. The canonical wire shape is nested; the
// flat view exists for default extraction and host-side iteration.
func Flatten(s Schema) (Schema, error) {
	var flat Schema
	err := s.Walk(func(path string, field Field) error {
		if field.IsFolder() {
			field.Fields = nil
		}
		return flat.add(path, field)
	})
	if err != nil {
		return Schema{}, fmt.Errorf("param: flatten: %w", err)
	}
	return flat, nil
}

// Nest reconstructs a nested schema from a flat dot-path keyed view. Folder
// entries must precede their children, which Flatten guarantees; an implicit
// untitled folder is created when a child arrives first so externally
// produced flat payloads still nest.
func Nest(flat Schema) (Schema, error) {
	var nested Schema
	for _, path := range flat.keys {
		field := flat.fields[path]
		if field.IsFolder() && field.Fields == nil {
			empty := Schema{}
			field.Fields = &empty
		}
		if err := placeAt(&nested, path, field); err != nil {
			return Schema{}, err
		}
	}
	return nested, nil
}

func placeAt(schema *Schema, path string, field Field) error {
	segments := splitPath(path)
	current := schema
	for _, segment := range segments[:len(segments)-1] {
		parent, ok := current.fields[segment]
		if !ok {
			empty := Schema{}
			parent = Field{Type: KindFolder, Fields: &empty}
			if err := current.Add(segment, parent); err != nil {
				return err
			}
		}
		if !parent.IsFolder() || parent.Fields == nil {
			return fmt.Errorf("param: path %q crosses non-folder %q", path, segment)
		}
		current = parent.Fields
	}
	leaf := segments[len(segments)-1]
	if existing, ok := current.fields[leaf]; ok {
		// A folder placed implicitly by an out-of-order child keeps the
		// children gathered so far.
		if existing.IsFolder() && field.IsFolder() {
			field.Fields = existing.Fields
			current.fields[leaf] = field
			return nil
		}
		return fmt.Errorf("param: duplicate path %q", path)
	}
	return current.Add(leaf, field)
}

// Defaults derives the full default value tree for a schema: folders always
// resolve to a nested map, leaves contribute their default when one is
// declared and are omitted otherwise.
func Defaults(s Schema) map[string]any {
	out := make(map[string]any)
	for _, key := range s.keys {
		field := s.fields[key]
		if field.IsFolder() {
			if field.Fields != nil {
				out[key] = Defaults(*field.Fields)
			} else {
				out[key] = map[string]any{}
			}
			continue
		}
		if field.Default != nil {
			out[key] = field.Default
		}
	}
	return out
}
