package param

import (
	"fmt"
	"reflect"
	"strings"
)

// CheckShape verifies that a Go struct type structurally matches a schema:
// every leaf maps to a struct field of the value type its kind implies and
// every folder maps to a nested struct. Widgets using the generic typed
// runtime call this once at definition time so that every later leaf access
// through the struct is known-typed.
//
// Struct fields are matched by their json tag, falling back to a
// case-insensitive name match. Exported struct fields not covered by the
// schema are rejected because no parameter push would ever populate them.
func CheckShape(schema Schema, t reflect.Type) error {
	if t == nil {
		return fmt.Errorf("param: shape type is nil")
	}
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return fmt.Errorf("param: shape type %s is not a struct", t)
	}
	return checkStruct(schema, t, "")
}

func checkStruct(schema Schema, t reflect.Type, prefix string) error {
	matched := make(map[string]bool)

	for _, key := range schema.keys {
		path := key
		if prefix != "" {
			path = prefix + "." + key
		}
		structField, ok := fieldByKey(t, key)
		if !ok {
			return fmt.Errorf("param: no struct field for schema key %q", path)
		}
		matched[structField.Name] = true

		field := schema.fields[key]
		if field.IsFolder() {
			nested := structField.Type
			if nested.Kind() == reflect.Pointer {
				nested = nested.Elem()
			}
			if nested.Kind() != reflect.Struct {
				return fmt.Errorf("param: folder %q needs a struct field, got %s", path, structField.Type)
			}
			var sub Schema
			if field.Fields != nil {
				sub = *field.Fields
			}
			if err := checkStruct(sub, nested, path); err != nil {
				return err
			}
			continue
		}
		if err := checkLeafKind(field, structField.Type, path); err != nil {
			return err
		}
	}

	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		if !sf.IsExported() || jsonName(sf) == "-" {
			continue
		}
		if !matched[sf.Name] {
			return fmt.Errorf("param: struct field %s.%s has no schema entry", t.Name(), sf.Name)
		}
	}
	return nil
}

func checkLeafKind(field Field, t reflect.Type, path string) error {
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	switch field.Type {
	case KindString, KindColor, KindImage:
		if t.Kind() != reflect.String {
			return fmt.Errorf("param: field %q (%s) needs a string, got %s", path, field.Type, t)
		}
	case KindNumber:
		switch t.Kind() {
		case reflect.Float64, reflect.Float32,
			reflect.Int, reflect.Int32, reflect.Int64:
		default:
			return fmt.Errorf("param: field %q (number) needs a numeric type, got %s", path, t)
		}
	case KindBoolean:
		if t.Kind() != reflect.Bool {
			return fmt.Errorf("param: field %q (boolean) needs a bool, got %s", path, t)
		}
	case KindSelect:
		if len(field.Options) == 0 {
			return fmt.Errorf("param: field %q (select) has no options", path)
		}
		optionType := reflect.TypeOf(field.Options[0])
		if optionType == nil || !compatibleKinds(optionType.Kind(), t.Kind()) {
			return fmt.Errorf("param: field %q (select) options are %T, struct field is %s", path, field.Options[0], t)
		}
	default:
		return fmt.Errorf("param: field %q has unknown type %q", path, field.Type)
	}
	return nil
}

func compatibleKinds(option, target reflect.Kind) bool {
	if option == target {
		return true
	}
	numeric := func(k reflect.Kind) bool {
		switch k {
		case reflect.Float64, reflect.Float32, reflect.Int, reflect.Int32, reflect.Int64:
			return true
		}
		return false
	}
	return numeric(option) && numeric(target)
}

func fieldByKey(t reflect.Type, key string) (reflect.StructField, bool) {
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		if !sf.IsExported() {
			continue
		}
		name := jsonName(sf)
		if name == "-" {
			continue
		}
		if name == key {
			return sf, true
		}
	}
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		if !sf.IsExported() || jsonName(sf) != "" {
			continue
		}
		if strings.EqualFold(sf.Name, key) {
			return sf, true
		}
	}
	return reflect.StructField{}, false
}

func jsonName(sf reflect.StructField) string {
	tag, ok := sf.Tag.Lookup("json")
	if !ok {
		return ""
	}
	name, _, _ := strings.Cut(tag, ",")
	return name
}
