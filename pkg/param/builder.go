// Package param models widget parameter schemas: a tagged-union Field tree
// with fluent, side-effect free builders and ordered folder nesting. The
// terminal Field() projection is pure; builders are value types, so every
// chain call operates on a copy and the same builder can be projected twice
// with structurally equal results.
package param

import "github.com/goliatone/go-widgetsync/pkg/visibility"

// FieldBuilder is the terminal interface every fluent builder satisfies.
type FieldBuilder interface {
	Field() (Field, error)
}

// Entry pairs a schema key with its field builder.
type Entry struct {
	Key     string
	Builder FieldBuilder
}

// Key binds a builder to a schema key.
func Key(key string, builder FieldBuilder) Entry {
	return Entry{Key: key, Builder: builder}
}

// New projects the entries into a validated Schema. Duplicate keys, empty
// select options, and defaults outside their declared type surface as errors
// here rather than at message time.
func New(entries ...Entry) (Schema, error) {
	var schema Schema
	for _, entry := range entries {
		field, err := entry.Builder.Field()
		if err != nil {
			return Schema{}, err
		}
		if err := schema.Add(entry.Key, field); err != nil {
			return Schema{}, err
		}
	}
	if err := schema.Validate(); err != nil {
		return Schema{}, err
	}
	return schema, nil
}

// MustNew panics when New fails. Useful for widget definitions wired at
// process start.
func MustNew(entries ...Entry) Schema {
	schema, err := New(entries...)
	if err != nil {
		panic(err)
	}
	return schema
}

// StringBuilder configures a free-text field.
type StringBuilder struct{ field Field }

// String starts a string field, optionally with a default value.
func String(defaultValue ...string) StringBuilder {
	b := StringBuilder{field: Field{Type: KindString}}
	if len(defaultValue) > 0 {
		b.field.Default = defaultValue[0]
	}
	return b
}

// Label sets the display label.
func (b StringBuilder) Label(label string) StringBuilder {
	b.field.Label = label
	return b
}

// Description sets the help text.
func (b StringBuilder) Description(description string) StringBuilder {
	b.field.Description = description
	return b
}

// Required marks the field as mandatory.
func (b StringBuilder) Required() StringBuilder {
	b.field.Required = true
	return b
}

// VisibleIf attaches a display condition evaluated against current values.
func (b StringBuilder) VisibleIf(cond visibility.Condition) StringBuilder {
	b.field.VisibleIf = &cond
	return b
}

// Field projects the builder into an immutable schema node.
func (b StringBuilder) Field() (Field, error) {
	return b.field, nil
}

// NumberBuilder configures a numeric field with optional bounds.
type NumberBuilder struct{ field Field }

// Number starts a numeric field, optionally with a default value.
func Number(defaultValue ...float64) NumberBuilder {
	b := NumberBuilder{field: Field{Type: KindNumber}}
	if len(defaultValue) > 0 {
		b.field.Default = defaultValue[0]
	}
	return b
}

// Label sets the display label.
func (b NumberBuilder) Label(label string) NumberBuilder {
	b.field.Label = label
	return b
}

// Description sets the help text.
func (b NumberBuilder) Description(description string) NumberBuilder {
	b.field.Description = description
	return b
}

// Required marks the field as mandatory.
func (b NumberBuilder) Required() NumberBuilder {
	b.field.Required = true
	return b
}

// VisibleIf attaches a display condition evaluated against current values.
func (b NumberBuilder) VisibleIf(cond visibility.Condition) NumberBuilder {
	b.field.VisibleIf = &cond
	return b
}

// Min sets the inclusive lower bound.
func (b NumberBuilder) Min(min float64) NumberBuilder {
	b.field.Min = &min
	return b
}

// Max sets the inclusive upper bound.
func (b NumberBuilder) Max(max float64) NumberBuilder {
	b.field.Max = &max
	return b
}

// Step sets the editing increment hint.
func (b NumberBuilder) Step(step float64) NumberBuilder {
	b.field.Step = &step
	return b
}

// Field projects the builder into an immutable schema node.
func (b NumberBuilder) Field() (Field, error) {
	return b.field, nil
}

// BooleanBuilder configures a true/false field.
type BooleanBuilder struct{ field Field }

// Boolean starts a boolean field, optionally with a default value.
func Boolean(defaultValue ...bool) BooleanBuilder {
	b := BooleanBuilder{field: Field{Type: KindBoolean}}
	if len(defaultValue) > 0 {
		b.field.Default = defaultValue[0]
	}
	return b
}

// Label sets the display label.
func (b BooleanBuilder) Label(label string) BooleanBuilder {
	b.field.Label = label
	return b
}

// Description sets the help text.
func (b BooleanBuilder) Description(description string) BooleanBuilder {
	b.field.Description = description
	return b
}

// Required marks the field as mandatory.
func (b BooleanBuilder) Required() BooleanBuilder {
	b.field.Required = true
	return b
}

// VisibleIf attaches a display condition evaluated against current values.
func (b BooleanBuilder) VisibleIf(cond visibility.Condition) BooleanBuilder {
	b.field.VisibleIf = &cond
	return b
}

// Field projects the builder into an immutable schema node.
func (b BooleanBuilder) Field() (Field, error) {
	return b.field, nil
}

// ColorBuilder configures a color field holding a CSS color string.
type ColorBuilder struct{ field Field }

// Color starts a color field, optionally with a default value.
func Color(defaultValue ...string) ColorBuilder {
	b := ColorBuilder{field: Field{Type: KindColor}}
	if len(defaultValue) > 0 {
		b.field.Default = defaultValue[0]
	}
	return b
}

// Label sets the display label.
func (b ColorBuilder) Label(label string) ColorBuilder {
	b.field.Label = label
	return b
}

// Description sets the help text.
func (b ColorBuilder) Description(description string) ColorBuilder {
	b.field.Description = description
	return b
}

// Required marks the field as mandatory.
func (b ColorBuilder) Required() ColorBuilder {
	b.field.Required = true
	return b
}

// VisibleIf attaches a display condition evaluated against current values.
func (b ColorBuilder) VisibleIf(cond visibility.Condition) ColorBuilder {
	b.field.VisibleIf = &cond
	return b
}

// Field projects the builder into an immutable schema node.
func (b ColorBuilder) Field() (Field, error) {
	return b.field, nil
}

// ImageBuilder configures an image field holding a portable data URL.
type ImageBuilder struct{ field Field }

// Image starts an image field, optionally with a default value.
func Image(defaultValue ...string) ImageBuilder {
	b := ImageBuilder{field: Field{Type: KindImage}}
	if len(defaultValue) > 0 {
		b.field.Default = defaultValue[0]
	}
	return b
}

// Label sets the display label.
func (b ImageBuilder) Label(label string) ImageBuilder {
	b.field.Label = label
	return b
}

// Description sets the help text.
func (b ImageBuilder) Description(description string) ImageBuilder {
	b.field.Description = description
	return b
}

// Required marks the field as mandatory.
func (b ImageBuilder) Required() ImageBuilder {
	b.field.Required = true
	return b
}

// VisibleIf attaches a display condition evaluated against current values.
func (b ImageBuilder) VisibleIf(cond visibility.Condition) ImageBuilder {
	b.field.VisibleIf = &cond
	return b
}

// Placeholder sets the image shown before a value is chosen.
func (b ImageBuilder) Placeholder(placeholder string) ImageBuilder {
	b.field.Placeholder = placeholder
	return b
}

// Field projects the builder into an immutable schema node.
func (b ImageBuilder) Field() (Field, error) {
	return b.field, nil
}

// SelectBuilder configures a field constrained to a closed option set.
type SelectBuilder struct{ field Field }

// Select starts a select field over the given options, optionally with a
// default that must be a member of options. Violations surface when the
// schema is built.
func Select[T comparable](options []T, defaultValue ...T) SelectBuilder {
	b := SelectBuilder{field: Field{Type: KindSelect}}
	b.field.Options = make([]any, len(options))
	for i, option := range options {
		b.field.Options[i] = option
	}
	if len(defaultValue) > 0 {
		b.field.Default = defaultValue[0]
	}
	return b
}

// Label sets the display label.
func (b SelectBuilder) Label(label string) SelectBuilder {
	b.field.Label = label
	return b
}

// Description sets the help text.
func (b SelectBuilder) Description(description string) SelectBuilder {
	b.field.Description = description
	return b
}

// Required marks the field as mandatory.
func (b SelectBuilder) Required() SelectBuilder {
	b.field.Required = true
	return b
}

// VisibleIf attaches a display condition evaluated against current values.
func (b SelectBuilder) VisibleIf(cond visibility.Condition) SelectBuilder {
	b.field.VisibleIf = &cond
	return b
}

// Field projects the builder into an immutable schema node.
func (b SelectBuilder) Field() (Field, error) {
	return b.field, nil
}

// FolderBuilder configures a named group of fields.
type FolderBuilder struct {
	field   Field
	entries []Entry
}

// Folder starts a folder grouping the given entries under a title. Folders
// start collapsed unless Expanded is called.
func Folder(title string, entries ...Entry) FolderBuilder {
	collapsed := false
	return FolderBuilder{
		field:   Field{Type: KindFolder, Title: title, Expanded: &collapsed},
		entries: entries,
	}
}

// Expanded sets the initial open/closed display hint.
func (b FolderBuilder) Expanded(expanded bool) FolderBuilder {
	b.field.Expanded = &expanded
	return b
}

// VisibleIf attaches a display condition evaluated against current values,
// hiding the whole group when unsatisfied.
func (b FolderBuilder) VisibleIf(cond visibility.Condition) FolderBuilder {
	b.field.VisibleIf = &cond
	return b
}

// Field projects the builder and its nested entries into an immutable schema
// node.
func (b FolderBuilder) Field() (Field, error) {
	var nested Schema
	for _, entry := range b.entries {
		field, err := entry.Builder.Field()
		if err != nil {
			return Field{}, err
		}
		if err := nested.Add(entry.Key, field); err != nil {
			return Field{}, err
		}
	}
	field := b.field
	field.Fields = &nested
	return field, nil
}
