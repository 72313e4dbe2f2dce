// Package tui prompts through a widget parameter schema at the terminal,
// mapping every answer back to its schema path on the host synchronizer.
// Visibility conditions are re-evaluated before each prompt, so enabling a
// toggle reveals its dependents within the same pass.
package tui

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/goliatone/go-widgetsync/pkg/param"
)

var colorPattern = regexp.MustCompile(`^#(?:[0-9a-fA-F]{3}|[0-9a-fA-F]{6})$`)

// Surface is the editing target: the host synchronizer in production, a stub
// in tests.
type Surface interface {
	Schema() param.Schema
	Values() map[string]any
	Visible(path string) bool
	Set(path string, value any) error
	Push(ctx context.Context) error
}

// Option customises editor construction.
type Option func(*Editor)

// WithDriver overrides the prompt driver.
func WithDriver(driver PromptDriver) Option {
	return func(e *Editor) {
		if driver != nil {
			e.driver = driver
		}
	}
}

// Editor walks a schema in declaration order, prompting per field kind.
type Editor struct {
	driver PromptDriver
}

// New constructs an editor with defaults (survey driver).
func New(options ...Option) *Editor {
	e := &Editor{driver: newSurveyDriver()}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(e)
	}
	return e
}

// Run performs one editing pass over every currently visible field and then
// pushes the resulting tree to the widget. Hidden fields are skipped but keep
// their values.
func (e *Editor) Run(ctx context.Context, surface Surface) error {
	if ctx == nil {
		return errors.New("tui: context is required")
	}
	if surface == nil {
		return errors.New("tui: surface is required")
	}
	if err := e.editSchema(ctx, surface, surface.Schema(), ""); err != nil {
		return err
	}
	return surface.Push(ctx)
}

func (e *Editor) editSchema(ctx context.Context, surface Surface, schema param.Schema, prefix string) error {
	for _, key := range schema.Keys() {
		field, _ := schema.Get(key)
		path := key
		if prefix != "" {
			path = prefix + "." + key
		}
		if !surface.Visible(path) {
			continue
		}
		if err := e.editField(ctx, surface, field, path); err != nil {
			return err
		}
	}
	return nil
}

func (e *Editor) editField(ctx context.Context, surface Surface, field param.Field, path string) error {
	if field.IsFolder() {
		title := field.Title
		if title == "" {
			title = path
		}
		if err := e.driver.Info(ctx, title); err != nil {
			return err
		}
		if field.Fields == nil {
			return nil
		}
		return e.editSchema(ctx, surface, *field.Fields, path)
	}

	switch field.Type {
	case param.KindBoolean:
		return e.editBoolean(ctx, surface, field, path)
	case param.KindNumber:
		return e.editNumber(ctx, surface, field, path)
	case param.KindSelect:
		return e.editSelect(ctx, surface, field, path)
	case param.KindColor:
		return e.editText(ctx, surface, field, path, validateColor)
	default:
		return e.editText(ctx, surface, field, path, nil)
	}
}

func (e *Editor) editBoolean(ctx context.Context, surface Surface, field param.Field, path string) error {
	current, _ := valueAt(surface.Values(), path)
	def, _ := current.(bool)
	out, err := e.driver.Confirm(ctx, ConfirmConfig{
		Message: label(field, path),
		Default: def,
		Help:    field.Description,
	})
	if err != nil {
		return err
	}
	return surface.Set(path, out)
}

func (e *Editor) editNumber(ctx context.Context, surface Surface, field param.Field, path string) error {
	current, _ := valueAt(surface.Values(), path)
	def := ""
	if n, ok := asFloat(current); ok {
		def = formatNumber(n)
	}
	out, err := e.driver.Input(ctx, InputConfig{
		Message:   label(field, path),
		Default:   def,
		Help:      numberHelp(field),
		Validator: numberValidator(field),
	})
	if err != nil {
		return err
	}
	n, err := strconv.ParseFloat(strings.TrimSpace(out), 64)
	if err != nil {
		return fmt.Errorf("tui: %s: %w", path, err)
	}
	return surface.Set(path, n)
}

func (e *Editor) editSelect(ctx context.Context, surface Surface, field param.Field, path string) error {
	options := make([]string, len(field.Options))
	for i, option := range field.Options {
		options[i] = fmt.Sprint(option)
	}
	current, _ := valueAt(surface.Values(), path)
	defaultIndex := indexOf(options, fmt.Sprint(current))

	idx, err := e.driver.Select(ctx, SelectConfig{
		Message:      label(field, path),
		Options:      options,
		DefaultIndex: defaultIndex,
		Help:         field.Description,
	})
	if err != nil {
		return err
	}
	if idx < 0 || idx >= len(field.Options) {
		return fmt.Errorf("tui: %s: selection out of range", path)
	}
	return surface.Set(path, field.Options[idx])
}

func (e *Editor) editText(ctx context.Context, surface Surface, field param.Field, path string, validator func(string) error) error {
	current, _ := valueAt(surface.Values(), path)
	def, _ := current.(string)
	help := field.Description
	if field.Placeholder != "" {
		help = field.Placeholder
	}
	out, err := e.driver.Input(ctx, InputConfig{
		Message:   label(field, path),
		Default:   def,
		Help:      help,
		Validator: validator,
	})
	if err != nil {
		return err
	}
	return surface.Set(path, out)
}

func label(field param.Field, path string) string {
	if field.Label != "" {
		return field.Label
	}
	return path
}

func numberHelp(field param.Field) string {
	var parts []string
	if field.Min != nil {
		parts = append(parts, fmt.Sprintf("min %s", formatNumber(*field.Min)))
	}
	if field.Max != nil {
		parts = append(parts, fmt.Sprintf("max %s", formatNumber(*field.Max)))
	}
	if len(parts) == 0 {
		return field.Description
	}
	return strings.Join(parts, ", ")
}

func numberValidator(field param.Field) func(string) error {
	return func(raw string) error {
		n, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
		if err != nil {
			return errors.New("enter a number")
		}
		if field.Min != nil && n < *field.Min {
			return fmt.Errorf("must be at least %s", formatNumber(*field.Min))
		}
		if field.Max != nil && n > *field.Max {
			return fmt.Errorf("must be at most %s", formatNumber(*field.Max))
		}
		return nil
	}
}

func validateColor(raw string) error {
	if !colorPattern.MatchString(strings.TrimSpace(raw)) {
		return errors.New("enter a hex color like #ff8800")
	}
	return nil
}

func formatNumber(n float64) string {
	return strconv.FormatFloat(n, 'f', -1, 64)
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}

func valueAt(tree map[string]any, path string) (any, bool) {
	segments := strings.Split(path, ".")
	var current any = tree
	for _, segment := range segments {
		record, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}
		current, ok = record[segment]
		if !ok {
			return nil, false
		}
	}
	return current, true
}
