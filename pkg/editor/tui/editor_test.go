package tui_test

import (
	"context"
	"strings"
	"testing"

	"github.com/goliatone/go-widgetsync/pkg/editor/tui"
	"github.com/goliatone/go-widgetsync/pkg/param"
	"github.com/goliatone/go-widgetsync/pkg/visibility"
)

// scriptedDriver replays canned answers and records every prompt message.
type scriptedDriver struct {
	inputs   []string
	confirms []bool
	selects  []int
	prompts  []string
	infos    []string
}

func (d *scriptedDriver) Input(_ context.Context, cfg tui.InputConfig) (string, error) {
	d.prompts = append(d.prompts, cfg.Message)
	if len(d.inputs) == 0 {
		return cfg.Default, nil
	}
	out := d.inputs[0]
	d.inputs = d.inputs[1:]
	if cfg.Validator != nil {
		if err := cfg.Validator(out); err != nil {
			return "", err
		}
	}
	return out, nil
}

func (d *scriptedDriver) Confirm(_ context.Context, cfg tui.ConfirmConfig) (bool, error) {
	d.prompts = append(d.prompts, cfg.Message)
	if len(d.confirms) == 0 {
		return cfg.Default, nil
	}
	out := d.confirms[0]
	d.confirms = d.confirms[1:]
	return out, nil
}

func (d *scriptedDriver) Select(_ context.Context, cfg tui.SelectConfig) (int, error) {
	d.prompts = append(d.prompts, cfg.Message)
	if len(d.selects) == 0 {
		return cfg.DefaultIndex, nil
	}
	out := d.selects[0]
	d.selects = d.selects[1:]
	return out, nil
}

func (d *scriptedDriver) Info(_ context.Context, msg string) error {
	d.infos = append(d.infos, msg)
	return nil
}

// memorySurface is an in-process Surface with real schema visibility.
type memorySurface struct {
	schema param.Schema
	values map[string]any
	pushed int
}

func (m *memorySurface) Schema() param.Schema   { return m.schema }
func (m *memorySurface) Values() map[string]any { return m.values }
func (m *memorySurface) Push(context.Context) error {
	m.pushed++
	return nil
}

func (m *memorySurface) Visible(path string) bool {
	field, ok := m.schema.FieldAt(path)
	if !ok {
		return false
	}
	return field.VisibleIf == nil || field.VisibleIf.Visible(m.values)
}

func (m *memorySurface) Set(path string, value any) error {
	segments := strings.Split(path, ".")
	current := m.values
	for _, segment := range segments[:len(segments)-1] {
		next, ok := current[segment].(map[string]any)
		if !ok {
			next = map[string]any{}
			current[segment] = next
		}
		current = next
	}
	current[segments[len(segments)-1]] = value
	return nil
}

func editorSchema(t *testing.T) param.Schema {
	t.Helper()
	return param.MustNew(
		param.Key("title", param.String("Quiz").Label("Title")),
		param.Key("difficulty", param.Select([]string{"easy", "hard"}, "easy").Label("Difficulty")),
		param.Key("timer", param.Folder("Timer settings",
			param.Key("enabled", param.Boolean(false).Label("Enable timer")),
			param.Key("duration", param.Number(60).Min(5).Max(600).Label("Duration").
				VisibleIf(visibility.Equals("timer.enabled", true))),
		)),
	)
}

func newSurface(t *testing.T) *memorySurface {
	t.Helper()
	schema := editorSchema(t)
	return &memorySurface{schema: schema, values: param.Defaults(schema)}
}

func TestEditor_WalksSchemaInOrderAndPushes(t *testing.T) {
	driver := &scriptedDriver{
		inputs:   []string{"My quiz"},
		selects:  []int{1},
		confirms: []bool{true},
	}
	surface := newSurface(t)

	editor := tui.New(tui.WithDriver(driver))
	if err := editor.Run(context.Background(), surface); err != nil {
		t.Fatalf("run: %v", err)
	}

	if surface.values["title"] != "My quiz" {
		t.Fatalf("title %v", surface.values["title"])
	}
	if surface.values["difficulty"] != "hard" {
		t.Fatalf("difficulty %v", surface.values["difficulty"])
	}
	if len(driver.infos) != 1 || driver.infos[0] != "Timer settings" {
		t.Fatalf("folder header %v", driver.infos)
	}
	if surface.pushed != 1 {
		t.Fatalf("expected exactly one push, got %d", surface.pushed)
	}
}

func TestEditor_RevealsDependentsWithinPass(t *testing.T) {
	driver := &scriptedDriver{
		confirms: []bool{true},
		inputs:   []string{"Quiz", "120"},
	}
	surface := newSurface(t)

	editor := tui.New(tui.WithDriver(driver))
	if err := editor.Run(context.Background(), surface); err != nil {
		t.Fatalf("run: %v", err)
	}

	timer := surface.values["timer"].(map[string]any)
	if timer["duration"] != float64(120) {
		t.Fatalf("dependent field not prompted after toggle: %v", timer["duration"])
	}
}

func TestEditor_SkipsHiddenFields(t *testing.T) {
	driver := &scriptedDriver{confirms: []bool{false}}
	surface := newSurface(t)

	editor := tui.New(tui.WithDriver(driver))
	if err := editor.Run(context.Background(), surface); err != nil {
		t.Fatalf("run: %v", err)
	}

	for _, prompt := range driver.prompts {
		if prompt == "Duration" {
			t.Fatalf("hidden field was prompted")
		}
	}
	timer := surface.values["timer"].(map[string]any)
	if timer["duration"] != float64(60) {
		t.Fatalf("hidden field lost its value: %v", timer["duration"])
	}
}

func TestEditor_NumberValidatorEnforcesRange(t *testing.T) {
	driver := &scriptedDriver{
		confirms: []bool{true},
		inputs:   []string{"Quiz", "9000"},
	}
	surface := newSurface(t)

	editor := tui.New(tui.WithDriver(driver))
	if err := editor.Run(context.Background(), surface); err == nil {
		t.Fatalf("expected out-of-range rejection")
	}
}
