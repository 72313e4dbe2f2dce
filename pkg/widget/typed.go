package widget

import (
	"encoding/json"
	"fmt"
	"reflect"

	"github.com/goliatone/go-widgetsync/pkg/param"
)

// Typed wraps a runtime with a struct projection of its parameter schema.
// The struct shape is verified against the schema once at construction, so
// every later field access is known-typed.
type Typed[P any] struct {
	rt *Runtime
}

// NewTyped constructs a runtime whose parameter tree decodes into P. The
// shape check fails fast on mismatches between P and the declared schema.
func NewTyped[P any](def Definition, options ...Option) (*Typed[P], error) {
	shape := reflect.TypeOf((*P)(nil)).Elem()
	if err := param.CheckShape(def.Parameters, shape); err != nil {
		return nil, err
	}
	rt, err := New(def, options...)
	if err != nil {
		return nil, err
	}
	return &Typed[P]{rt: rt}, nil
}

// Runtime exposes the underlying dynamic runtime for operations that do not
// involve the parameter projection (Start, Submit, EmitEvent, mode).
func (t *Typed[P]) Runtime() *Runtime {
	return t.rt
}

// Params decodes the current parameter tree into P. Leaves the host never
// pushed keep their Go zero value; merge defaults host-side to avoid that.
func (t *Typed[P]) Params() (P, error) {
	var out P
	tree := t.rt.Params()
	if err := decodeTree(tree, &out); err != nil {
		return out, err
	}
	return out, nil
}

// OnParamsChange subscribes with the typed projection. Trees that fail to
// decode are logged and skipped; the schema shape check makes that an
// exceptional condition, not a routine one.
func (t *Typed[P]) OnParamsChange(fn func(params P)) func() {
	return t.rt.OnParamsChange(func(tree map[string]any) {
		var out P
		if err := decodeTree(tree, &out); err != nil {
			t.rt.logf("widget: %v", err)
			return
		}
		fn(out)
	})
}

func decodeTree(tree map[string]any, dst any) error {
	raw, err := json.Marshal(tree)
	if err != nil {
		return fmt.Errorf("widget: encode parameter tree: %w", err)
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("widget: decode parameter tree: %w", err)
	}
	return nil
}
