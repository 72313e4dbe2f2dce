// Package visibility evaluates conditional display rules against the current
// parameter value tree. Conditions are tagged variants (Equals, NotEquals,
// OneOf) internally while remaining JSON-compatible with the
// `{param, equals, notEquals, in}` wire shape consumed by configuration
// surfaces.
package visibility

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strings"
)

// Condition ties a predicate to a dot-delimited parameter path. The zero
// Condition has no predicate and evaluates as visible.
type Condition struct {
	param     string
	predicate predicate
}

type predicate interface {
	matches(value any) bool
}

type equalsPredicate struct{ want any }

func (p equalsPredicate) matches(value any) bool { return looseEqual(value, p.want) }

type notEqualsPredicate struct{ want any }

func (p notEqualsPredicate) matches(value any) bool { return !looseEqual(value, p.want) }

type oneOfPredicate struct{ want []any }

func (p oneOfPredicate) matches(value any) bool {
	for _, candidate := range p.want {
		if looseEqual(value, candidate) {
			return true
		}
	}
	return false
}

// Equals builds a condition satisfied when the value at path equals want.
func Equals(path string, want any) Condition {
	return Condition{param: path, predicate: equalsPredicate{want: want}}
}

// NotEquals builds a condition satisfied when the value at path differs from
// want.
func NotEquals(path string, want any) Condition {
	return Condition{param: path, predicate: notEqualsPredicate{want: want}}
}

// OneOf builds a condition satisfied when the value at path matches any of
// the supplied candidates.
func OneOf(path string, want ...any) Condition {
	return Condition{param: path, predicate: oneOfPredicate{want: want}}
}

// Param reports the dot-delimited path the condition inspects.
func (c Condition) Param() string {
	return c.param
}

// IsZero reports whether the condition carries no predicate and no path.
func (c Condition) IsZero() bool {
	return c.param == "" && c.predicate == nil
}

// Visible evaluates the condition against a value tree. Conditions without a
// predicate, and paths that do not resolve, follow the permissive contract:
// a missing predicate means visible, a missing value is compared as nil.
func (c Condition) Visible(values map[string]any) bool {
	if c.predicate == nil {
		return true
	}
	value, _ := Lookup(values, c.param)
	return c.predicate.matches(value)
}

// Lookup resolves a dot-delimited path against a nested value tree.
func Lookup(values map[string]any, path string) (any, bool) {
	if values == nil || path == "" {
		return nil, false
	}
	segments := strings.Split(path, ".")
	current := any(values)
	for _, segment := range segments {
		node, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}
		current, ok = node[segment]
		if !ok {
			return nil, false
		}
	}
	return current, true
}

// wireCondition mirrors the external JSON contract. At most one predicate is
// meaningful; decoding keeps the historical equals → notEquals → in
// precedence so payloads produced by older hosts resolve identically.
type wireCondition struct {
	Param     string `json:"param"`
	Equals    any    `json:"equals,omitempty"`
	NotEquals any    `json:"notEquals,omitempty"`
	In        []any  `json:"in,omitempty"`
}

// MarshalJSON emits the wire shape for the condition's variant.
func (c Condition) MarshalJSON() ([]byte, error) {
	wire := wireCondition{Param: c.param}
	switch p := c.predicate.(type) {
	case equalsPredicate:
		wire.Equals = p.want
	case notEqualsPredicate:
		wire.NotEquals = p.want
	case oneOfPredicate:
		wire.In = p.want
	case nil:
	default:
		return nil, fmt.Errorf("visibility: unsupported predicate %T", c.predicate)
	}
	return json.Marshal(wire)
}

// UnmarshalJSON decodes the wire shape, selecting the first defined predicate
// in precedence order.
func (c *Condition) UnmarshalJSON(data []byte) error {
	var wire wireCondition
	if err := json.Unmarshal(data, &wire); err != nil {
		return fmt.Errorf("visibility: decode condition: %w", err)
	}
	c.param = wire.Param
	switch {
	case wire.Equals != nil:
		c.predicate = equalsPredicate{want: wire.Equals}
	case wire.NotEquals != nil:
		c.predicate = notEqualsPredicate{want: wire.NotEquals}
	case wire.In != nil:
		c.predicate = oneOfPredicate{want: wire.In}
	default:
		c.predicate = nil
	}
	return nil
}

// looseEqual compares values the way JSON round-trips produce them: numeric
// types compare by value regardless of Go kind, everything else via
// reflect.DeepEqual.
func looseEqual(a, b any) bool {
	if af, ok := asFloat(a); ok {
		bf, ok := asFloat(b)
		return ok && af == bf
	}
	return reflect.DeepEqual(a, b)
}

func asFloat(v any) (float64, bool) {
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
	case uint:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}
