package param_test

import (
	"encoding/json"
	"reflect"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-widgetsync/pkg/param"
	"github.com/goliatone/go-widgetsync/pkg/visibility"
)

func paramType[T any]() reflect.Type {
	return reflect.TypeOf((*T)(nil)).Elem()
}

func timerSchema(t *testing.T) param.Schema {
	t.Helper()
	schema, err := param.New(
		param.Key("title", param.String("Countdown").Label("Title").Required()),
		param.Key("duration", param.Number(60).Min(5).Max(600)),
		param.Key("mode", param.Select([]string{"Basic", "Advanced"}, "Basic")),
		param.Key("accent", param.Color("#ff6600")),
		param.Key("badge", param.Image().Placeholder("https://example.test/badge.png")),
		param.Key("advanced", param.Folder("Advanced",
			param.Key("enableSound", param.Boolean(true)),
			param.Key("volume", param.Number(0.5).Min(0).Max(1).Step(0.1)),
		).Expanded(true).VisibleIf(visibility.Equals("mode", "Advanced"))),
	)
	if err != nil {
		t.Fatalf("build schema: %v", err)
	}
	return schema
}

func TestNumberBuilder_ProjectsConstraints(t *testing.T) {
	field, err := param.Number(60).Min(5).Max(600).Field()
	if err != nil {
		t.Fatalf("field: %v", err)
	}

	data, err := json.Marshal(field)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	want := `{"type":"number","default":60,"min":5,"max":600}`
	if string(data) != want {
		t.Fatalf("unexpected projection:\n got %s\nwant %s", data, want)
	}
}

func TestBuilder_ProjectionIsPure(t *testing.T) {
	builder := param.Number(60).Min(5).Max(600)

	first, err := builder.Field()
	if err != nil {
		t.Fatalf("first projection: %v", err)
	}
	second, err := builder.Field()
	if err != nil {
		t.Fatalf("second projection: %v", err)
	}

	firstJSON, _ := json.Marshal(first)
	secondJSON, _ := json.Marshal(second)
	if string(firstJSON) != string(secondJSON) {
		t.Fatalf("projections differ:\n%s\n%s", firstJSON, secondJSON)
	}
}

func TestBuilder_ChainDoesNotMutateBase(t *testing.T) {
	base := param.Number(60)
	_ = base.Min(5)

	field, err := base.Field()
	if err != nil {
		t.Fatalf("field: %v", err)
	}
	if field.Min != nil {
		t.Fatalf("chain call mutated the base builder")
	}
}

func TestSelect_DefaultMustBeMember(t *testing.T) {
	_, err := param.New(
		param.Key("mode", param.Select([]string{"A", "B"}, "C")),
	)
	if err == nil {
		t.Fatalf("expected invalid default to be rejected")
	}
}

func TestSelect_RequiresOptions(t *testing.T) {
	_, err := param.New(
		param.Key("mode", param.Select([]string{})),
	)
	if err == nil {
		t.Fatalf("expected empty options to be rejected")
	}
}

func TestNew_RejectsDuplicateKeys(t *testing.T) {
	_, err := param.New(
		param.Key("x", param.String()),
		param.Key("x", param.Number()),
	)
	if err == nil {
		t.Fatalf("expected duplicate key error")
	}
}

func TestNew_RejectsDottedKeys(t *testing.T) {
	// A dotted key would collide with the flat dot-path view: "a.b" cannot
	// round trip through Flatten and Nest as a top-level entry.
	_, err := param.New(param.Key("a.b", param.String()))
	if err == nil {
		t.Fatalf("expected path separator error")
	}

	var schema param.Schema
	if err := schema.Add("timer.duration", param.Field{Type: param.KindNumber}); err == nil {
		t.Fatalf("expected path separator error from Add")
	}
}

func TestSchema_DecodeRejectsDottedKeys(t *testing.T) {
	var schema param.Schema
	err := json.Unmarshal([]byte(`{"a.b":{"type":"string"}}`), &schema)
	if err == nil {
		t.Fatalf("expected path separator error, got %v", schema.Keys())
	}
}

func TestSchema_OrderSurvivesJSONRoundTrip(t *testing.T) {
	schema := timerSchema(t)

	data, err := json.Marshal(schema)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var decoded param.Schema
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if diff := cmp.Diff(schema.Keys(), decoded.Keys()); diff != "" {
		t.Fatalf("key order changed (-want +got):\n%s", diff)
	}

	reencoded, err := json.Marshal(decoded)
	if err != nil {
		t.Fatalf("re-marshal: %v", err)
	}
	if string(data) != string(reencoded) {
		t.Fatalf("round trip not stable:\n%s\n%s", data, reencoded)
	}
}

func TestSchema_WirePreservesContractNames(t *testing.T) {
	schema := timerSchema(t)

	data, err := json.Marshal(schema)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var generic map[string]map[string]any
	if err := json.Unmarshal(data, &generic); err != nil {
		t.Fatalf("unmarshal generic: %v", err)
	}

	duration := generic["duration"]
	if duration["type"] != "number" || duration["min"] != float64(5) || duration["max"] != float64(600) {
		t.Fatalf("duration wire shape broken: %v", duration)
	}
	advanced := generic["advanced"]
	if advanced["title"] != "Advanced" || advanced["expanded"] != true {
		t.Fatalf("folder wire shape broken: %v", advanced)
	}
	if _, ok := advanced["fields"].(map[string]any); !ok {
		t.Fatalf("folder missing fields mapping: %v", advanced)
	}
}

func TestFlattenNest_RoundTrip(t *testing.T) {
	schema, err := param.New(
		param.Key("outer", param.Folder("Outer",
			param.Key("middle", param.Folder("Middle",
				param.Key("inner", param.Folder("Inner",
					param.Key("leaf", param.String("deep")),
				)),
				param.Key("count", param.Number(3)),
			).Expanded(true)),
		)),
		param.Key("top", param.Boolean(false)),
	)
	if err != nil {
		t.Fatalf("build schema: %v", err)
	}

	flat, err := param.Flatten(schema)
	if err != nil {
		t.Fatalf("flatten: %v", err)
	}
	if _, ok := flat.Get("outer.middle.inner.leaf"); !ok {
		t.Fatalf("flat view missing deep leaf: %v", flat.Keys())
	}

	nested, err := param.Nest(flat)
	if err != nil {
		t.Fatalf("nest: %v", err)
	}

	original, _ := json.Marshal(schema)
	rebuilt, _ := json.Marshal(nested)
	if string(original) != string(rebuilt) {
		t.Fatalf("flatten/nest not a round trip:\n%s\n%s", original, rebuilt)
	}
}

func TestDefaults_FoldersAlwaysResolveToMapping(t *testing.T) {
	schema := timerSchema(t)

	defaults := param.Defaults(schema)

	want := map[string]any{
		"title":    "Countdown",
		"duration": float64(60),
		"mode":     "Basic",
		"accent":   "#ff6600",
		"advanced": map[string]any{
			"enableSound": true,
			"volume":      float64(0.5),
		},
	}
	if diff := cmp.Diff(want, defaults); diff != "" {
		t.Fatalf("defaults mismatch (-want +got):\n%s", diff)
	}
	// badge has no default and is omitted; the folder key is always a map.
	if _, ok := defaults["badge"]; ok {
		t.Fatalf("badge should have no default")
	}
}

func TestValues_TypedAccess(t *testing.T) {
	schema := timerSchema(t)
	values := param.NewValues(schema, map[string]any{
		"title":    "Quiz",
		"duration": float64(90),
		"advanced": map[string]any{"enableSound": false},
	})

	title, err := values.String("title")
	if err != nil || title != "Quiz" {
		t.Fatalf("String: %v %q", err, title)
	}
	duration, err := values.Number("duration")
	if err != nil || duration != 90 {
		t.Fatalf("Number: %v %v", err, duration)
	}
	enabled, err := values.Bool("advanced.enableSound")
	if err != nil || enabled {
		t.Fatalf("Bool: %v %v", err, enabled)
	}

	// Falls back to the schema default when the tree has no entry.
	mode, err := values.String("mode")
	if err != nil || mode != "Basic" {
		t.Fatalf("default fallback: %v %q", err, mode)
	}

	if _, err := values.Number("title"); err == nil {
		t.Fatalf("expected kind mismatch error")
	}
	if _, err := values.String("nope"); err == nil {
		t.Fatalf("expected unknown path error")
	}

	advanced, err := values.Folder("advanced")
	if err != nil {
		t.Fatalf("Folder: %v", err)
	}
	volume, err := advanced.Number("volume")
	if err != nil || volume != 0.5 {
		t.Fatalf("folder default fallback: %v %v", err, volume)
	}
}

func TestCheckShape(t *testing.T) {
	schema := timerSchema(t)

	type Advanced struct {
		EnableSound bool    `json:"enableSound"`
		Volume      float64 `json:"volume"`
	}
	type Params struct {
		Title    string   `json:"title"`
		Duration float64  `json:"duration"`
		Mode     string   `json:"mode"`
		Accent   string   `json:"accent"`
		Badge    string   `json:"badge"`
		Advanced Advanced `json:"advanced"`
	}

	if err := param.CheckShape(schema, paramType[Params]()); err != nil {
		t.Fatalf("expected matching shape, got %v", err)
	}

	type BadDuration struct {
		Title    string   `json:"title"`
		Duration string   `json:"duration"`
		Mode     string   `json:"mode"`
		Accent   string   `json:"accent"`
		Badge    string   `json:"badge"`
		Advanced Advanced `json:"advanced"`
	}
	if err := param.CheckShape(schema, paramType[BadDuration]()); err == nil {
		t.Fatalf("expected kind mismatch for duration")
	}

	type Extra struct {
		Title    string   `json:"title"`
		Duration float64  `json:"duration"`
		Mode     string   `json:"mode"`
		Accent   string   `json:"accent"`
		Badge    string   `json:"badge"`
		Advanced Advanced `json:"advanced"`
		Surplus  string   `json:"surplus"`
	}
	if err := param.CheckShape(schema, paramType[Extra]()); err == nil {
		t.Fatalf("expected surplus field to be rejected")
	}
}
