package manifest_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"testing/fstest"

	"github.com/goliatone/go-widgetsync/pkg/manifest"
	"github.com/goliatone/go-widgetsync/pkg/param"
)

const quizYAML = `name: quiz
version: 1.2.0
description: Multiple choice quiz
parameters:
  title:
    type: string
    label: Title
    default: Quiz
  timer:
    type: folder
    title: Timer
    fields:
      enabled:
        type: boolean
        default: false
      duration:
        type: number
        default: 60
        min: 5
        max: 600
        visibleIf:
          param: timer.enabled
          equals: true
  difficulty:
    type: select
    options: [easy, medium, hard]
    default: easy
`

const quizJSON = `{
  "name": "quiz",
  "parameters": {
    "title": {"type": "string", "default": "Quiz"},
    "difficulty": {"type": "select", "options": ["easy", "hard"], "default": "easy"}
  }
}`

func TestParse_YAMLPreservesKeyOrder(t *testing.T) {
	doc := manifest.MustNewDocument(manifest.SourceFromFile("quiz.yaml"), []byte(quizYAML))
	m, err := manifest.Parse(doc)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	if m.Name != "quiz" || m.Version != "1.2.0" {
		t.Fatalf("identity %+v", m)
	}
	want := []string{"title", "timer", "difficulty"}
	got := m.Parameters.Keys()
	if len(got) != len(want) {
		t.Fatalf("keys %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("key order %v, want %v", got, want)
		}
	}

	duration, ok := m.Parameters.FieldAt("timer.duration")
	if !ok {
		t.Fatalf("nested field missing")
	}
	if duration.Type != param.KindNumber || duration.Min == nil || *duration.Min != 5 {
		t.Fatalf("nested field %+v", duration)
	}
	if duration.VisibleIf == nil {
		t.Fatalf("visibility condition dropped")
	}
}

func TestParse_JSONBySniffing(t *testing.T) {
	doc := manifest.MustNewDocument(manifest.SourceFromFS("quiz"), []byte(quizJSON))
	m, err := manifest.Parse(doc)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if m.Parameters.Len() != 2 {
		t.Fatalf("parameters %v", m.Parameters.Keys())
	}
}

func TestParse_RejectsInvalidSchema(t *testing.T) {
	bad := `{"name": "quiz", "parameters": {"pick": {"type": "select", "options": []}}}`
	doc := manifest.MustNewDocument(manifest.SourceFromFile("bad.json"), []byte(bad))
	if _, err := manifest.Parse(doc); err == nil {
		t.Fatalf("expected select-without-options rejection")
	}
}

func TestParse_RequiresName(t *testing.T) {
	doc := manifest.MustNewDocument(manifest.SourceFromFile("anon.json"),
		[]byte(`{"parameters": {"title": {"type": "string"}}}`))
	if _, err := manifest.Parse(doc); err == nil {
		t.Fatalf("expected missing-name rejection")
	}
}

func TestLoader_FSAndParse(t *testing.T) {
	fsys := fstest.MapFS{
		"widgets/quiz.yaml": &fstest.MapFile{Data: []byte(quizYAML)},
	}
	loader := manifest.NewLoader(manifest.WithFileSystem(fsys))

	m, err := loader.LoadManifest(context.Background(), manifest.SourceFromFS("widgets/quiz.yaml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if m.Name != "quiz" {
		t.Fatalf("name %q", m.Name)
	}
}

func TestLoader_RequiresSource(t *testing.T) {
	_, err := manifest.NewLoader().Load(context.Background(), manifest.Source{})
	if err == nil {
		t.Fatalf("expected zero source rejection")
	}
}

func TestLoader_URLDisabledWithoutClient(t *testing.T) {
	loader := manifest.NewLoader()
	_, err := loader.Load(context.Background(), manifest.SourceFromURL("https://example.com/quiz.yaml"))
	if err == nil {
		t.Fatalf("expected http-disabled rejection")
	}
}

func TestLoader_HTTP(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(quizYAML))
	}))
	defer server.Close()

	loader := manifest.NewLoader(manifest.WithHTTPClient(server.Client()))
	m, err := loader.LoadManifest(context.Background(), manifest.SourceFromURL(server.URL+"/quiz.yaml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if m.Name != "quiz" {
		t.Fatalf("name %q", m.Name)
	}
}

func TestManifest_DefinitionProjection(t *testing.T) {
	doc := manifest.MustNewDocument(manifest.SourceFromFile("quiz.yaml"), []byte(quizYAML))
	m, err := manifest.Parse(doc)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	def := m.Definition()
	if def.Name != m.Name || def.Parameters.Len() != m.Parameters.Len() {
		t.Fatalf("definition %+v", def)
	}
	if def.Evaluator != nil {
		t.Fatalf("manifests must not carry code")
	}
}
