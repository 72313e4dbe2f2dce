package protocol_test

import (
	"encoding/json"
	"testing"

	"github.com/goliatone/go-widgetsync/pkg/param"
	"github.com/goliatone/go-widgetsync/pkg/protocol"
)

func TestEncodeDecode_StructuredForm(t *testing.T) {
	env, err := protocol.NewEnvelope(protocol.TypeEvent, protocol.EventPayload{
		Event:   "tick",
		Payload: map[string]any{"remaining": 42},
	})
	if err != nil {
		t.Fatalf("new envelope: %v", err)
	}

	data, err := protocol.Encode(env)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	decoded, err := protocol.Decode(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if decoded.Type != protocol.TypeEvent {
		t.Fatalf("type mismatch: %q", decoded.Type)
	}

	var event protocol.EventPayload
	if err := decoded.DecodePayload(&event); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if event.Event != "tick" {
		t.Fatalf("event mismatch: %q", event.Event)
	}
}

func TestDecode_StringSerializedForm(t *testing.T) {
	env, err := protocol.NewEnvelope(protocol.TypeParamsUpdate, map[string]any{"duration": 60})
	if err != nil {
		t.Fatalf("new envelope: %v", err)
	}
	structured, err := protocol.Encode(env)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	// Native bridge channels carry the JSON object double-encoded as a
	// string; the decoder must normalize both forms identically.
	wrapped, err := json.Marshal(string(structured))
	if err != nil {
		t.Fatalf("wrap: %v", err)
	}

	decoded, err := protocol.Decode(wrapped)
	if err != nil {
		t.Fatalf("decode wrapped: %v", err)
	}
	if decoded.Type != protocol.TypeParamsUpdate {
		t.Fatalf("type mismatch: %q", decoded.Type)
	}
}

func TestDecode_RejectsMalformedAndUnknown(t *testing.T) {
	cases := map[string]string{
		"truncated":    `{"type":"EVENT"`,
		"unknown type": `{"type":"NOT_A_MESSAGE"}`,
		"missing type": `{"payload":{}}`,
		"extra field":  `{"type":"EVENT","sneaky":true}`,
		"empty":        ``,
	}
	for name, raw := range cases {
		if _, err := protocol.Decode([]byte(raw)); err == nil {
			t.Fatalf("%s: expected decode error for %q", name, raw)
		}
	}
}

func TestReadyPayload_CarriesSchema(t *testing.T) {
	schema := param.MustNew(
		param.Key("duration", param.Number(60).Min(5).Max(600)),
	)
	env, err := protocol.NewEnvelope(protocol.TypeWidgetReady, protocol.ReadyPayload{
		Schema:       schema,
		Name:         "countdown",
		Version:      "1.2.0",
		HasEvaluator: true,
	})
	if err != nil {
		t.Fatalf("new envelope: %v", err)
	}

	data, err := protocol.Encode(env)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	decoded, err := protocol.Decode(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}

	var ready protocol.ReadyPayload
	if err := decoded.DecodePayload(&ready); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if ready.Name != "countdown" || !ready.HasEvaluator {
		t.Fatalf("identity lost: %+v", ready)
	}
	field, ok := ready.Schema.Get("duration")
	if !ok || field.Type != param.KindNumber {
		t.Fatalf("schema lost in transit: %+v", ready.Schema)
	}
}

func TestEvaluationResult_ScoreBounds(t *testing.T) {
	valid := protocol.EvaluationResult{IsCorrect: false, Score: 0, MaxScore: 100}
	if err := valid.Validate(); err != nil {
		t.Fatalf("expected valid result: %v", err)
	}

	negative := protocol.EvaluationResult{Score: -1, MaxScore: 10}
	if err := negative.Validate(); err == nil {
		t.Fatalf("expected negative score rejection")
	}

	over := protocol.EvaluationResult{Score: 11, MaxScore: 10}
	if err := over.Validate(); err == nil {
		t.Fatalf("expected over-max rejection")
	}
}

func TestNewSubmission(t *testing.T) {
	sub, err := protocol.NewSubmission(
		map[string]any{"selected": "B"},
		protocol.EvaluationResult{IsCorrect: false, Score: 0, MaxScore: 100},
		protocol.SubmissionMetadata{AttemptCount: 1},
	)
	if err != nil {
		t.Fatalf("new submission: %v", err)
	}
	if sub.ID == "" {
		t.Fatalf("submission must carry an identifier")
	}
	if sub.Metadata.Timestamp == 0 {
		t.Fatalf("timestamp must be stamped")
	}

	_, err = protocol.NewSubmission(nil, protocol.EvaluationResult{Score: 5, MaxScore: 1}, protocol.SubmissionMetadata{})
	if err == nil {
		t.Fatalf("expected score bound violation")
	}
}
