package protocol

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// Encode serializes an envelope to its canonical wire form.
func Encode(env Envelope) ([]byte, error) {
	if env.Type == "" {
		return nil, fmt.Errorf("protocol: envelope type is required")
	}
	data, err := json.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("protocol: encode envelope: %w", err)
	}
	return data, nil
}

// Decode parses wire bytes into an envelope. Two wire forms interoperate:
// the structured form (a JSON object) and the string-serialized form native
// bridge channels produce (the same object double-encoded as a JSON string).
// Both normalize to the same Envelope, validated against the envelope schema
// before returning.
func Decode(data []byte) (Envelope, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return Envelope{}, fmt.Errorf("protocol: empty message")
	}

	if trimmed[0] == '"' {
		var inner string
		if err := json.Unmarshal(trimmed, &inner); err != nil {
			return Envelope{}, fmt.Errorf("protocol: unwrap string-serialized message: %w", err)
		}
		trimmed = []byte(inner)
	}

	if err := validateEnvelope(trimmed); err != nil {
		return Envelope{}, err
	}

	var env Envelope
	if err := json.Unmarshal(trimmed, &env); err != nil {
		return Envelope{}, fmt.Errorf("protocol: decode envelope: %w", err)
	}
	return env, nil
}

// envelopeSchema constrains the outer message shape; payload shapes are
// enforced by their typed decoders.
const envelopeSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "required": ["type"],
  "properties": {
    "type": {
      "type": "string",
      "enum": [
        "WIDGET_READY",
        "PARAMS_UPDATE",
        "SUBMIT",
        "EVENT",
        "ERROR",
        "ENTER_REVIEW",
        "EXIT_REVIEW"
      ]
    },
    "payload": {}
  },
  "additionalProperties": false
}`

var (
	compileOnce sync.Once
	compiled    *jsonschema.Schema
	compileErr  error
)

func validateEnvelope(data []byte) error {
	compileOnce.Do(func() {
		compiled, compileErr = jsonschema.CompileString("envelope.json", envelopeSchema)
	})
	if compileErr != nil {
		return fmt.Errorf("protocol: compile envelope schema: %w", compileErr)
	}

	var value any
	if err := json.Unmarshal(data, &value); err != nil {
		return fmt.Errorf("protocol: malformed message: %w", err)
	}
	if err := compiled.Validate(value); err != nil {
		return fmt.Errorf("protocol: invalid envelope: %w", err)
	}
	return nil
}
