// Package protocol defines the finite message vocabulary exchanged between a
// host and a widget, plus the submission types that cross the boundary on
// answer attempts. Envelopes are encoded as JSON objects with a `type`
// discriminant; native channels that can only carry strings double-encode the
// same JSON, and Decode normalizes both wire forms into the same in-memory
// shape.
package protocol

import (
	"encoding/json"
	"fmt"

	"github.com/goliatone/go-widgetsync/pkg/param"
)

// Type discriminates protocol envelopes.
type Type string

const (
	// TypeWidgetReady announces the widget's schema to the host.
	TypeWidgetReady Type = "WIDGET_READY"
	// TypeParamsUpdate pushes a full parameter value tree to the widget.
	TypeParamsUpdate Type = "PARAMS_UPDATE"
	// TypeSubmit reports an answer attempt with its evaluation.
	TypeSubmit Type = "SUBMIT"
	// TypeEvent carries an ad-hoc widget event.
	TypeEvent Type = "EVENT"
	// TypeError surfaces a widget-side failure the host should display.
	TypeError Type = "ERROR"
	// TypeEnterReview seeds the widget with a prior answer for inspection.
	TypeEnterReview Type = "ENTER_REVIEW"
	// TypeExitReview returns the widget to practice mode.
	TypeExitReview Type = "EXIT_REVIEW"
)

// AnswerKey is the reserved parameter key legacy hosts use to piggyback a
// review answer on a PARAMS_UPDATE. Runtimes strip it before notifying
// parameter subscribers.
const AnswerKey = "__answer"

// Envelope is one wire message. Payload stays raw until the receiver knows
// the type-specific shape to decode into.
type Envelope struct {
	Type    Type            `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// NewEnvelope wraps a payload value into an envelope.
func NewEnvelope(t Type, payload any) (Envelope, error) {
	env := Envelope{Type: t}
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return Envelope{}, fmt.Errorf("protocol: marshal %s payload: %w", t, err)
		}
		env.Payload = raw
	}
	return env, nil
}

// DecodePayload unmarshals the envelope payload into dst.
func (e Envelope) DecodePayload(dst any) error {
	if len(e.Payload) == 0 {
		return fmt.Errorf("protocol: %s envelope has no payload", e.Type)
	}
	if err := json.Unmarshal(e.Payload, dst); err != nil {
		return fmt.Errorf("protocol: decode %s payload: %w", e.Type, err)
	}
	return nil
}

// ReadyPayload is the WIDGET_READY body: the parameter schema plus optional
// identity so the host can render configuration UI before any value exists.
type ReadyPayload struct {
	Schema       param.Schema `json:"schema"`
	Name         string       `json:"name,omitempty"`
	Version      string       `json:"version,omitempty"`
	Description  string       `json:"description,omitempty"`
	HasEvaluator bool         `json:"hasEvaluator,omitempty"`
}

// EventPayload is the EVENT body.
type EventPayload struct {
	Event   string `json:"event"`
	Payload any    `json:"payload,omitempty"`
}

// ErrorPayload is the ERROR body.
type ErrorPayload struct {
	Message string `json:"message"`
	Stack   string `json:"stack,omitempty"`
}

// ReviewPayload is the ENTER_REVIEW body: the prior answer only, never its
// evaluation or score.
type ReviewPayload struct {
	Answer any `json:"answer"`
}
