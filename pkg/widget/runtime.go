// Package widget hosts the per-widget runtime: it owns the current parameter
// tree, tracks practice/review mode, dispatches inbound protocol messages to
// subscribers, and exposes the outbound operations (ready signal, submit,
// events). The runtime is the sole owner of distinguishing an answer-bearing
// update from a plain parameter update.
package widget

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/goliatone/go-widgetsync/pkg/bridge"
	"github.com/goliatone/go-widgetsync/pkg/param"
	"github.com/goliatone/go-widgetsync/pkg/protocol"
)

// State tracks the runtime lifecycle.
type State string

const (
	StateUninitialized State = "uninitialized"
	StateReady         State = "ready"
)

// Mode distinguishes live attempts from host-driven answer inspection.
type Mode string

const (
	ModePractice Mode = "practice"
	ModeReview   Mode = "review"
)

// Evaluator scores an answer attempt. Implementations may be slow (remote
// scoring); the context bounds them.
type Evaluator func(ctx context.Context, answer any) (protocol.EvaluationResult, error)

// Definition declares a widget: identity, parameter schema, and an optional
// evaluator.
type Definition struct {
	Name        string
	Version     string
	Description string
	Parameters  param.Schema
	Evaluator   Evaluator
}

// Option customises runtime construction.
type Option func(*Runtime)

// WithBridge injects the transport bridge. Without one the runtime constructs
// a transportless bridge, which keeps widgets functional standalone.
func WithBridge(b *bridge.Bridge) Option {
	return func(r *Runtime) { r.bridge = b }
}

// WithLogger overrides the diagnostic logger.
func WithLogger(logf bridge.Logger) Option {
	return func(r *Runtime) {
		if logf != nil {
			r.logf = logf
		}
	}
}

// WithClock overrides the time source. Tests use this to pin timing
// metadata.
func WithClock(now func() time.Time) Option {
	return func(r *Runtime) {
		if now != nil {
			r.now = now
		}
	}
}

// Runtime is the widget-side protocol endpoint. One runtime lives per widget
// instance for the process lifetime.
type Runtime struct {
	def    Definition
	bridge *bridge.Bridge
	logf   bridge.Logger
	now    func() time.Time

	mu         sync.Mutex
	state      State
	mode       Mode
	params     map[string]any
	hasParams  bool
	answer     any
	hasAnswer  bool
	attempts   int
	submitting bool
	startedAt  time.Time

	nextSubID  int
	paramSubs  []paramSub
	answerSubs []answerSub

	unsubscribe func()
}

type paramSub struct {
	id int
	fn func(map[string]any)
}

type answerSub struct {
	id int
	fn func(any)
}

// New validates the definition and constructs an uninitialized runtime.
// Start sends the ready signal.
func New(def Definition, options ...Option) (*Runtime, error) {
	if def.Name == "" {
		return nil, fmt.Errorf("widget: definition requires a name")
	}
	if def.Parameters.Len() == 0 {
		return nil, fmt.Errorf("widget: definition requires a parameter schema")
	}
	if err := def.Parameters.Validate(); err != nil {
		return nil, err
	}

	r := &Runtime{
		def:   def,
		logf:  log.Printf,
		now:   time.Now,
		state: StateUninitialized,
		mode:  ModePractice,
	}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(r)
	}
	if r.bridge == nil {
		r.bridge = bridge.New(bridge.WithLogger(r.logf))
	}
	return r, nil
}

// Start registers the inbound handler and announces the widget's schema to
// the host so it can render configuration UI before any parameter exists.
func (r *Runtime) Start(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	if r.state != StateUninitialized {
		r.mu.Unlock()
		return fmt.Errorf("widget: runtime already started")
	}
	r.state = StateReady
	r.startedAt = r.now()
	r.mu.Unlock()

	r.unsubscribe = r.bridge.OnMessage(r.handle)

	ready := protocol.ReadyPayload{
		Schema:       r.def.Parameters,
		Name:         r.def.Name,
		Version:      r.def.Version,
		Description:  r.def.Description,
		HasEvaluator: r.def.Evaluator != nil,
	}
	env, err := protocol.NewEnvelope(protocol.TypeWidgetReady, ready)
	if err != nil {
		return err
	}
	return r.bridge.Send(env)
}

// Close detaches the runtime from its bridge.
func (r *Runtime) Close() {
	if r.unsubscribe != nil {
		r.unsubscribe()
		r.unsubscribe = nil
	}
}

// State reports the lifecycle state.
func (r *Runtime) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Mode reports whether the widget is practicing or reviewing.
func (r *Runtime) Mode() Mode {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.mode
}

// Params returns a shallow copy of the current parameter tree.
func (r *Runtime) Params() map[string]any {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[string]any, len(r.params))
	for k, v := range r.params {
		out[k] = v
	}
	return out
}

// Values wraps the current parameter tree in a schema-validated accessor.
func (r *Runtime) Values() param.Values {
	r.mu.Lock()
	defer r.mu.Unlock()
	return param.NewValues(r.def.Parameters, r.params)
}

// Answer reports the review-mode seed answer, when one is set.
func (r *Runtime) Answer() (any, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.answer, r.hasAnswer
}

// OnParamsChange subscribes to parameter updates. When a tree is already
// cached, the callback fires synchronously with it before receiving future
// notifications. The returned function unsubscribes.
func (r *Runtime) OnParamsChange(fn func(params map[string]any)) func() {
	r.mu.Lock()
	r.nextSubID++
	id := r.nextSubID
	r.paramSubs = append(r.paramSubs, paramSub{id: id, fn: fn})
	replay := r.hasParams
	current := r.params
	r.mu.Unlock()

	if replay {
		fn(current)
	}

	return func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		for i, sub := range r.paramSubs {
			if sub.id == id {
				r.paramSubs = append(r.paramSubs[:i], r.paramSubs[i+1:]...)
				return
			}
		}
	}
}

// OnAnswerChange subscribes to review-answer updates. A cached answer
// replays synchronously; exiting review notifies with nil exactly once.
func (r *Runtime) OnAnswerChange(fn func(answer any)) func() {
	r.mu.Lock()
	r.nextSubID++
	id := r.nextSubID
	r.answerSubs = append(r.answerSubs, answerSub{id: id, fn: fn})
	replay := r.hasAnswer
	current := r.answer
	r.mu.Unlock()

	if replay {
		fn(current)
	}

	return func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		for i, sub := range r.answerSubs {
			if sub.id == id {
				r.answerSubs = append(r.answerSubs[:i], r.answerSubs[i+1:]...)
				return
			}
		}
	}
}

// Submit records one attempt: it validates the evaluation's score bounds,
// stamps timing metadata, and sends the submission. The returned submission
// is constructed locally; delivery is fire-and-forget.
func (r *Runtime) Submit(answer any, evaluation protocol.EvaluationResult) (protocol.Submission, error) {
	r.mu.Lock()
	if r.mode == ModeReview {
		r.mu.Unlock()
		return protocol.Submission{}, fmt.Errorf("widget: cannot submit while reviewing")
	}
	r.attempts++
	attempts := r.attempts
	started := r.startedAt
	r.mu.Unlock()

	metadata := protocol.SubmissionMetadata{
		AttemptCount: attempts,
		Timestamp:    r.now().UnixMilli(),
	}
	if !started.IsZero() {
		metadata.TimeSpent = r.now().Sub(started).Milliseconds()
	}

	submission, err := protocol.NewSubmission(answer, evaluation, metadata)
	if err != nil {
		r.mu.Lock()
		r.attempts--
		r.mu.Unlock()
		return protocol.Submission{}, err
	}

	env, err := protocol.NewEnvelope(protocol.TypeSubmit, submission)
	if err != nil {
		return protocol.Submission{}, err
	}
	if err := r.bridge.Send(env); err != nil {
		return protocol.Submission{}, err
	}
	return submission, nil
}

// SubmitAnswer scores the answer through the definition's evaluator and then
// submits it. Evaluator failures abort the attempt: the busy flag resets and
// no partial submission is sent.
func (r *Runtime) SubmitAnswer(ctx context.Context, answer any) (protocol.Submission, error) {
	if r.def.Evaluator == nil {
		return protocol.Submission{}, fmt.Errorf("widget: %s has no evaluator", r.def.Name)
	}

	r.mu.Lock()
	if r.submitting {
		r.mu.Unlock()
		return protocol.Submission{}, fmt.Errorf("widget: submission already in progress")
	}
	r.submitting = true
	r.mu.Unlock()

	defer func() {
		r.mu.Lock()
		r.submitting = false
		r.mu.Unlock()
	}()

	evaluation, err := r.def.Evaluator(ctx, answer)
	if err != nil {
		return protocol.Submission{}, fmt.Errorf("widget: evaluate answer: %w", err)
	}
	return r.Submit(answer, evaluation)
}

// EmitEvent sends an ad-hoc event to the host. Fire-and-forget, no
// acknowledgement.
func (r *Runtime) EmitEvent(name string, data any) error {
	env, err := protocol.NewEnvelope(protocol.TypeEvent, protocol.EventPayload{Event: name, Payload: data})
	if err != nil {
		return err
	}
	return r.bridge.Send(env)
}

// ReportError surfaces a widget-side failure to the host.
func (r *Runtime) ReportError(reported error) error {
	if reported == nil {
		return nil
	}
	env, err := protocol.NewEnvelope(protocol.TypeError, protocol.ErrorPayload{Message: reported.Error()})
	if err != nil {
		return err
	}
	return r.bridge.Send(env)
}

func (r *Runtime) handle(env protocol.Envelope) {
	switch env.Type {
	case protocol.TypeParamsUpdate:
		r.handleParamsUpdate(env)
	case protocol.TypeEnterReview:
		r.handleEnterReview(env)
	case protocol.TypeExitReview:
		r.handleExitReview()
	case protocol.TypeWidgetReady, protocol.TypeSubmit, protocol.TypeEvent, protocol.TypeError:
		// Outbound-only vocabulary; a peer echoing these is ignored.
	}
}

func (r *Runtime) handleParamsUpdate(env protocol.Envelope) {
	var payload map[string]any
	if err := env.DecodePayload(&payload); err != nil {
		r.logf("widget: %v", err)
		return
	}
	if payload == nil {
		payload = map[string]any{}
	}

	answer, answered := payload[protocol.AnswerKey]
	if answered {
		// Legacy review signaling: the answer rides the update and must
		// never reach parameter subscribers.
		delete(payload, protocol.AnswerKey)
	}

	r.mu.Lock()
	r.params = payload
	r.hasParams = true

	var answerNotify []func(any)
	var answerValue any
	if answered {
		r.answer = answer
		r.hasAnswer = true
		r.mode = ModeReview
		answerValue = answer
		answerNotify = r.snapshotAnswerSubs()
	} else if r.hasAnswer {
		// Absence of the reserved key after it was present is the review
		// exit signal.
		r.answer = nil
		r.hasAnswer = false
		r.mode = ModePractice
		answerValue = nil
		answerNotify = r.snapshotAnswerSubs()
	}
	paramNotify := r.snapshotParamSubs()
	r.mu.Unlock()

	for _, fn := range answerNotify {
		fn(answerValue)
	}
	for _, fn := range paramNotify {
		fn(payload)
	}
}

func (r *Runtime) handleEnterReview(env protocol.Envelope) {
	var payload protocol.ReviewPayload
	if err := env.DecodePayload(&payload); err != nil {
		r.logf("widget: %v", err)
		return
	}

	r.mu.Lock()
	r.answer = payload.Answer
	r.hasAnswer = true
	r.mode = ModeReview
	answerNotify := r.snapshotAnswerSubs()
	r.mu.Unlock()

	for _, fn := range answerNotify {
		fn(payload.Answer)
	}
}

func (r *Runtime) handleExitReview() {
	r.mu.Lock()
	if !r.hasAnswer {
		r.mode = ModePractice
		r.mu.Unlock()
		return
	}
	r.answer = nil
	r.hasAnswer = false
	r.mode = ModePractice
	answerNotify := r.snapshotAnswerSubs()
	r.mu.Unlock()

	for _, fn := range answerNotify {
		fn(nil)
	}
}

func (r *Runtime) snapshotParamSubs() []func(map[string]any) {
	fns := make([]func(map[string]any), len(r.paramSubs))
	for i, sub := range r.paramSubs {
		fns[i] = sub.fn
	}
	return fns
}

func (r *Runtime) snapshotAnswerSubs() []func(any) {
	fns := make([]func(any), len(r.answerSubs))
	for i, sub := range r.answerSubs {
		fns[i] = sub.fn
	}
	return fns
}
