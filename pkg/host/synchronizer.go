// Package host implements the controlling side of the widget protocol: it
// consumes the schema announced on ready, derives the default value tree,
// maps edits back to schema paths, re-serializes values (resolving media
// handles to portable data URLs) before every push, and drives review mode.
package host

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/goliatone/go-widgetsync/pkg/bridge"
	"github.com/goliatone/go-widgetsync/pkg/param"
	"github.com/goliatone/go-widgetsync/pkg/protocol"
)

// WidgetInfo is the identity a widget announces on ready.
type WidgetInfo struct {
	Name         string
	Version      string
	Description  string
	HasEvaluator bool
}

// Option customises synchronizer construction.
type Option func(*Synchronizer)

// WithLogger overrides the diagnostic logger.
func WithLogger(logf bridge.Logger) Option {
	return func(s *Synchronizer) {
		if logf != nil {
			s.logf = logf
		}
	}
}

// WithInitialValues supplies an override tree deep-merged over the schema
// defaults before the first push.
func WithInitialValues(values map[string]any) Option {
	return func(s *Synchronizer) { s.overrides = values }
}

// WithMediaResolver overrides how temporary media references become portable
// data URLs during serialization.
func WithMediaResolver(resolver MediaResolver) Option {
	return func(s *Synchronizer) { s.media = resolver }
}

// WithSanitizer overrides the markup sanitizer applied to widget-supplied
// display text. Pass nil to accept schema text verbatim.
func WithSanitizer(sanitizer Sanitizer) Option {
	return func(s *Synchronizer) {
		s.sanitizer = sanitizer
		s.sanitizerSet = true
	}
}

// WithLegacyReviewSignaling makes review transitions ride PARAMS_UPDATE
// payloads (the reserved __answer key) instead of the explicit
// ENTER_REVIEW/EXIT_REVIEW messages, for widgets predating those types.
func WithLegacyReviewSignaling() Option {
	return func(s *Synchronizer) { s.legacyReview = true }
}

// Synchronizer is the host-side protocol endpoint for one widget channel.
// The value tree is exclusively host-owned; the widget never writes to it.
type Synchronizer struct {
	bridge       *bridge.Bridge
	logf         bridge.Logger
	media        MediaResolver
	sanitizer    Sanitizer
	sanitizerSet bool
	legacyReview bool

	mu           sync.Mutex
	ready        bool
	info         WidgetInfo
	schema       param.Schema
	values       map[string]any
	overrides    map[string]any
	reviewing    bool
	reviewAnswer any

	lastSubmission *protocol.Submission

	nextSubID      int
	readySubs      []readySub
	submissionSubs []submissionSub
	eventSubs      []eventSub
	errorSubs      []errorSub

	unsubscribe func()
}

type readySub struct {
	id int
	fn func(WidgetInfo)
}

type submissionSub struct {
	id int
	fn func(protocol.Submission)
}

type eventSub struct {
	id int
	fn func(protocol.EventPayload)
}

type errorSub struct {
	id int
	fn func(error)
}

// New constructs a synchronizer and attaches it to the bridge.
func New(b *bridge.Bridge, options ...Option) *Synchronizer {
	s := &Synchronizer{
		bridge: b,
		logf:   log.Printf,
		media:  NewHTTPMediaResolver(nil),
	}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(s)
	}
	if !s.sanitizerSet {
		s.sanitizer = NewTextSanitizer()
	}
	s.unsubscribe = b.OnMessage(s.handle)
	return s
}

// Close detaches the synchronizer from its bridge.
func (s *Synchronizer) Close() {
	if s.unsubscribe != nil {
		s.unsubscribe()
		s.unsubscribe = nil
	}
}

// Ready reports whether a widget has announced itself.
func (s *Synchronizer) Ready() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ready
}

// Info reports the announced widget identity.
func (s *Synchronizer) Info() WidgetInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.info
}

// Schema reports the announced parameter schema.
func (s *Synchronizer) Schema() param.Schema {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.schema
}

// Values returns a deep copy of the current value tree.
func (s *Synchronizer) Values() map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	return copyTree(s.values)
}

// Reviewing reports whether the widget was last sent a review seed.
func (s *Synchronizer) Reviewing() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reviewing
}

// LastSubmission reports the most recent submission received.
func (s *Synchronizer) LastSubmission() (protocol.Submission, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lastSubmission == nil {
		return protocol.Submission{}, false
	}
	return *s.lastSubmission, true
}

// OnReady subscribes to the widget-ready signal. An already-ready widget
// replays synchronously.
func (s *Synchronizer) OnReady(fn func(WidgetInfo)) func() {
	s.mu.Lock()
	s.nextSubID++
	id := s.nextSubID
	s.readySubs = append(s.readySubs, readySub{id: id, fn: fn})
	replay := s.ready
	info := s.info
	s.mu.Unlock()

	if replay {
		fn(info)
	}
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		for i, sub := range s.readySubs {
			if sub.id == id {
				s.readySubs = append(s.readySubs[:i], s.readySubs[i+1:]...)
				return
			}
		}
	}
}

// OnSubmission subscribes to answer submissions.
func (s *Synchronizer) OnSubmission(fn func(protocol.Submission)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextSubID++
	id := s.nextSubID
	s.submissionSubs = append(s.submissionSubs, submissionSub{id: id, fn: fn})
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		for i, sub := range s.submissionSubs {
			if sub.id == id {
				s.submissionSubs = append(s.submissionSubs[:i], s.submissionSubs[i+1:]...)
				return
			}
		}
	}
}

// OnEvent subscribes to widget events.
func (s *Synchronizer) OnEvent(fn func(protocol.EventPayload)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextSubID++
	id := s.nextSubID
	s.eventSubs = append(s.eventSubs, eventSub{id: id, fn: fn})
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		for i, sub := range s.eventSubs {
			if sub.id == id {
				s.eventSubs = append(s.eventSubs[:i], s.eventSubs[i+1:]...)
				return
			}
		}
	}
}

// OnError subscribes to displayable widget error states: both explicit ERROR
// messages and ready payloads that fail validation.
func (s *Synchronizer) OnError(fn func(error)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextSubID++
	id := s.nextSubID
	s.errorSubs = append(s.errorSubs, errorSub{id: id, fn: fn})
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		for i, sub := range s.errorSubs {
			if sub.id == id {
				s.errorSubs = append(s.errorSubs[:i], s.errorSubs[i+1:]...)
				return
			}
		}
	}
}

// Set maps one edit to a schema path. Unknown paths and folder paths are
// rejected; a hidden field still accepts edits because hiding is
// presentational, not a value eraser.
func (s *Synchronizer) Set(path string, value any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.ready {
		return fmt.Errorf("host: widget not ready")
	}
	field, ok := s.schema.FieldAt(path)
	if !ok {
		return fmt.Errorf("host: unknown parameter path %q", path)
	}
	if field.IsFolder() {
		return fmt.Errorf("host: path %q is a folder, not a leaf", path)
	}
	setAt(s.values, path, value)
	return nil
}

// Visible evaluates the field's condition, and those of every enclosing
// folder, against the current value tree. Recompute after each edit before
// rendering the next editing pass.
func (s *Synchronizer) Visible(path string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	segments := splitDots(path)
	current := s.schema
	for i, segment := range segments {
		field, ok := current.Get(segment)
		if !ok {
			return false
		}
		if field.VisibleIf != nil && !field.VisibleIf.Visible(s.values) {
			return false
		}
		if i < len(segments)-1 {
			if !field.IsFolder() || field.Fields == nil {
				return false
			}
			current = *field.Fields
		}
	}
	return true
}

// Push serializes the full current value tree and sends it as a
// PARAMS_UPDATE. Values representing temporary media references resolve to
// portable data URLs first; hidden fields are still transmitted.
func (s *Synchronizer) Push(ctx context.Context) error {
	s.mu.Lock()
	if !s.ready {
		s.mu.Unlock()
		return fmt.Errorf("host: widget not ready")
	}
	schema := s.schema
	values := copyTree(s.values)
	legacy := s.legacyReview && s.reviewing
	s.mu.Unlock()

	serialized, err := serializeValues(ctx, schema, values, s.media)
	if err != nil {
		return err
	}
	if legacy {
		// A legacy review push must keep carrying the seed or the widget
		// would infer a review exit.
		s.mu.Lock()
		serialized[protocol.AnswerKey] = s.reviewAnswer
		s.mu.Unlock()
	}

	env, err := protocol.NewEnvelope(protocol.TypeParamsUpdate, serialized)
	if err != nil {
		return err
	}
	return s.bridge.Send(env)
}

// EnterReview seeds the widget with a previously stored answer — never the
// evaluation or score.
func (s *Synchronizer) EnterReview(ctx context.Context, answer any) error {
	s.mu.Lock()
	if !s.ready {
		s.mu.Unlock()
		return fmt.Errorf("host: widget not ready")
	}
	s.reviewing = true
	s.reviewAnswer = answer
	schema := s.schema
	values := copyTree(s.values)
	legacy := s.legacyReview
	s.mu.Unlock()

	if legacy {
		serialized, err := serializeValues(ctx, schema, values, s.media)
		if err != nil {
			return err
		}
		serialized[protocol.AnswerKey] = answer
		env, err := protocol.NewEnvelope(protocol.TypeParamsUpdate, serialized)
		if err != nil {
			return err
		}
		return s.bridge.Send(env)
	}

	env, err := protocol.NewEnvelope(protocol.TypeEnterReview, protocol.ReviewPayload{Answer: answer})
	if err != nil {
		return err
	}
	return s.bridge.Send(env)
}

// ExitReview returns the widget to practice mode: an explicit EXIT_REVIEW,
// or for legacy widgets a plain configuration push whose missing reserved
// key is the exit signal.
func (s *Synchronizer) ExitReview(ctx context.Context) error {
	s.mu.Lock()
	s.reviewing = false
	s.reviewAnswer = nil
	legacy := s.legacyReview
	s.mu.Unlock()

	if legacy {
		return s.Push(ctx)
	}
	env, err := protocol.NewEnvelope(protocol.TypeExitReview, nil)
	if err != nil {
		return err
	}
	return s.bridge.Send(env)
}

func (s *Synchronizer) handle(env protocol.Envelope) {
	switch env.Type {
	case protocol.TypeWidgetReady:
		s.handleReady(env)
	case protocol.TypeSubmit:
		s.handleSubmit(env)
	case protocol.TypeEvent:
		s.handleEvent(env)
	case protocol.TypeError:
		s.handleError(env)
	case protocol.TypeParamsUpdate, protocol.TypeEnterReview, protocol.TypeExitReview:
		// Host-outbound vocabulary; ignore echoes.
	}
}

func (s *Synchronizer) handleReady(env protocol.Envelope) {
	var ready protocol.ReadyPayload
	if err := env.DecodePayload(&ready); err != nil {
		s.notifyError(err)
		return
	}
	if ready.Name == "" {
		s.notifyError(fmt.Errorf("host: widget ready without a name"))
		return
	}
	if ready.Schema.Len() == 0 {
		s.notifyError(fmt.Errorf("host: widget %q announced no schema", ready.Name))
		return
	}
	if err := ready.Schema.Validate(); err != nil {
		s.notifyError(fmt.Errorf("host: widget %q schema invalid: %w", ready.Name, err))
		return
	}

	schema := ready.Schema
	if s.sanitizer != nil {
		schema = SanitizeSchema(schema, s.sanitizer)
	}

	s.mu.Lock()
	s.info = WidgetInfo{
		Name:         ready.Name,
		Version:      ready.Version,
		Description:  sanitizeText(s.sanitizer, ready.Description),
		HasEvaluator: ready.HasEvaluator,
	}
	s.schema = schema
	s.values = mergeTrees(param.Defaults(schema), s.overrides)
	s.ready = true
	info := s.info
	subs := make([]func(WidgetInfo), len(s.readySubs))
	for i, sub := range s.readySubs {
		subs[i] = sub.fn
	}
	s.mu.Unlock()

	for _, fn := range subs {
		fn(info)
	}

	// The merged tree is the widget's first parameter push.
	if err := s.Push(context.Background()); err != nil {
		s.logf("host: initial push: %v", err)
	}
}

func (s *Synchronizer) handleSubmit(env protocol.Envelope) {
	var submission protocol.Submission
	if err := env.DecodePayload(&submission); err != nil {
		s.notifyError(err)
		return
	}
	if err := submission.Evaluation.Validate(); err != nil {
		s.notifyError(fmt.Errorf("host: submission %s: %w", submission.ID, err))
		return
	}
	submission.Evaluation.Feedback = sanitizeText(s.sanitizer, submission.Evaluation.Feedback)

	s.mu.Lock()
	s.lastSubmission = &submission
	subs := make([]func(protocol.Submission), len(s.submissionSubs))
	for i, sub := range s.submissionSubs {
		subs[i] = sub.fn
	}
	s.mu.Unlock()

	for _, fn := range subs {
		fn(submission)
	}
}

func (s *Synchronizer) handleEvent(env protocol.Envelope) {
	var event protocol.EventPayload
	if err := env.DecodePayload(&event); err != nil {
		s.notifyError(err)
		return
	}

	s.mu.Lock()
	subs := make([]func(protocol.EventPayload), len(s.eventSubs))
	for i, sub := range s.eventSubs {
		subs[i] = sub.fn
	}
	s.mu.Unlock()

	for _, fn := range subs {
		fn(event)
	}
}

func (s *Synchronizer) handleError(env protocol.Envelope) {
	var payload protocol.ErrorPayload
	if err := env.DecodePayload(&payload); err != nil {
		s.notifyError(err)
		return
	}
	s.notifyError(fmt.Errorf("host: widget error: %s", sanitizeText(s.sanitizer, payload.Message)))
}

func (s *Synchronizer) notifyError(err error) {
	s.mu.Lock()
	subs := make([]func(error), len(s.errorSubs))
	for i, sub := range s.errorSubs {
		subs[i] = sub.fn
	}
	s.mu.Unlock()

	if len(subs) == 0 {
		s.logf("host: %v", err)
		return
	}
	for _, fn := range subs {
		fn(err)
	}
}

// mergeTrees deep-merges src over dst: nested records merge key by key,
// everything else (scalars, arrays) replaces wholesale.
func mergeTrees(dst, src map[string]any) map[string]any {
	if dst == nil {
		dst = map[string]any{}
	}
	for key, value := range src {
		srcMap, srcIsMap := value.(map[string]any)
		dstMap, dstIsMap := dst[key].(map[string]any)
		if srcIsMap && dstIsMap {
			dst[key] = mergeTrees(dstMap, srcMap)
			continue
		}
		if srcIsMap {
			dst[key] = copyTree(srcMap)
			continue
		}
		dst[key] = value
	}
	return dst
}

func copyTree(tree map[string]any) map[string]any {
	out := make(map[string]any, len(tree))
	for key, value := range tree {
		if nested, ok := value.(map[string]any); ok {
			out[key] = copyTree(nested)
			continue
		}
		out[key] = value
	}
	return out
}

func setAt(tree map[string]any, path string, value any) {
	segments := splitDots(path)
	current := tree
	for _, segment := range segments[:len(segments)-1] {
		next, ok := current[segment].(map[string]any)
		if !ok {
			next = map[string]any{}
			current[segment] = next
		}
		current = next
	}
	current[segments[len(segments)-1]] = value
}

func splitDots(path string) []string {
	var segments []string
	start := 0
	for i := 0; i < len(path); i++ {
		if path[i] == '.' {
			segments = append(segments, path[start:i])
			start = i + 1
		}
	}
	return append(segments, path[start:])
}
