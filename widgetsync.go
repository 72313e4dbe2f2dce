// Package widgetsync synchronizes parameter schemas and values between a host
// application and embedded interactive widgets. Widgets declare their
// parameters with the pkg/param builder, announce them over a transport
// bridge, and receive full value trees back; hosts edit values by schema path
// and collect answer submissions.
package widgetsync

import (
	"context"

	"github.com/goliatone/go-widgetsync/pkg/bridge"
	"github.com/goliatone/go-widgetsync/pkg/host"
	"github.com/goliatone/go-widgetsync/pkg/manifest"
	"github.com/goliatone/go-widgetsync/pkg/param"
	"github.com/goliatone/go-widgetsync/pkg/protocol"
	"github.com/goliatone/go-widgetsync/pkg/visibility"
	"github.com/goliatone/go-widgetsync/pkg/widget"
)

// Schema is the ordered parameter schema widgets declare.
type Schema = param.Schema

// Field is one schema node.
type Field = param.Field

// Definition identifies a widget and its parameters.
type Definition = widget.Definition

// Submission records one answer attempt.
type Submission = protocol.Submission

// EvaluationResult scores one answer attempt.
type EvaluationResult = protocol.EvaluationResult

// Transport is one bidirectional byte channel to the peer.
type Transport = bridge.Transport

// NewBridge constructs a transport bridge; the first available transport
// wins at each send.
func NewBridge(transports ...bridge.Transport) *bridge.Bridge {
	return bridge.New(bridge.WithTransports(transports...))
}

// NewWidget constructs a widget runtime from a definition.
func NewWidget(def widget.Definition, options ...widget.Option) (*widget.Runtime, error) {
	return widget.New(def, options...)
}

// NewHost constructs the host-side synchronizer on top of a bridge.
func NewHost(b *bridge.Bridge, options ...host.Option) *host.Synchronizer {
	return host.New(b, options...)
}

// LoadManifest reads and validates a widget manifest from a file path.
func LoadManifest(ctx context.Context, path string) (manifest.Manifest, error) {
	return manifest.NewLoader().LoadManifest(ctx, manifest.SourceFromFile(path))
}

// Equals builds a visibility condition matching an exact value.
func Equals(parameter string, value any) visibility.Condition {
	return visibility.Equals(parameter, value)
}

// NotEquals builds a visibility condition excluding an exact value.
func NotEquals(parameter string, value any) visibility.Condition {
	return visibility.NotEquals(parameter, value)
}

// OneOf builds a visibility condition matching any listed value.
func OneOf(parameter string, values ...any) visibility.Condition {
	return visibility.OneOf(parameter, values...)
}
