// Package bridge carries protocol envelopes between a widget and its host
// across heterogeneous transports. The environment-probing step lives at the
// composition root: callers construct the transports that exist in their
// process and hand them to New in priority order, keeping presence checks out
// of business logic.
package bridge

import (
	"fmt"
	"log"
	"sync"

	"github.com/goliatone/go-widgetsync/pkg/protocol"
)

// Logger receives bridge diagnostics. The default writes to the standard
// logger.
type Logger func(format string, args ...any)

// Transport is one bidirectional byte channel to the peer. Implementations
// must deliver payloads in send order.
type Transport interface {
	// Name identifies the channel for diagnostics.
	Name() string
	// Available reports whether the channel can currently deliver.
	Available() bool
	// Send dispatches one wire payload.
	Send(payload []byte) error
	// OnReceive registers an inbound payload callback and returns its
	// unsubscribe function. Multiple callbacks receive every payload in
	// registration order.
	OnReceive(fn func(payload []byte)) func()
	// Close releases the channel.
	Close() error
}

// Option customises bridge construction.
type Option func(*Bridge)

// WithTransports supplies the ordered probe list. The first available
// transport wins at each send; inbound payloads are accepted from all of
// them.
func WithTransports(transports ...Transport) Option {
	return func(b *Bridge) {
		b.transports = append(b.transports, transports...)
	}
}

// WithRegistry appends a registry's transports in probe order.
func WithRegistry(r *Registry) Option {
	return func(b *Bridge) {
		if r != nil {
			b.transports = append(b.transports, r.Detect()...)
		}
	}
}

// WithLogger overrides the diagnostic logger.
func WithLogger(logf Logger) Option {
	return func(b *Bridge) {
		if logf != nil {
			b.logf = logf
		}
	}
}

// Bridge multiplexes protocol envelopes over an ordered transport list. One
// bridge lives per widget instance for the process lifetime; Close detaches
// the inbound hooks and closes the transports.
type Bridge struct {
	mu         sync.Mutex
	transports []Transport
	listeners  []listener
	nextID     int
	unhooks    []func()
	closed     bool
	logf       Logger
}

type listener struct {
	id int
	fn func(protocol.Envelope)
}

// New constructs a bridge and attaches its inbound hook to every transport.
func New(options ...Option) *Bridge {
	b := &Bridge{logf: log.Printf}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(b)
	}
	for _, transport := range b.transports {
		b.unhooks = append(b.unhooks, transport.OnReceive(b.dispatch))
	}
	return b
}

// Send encodes the envelope and dispatches it via the first available
// transport. Having no usable transport is not an error: the send becomes a
// logged no-op so widgets keep functioning standalone.
func (b *Bridge) Send(env protocol.Envelope) error {
	data, err := protocol.Encode(env)
	if err != nil {
		return err
	}

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return fmt.Errorf("bridge: closed")
	}
	transports := make([]Transport, len(b.transports))
	copy(transports, b.transports)
	b.mu.Unlock()

	for _, transport := range transports {
		if !transport.Available() {
			continue
		}
		if err := transport.Send(data); err != nil {
			return fmt.Errorf("bridge: send via %s: %w", transport.Name(), err)
		}
		return nil
	}

	b.logf("bridge: no transport available, dropping %s message", env.Type)
	return nil
}

// OnMessage registers a listener for every decoded inbound envelope,
// regardless of which transport delivered it. Listeners run in registration
// order; a panicking listener is logged and does not block the rest. The
// returned function unsubscribes.
func (b *Bridge) OnMessage(fn func(protocol.Envelope)) func() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	id := b.nextID
	b.listeners = append(b.listeners, listener{id: id, fn: fn})

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		for i, entry := range b.listeners {
			if entry.id == id {
				b.listeners = append(b.listeners[:i], b.listeners[i+1:]...)
				return
			}
		}
	}
}

// Close detaches the inbound hooks and closes every transport.
func (b *Bridge) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	unhooks := b.unhooks
	transports := b.transports
	b.unhooks = nil
	b.listeners = nil
	b.mu.Unlock()

	for _, unhook := range unhooks {
		unhook()
	}
	var firstErr error
	for _, transport := range transports {
		if err := transport.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("bridge: close %s: %w", transport.Name(), err)
		}
	}
	return firstErr
}

func (b *Bridge) dispatch(payload []byte) {
	env, err := protocol.Decode(payload)
	if err != nil {
		b.logf("bridge: dropping malformed message: %v", err)
		return
	}

	b.mu.Lock()
	listeners := make([]listener, len(b.listeners))
	copy(listeners, b.listeners)
	b.mu.Unlock()

	for _, entry := range listeners {
		b.invoke(entry.fn, env)
	}
}

func (b *Bridge) invoke(fn func(protocol.Envelope), env protocol.Envelope) {
	defer func() {
		if r := recover(); r != nil {
			b.logf("bridge: listener panic on %s message: %v", env.Type, r)
		}
	}()
	fn(env)
}
