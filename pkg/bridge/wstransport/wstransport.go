// Package wstransport adapts a websocket connection into a bridge transport,
// for widgets running out of process from their host. Read and write pumps
// keep the connection alive with ping/pong and preserve send order through a
// single writer goroutine.
package wstransport

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4 * 1024 * 1024
	sendBuffer     = 256
)

// Transport carries wire payloads over one websocket connection. It
// implements the bridge Transport interface.
type Transport struct {
	conn *websocket.Conn

	send chan []byte

	mu     sync.Mutex
	fns    []receiver
	nextID int

	done      chan struct{}
	closeOnce sync.Once

	logf func(format string, args ...any)
}

type receiver struct {
	id int
	fn func([]byte)
}

// Dial connects to a host websocket endpoint and wraps the connection.
func Dial(ctx context.Context, url string) (*Transport, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("wstransport: dial %s: %w", url, err)
	}
	return New(conn), nil
}

// New wraps an established connection (either side of the upgrade) and starts
// its pumps.
func New(conn *websocket.Conn) *Transport {
	t := &Transport{
		conn: conn,
		send: make(chan []byte, sendBuffer),
		done: make(chan struct{}),
		logf: log.Printf,
	}
	go t.writePump()
	go t.readPump()
	return t
}

// Name identifies the channel.
func (t *Transport) Name() string { return "websocket" }

// Available reports whether the connection is still open.
func (t *Transport) Available() bool {
	select {
	case <-t.done:
		return false
	default:
		return true
	}
}

// Send queues one payload for the writer pump.
func (t *Transport) Send(payload []byte) error {
	clone := append([]byte(nil), payload...)
	select {
	case <-t.done:
		return fmt.Errorf("wstransport: connection closed")
	case t.send <- clone:
		return nil
	}
}

// OnReceive registers an inbound payload callback.
func (t *Transport) OnReceive(fn func(payload []byte)) func() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.nextID++
	id := t.nextID
	t.fns = append(t.fns, receiver{id: id, fn: fn})
	return func() {
		t.mu.Lock()
		defer t.mu.Unlock()
		for i, entry := range t.fns {
			if entry.id == id {
				t.fns = append(t.fns[:i], t.fns[i+1:]...)
				return
			}
		}
	}
}

// Done is closed once the connection is torn down, from either side. Hosts
// watch it to reap the session bound to this connection.
func (t *Transport) Done() <-chan struct{} { return t.done }

// Close tears the connection down.
func (t *Transport) Close() error {
	t.closeOnce.Do(func() { close(t.done) })
	return t.conn.Close()
}

func (t *Transport) readPump() {
	defer func() { _ = t.Close() }()

	t.conn.SetReadLimit(maxMessageSize)
	_ = t.conn.SetReadDeadline(time.Now().Add(pongWait))
	t.conn.SetPongHandler(func(string) error {
		return t.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, payload, err := t.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				t.logf("wstransport: read: %v", err)
			}
			return
		}
		t.mu.Lock()
		fns := make([]receiver, len(t.fns))
		copy(fns, t.fns)
		t.mu.Unlock()
		for _, entry := range fns {
			entry.fn(payload)
		}
	}
}

func (t *Transport) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = t.Close()
	}()

	for {
		select {
		case <-t.done:
			_ = t.conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = t.conn.WriteMessage(websocket.CloseMessage, nil)
			return
		case payload := <-t.send:
			_ = t.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := t.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				t.logf("wstransport: write: %v", err)
				return
			}
		case <-ticker.C:
			_ = t.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := t.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
