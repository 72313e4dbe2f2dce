package bridge

import (
	"bufio"
	"fmt"
	"io"
	"sync"
)

const maxLineSize = 4 * 1024 * 1024

// Stdio is a newline-delimited transport over a reader/writer pair, the
// pattern native shells use when the embedding platform only hands the widget
// a string channel. Each payload occupies one line.
type Stdio struct {
	r io.Reader
	w io.Writer

	writeMu sync.Mutex

	mu      sync.Mutex
	fns     []pipeListener
	nextID  int
	started bool
	closed  bool
}

// NewStdio wraps the reader/writer pair into a transport. The read loop
// starts on the first OnReceive registration.
func NewStdio(r io.Reader, w io.Writer) *Stdio {
	return &Stdio{r: r, w: w}
}

// Name identifies the channel.
func (s *Stdio) Name() string { return "stdio" }

// Available reports whether the transport can deliver.
func (s *Stdio) Available() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.closed && s.w != nil
}

// Send writes one payload line.
func (s *Stdio) Send(payload []byte) error {
	if s.w == nil {
		return fmt.Errorf("bridge: stdio has no writer")
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if _, err := s.w.Write(append(payload, '\n')); err != nil {
		return fmt.Errorf("bridge: stdio write: %w", err)
	}
	return nil
}

// OnReceive registers an inbound callback and lazily starts the read loop.
func (s *Stdio) OnReceive(fn func(payload []byte)) func() {
	s.mu.Lock()
	s.nextID++
	id := s.nextID
	s.fns = append(s.fns, pipeListener{id: id, fn: fn})
	start := !s.started && s.r != nil
	s.started = s.started || start
	s.mu.Unlock()

	if start {
		go s.readLoop()
	}

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		for i, entry := range s.fns {
			if entry.id == id {
				s.fns = append(s.fns[:i], s.fns[i+1:]...)
				return
			}
		}
	}
}

// Close marks the transport unavailable and closes the underlying pair when
// it supports closing.
func (s *Stdio) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	if closer, ok := s.r.(io.Closer); ok {
		_ = closer.Close()
	}
	if closer, ok := s.w.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}

func (s *Stdio) readLoop() {
	scanner := bufio.NewScanner(s.r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	for scanner.Scan() {
		line := append([]byte(nil), scanner.Bytes()...)
		if len(line) == 0 {
			continue
		}
		s.mu.Lock()
		if s.closed {
			s.mu.Unlock()
			return
		}
		fns := make([]pipeListener, len(s.fns))
		copy(fns, s.fns)
		s.mu.Unlock()
		for _, entry := range fns {
			entry.fn(line)
		}
	}
}
