package bridge

import (
	"fmt"
	"sync"
)

const pipeBuffer = 64

// Pipe returns two connected in-process transports, the same-process
// equivalent of a parent/child frame channel. Payloads written on one side
// are delivered to the other side's receive callbacks in send order, each on
// its own dispatch goroutine so a send never re-enters the sender's stack.
func Pipe() (Transport, Transport) {
	a := newPipeEnd("pipe-a")
	b := newPipeEnd("pipe-b")
	a.peer = b
	b.peer = a
	go a.run()
	go b.run()
	return a, b
}

type pipeEnd struct {
	name string
	peer *pipeEnd

	mu     sync.Mutex
	fns    []pipeListener
	nextID int

	inbox     chan []byte
	done      chan struct{}
	closeOnce sync.Once
}

type pipeListener struct {
	id int
	fn func([]byte)
}

func newPipeEnd(name string) *pipeEnd {
	return &pipeEnd{
		name:  name,
		inbox: make(chan []byte, pipeBuffer),
		done:  make(chan struct{}),
	}
}

func (p *pipeEnd) Name() string { return p.name }

func (p *pipeEnd) Available() bool {
	select {
	case <-p.done:
		return false
	default:
	}
	select {
	case <-p.peer.done:
		return false
	default:
		return true
	}
}

func (p *pipeEnd) Send(payload []byte) error {
	clone := append([]byte(nil), payload...)
	select {
	case <-p.peer.done:
		return fmt.Errorf("bridge: %s peer closed", p.name)
	case p.peer.inbox <- clone:
		return nil
	}
}

func (p *pipeEnd) OnReceive(fn func(payload []byte)) func() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.nextID++
	id := p.nextID
	p.fns = append(p.fns, pipeListener{id: id, fn: fn})
	return func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		for i, entry := range p.fns {
			if entry.id == id {
				p.fns = append(p.fns[:i], p.fns[i+1:]...)
				return
			}
		}
	}
}

func (p *pipeEnd) Close() error {
	p.closeOnce.Do(func() { close(p.done) })
	return nil
}

func (p *pipeEnd) run() {
	for {
		select {
		case <-p.done:
			return
		case payload := <-p.inbox:
			p.mu.Lock()
			fns := make([]pipeListener, len(p.fns))
			copy(fns, p.fns)
			p.mu.Unlock()
			for _, entry := range fns {
				entry.fn(payload)
			}
		}
	}
}
