package bridge

import (
	"fmt"
	"sort"
	"sync"
)

// Registry keeps named transports with probe priorities, modelling the
// extensible list of platform channels an embedding shell may expose. Higher
// priority probes first; ties fall back to registration order. Re-registering
// a name replaces the previous transport.
type Registry struct {
	mu      sync.RWMutex
	entries []registryEntry
	order   int
}

type registryEntry struct {
	name      string
	priority  int
	transport Transport
	order     int
}

// NewRegistry constructs an empty transport registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Register adds a transport under a name with the given probe priority.
func (r *Registry) Register(name string, priority int, transport Transport) error {
	if name == "" {
		return fmt.Errorf("bridge: transport name is required")
	}
	if transport == nil {
		return fmt.Errorf("bridge: transport %q is nil", name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for i, entry := range r.entries {
		if entry.name == name {
			entry.priority = priority
			entry.transport = transport
			r.entries[i] = entry
			return nil
		}
	}
	r.order++
	r.entries = append(r.entries, registryEntry{
		name:      name,
		priority:  priority,
		transport: transport,
		order:     r.order,
	})
	return nil
}

// MustRegister panics on registration failure. Useful for composition-root
// wiring.
func (r *Registry) MustRegister(name string, priority int, transport Transport) {
	if err := r.Register(name, priority, transport); err != nil {
		panic(err)
	}
}

// Lookup retrieves a transport by name.
func (r *Registry) Lookup(name string) (Transport, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, entry := range r.entries {
		if entry.name == name {
			return entry.transport, true
		}
	}
	return nil, false
}

// Detect returns the transports in probe order: priority descending, then
// registration order. Availability is rechecked at send time, so unavailable
// channels are still listed.
func (r *Registry) Detect() []Transport {
	r.mu.RLock()
	entries := make([]registryEntry, len(r.entries))
	copy(entries, r.entries)
	r.mu.RUnlock()

	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].priority != entries[j].priority {
			return entries[i].priority > entries[j].priority
		}
		return entries[i].order < entries[j].order
	})

	transports := make([]Transport, 0, len(entries))
	for _, entry := range entries {
		transports = append(transports, entry.transport)
	}
	return transports
}

// Names lists the registered channel names sorted alphabetically.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.entries))
	for _, entry := range r.entries {
		names = append(names, entry.name)
	}
	sort.Strings(names)
	return names
}
