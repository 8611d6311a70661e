// Package registry maps each authenticated identity to its single live connection.
package registry

import (
	"sync"

	"github.com/linesmerrill/change-order-api/models"
)

// Handle is a live connection that can accept outbound events
type Handle interface {
	// Deliver hands the event to the connection's outbound path without blocking.
	// It reports false when the event was dropped.
	Deliver(models.Event) bool
}

// Registry holds at most one Handle per identity; the newest registration wins.
// Only the map operations are guarded, callers do their delivery work outside the lock.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]Handle
}

// New returns an empty Registry
func New() *Registry {
	return &Registry{sessions: make(map[string]Handle)}
}

// Register installs h for identity and returns the handle it superseded, if any.
// The registry never closes a superseded handle.
func (r *Registry) Register(identity string, h Handle) (previous Handle, replaced bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	previous, replaced = r.sessions[identity]
	r.sessions[identity] = h
	return previous, replaced && previous != h
}

// Unregister removes the mapping for identity if present
func (r *Registry) Unregister(identity string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, identity)
}

// UnregisterIf removes the mapping only while it still points at h, so a
// superseded session closing late cannot evict its replacement.
func (r *Registry) UnregisterIf(identity string, h Handle) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if current, ok := r.sessions[identity]; ok && current == h {
		delete(r.sessions, identity)
		return true
	}
	return false
}

// Lookup returns the live handle for identity
func (r *Registry) Lookup(identity string) (Handle, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.sessions[identity]
	return h, ok
}

// Snapshot copies the current mapping
func (r *Registry) Snapshot() map[string]Handle {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]Handle, len(r.sessions))
	for id, h := range r.sessions {
		out[id] = h
	}
	return out
}

// Len is the number of live sessions
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}
