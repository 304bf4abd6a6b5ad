// Package server tracks the set of active client connections and hands each
// one a process-unique identity.
package server

import (
	"sync"

	"github.com/google/uuid"
)

// registry maps connection IDs to their clients. All mutation happens on the
// hub's run loop; the mutex exists so read-only snapshots can be taken from
// other goroutines.
type registry struct {
	mu      sync.RWMutex
	clients map[string]*Client
}

func newRegistry() *registry {
	return &registry{clients: make(map[string]*Client)}
}

// register allocates a fresh ConnectionID for c, adds it to the active set,
// and returns the new ID. IDs are never reused within a process lifetime.
func (r *registry) register(c *Client) string {
	id := uuid.NewString()
	r.mu.Lock()
	r.clients[id] = c
	r.mu.Unlock()
	return id
}

// unregister removes id from the active set. It is idempotent: removing an
// unknown or already-removed id reports false without error.
func (r *registry) unregister(id string) (*Client, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.clients[id]
	if !ok {
		return nil, false
	}
	delete(r.clients, id)
	return c, true
}

func (r *registry) get(id string) (*Client, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.clients[id]
	return c, ok
}

// snapshot returns the currently active clients, excluding excludeID when it
// is non-empty. Used to build fan-out target lists.
func (r *registry) snapshot(excludeID string) []*Client {
	r.mu.RLock()
	defer r.mu.RUnlock()
	clients := make([]*Client, 0, len(r.clients))
	for id, c := range r.clients {
		if id == excludeID {
			continue
		}
		clients = append(clients, c)
	}
	return clients
}

func (r *registry) count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.clients)
}
