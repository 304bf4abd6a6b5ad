// Package server keeps the authoritative mapping from connection identity to
// last-known location via the presenceStore type.
package server

import (
	"sync"
	"time"
)

// PresenceEntry records the last-known location reported by one connection
// and when it was reported.
type PresenceEntry struct {
	ID        string    `json:"id"`
	Location  Location  `json:"location"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// presenceStore maps connection IDs to presence entries. Entries are created
// on the first valid update from a connection, never at connect time, and are
// removed when the connection goes away. Snapshots preserve first-seen order
// so results are deterministic for a given store state.
//
// Mutation happens only on the hub's run loop; the mutex lets snapshots be
// taken from HTTP handler goroutines.
type presenceStore struct {
	mu      sync.RWMutex
	entries map[string]PresenceEntry
	order   []string
}

func newPresenceStore() *presenceStore {
	return &presenceStore{entries: make(map[string]PresenceEntry)}
}

// upsert creates or overwrites the entry for id with loc, stamping the
// current time, and returns the resulting entry.
func (s *presenceStore) upsert(id string, loc Location) PresenceEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry := PresenceEntry{ID: id, Location: loc, UpdatedAt: time.Now()}
	if _, exists := s.entries[id]; !exists {
		s.order = append(s.order, id)
	}
	s.entries[id] = entry
	return entry
}

// remove deletes the entry for id if present; removing an absent id is a no-op.
func (s *presenceStore) remove(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.entries[id]; !exists {
		return
	}
	delete(s.entries, id)
	for i, existing := range s.order {
		if existing == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
}

// snapshot returns a point-in-time copy of all entries in first-seen order.
func (s *presenceStore) snapshot() []PresenceEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entries := make([]PresenceEntry, 0, len(s.entries))
	for _, id := range s.order {
		entries = append(entries, s.entries[id])
	}
	return entries
}

func (s *presenceStore) len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}
