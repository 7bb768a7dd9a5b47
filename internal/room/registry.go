package room

import (
	"sync"

	"github.com/michaelbrown/coderoom/internal/protocol"
)

// Registry is the source of truth for who is connected where. It maps a
// connection identity to its display name and tracks room subscriptions in
// join order. The zero value is not usable; construct with NewRegistry and
// inject it from the composition root.
type Registry struct {
	mu    sync.RWMutex
	names map[string]string   // connection id → display name
	rooms map[string][]string // room token → connection ids, join order
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		names: make(map[string]string),
		rooms: make(map[string][]string),
	}
}

// RecordJoin associates a display name with a connection. Idempotent upsert;
// a rejoin under a new name overwrites the old one.
func (r *Registry) RecordJoin(connectionID, displayName string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.names[connectionID] = displayName
}

// Subscribe adds a connection to a room's broadcast group. Subscribing twice
// is a no-op; membership order is join order.
func (r *Registry) Subscribe(roomToken, connectionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, id := range r.rooms[roomToken] {
		if id == connectionID {
			return
		}
	}
	r.rooms[roomToken] = append(r.rooms[roomToken], connectionID)
}

// MembersOf returns the current membership of a room in join order. An
// unknown or empty room yields an empty slice.
func (r *Registry) MembersOf(roomToken string) []protocol.Member {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := r.rooms[roomToken]
	members := make([]protocol.Member, 0, len(ids))
	for _, id := range ids {
		members = append(members, protocol.Member{
			ConnectionID: id,
			DisplayName:  r.names[id],
		})
	}
	return members
}

// RoomsOf returns the tokens of every room the connection is subscribed to.
func (r *Registry) RoomsOf(connectionID string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var tokens []string
	for token, ids := range r.rooms {
		for _, id := range ids {
			if id == connectionID {
				tokens = append(tokens, token)
				break
			}
		}
	}
	return tokens
}

// DisplayName returns the registered name for a connection, if any.
func (r *Registry) DisplayName(connectionID string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	name, ok := r.names[connectionID]
	return name, ok
}

// Rooms returns the tokens of all rooms that currently have members.
func (r *Registry) Rooms() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	tokens := make([]string, 0, len(r.rooms))
	for token := range r.rooms {
		tokens = append(tokens, token)
	}
	return tokens
}

// Forget removes a connection's name mapping and every room subscription.
// Safe to call for an unknown connection. Empty rooms are dropped so the
// registry does not accumulate dead tokens.
func (r *Registry) Forget(connectionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.names, connectionID)
	for token, ids := range r.rooms {
		for i, id := range ids {
			if id == connectionID {
				r.rooms[token] = append(ids[:i], ids[i+1:]...)
				break
			}
		}
		if len(r.rooms[token]) == 0 {
			delete(r.rooms, token)
		}
	}
}
