package room

import (
	"errors"
	"log"
	"sort"
	"sync"
)

var (
	// ErrRoomNotFound is returned when deleting a room that does not exist.
	ErrRoomNotFound = errors.New("room not found")

	// ErrRoomOccupied is returned when deleting a room that still has users.
	ErrRoomOccupied = errors.New("room has connected users")
)

// Registry owns every live room, keyed by room id.
type Registry struct {
	rooms map[string]*Room
	mu    sync.RWMutex
}

func NewRegistry() *Registry {
	return &Registry{
		rooms: make(map[string]*Room),
	}
}

// GetOrCreateRoom returns the room for id, creating it on first reference.
func (g *Registry) GetOrCreateRoom(id string) *Room {
	g.mu.RLock()
	r, ok := g.rooms[id]
	g.mu.RUnlock()
	if ok {
		return r
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	return g.getOrCreateLocked(id)
}

func (g *Registry) getOrCreateLocked(id string) *Room {
	if r, ok := g.rooms[id]; ok {
		return r
	}
	r := NewRoom(id)
	g.rooms[id] = r
	log.Printf("🎨 Created room %s", id)
	return r
}

// Enter resolves the room and runs fn before any reap can observe it. Sessions
// register their presence inside fn so a joining room is never reclaimed.
func (g *Registry) Enter(id string, fn func(r *Room)) *Room {
	g.mu.Lock()
	defer g.mu.Unlock()
	r := g.getOrCreateLocked(id)
	fn(r)
	return r
}

func (g *Registry) Get(id string) (*Room, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	r, ok := g.rooms[id]
	return r, ok
}

// DeleteRoom drops a room and its drawing. Rooms with users are refused.
func (g *Registry) DeleteRoom(id string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	r, ok := g.rooms[id]
	if !ok {
		return ErrRoomNotFound
	}
	if r.occupied() {
		return ErrRoomOccupied
	}
	delete(g.rooms, id)
	return nil
}

// ReapEmptyRooms removes rooms with no users and no history and returns their ids.
func (g *Registry) ReapEmptyRooms() []string {
	g.mu.Lock()
	defer g.mu.Unlock()

	var reaped []string
	for id, r := range g.rooms {
		if r.Empty() {
			delete(g.rooms, id)
			reaped = append(reaped, id)
		}
	}
	sort.Strings(reaped)
	return reaped
}

// List returns the live rooms ordered by id
func (g *Registry) List() []*Room {
	g.mu.RLock()
	defer g.mu.RUnlock()

	out := make([]*Room, 0, len(g.rooms))
	for _, r := range g.rooms {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (g *Registry) Count() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.rooms)
}
