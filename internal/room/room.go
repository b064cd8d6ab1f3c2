package room

import (
	"sync"
	"time"
)

// A shared canvas: its stroke history and who is currently on it
type Room struct {
	ID        string
	CreatedAt time.Time

	strokes  *StrokeStore
	presence *PresenceTable
	mu       sync.Mutex
}

// Creates an empty room with the given ID
func NewRoom(id string) *Room {
	return &Room{
		ID:        id,
		CreatedAt: time.Now(),
		strokes:   NewStrokeStore(),
		presence:  NewPresenceTable(),
	}
}

// Do runs fn with exclusive access to the room state. All reads and writes of
// the store and table go through here; fn must not block.
func (r *Room) Do(fn func(strokes *StrokeStore, presence *PresenceTable)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fn(r.strokes, r.presence)
}

// Returns the committed history for late joiners
func (r *Room) History() []Stroke {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.strokes.Snapshot()
}

func (r *Room) Users() []User {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.presence.List()
}

// Counts returns the number of users, committed strokes and redoable strokes.
func (r *Room) Counts() (users, strokes, redo int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.presence.Len(), r.strokes.Len(), r.strokes.RedoLen()
}

// Empty reports whether nobody is present and nothing has been drawn.
func (r *Room) Empty() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.presence.Len() == 0 && r.strokes.Len() == 0
}

func (r *Room) occupied() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.presence.Len() > 0
}
