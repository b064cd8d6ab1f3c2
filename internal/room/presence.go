package room

import (
	"fmt"
	"math/rand"
	"sort"
)

// Transient state of one connected session
type User struct {
	ID        string  `json:"id"`
	Color     string  `json:"color"`
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
	IsDrawing bool    `json:"isDrawing"`
}

// PresenceTable maps session ids to their cursor state. Like StrokeStore it
// relies on the owning Room for serialization.
type PresenceTable struct {
	users map[string]*User
}

func NewPresenceTable() *PresenceTable {
	return &PresenceTable{users: make(map[string]*User)}
}

func randomColor() string {
	return fmt.Sprintf("hsl(%d, 70%%, 50%%)", rand.Intn(360))
}

// Add registers a session with a random color at the origin. Adding an id
// that is already present keeps its color.
func (p *PresenceTable) Add(id string) User {
	if u, ok := p.users[id]; ok {
		return *u
	}
	u := &User{ID: id, Color: randomColor()}
	p.users[id] = u
	return *u
}

func (p *PresenceTable) Remove(id string) {
	delete(p.users, id)
}

// UpdateCursor reports false when the user is gone, e.g. a move racing a disconnect.
func (p *PresenceTable) UpdateCursor(id string, x, y float64, isDrawing bool) bool {
	u, ok := p.users[id]
	if !ok {
		return false
	}
	u.X = x
	u.Y = y
	u.IsDrawing = isDrawing
	return true
}

func (p *PresenceTable) Get(id string) (User, bool) {
	u, ok := p.users[id]
	if !ok {
		return User{}, false
	}
	return *u, true
}

// List returns every user ordered by id
func (p *PresenceTable) List() []User {
	out := make([]User, 0, len(p.users))
	for _, u := range p.users {
		out = append(out, *u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (p *PresenceTable) Len() int {
	return len(p.users)
}
