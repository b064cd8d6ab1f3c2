package room

import (
	"time"

	"github.com/google/uuid"
)

// A position on the canvas
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// A committed freehand stroke. Never mutated after Add returns it.
type Stroke struct {
	ID        string  `json:"id"`
	Points    []Point `json:"points"`
	Color     string  `json:"color"`
	Width     float64 `json:"width"`
	AuthorID  string  `json:"userId"`
	Timestamp int64   `json:"timestamp"`
}

// StrokeStore is the ordered log of committed strokes for one room plus the
// stack of strokes removed by undo. It is not safe for concurrent use; the
// owning Room serializes access.
type StrokeStore struct {
	history []Stroke
	redo    []Stroke
	now     func() time.Time
}

func NewStrokeStore() *StrokeStore {
	return &StrokeStore{
		history: make([]Stroke, 0),
		redo:    make([]Stroke, 0),
		now:     time.Now,
	}
}

// Add commits a new stroke and invalidates the redo stack.
func (s *StrokeStore) Add(points []Point, color string, width float64, authorID string) Stroke {
	pts := make([]Point, len(points))
	copy(pts, points)

	stroke := Stroke{
		ID:        uuid.NewString(),
		Points:    pts,
		Color:     color,
		Width:     width,
		AuthorID:  authorID,
		Timestamp: s.now().UnixMilli(),
	}
	s.history = append(s.history, stroke)
	s.redo = s.redo[:0]
	return stroke
}

// Undo moves the most recent stroke, whoever authored it, onto the redo stack.
func (s *StrokeStore) Undo() (Stroke, bool) {
	if len(s.history) == 0 {
		return Stroke{}, false
	}
	last := len(s.history) - 1
	stroke := s.history[last]
	s.history = s.history[:last]
	s.redo = append(s.redo, stroke)
	return stroke, true
}

// Redo restores the most recently undone stroke.
func (s *StrokeStore) Redo() (Stroke, bool) {
	if len(s.redo) == 0 {
		return Stroke{}, false
	}
	last := len(s.redo) - 1
	stroke := s.redo[last]
	s.redo = s.redo[:last]
	s.history = append(s.history, stroke)
	return stroke, true
}

// Clear drops history and redo. There is no way back.
func (s *StrokeStore) Clear() {
	s.history = make([]Stroke, 0)
	s.redo = make([]Stroke, 0)
}

// Returns a copy of the committed history, oldest first
func (s *StrokeStore) Snapshot() []Stroke {
	out := make([]Stroke, len(s.history))
	copy(out, s.history)
	return out
}

func (s *StrokeStore) Len() int {
	return len(s.history)
}

func (s *StrokeStore) RedoLen() int {
	return len(s.redo)
}
