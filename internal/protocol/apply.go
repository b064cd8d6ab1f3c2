package protocol

import (
	"encoding/json"

	"github.com/manpreetbhatti/lattice/whiteboard/internal/room"
)

// Audience selects which sessions of the room receive an event
type Audience int

const (
	// Every session except the one that caused the event
	Others Audience = iota

	// Every session, the origin included
	Everyone

	// Only the origin session
	Origin
)

func (a Audience) String() string {
	switch a {
	case Others:
		return "others"
	case Everyone:
		return "everyone"
	case Origin:
		return "origin"
	default:
		return "unknown"
	}
}

// Event is one outbound message produced by a state transition.
type Event struct {
	Type     MessageType
	Audience Audience
	Payload  any
}

// Encode renders the event as a wire envelope.
func (e Event) Encode() ([]byte, error) {
	env := Envelope{Type: e.Type}
	if e.Payload != nil {
		data, err := json.Marshal(e.Payload)
		if err != nil {
			return nil, err
		}
		env.Data = data
	}
	return json.Marshal(env)
}

type InitState struct {
	History []room.Stroke `json:"history"`
	Users   []room.User   `json:"users"`
	Me      room.User     `json:"me"`
}

type UserLeft struct {
	ID string `json:"id"`
}

type UserUpdate struct {
	ID        string  `json:"id"`
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
	IsDrawing bool    `json:"isDrawing"`
}

type LiveStrokePoint struct {
	UserID string     `json:"userId"`
	Point  room.Point `json:"point"`
	Color  string     `json:"color"`
}

type HistoryUndo struct {
	ID string `json:"id"`
}

// Join registers the session and returns its init_state plus the user_joined
// notice for everyone else.
func Join(strokes *room.StrokeStore, presence *room.PresenceTable, sessionID string) []Event {
	me := presence.Add(sessionID)
	return []Event{
		{
			Type:     TypeInitState,
			Audience: Origin,
			Payload: InitState{
				History: strokes.Snapshot(),
				Users:   presence.List(),
				Me:      me,
			},
		},
		{Type: TypeUserJoined, Audience: Others, Payload: me},
	}
}

// Leave drops the session's presence. Drawings stay with the room.
func Leave(presence *room.PresenceTable, sessionID string) []Event {
	presence.Remove(sessionID)
	return []Event{
		{Type: TypeUserLeft, Audience: Others, Payload: UserLeft{ID: sessionID}},
	}
}

// Apply performs one inbound action against the room state and returns what
// must be broadcast. No-op conditions yield no events.
func Apply(strokes *room.StrokeStore, presence *room.PresenceTable, sessionID string, action Action) []Event {
	switch a := action.(type) {
	case CursorMove:
		if !presence.UpdateCursor(sessionID, a.X, a.Y, a.IsDrawing) {
			return nil
		}
		return []Event{{
			Type:     TypeUserUpdate,
			Audience: Others,
			Payload:  UserUpdate{ID: sessionID, X: a.X, Y: a.Y, IsDrawing: a.IsDrawing},
		}}

	case DrawPoint:
		var color string
		if u, ok := presence.Get(sessionID); ok {
			color = u.Color
		}
		return []Event{{
			Type:     TypeLiveStrokePoint,
			Audience: Others,
			Payload:  LiveStrokePoint{UserID: sessionID, Point: a.Point, Color: color},
		}}

	case DrawEnd:
		color := a.Color
		if color == "" {
			if u, ok := presence.Get(sessionID); ok {
				color = u.Color
			}
		}
		stroke := strokes.Add(a.Points, color, a.Width, sessionID)
		return []Event{{Type: TypeNewStroke, Audience: Everyone, Payload: stroke}}

	case Undo:
		stroke, ok := strokes.Undo()
		if !ok {
			return nil
		}
		return []Event{{Type: TypeHistoryUndo, Audience: Everyone, Payload: HistoryUndo{ID: stroke.ID}}}

	case Redo:
		stroke, ok := strokes.Redo()
		if !ok {
			return nil
		}
		return []Event{{Type: TypeNewStroke, Audience: Everyone, Payload: stroke}}

	case Clear:
		strokes.Clear()
		return []Event{{Type: TypeCanvasClear, Audience: Everyone}}
	}
	return nil
}
