// Package protocol defines the whiteboard wire vocabulary and the pure state
// transitions a session's messages cause on a room.
package protocol

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/manpreetbhatti/lattice/whiteboard/internal/room"
)

// Name of a message on the wire
type MessageType string

const (
	// Client -> server
	TypeCursorMove   MessageType = "cursor_move"
	TypeDrawPoint    MessageType = "draw_point"
	TypeDrawEnd      MessageType = "draw_end"
	TypeUndoRequest  MessageType = "undo_request"
	TypeRedoRequest  MessageType = "redo_request"
	TypeClearRequest MessageType = "clear_request"

	// Server -> client
	TypeInitState       MessageType = "init_state"
	TypeUserJoined      MessageType = "user_joined"
	TypeUserLeft        MessageType = "user_left"
	TypeUserUpdate      MessageType = "user_update"
	TypeLiveStrokePoint MessageType = "live_stroke_point"
	TypeNewStroke       MessageType = "new_stroke"
	TypeHistoryUndo     MessageType = "history_undo"
	TypeCanvasClear     MessageType = "canvas_clear"
)

var (
	ErrMalformed   = errors.New("malformed message")
	ErrUnknownType = errors.New("unknown message type")
)

// Envelope wraps every frame in both directions
type Envelope struct {
	Type MessageType     `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// Action is one parsed inbound request. The concrete types below are the
// only implementations.
type Action interface {
	Type() MessageType
}

type CursorMove struct {
	X         float64
	Y         float64
	IsDrawing bool
}

type DrawPoint struct {
	Point room.Point
}

type DrawEnd struct {
	Points []room.Point
	Width  float64
	Color  string
}

type Undo struct{}

type Redo struct{}

type Clear struct{}

func (CursorMove) Type() MessageType { return TypeCursorMove }
func (DrawPoint) Type() MessageType  { return TypeDrawPoint }
func (DrawEnd) Type() MessageType    { return TypeDrawEnd }
func (Undo) Type() MessageType       { return TypeUndoRequest }
func (Redo) Type() MessageType       { return TypeRedoRequest }
func (Clear) Type() MessageType      { return TypeClearRequest }

// Raw payloads use pointers so a missing field can be told apart from a zero.
type rawPoint struct {
	X *float64 `json:"x"`
	Y *float64 `json:"y"`
}

func (p *rawPoint) point() (room.Point, bool) {
	if p == nil || p.X == nil || p.Y == nil {
		return room.Point{}, false
	}
	return room.Point{X: *p.X, Y: *p.Y}, true
}

type cursorMovePayload struct {
	X         *float64 `json:"x"`
	Y         *float64 `json:"y"`
	IsDrawing bool     `json:"isDrawing"`
}

type drawPointPayload struct {
	Point *rawPoint `json:"point"`
}

type drawEndPayload struct {
	Points []*rawPoint `json:"points"`
	Width  *float64    `json:"width"`
	Color  string      `json:"color"`
}

// ParseAction decodes one client frame. Errors wrap ErrMalformed or
// ErrUnknownType; callers drop the frame and keep the session alive.
func ParseAction(data []byte) (Action, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	switch env.Type {
	case TypeCursorMove:
		var p cursorMovePayload
		if err := decodePayload(env, &p); err != nil {
			return nil, err
		}
		if p.X == nil || p.Y == nil {
			return nil, fmt.Errorf("%w: cursor_move needs x and y", ErrMalformed)
		}
		return CursorMove{X: *p.X, Y: *p.Y, IsDrawing: p.IsDrawing}, nil

	case TypeDrawPoint:
		var p drawPointPayload
		if err := decodePayload(env, &p); err != nil {
			return nil, err
		}
		pt, ok := p.Point.point()
		if !ok {
			return nil, fmt.Errorf("%w: draw_point needs a point with x and y", ErrMalformed)
		}
		return DrawPoint{Point: pt}, nil

	case TypeDrawEnd:
		var p drawEndPayload
		if err := decodePayload(env, &p); err != nil {
			return nil, err
		}
		if len(p.Points) == 0 {
			return nil, fmt.Errorf("%w: draw_end needs points", ErrMalformed)
		}
		if p.Width == nil || *p.Width <= 0 {
			return nil, fmt.Errorf("%w: draw_end needs a positive width", ErrMalformed)
		}
		points := make([]room.Point, 0, len(p.Points))
		for i, rp := range p.Points {
			pt, ok := rp.point()
			if !ok {
				return nil, fmt.Errorf("%w: draw_end point %d is incomplete", ErrMalformed, i)
			}
			points = append(points, pt)
		}
		return DrawEnd{Points: points, Width: *p.Width, Color: p.Color}, nil

	case TypeUndoRequest:
		return Undo{}, nil
	case TypeRedoRequest:
		return Redo{}, nil
	case TypeClearRequest:
		return Clear{}, nil

	case "":
		return nil, fmt.Errorf("%w: missing type", ErrMalformed)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, env.Type)
	}
}

func decodePayload(env Envelope, v any) error {
	if len(env.Data) == 0 || string(env.Data) == "null" {
		return fmt.Errorf("%w: %s without data", ErrMalformed, env.Type)
	}
	if err := json.Unmarshal(env.Data, v); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrMalformed, env.Type, err)
	}
	return nil
}
