package ws

import (
	"context"
	"errors"
	"fmt"
	"log"

	"go.opentelemetry.io/otel/attribute"

	"github.com/manpreetbhatti/lattice/whiteboard/internal/db"
	"github.com/manpreetbhatti/lattice/whiteboard/internal/middleware"
	"github.com/manpreetbhatti/lattice/whiteboard/internal/protocol"
	"github.com/manpreetbhatti/lattice/whiteboard/internal/ratelimit"
	"github.com/manpreetbhatti/lattice/whiteboard/internal/room"
)

var (
	ErrRateLimited = errors.New("rate limit exceeded")
	errRoomGone    = errors.New("room no longer exists")
)

// ActivityRecorder receives a note of every join, leave and committed change.
type ActivityRecorder interface {
	RecordActivity(roomID string, kind db.ActivityKind, sessionID string) error
}

// Coordinator runs each session through join, message handling and leave.
// Room state only changes inside Room.Do, and the resulting frames are handed
// to the hub before the room is released, so every session of a room sees
// commits in the same order.
type Coordinator struct {
	registry    *room.Registry
	hub         *Hub
	limiters    *ratelimit.ClientLimiters
	recorder    ActivityRecorder
	defaultRoom string
}

// limiters and recorder may be nil.
func NewCoordinator(registry *room.Registry, hub *Hub, limiters *ratelimit.ClientLimiters, recorder ActivityRecorder, defaultRoom string) *Coordinator {
	if defaultRoom == "" {
		defaultRoom = "general"
	}
	return &Coordinator{
		registry:    registry,
		hub:         hub,
		limiters:    limiters,
		recorder:    recorder,
		defaultRoom: defaultRoom,
	}
}

// Join binds the client to its room: presence is added, the client gets the
// room snapshot and everyone else hears about the new user.
func (c *Coordinator) Join(client *Client) {
	c.registry.Enter(client.roomID, func(r *room.Room) {
		r.Do(func(strokes *room.StrokeStore, presence *room.PresenceTable) {
			c.hub.Register(client)
			c.publish(client, protocol.Join(strokes, presence, client.id))
		})
	})
	c.record(client.roomID, db.ActivityJoin, client.id)
}

// Handle applies one inbound frame. Malformed and rate-limited frames are
// dropped without touching the room and reported through the error.
func (c *Coordinator) Handle(ctx context.Context, client *Client, data []byte) error {
	ctx, span := middleware.StartSpan(ctx, "Whiteboard.message",
		attribute.String("room.id", client.roomID),
		attribute.String("session.id", client.id),
		attribute.Int("message.size", len(data)),
	)
	defer span.End()

	action, err := protocol.ParseAction(data)
	if err != nil {
		// Garbage still drains the bucket
		if client.rateLimiter != nil {
			client.rateLimiter.Allow()
		}
		middleware.AddSpanError(ctx, err)
		return err
	}
	span.SetName("Whiteboard." + string(action.Type()))

	if client.rateLimiter != nil && !client.rateLimiter.AllowN(actionCost(action)) {
		middleware.AddSpanError(ctx, ErrRateLimited)
		return ErrRateLimited
	}

	r, ok := c.registry.Get(client.roomID)
	if !ok {
		err := fmt.Errorf("%s: %w", client.roomID, errRoomGone)
		middleware.AddSpanError(ctx, err)
		return err
	}

	var events []protocol.Event
	r.Do(func(strokes *room.StrokeStore, presence *room.PresenceTable) {
		events = protocol.Apply(strokes, presence, client.id, action)
		c.publish(client, events)
	})

	if len(events) == 0 {
		middleware.AddSpanEvent(ctx, "no-op")
		return nil
	}
	span.SetAttributes(attribute.Int("events", len(events)))

	if kind, ok := activityKind(action); ok {
		c.record(client.roomID, kind, client.id)
	}
	return nil
}

// Leave removes the client's presence and connection. The room and its
// drawing stay behind for the next visitor.
func (c *Coordinator) Leave(client *Client) {
	r, ok := c.registry.Get(client.roomID)
	if !ok {
		c.hub.Unregister(client)
		return
	}

	r.Do(func(_ *room.StrokeStore, presence *room.PresenceTable) {
		c.publish(client, protocol.Leave(presence, client.id))
		c.hub.Unregister(client)
	})
	c.record(client.roomID, db.ActivityLeave, client.id)
}

// Must be called inside the room's critical section
func (c *Coordinator) publish(client *Client, events []protocol.Event) {
	for _, ev := range events {
		data, err := ev.Encode()
		if err != nil {
			log.Printf("Failed to encode %s for room %s: %v", ev.Type, client.roomID, err)
			continue
		}
		c.hub.Broadcast(&Message{
			RoomID:   client.roomID,
			Data:     data,
			Sender:   client,
			Audience: ev.Audience,
		})
	}
}

func (c *Coordinator) record(roomID string, kind db.ActivityKind, sessionID string) {
	if c.recorder == nil {
		return
	}
	if err := c.recorder.RecordActivity(roomID, kind, sessionID); err != nil {
		log.Printf("Failed to record %s in room %s: %v", kind, roomID, err)
	}
}

// Live traffic is cheap; history changes cost more and a clear the most
func actionCost(a protocol.Action) int {
	switch a.(type) {
	case protocol.CursorMove, protocol.DrawPoint:
		return 1
	case protocol.Clear:
		return 10
	default:
		return 2
	}
}

func activityKind(a protocol.Action) (db.ActivityKind, bool) {
	switch a.(type) {
	case protocol.DrawEnd:
		return db.ActivityStroke, true
	case protocol.Undo:
		return db.ActivityUndo, true
	case protocol.Redo:
		return db.ActivityRedo, true
	case protocol.Clear:
		return db.ActivityClear, true
	}
	return "", false
}
