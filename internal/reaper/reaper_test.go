package reaper

import (
	"sync"
	"testing"
	"time"

	"github.com/manpreetbhatti/lattice/whiteboard/internal/db"
	"github.com/manpreetbhatti/lattice/whiteboard/internal/room"
)

type countingRecorder struct {
	mu    sync.Mutex
	rooms []string
}

func (c *countingRecorder) RecordActivity(roomID string, kind db.ActivityKind, sessionID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if kind == db.ActivityReap {
		c.rooms = append(c.rooms, roomID)
	}
	return nil
}

func (c *countingRecorder) reaped() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.rooms)
}

func newPopulatedRegistry() *room.Registry {
	registry := room.NewRegistry()

	registry.GetOrCreateRoom("empty-a")
	registry.GetOrCreateRoom("empty-b")

	registry.GetOrCreateRoom("occupied").Do(func(_ *room.StrokeStore, p *room.PresenceTable) {
		p.Add("someone")
	})
	registry.GetOrCreateRoom("drawn").Do(func(s *room.StrokeStore, _ *room.PresenceTable) {
		s.Add([]room.Point{{X: 1, Y: 1}}, "#000", 2, "gone")
	})
	return registry
}

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()
	if config.Interval != 5*time.Minute {
		t.Errorf("Expected 5m interval, got %v", config.Interval)
	}

	s := New(room.NewRegistry(), nil, Config{})
	if s.config.Interval != 5*time.Minute {
		t.Errorf("Zero interval should fall back to default, got %v", s.config.Interval)
	}
}

func TestReapNow(t *testing.T) {
	registry := newPopulatedRegistry()
	recorder := &countingRecorder{}
	s := New(registry, recorder, DefaultConfig())

	reaped := s.ReapNow()
	if len(reaped) != 2 || reaped[0] != "empty-a" || reaped[1] != "empty-b" {
		t.Errorf("Expected [empty-a empty-b], got %v", reaped)
	}
	if registry.Count() != 2 {
		t.Errorf("Expected 2 rooms left, got %d", registry.Count())
	}
	if recorder.reaped() != 2 {
		t.Errorf("Expected 2 recorded reaps, got %d", recorder.reaped())
	}

	if again := s.ReapNow(); len(again) != 0 {
		t.Errorf("Second reap should find nothing, got %v", again)
	}
}

func TestServiceStartStop(t *testing.T) {
	registry := newPopulatedRegistry()
	recorder := &countingRecorder{}
	s := New(registry, recorder, Config{Interval: 10 * time.Millisecond})

	s.Start()

	deadline := time.Now().Add(time.Second)
	for registry.Count() != 2 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	s.Stop()
	s.Stop()

	if registry.Count() != 2 {
		t.Errorf("Expected the ticker to reap empty rooms, %d rooms left", registry.Count())
	}
	if _, ok := registry.Get("occupied"); !ok {
		t.Error("Occupied room must survive")
	}
	if _, ok := registry.Get("drawn"); !ok {
		t.Error("Room with history must survive")
	}
}
