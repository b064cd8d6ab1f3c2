package reaper

import (
	"log"
	"sync"
	"time"

	"github.com/manpreetbhatti/lattice/whiteboard/internal/db"
	"github.com/manpreetbhatti/lattice/whiteboard/internal/room"
)

type Config struct {
	Interval time.Duration
}

func DefaultConfig() Config {
	return Config{
		Interval: 5 * time.Minute,
	}
}

// Recorder notes each reclaimed room; may be nil
type Recorder interface {
	RecordActivity(roomID string, kind db.ActivityKind, sessionID string) error
}

// Service periodically drops rooms that nobody is in and nothing was drawn in.
type Service struct {
	registry *room.Registry
	recorder Recorder
	config   Config
	stop     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

func New(registry *room.Registry, recorder Recorder, config Config) *Service {
	if config.Interval <= 0 {
		config.Interval = DefaultConfig().Interval
	}
	return &Service{
		registry: registry,
		recorder: recorder,
		config:   config,
		stop:     make(chan struct{}),
	}
}

func (s *Service) Start() {
	s.wg.Add(1)
	go s.run()
	log.Printf("🧹 Reaper started (interval: %v)", s.config.Interval)
}

func (s *Service) Stop() {
	s.stopOnce.Do(func() { close(s.stop) })
	s.wg.Wait()
	log.Println("🧹 Reaper stopped")
}

func (s *Service) run() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			s.ReapNow()
		}
	}
}

// ReapNow reclaims empty rooms immediately and returns their ids.
func (s *Service) ReapNow() []string {
	reaped := s.registry.ReapEmptyRooms()
	if len(reaped) == 0 {
		return reaped
	}

	if s.recorder != nil {
		for _, id := range reaped {
			if err := s.recorder.RecordActivity(id, db.ActivityReap, ""); err != nil {
				log.Printf("Reaper: failed to record room %s: %v", id, err)
			}
		}
	}

	log.Printf("🧹 Reaped %d empty rooms: %v", len(reaped), reaped)
	return reaped
}
