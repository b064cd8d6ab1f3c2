package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/manpreetbhatti/lattice/whiteboard/internal/api"
	"github.com/manpreetbhatti/lattice/whiteboard/internal/config"
	"github.com/manpreetbhatti/lattice/whiteboard/internal/db"
	"github.com/manpreetbhatti/lattice/whiteboard/internal/discovery"
	"github.com/manpreetbhatti/lattice/whiteboard/internal/ratelimit"
	"github.com/manpreetbhatti/lattice/whiteboard/internal/reaper"
	"github.com/manpreetbhatti/lattice/whiteboard/internal/room"
	"github.com/manpreetbhatti/lattice/whiteboard/internal/telemetry"
	"github.com/manpreetbhatti/lattice/whiteboard/internal/ws"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	shutdownTracing, err := telemetry.InitJaeger("whiteboard", cfg.JaegerEndpoint)
	if err != nil {
		log.Printf("⚠️ Tracing unavailable: %v", err)
		shutdownTracing = func(context.Context) error { return nil }
	}

	database, err := db.New(cfg.DBPath)
	if err != nil {
		log.Fatalf("Failed to initialize room catalog: %v", err)
	}

	registry := room.NewRegistry()

	hub := ws.NewHub()
	go hub.Run()

	limiters := ratelimit.NewClientLimiters(cfg.MessagesPerSecond, cfg.MessageBurst)
	coord := ws.NewCoordinator(registry, hub, limiters, database, cfg.DefaultRoom)

	roomReaper := reaper.New(registry, database, reaper.Config{Interval: cfg.ReapInterval})
	roomReaper.Start()

	apiHandler := api.New(registry, hub, database, roomReaper)
	router := api.NewRouter(apiHandler, func(w http.ResponseWriter, r *http.Request) {
		ws.ServeWs(coord, w, r)
	})

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	if cfg.MDNS {
		mdnsServer, err := discovery.Advertise(cfg.PortNumber())
		if err != nil {
			log.Printf("⚠️ mDNS advertisement failed: %v", err)
		} else {
			defer mdnsServer.Shutdown()
		}
	}

	log.Printf("🎨 Whiteboard server starting on :%s", cfg.Port)
	log.Printf("📁 Room catalog: %s", cfg.DBPath)
	log.Println("Endpoints:")
	log.Println("  - WebSocket: /ws?room={roomId}")
	log.Println("  - Health:    GET /health")
	log.Println("  - Stats:     GET /api/stats")
	log.Println("  - Rooms:     GET/POST /api/rooms")
	log.Println("  - Room:      GET/DELETE /api/rooms/{id}")
	log.Println("  - Reap:      POST /api/rooms/reap")

	serverErr := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-sigChan:
	case err := <-serverErr:
		log.Printf("ListenAndServe: %v", err)
	}

	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Printf("HTTP shutdown: %v", err)
	}
	roomReaper.Stop()
	hub.Stop()
	limiters.Stop()
	if err := shutdownTracing(ctx); err != nil {
		log.Printf("Tracer shutdown: %v", err)
	}
	if err := database.Close(); err != nil {
		log.Printf("Catalog close: %v", err)
	}
}
