package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/manpreetbhatti/lattice/whiteboard/internal/middleware"
)

// NewRouter mounts the REST endpoints and, when given, the websocket handler.
func NewRouter(a *API, wsHandler http.HandlerFunc) *mux.Router {
	r := mux.NewRouter()

	r.Use(middleware.TracingMiddleware)
	r.Use(middleware.ErrorRecoveryMiddleware)
	r.Use(middleware.CORSMiddleware)

	if wsHandler != nil {
		r.HandleFunc("/ws", wsHandler)
	}
	r.HandleFunc("/health", a.HealthHandler).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/stats", a.StatsHandler).Methods(http.MethodGet)
	api.HandleFunc("/rooms", a.ListRoomsHandler).Methods(http.MethodGet)
	api.HandleFunc("/rooms", a.CreateRoomHandler).Methods(http.MethodPost)
	api.HandleFunc("/rooms/reap", a.ReapHandler).Methods(http.MethodPost)
	api.HandleFunc("/rooms/{id}", a.GetRoomHandler).Methods(http.MethodGet)
	api.HandleFunc("/rooms/{id}", a.DeleteRoomHandler).Methods(http.MethodDelete)

	// Preflight requests only need the CORS headers
	r.PathPrefix("/").Methods(http.MethodOptions).HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})

	return r
}
