package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/manpreetbhatti/lattice/whiteboard/internal/db"
	"github.com/manpreetbhatti/lattice/whiteboard/internal/reaper"
	"github.com/manpreetbhatti/lattice/whiteboard/internal/room"
	"github.com/manpreetbhatti/lattice/whiteboard/internal/ws"
)

type API struct {
	registry *room.Registry
	hub      *ws.Hub
	database *db.Database
	reaper   *reaper.Service
}

// database and reaper may be nil
func New(registry *room.Registry, hub *ws.Hub, database *db.Database, reaper *reaper.Service) *API {
	return &API{
		registry: registry,
		hub:      hub,
		database: database,
		reaper:   reaper,
	}
}

func jsonResponse(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("Error encoding JSON response: %v", err)
	}
}

func errorResponse(w http.ResponseWriter, status int, message string) {
	jsonResponse(w, status, map[string]string{"error": message})
}

func (a *API) HealthHandler(w http.ResponseWriter, r *http.Request) {
	jsonResponse(w, http.StatusOK, map[string]interface{}{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

func (a *API) StatsHandler(w http.ResponseWriter, r *http.Request) {
	liveStrokes, liveUsers := 0, 0
	for _, rm := range a.registry.List() {
		users, strokes, _ := rm.Counts()
		liveStrokes += strokes
		liveUsers += users
	}

	stats := map[string]interface{}{
		"live_rooms":     a.registry.Count(),
		"live_users":     liveUsers,
		"live_strokes":   liveStrokes,
		"active_rooms":   a.hub.GetRoomCount(),
		"active_clients": a.hub.GetClientCount(),
		"timestamp":      time.Now().UTC().Format(time.RFC3339),
	}

	if a.database != nil {
		dbStats, err := a.database.GetStats()
		if err == nil {
			stats["total_rooms"] = dbStats["room_count"]
			stats["total_activity"] = dbStats["activity_count"]
			stats["strokes_committed"] = dbStats["strokes_committed"]
		} else {
			log.Printf("Failed to read catalog stats: %v", err)
		}
	}

	jsonResponse(w, http.StatusOK, stats)
}

// Room handlers

type RoomResponse struct {
	ID          string     `json:"id"`
	Name        string     `json:"name,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   *time.Time `json:"updated_at,omitempty"`
	Live        bool       `json:"live"`
	ActiveUsers int        `json:"active_users"`
	StrokeCount int        `json:"stroke_count"`
}

// Live view of one room
type RoomDetailResponse struct {
	ID        string                  `json:"id"`
	Name      string                  `json:"name,omitempty"`
	CreatedAt time.Time               `json:"created_at"`
	History   []room.Stroke           `json:"history"`
	Users     []room.User             `json:"users"`
	RedoDepth int                     `json:"redo_depth"`
	Activity  map[db.ActivityKind]int `json:"activity,omitempty"`
}

type CreateRoomRequest struct {
	ID   string `json:"id"`
	Name string `json:"name,omitempty"`
}

func (a *API) liveRoom(resp *RoomResponse) {
	rm, ok := a.registry.Get(resp.ID)
	if !ok {
		return
	}
	users, strokes, _ := rm.Counts()
	resp.Live = true
	resp.ActiveUsers = users
	resp.StrokeCount = strokes
}

func (a *API) ListRoomsHandler(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
	if offset < 0 {
		offset = 0
	}

	var response []RoomResponse
	if a.database != nil {
		rooms, err := a.database.ListRooms(limit, offset)
		if err != nil {
			errorResponse(w, http.StatusInternalServerError, "Failed to list rooms")
			return
		}
		response = make([]RoomResponse, len(rooms))
		for i, rm := range rooms {
			updatedAt := rm.UpdatedAt
			response[i] = RoomResponse{
				ID:        rm.ID,
				Name:      rm.Name,
				CreatedAt: rm.CreatedAt,
				UpdatedAt: &updatedAt,
			}
			a.liveRoom(&response[i])
		}
	} else {
		live := a.registry.List()
		response = make([]RoomResponse, 0, limit)
		for i := offset; i < len(live) && len(response) < limit; i++ {
			resp := RoomResponse{ID: live[i].ID, CreatedAt: live[i].CreatedAt}
			a.liveRoom(&resp)
			response = append(response, resp)
		}
	}

	jsonResponse(w, http.StatusOK, map[string]interface{}{
		"rooms":  response,
		"limit":  limit,
		"offset": offset,
	})
}

func (a *API) CreateRoomHandler(w http.ResponseWriter, r *http.Request) {
	var req CreateRoomRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errorResponse(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if req.ID == "" {
		errorResponse(w, http.StatusBadRequest, "Room ID is required")
		return
	}

	if a.database != nil {
		if err := a.database.CreateRoom(req.ID, req.Name); err != nil {
			errorResponse(w, http.StatusInternalServerError, "Failed to create room")
			return
		}
	}
	rm := a.registry.GetOrCreateRoom(req.ID)

	resp := RoomResponse{ID: rm.ID, Name: req.Name, CreatedAt: rm.CreatedAt}
	a.liveRoom(&resp)
	jsonResponse(w, http.StatusCreated, resp)
}

func (a *API) GetRoomHandler(w http.ResponseWriter, r *http.Request) {
	roomID := mux.Vars(r)["id"]

	rm, ok := a.registry.Get(roomID)
	if !ok {
		errorResponse(w, http.StatusNotFound, "Room not found")
		return
	}

	resp := RoomDetailResponse{ID: rm.ID, CreatedAt: rm.CreatedAt}
	rm.Do(func(strokes *room.StrokeStore, presence *room.PresenceTable) {
		resp.History = strokes.Snapshot()
		resp.Users = presence.List()
		resp.RedoDepth = strokes.RedoLen()
	})

	if a.database != nil {
		if entry, err := a.database.GetRoom(roomID); err == nil && entry != nil {
			resp.Name = entry.Name
		}
		if counts, err := a.database.ActivityCounts(roomID); err == nil {
			resp.Activity = counts
		}
	}

	jsonResponse(w, http.StatusOK, resp)
}

func (a *API) DeleteRoomHandler(w http.ResponseWriter, r *http.Request) {
	roomID := mux.Vars(r)["id"]

	err := a.registry.DeleteRoom(roomID)
	switch {
	case errors.Is(err, room.ErrRoomOccupied):
		errorResponse(w, http.StatusConflict, "Room has connected users")
		return
	case errors.Is(err, room.ErrRoomNotFound):
		// Reaped rooms can still have a catalog entry
		if a.database == nil {
			errorResponse(w, http.StatusNotFound, "Room not found")
			return
		}
		entry, dbErr := a.database.GetRoom(roomID)
		if dbErr != nil {
			errorResponse(w, http.StatusInternalServerError, "Failed to get room")
			return
		}
		if entry == nil {
			errorResponse(w, http.StatusNotFound, "Room not found")
			return
		}
	case err != nil:
		errorResponse(w, http.StatusInternalServerError, "Failed to delete room")
		return
	}

	if a.database != nil {
		if err := a.database.DeleteRoom(roomID); err != nil {
			errorResponse(w, http.StatusInternalServerError, "Failed to delete room")
			return
		}
	}

	log.Printf("🗑️ Deleted room %s", roomID)
	jsonResponse(w, http.StatusOK, map[string]string{"message": "Room deleted"})
}

func (a *API) ReapHandler(w http.ResponseWriter, r *http.Request) {
	var reaped []string
	if a.reaper != nil {
		reaped = a.reaper.ReapNow()
	} else {
		reaped = a.registry.ReapEmptyRooms()
	}
	if reaped == nil {
		reaped = []string{}
	}

	jsonResponse(w, http.StatusOK, map[string]interface{}{
		"reaped": reaped,
		"count":  len(reaped),
	})
}
