package ws

import (
	"log"
	"sync"

	"github.com/manpreetbhatti/lattice/whiteboard/internal/protocol"
)

// The set of connected clients per room. Run is the only goroutine that
// touches client send channels, and it handles one request at a time, so
// frames reach every client in the order they were handed to the hub.
type Hub struct {
	// Registered clients by room
	rooms map[string]map[*Client]bool

	// Outbound frames
	broadcast chan *Message

	// Register requests from clients
	register chan *Client

	// Unregister requests from clients
	unregister chan *Client

	done     chan struct{}
	stopOnce sync.Once

	mu sync.RWMutex
}

type Message struct {
	RoomID   string
	Data     []byte
	Sender   *Client
	Audience protocol.Audience
}

func NewHub() *Hub {
	return &Hub{
		rooms:      make(map[string]map[*Client]bool),
		broadcast:  make(chan *Message),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
	}
}

func (h *Hub) Run() {
	for {
		select {
		case <-h.done:
			h.closeAll()
			return

		case client := <-h.register:
			h.mu.Lock()
			if _, ok := h.rooms[client.roomID]; !ok {
				h.rooms[client.roomID] = make(map[*Client]bool)
			}
			h.rooms[client.roomID][client] = true
			clientCount := len(h.rooms[client.roomID])
			h.mu.Unlock()

			log.Printf("Client %s joined room %s (total: %d)", client.id, client.roomID, clientCount)

		case client := <-h.unregister:
			h.mu.Lock()
			if clients, ok := h.rooms[client.roomID]; ok {
				if _, ok := clients[client]; ok {
					delete(clients, client)
					close(client.send)

					if len(clients) == 0 {
						delete(h.rooms, client.roomID)
						log.Printf("Room %s has no connections", client.roomID)
					} else {
						log.Printf("Client %s left room %s (remaining: %d)", client.id, client.roomID, len(clients))
					}
				}
			}
			h.mu.Unlock()

		case message := <-h.broadcast:
			h.deliver(message)
		}
	}
}

func (h *Hub) deliver(message *Message) {
	h.mu.Lock()
	defer h.mu.Unlock()

	clients, ok := h.rooms[message.RoomID]
	if !ok {
		return
	}

	for client := range clients {
		switch message.Audience {
		case protocol.Others:
			if client == message.Sender {
				continue
			}
		case protocol.Origin:
			if client != message.Sender {
				continue
			}
		}

		select {
		case client.send <- message.Data:
		default:
			// Too slow to keep up; its write pump closes the socket
			log.Printf("⚠️ Dropping slow client %s in room %s", client.id, client.roomID)
			close(client.send)
			delete(clients, client)
		}
	}

	if len(clients) == 0 {
		delete(h.rooms, message.RoomID)
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for roomID, clients := range h.rooms {
		for client := range clients {
			close(client.send)
		}
		delete(h.rooms, roomID)
	}
}

// Register adds the client to its room. Frames broadcast after Register
// returns are delivered to it.
func (h *Hub) Register(client *Client) {
	select {
	case h.register <- client:
	case <-h.done:
	}
}

func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

func (h *Hub) Broadcast(message *Message) {
	select {
	case h.broadcast <- message:
	case <-h.done:
	}
}

// Stop ends Run and closes every client's send channel.
func (h *Hub) Stop() {
	h.stopOnce.Do(func() { close(h.done) })
}

func (h *Hub) GetRoomCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms)
}

func (h *Hub) GetClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	count := 0
	for _, clients := range h.rooms {
		count += len(clients)
	}
	return count
}

// Returns connection counts by room
func (h *Hub) GetActiveRooms() map[string]int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	result := make(map[string]int, len(h.rooms))
	for roomID, clients := range h.rooms {
		result[roomID] = len(clients)
	}
	return result
}
