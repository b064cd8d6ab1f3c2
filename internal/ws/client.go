package ws

import (
	"context"
	"errors"
	"log"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/segmentio/ksuid"

	"github.com/manpreetbhatti/lattice/whiteboard/internal/protocol"
	"github.com/manpreetbhatti/lattice/whiteboard/internal/ratelimit"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 1024 * 1024
	sendBuffer     = 512

	// Rate-limited frames tolerated before the connection is dropped
	maxRateLimitWarnings = 1000
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// One websocket connection, bound to a single room for its lifetime
type Client struct {
	conn        *websocket.Conn
	send        chan []byte
	roomID      string
	id          string
	rateLimiter *ratelimit.Limiter
}

func newClient(conn *websocket.Conn, roomID, id string, limiter *ratelimit.Limiter) *Client {
	return &Client{
		conn:        conn,
		send:        make(chan []byte, sendBuffer),
		roomID:      roomID,
		id:          id,
		rateLimiter: limiter,
	}
}

func (c *Client) ID() string     { return c.id }
func (c *Client) RoomID() string { return c.roomID }

// ServeWs upgrades the request and joins the room named by ?room=.
func ServeWs(coord *Coordinator, w http.ResponseWriter, r *http.Request) {
	roomID := r.URL.Query().Get("room")
	if roomID == "" {
		roomID = coord.defaultRoom
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Println("Upgrade error:", err)
		return
	}

	var limiter *ratelimit.Limiter
	if coord.limiters != nil {
		limiter = coord.limiters.Get(remoteHost(r))
	}

	client := newClient(conn, roomID, ksuid.New().String(), limiter)

	go client.writePump()
	coord.Join(client)
	go client.readPump(coord)
}

// Budget is kept per host so reconnecting does not refill it
func remoteHost(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func (c *Client) readPump(coord *Coordinator) {
	defer func() {
		coord.Leave(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	rateLimitWarnings := 0

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("WebSocket error: %v", err)
			}
			break
		}

		err = coord.Handle(context.Background(), c, message)
		switch {
		case err == nil:
		case errors.Is(err, ErrRateLimited):
			rateLimitWarnings++
			if rateLimitWarnings%100 == 1 {
				log.Printf("⚠️ Rate limit exceeded for client %s in room %s (warning #%d)",
					c.id, c.roomID, rateLimitWarnings)
			}
			if rateLimitWarnings > maxRateLimitWarnings {
				log.Printf("🚫 Disconnecting client %s for excessive rate limit violations", c.id)
				return
			}
		case errors.Is(err, protocol.ErrMalformed), errors.Is(err, protocol.ErrUnknownType):
			log.Printf("⚠️ Invalid message from client %s: %v", c.id, err)
		default:
			log.Printf("Error handling message from client %s: %v", c.id, err)
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
