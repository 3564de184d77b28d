package realtime

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	sendBufferSize = 32
)

// Client is one websocket connection attached to the hub. Membership is
// tracked in rooms (guarded by the hub's lock).
type Client struct {
	conn *websocket.Conn
	send chan []byte

	rooms map[string]struct{}

	closeOnce sync.Once
	done      chan struct{}
}

func NewClient(conn *websocket.Conn) *Client {
	return &Client{
		conn:  conn,
		send:  make(chan []byte, sendBufferSize),
		rooms: make(map[string]struct{}),
		done:  make(chan struct{}),
	}
}

func (c *Client) trySend(message []byte) bool {
	select {
	case c.send <- message:
		return true
	case <-c.done:
		return false
	default:
		// Buffer full: the client is too slow, drop it.
		return false
	}
}

func (c *Client) close() {
	c.closeOnce.Do(func() {
		close(c.done)
		_ = c.conn.Close()
	})
}

// WritePump forwards queued messages to the websocket and keeps the
// connection alive with pings. Runs in its own goroutine per client.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.close()
	}()

	for {
		select {
		case message := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.done:
			return
		}
	}
}

// ReadPump blocks until the client disconnects. Incoming frames are
// discarded; the socket is server-push only.
func (c *Client) ReadPump(hub *Hub) {
	defer func() {
		hub.LeaveAll(c)
		c.close()
	}()

	c.conn.SetReadLimit(512)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}
