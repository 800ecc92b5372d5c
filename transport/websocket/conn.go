package websocket

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 4096

	// Outbound frames buffered per connection before deliveries are dropped.
	sendBuffer = 256
)

// socket is the subset of *websocket.Conn the transport relies on. Tests
// substitute a scripted fake.
type socket interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	SetReadLimit(limit int64)
	SetReadDeadline(t time.Time) error
	SetWriteDeadline(t time.Time) error
	SetPongHandler(h func(appData string) error)
	Close() error
}

// Conn is one live client socket plus its binding to a player and room.
// The binding fields are empty until a join-room message is handled and are
// mutated only inside hub handler turns.
type Conn struct {
	sock socket
	send chan []byte

	playerID     string
	roomID       string
	lastActivity time.Time

	closed    chan struct{}
	closeOnce sync.Once
}

func newConn(sock socket) *Conn {
	return &Conn{
		sock:         sock,
		send:         make(chan []byte, sendBuffer),
		lastActivity: time.Now(),
		closed:       make(chan struct{}),
	}
}

// PlayerID returns the bound player identity, empty before join.
func (c *Conn) PlayerID() string { return c.playerID }

// RoomID returns the bound room, empty before join.
func (c *Conn) RoomID() string { return c.roomID }

// Closed reports whether the connection has been shut down.
func (c *Conn) Closed() bool {
	select {
	case <-c.closed:
		return true
	default:
		return false
	}
}

// shutdown stops the write pump and closes the underlying socket. Safe to
// call more than once.
func (c *Conn) shutdown() {
	c.closeOnce.Do(func() {
		close(c.closed)
		c.sock.Close()
	})
}

// enqueue hands a frame to the write pump without blocking. Returns false
// when the connection is closed or its buffer is full; the caller treats
// either as a skipped delivery.
func (c *Conn) enqueue(frame []byte) bool {
	if c.Closed() {
		return false
	}
	select {
	case c.send <- frame:
		return true
	default:
		return false
	}
}

// writePump pumps frames from the send channel to the socket and keeps the
// connection alive with periodic pings.
func (c *Conn) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.shutdown()
	}()

	for {
		select {
		case <-c.closed:
			c.sock.SetWriteDeadline(time.Now().Add(writeWait))
			c.sock.WriteMessage(websocket.CloseMessage, []byte{})
			return

		case frame := <-c.send:
			c.sock.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.sock.WriteMessage(websocket.TextMessage, frame); err != nil {
				return
			}

		case <-ticker.C:
			c.sock.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.sock.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
