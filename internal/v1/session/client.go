// Package session implements the room-coordination hub: live WebSocket
// sessions, the identity and room registries, chat logs, the signaling relay
// and the stream-ready rendezvous.
//
// Concurrency model: one hub mutex protects the registries and all room
// state. Envelope sends never happen while the mutex is held - handlers
// collect target sessions under the lock, release it, then write. Each
// session serializes its own writes through a buffered send channel drained
// by a single writePump goroutine.
package session

import (
	"context"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/dhakb/vestream/internal/v1/logging"
	"github.com/dhakb/vestream/internal/v1/metrics"
	"github.com/dhakb/vestream/internal/v1/protocol"
	"github.com/dhakb/vestream/internal/v1/types"
)

// wsConnection defines the interface for WebSocket connection operations.
// In production this is satisfied by *websocket.Conn; tests substitute mocks.
type wsConnection interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	Close() error
	SetWriteDeadline(t time.Time) error
}

const (
	sendBufferSize = 256
	writeWait      = 10 * time.Second
)

// Client represents a single live session, whether or not it has joined a
// room yet. The user field is the session's bound identity; it is nil before
// JOIN_ROOM succeeds and is read and written only under the hub mutex.
type Client struct {
	conn wsConnection
	hub  *Hub

	user *types.User // guarded by hub.mu

	send chan []byte // Buffered channel for outgoing envelopes

	mu        sync.RWMutex // Protects closed
	closed    bool
	closeOnce sync.Once
}

// Disconnect closes the session's outbound half exactly once. The writePump
// drains the buffer, sends a close frame and closes the connection, which in
// turn unblocks the readPump and runs the departure path.
func (c *Client) Disconnect() {
	c.closeOnce.Do(func() {
		c.mu.Lock()
		c.closed = true
		c.mu.Unlock()
		close(c.send)
	})
}

// readPump continuously processes inbound frames from the session.
// It is the session's dispatcher loop: every frame is decoded and routed
// under the hub's rules until the remote half closes.
func (c *Client) readPump() {
	defer func() {
		c.hub.handleDisconnect(c)
		c.Disconnect()
		c.conn.Close()
		metrics.DecConnection()
	}()

	for {
		messageType, data, err := c.conn.ReadMessage()
		if err != nil {
			break
		}
		if messageType != websocket.TextMessage {
			continue
		}

		c.hub.Route(c, data)
	}
}

func (c *Client) writePump() {
	defer c.conn.Close()

	for message := range c.send {
		_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
			logging.Error(context.Background(), "error writing envelope", zap.Error(err))
			return
		}
	}
	_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
}

// SendRaw queues a pre-encoded envelope for delivery. Delivery is
// best-effort: a full buffer or a closed session drops the envelope rather
// than blocking the caller.
func (c *Client) SendRaw(data []byte) {
	c.mu.RLock()
	if c.closed {
		c.mu.RUnlock()
		return
	}
	c.mu.RUnlock()

	// Safety net for the race between the closed check and Disconnect.
	defer func() {
		if r := recover(); r != nil {
			logging.Warn(context.Background(), "recovered from send on closed session", zap.Any("panic", r))
		}
	}()

	select {
	case c.send <- data:
	default:
		logging.Warn(context.Background(), "session send buffer full, dropping envelope")
	}
}

// sendEnvelope encodes and queues one envelope, stamped with the hub clock.
func (c *Client) sendEnvelope(t protocol.EnvelopeType, payload any) {
	data, err := protocol.Encode(t, payload, c.hub.clock.Now())
	if err != nil {
		logging.Error(context.Background(), "failed to encode envelope", zap.String("type", string(t)), zap.Error(err))
		return
	}
	c.SendRaw(data)
}
