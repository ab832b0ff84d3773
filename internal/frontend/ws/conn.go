// Package ws provides the WebSocket frontend for the relay: it upgrades
// HTTP requests, runs one read loop and one write pump per client, and
// delivers router emissions to the right connections.
package ws

import (
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/cory-johannsen/arena/internal/config"
	"github.com/cory-johannsen/arena/internal/relay"
)

// Conn is one client connection. All outbound frames pass through a
// buffered channel drained by a single write pump, so delivery never blocks
// an event handler; a client that stops draining starts losing frames.
type Conn struct {
	id     string
	sock   *websocket.Conn
	send   chan relay.Envelope
	done   chan struct{}
	closer sync.Once
	logger *zap.Logger
}

func newConn(id string, sock *websocket.Conn, bufferSize int, logger *zap.Logger) *Conn {
	if bufferSize <= 0 {
		bufferSize = 64
	}
	return &Conn{
		id:     id,
		sock:   sock,
		send:   make(chan relay.Envelope, bufferSize),
		done:   make(chan struct{}),
		logger: logger,
	}
}

// ID returns the transport-assigned connection identifier.
func (c *Conn) ID() string {
	return c.id
}

// Enqueue stages an envelope for the write pump.
//
// Postcondition: The envelope is queued, or an error when the connection is
// closed or its buffer is full. Delivery is fire-and-forget either way.
func (c *Conn) Enqueue(env relay.Envelope) error {
	select {
	case <-c.done:
		return fmt.Errorf("connection %s is closed", c.id)
	default:
	}
	select {
	case c.send <- env:
		return nil
	default:
		return fmt.Errorf("connection %s send buffer full", c.id)
	}
}

// writePump drains the send channel onto the socket and keeps the
// connection alive with periodic pings. It exits when the connection is
// closed or a write fails.
func (c *Conn) writePump(cfg config.WebSocketConfig) {
	var ping <-chan time.Time
	if cfg.PingInterval > 0 {
		ticker := time.NewTicker(cfg.PingInterval)
		defer ticker.Stop()
		ping = ticker.C
	}

	for {
		select {
		case env := <-c.send:
			if cfg.WriteTimeout > 0 {
				_ = c.sock.SetWriteDeadline(time.Now().Add(cfg.WriteTimeout))
			}
			if err := c.sock.WriteJSON(env); err != nil {
				c.logger.Debug("write failed",
					zap.String("conn_id", c.id),
					zap.String("event", env.Event),
					zap.Error(err),
				)
				return
			}
		case <-ping:
			if cfg.WriteTimeout > 0 {
				_ = c.sock.SetWriteDeadline(time.Now().Add(cfg.WriteTimeout))
			}
			if err := c.sock.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.done:
			_ = c.sock.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}

// close tears down the connection. Safe to call more than once.
func (c *Conn) close() {
	c.closer.Do(func() {
		close(c.done)
		_ = c.sock.Close()
	})
}
