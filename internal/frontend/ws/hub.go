package ws

import (
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/cory-johannsen/arena/internal/config"
	"github.com/cory-johannsen/arena/internal/relay"
)

// Hub owns the connection table and bridges the router to the wire. It is
// an http.Handler: each request it serves becomes one WebSocket connection
// with a transport-assigned id, and the disconnect path fires exactly once
// when that connection's read loop ends.
//
// The connection table is transport state only; the participant registry
// behind the router remains the single source of truth for player state.
type Hub struct {
	cfg      config.WebSocketConfig
	origins  []string
	router   *relay.Router
	logger   *zap.Logger
	upgrader websocket.Upgrader

	mu    sync.RWMutex
	conns map[string]*Conn
}

// NewHub creates a Hub serving the given router.
//
// Precondition: router and logger must be non-nil; allowedOrigins must be
// non-empty ("*" allows any origin).
func NewHub(cfg config.WebSocketConfig, allowedOrigins []string, router *relay.Router, logger *zap.Logger) *Hub {
	h := &Hub{
		cfg:     cfg,
		origins: allowedOrigins,
		router:  router,
		logger:  logger,
		conns:   make(map[string]*Conn),
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     h.checkOrigin,
	}
	return h
}

func (h *Hub) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		// Non-browser clients send no Origin header.
		return true
	}
	for _, allowed := range h.origins {
		if allowed == "*" || strings.EqualFold(allowed, origin) {
			return true
		}
	}
	return false
}

// ServeHTTP upgrades the request and runs the connection until its client
// goes away.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	sock, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed",
			zap.String("remote_addr", r.RemoteAddr),
			zap.Error(err),
		)
		return
	}

	start := time.Now()
	conn := newConn(uuid.NewString(), sock, h.cfg.SendBuffer, h.logger)
	connID := conn.ID()

	h.mu.Lock()
	h.conns[connID] = conn
	h.mu.Unlock()

	h.logger.Info("client connected",
		zap.String("conn_id", connID),
		zap.String("remote_addr", r.RemoteAddr),
	)

	go conn.writePump(h.cfg)
	h.readLoop(conn)

	// Drop the connection from the table before computing the departure
	// fan-out, so "everyone" no longer includes the leaver.
	h.mu.Lock()
	delete(h.conns, connID)
	h.mu.Unlock()
	conn.close()

	h.deliver(connID, h.router.Disconnect(connID))

	h.logger.Info("client disconnected",
		zap.String("conn_id", connID),
		zap.Duration("duration", time.Since(start)),
	)
}

func (h *Hub) readLoop(c *Conn) {
	if h.cfg.MaxMessageBytes > 0 {
		c.sock.SetReadLimit(h.cfg.MaxMessageBytes)
	}
	if h.cfg.PongTimeout > 0 {
		_ = c.sock.SetReadDeadline(time.Now().Add(h.cfg.PongTimeout))
		c.sock.SetPongHandler(func(string) error {
			return c.sock.SetReadDeadline(time.Now().Add(h.cfg.PongTimeout))
		})
	}

	for {
		_, msg, err := c.sock.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				h.logger.Debug("read loop ended",
					zap.String("conn_id", c.id),
					zap.Error(err),
				)
			}
			return
		}

		var env relay.Envelope
		if err := json.Unmarshal(msg, &env); err != nil {
			h.logger.Debug("malformed frame dropped",
				zap.String("conn_id", c.id),
				zap.Error(err),
			)
			continue
		}
		if env.Event == "" {
			continue
		}

		h.deliver(c.id, h.router.Dispatch(c.id, env.Event, env.Data))
	}
}

// deliver resolves each emission's scope against the connection table and
// enqueues the encoded envelope. Enqueue failures (closed or backed-up
// clients) are dropped; the relay never waits on a slow connection.
func (h *Hub) deliver(senderID string, emissions []relay.Emission) {
	for _, em := range emissions {
		data, err := json.Marshal(em.Data)
		if err != nil {
			h.logger.Error("encoding emission",
				zap.String("event", em.Event),
				zap.Error(err),
			)
			continue
		}
		env := relay.Envelope{Event: em.Event, Data: data}

		switch em.Scope {
		case relay.ScopeSender:
			h.sendTo(senderID, env)
		case relay.ScopeTarget:
			h.sendTo(em.TargetID, env)
		case relay.ScopeOthers:
			h.broadcast(env, senderID)
		case relay.ScopeAll:
			h.broadcast(env, "")
		}
	}
}

func (h *Hub) sendTo(connID string, env relay.Envelope) {
	h.mu.RLock()
	conn, ok := h.conns[connID]
	h.mu.RUnlock()
	if !ok {
		return
	}
	if err := conn.Enqueue(env); err != nil {
		h.logger.Debug("frame dropped",
			zap.String("conn_id", connID),
			zap.String("event", env.Event),
			zap.Error(err),
		)
	}
}

func (h *Hub) broadcast(env relay.Envelope, exceptID string) {
	h.mu.RLock()
	targets := make([]*Conn, 0, len(h.conns))
	for id, conn := range h.conns {
		if id == exceptID {
			continue
		}
		targets = append(targets, conn)
	}
	h.mu.RUnlock()

	// Fan-out happens outside the table lock.
	for _, conn := range targets {
		if err := conn.Enqueue(env); err != nil {
			h.logger.Debug("frame dropped",
				zap.String("conn_id", conn.id),
				zap.String("event", env.Event),
				zap.Error(err),
			)
		}
	}
}

// ConnCount returns the number of open connections, joined or not.
func (h *Hub) ConnCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns)
}
