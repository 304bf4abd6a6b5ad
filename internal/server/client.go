// Package server manages individual WebSocket clients, handling read/write
// pumps, rate limiting, and lifecycle control for each connection.
package server

import (
	"errors"
	"io"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

const (
	// pongWait is how long to wait for any read (data or pong) before
	// treating the connection as dead.
	pongWait = 60 * time.Second

	// pingPeriod controls how often keepalive pings are sent. Must be less
	// than pongWait.
	pingPeriod = 54 * time.Second

	// writeWait is the deadline for a single write to the client.
	writeWait = 10 * time.Second
)

// Client is the per-connection handler. It owns the private outbound queue
// fed by the hub's fan-out and the read loop feeding the hub's update path.
// The two loops are independent so a silent peer never stalls delivery.
type Client struct {
	conn *websocket.Conn
	send chan []byte
	hub  *Hub

	id   string
	addr string

	closeOnce      sync.Once
	maxMessageSize int64
	limiter        *tokenBucket
	rateLimit      RateLimitConfig
	logger         zerolog.Logger
}

// NewClient creates a Client for conn using the current server configuration.
// The outbound queue depth is bounded; when it overflows the hub drops the
// connection instead of blocking.
func NewClient(conn *websocket.Conn, hub *Hub, addr string) *Client {
	cfg := currentConfig()
	if conn != nil {
		conn.SetReadLimit(cfg.MaxMessageSize)
	}

	return &Client{
		conn:           conn,
		send:           make(chan []byte, cfg.SendQueueSize),
		hub:            hub,
		addr:           addr,
		maxMessageSize: cfg.MaxMessageSize,
		limiter:        newTokenBucket(cfg.RateLimit.Burst, cfg.RateLimit.RefillInterval),
		rateLimit:      cfg.RateLimit,
		logger:         hub.logger.With().Str("component", "client").Str("addr", addr).Logger(),
	}
}

// ID returns the connection identity assigned at registration time.
func (c *Client) ID() string {
	return c.id
}

// trySend queues payload for delivery without blocking. It reports false when
// the queue is full, which the hub treats as a slow-client disconnect. Only
// the hub goroutine calls trySend, so it never races the queue close.
func (c *Client) trySend(payload []byte) bool {
	select {
	case c.send <- payload:
		return true
	default:
		return false
	}
}

// signalDisconnect notifies the hub exactly once that this connection is
// gone, no matter how many failure paths observe it.
func (c *Client) signalDisconnect() {
	c.closeOnce.Do(func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.ctx.Done():
		}
	})
}

// setupReadConnection configures the read deadline and pong handler.
func (c *Client) setupReadConnection() {
	if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		c.logger.Warn().Err(err).Msg("error setting initial read deadline")
	}
	c.conn.SetPongHandler(func(string) error {
		if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
			c.logger.Warn().Err(err).Msg("error setting read deadline in pong handler")
		}
		return nil
	})
}

// logReadError records why the read loop is ending, at a level matching how
// expected the cause is.
func (c *Client) logReadError(err error) {
	switch {
	case errors.Is(err, websocket.ErrReadLimit):
		c.logger.Warn().Int64("limit", c.maxMessageSize).Msg("frame exceeded maximum size")
	case websocket.IsCloseError(err,
		websocket.CloseNormalClosure,
		websocket.CloseGoingAway,
		websocket.CloseAbnormalClosure):
		c.logger.Debug().Err(err).Msg("client disconnected")
	case errors.Is(err, io.EOF) || isExpectedCloseError(err):
		c.logger.Debug().Err(err).Msg("connection closed")
	default:
		c.logger.Warn().Err(err).Msg("websocket read error")
	}
}

// readPump reads frames from the connection and forwards them to the hub's
// update path. Malformed payloads are rejected there, never here: a bad
// message is dropped while the connection stays active. Any transport error
// ends the loop and triggers the exactly-once disconnect signal.
func (c *Client) readPump() {
	defer func() {
		c.signalDisconnect()
		if err := c.conn.Close(); err != nil && !isExpectedCloseError(err) {
			c.logger.Warn().Err(err).Msg("error closing connection in readPump")
		}
	}()

	c.setupReadConnection()

	for {
		_, rawMessage, err := c.conn.ReadMessage()
		if err != nil {
			c.logReadError(err)
			return
		}

		if c.limiter != nil && !c.limiter.allow() {
			c.logger.Warn().Int("burst", c.rateLimit.Burst).
				Dur("interval", c.rateLimit.RefillInterval).
				Msg("rate limit exceeded; discarding frame")
			continue
		}

		select {
		case c.hub.updates <- locationUpdate{sender: c, payload: rawMessage}:
		case <-c.hub.ctx.Done():
			return
		}
	}
}

// writePump drains the outbound queue onto the connection, one frame per
// message, and sends keepalive pings. It exits when the queue is closed by
// the hub, when a write fails, or when the hub shuts down; closing the
// connection then unblocks readPump, which performs the disconnect
// signalling.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		if err := c.conn.Close(); err != nil && !isExpectedCloseError(err) {
			c.logger.Warn().Err(err).Msg("error closing connection in writePump")
		}
	}()

	for {
		select {
		case payload, ok := <-c.send:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				c.logger.Warn().Err(err).Msg("error setting write deadline")
				return
			}
			if !ok {
				// Hub closed the queue: the connection was unregistered.
				if err := c.conn.WriteMessage(websocket.CloseMessage, []byte{}); err != nil && !isExpectedCloseError(err) {
					c.logger.Debug().Err(err).Msg("error writing close message")
				}
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				if !isExpectedCloseError(err) {
					c.logger.Warn().Err(err).Msg("error writing frame")
				}
				return
			}

		case <-ticker.C:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				c.logger.Warn().Err(err).Msg("error setting ping write deadline")
				return
			}
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				if !isExpectedCloseError(err) {
					c.logger.Debug().Err(err).Msg("error writing ping")
				}
				return
			}

		case <-c.hub.ctx.Done():
			return
		}
	}
}
