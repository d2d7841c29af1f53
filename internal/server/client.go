// Package server manages individual WebSocket clients, handling read/write
// pumps, rate limiting, and lifecycle control for each connection.
package server

import (
	"encoding/json"
	"errors"
	"io"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/spindle-chat/spindle/internal/chat"
)

const (
	readDeadline  = 60 * time.Second
	writeDeadline = 10 * time.Second
	pingInterval  = 54 * time.Second
)

// Client represents one WebSocket connection. It decodes inbound frames
// and hands them to the router; outbound frames arrive on the buffered
// send channel filled by the hub.
type Client struct {
	id             string
	conn           *websocket.Conn
	send           chan []byte
	hub            *Hub
	router         *chat.Router
	addr           string
	closed         bool
	maxMessageSize int64
	limiter        *rate.Limiter
	log            *zap.SugaredLogger
}

// NewClient creates a Client for an upgraded connection. The send channel
// is buffered so the hub can deliver without blocking.
func NewClient(conn *websocket.Conn, hub *Hub, router *chat.Router, cfg *Config, id, addr string, log *zap.SugaredLogger) *Client {
	if conn != nil {
		conn.SetReadLimit(cfg.MaxMessageSize)
	}
	return &Client{
		id:             id,
		conn:           conn,
		send:           make(chan []byte, 256),
		hub:            hub,
		router:         router,
		addr:           addr,
		maxMessageSize: cfg.MaxMessageSize,
		limiter:        newRateLimiter(cfg.RateLimit.Burst, cfg.RateLimit.RefillInterval),
		log:            log,
	}
}

// ID returns the connection identifier assigned at upgrade time.
func (c *Client) ID() string {
	return c.id
}

// SendChan returns the client's send channel for reading outgoing frames.
func (c *Client) SendChan() <-chan []byte {
	return c.send
}

func (c *Client) setupReadConnection() {
	if err := c.conn.SetReadDeadline(time.Now().Add(readDeadline)); err != nil {
		c.log.Warnw("error setting initial read deadline", "conn", c.id, "error", err)
	}
	c.conn.SetPongHandler(func(string) error {
		if err := c.conn.SetReadDeadline(time.Now().Add(readDeadline)); err != nil {
			c.log.Warnw("error setting read deadline in pong handler", "conn", c.id, "error", err)
		}
		return nil
	})
}

// handleReadError logs the error and reports whether the read loop should
// stop. All read errors are terminal.
func (c *Client) handleReadError(err error) bool {
	switch {
	case err == nil:
		return false
	case errors.Is(err, websocket.ErrReadLimit):
		c.log.Warnw("message exceeded maximum size", "conn", c.id, "max", c.maxMessageSize)
	case websocket.IsCloseError(err,
		websocket.CloseNormalClosure,
		websocket.CloseGoingAway,
		websocket.CloseAbnormalClosure):
		c.log.Infow("client disconnected", "conn", c.id, "error", err)
	case errors.Is(err, io.EOF) || isExpectedCloseError(err):
		c.log.Infow("client connection closed", "conn", c.id, "error", err)
	default:
		c.log.Warnw("websocket read error", "conn", c.id, "error", err)
	}
	return true
}

// processFrame decodes a raw inbound message and dispatches it to the
// router. Malformed frames are dropped.
func (c *Client) processFrame(raw []byte) {
	var frame chat.Frame
	if err := json.Unmarshal(raw, &frame); err != nil {
		c.log.Warnw("invalid frame", "conn", c.id, "error", err)
		return
	}
	c.hub.metrics.Incr(metricMessagesIn, 1)
	c.router.HandleEvent(c.id, frame)
}

// readPump consumes inbound frames until the connection errors out. The
// deferred cleanup runs the coordinator's disconnect procedure before the
// transport-level unregistration, so both paths share one cascade.
func (c *Client) readPump() {
	defer func() {
		c.router.Disconnect(c.id)
		c.detachFromHub()
		if err := c.conn.Close(); err != nil && !isExpectedCloseError(err) {
			c.log.Warnw("error closing connection in readPump", "conn", c.id, "error", err)
		}
	}()

	c.setupReadConnection()

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if c.handleReadError(err) {
				break
			}
		}

		if !c.limiter.Allow() {
			c.log.Warnw("rate limit exceeded; discarding message", "conn", c.id)
			continue
		}

		c.processFrame(raw)
	}
}

// detachFromHub hands the client back to the hub's unregister loop. Once
// shutdown has stopped the loop, the send is abandoned so the pump can
// still exit.
func (c *Client) detachFromHub() {
	select {
	case c.hub.unregister <- c:
	case <-c.hub.ctx.Done():
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		if err := c.conn.Close(); err != nil && !isExpectedCloseError(err) {
			c.log.Warnw("error closing connection in writePump", "conn", c.id, "error", err)
		}
	}()

	for {
		select {
		case frame, ok := <-c.send:
			if !c.handleOutbound(frame, ok) {
				return
			}
		case <-ticker.C:
			if !c.handlePing() {
				return
			}
		}
	}
}

// handleOutbound writes one frame plus anything queued behind it, and
// reports whether the pump should keep running.
func (c *Client) handleOutbound(frame []byte, ok bool) bool {
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeDeadline)); err != nil {
		c.log.Warnw("error setting write deadline", "conn", c.id, "error", err)
		return false
	}

	if !ok {
		// Hub closed the send channel.
		if err := c.conn.WriteMessage(websocket.CloseMessage, []byte{}); err != nil && !isExpectedCloseError(err) {
			c.log.Warnw("error writing close message", "conn", c.id, "error", err)
		}
		return false
	}

	w, err := c.conn.NextWriter(websocket.TextMessage)
	if err != nil {
		c.log.Warnw("error creating writer", "conn", c.id, "error", err)
		return false
	}
	if _, err := w.Write(frame); err != nil {
		c.log.Warnw("error writing frame", "conn", c.id, "error", err)
		return false
	}

	// Drain anything already queued into the same websocket message.
	queued := len(c.send)
	for i := 0; i < queued; i++ {
		if _, err := w.Write([]byte{'\n'}); err != nil {
			return false
		}
		if _, err := w.Write(<-c.send); err != nil {
			return false
		}
	}

	if err := w.Close(); err != nil {
		c.log.Warnw("error closing writer", "conn", c.id, "error", err)
		return false
	}
	return true
}

// handlePing sends a ping message to keep the connection alive.
func (c *Client) handlePing() bool {
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeDeadline)); err != nil {
		c.log.Warnw("error setting write deadline for ping", "conn", c.id, "error", err)
		return false
	}
	if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
		c.log.Warnw("error writing ping message", "conn", c.id, "error", err)
		return false
	}
	return true
}
