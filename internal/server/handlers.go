// Package server exposes HTTP handlers, including WebSocket upgrades and
// health checks.
package server

import (
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/spindle-chat/spindle/internal/chat"
)

// Handler bundles the hub, the coordinator, and the active configuration
// for the HTTP endpoints. It is constructed once in main; there is no
// package-level server state.
type Handler struct {
	hub      *Hub
	router   *chat.Router
	cfg      *Config
	upgrader websocket.Upgrader
	log      *zap.SugaredLogger
}

// NewHandler creates the HTTP handler set for a hub/router pair.
func NewHandler(hub *Hub, router *chat.Router, cfg *Config, log *zap.SugaredLogger) *Handler {
	origins := newOriginChecker(cfg.AllowedOrigins, log)
	return &Handler{
		hub:    hub,
		router: router,
		cfg:    cfg,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     origins.check,
		},
		log: log,
	}
}

// WebSocket handles upgrade requests. Each accepted connection gets a
// fresh connection ID and is registered with the hub, which launches the
// read/write pumps.
func (h *Handler) WebSocket(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed. WebSocket endpoint only accepts GET requests.", http.StatusMethodNotAllowed)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warnw("websocket upgrade failed", "remote", r.RemoteAddr, "error", err)
		return
	}

	client := NewClient(conn, h.hub, h.router, h.cfg, uuid.NewString(), r.RemoteAddr, h.log)
	h.hub.register <- client
}

// Health provides a simple health check endpoint that returns server status.
func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	_, _ = fmt.Fprint(w, "Spindle chat server is running!")
}
