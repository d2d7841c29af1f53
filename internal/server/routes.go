// Package server wires HTTP handlers into a router for the Spindle
// application.
package server

import (
	"net/http"

	"github.com/gorilla/mux"
)

// NewRoutes configures and returns the application's route table: health
// check at the root and the WebSocket endpoint at /ws.
func NewRoutes(h *Handler) *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/", h.Health).Methods(http.MethodGet)
	r.HandleFunc("/ws", h.WebSocket).Methods(http.MethodGet)
	return r
}
