// Package server exposes the HTTP endpoints: the WebSocket upgrade, the
// presence listing, health, and the embedded map page.
package server

import (
	_ "embed"
	"encoding/json"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

//go:embed map.html
var mapPage []byte

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     checkOrigin,
}

// Handlers bundles the HTTP endpoints with their hub dependency.
type Handlers struct {
	hub    *Hub
	logger zerolog.Logger
}

// NewHandlers creates the endpoint set backed by hub.
func NewHandlers(hub *Hub, logger zerolog.Logger) *Handlers {
	return &Handlers{
		hub:    hub,
		logger: logger.With().Str("component", "http").Logger(),
	}
}

// WebSocket upgrades the request and hands the connection to the hub, which
// registers it, pushes the current presence snapshot, and starts its pumps.
func (h *Handlers) WebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn().Err(err).Str("remote", r.RemoteAddr).Msg("websocket upgrade failed")
		return
	}

	client := NewClient(conn, h.hub, r.RemoteAddr)

	select {
	case h.hub.register <- client:
	case <-h.hub.ctx.Done():
		_ = conn.Close()
	}
}

// Users returns the current presence snapshot as a JSON array of
// {id, latitude, longitude} records. It reads the same store the broadcast
// stream is driven from.
func (h *Handlers) Users(w http.ResponseWriter, _ *http.Request) {
	entries := h.hub.Snapshot()
	records := make([]UserRecord, 0, len(entries))
	for _, entry := range entries {
		records = append(records, UserRecord{
			ID:        entry.ID,
			Latitude:  entry.Location.Latitude,
			Longitude: entry.Location.Longitude,
		})
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(records); err != nil {
		h.logger.Warn().Err(err).Msg("error writing users response")
	}
}

// Health provides a simple liveness check.
func (h *Handlers) Health(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	_, _ = w.Write([]byte("tracker is running\n"))
}

// MapPage serves the embedded map client, which drives the WebSocket
// protocol from the browser's geolocation API.
func (h *Handlers) MapPage(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(mapPage)
}
