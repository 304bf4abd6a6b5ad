// Package server coordinates client registration, presence mutation, and
// event fan-out for the tracker via the Hub type.
package server

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// locationUpdate carries one raw inbound frame from a connection into the
// hub's serialized update path.
type locationUpdate struct {
	sender  *Client
	payload []byte
}

// Hub is the single authority for all presence state transitions. Every
// register, location update, and disconnect funnels through its run loop,
// which establishes a total order over broadcasts: if update U1 is accepted
// before U2, every peer sees U1's fan-out before U2's.
type Hub struct {
	registry *registry
	store    *presenceStore

	register   chan *Client
	unregister chan *Client
	updates    chan locationUpdate

	logger zerolog.Logger
	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

// NewHub creates a Hub ready to manage connections. Call Run in its own
// goroutine to start processing.
func NewHub(logger zerolog.Logger) *Hub {
	ctx, cancel := context.WithCancel(context.Background())
	return &Hub{
		registry:   newRegistry(),
		store:      newPresenceStore(),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		updates:    make(chan locationUpdate, 256),
		logger:     logger.With().Str("component", "hub").Logger(),
		ctx:        ctx,
		cancel:     cancel,
		done:       make(chan struct{}),
	}
}

// Run starts the hub's event loop, handling registration, location updates,
// and disconnects. It runs until Shutdown is called.
func (h *Hub) Run() {
	defer close(h.done)

	for {
		select {
		case <-h.ctx.Done():
			h.shutdownClients()
			return

		case client := <-h.register:
			h.handleRegister(client)

		case client := <-h.unregister:
			h.handleDisconnect(client)

		case update := <-h.updates:
			h.handleUpdate(update)
		}
	}
}

// Snapshot returns a consistent point-in-time copy of all presence entries
// in first-seen order. It is the single source of truth behind both the
// join-time catch-up push and GET /users.
func (h *Hub) Snapshot() []PresenceEntry {
	return h.store.snapshot()
}

// ClientCount returns the number of currently registered connections.
func (h *Hub) ClientCount() int {
	return h.registry.count()
}

// handleRegister assigns the client its connection ID, pushes the current
// presence snapshot into its queue, and starts its pumps. Because this runs
// on the hub loop, the snapshot frames are queued before any broadcast that
// the loop accepts afterwards.
func (h *Hub) handleRegister(c *Client) {
	if c == nil {
		h.logger.Warn().Msg("received nil client registration; skipping")
		return
	}

	c.id = h.registry.register(c)
	metricActiveConnections.Inc()
	h.logger.Info().Str("conn", c.id).Str("addr", c.addr).
		Int("active", h.registry.count()).Msg("client registered")

	for _, entry := range h.store.snapshot() {
		payload, err := json.Marshal(locationEvent{
			Type:      TypeReceiveLocation,
			ID:        entry.ID,
			Latitude:  entry.Location.Latitude,
			Longitude: entry.Location.Longitude,
		})
		if err != nil {
			h.logger.Error().Err(err).Msg("failed to encode snapshot frame")
			continue
		}
		if !c.trySend(payload) {
			// Queue full before the pumps even started: treat as a slow
			// client and take it straight back out.
			metricSlowClientDrops.Inc()
			h.disconnect(c)
			return
		}
	}

	if c.conn != nil {
		h.wg.Add(2)
		go func() {
			defer h.wg.Done()
			c.writePump()
		}()
		go func() {
			defer h.wg.Done()
			c.readPump()
		}()
	}
}

// handleUpdate validates one inbound frame, applies it to the presence
// store, and fans the result out to every other active connection. Invalid
// frames are dropped without mutation or broadcast.
func (h *Hub) handleUpdate(u locationUpdate) {
	if u.sender == nil {
		return
	}

	if _, ok := h.registry.get(u.sender.id); !ok {
		// Update from a connection the registry does not know. The state
		// machine should make this impossible; force the connection closed
		// rather than mask the contract violation.
		h.logger.Error().Str("conn", u.sender.id).Str("addr", u.sender.addr).
			Msg("location update from unregistered connection; forcing close")
		if u.sender.conn != nil {
			_ = u.sender.conn.Close()
		}
		return
	}

	loc, err := parseLocationUpdate(u.payload)
	if err != nil {
		metricRejectedUpdates.Inc()
		h.logger.Debug().Err(err).Str("conn", u.sender.id).Msg("dropping invalid location update")
		return
	}

	entry := h.store.upsert(u.sender.id, loc)
	metricLocationUpdates.Inc()

	payload, err := json.Marshal(locationEvent{
		Type:      TypeReceiveLocation,
		ID:        entry.ID,
		Latitude:  entry.Location.Latitude,
		Longitude: entry.Location.Longitude,
	})
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to encode location event")
		return
	}
	h.broadcast(payload, u.sender.id)
}

// handleDisconnect tears down a departed client. Safe to invoke any number
// of times per client; only the first call observes it in the registry.
func (h *Hub) handleDisconnect(c *Client) {
	if c == nil {
		return
	}
	h.disconnect(c)
}

// disconnect performs the single atomic departure transition: registry
// removal, presence removal, queue close, then the user-disconnected
// broadcast. The store entry is gone before any peer is told, so no snapshot
// taken after a peer sees the departure can still contain the ghost.
func (h *Hub) disconnect(c *Client) {
	if _, ok := h.registry.unregister(c.id); !ok {
		return
	}

	h.store.remove(c.id)
	metricActiveConnections.Dec()
	close(c.send)
	if c.conn != nil {
		_ = c.conn.Close()
	}
	h.logger.Info().Str("conn", c.id).Str("addr", c.addr).
		Int("active", h.registry.count()).Msg("client disconnected")

	payload, err := json.Marshal(departureEvent{Type: TypeUserDisconnected, ID: c.id})
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to encode departure event")
		return
	}
	h.broadcast(payload, c.id)
}

// broadcast queues payload to every active connection except excludeID.
// Delivery is non-blocking: a client whose queue is full is dropped rather
// than allowed to stall the loop, which in turn broadcasts its departure.
func (h *Hub) broadcast(payload []byte, excludeID string) {
	var slow []*Client
	for _, c := range h.registry.snapshot(excludeID) {
		if c.trySend(payload) {
			metricBroadcasts.Inc()
		} else {
			slow = append(slow, c)
		}
	}

	for _, c := range slow {
		metricSlowClientDrops.Inc()
		h.logger.Warn().Str("conn", c.id).Str("addr", c.addr).
			Msg("dropping client with full send queue")
		h.disconnect(c)
	}
}

// shutdownClients closes every active connection during hub shutdown.
func (h *Hub) shutdownClients() {
	clients := h.registry.snapshot("")
	for _, c := range clients {
		if c.conn != nil {
			if err := c.conn.Close(); err != nil && !isExpectedCloseError(err) {
				h.logger.Warn().Err(err).Str("conn", c.id).Msg("error closing client connection")
			}
		}
	}
	h.logger.Info().Int("count", len(clients)).Msg("closed client connections")
}

// Shutdown stops the run loop and waits for client goroutines to finish, or
// gives up after timeout.
func (h *Hub) Shutdown(timeout time.Duration) error {
	h.logger.Info().Msg("initiating hub shutdown")

	h.cancel()
	<-h.done

	done := make(chan struct{})
	go func() {
		h.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		h.logger.Info().Msg("hub shutdown completed")
		return nil
	case <-time.After(timeout):
		h.logger.Warn().Msg("hub shutdown timeout reached")
		return context.DeadlineExceeded
	}
}
