// Package server implements the realtime location tracker: a WebSocket hub
// that maintains the authoritative in-memory presence of every connected
// client and fans each accepted location update out to all other peers.
//
// The implementation is organized into specialized files for the connection
// registry, presence store, hub, clients, configuration, routing, and HTTP
// handlers to keep the codebase maintainable and testable as the project
// grows.
package server
