// Package server defines the wire message variants exchanged with tracker
// clients and the validation rules applied to inbound coordinates.
package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
)

// Wire message type tags. Every frame carries exactly one of these.
const (
	TypeSendLocation     = "send-location"
	TypeReceiveLocation  = "receive-location"
	TypeUserDisconnected = "user-disconnected"
)

// Location is a validated coordinate pair reported by a client.
type Location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Valid reports whether both coordinates are finite and within bounds:
// latitude in [-90, 90], longitude in [-180, 180].
func (l Location) Valid() bool {
	if math.IsNaN(l.Latitude) || math.IsInf(l.Latitude, 0) {
		return false
	}
	if math.IsNaN(l.Longitude) || math.IsInf(l.Longitude, 0) {
		return false
	}
	return l.Latitude >= -90 && l.Latitude <= 90 &&
		l.Longitude >= -180 && l.Longitude <= 180
}

var errUnknownMessageType = errors.New("unknown message type")

// inboundMessage is the envelope decoded from client frames. Coordinates are
// pointers so a missing field is distinguishable from zero.
type inboundMessage struct {
	Type      string   `json:"type"`
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
}

// parseLocationUpdate decodes and validates a raw send-location frame.
// Any failure means the frame is dropped by the caller; the returned error
// only feeds logging.
func parseLocationUpdate(raw []byte) (Location, error) {
	var msg inboundMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		return Location{}, fmt.Errorf("malformed frame: %w", err)
	}
	if msg.Type != TypeSendLocation {
		return Location{}, fmt.Errorf("%w: %q", errUnknownMessageType, msg.Type)
	}
	if msg.Latitude == nil || msg.Longitude == nil {
		return Location{}, errors.New("missing latitude or longitude")
	}
	loc := Location{Latitude: *msg.Latitude, Longitude: *msg.Longitude}
	if !loc.Valid() {
		return Location{}, fmt.Errorf("coordinates out of range: %v, %v", loc.Latitude, loc.Longitude)
	}
	return loc, nil
}

// locationEvent is the receive-location frame fanned out to peers and used
// for the join-time snapshot push.
type locationEvent struct {
	Type      string  `json:"type"`
	ID        string  `json:"id"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// departureEvent is the user-disconnected frame sent to remaining peers.
type departureEvent struct {
	Type string `json:"type"`
	ID   string `json:"id"`
}

// UserRecord is one row of the GET /users listing.
type UserRecord struct {
	ID        string  `json:"id"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// isExpectedCloseError checks if an error is expected during connection closure.
func isExpectedCloseError(err error) bool {
	if err == nil {
		return true
	}
	errStr := err.Error()
	return strings.Contains(errStr, "use of closed network connection") ||
		strings.Contains(errStr, "websocket: close sent") ||
		strings.Contains(errStr, "broken pipe")
}
