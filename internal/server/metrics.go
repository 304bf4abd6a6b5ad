// Package server exports Prometheus metrics for the tracker's hot paths.
package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	metricActiveConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "tracker_active_connections",
		Help: "Number of currently registered WebSocket connections.",
	})

	metricLocationUpdates = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tracker_location_updates_total",
		Help: "Location updates accepted and applied to the presence store.",
	})

	metricRejectedUpdates = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tracker_rejected_updates_total",
		Help: "Inbound frames dropped for failing validation.",
	})

	metricBroadcasts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tracker_broadcast_messages_total",
		Help: "Events queued to peer connections by the fan-out path.",
	})

	metricSlowClientDrops = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tracker_slow_client_drops_total",
		Help: "Connections dropped because their send queue overflowed.",
	})
)
