package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ActiveConnections tracks currently open websocket sessions.
	ActiveConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "chatline_active_connections",
		Help: "Number of currently connected websocket sessions.",
	})

	// RoomMessages counts persisted group room messages.
	RoomMessages = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chatline_room_messages_total",
		Help: "Total group room messages persisted and broadcast.",
	})

	// DMMessages counts persisted direct messages.
	DMMessages = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chatline_dm_messages_total",
		Help: "Total direct messages persisted and delivered.",
	})

	// ReactionToggles counts successful reaction toggles.
	ReactionToggles = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chatline_reaction_toggles_total",
		Help: "Total reaction toggles applied.",
	})

	// ActivityPublishFailures counts dropped activity events.
	ActivityPublishFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chatline_activity_publish_failures_total",
		Help: "Activity events dropped because the publisher failed.",
	})
)
