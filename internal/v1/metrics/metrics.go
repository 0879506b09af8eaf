package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics for the signaling hub.
//
// Naming convention: namespace_subsystem_name
// - namespace: vestream (application-level grouping)
// - subsystem: session, room, chat (feature-level grouping)
//
// Metric Types:
// - Gauge: current state (sessions, rooms, members)
// - Counter: cumulative events (envelopes dispatched, chat messages)

var (
	// ActiveSessions tracks the current number of live WebSocket sessions.
	ActiveSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "vestream",
		Subsystem: "session",
		Name:      "connections_active",
		Help:      "Current number of active WebSocket sessions",
	})

	// ActiveRooms tracks the current number of rooms in the registry.
	ActiveRooms = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "vestream",
		Subsystem: "room",
		Name:      "rooms_active",
		Help:      "Current number of active rooms",
	})

	// RoomMembers tracks the member count per room.
	RoomMembers = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "vestream",
		Subsystem: "room",
		Name:      "members_count",
		Help:      "Number of members in each room",
	}, []string{"room_id"})

	// EnvelopesTotal counts inbound envelopes by type and dispatch outcome.
	EnvelopesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "vestream",
		Subsystem: "session",
		Name:      "envelopes_total",
		Help:      "Total inbound envelopes processed",
	}, []string{"envelope_type", "status"})

	// ChatMessagesTotal counts chat messages appended to room logs.
	ChatMessagesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "vestream",
		Subsystem: "chat",
		Name:      "messages_total",
		Help:      "Total chat messages appended",
	}, []string{"kind"})
)

func IncConnection() {
	ActiveSessions.Inc()
}

func DecConnection() {
	ActiveSessions.Dec()
}
