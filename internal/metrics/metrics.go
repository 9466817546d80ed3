// Package metrics provides Prometheus instrumentation for the stranger
// relay bot. It exposes gauges for pairing state, counters for relay
// throughput and moderation actions, and the /metrics HTTP handler.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// ActiveSessions tracks the current number of active pairings.
	ActiveSessions = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "strangerbot_active_sessions",
		Help: "Current number of active chat sessions",
	})

	// WaitingUsers tracks the waiting-slot occupancy (0 or 1).
	WaitingUsers = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "strangerbot_waiting_users",
		Help: "Current number of users waiting for a match (at most 1)",
	})

	// MatchesTotal counts successfully created pairings.
	MatchesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "strangerbot_matches_total",
		Help: "Total number of pairings created",
	})

	// SessionsEnded counts ended sessions, labeled by reason:
	// "stop", "rematch", "report", "block", or "revoke".
	SessionsEnded = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "strangerbot_sessions_ended_total",
		Help: "Total number of sessions ended",
	}, []string{"reason"})

	// MessagesRelayed counts messages delivered to a partner by the pacer.
	MessagesRelayed = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "strangerbot_messages_relayed_total",
		Help: "Total number of messages relayed to partners",
	})

	// MessagesDropped counts messages dropped on a full pacer queue.
	MessagesDropped = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "strangerbot_messages_dropped_total",
		Help: "Total number of messages dropped by the pacer",
	})

	// ReportsFiled counts abuse reports accepted by the report ledger.
	ReportsFiled = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "strangerbot_reports_total",
		Help: "Total number of abuse reports filed",
	})

	// BlocksTotal counts block relations added to the registry.
	BlocksTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "strangerbot_blocks_total",
		Help: "Total number of block relations added",
	})
)

func init() {
	prometheus.MustRegister(
		ActiveSessions,
		WaitingUsers,
		MatchesTotal,
		SessionsEnded,
		MessagesRelayed,
		MessagesDropped,
		ReportsFiled,
		BlocksTotal,
	)
}

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
