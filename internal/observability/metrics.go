package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Vote outcomes recorded by VotesTotal.
const (
	VoteOutcomeAdded     = "added"
	VoteOutcomeSwitched  = "switched"
	VoteOutcomeRetracted = "retracted"
	VoteOutcomeFailed    = "failed"
)

var (
	// VotesTotal counts applied votes by target kind and outcome.
	VotesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "stackit_votes_total",
		Help: "Total number of votes processed by target kind and outcome",
	}, []string{"kind", "outcome"})

	// NotificationsCreated counts persisted notifications by type.
	NotificationsCreated = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "stackit_notifications_created_total",
		Help: "Total number of notifications persisted",
	}, []string{"type"})

	// NotificationFailures counts notifications dropped because they could not be persisted or published.
	NotificationFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "stackit_notification_failures_total",
		Help: "Total number of notification failures by stage",
	}, []string{"type", "stage"})

	// WebSocketConnections is the gauge of open notification sockets.
	WebSocketConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "stackit_websocket_connections",
		Help: "Number of open notification websocket connections",
	})

	// WebSocketDrops counts messages dropped because a client send buffer was full.
	WebSocketDrops = promauto.NewCounter(prometheus.CounterOpts{
		Name: "stackit_websocket_dropped_messages_total",
		Help: "Total number of websocket messages dropped due to backpressure",
	})
)
