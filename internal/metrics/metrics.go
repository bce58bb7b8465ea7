package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	RoomsActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "party_rooms_active",
			Help: "Rooms currently registered",
		},
	)
	SessionsActive = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "party_sessions_active",
			Help: "Game sessions currently running",
		},
		[]string{"game"},
	)
	GamesStarted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "party_games_started_total",
			Help: "Games started",
		},
		[]string{"game"},
	)
	GamesFinished = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "party_games_finished_total",
			Help: "Games finished by reason",
		},
		[]string{"game", "reason"},
	)
	Actions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "party_actions_total",
			Help: "Game actions dispatched by result",
		},
		[]string{"game", "result"},
	)
	WSConnections = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "party_ws_connections",
			Help: "Open websocket connections",
		},
	)
	WSDropped = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "party_ws_dropped_messages_total",
			Help: "Outbound messages dropped because a client buffer was full",
		},
	)
	OutcomeFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "party_outcome_record_failures_total",
			Help: "Outcome writes that failed",
		},
	)
)

func init() {
	prometheus.MustRegister(RoomsActive)
	prometheus.MustRegister(SessionsActive)
	prometheus.MustRegister(GamesStarted)
	prometheus.MustRegister(GamesFinished)
	prometheus.MustRegister(Actions)
	prometheus.MustRegister(WSConnections)
	prometheus.MustRegister(WSDropped)
	prometheus.MustRegister(OutcomeFailures)
}
