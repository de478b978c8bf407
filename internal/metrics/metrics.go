package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "tictactoe"

// Result labels.
const (
	ResultAccepted = "accepted"
	ResultRejected = "rejected"
	ResultConflict = "conflict"

	ResultCreated  = "created"
	ResultDeclined = "declined"
	ResultIgnored  = "ignored"
)

// Metrics holds the Prometheus collectors of the session engine.
type Metrics struct {
	PlayersRegistered   prometheus.Counter
	Invites             *prometheus.CounterVec
	Moves               *prometheus.CounterVec
	ActiveSubscriptions prometheus.Gauge
}

// New creates and registers all metrics with the given registry.
func New(reg prometheus.Registerer) *Metrics {
	return &Metrics{
		PlayersRegistered: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "players_registered_total",
				Help:      "Total number of registered players",
			},
		),
		Invites: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "invites_total",
				Help:      "Invite operations by result",
			},
			[]string{"result"}, // created/accepted/declined/ignored/conflict
		),
		Moves: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "moves_total",
				Help:      "Moves by result",
			},
			[]string{"result"}, // accepted/rejected/conflict
		),
		ActiveSubscriptions: promauto.With(reg).NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "subscriptions_active",
				Help:      "Number of running snapshot subscriptions",
			},
		),
	}
}
