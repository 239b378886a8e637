// Package metrics exposes Prometheus instrumentation for the review service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// MutationsTotal counts successful mutations by collection and operation.
	MutationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "teacher_review",
		Name:      "mutations_total",
		Help:      "Successful mutations by collection and operation.",
	}, []string{"collection", "operation"})

	// EventsBroadcast counts change events fanned out to clients.
	EventsBroadcast = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "teacher_review",
		Name:      "events_broadcast_total",
		Help:      "Change events broadcast, by event kind.",
	}, []string{"event"})

	// WebsocketClients tracks currently connected notification clients.
	WebsocketClients = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "teacher_review",
		Name:      "websocket_clients",
		Help:      "Currently connected websocket clients.",
	})
)
