package pkg

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HitsRecorded = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ewm_hits_recorded_total",
		Help: "Hits appended to the hit store.",
	}, []string{"app"})

	RequestTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ewm_request_transitions_total",
		Help: "Participation request status changes.",
	}, []string{"status"})

	EventTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ewm_event_transitions_total",
		Help: "Event lifecycle state changes.",
	}, []string{"state"})

	LockContention = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ewm_event_lock_contention_total",
		Help: "Capacity checks rejected because the event lock was held.",
	})

	OutboxDelivered = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ewm_outbox_delivered_total",
		Help: "Outbox rows relayed, by result.",
	}, []string{"result"})
)
