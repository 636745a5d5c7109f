package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	collaboratorRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "storefront",
			Name:      "collaborator_requests_total",
			Help:      "Requests sent to backend collaborators by operation and outcome.",
		},
		[]string{"collaborator", "operation", "outcome"},
	)

	collaboratorLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "storefront",
			Name:      "collaborator_request_seconds",
			Help:      "Latency of collaborator requests.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"collaborator", "operation"},
	)

	staleResponses = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "storefront",
			Name:      "stale_responses_discarded_total",
			Help:      "Responses dropped because a newer request was dispatched for the same store slot.",
		},
		[]string{"slot"},
	)

	checkoutTransitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "storefront",
			Name:      "checkout_transitions_total",
			Help:      "Checkout state machine transitions by target state.",
		},
		[]string{"state"},
	)

	paidUnbooked = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "storefront",
			Name:      "checkout_paid_unbooked_total",
			Help:      "Payments verified whose booking creation failed and need reconciliation.",
		},
	)

	sessionTransitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "storefront",
			Name:      "session_transitions_total",
			Help:      "Session login/logout results.",
		},
		[]string{"event"},
	)
)

// Register registers metrics (idempotent).
func Register() {
	once.Do(func() {
		prometheus.MustRegister(
			collaboratorRequests,
			collaboratorLatency,
			staleResponses,
			checkoutTransitions,
			paidUnbooked,
			sessionTransitions,
		)
	})
}

func ObserveRequest(collaborator, operation, outcome string, took time.Duration) {
	collaboratorRequests.WithLabelValues(collaborator, operation, outcome).Inc()
	collaboratorLatency.WithLabelValues(collaborator, operation).Observe(took.Seconds())
}

func IncStaleResponse(slot string) {
	staleResponses.WithLabelValues(slot).Inc()
}

func IncCheckoutTransition(state string) {
	checkoutTransitions.WithLabelValues(state).Inc()
}

func IncPaidUnbooked() {
	paidUnbooked.Inc()
}

func IncSession(event string) {
	sessionTransitions.WithLabelValues(event).Inc()
}
