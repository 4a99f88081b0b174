package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce sync.Once

	apiRequestsTotal  *prometheus.CounterVec
	apiLatencySeconds *prometheus.HistogramVec
	apiErrorsTotal    *prometheus.CounterVec

	messagesSentTotal           *prometheus.CounterVec
	notificationsPublishedTotal *prometheus.CounterVec
	dispatchFailuresTotal       *prometheus.CounterVec
	deliverySessionsActive      *prometheus.GaugeVec
	reactionTogglesTotal        *prometheus.CounterVec
	accessDecisionsTotal        *prometheus.CounterVec
)

// RegisterMetrics initialises the Prometheus collectors. Safe to call repeatedly.
func RegisterMetrics() {
	registerOnce.Do(func() {
		apiRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "crewhub_api_requests_total",
			Help: "Total number of API requests served.",
		}, []string{"method", "route", "status"})

		apiLatencySeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "crewhub_api_latency_seconds",
			Help:    "Latency distribution for API requests.",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.0},
		}, []string{"method", "route"})

		apiErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "crewhub_api_errors_total",
			Help: "Total number of error responses returned by the API.",
		}, []string{"method", "route", "status"})

		messagesSentTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "crewhub_messages_sent_total",
			Help: "Messages persisted, by kind.",
		}, []string{"kind"})

		notificationsPublishedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "crewhub_notifications_published_total",
			Help: "Notification rows created, by type.",
		}, []string{"type"})

		dispatchFailuresTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "crewhub_notification_dispatch_failures_total",
			Help: "Notifications that could not be persisted or fanned out.",
		}, []string{"type"})

		deliverySessionsActive = prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "crewhub_delivery_sessions_active",
			Help: "Open push delivery sessions, by transport.",
		}, []string{"transport"})

		reactionTogglesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "crewhub_reaction_toggles_total",
			Help: "Reaction toggles, by target kind and outcome.",
		}, []string{"target_kind", "outcome"})

		accessDecisionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "crewhub_group_access_decisions_total",
			Help: "Group access transitions, by resulting status.",
		}, []string{"status"})

		prometheus.MustRegister(
			apiRequestsTotal,
			apiLatencySeconds,
			apiErrorsTotal,
			messagesSentTotal,
			notificationsPublishedTotal,
			dispatchFailuresTotal,
			deliverySessionsActive,
			reactionTogglesTotal,
			accessDecisionsTotal,
		)
	})
}

// APIRequests exposes the counter for API requests.
func APIRequests() *prometheus.CounterVec {
	RegisterMetrics()
	return apiRequestsTotal
}

// APILatency exposes the latency histogram for API requests.
func APILatency() *prometheus.HistogramVec {
	RegisterMetrics()
	return apiLatencySeconds
}

// APIErrors exposes the counter for API error responses.
func APIErrors() *prometheus.CounterVec {
	RegisterMetrics()
	return apiErrorsTotal
}

func MessagesSentTotal() *prometheus.CounterVec {
	RegisterMetrics()
	return messagesSentTotal
}

func NotificationsPublishedTotal() *prometheus.CounterVec {
	RegisterMetrics()
	return notificationsPublishedTotal
}

func NotificationDispatchFailuresTotal() *prometheus.CounterVec {
	RegisterMetrics()
	return dispatchFailuresTotal
}

// DeliverySessionsActive tracks open SSE and WebSocket sessions.
func DeliverySessionsActive() *prometheus.GaugeVec {
	RegisterMetrics()
	return deliverySessionsActive
}

func ReactionTogglesTotal() *prometheus.CounterVec {
	RegisterMetrics()
	return reactionTogglesTotal
}

func GroupAccessDecisionsTotal() *prometheus.CounterVec {
	RegisterMetrics()
	return accessDecisionsTotal
}
