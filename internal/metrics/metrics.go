package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "poro_http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "poro_http_request_duration_seconds",
			Help:    "HTTP request duration",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"method", "path"},
	)

	// Messaging metrics
	MessagesSent = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "poro_messages_sent_total",
			Help: "Total direct messages sent",
		},
	)

	ConversationsCreated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "poro_conversations_created_total",
			Help: "Total conversations created",
		},
	)

	MessagesMarkedRead = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "poro_messages_marked_read_total",
			Help: "Total messages flipped to read",
		},
	)

	// Live channel metrics
	LiveConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "poro_live_connections",
			Help: "Currently registered live channels",
		},
	)

	LiveEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "poro_live_events_total",
			Help: "Live events by kind and outcome",
		},
		[]string{"kind", "outcome"}, // outcome: delivered, offline, failed, malformed, ignored
	)

	// Notification metrics
	NotificationsCreated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "poro_notifications_created_total",
			Help: "Total notifications created",
		},
		[]string{"type"},
	)

	PushAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "poro_push_attempts_total",
			Help: "Mobile push attempts by outcome",
		},
		[]string{"outcome"}, // sent, failed, no_token
	)

	// Rate limit metrics
	RateLimitHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "poro_rate_limit_hits_total",
			Help: "Total rate limit hits",
		},
		[]string{"endpoint"},
	)

	BlockedRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "poro_blocked_requests_total",
			Help: "Total blocked requests",
		},
		[]string{"reason"},
	)

	// Infrastructure metrics
	RedisLatency = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "poro_redis_latency_seconds",
			Help:    "Redis operation latency",
			Buckets: []float64{.0001, .0005, .001, .005, .01, .05},
		},
	)

	PostgresLatency = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "poro_postgres_latency_seconds",
			Help:    "PostgreSQL query latency",
			Buckets: []float64{.001, .005, .01, .025, .05, .1},
		},
	)
)
