package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Handshake Metrics
var (
	// HandshakeAttemptsTotal tracks handshake finish attempts by result
	HandshakeAttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "handshake_attempts_total",
			Help: "Total handshake finish attempts by result (success/invalid_signature/invite_used/challenge_missing/challenge_expired/challenge_mismatch/client_not_allowed/error)",
		},
		[]string{"result"},
	)

	// ChallengesIssuedTotal tracks challenges issued by begin-connect
	ChallengesIssuedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "handshake_challenges_issued_total",
			Help: "Total challenges issued by begin-connect",
		},
	)

	// InvitesCreatedTotal tracks invites created by path (bearer/client_signed)
	InvitesCreatedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "invites_created_total",
			Help: "Total invites created by authentication path",
		},
		[]string{"path"},
	)
)

// Session Metrics
var (
	// SessionsIssuedTotal tracks sessions minted by successful handshakes
	SessionsIssuedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "sessions_issued_total",
			Help: "Total sessions minted by successful handshakes",
		},
	)

	// SessionsSweptTotal tracks expired sessions removed by lazy sweeps
	SessionsSweptTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "sessions_swept_total",
			Help: "Total expired sessions removed by lazy sweeps",
		},
	)
)

// Broadcast Metrics
var (
	// EventsBroadcastTotal tracks channel events delivered to subscribers
	EventsBroadcastTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "channel_events_broadcast_total",
			Help: "Total channel events delivered to subscriber buffers",
		},
	)

	// EventsDroppedTotal tracks channel events dropped on full subscriber buffers
	EventsDroppedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "channel_events_dropped_total",
			Help: "Total channel events dropped because a subscriber buffer was full",
		},
	)

	// ChannelSubscribersCurrent tracks current live channel event subscribers
	ChannelSubscribersCurrent = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "channel_subscribers_current",
			Help: "Current number of live channel event subscribers",
		},
	)
)

// Voice Presence Metrics
var (
	// VoicePresenceEvictionsTotal tracks stale presence rows removed by sweeps
	VoicePresenceEvictionsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "voice_presence_evictions_total",
			Help: "Total stale voice presence rows evicted by liveness sweeps",
		},
	)

	// VoiceJoinsTotal tracks voice channel joins
	VoiceJoinsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "voice_joins_total",
			Help: "Total voice channel joins",
		},
	)

	// VoiceTokensIssuedTotal tracks media-router join tokens issued by result
	VoiceTokensIssuedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "voice_tokens_issued_total",
			Help: "Total media-router join tokens issued by result (success/unavailable/error)",
		},
		[]string{"result"},
	)
)

// WebSocket Metrics
var (
	// WebSocketConnectionsCurrent tracks current active WebSocket connections
	WebSocketConnectionsCurrent = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "websocket_connections_current",
			Help: "Current number of active WebSocket connections",
		},
	)

	// WebSocketConnectionsTotal tracks total WebSocket connection attempts by result
	WebSocketConnectionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "websocket_connections_total",
			Help: "Total WebSocket connection attempts by result (success/error/rejected)",
		},
		[]string{"result"},
	)

	// WebSocketPingFailures tracks failed keepalive pings
	WebSocketPingFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "websocket_ping_failures_total",
			Help: "Total failed WebSocket keepalive pings",
		},
	)

	// WebSocketSendDuration tracks event write latency
	WebSocketSendDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "websocket_send_duration_seconds",
			Help:    "Time to write one event frame to a WebSocket client",
			Buckets: prometheus.DefBuckets,
		},
	)
)

// HTTP Metrics
var (
	// RateLimitedRequestsTotal tracks requests denied by the per-IP rate limiter
	RateLimitedRequestsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "rate_limited_requests_total",
			Help: "Total requests denied by the per-IP rate limiter",
		},
	)
)

// Database Metrics
var (
	// DBErrorsTotal tracks database errors by operation name
	DBErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "db_errors_total",
			Help: "Total database errors by operation",
		},
		[]string{"operation"},
	)
)
