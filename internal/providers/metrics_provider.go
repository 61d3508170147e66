package providers

import (
	"roverchat/internal/structures"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Result labels shared by the message and vote counters.
const (
	ResultAccepted     = "accepted"
	ResultDuplicate    = "duplicate"
	ResultRejected     = "rejected"
	ResultFailed       = "failed"
	ResultAlreadyVoted = "already_voted"
	ResultIgnored      = "ignored"
)

type MetricsProviderInterface interface {
	IncRequestsTotal(endpoint string, status int)
	ObserveRequestDuration(endpoint string, duration time.Duration)
	IncCacheHits(namespace string)
	IncCacheMisses(namespace string)
	SetConnections(count int)
	IncMessages(result string)
	IncBroadcastDropped()
	IncVotes(result string)
	IncPollSessions()
	SetPollActive(active bool)
	ObserveReplayed(count int)
}

type MetricsProvider struct {
	requestsTotal    *prometheus.CounterVec
	requestDuration  *prometheus.HistogramVec
	cacheHits        *prometheus.CounterVec
	cacheMisses      *prometheus.CounterVec
	connections      prometheus.Gauge
	messagesTotal    *prometheus.CounterVec
	broadcastDropped prometheus.Counter
	votesTotal       *prometheus.CounterVec
	pollSessions     prometheus.Counter
	pollActive       prometheus.Gauge
	replayed         prometheus.Histogram
}

func (m *MetricsProvider) IncRequestsTotal(endpoint string, status int) {
	m.requestsTotal.WithLabelValues(endpoint, httpStatusBucket(status)).Inc()
}

func (m *MetricsProvider) ObserveRequestDuration(endpoint string, duration time.Duration) {
	m.requestDuration.WithLabelValues(endpoint).Observe(duration.Seconds())
}

func (m *MetricsProvider) IncCacheHits(namespace string) {
	m.cacheHits.WithLabelValues(namespace).Inc()
}

func (m *MetricsProvider) IncCacheMisses(namespace string) {
	m.cacheMisses.WithLabelValues(namespace).Inc()
}

func (m *MetricsProvider) SetConnections(count int) {
	m.connections.Set(float64(count))
}

func (m *MetricsProvider) IncMessages(result string) {
	m.messagesTotal.WithLabelValues(result).Inc()
}

func (m *MetricsProvider) IncBroadcastDropped() {
	m.broadcastDropped.Inc()
}

func (m *MetricsProvider) IncVotes(result string) {
	m.votesTotal.WithLabelValues(result).Inc()
}

func (m *MetricsProvider) IncPollSessions() {
	m.pollSessions.Inc()
}

func (m *MetricsProvider) SetPollActive(active bool) {
	if active {
		m.pollActive.Set(1)
		return
	}
	m.pollActive.Set(0)
}

func (m *MetricsProvider) ObserveReplayed(count int) {
	m.replayed.Observe(float64(count))
}

func httpStatusBucket(code int) string {
	switch {
	case code < 200:
		return "1xx"
	case code < 300:
		return "2xx"
	case code < 400:
		return "3xx"
	case code < 500:
		return "4xx"
	default:
		return "5xx"
	}
}

func NewMetricsProvider(conf *structures.Config) MetricsProviderInterface {
	if !conf.Metrics.Enabled {
		return &noopMetrics{}
	}

	return &MetricsProvider{
		requestsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "roverchat_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"endpoint", "status"}),

		requestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "roverchat_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"endpoint"}),

		cacheHits: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "roverchat_cache_hits_total",
			Help: "Total number of cache hits",
		}, []string{"namespace"}),

		cacheMisses: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "roverchat_cache_misses_total",
			Help: "Total number of cache misses",
		}, []string{"namespace"}),

		connections: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "roverchat_connections",
			Help: "Number of connected socket sessions",
		}),

		messagesTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "roverchat_messages_total",
			Help: "Chat messages received, by outcome",
		}, []string{"result"}),

		broadcastDropped: promauto.NewCounter(prometheus.CounterOpts{
			Name: "roverchat_broadcast_dropped_total",
			Help: "Frames dropped because a recipient queue was full",
		}),

		votesTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "roverchat_votes_total",
			Help: "Poll votes received, by outcome",
		}, []string{"result"}),

		pollSessions: promauto.NewCounter(prometheus.CounterOpts{
			Name: "roverchat_poll_sessions_total",
			Help: "Number of poll sessions opened",
		}),

		pollActive: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "roverchat_poll_active",
			Help: "1 while a poll session accepts votes",
		}),

		replayed: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "roverchat_replayed_messages",
			Help:    "Messages replayed to a connecting session",
			Buckets: prometheus.ExponentialBuckets(1, 4, 8),
		}),
	}
}

// noopMetrics is a no-op implementation for when metrics are disabled.
type noopMetrics struct{}

func (n *noopMetrics) IncRequestsTotal(_ string, _ int)                 {}
func (n *noopMetrics) ObserveRequestDuration(_ string, _ time.Duration) {}
func (n *noopMetrics) IncCacheHits(_ string)                            {}
func (n *noopMetrics) IncCacheMisses(_ string)                          {}
func (n *noopMetrics) SetConnections(_ int)                             {}
func (n *noopMetrics) IncMessages(_ string)                             {}
func (n *noopMetrics) IncBroadcastDropped()                             {}
func (n *noopMetrics) IncVotes(_ string)                                {}
func (n *noopMetrics) IncPollSessions()                                 {}
func (n *noopMetrics) SetPollActive(_ bool)                             {}
func (n *noopMetrics) ObserveReplayed(_ int)                            {}
