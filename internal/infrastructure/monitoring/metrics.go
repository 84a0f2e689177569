package monitoring

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Relay attempt outcomes used as the "outcome" label.
const (
	OutcomeSuccess  = "success"
	OutcomeFailure  = "failure"
	OutcomeRejected = "circuit_open"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// HTTP metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	ResponseSize    *prometheus.HistogramVec

	// Pipeline metrics
	Classifications *prometheus.CounterVec
	RelayAttempts   *prometheus.CounterVec
	RelayDuration   *prometheus.HistogramVec
	Fallbacks       prometheus.Counter
	StaleResults    prometheus.Counter
	BridgeMessages  *prometheus.CounterVec
	BreakerState    *prometheus.GaugeVec

	// Content host metrics
	TabsOpen     prometheus.Gauge
	Navigations  *prometheus.CounterVec
	HistorySize  prometheus.Gauge
	StorageFails *prometheus.CounterVec

	// WebSocket metrics
	WSConnections prometheus.Gauge
	WSMessages    *prometheus.CounterVec

	startTime time.Time

	// Snapshot for the JSON health endpoint
	snapshot Snapshot
	mu       sync.RWMutex
}

// Snapshot holds current metric values for the JSON health endpoint.
type Snapshot struct {
	TotalRequests int64   `json:"total_requests"`
	TotalErrors   int64   `json:"total_errors"`
	Fetches       int64   `json:"fetches"`
	Fallbacks     int64   `json:"fallbacks"`
	StaleResults  int64   `json:"stale_results"`
	Connections   int64   `json:"ws_connections"`
	AvgLatencyMs  float64 `json:"avg_latency_ms"`
	UptimeSeconds float64 `json:"uptime_seconds"`

	totalDuration float64
}

// NewMetrics registers the collectors on reg. Pass prometheus.DefaultRegisterer
// in production and a fresh prometheus.NewRegistry() in tests.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	m := &Metrics{startTime: time.Now()}

	m.RequestsTotal = f.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nebula_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)
	m.RequestDuration = f.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "nebula_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		},
		[]string{"method", "path"},
	)
	m.ResponseSize = f.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "nebula_http_response_size_bytes",
			Help:    "HTTP response size in bytes",
			Buckets: []float64{100, 1000, 10000, 100000, 1000000, 10000000},
		},
		[]string{"method", "path"},
	)

	m.Classifications = f.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nebula_classifications_total",
			Help: "Render mode decisions by mode",
		},
		[]string{"mode"},
	)
	m.RelayAttempts = f.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nebula_relay_attempts_total",
			Help: "Relay backend attempts by backend and outcome",
		},
		[]string{"backend", "outcome"},
	)
	m.RelayDuration = f.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "nebula_relay_duration_seconds",
			Help:    "Relay backend attempt duration in seconds",
			Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 15},
		},
		[]string{"backend"},
	)
	m.Fallbacks = f.NewCounter(
		prometheus.CounterOpts{
			Name: "nebula_fallback_documents_total",
			Help: "Fetches where every relay failed",
		},
	)
	m.StaleResults = f.NewCounter(
		prometheus.CounterOpts{
			Name: "nebula_stale_results_total",
			Help: "Fetch results discarded because a newer navigation superseded them",
		},
	)
	m.BridgeMessages = f.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nebula_bridge_messages_total",
			Help: "Messages received from sandboxed documents",
		},
		[]string{"result"},
	)
	m.BreakerState = f.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "nebula_relay_breaker_state",
			Help: "Relay circuit breaker state (0 closed, 1 half-open, 2 open)",
		},
		[]string{"backend"},
	)

	m.TabsOpen = f.NewGauge(
		prometheus.GaugeOpts{
			Name: "nebula_tabs_open",
			Help: "Number of open tabs",
		},
	)
	m.Navigations = f.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nebula_navigations_total",
			Help: "Tab navigations by render mode",
		},
		[]string{"mode"},
	)
	m.HistorySize = f.NewGauge(
		prometheus.GaugeOpts{
			Name: "nebula_history_entries",
			Help: "Number of persisted history entries",
		},
	)
	m.StorageFails = f.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nebula_storage_errors_total",
			Help: "Failed writes to the state store by key",
		},
		[]string{"key"},
	)

	m.WSConnections = f.NewGauge(
		prometheus.GaugeOpts{
			Name: "nebula_ws_connections",
			Help: "Number of active bridge WebSocket connections",
		},
	)
	m.WSMessages = f.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nebula_ws_messages_total",
			Help: "Total number of WebSocket messages",
		},
		[]string{"direction", "type"},
	)

	f.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "nebula_uptime_seconds",
			Help: "Service uptime in seconds",
		},
		func() float64 { return time.Since(m.startTime).Seconds() },
	)

	return m
}

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(method, path, status string, duration time.Duration, respSize int64) {
	m.RequestsTotal.WithLabelValues(method, path, status).Inc()
	m.RequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
	m.ResponseSize.WithLabelValues(method, path).Observe(float64(respSize))

	m.mu.Lock()
	m.snapshot.TotalRequests++
	m.snapshot.totalDuration += duration.Seconds()
	if status != "" && (status[0] == '4' || status[0] == '5') {
		m.snapshot.TotalErrors++
	}
	m.mu.Unlock()
}

// RecordClassification counts a render mode decision.
func (m *Metrics) RecordClassification(mode string) {
	m.Classifications.WithLabelValues(mode).Inc()
}

// RecordRelayAttempt records one relay backend attempt.
func (m *Metrics) RecordRelayAttempt(backend, outcome string, duration time.Duration) {
	m.RelayAttempts.WithLabelValues(backend, outcome).Inc()
	if outcome != OutcomeRejected {
		m.RelayDuration.WithLabelValues(backend).Observe(duration.Seconds())
	}
}

// RecordFetch records the end of a fetch chain.
func (m *Metrics) RecordFetch(fallback bool) {
	if fallback {
		m.Fallbacks.Inc()
	}
	m.mu.Lock()
	m.snapshot.Fetches++
	if fallback {
		m.snapshot.Fallbacks++
	}
	m.mu.Unlock()
}

// IncStaleResults counts a discarded superseded fetch result.
func (m *Metrics) IncStaleResults() {
	m.StaleResults.Inc()
	m.mu.Lock()
	m.snapshot.StaleResults++
	m.mu.Unlock()
}

// RecordBridgeMessage counts a bridge message as "accepted" or "ignored".
func (m *Metrics) RecordBridgeMessage(result string) {
	m.BridgeMessages.WithLabelValues(result).Inc()
}

// SetBreakerState exports a relay breaker's state.
func (m *Metrics) SetBreakerState(backend string, state int) {
	m.BreakerState.WithLabelValues(backend).Set(float64(state))
}

// SetTabsOpen sets the number of open tabs
func (m *Metrics) SetTabsOpen(count int) {
	m.TabsOpen.Set(float64(count))
}

// RecordNavigation counts a tab navigation by mode.
func (m *Metrics) RecordNavigation(mode string) {
	m.Navigations.WithLabelValues(mode).Inc()
}

// SetHistorySize sets the number of persisted history entries
func (m *Metrics) SetHistorySize(count int) {
	m.HistorySize.Set(float64(count))
}

// RecordStorageError counts a failed write-through.
func (m *Metrics) RecordStorageError(key string) {
	m.StorageFails.WithLabelValues(key).Inc()
}

// RecordWSMessage records a WebSocket message
func (m *Metrics) RecordWSMessage(direction, msgType string) {
	m.WSMessages.WithLabelValues(direction, msgType).Inc()
}

// IncWSConnections increments WebSocket connections
func (m *Metrics) IncWSConnections() {
	m.WSConnections.Inc()
	m.mu.Lock()
	m.snapshot.Connections++
	m.mu.Unlock()
}

// DecWSConnections decrements WebSocket connections
func (m *Metrics) DecWSConnections() {
	m.WSConnections.Dec()
	m.mu.Lock()
	m.snapshot.Connections--
	m.mu.Unlock()
}

// Snapshot returns the current values for the JSON health endpoint.
func (m *Metrics) Snapshot() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s := m.snapshot
	if s.TotalRequests > 0 {
		s.AvgLatencyMs = s.totalDuration / float64(s.TotalRequests) * 1000
	}
	s.UptimeSeconds = time.Since(m.startTime).Seconds()
	return s
}
