package monitoring

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// PoolStats is the view of the sandbox pool the watcher polls.
type PoolStats interface {
	Stats() map[string]interface{}
}

// Metrics holds all Prometheus metrics
type Metrics struct {
	// HTTP metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	RequestSize     *prometheus.HistogramVec
	ResponseSize    *prometheus.HistogramVec

	// Snippet run metrics
	RunsTotal       *prometheus.CounterVec
	RunDuration     *prometheus.HistogramVec
	TranscriptLines prometheus.Histogram

	// Sandbox pool metrics
	PoolRuntimes  prometheus.Gauge
	PoolAvailable prometheus.Gauge
	PoolInUse     prometheus.Gauge

	// Service metrics
	ServiceCalls    *prometheus.CounterVec
	ServiceDuration *prometheus.HistogramVec
	ServiceErrors   *prometheus.CounterVec

	// Import metrics
	ImportsTotal     *prometheus.CounterVec
	ImportedSnippets prometheus.Counter

	// WebSocket metrics
	WSConnections prometheus.Gauge
	WSMessages    *prometheus.CounterVec

	// System metrics
	Uptime    prometheus.Gauge
	startTime time.Time

	// Snapshot for JSON API - track current values
	snapshot Snapshot

	mu sync.RWMutex
}

// Snapshot holds current metric values for the JSON stats API
type Snapshot struct {
	TotalRequests     int64   `json:"total_requests"`
	TotalErrors       int64   `json:"total_errors"`
	TotalRuns         int64   `json:"total_runs"`
	FailedRuns        int64   `json:"failed_runs"`
	ActiveConnections int64   `json:"active_connections"`
	TotalDuration     float64 `json:"-"`
	RequestCount      int64   `json:"-"`
}

// AvgRequestSeconds returns the mean request duration so far.
func (s Snapshot) AvgRequestSeconds() float64 {
	if s.RequestCount == 0 {
		return 0
	}
	return s.TotalDuration / float64(s.RequestCount)
}

// NewMetrics creates a new metrics collector
func NewMetrics() *Metrics {
	m := &Metrics{
		startTime: time.Now(),

		RequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "interprep_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		RequestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "interprep_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method", "path"},
		),
		RequestSize: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "interprep_http_request_size_bytes",
				Help:    "HTTP request size in bytes",
				Buckets: []float64{100, 1000, 10000, 100000, 1000000},
			},
			[]string{"method", "path"},
		),
		ResponseSize: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "interprep_http_response_size_bytes",
				Help:    "HTTP response size in bytes",
				Buckets: []float64{100, 1000, 10000, 100000, 1000000},
			},
			[]string{"method", "path"},
		),

		RunsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "interprep_runs_total",
				Help: "Total number of snippet runs",
			},
			[]string{"transport", "outcome"},
		),
		RunDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "interprep_run_duration_seconds",
				Help:    "Snippet execution duration in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2, 5},
			},
			[]string{"transport"},
		),
		TranscriptLines: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "interprep_transcript_lines",
				Help:    "Lines of console output per run",
				Buckets: []float64{1, 2, 5, 10, 25, 50, 100, 250},
			},
		),

		PoolRuntimes: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "interprep_pool_runtimes",
				Help: "Number of runtimes in the sandbox pool",
			},
		),
		PoolAvailable: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "interprep_pool_available",
				Help: "Idle runtimes in the sandbox pool",
			},
		),
		PoolInUse: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "interprep_pool_in_use",
				Help: "Runtimes currently executing snippets",
			},
		),

		ServiceCalls: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "interprep_service_calls_total",
				Help: "Total number of service tool calls",
			},
			[]string{"service", "tool", "status"},
		),
		ServiceDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "interprep_service_duration_seconds",
				Help:    "Service tool call duration in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
			},
			[]string{"service", "tool"},
		),
		ServiceErrors: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "interprep_service_errors_total",
				Help: "Total number of service tool errors",
			},
			[]string{"service", "tool", "error_type"},
		),

		ImportsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "interprep_imports_total",
				Help: "Total number of import attempts",
			},
			[]string{"status"},
		),
		ImportedSnippets: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "interprep_imported_snippets_total",
				Help: "Total number of snippets added by the importer",
			},
		),

		WSConnections: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "interprep_ws_connections",
				Help: "Number of active WebSocket connections",
			},
		),
		WSMessages: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "interprep_ws_messages_total",
				Help: "Total number of WebSocket messages",
			},
			[]string{"direction", "type"},
		),

		Uptime: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "interprep_uptime_seconds",
				Help: "Server uptime in seconds",
			},
		),
	}

	// Start uptime updater
	go m.updateUptime()

	return m
}

// updateUptime continuously updates the uptime metric
func (m *Metrics) updateUptime() {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for range ticker.C {
		m.Uptime.Set(time.Since(m.startTime).Seconds())
	}
}

// WatchPool polls the sandbox pool and mirrors its stats into gauges.
func (m *Metrics) WatchPool(pool PoolStats, interval time.Duration) {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for range ticker.C {
			stats := pool.Stats()
			if size, ok := stats["size"].(int); ok {
				m.PoolRuntimes.Set(float64(size))
			}
			if available, ok := stats["available"].(int); ok {
				m.PoolAvailable.Set(float64(available))
			}
			if inUse, ok := stats["in_use"].(int); ok {
				m.PoolInUse.Set(float64(inUse))
			}
		}
	}()
}

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(method, path, status string, duration time.Duration, reqSize, respSize int64) {
	m.RequestsTotal.WithLabelValues(method, path, status).Inc()
	m.RequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
	m.RequestSize.WithLabelValues(method, path).Observe(float64(reqSize))
	m.ResponseSize.WithLabelValues(method, path).Observe(float64(respSize))

	m.mu.Lock()
	m.snapshot.TotalRequests++
	m.snapshot.TotalDuration += duration.Seconds()
	m.snapshot.RequestCount++
	if len(status) > 0 && (status[0] == '4' || status[0] == '5') {
		m.snapshot.TotalErrors++
	}
	m.mu.Unlock()
}

// RecordRun records one snippet execution
func (m *Metrics) RecordRun(transport string, ok bool, duration time.Duration, lines int) {
	outcome := "ok"
	if !ok {
		outcome = "error"
	}
	m.RunsTotal.WithLabelValues(transport, outcome).Inc()
	m.RunDuration.WithLabelValues(transport).Observe(duration.Seconds())
	m.TranscriptLines.Observe(float64(lines))

	m.mu.Lock()
	m.snapshot.TotalRuns++
	if !ok {
		m.snapshot.FailedRuns++
	}
	m.mu.Unlock()
}

// RecordServiceCall records a service tool call
func (m *Metrics) RecordServiceCall(service, tool, status string, duration time.Duration) {
	m.ServiceCalls.WithLabelValues(service, tool, status).Inc()
	m.ServiceDuration.WithLabelValues(service, tool).Observe(duration.Seconds())
}

// RecordServiceError records a service tool error
func (m *Metrics) RecordServiceError(service, tool, errorType string) {
	m.ServiceErrors.WithLabelValues(service, tool, errorType).Inc()
}

// RecordImport records one import attempt and its yield
func (m *Metrics) RecordImport(status string, imported int) {
	m.ImportsTotal.WithLabelValues(status).Inc()
	if imported > 0 {
		m.ImportedSnippets.Add(float64(imported))
	}
}

// RecordWSMessage records a WebSocket message
func (m *Metrics) RecordWSMessage(direction, msgType string) {
	m.WSMessages.WithLabelValues(direction, msgType).Inc()
}

// IncWSConnections increments WebSocket connections
func (m *Metrics) IncWSConnections() {
	m.WSConnections.Inc()
	m.mu.Lock()
	m.snapshot.ActiveConnections++
	m.mu.Unlock()
}

// DecWSConnections decrements WebSocket connections
func (m *Metrics) DecWSConnections() {
	m.WSConnections.Dec()
	m.mu.Lock()
	m.snapshot.ActiveConnections--
	m.mu.Unlock()
}

// SnapshotView returns a copy of the running counters for the stats API.
func (m *Metrics) SnapshotView() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.snapshot
}

// UptimeSeconds reports how long this collector has been alive.
func (m *Metrics) UptimeSeconds() float64 {
	return time.Since(m.startTime).Seconds()
}
