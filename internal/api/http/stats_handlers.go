package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/rkshawon/interprep/internal/domain/catalog"
	"github.com/rkshawon/interprep/internal/domain/history"
)

// StatsSnapshot is the /stats view over every subsystem
type StatsSnapshot struct {
	Timestamp time.Time              `json:"timestamp"`
	Summary   StatsSummary           `json:"summary"`
	Pool      map[string]interface{} `json:"pool"`
	Services  map[string]interface{} `json:"services"`
	Catalog   catalog.Stats          `json:"catalog"`
	History   *history.Stats         `json:"history,omitempty"`
}

// StatsSummary provides high-level metrics
type StatsSummary struct {
	TotalRequests     int64   `json:"total_requests"`
	TotalErrors       int64   `json:"total_errors"`
	ErrorRate         float64 `json:"error_rate"`
	AverageLatencyMs  float64 `json:"average_latency_ms"`
	TotalRuns         int64   `json:"total_runs"`
	FailedRuns        int64   `json:"failed_runs"`
	ActiveConnections int64   `json:"active_connections"`
	UptimeSeconds     float64 `json:"uptime_seconds"`
}

// GetStats returns aggregated metrics from all subsystems
func (h *Handlers) GetStats(c *gin.Context) {
	snapshot := StatsSnapshot{
		Timestamp: time.Now(),
		Summary:   h.summarize(),
		Pool:      h.pool.Stats(),
		Services:  h.registry.Stats(),
		Catalog:   h.catalog.Stats(),
	}

	// History aggregates are best-effort; a failed query leaves the
	// field out rather than failing the whole snapshot.
	if h.history != nil {
		if stats, err := h.history.Stats(c.Request.Context()); err == nil {
			snapshot.History = stats
		}
	}

	c.JSON(http.StatusOK, snapshot)
}

// summarize computes high-level summary metrics
func (h *Handlers) summarize() StatsSummary {
	view := h.metrics.SnapshotView()

	var errorRate float64
	if view.TotalRequests > 0 {
		errorRate = float64(view.TotalErrors) / float64(view.TotalRequests)
	}

	return StatsSummary{
		TotalRequests:     view.TotalRequests,
		TotalErrors:       view.TotalErrors,
		ErrorRate:         errorRate,
		AverageLatencyMs:  view.AvgRequestSeconds() * 1000,
		TotalRuns:         view.TotalRuns,
		FailedRuns:        view.FailedRuns,
		ActiveConnections: view.ActiveConnections,
		UptimeSeconds:     h.metrics.UptimeSeconds(),
	}
}

// GetDashboard returns an HTML metrics dashboard
func (h *Handlers) GetDashboard(c *gin.Context) {
	html := `<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>interprep metrics</title>
    <style>
        * { margin: 0; padding: 0; box-sizing: border-box; }
        body {
            font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', sans-serif;
            background: #0a0a0a;
            color: #e0e0e0;
            padding: 20px;
        }
        .container { max-width: 1200px; margin: 0 auto; }
        h1 { font-size: 2rem; margin-bottom: 10px; color: #667eea; }
        .subtitle { color: #888; margin-bottom: 30px; }
        .grid {
            display: grid;
            grid-template-columns: repeat(auto-fit, minmax(280px, 1fr));
            gap: 20px;
            margin-bottom: 20px;
        }
        .card {
            background: #1a1a1a;
            border-radius: 12px;
            padding: 20px;
            border: 1px solid #333;
        }
        .card h2 { font-size: 1.1rem; margin-bottom: 15px; color: #667eea; }
        .metric {
            display: flex;
            justify-content: space-between;
            padding: 8px 0;
            border-bottom: 1px solid #2a2a2a;
        }
        .metric:last-child { border-bottom: none; }
        .metric-label { color: #999; }
        .metric-value { font-weight: 600; color: #fff; font-family: monospace; }
        .metric-value.bad { color: #f87171; }
        .endpoint-link {
            display: inline-block;
            margin: 0 10px 20px 0;
            padding: 8px 16px;
            background: #2a2a2a;
            color: #667eea;
            text-decoration: none;
            border-radius: 6px;
            font-size: 0.9rem;
            border: 1px solid #333;
        }
        .timestamp { color: #666; text-align: center; margin-top: 20px; font-size: 0.9rem; }
    </style>
</head>
<body>
    <div class="container">
        <h1>interprep metrics</h1>
        <p class="subtitle">Snippet evaluation service</p>

        <div>
            <a href="/metrics" class="endpoint-link">Prometheus</a>
            <a href="/stats" class="endpoint-link">JSON</a>
            <a href="/health" class="endpoint-link">Health</a>
        </div>

        <div id="metrics-container">
            <p style="text-align: center; color: #666;">Loading...</p>
        </div>

        <p class="timestamp" id="timestamp"></p>
    </div>

    <script>
        function formatValue(value) {
            if (typeof value === 'number') {
                if (!Number.isInteger(value)) return value.toFixed(2);
                return value.toString();
            }
            return value;
        }

        function card(title, fields) {
            let html = '<div class="card"><h2>' + title + '</h2>';
            for (const [key, value] of Object.entries(fields)) {
                if (value === null || typeof value === 'object') continue;
                const label = key.replace(/_/g, ' ');
                const cls = (key.includes('error') || key.includes('failed')) && value > 0 ? ' bad' : '';
                html += '<div class="metric"><span class="metric-label">' + label +
                    '</span><span class="metric-value' + cls + '">' + formatValue(value) + '</span></div>';
            }
            return html + '</div>';
        }

        function renderStats(data) {
            let html = '<div class="grid">';
            html += card('Summary', data.summary || {});
            html += card('Runtime Pool', data.pool || {});
            html += card('Catalog', data.catalog || {});
            if (data.history) {
                html += card('History', data.history);
            }
            html += '</div>';
            document.getElementById('metrics-container').innerHTML = html;
            document.getElementById('timestamp').textContent =
                'Last updated: ' + new Date(data.timestamp).toLocaleString();
        }

        function loadStats() {
            fetch('/stats')
                .then(response => response.json())
                .then(data => renderStats(data))
                .catch(() => {
                    document.getElementById('metrics-container').innerHTML =
                        '<p style="text-align: center; color: #f87171;">Error loading stats</p>';
                });
        }

        loadStats();
        setInterval(loadStats, 5000);
    </script>
</body>
</html>`

	c.Header("Content-Type", "text/html; charset=utf-8")
	c.String(http.StatusOK, html)
}
