package metrics

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"teleasistencia-backend/internal/types"
)

// Metrics holds all application metrics
type Metrics struct {
	mu sync.RWMutex

	// Ingestion metrics
	RowsProcessedTotal int64
	RowsSkippedTotal   int64
	RunsTotal          int64
	RunErrorsTotal     int64
	lastRunDuration    time.Duration

	// Storage metrics
	ReportsSavedTotal  int64
	StorageErrorsTotal int64

	// WebSocket metrics
	WebSocketConnectionsTotal    int64
	WebSocketDisconnectionsTotal int64
	WebSocketMessagesTotal       int64
	WebSocketErrorsTotal         int64
	activeConnections            int64

	// Follow-up distribution from the latest report
	beneficiariesByStatus map[types.FollowUpStatus]int
	totalBeneficiaries    int

	// HTTP metrics
	httpRequestsTotal    map[string]map[int]int64 // endpoint -> status -> count
	httpRequestDurations map[string][]float64     // endpoint -> durations

	// Timing
	startTime time.Time
}

// Global metrics instance
var instance *Metrics
var once sync.Once

// Get returns the singleton metrics instance
func Get() *Metrics {
	once.Do(func() {
		instance = &Metrics{
			beneficiariesByStatus: make(map[types.FollowUpStatus]int),
			httpRequestsTotal:     make(map[string]map[int]int64),
			httpRequestDurations:  make(map[string][]float64),
			startTime:             time.Now(),
		}
	})
	return instance
}

// RecordRun records a completed ingestion run
func (m *Metrics) RecordRun(duration time.Duration, processed, skipped int) {
	m.mu.Lock()
	m.RunsTotal++
	m.RowsProcessedTotal += int64(processed)
	m.RowsSkippedTotal += int64(skipped)
	m.lastRunDuration = duration
	m.mu.Unlock()
}

// RecordRunError increments the failed run counter
func (m *Metrics) RecordRunError() {
	m.mu.Lock()
	m.RunErrorsTotal++
	m.mu.Unlock()
}

// RecordReportSaved increments the persisted report counter
func (m *Metrics) RecordReportSaved() {
	m.mu.Lock()
	m.ReportsSavedTotal++
	m.mu.Unlock()
}

// RecordStorageError increments the storage error counter
func (m *Metrics) RecordStorageError() {
	m.mu.Lock()
	m.StorageErrorsTotal++
	m.mu.Unlock()
}

// RecordWebSocketConnect increments connection counters
func (m *Metrics) RecordWebSocketConnect() {
	m.mu.Lock()
	m.WebSocketConnectionsTotal++
	m.activeConnections++
	m.mu.Unlock()
}

// RecordWebSocketDisconnect increments disconnection counter
func (m *Metrics) RecordWebSocketDisconnect() {
	m.mu.Lock()
	m.WebSocketDisconnectionsTotal++
	m.activeConnections--
	m.mu.Unlock()
}

// RecordWebSocketMessage increments message counter
func (m *Metrics) RecordWebSocketMessage() {
	m.mu.Lock()
	m.WebSocketMessagesTotal++
	m.mu.Unlock()
}

// RecordWebSocketError increments WebSocket error counter
func (m *Metrics) RecordWebSocketError() {
	m.mu.Lock()
	m.WebSocketErrorsTotal++
	m.mu.Unlock()
}

// UpdateFollowUpStats replaces the follow-up status distribution with the
// latest report's partition
func (m *Metrics) UpdateFollowUpStats(statuses map[string]types.FollowUpStatus) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.beneficiariesByStatus = make(map[types.FollowUpStatus]int)
	m.totalBeneficiaries = len(statuses)

	for _, status := range statuses {
		m.beneficiariesByStatus[status]++
	}
}

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(endpoint string, statusCode int, duration time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.httpRequestsTotal[endpoint] == nil {
		m.httpRequestsTotal[endpoint] = make(map[int]int64)
	}
	m.httpRequestsTotal[endpoint][statusCode]++

	// Keep last 100 durations for percentile calculation
	if len(m.httpRequestDurations[endpoint]) >= 100 {
		m.httpRequestDurations[endpoint] = m.httpRequestDurations[endpoint][1:]
	}
	m.httpRequestDurations[endpoint] = append(m.httpRequestDurations[endpoint], duration.Seconds())
}

// GetActiveConnections returns current WebSocket connections
func (m *Metrics) GetActiveConnections() int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.activeConnections
}

// Handler returns an HTTP handler for the /metrics endpoint
func (m *Metrics) Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		m.mu.RLock()
		defer m.mu.RUnlock()

		w.Header().Set("Content-Type", "text/plain; charset=utf-8")

		// Helper to write metric
		write := func(name string, value interface{}, labels ...string) {
			labelStr := ""
			if len(labels) > 0 {
				labelStr = "{"
				for i := 0; i < len(labels); i += 2 {
					if i > 0 {
						labelStr += ","
					}
					labelStr += labels[i] + "=\"" + labels[i+1] + "\""
				}
				labelStr += "}"
			}

			switch v := value.(type) {
			case int:
				w.Write([]byte(name + labelStr + " " + strconv.Itoa(v) + "\n"))
			case int64:
				w.Write([]byte(name + labelStr + " " + strconv.FormatInt(v, 10) + "\n"))
			case float64:
				w.Write([]byte(name + labelStr + " " + strconv.FormatFloat(v, 'f', 6, 64) + "\n"))
			}
		}

		// System metrics
		write("teleasistencia_uptime_seconds", time.Since(m.startTime).Seconds())

		// Ingestion metrics
		write("teleasistencia_rows_processed_total", m.RowsProcessedTotal)
		write("teleasistencia_rows_skipped_total", m.RowsSkippedTotal)
		write("teleasistencia_runs_total", m.RunsTotal)
		write("teleasistencia_run_errors_total", m.RunErrorsTotal)
		write("teleasistencia_run_duration_seconds", m.lastRunDuration.Seconds())

		// Storage metrics
		write("teleasistencia_reports_saved_total", m.ReportsSavedTotal)
		write("teleasistencia_storage_errors_total", m.StorageErrorsTotal)

		// WebSocket metrics
		write("teleasistencia_websocket_connections_total", m.WebSocketConnectionsTotal)
		write("teleasistencia_websocket_disconnections_total", m.WebSocketDisconnectionsTotal)
		write("teleasistencia_websocket_active_connections", m.activeConnections)
		write("teleasistencia_websocket_messages_total", m.WebSocketMessagesTotal)
		write("teleasistencia_websocket_errors_total", m.WebSocketErrorsTotal)

		// Follow-up metrics
		write("teleasistencia_beneficiaries_total", m.totalBeneficiaries)
		for status, count := range m.beneficiariesByStatus {
			write("teleasistencia_beneficiaries_by_status", count, "status", string(status))
		}

		// HTTP metrics
		for endpoint, statusCodes := range m.httpRequestsTotal {
			for status, count := range statusCodes {
				write("teleasistencia_http_requests_total", count, "endpoint", endpoint, "status", strconv.Itoa(status))
			}
		}
	}
}
