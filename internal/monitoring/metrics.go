package monitoring

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

// Metrics is a point-in-time snapshot of request counters.
type Metrics struct {
	RequestCount   int64            `json:"request_count"`
	ErrorCount     int64            `json:"error_count"`
	ActiveRequests int64            `json:"active_requests"`
	TotalLatencyMS int64            `json:"total_latency_ms"`
	StatusCodes    map[string]int64 `json:"status_codes"`
	Endpoints      map[string]int64 `json:"endpoints"`
	StartedAt      time.Time        `json:"started_at"`
}

type metricsState struct {
	mu sync.Mutex
	Metrics
}

var global = newMetricsState()

func newMetricsState() *metricsState {
	return &metricsState{
		Metrics: Metrics{
			StatusCodes: make(map[string]int64),
			Endpoints:   make(map[string]int64),
			StartedAt:   time.Now(),
		},
	}
}

func resetGlobalMetrics() {
	global.mu.Lock()
	defer global.mu.Unlock()
	global.Metrics = Metrics{
		StatusCodes: make(map[string]int64),
		Endpoints:   make(map[string]int64),
		StartedAt:   time.Now(),
	}
}

// MetricsMiddleware counts requests, errors, and latency per endpoint.
func MetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		global.mu.Lock()
		global.ActiveRequests++
		global.mu.Unlock()

		c.Next()

		status := c.Writer.Status()
		endpoint := c.Request.Method + " " + c.FullPath()
		latency := time.Since(start).Milliseconds()

		global.mu.Lock()
		global.ActiveRequests--
		global.RequestCount++
		global.TotalLatencyMS += latency
		global.StatusCodes[strconv.Itoa(status)]++
		global.Endpoints[endpoint]++
		if status >= http.StatusInternalServerError {
			global.ErrorCount++
		}
		global.mu.Unlock()
	}
}

// GetMetrics returns a copy of the current counters.
func GetMetrics() Metrics {
	global.mu.Lock()
	defer global.mu.Unlock()

	snapshot := global.Metrics
	snapshot.StatusCodes = make(map[string]int64, len(global.StatusCodes))
	for k, v := range global.StatusCodes {
		snapshot.StatusCodes[k] = v
	}
	snapshot.Endpoints = make(map[string]int64, len(global.Endpoints))
	for k, v := range global.Endpoints {
		snapshot.Endpoints[k] = v
	}
	return snapshot
}

// MetricsHandler serves the counters as JSON.
func MetricsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, GetMetrics())
	}
}
