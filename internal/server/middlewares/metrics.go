package middlewares

import (
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/vzahanych/weather-widget/pkg/telemetry"
	"go.uber.org/zap"
)

// maxDurations bounds the sliding window used for the average latency.
const maxDurations = 1000

// HTTPStats is a point-in-time copy of the request counters.
type HTTPStats struct {
	RequestsTotal  map[string]int64
	AvgDuration    float64
	ActiveRequests int64
}

type MetricsMiddleware struct {
	logger *zap.Logger
	tele   *telemetry.Telemetry

	mutex            sync.RWMutex
	requestsTotal    map[string]int64
	requestDurations []float64
	activeRequests   int64
}

func NewMetricsMiddleware(logger *zap.Logger, tele *telemetry.Telemetry) *MetricsMiddleware {
	return &MetricsMiddleware{
		logger:           logger,
		tele:             tele,
		requestsTotal:    make(map[string]int64),
		requestDurations: make([]float64, 0),
	}
}

func (m *MetricsMiddleware) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		m.mutex.Lock()
		m.activeRequests++
		m.mutex.Unlock()

		c.Next()

		duration := time.Since(start).Seconds()

		statusCode := strconv.Itoa(c.Writer.Status())
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		method := c.Request.Method
		key := method + " " + route + "_" + statusCode

		m.mutex.Lock()
		m.requestsTotal[key]++
		m.requestDurations = append(m.requestDurations, duration)
		m.activeRequests--

		if len(m.requestDurations) > maxDurations {
			m.requestDurations = m.requestDurations[len(m.requestDurations)-maxDurations:]
		}
		m.mutex.Unlock()

		if m.tele.IsEnabled() {
			m.logger.Debug("HTTP metrics recorded",
				zap.String("method", method),
				zap.String("route", route),
				zap.Int("status", c.Writer.Status()),
				zap.Float64("duration", duration))
		}
	}
}

// HTTPStats returns a copy of the counters for the metrics endpoint.
func (m *MetricsMiddleware) HTTPStats() HTTPStats {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	stats := HTTPStats{
		RequestsTotal:  make(map[string]int64, len(m.requestsTotal)),
		ActiveRequests: m.activeRequests,
	}
	for k, v := range m.requestsTotal {
		stats.RequestsTotal[k] = v
	}
	if len(m.requestDurations) > 0 {
		sum := 0.0
		for _, d := range m.requestDurations {
			sum += d
		}
		stats.AvgDuration = sum / float64(len(m.requestDurations))
	}
	return stats
}
