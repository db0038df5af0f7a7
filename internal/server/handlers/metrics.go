package handlers

import (
	"context"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/vzahanych/weather-widget/internal/gateway"
	"github.com/vzahanych/weather-widget/internal/server/middlewares"
	"github.com/vzahanych/weather-widget/internal/widget"
	"go.uber.org/zap"
)

// HTTPStatsProvider is the request-level half of the metrics, kept by the
// metrics middleware.
type HTTPStatsProvider interface {
	HTTPStats() middlewares.HTTPStats
}

// AppMetrics holds application-level counters: the weather cache and search
// outcomes.
type AppMetrics struct {
	mutex       sync.RWMutex
	cacheHits   map[string]int64
	cacheMisses map[string]int64
	searches    map[string]int64
}

type MetricsHandler struct {
	logger     *zap.Logger
	httpStats  HTTPStatsProvider
	appMetrics *AppMetrics
}

var (
	_ gateway.MetricsRecorder = (*MetricsHandler)(nil)
	_ widget.MetricsRecorder  = (*MetricsHandler)(nil)
)

func NewMetricsHandler(logger *zap.Logger, httpStats HTTPStatsProvider) *MetricsHandler {
	return &MetricsHandler{
		logger:    logger,
		httpStats: httpStats,
		appMetrics: &AppMetrics{
			cacheHits:   make(map[string]int64),
			cacheMisses: make(map[string]int64),
			searches:    make(map[string]int64),
		},
	}
}

func (h *MetricsHandler) RecordCacheHit(ctx context.Context, cacheType string) {
	h.appMetrics.mutex.Lock()
	h.appMetrics.cacheHits[cacheType]++
	h.appMetrics.mutex.Unlock()
}

func (h *MetricsHandler) RecordCacheMiss(ctx context.Context, cacheType string) {
	h.appMetrics.mutex.Lock()
	h.appMetrics.cacheMisses[cacheType]++
	h.appMetrics.mutex.Unlock()
}

func (h *MetricsHandler) RecordSearch(ctx context.Context, outcome string) {
	h.appMetrics.mutex.Lock()
	h.appMetrics.searches[outcome]++
	h.appMetrics.mutex.Unlock()
}

// ServeMetrics exposes HTTP and application counters in the Prometheus text
// format.
func (h *MetricsHandler) ServeMetrics(c *gin.Context) {
	var b strings.Builder

	if h.httpStats != nil {
		stats := h.httpStats.HTTPStats()

		b.WriteString("# HELP http_requests_total Total number of HTTP requests\n")
		b.WriteString("# TYPE http_requests_total counter\n")
		writeLabeled(&b, "http_requests_total", "route_status", stats.RequestsTotal)

		b.WriteString("\n# HELP http_request_duration_seconds_avg Average duration of HTTP requests\n")
		b.WriteString("# TYPE http_request_duration_seconds_avg gauge\n")
		b.WriteString("http_request_duration_seconds_avg " + strconv.FormatFloat(stats.AvgDuration, 'f', 6, 64) + "\n")

		b.WriteString("\n# HELP http_active_requests Number of active HTTP requests\n")
		b.WriteString("# TYPE http_active_requests gauge\n")
		b.WriteString("http_active_requests " + strconv.FormatInt(stats.ActiveRequests, 10) + "\n\n")
	}

	h.appMetrics.mutex.RLock()
	defer h.appMetrics.mutex.RUnlock()

	b.WriteString("# HELP weather_cache_hits_total Total weather cache hits\n")
	b.WriteString("# TYPE weather_cache_hits_total counter\n")
	writeLabeled(&b, "weather_cache_hits_total", "cache", h.appMetrics.cacheHits)

	b.WriteString("\n# HELP weather_cache_misses_total Total weather cache misses\n")
	b.WriteString("# TYPE weather_cache_misses_total counter\n")
	writeLabeled(&b, "weather_cache_misses_total", "cache", h.appMetrics.cacheMisses)

	b.WriteString("\n# HELP widget_searches_total Submitted searches by outcome\n")
	b.WriteString("# TYPE widget_searches_total counter\n")
	writeLabeled(&b, "widget_searches_total", "outcome", h.appMetrics.searches)

	c.Header("Content-Type", "text/plain; version=0.0.4; charset=utf-8")
	c.String(200, b.String())
}

func writeLabeled(b *strings.Builder, name, label string, values map[string]int64) {
	keys := make([]string, 0, len(values))
	for key := range values {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		b.WriteString(name + "{" + label + "=\"" + key + "\"} " + strconv.FormatInt(values[key], 10) + "\n")
	}
}
