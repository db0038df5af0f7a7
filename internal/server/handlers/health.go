package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/vzahanych/weather-widget/internal/server/utils"
	"go.uber.org/zap"
)

// ReadinessCheck is one dependency probed by the readiness endpoint.
type ReadinessCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

type HealthHandler struct {
	logger    *zap.Logger
	startTime time.Time
	checks    []ReadinessCheck
}

func NewHealthHandler(logger *zap.Logger, checks ...ReadinessCheck) *HealthHandler {
	return &HealthHandler{
		logger:    logger,
		startTime: time.Now(),
		checks:    checks,
	}
}

func (h *HealthHandler) Liveness(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{
		Status: "alive",
		Uptime: time.Since(h.startTime).String(),
	})
}

func (h *HealthHandler) Readiness(c *gin.Context) {
	ctx := utils.GetContextFromGinContext(c)

	status := http.StatusOK
	resp := HealthResponse{
		Status: "ready",
		Uptime: time.Since(h.startTime).String(),
	}

	if len(h.checks) > 0 {
		resp.Checks = make(map[string]string, len(h.checks))
	}
	for _, check := range h.checks {
		if err := check.Check(ctx); err != nil {
			h.logger.Warn("Readiness check failed", zap.String("check", check.Name), zap.Error(err))
			resp.Checks[check.Name] = err.Error()
			resp.Status = "unavailable"
			status = http.StatusServiceUnavailable
			continue
		}
		resp.Checks[check.Name] = "ok"
	}

	c.JSON(status, resp)
}

func (h *HealthHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{
		Status:    "ok",
		Uptime:    time.Since(h.startTime).String(),
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}
