package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/vzahanych/weather-widget/internal/config"
	"github.com/vzahanych/weather-widget/internal/server/handlers"
	"github.com/vzahanych/weather-widget/internal/server/middlewares"
	"github.com/vzahanych/weather-widget/internal/widget"
	"github.com/vzahanych/weather-widget/pkg/telemetry"
	"go.uber.org/zap"
)

type Server struct {
	cfg     config.ServerConfig
	engine  *gin.Engine
	server  *http.Server
	ctrl    *widget.Controller
	metrics *handlers.MetricsHandler
	checks  []handlers.ReadinessCheck
	logger  *zap.Logger
	tele    *telemetry.Telemetry
}

// New builds the HTTP front of the widget. The returned server's metrics
// handler should be registered with the gateway cache and the controller so
// /metrics reports them.
func New(cfg config.ServerConfig, ctrl *widget.Controller, logger *zap.Logger, tele *telemetry.Telemetry, checks ...handlers.ReadinessCheck) *Server {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()

	httpMetrics := middlewares.NewMetricsMiddleware(logger, tele)

	engine.Use(middlewares.RequestIDMiddleware())
	engine.Use(middlewares.LoggingMiddleware(logger, time.RFC3339, true))
	engine.Use(middlewares.RecoveryMiddleware(logger, true))
	engine.Use(middlewares.TelemetryMiddleware(logger, tele))
	engine.Use(httpMetrics.Handler())

	s := &Server{
		cfg:     cfg,
		engine:  engine,
		ctrl:    ctrl,
		metrics: handlers.NewMetricsHandler(logger, httpMetrics),
		checks:  checks,
		logger:  logger,
		tele:    tele,
	}

	s.setupRoutes()

	return s
}

func (s *Server) setupRoutes() {
	weather := handlers.NewWeatherHandler(s.ctrl, s.logger)

	// Widget endpoints
	s.engine.POST("/search", weather.Search)
	s.engine.GET("/view", weather.GetView)
	s.engine.GET("/recent", weather.GetRecent)
	s.engine.POST("/recent/:index", weather.SelectRecent)
	s.engine.DELETE("/recent", weather.ClearRecent)

	// Health endpoints (Kubernetes friendly)
	health := handlers.NewHealthHandler(s.logger, s.checks...)
	s.engine.GET("/health", health.Health)
	s.engine.GET("/health/live", health.Liveness)
	s.engine.GET("/health/ready", health.Readiness)

	// Monitoring endpoints
	s.engine.GET("/metrics", s.metrics.ServeMetrics)
}

// Metrics is the recorder behind /metrics.
func (s *Server) Metrics() *handlers.MetricsHandler {
	return s.metrics
}

func (s *Server) Handler() http.Handler {
	return s.engine
}

// Start serves until Shutdown; a clean shutdown returns nil.
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port),
		Handler:      s.engine,
		ReadTimeout:  time.Duration(s.cfg.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(s.cfg.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(s.cfg.IdleTimeout) * time.Second,
	}

	s.logger.Info("Starting server", zap.String("addr", s.server.Addr))
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}

	return s.server.Shutdown(ctx)
}
