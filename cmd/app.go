package cmd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/vzahanych/weather-widget/internal/config"
	"github.com/vzahanych/weather-widget/internal/gateway"
	"github.com/vzahanych/weather-widget/internal/recent"
	"github.com/vzahanych/weather-widget/internal/storage"
	"github.com/vzahanych/weather-widget/internal/widget"
	"github.com/vzahanych/weather-widget/pkg/telemetry"
	"go.uber.org/zap"
)

// app is the widget wired from config: store, gateway (optionally cached),
// recent searches and the controller on top.
type app struct {
	store   storage.Store
	cached  *gateway.Cached
	history *recent.Cache
	ctrl    *widget.Controller
	logger  *zap.Logger
}

func newApp(cfg *config.Config, logger *zap.Logger, tele *telemetry.Telemetry, renderer widget.Renderer) (*app, error) {
	store, err := storage.Open(cfg.Storage)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s storage: %w", cfg.Storage.Driver, err)
	}

	client := gateway.NewHTTPClient(gateway.HTTPClientOptions{
		Timeout:   time.Duration(cfg.Weather.Timeout) * time.Second,
		RateLimit: cfg.Weather.RateLimit,
		RateBurst: cfg.Weather.RateBurst,
	}, logger, tele)

	a := &app{store: store, logger: logger}

	var gw gateway.WeatherGateway = gateway.New(cfg.Weather, client, logger, tele)
	if cfg.Weather.CacheTTL > 0 {
		a.cached = gateway.NewCached(gw, time.Duration(cfg.Weather.CacheTTL)*time.Second, logger)
		gw = a.cached
	}

	a.history = recent.New(store, cfg.Widget.MaxRecentSearches, logger)
	a.ctrl = widget.NewController(gw, a.history, store, renderer, logger, tele)
	a.ctrl.SetIconBaseURL(cfg.Weather.IconBaseURL)

	return a, nil
}

// storageReady reports whether the store answers reads.
func (a *app) storageReady(ctx context.Context) error {
	_, err := a.store.Get(ctx, widget.LastCityKey)
	if err == nil || errors.Is(err, storage.ErrNotFound) {
		return nil
	}
	return err
}

func (a *app) Close() error {
	if a.cached != nil {
		a.logger.Debug("Weather cache stats", zap.Any("stats", a.cached.Stats()))
	}
	return a.store.Close()
}
