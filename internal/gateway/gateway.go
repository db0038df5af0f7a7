// Package gateway talks to the OpenWeatherMap current-weather and forecast
// endpoints and normalizes their payloads for the widget.
package gateway

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/vzahanych/weather-widget/internal/config"
	"github.com/vzahanych/weather-widget/pkg/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

const (
	currentPath  = "weather"
	forecastPath = "forecast"
	units        = "metric"
)

// WeatherGateway is what the search controller needs from the weather API.
type WeatherGateway interface {
	FetchCurrent(ctx context.Context, city string) (CurrentConditions, error)
	FetchForecast(ctx context.Context, city string) ([]ForecastDay, error)
}

type Gateway struct {
	baseURL      string
	apiKey       string
	forecastDays int
	client       HTTPClient
	logger       *zap.Logger
	tele         *telemetry.Telemetry
}

var _ WeatherGateway = (*Gateway)(nil)

func New(cfg config.WeatherConfig, client HTTPClient, logger *zap.Logger, tele *telemetry.Telemetry) *Gateway {
	if logger == nil {
		logger = zap.NewNop()
	}
	forecastDays := cfg.ForecastDays
	if forecastDays < 1 {
		forecastDays = 5
	}

	if cfg.APIKey == "" {
		logger.Warn("Weather API key is not configured, requests will be rejected upstream")
	}

	return &Gateway{
		baseURL:      strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:       cfg.APIKey,
		forecastDays: forecastDays,
		client:       client,
		logger:       logger.With(zap.String("component", "gateway")),
		tele:         tele,
	}
}

func (g *Gateway) FetchCurrent(ctx context.Context, city string) (CurrentConditions, error) {
	tracer := g.tele.GetTracer()
	ctx, span := tracer.Start(ctx, "gateway.FetchCurrent")
	defer span.End()

	span.SetAttributes(attribute.String("city", city))

	body, err := g.client.Fetch(ctx, g.buildURL(currentPath, city))
	if err != nil {
		g.logger.Debug("Current weather request failed", zap.String("city", city), zap.Error(err))
		return CurrentConditions{}, fmt.Errorf("fetch current weather for %q: %w", city, err)
	}

	current, err := NormalizeCurrent(body)
	if err != nil {
		g.tele.RecordError(ctx, err)
		return CurrentConditions{}, err
	}

	span.SetAttributes(attribute.Int("temperature_celsius", current.TemperatureCelsius))
	return current, nil
}

func (g *Gateway) FetchForecast(ctx context.Context, city string) ([]ForecastDay, error) {
	tracer := g.tele.GetTracer()
	ctx, span := tracer.Start(ctx, "gateway.FetchForecast")
	defer span.End()

	span.SetAttributes(attribute.String("city", city))

	body, err := g.client.Fetch(ctx, g.buildURL(forecastPath, city))
	if err != nil {
		g.logger.Debug("Forecast request failed", zap.String("city", city), zap.Error(err))
		return nil, fmt.Errorf("fetch forecast for %q: %w", city, err)
	}

	days, err := NormalizeForecast(body, g.forecastDays)
	if err != nil {
		g.tele.RecordError(ctx, err)
		return nil, err
	}

	span.SetAttributes(attribute.Int("days", len(days)))
	return days, nil
}

func (g *Gateway) buildURL(path, city string) string {
	params := url.Values{}
	params.Set("q", city)
	params.Set("appid", g.apiKey)
	params.Set("units", units)
	return g.baseURL + "/" + path + "?" + params.Encode()
}
