package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vzahanych/weather-widget/internal/config"
	"github.com/vzahanych/weather-widget/internal/gateway"
	"github.com/vzahanych/weather-widget/internal/recent"
	"github.com/vzahanych/weather-widget/internal/server/handlers"
	"github.com/vzahanych/weather-widget/internal/server/middlewares"
	"github.com/vzahanych/weather-widget/internal/storage"
	"github.com/vzahanych/weather-widget/internal/widget"
	"go.uber.org/zap/zaptest"
)

type stubGateway struct {
	mu       sync.Mutex
	notFound map[string]bool
	release  chan struct{}
}

func (g *stubGateway) block(ctx context.Context) {
	g.mu.Lock()
	release := g.release
	g.mu.Unlock()
	if release != nil {
		select {
		case <-release:
		case <-ctx.Done():
		}
	}
}

func (g *stubGateway) FetchCurrent(ctx context.Context, city string) (gateway.CurrentConditions, error) {
	g.block(ctx)
	if g.notFound[strings.ToLower(city)] {
		return gateway.CurrentConditions{}, &gateway.StatusError{StatusCode: http.StatusNotFound, Endpoint: "/weather"}
	}
	return gateway.CurrentConditions{CityName: city, TemperatureCelsius: 16, Description: "few clouds", IconCode: "02d"}, nil
}

func (g *stubGateway) FetchForecast(ctx context.Context, city string) ([]gateway.ForecastDay, error) {
	g.block(ctx)
	if g.notFound[strings.ToLower(city)] {
		return nil, &gateway.StatusError{StatusCode: http.StatusNotFound, Endpoint: "/forecast"}
	}
	return []gateway.ForecastDay{{DayLabel: "Mon", TemperatureCelsius: 12, Description: "rain", IconCode: "10d"}}, nil
}

func newTestServer(t *testing.T, gw gateway.WeatherGateway, checks ...handlers.ReadinessCheck) (*Server, storage.Store) {
	t.Helper()
	logger := zaptest.NewLogger(t)
	store := storage.NewMemoryStore()
	history := recent.New(store, recent.DefaultMaxEntries, logger)
	ctrl := widget.NewController(gw, history, store, nil, logger, nil)

	srv := New(config.ServerConfig{Host: "127.0.0.1", Port: 0}, ctrl, logger, nil, checks...)
	ctrl.SetMetricsRecorder(srv.Metrics())
	return srv, store
}

func do(t *testing.T, srv *Server, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)
	return w
}

func decodeView(t *testing.T, w *httptest.ResponseRecorder) widget.View {
	t.Helper()
	var v widget.View
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v))
	return v
}

func TestSearch(t *testing.T) {
	srv, store := newTestServer(t, &stubGateway{notFound: map[string]bool{"atlantis": true}})

	tests := []struct {
		name      string
		body      string
		status    int
		kind      string
		message   string
		errorKind string
	}{
		{name: "success", body: `{"city":"London"}`, status: http.StatusOK, kind: widget.ViewWeather},
		{name: "not found", body: `{"city":"Atlantis"}`, status: http.StatusOK, kind: widget.ViewError, message: widget.MsgNotFound, errorKind: "not_found"},
		{name: "empty", body: `{"city":"  "}`, status: http.StatusOK, kind: widget.ViewError, message: widget.MsgEmptyCity, errorKind: "validation"},
		{name: "too short", body: `{"city":"a"}`, status: http.StatusOK, kind: widget.ViewError, message: widget.MsgCityTooShort, errorKind: "validation"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, srv, http.MethodPost, "/search", tt.body)
			require.Equal(t, tt.status, w.Code)

			v := decodeView(t, w)
			assert.Equal(t, tt.kind, v.Kind)
			assert.Equal(t, tt.message, v.Message)
			assert.Equal(t, tt.errorKind, v.ErrorKind)
			assert.Equal(t, []string{"London"}, v.Recent)
		})
	}

	last, err := store.Get(context.Background(), widget.LastCityKey)
	require.NoError(t, err)
	assert.Equal(t, "London", last)
}

func TestSearch_SuccessBody(t *testing.T) {
	srv, _ := newTestServer(t, &stubGateway{})

	w := do(t, srv, http.MethodPost, "/search", `{"city":"paris"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get(middlewares.RequestIDHeader))

	v := decodeView(t, w)
	assert.Equal(t, "paris", v.City)
	assert.Equal(t, "16°C", v.Temperature)
	assert.Equal(t, "https://openweathermap.org/img/wn/02d@2x.png", v.IconURL)
	require.Len(t, v.Forecast, 1)
	assert.Equal(t, "12°C", v.Forecast[0].Temperature)
	assert.Equal(t, []string{"Paris"}, v.Recent)
	assert.True(t, v.SubmitEnabled)
}

func TestSearch_BadBody(t *testing.T) {
	srv, _ := newTestServer(t, &stubGateway{})

	w := do(t, srv, http.MethodPost, "/search", `{"city":`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "INVALID_BODY")

	w = do(t, srv, http.MethodPost, "/search", `{"city":"Lon\u0000don"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "INVALID_PARAMS")

	w = do(t, srv, http.MethodPost, "/search", `{"city":"`+strings.Repeat("x", 101)+`"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSearch_ConflictWhileLoading(t *testing.T) {
	gw := &stubGateway{release: make(chan struct{})}
	srv, _ := newTestServer(t, gw)

	done := make(chan int, 1)
	go func() {
		done <- do(t, srv, http.MethodPost, "/search", `{"city":"Berlin"}`).Code
	}()

	require.Eventually(t, func() bool {
		return decodeView(t, do(t, srv, http.MethodGet, "/view", "")).Kind == widget.ViewLoading
	}, testTimeout, testTick)

	w := do(t, srv, http.MethodPost, "/search", `{"city":"Paris"}`)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), "SEARCH_IN_PROGRESS")

	close(gw.release)
	assert.Equal(t, http.StatusOK, <-done)

	v := decodeView(t, do(t, srv, http.MethodGet, "/view", ""))
	assert.Equal(t, widget.ViewWeather, v.Kind)
	assert.Equal(t, "Berlin", v.City)
}

func TestView_Welcome(t *testing.T) {
	srv, _ := newTestServer(t, &stubGateway{})

	w := do(t, srv, http.MethodGet, "/view", "")
	require.Equal(t, http.StatusOK, w.Code)

	v := decodeView(t, w)
	assert.Equal(t, widget.ViewWelcome, v.Kind)
	assert.Equal(t, []string{}, v.Recent)
}

func TestRecent(t *testing.T) {
	srv, _ := newTestServer(t, &stubGateway{})

	for _, city := range []string{"Oslo", "Rome", "oslo"} {
		require.Equal(t, http.StatusOK, do(t, srv, http.MethodPost, "/search", `{"city":"`+city+`"}`).Code)
	}

	var resp handlers.RecentResponse
	w := do(t, srv, http.MethodGet, "/recent", "")
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, []string{"Oslo", "Rome"}, resp.Recent)
	assert.Equal(t, recent.DefaultMaxEntries, resp.MaxEntries)

	w = do(t, srv, http.MethodPost, "/recent/1", "")
	require.Equal(t, http.StatusOK, w.Code)
	v := decodeView(t, w)
	assert.Equal(t, "Rome", v.City)
	assert.Equal(t, []string{"Rome", "Oslo"}, v.Recent)

	assert.Equal(t, http.StatusNotFound, do(t, srv, http.MethodPost, "/recent/9", "").Code)
	assert.Equal(t, http.StatusBadRequest, do(t, srv, http.MethodPost, "/recent/-1", "").Code)
	assert.Equal(t, http.StatusBadRequest, do(t, srv, http.MethodPost, "/recent/first", "").Code)
}

func TestClearRecent(t *testing.T) {
	srv, store := newTestServer(t, &stubGateway{})
	require.Equal(t, http.StatusOK, do(t, srv, http.MethodPost, "/search", `{"city":"Lima"}`).Code)

	w := do(t, srv, http.MethodDelete, "/recent", "")
	assert.Equal(t, http.StatusPreconditionFailed, w.Code)
	assert.Contains(t, w.Body.String(), "CONFIRMATION_REQUIRED")

	_, err := store.Get(context.Background(), recent.StorageKey)
	require.NoError(t, err, "history survives an unconfirmed clear")

	w = do(t, srv, http.MethodDelete, "/recent?confirm=true", "")
	require.Equal(t, http.StatusOK, w.Code)

	var resp handlers.ClearResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Cleared)
	assert.Empty(t, resp.Recent)

	_, err = store.Get(context.Background(), recent.StorageKey)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	v := decodeView(t, do(t, srv, http.MethodGet, "/view", ""))
	assert.Equal(t, widget.ViewWeather, v.Kind)
	assert.Empty(t, v.Recent)
}

func TestHealth(t *testing.T) {
	healthy := handlers.ReadinessCheck{Name: "storage", Check: func(context.Context) error { return nil }}
	srv, _ := newTestServer(t, &stubGateway{}, healthy)

	for _, path := range []string{"/health", "/health/live", "/health/ready"} {
		assert.Equal(t, http.StatusOK, do(t, srv, http.MethodGet, path, "").Code, path)
	}

	broken := handlers.ReadinessCheck{Name: "storage", Check: func(context.Context) error { return errors.New("disk gone") }}
	srv, _ = newTestServer(t, &stubGateway{}, broken)

	w := do(t, srv, http.MethodGet, "/health/ready", "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	var resp handlers.HealthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "unavailable", resp.Status)
	assert.Equal(t, "disk gone", resp.Checks["storage"])
}

func TestMetrics(t *testing.T) {
	srv, _ := newTestServer(t, &stubGateway{})

	do(t, srv, http.MethodPost, "/search", `{"city":"Quito"}`)
	do(t, srv, http.MethodPost, "/search", `{"city":""}`)
	srv.Metrics().RecordCacheHit(context.Background(), "current")

	w := do(t, srv, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/plain")

	body := w.Body.String()
	assert.Contains(t, body, `widget_searches_total{outcome="success"} 1`)
	assert.Contains(t, body, `widget_searches_total{outcome="validation"} 1`)
	assert.Contains(t, body, `weather_cache_hits_total{cache="current"} 1`)
	assert.Contains(t, body, `http_requests_total{route_status="POST /search_200"} 2`)
}

const (
	testTimeout = 2 * time.Second
	testTick    = 10 * time.Millisecond
)
