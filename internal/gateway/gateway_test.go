package gateway

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vzahanych/weather-widget/internal/config"
	"go.uber.org/zap/zaptest"
)

// mockRoundTripper serves requests from an http.Handler without a listener.
type mockRoundTripper struct {
	handler http.Handler
}

func (m *mockRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	rec := httptest.NewRecorder()
	m.handler.ServeHTTP(rec, req)
	return rec.Result(), nil
}

func newTestGateway(t *testing.T, handler http.Handler) *Gateway {
	t.Helper()

	logger := zaptest.NewLogger(t)
	client := NewHTTPClient(HTTPClientOptions{Timeout: time.Second}, logger, nil).(*httpClient)
	client.client.Transport = &mockRoundTripper{handler: handler}

	cfg := config.WeatherConfig{
		BaseURL:      "https://api.example.test/data/2.5/",
		APIKey:       "secret",
		ForecastDays: 5,
	}
	return New(cfg, client, logger, nil)
}

func TestFetchCurrent_BuildsQuery(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/data/2.5/weather", r.URL.Path)
		assert.Equal(t, "New York", r.URL.Query().Get("q"))
		assert.Equal(t, "secret", r.URL.Query().Get("appid"))
		assert.Equal(t, "metric", r.URL.Query().Get("units"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"name":"New York","main":{"temp":21.49},"weather":[{"description":"few clouds","icon":"02d"}]}`))
	})

	current, err := newTestGateway(t, handler).FetchCurrent(context.Background(), "New York")
	require.NoError(t, err)
	assert.Equal(t, CurrentConditions{CityName: "New York", TemperatureCelsius: 21, Description: "few clouds", IconCode: "02d"}, current)
}

func TestFetchForecast_BuildsQuery(t *testing.T) {
	start := time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)
	body := forecastBody(t, start, 6)

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/data/2.5/forecast", r.URL.Path)
		assert.Equal(t, "Paris", r.URL.Query().Get("q"))
		assert.Equal(t, "metric", r.URL.Query().Get("units"))
		_, _ = w.Write(body)
	})

	days, err := newTestGateway(t, handler).FetchForecast(context.Background(), "Paris")
	require.NoError(t, err)
	assert.Len(t, days, 5)
}

func TestFetch_StatusErrors(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		notFound bool
	}{
		{"not found", http.StatusNotFound, true},
		{"unauthorized", http.StatusUnauthorized, false},
		{"server error", http.StatusInternalServerError, false},
		{"too many requests", http.StatusTooManyRequests, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(`{"cod":"error","message":"nope"}`))
			})
			gw := newTestGateway(t, handler)

			_, err := gw.FetchCurrent(context.Background(), "Atlantis")
			require.Error(t, err)

			var statusErr *StatusError
			require.True(t, errors.As(err, &statusErr))
			assert.Equal(t, tt.status, statusErr.StatusCode)
			assert.Equal(t, tt.notFound, IsNotFound(err))

			_, err = gw.FetchForecast(context.Background(), "Atlantis")
			assert.Equal(t, tt.notFound, IsNotFound(err))
		})
	}
}

func TestFetch_MalformedBody(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`not json`))
	})

	_, err := newTestGateway(t, handler).FetchCurrent(context.Background(), "London")
	assert.ErrorIs(t, err, ErrMalformedPayload)
	assert.False(t, IsNotFound(err))
}

func TestFetch_RealServer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"name":"Oslo","main":{"temp":-7.5},"weather":[{"description":"snow","icon":"13n"}]}`))
	}))
	defer srv.Close()

	logger := zaptest.NewLogger(t)
	client := NewHTTPClient(HTTPClientOptions{RateLimit: 100, RateBurst: 1}, logger, nil)
	gw := New(config.WeatherConfig{BaseURL: srv.URL, APIKey: "k"}, client, logger, nil)

	current, err := gw.FetchCurrent(context.Background(), "Oslo")
	require.NoError(t, err)
	assert.Equal(t, -8, current.TemperatureCelsius)
}

func TestFetch_TransportError(t *testing.T) {
	logger := zaptest.NewLogger(t)
	client := NewHTTPClient(HTTPClientOptions{Timeout: 200 * time.Millisecond}, logger, nil)
	gw := New(config.WeatherConfig{BaseURL: "http://127.0.0.1:1", APIKey: "k"}, client, logger, nil)

	_, err := gw.FetchCurrent(context.Background(), "Oslo")
	require.Error(t, err)
	assert.False(t, IsNotFound(err))
}

func TestHTTPClient_RateLimitHonorsContext(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	})
	client := NewHTTPClient(HTTPClientOptions{RateLimit: 0.001, RateBurst: 1}, zaptest.NewLogger(t), nil).(*httpClient)
	client.client.Transport = &mockRoundTripper{handler: handler}

	_, err := client.Fetch(context.Background(), "https://api.example.test/weather")
	require.NoError(t, err)

	// burst is spent; the next token is ~1000s away
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = client.Fetch(ctx, "https://api.example.test/weather")
	assert.Error(t, err)
}

func TestRedact(t *testing.T) {
	assert.Equal(t, "https://api.example.test/weather?appid=REDACTED&q=Rome&units=metric",
		redact("https://api.example.test/weather?q=Rome&appid=secret&units=metric"))
	assert.Equal(t, "https://api.example.test/weather", redact("https://api.example.test/weather"))
}
