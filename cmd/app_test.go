package cmd

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vzahanych/weather-widget/internal/config"
	"github.com/vzahanych/weather-widget/internal/storage"
	"github.com/vzahanych/weather-widget/internal/widget"
	"go.uber.org/zap/zaptest"
)

const (
	currentJSON  = `{"name":"London","main":{"temp":15.7},"weather":[{"description":"broken clouds","icon":"04d"}]}`
	forecastJSON = `{"list":[
		{"dt":1709542800,"dt_txt":"2024-03-04 09:00:00","main":{"temp":9.1},"weather":[{"description":"mist","icon":"50d"}]},
		{"dt":1709553600,"dt_txt":"2024-03-04 12:00:00","main":{"temp":11.5},"weather":[{"description":"light rain","icon":"10d"}]},
		{"dt":1709640000,"dt_txt":"2024-03-05 12:00:00","main":{"temp":-0.4},"weather":[{"description":"snow","icon":"13d"}]}
	]}`
)

// fakeOWM serves /weather and /forecast; q=Atlantis is unknown.
func fakeOWM(t *testing.T, calls *atomic.Int32) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		assert.Equal(t, "metric", r.URL.Query().Get("units"))
		assert.Equal(t, "test-key", r.URL.Query().Get("appid"))

		if strings.EqualFold(r.URL.Query().Get("q"), "atlantis") {
			http.Error(w, `{"cod":"404","message":"city not found"}`, http.StatusNotFound)
			return
		}
		switch r.URL.Path {
		case "/weather":
			w.Write([]byte(currentJSON))
		case "/forecast":
			w.Write([]byte(forecastJSON))
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func testConfig(t *testing.T, baseURL string) *config.Config {
	t.Helper()
	cfg := config.NewDefaultConfig()
	cfg.Weather.BaseURL = baseURL
	cfg.Weather.APIKey = "test-key"
	cfg.Weather.RateLimit = 0
	cfg.Storage.Driver = "sqlite"
	cfg.Storage.Path = filepath.Join(t.TempDir(), "weather.db")
	return cfg
}

func TestNewApp_SearchAndRestart(t *testing.T) {
	var calls atomic.Int32
	owm := fakeOWM(t, &calls)
	cfg := testConfig(t, owm.URL)
	ctx := context.Background()

	a, err := newApp(cfg, zaptest.NewLogger(t), nil, nil)
	require.NoError(t, err)

	state, err := a.ctrl.Submit(ctx, "london")
	require.NoError(t, err)
	require.Equal(t, widget.PhaseSuccess, state.Phase)

	v := a.ctrl.Describe(state)
	assert.Equal(t, "London", v.City)
	assert.Equal(t, "16°C", v.Temperature)
	require.Len(t, v.Forecast, 2)
	assert.Equal(t, "Mon", v.Forecast[0].Day)
	assert.Equal(t, "12°C", v.Forecast[0].Temperature)
	assert.Equal(t, "Tue", v.Forecast[1].Day)
	assert.Equal(t, "0°C", v.Forecast[1].Temperature)

	// cached: a second search within the TTL stays local
	before := calls.Load()
	_, err = a.ctrl.Submit(ctx, "London")
	require.NoError(t, err)
	assert.Equal(t, before, calls.Load())

	state, err = a.ctrl.Submit(ctx, "Atlantis")
	require.NoError(t, err)
	assert.Equal(t, widget.KindNotFound, state.Err.Kind)

	require.NoError(t, a.Close())

	// a fresh process resumes from the sqlite file
	b, err := newApp(cfg, zaptest.NewLogger(t), nil, nil)
	require.NoError(t, err)
	defer b.Close()

	state, err = b.ctrl.Start(ctx)
	require.NoError(t, err)
	assert.Equal(t, widget.PhaseSuccess, state.Phase)
	assert.Equal(t, []string{"London"}, state.Recent)
	assert.NoError(t, b.storageReady(ctx))
}

func TestNewApp_UnknownDriver(t *testing.T) {
	cfg := testConfig(t, "http://127.0.0.1:0")
	cfg.Storage.Driver = "etcd"

	_, err := newApp(cfg, zaptest.NewLogger(t), nil, nil)
	assert.Error(t, err)
}

func runCLI(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := rootCmd()
	root.SetArgs(args)
	root.SetIn(strings.NewReader(stdin))
	root.SetOut(&out)
	root.SetErr(&out)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestCLI(t *testing.T) {
	var calls atomic.Int32
	owm := fakeOWM(t, &calls)
	dir := t.TempDir()

	t.Setenv("WEATHER_WEATHER_BASE_URL", owm.URL)
	t.Setenv("WEATHER_WEATHER_API_KEY", "test-key")
	t.Setenv("WEATHER_STORAGE_DRIVER", "file")
	t.Setenv("WEATHER_STORAGE_PATH", filepath.Join(dir, "state.json"))
	t.Setenv("WEATHER_LOGGING_OUTPUT_PATH", filepath.Join(dir, "weather.log"))

	out, err := runCLI(t, "", "search", "New", "York")
	require.NoError(t, err)
	assert.Contains(t, out, "London  16°C  broken clouds")

	out, err = runCLI(t, "", "search", "Atlantis")
	assert.ErrorIs(t, err, errReported)
	assert.Contains(t, out, "Error: "+widget.MsgNotFound)

	out, err = runCLI(t, "", "history")
	require.NoError(t, err)
	assert.Equal(t, "1. New York\n", out)

	out, err = runCLI(t, "n\n", "history", "clear")
	require.NoError(t, err)
	assert.Contains(t, out, "Clear search history? [y/N] Search history kept.")

	out, err = runCLI(t, "", "history", "clear", "--yes")
	require.NoError(t, err)
	assert.Contains(t, out, "Search history cleared.")

	out, err = runCLI(t, "", "history")
	require.NoError(t, err)
	assert.Equal(t, "No recent searches.\n", out)

	fs, err := storage.NewFileStore(filepath.Join(dir, "state.json"))
	require.NoError(t, err)
	last, err := fs.Get(context.Background(), widget.LastCityKey)
	require.NoError(t, err)
	assert.Equal(t, "New York", last)
}

func TestCLI_Interactive(t *testing.T) {
	var calls atomic.Int32
	owm := fakeOWM(t, &calls)
	dir := t.TempDir()

	t.Setenv("WEATHER_WEATHER_BASE_URL", owm.URL)
	t.Setenv("WEATHER_WEATHER_API_KEY", "test-key")
	t.Setenv("WEATHER_STORAGE_DRIVER", "memory")
	t.Setenv("WEATHER_LOGGING_OUTPUT_PATH", filepath.Join(dir, "weather.log"))

	out, err := runCLI(t, "Paris\n:recent\n:quit\n", "interactive")
	require.NoError(t, err)
	assert.Contains(t, out, "Welcome to Weather Aboard")
	assert.Contains(t, out, "Loading weather for Paris...")
	assert.Contains(t, out, "1. Paris\n")
}
