// Package widget is the search-and-render state machine: it validates a city,
// fetches current conditions and the forecast together, and moves the single
// render target between welcome, loading, success and error.
package widget

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/vzahanych/weather-widget/internal/gateway"
	"github.com/vzahanych/weather-widget/internal/recent"
	"github.com/vzahanych/weather-widget/internal/storage"
	"github.com/vzahanych/weather-widget/pkg/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// LastCityKey is the storage key of the last successfully searched city.
const LastCityKey = "lastCity"

var (
	// ErrSearchInProgress is returned by Submit while another search is loading.
	ErrSearchInProgress = errors.New("a search is already in progress")
	ErrNoSuchRecent     = errors.New("no recent search at that position")
)

// MetricsRecorder receives the outcome of every submitted search: "success",
// an ErrorKind string, or "rejected".
type MetricsRecorder interface {
	RecordSearch(ctx context.Context, outcome string)
}

type Controller struct {
	gw          gateway.WeatherGateway
	recent      *recent.Cache
	store       storage.Store
	renderer    Renderer
	metrics     MetricsRecorder
	iconBaseURL string
	logger      *zap.Logger
	tele        *telemetry.Telemetry

	// mu guards state and serializes renders so the target never shows an
	// older state after a newer one.
	mu    sync.Mutex
	state State
}

func NewController(gw gateway.WeatherGateway, history *recent.Cache, store storage.Store, renderer Renderer, logger *zap.Logger, tele *telemetry.Telemetry) *Controller {
	if renderer == nil {
		renderer = nopRenderer{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Controller{
		gw:          gw,
		recent:      history,
		store:       store,
		renderer:    renderer,
		iconBaseURL: DefaultIconBaseURL,
		logger:      logger.With(zap.String("component", "widget")),
		tele:        tele,
		state:       State{Phase: PhaseWelcome},
	}
}

func (c *Controller) SetMetricsRecorder(metrics MetricsRecorder) {
	c.metrics = metrics
}

func (c *Controller) SetIconBaseURL(base string) {
	if base != "" {
		c.iconBaseURL = base
	}
}

// Start loads the recent searches and either re-runs the last searched city
// or shows the welcome state.
func (c *Controller) Start(ctx context.Context) (State, error) {
	history := c.recent.Load(ctx)

	last, err := c.store.Get(ctx, LastCityKey)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		c.logger.Warn("Failed to read last searched city", zap.Error(err))
	}
	if err == nil && strings.TrimSpace(last) != "" {
		c.logger.Info("Resuming last searched city", zap.String("city", last))
		return c.Submit(ctx, last)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	return c.transition(State{Phase: PhaseWelcome, Recent: history}), nil
}

// Submit runs one search. Validation and fetch failures end in PhaseError
// with a nil error; the only error is ErrSearchInProgress, in which case the
// state is left untouched.
func (c *Controller) Submit(ctx context.Context, city string) (State, error) {
	tracer := c.tele.GetTracer()
	ctx, span := tracer.Start(ctx, "widget.Submit")
	defer span.End()

	c.mu.Lock()
	if c.state.Phase == PhaseLoading {
		snapshot := c.state.clone()
		c.mu.Unlock()
		span.SetAttributes(attribute.Bool("rejected", true))
		c.record(ctx, "rejected")
		c.logger.Debug("Search ignored while another is loading",
			zap.String("city", city),
			zap.String("loading_city", snapshot.City))
		return snapshot, ErrSearchInProgress
	}

	name, verr := validateCity(city)
	if verr != nil {
		defer c.mu.Unlock()
		span.SetAttributes(attribute.String("error_kind", verr.Kind.String()))
		c.record(ctx, verr.Kind.String())
		return c.transition(State{
			Phase:  PhaseError,
			City:   strings.TrimSpace(city),
			Err:    verr,
			Recent: c.recent.List(),
		}), nil
	}

	searchID := uuid.NewString()
	reqLogger := c.logger.With(zap.String("search_id", searchID), zap.String("city", name))
	span.SetAttributes(
		attribute.String("search.id", searchID),
		attribute.String("city", name),
	)

	c.transition(State{Phase: PhaseLoading, City: name, Recent: c.recent.List()})
	c.mu.Unlock()

	reqLogger.Info("Searching weather")
	start := time.Now()

	current, forecast, err := c.fetchBoth(ctx, name)

	var next State
	if err != nil {
		serr := classify(err)
		c.tele.RecordError(ctx, err, attribute.String("error_kind", serr.Kind.String()))
		reqLogger.Warn("Search failed",
			zap.String("error_kind", serr.Kind.String()),
			zap.Duration("latency", time.Since(start)),
			zap.Error(err))

		next = State{Phase: PhaseError, City: name, Err: serr, Recent: c.recent.List()}
	} else {
		history, rerr := c.recent.Record(ctx, name)
		if rerr != nil {
			reqLogger.Warn("Failed to record recent search", zap.Error(rerr))
		}
		if serr := c.store.Set(ctx, LastCityKey, name); serr != nil {
			reqLogger.Warn("Failed to persist last searched city", zap.Error(serr))
		}

		reqLogger.Info("Search succeeded",
			zap.Int("forecast_days", len(forecast)),
			zap.Duration("latency", time.Since(start)))

		next = State{
			Phase:    PhaseSuccess,
			City:     name,
			Current:  &current,
			Forecast: forecast,
			Recent:   history,
		}
	}

	span.SetAttributes(attribute.String("phase", next.Phase.String()))
	if next.Err != nil {
		c.record(ctx, next.Err.Kind.String())
	} else {
		c.record(ctx, "success")
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	return c.transition(next), nil
}

// SelectRecent submits the recent search at index (0 is the most recent).
func (c *Controller) SelectRecent(ctx context.Context, index int) (State, error) {
	city, ok := c.recent.At(index)
	if !ok {
		return c.State(), ErrNoSuchRecent
	}
	return c.Submit(ctx, city)
}

// ClearHistory empties the recent searches if confirm agrees and redraws the
// current state with the new list.
func (c *Controller) ClearHistory(ctx context.Context, confirm recent.Confirmer) (bool, error) {
	cleared, err := c.recent.Clear(ctx, confirm)
	if err != nil || !cleared {
		return cleared, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	next := c.state.clone()
	next.Recent = c.recent.List()
	c.transition(next)
	return true, nil
}

func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.clone()
}

func (c *Controller) View() View {
	return c.Describe(c.State())
}

// Describe renders s with the controller's icon base URL.
func (c *Controller) Describe(s State) View {
	return Describe(s, c.iconBaseURL)
}

func (c *Controller) Recent() []string {
	return c.recent.List()
}

func (c *Controller) MaxRecent() int {
	return c.recent.MaxEntries()
}

func (c *Controller) record(ctx context.Context, outcome string) {
	if c.metrics != nil {
		c.metrics.RecordSearch(ctx, outcome)
	}
}

// transition stores next and renders it. Callers hold c.mu.
func (c *Controller) transition(next State) State {
	c.state = next
	snapshot := next.clone()
	c.renderer.Render(Describe(snapshot, c.iconBaseURL))
	return snapshot
}

// fetchBoth issues both requests at once and fails if either fails.
func (c *Controller) fetchBoth(ctx context.Context, city string) (gateway.CurrentConditions, []gateway.ForecastDay, error) {
	var (
		wg          sync.WaitGroup
		current     gateway.CurrentConditions
		forecast    []gateway.ForecastDay
		currentErr  error
		forecastErr error
	)

	wg.Add(2)
	go func() {
		defer wg.Done()
		current, currentErr = c.gw.FetchCurrent(ctx, city)
	}()
	go func() {
		defer wg.Done()
		forecast, forecastErr = c.gw.FetchForecast(ctx, city)
	}()
	wg.Wait()

	if err := errors.Join(currentErr, forecastErr); err != nil {
		return gateway.CurrentConditions{}, nil, err
	}
	return current, forecast, nil
}

func classify(err error) *SearchError {
	if gateway.IsNotFound(err) {
		return &SearchError{Kind: KindNotFound, Message: MsgNotFound, Cause: err}
	}
	return &SearchError{Kind: KindUnknown, Message: MsgUnknown, Cause: err}
}
