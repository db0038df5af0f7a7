package gateway

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/vzahanych/weather-widget/pkg/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// HTTPClient performs a GET and returns the body of a 2xx response. Any other
// status comes back as *StatusError.
type HTTPClient interface {
	Fetch(ctx context.Context, rawURL string) ([]byte, error)
}

type HTTPClientOptions struct {
	Timeout   time.Duration
	RateLimit float64
	RateBurst int
}

type httpClient struct {
	client  *http.Client
	limiter *rate.Limiter
	logger  *zap.Logger
	tele    *telemetry.Telemetry
}

// NewHTTPClient builds the default HTTPClient. A zero RateLimit disables throttling.
func NewHTTPClient(opts HTTPClientOptions, logger *zap.Logger, tele *telemetry.Telemetry) HTTPClient {
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	limiter := rate.NewLimiter(rate.Inf, 0)
	if opts.RateLimit > 0 {
		burst := opts.RateBurst
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(opts.RateLimit), burst)
	}

	return &httpClient{
		client: &http.Client{
			Timeout: opts.Timeout,
		},
		limiter: limiter,
		logger:  logger,
		tele:    tele,
	}
}

func (c *httpClient) Fetch(ctx context.Context, rawURL string) ([]byte, error) {
	tracer := c.tele.GetTracer()
	ctx, span := tracer.Start(ctx, "http.Fetch")
	defer span.End()

	endpoint := redact(rawURL)
	span.SetAttributes(attribute.String("http.url", endpoint))

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait canceled: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		c.tele.RecordError(ctx, err)
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))

	c.logger.Debug("Weather API response",
		zap.String("url", endpoint),
		zap.Int("status", resp.StatusCode),
		zap.Duration("latency", time.Since(start)))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// drain so the connection can be reused
		_, _ = io.Copy(io.Discard, resp.Body)
		statusErr := &StatusError{StatusCode: resp.StatusCode, Endpoint: req.URL.Path}
		c.tele.RecordError(ctx, statusErr)
		return nil, statusErr
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	return body, nil
}

// redact drops the API credential from a URL before it is logged or traced.
func redact(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "<invalid url>"
	}
	q := u.Query()
	if q.Has("appid") {
		q.Set("appid", "REDACTED")
		u.RawQuery = q.Encode()
	}
	return u.String()
}
