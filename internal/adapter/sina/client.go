package sina

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/mgw2168/2019-nCoV/internal/domain"
	"github.com/mgw2168/2019-nCoV/internal/observability"
)

const userAgent = "Mozilla/5.0 (compatible; ncov-charts/1.0)"

// Client fetches the epidemic map feed. It implements pipeline.Fetcher.
// Requests are single-shot: a failed fetch is returned to the caller.
type Client struct {
	client  *resty.Client
	url     string
	logger  *slog.Logger
	metrics *observability.Metrics
}

// NewClient creates a feed client for the given endpoint.
func NewClient(url string, timeout time.Duration, logger *slog.Logger, metrics *observability.Metrics) *Client {
	client := resty.New()
	client.SetTimeout(timeout)
	client.SetHeader("User-Agent", userAgent)
	client.SetHeader("Accept", "*/*")
	client.SetLogger(restyLogger{logger: logger})

	return &Client{
		client:  client,
		url:     url,
		logger:  logger,
		metrics: metrics,
	}
}

// Fetch downloads and decodes the feed.
func (c *Client) Fetch(ctx context.Context) (*domain.Payload, error) {
	raw, err := c.FetchRaw(ctx)
	if err != nil {
		return nil, err
	}
	p, err := domain.ParsePayload(raw)
	if err != nil {
		return nil, fmt.Errorf("parse feed: %w", err)
	}
	return p, nil
}

// FetchRaw downloads the feed and returns the JSON inside the callback wrapper.
func (c *Client) FetchRaw(ctx context.Context) (json.RawMessage, error) {
	start := time.Now()
	resp, err := c.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"_":        strconv.FormatInt(domain.CacheBuster(), 10),
			"callback": "",
		}).
		Get(c.url)
	c.metrics.FetchDuration.Observe(time.Since(start).Seconds())

	if err != nil {
		c.metrics.FetchRequests.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("fetch feed: %w", err)
	}
	if resp.IsError() {
		c.metrics.FetchRequests.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("feed error: status %d: %s", resp.StatusCode(), truncate(resp.String(), 200))
	}

	raw, err := domain.UnwrapJSONP(resp.Body())
	if err != nil {
		c.metrics.FetchRequests.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("unwrap feed: %w", err)
	}

	c.metrics.FetchRequests.WithLabelValues("success").Inc()
	c.logger.Debug("feed fetched",
		"bytes", len(resp.Body()),
		"duration", resp.Time(),
	)
	return raw, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

// restyLogger routes resty's internal messages through slog.
type restyLogger struct {
	logger *slog.Logger
}

func (l restyLogger) Errorf(format string, v ...any) {
	l.logger.Error(fmt.Sprintf(format, v...), "component", "resty")
}

func (l restyLogger) Warnf(format string, v ...any) {
	l.logger.Warn(fmt.Sprintf(format, v...), "component", "resty")
}

func (l restyLogger) Debugf(format string, v ...any) {
	l.logger.Debug(fmt.Sprintf(format, v...), "component", "resty")
}
