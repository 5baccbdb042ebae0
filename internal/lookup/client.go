package lookup

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/cenkalti/backoff"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/inodb/ideogram-genes/internal/assembly"
)

// ServiceConfig locates the annotation service.
type ServiceConfig struct {
	Scheme  string
	Host    string
	Port    int
	Timeout time.Duration
}

// DefaultServiceConfig returns the public annotation service endpoint.
func DefaultServiceConfig() ServiceConfig {
	return ServiceConfig{
		Scheme:  "https",
		Host:    "annotations.altius.org",
		Port:    8443, // SSL over 8443
		Timeout: 30 * time.Second,
	}
}

// BreakerConfig configures the circuit breaker around the service.
type BreakerConfig struct {
	Enabled          bool
	MaxRequests      uint32        // requests allowed while half-open
	Interval         time.Duration // window for clearing counts while closed
	Timeout          time.Duration // open duration before half-open
	MinRequests      uint32        // requests needed before the ratio is evaluated
	FailureThreshold float64       // failure ratio that trips the breaker
}

// DefaultBreakerConfig returns the breaker settings used by the CLI.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		Enabled:          true,
		MaxRequests:      5,
		Interval:         30 * time.Second,
		Timeout:          30 * time.Second,
		MinRequests:      20,
		FailureThreshold: 0.8,
	}
}

// Client queries the annotation service over HTTP.
type Client struct {
	service      ServiceConfig
	httpClient   *http.Client
	retries      int
	retryInitial time.Duration
	breaker      *gobreaker.CircuitBreaker
	logger       *zap.Logger
}

// NewClient creates a client for the given service. Retries default to 2 and
// the default breaker is enabled.
func NewClient(service ServiceConfig) *Client {
	timeout := service.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	c := &Client{
		service:      service,
		httpClient:   &http.Client{Timeout: timeout},
		retries:      2,
		retryInitial: 250 * time.Millisecond,
		logger:       zap.NewNop(),
	}
	c.SetBreaker(DefaultBreakerConfig())
	return c
}

// SetLogger sets the logger for retry and breaker messages.
func (c *Client) SetLogger(l *zap.Logger) {
	c.logger = l
}

// SetRetries configures how many times a transient failure is retried and
// the first backoff interval.
func (c *Client) SetRetries(n int, initial time.Duration) {
	if n < 0 {
		n = 0
	}
	c.retries = n
	if initial > 0 {
		c.retryInitial = initial
	}
}

// SetBreaker installs a circuit breaker, or removes it when cfg is disabled.
func (c *Client) SetBreaker(cfg BreakerConfig) {
	if !cfg.Enabled {
		c.breaker = nil
		return
	}
	c.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "annotation-service",
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < cfg.MinRequests {
				return false
			}
			ratio := float64(counts.TotalFailures) / float64(counts.Requests)
			return ratio >= cfg.FailureThreshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			c.logger.Warn("circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
		IsSuccessful: breakerSuccess,
	})
}

// URL returns the lookup URL for a gene name and legacy assembly name.
func (c *Client) URL(name, legacyAssembly string) string {
	return fmt.Sprintf("%s://%s:%d/sets?q=%s&assembly=%s",
		c.service.Scheme, c.service.Host, c.service.Port,
		url.QueryEscape(name), url.QueryEscape(legacyAssembly))
}

// Lookup queries the service for name and returns the hits whose name equals
// name exactly.
func (c *Client) Lookup(ctx context.Context, name string, asm assembly.Assembly) ([]Hit, error) {
	legacy, ok := asm.LegacyName()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownAssembly, asm)
	}

	body, err := c.fetch(ctx, c.URL(name, legacy))
	if err != nil {
		return nil, err
	}
	return parseHits(body, name)
}

func (c *Client) fetch(ctx context.Context, u string) ([]byte, error) {
	if c.breaker == nil {
		return c.fetchWithRetry(ctx, u)
	}
	out, err := c.breaker.Execute(func() (interface{}, error) {
		return c.fetchWithRetry(ctx, u)
	})
	if err != nil {
		return nil, err
	}
	return out.([]byte), nil
}

func (c *Client) fetchWithRetry(ctx context.Context, u string) ([]byte, error) {
	var body []byte
	op := func() error {
		b, err := c.get(ctx, u)
		if err != nil {
			if !retryable(ctx, err) {
				return backoff.Permanent(err)
			}
			return err
		}
		body = b
		return nil
	}

	// WithMaxRetries treats 0 as unlimited.
	var policy backoff.BackOff = &backoff.StopBackOff{}
	if c.retries > 0 {
		eb := backoff.NewExponentialBackOff()
		eb.InitialInterval = c.retryInitial
		policy = backoff.WithMaxRetries(eb, uint64(c.retries))
	}
	b := backoff.WithContext(policy, ctx)

	notify := func(err error, next time.Duration) {
		c.logger.Debug("retrying annotation lookup",
			zap.String("url", u),
			zap.Duration("backoff", next),
			zap.Error(err))
	}
	if err := backoff.RetryNotify(op, b, notify); err != nil {
		return nil, err
	}
	return body, nil
}

func (c *Client) get(ctx context.Context, u string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("build lookup request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("lookup request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read lookup response: %w", err)
	}
	return body, nil
}

func retryable(ctx context.Context, err error) bool {
	if ctx.Err() != nil {
		return false
	}
	var se *StatusError
	if errors.As(err, &se) {
		return se.Temporary()
	}
	return true
}

// breakerSuccess counts cancellations and client errors as successes: they
// say nothing about the service's health.
func breakerSuccess(err error) bool {
	if err == nil {
		return true
	}
	if errors.Is(err, context.Canceled) {
		return true
	}
	var se *StatusError
	if errors.As(err, &se) {
		return !se.Temporary()
	}
	return false
}
