package provision

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/sethgrid/pester"
	"go.uber.org/ratelimit"

	"github.com/nkiryanov/smsorders/internal/apperrors"
	"github.com/nkiryanov/smsorders/internal/logger"
)

const (
	defaultTimeout       = 10 * time.Second
	defaultRatePerSecond = 10
)

// Failed number request
// StatusCode is the provider response code, zero if no response received (timeout, network)
type Error struct {
	StatusCode int
	Err        error
}

func (e *Error) Error() string {
	return fmt.Sprintf("provisioning failed, status_code: %d, error: %v", e.StatusCode, e.Err)
}

func (e *Error) Unwrap() []error {
	return []error{apperrors.ErrProvisioningFailed, e.Err}
}

// Number acquired from provider
type Number struct {
	ActivationID string `json:"activationId"`
	Number       string `json:"number"`
}

type Config struct {
	// Provider endpoint to request numbers from
	URL string

	// Max time to wait provider response
	Timeout time.Duration

	// Max requests per second to provider
	RatePerSecond int
}

// Client to external number provider
type Client struct {
	url     string
	timeout time.Duration

	client  *pester.Client
	limiter ratelimit.Limiter
	logger  logger.Logger
}

func NewClient(cfg Config, l logger.Logger) (*Client, error) {
	if cfg.URL == "" {
		return nil, errors.New("provider url must not be empty")
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.RatePerSecond == 0 {
		cfg.RatePerSecond = defaultRatePerSecond
	}

	c := pester.New()
	c.Concurrency = 1
	c.MaxRetries = 0 // number request is not idempotent, second attempt may acquire second number
	c.KeepLog = false
	c.RetryOnHTTP429 = false
	c.Timeout = cfg.Timeout
	c.Transport = &loggingTransport{proxied: http.DefaultTransport, logger: l}

	return &Client{
		url:     cfg.URL,
		timeout: cfg.Timeout,
		client:  c,
		limiter: ratelimit.New(cfg.RatePerSecond),
		logger:  l,
	}, nil
}

// Request new number for the service in the country
// Any failure is returned as *Error
func (c *Client) OrderNumber(ctx context.Context, service string, country string) (Number, error) {
	var number Number

	body, err := json.Marshal(struct {
		Service string `json:"service"`
		Country string `json:"country"`
	}{service, country})
	if err != nil {
		return number, &Error{Err: fmt.Errorf("failed to encode request: %w", err)}
	}

	c.limiter.Take()

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return number, &Error{Err: fmt.Errorf("failed to create request: %w", err)}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return number, &Error{Err: fmt.Errorf("failed to send request: %w", err)}
	}
	defer resp.Body.Close() // nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		c.logger.Warn("Failed to acquire number", "status_code", resp.StatusCode, "service", service, "country", country)
		return number, &Error{StatusCode: resp.StatusCode, Err: fmt.Errorf("unexpected status code %d", resp.StatusCode)}
	}

	err = json.NewDecoder(resp.Body).Decode(&number)
	if err != nil {
		return number, &Error{StatusCode: resp.StatusCode, Err: fmt.Errorf("failed to decode response: %w", err)}
	}
	if number.ActivationID == "" || number.Number == "" {
		return number, &Error{StatusCode: resp.StatusCode, Err: errors.New("response has no activation id or number")}
	}

	c.logger.Debug("Number acquired", "activation_id", number.ActivationID, "service", service, "country", country)
	return number, nil
}

type loggingTransport struct {
	proxied http.RoundTripper
	logger  logger.Logger
}

func (t *loggingTransport) RoundTrip(r *http.Request) (*http.Response, error) {
	start := time.Now()
	resp, err := t.proxied.RoundTrip(r)
	if err != nil {
		t.logger.Warn("Provider request error", "url", r.URL.String(), "duration", time.Since(start), "error", err)
		return nil, err
	}

	t.logger.Debug("Provider request", "url", r.URL.String(), "duration", time.Since(start), "status", resp.StatusCode)
	return resp, nil
}
