package decoder

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const (
	defaultHTTPTimeout    = 15 * time.Second
	defaultRetryAttempts  = 1
	defaultRetryBaseDelay = 200 * time.Millisecond
	defaultRetryMaxDelay  = 2 * time.Second
)

// Kind reports which decode capability produced the text.
type Kind string

const (
	KindBarcode Kind = "barcode"
	KindOCR     Kind = "ocr"
)

// Result is the structured decode response. Success=false with no error
// means the service saw the frame but found nothing decodable, which is the
// common case during continuous scanning.
type Result struct {
	Success bool
	Text    string
	Kind    Kind
	Err     string
}

// Config captures the runtime settings required to talk to the decode service.
type Config struct {
	BaseURL        string
	APIKey         string
	TimeoutSeconds int
}

// Client wraps the decode service HTTP API.
type Client struct {
	cfg        Config
	httpClient *http.Client

	retryMaxAttempts int
	retryBaseDelay   time.Duration
	retryMaxDelay    time.Duration
	sleeper          func(time.Duration)
}

// Option customizes the client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithRetryMaxAttempts overrides the default retry count.
func WithRetryMaxAttempts(attempts int) Option {
	return func(c *Client) {
		c.retryMaxAttempts = attempts
	}
}

// WithRetryBackoff overrides the retry backoff delays.
func WithRetryBackoff(baseDelay, maxDelay time.Duration) Option {
	return func(c *Client) {
		c.retryBaseDelay = baseDelay
		c.retryMaxDelay = maxDelay
	}
}

// WithSleeper overrides how retry sleeps are performed (useful for tests).
func WithSleeper(sleeper func(time.Duration)) Option {
	return func(c *Client) {
		c.sleeper = sleeper
	}
}

// NewClient constructs a decode client using the supplied configuration.
func NewClient(cfg Config, opts ...Option) *Client {
	timeout := defaultHTTPTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	client := &Client{
		cfg: Config{
			BaseURL:        strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
			APIKey:         strings.TrimSpace(cfg.APIKey),
			TimeoutSeconds: cfg.TimeoutSeconds,
		},
		httpClient:       &http.Client{Timeout: timeout},
		retryMaxAttempts: defaultRetryAttempts,
		retryBaseDelay:   defaultRetryBaseDelay,
		retryMaxDelay:    defaultRetryMaxDelay,
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

// ConnectivityError marks failures worth escalating to the operator:
// transport errors, timeouts, and server-side availability problems. Routine
// decode misses never carry this type.
type ConnectivityError struct {
	Err error
}

func (e *ConnectivityError) Error() string { return e.Err.Error() }

func (e *ConnectivityError) Unwrap() error { return e.Err }

// IsConnectivity reports whether err represents a connectivity-class failure.
func IsConnectivity(err error) bool {
	var connErr *ConnectivityError
	return errors.As(err, &connErr)
}

type httpStatusError struct {
	StatusCode int
	Body       string
	RetryAfter time.Duration
}

func (e *httpStatusError) Error() string {
	return fmt.Sprintf("decode: http %d: %s", e.StatusCode, e.Body)
}

type decodeRequest struct {
	ImageB64 string `json:"image_b64"`
}

type decodeResponse struct {
	Success     bool   `json:"success"`
	DecodedText string `json:"decoded_text"`
	Kind        string `json:"kind"`
	Error       string `json:"error"`
}

// Decode submits one still image and returns the structured decode outcome.
// By default a call issues a single request; callers that opt in via
// WithRetryMaxAttempts get bounded backoff on connectivity-class failures,
// honoring Retry-After when the service provides one.
func (c *Client) Decode(ctx context.Context, image []byte) (Result, error) {
	var empty Result
	if len(image) == 0 {
		return empty, errors.New("decode: empty image")
	}
	if c.cfg.BaseURL == "" {
		return empty, errors.New("decode: base url not configured")
	}

	attempts := c.retryAttempts()
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		result, err := c.decodeOnce(ctx, image)
		if err == nil {
			return result, nil
		}

		delay, retry := c.retryDelay(ctx, err, attempt, attempts)
		if !retry {
			return empty, err
		}
		if sleepErr := c.sleep(ctx, delay); sleepErr != nil {
			return empty, sleepErr
		}
		lastErr = err
	}
	return empty, fmt.Errorf("decode: failed after %d attempts: %w", attempts, lastErr)
}

func (c *Client) decodeOnce(ctx context.Context, image []byte) (Result, error) {
	var empty Result

	payload := decodeRequest{ImageB64: base64.StdEncoding.EncodeToString(image)}
	encoded, err := json.Marshal(payload)
	if err != nil {
		return empty, fmt.Errorf("decode: encode body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/decode", bytes.NewReader(encoded))
	if err != nil {
		return empty, fmt.Errorf("decode: new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return empty, err
		}
		return empty, &ConnectivityError{Err: fmt.Errorf("decode: http error: %w", err)}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return empty, &ConnectivityError{Err: fmt.Errorf("decode: read body: %w", err)}
	}

	if resp.StatusCode >= http.StatusMultipleChoices {
		retryAfter, _ := parseRetryAfter(resp.Header.Get("Retry-After"))
		statusErr := &httpStatusError{
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(body)),
			RetryAfter: retryAfter,
		}
		if isAvailabilityStatus(resp.StatusCode) {
			return empty, &ConnectivityError{Err: statusErr}
		}
		return empty, statusErr
	}

	var decoded decodeResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return empty, fmt.Errorf("decode: decode response: %w", err)
	}

	return Result{
		Success: decoded.Success,
		Text:    decoded.DecodedText,
		Kind:    parseKind(decoded.Kind),
		Err:     strings.TrimSpace(decoded.Error),
	}, nil
}

// HealthCheck issues a cheap request to verify the service is reachable.
func (c *Client) HealthCheck(ctx context.Context) error {
	if c.cfg.BaseURL == "" {
		return errors.New("decode health: base url not configured")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+"/healthz", nil)
	if err != nil {
		return fmt.Errorf("decode health: new request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &ConnectivityError{Err: fmt.Errorf("decode health: %w", err)}
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	if resp.StatusCode >= http.StatusMultipleChoices {
		return &ConnectivityError{Err: fmt.Errorf("decode health: http %d", resp.StatusCode)}
	}
	return nil
}

func (c *Client) retryAttempts() int {
	if c == nil || c.retryMaxAttempts <= 0 {
		return 1
	}
	return c.retryMaxAttempts
}

func (c *Client) retryDelay(ctx context.Context, err error, attempt, maxAttempts int) (time.Duration, bool) {
	if attempt >= maxAttempts || err == nil {
		return 0, false
	}
	if ctx != nil && ctx.Err() != nil {
		return 0, false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return 0, false
	}

	var statusErr *httpStatusError
	if errors.As(err, &statusErr) {
		if !isAvailabilityStatus(statusErr.StatusCode) {
			return 0, false
		}
		if statusErr.RetryAfter > 0 {
			return c.capDelay(statusErr.RetryAfter), true
		}
		return c.backoffDelay(attempt), true
	}

	if IsConnectivity(err) {
		return c.backoffDelay(attempt), true
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return c.backoffDelay(attempt), true
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) && urlErr.Timeout() {
		return c.backoffDelay(attempt), true
	}

	return 0, false
}

func (c *Client) backoffDelay(attempt int) time.Duration {
	base := c.retryBaseDelay
	if base <= 0 {
		return 0
	}
	// attempt 1 -> base, attempt 2 -> base*2, attempt 3 -> base*4, ...
	delay := base
	for i := 1; i < attempt; i++ {
		if delay > c.retryMaxDelay/2 {
			delay = c.retryMaxDelay
			break
		}
		delay *= 2
	}
	return c.capDelay(delay)
}

func (c *Client) capDelay(delay time.Duration) time.Duration {
	if delay < 0 {
		return 0
	}
	maxDelay := defaultRetryMaxDelay
	if c != nil && c.retryMaxDelay > 0 {
		maxDelay = c.retryMaxDelay
	}
	if delay > maxDelay {
		return maxDelay
	}
	return delay
}

func (c *Client) sleep(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return nil
	}
	if c.sleeper != nil {
		c.sleeper(delay)
		return nil
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func parseRetryAfter(value string) (time.Duration, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, false
	}
	seconds, err := strconv.Atoi(value)
	if err != nil || seconds < 0 {
		return 0, false
	}
	return time.Duration(seconds) * time.Second, true
}

func isAvailabilityStatus(status int) bool {
	switch {
	case status == http.StatusRequestTimeout,
		status == http.StatusTooManyRequests,
		status >= http.StatusInternalServerError:
		return true
	default:
		return false
	}
}

func parseKind(value string) Kind {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "ocr":
		return KindOCR
	default:
		return KindBarcode
	}
}

// Timeout reports the effective client-side timeout, mainly for logs.
func (c *Client) Timeout() time.Duration {
	if c == nil || c.httpClient == nil || c.httpClient.Timeout <= 0 {
		return defaultHTTPTimeout
	}
	return c.httpClient.Timeout
}

// IsTimeout reports whether err stems from a network timeout.
func IsTimeout(err error) bool {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	var urlErr *url.Error
	return errors.As(err, &urlErr) && urlErr.Timeout()
}
