package manifest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const defaultHTTPTimeout = 20 * time.Second

// ClientConfig captures the runtime settings required to talk to the
// ground-operations manifest API.
type ClientConfig struct {
	BaseURL        string
	APIKey         string
	TimeoutSeconds int
}

// Client fetches manifest snapshots over HTTP.
type Client struct {
	cfg        ClientConfig
	httpClient *http.Client
	now        func() time.Time
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

// WithClock overrides the snapshot timestamp source (useful for tests).
func WithClock(now func() time.Time) Option {
	return func(c *Client) {
		if now != nil {
			c.now = now
		}
	}
}

// NewClient constructs a manifest client using the supplied configuration.
func NewClient(cfg ClientConfig, opts ...Option) *Client {
	timeout := defaultHTTPTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	client := &Client{
		cfg: ClientConfig{
			BaseURL:        strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
			APIKey:         strings.TrimSpace(cfg.APIKey),
			TimeoutSeconds: cfg.TimeoutSeconds,
		},
		httpClient: &http.Client{Timeout: timeout},
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

type httpStatusError struct {
	StatusCode int
	Body       string
}

func (e *httpStatusError) Error() string {
	return fmt.Sprintf("manifest request: http %d: %s", e.StatusCode, strings.TrimSpace(e.Body))
}

// wire format of the manifest endpoint.
type manifestResponse struct {
	FlightNumber      string `json:"flight_number"`
	Route             string `json:"route"`
	TotalPassengers   int    `json:"total_passengers"`
	DisembarkingCount int    `json:"disembarking_count"`
	Disembarking      []struct {
		ID            string `json:"id"`
		PassengerName string `json:"passenger_name"`
		Seat          string `json:"seat"`
		PNR           string `json:"pnr"`
	} `json:"disembarking"`
}

// Fetch retrieves the disembarking manifest for a flight call. It is
// idempotent and returns either a complete snapshot or an error, never a
// partial one.
func (c *Client) Fetch(ctx context.Context, station, flightNumber, date string) (*Snapshot, error) {
	station = strings.ToUpper(strings.TrimSpace(station))
	flightNumber = strings.ToUpper(strings.TrimSpace(flightNumber))
	date = strings.TrimSpace(date)
	if station == "" {
		return nil, errors.New("manifest fetch: station required")
	}
	if flightNumber == "" {
		return nil, errors.New("manifest fetch: flight number required")
	}
	if date == "" {
		return nil, errors.New("manifest fetch: date required")
	}
	if c.cfg.BaseURL == "" {
		return nil, errors.New("manifest fetch: base url not configured")
	}

	endpoint := fmt.Sprintf("%s/stations/%s/flights/%s/manifest?date=%s",
		c.cfg.BaseURL, url.PathEscape(station), url.PathEscape(flightNumber), url.QueryEscape(date))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("manifest fetch: new request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("manifest fetch: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, fmt.Errorf("manifest fetch: read body: %w", err)
	}
	if resp.StatusCode >= http.StatusMultipleChoices {
		return nil, &httpStatusError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	var decoded manifestResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return nil, fmt.Errorf("manifest fetch: decode response: %w", err)
	}
	if strings.TrimSpace(decoded.FlightNumber) == "" {
		return nil, errors.New("manifest fetch: response missing flight number")
	}

	snapshot := &Snapshot{
		FlightNumber:      strings.ToUpper(strings.TrimSpace(decoded.FlightNumber)),
		Route:             strings.TrimSpace(decoded.Route),
		Station:           station,
		Date:              date,
		TotalPassengers:   decoded.TotalPassengers,
		DisembarkingCount: decoded.DisembarkingCount,
		FetchedAt:         c.now().UTC(),
	}
	for _, entry := range decoded.Disembarking {
		snapshot.Disembarking = append(snapshot.Disembarking, Entry{
			ID:            strings.TrimSpace(entry.ID),
			PassengerName: strings.TrimSpace(entry.PassengerName),
			Seat:          strings.TrimSpace(entry.Seat),
			PNR:           strings.TrimSpace(entry.PNR),
		})
	}
	if snapshot.DisembarkingCount == 0 {
		snapshot.DisembarkingCount = len(snapshot.Disembarking)
	}
	return snapshot, nil
}
