// Package daemonctl is the CLI-side client for the daemon's control API.
package daemonctl

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"tarmac/internal/config"
	"tarmac/internal/daemon"
)

// ErrDaemonUnavailable indicates the control API is not reachable, usually
// because tarmacd is not running.
var ErrDaemonUnavailable = errors.New("tarmac daemon is not reachable (is tarmacd running?)")

// Client talks to a running tarmacd over its loopback control API.
type Client struct {
	base string
	http *http.Client
}

// New builds a client from the configured API bind address.
func New(cfg *config.Config) *Client {
	return NewForAddress(cfg.Daemon.APIBind)
}

// NewForAddress builds a client for an explicit host:port.
func NewForAddress(addr string) *Client {
	addr = strings.TrimSpace(addr)
	return &Client{
		base: "http://" + addr,
		http: &http.Client{Timeout: 30 * time.Second},
	}
}

// Status fetches daemon runtime information.
func (c *Client) Status(ctx context.Context) (*daemon.Status, error) {
	var status daemon.Status
	if err := c.do(ctx, http.MethodGet, "/api/status", nil, &status); err != nil {
		return nil, err
	}
	return &status, nil
}

// StartSession selects a flight and begins scanning.
func (c *Client) StartSession(ctx context.Context, flightNumber, date string) (*daemon.SessionStatus, error) {
	request := map[string]string{"flight_number": flightNumber, "date": date}
	var session daemon.SessionStatus
	if err := c.do(ctx, http.MethodPost, "/api/session", request, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

// StopSession ends the active session.
func (c *Client) StopSession(ctx context.Context) error {
	return c.do(ctx, http.MethodDelete, "/api/session", nil, nil)
}

// Scan triggers one immediate capture attempt.
func (c *Client) Scan(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/api/session/scan", nil, nil)
}

// ManualMatch force-accounts the entry identified by id, seat, or PNR and
// returns the daemon's confirmation message.
func (c *Client) ManualMatch(ctx context.Context, identifier string) (string, error) {
	request := map[string]string{"identifier": identifier}
	var response struct {
		OK      bool   `json:"ok"`
		Message string `json:"message"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/session/manual-match", request, &response); err != nil {
		return "", err
	}
	return response.Message, nil
}

// Records fetches the active session's scan log newest-first.
func (c *Client) Records(ctx context.Context) ([]daemon.RecordPayload, error) {
	var records []daemon.RecordPayload
	if err := c.do(ctx, http.MethodGet, "/api/session/records", nil, &records); err != nil {
		return nil, err
	}
	return records, nil
}

// Reconciliation fetches the manifest entries with their accounted state, in
// manifest order.
func (c *Client) Reconciliation(ctx context.Context) ([]daemon.ReconciliationEntry, error) {
	var entries []daemon.ReconciliationEntry
	if err := c.do(ctx, http.MethodGet, "/api/session/manifest", nil, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

// TestNotification asks the daemon to send a test push.
func (c *Client) TestNotification(ctx context.Context) (string, error) {
	var response struct {
		OK      bool   `json:"ok"`
		Message string `json:"message"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/notify/test", nil, &response); err != nil {
		return "", err
	}
	return response.Message, nil
}

func (c *Client) do(ctx context.Context, method, path string, request, response any) error {
	var body io.Reader
	if request != nil {
		encoded, err := json.Marshal(request)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base+path, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if request != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		var netErr net.Error
		if errors.As(err, &netErr) || strings.Contains(err.Error(), "connection refused") {
			return fmt.Errorf("%w: %v", ErrDaemonUnavailable, err)
		}
		return fmt.Errorf("call daemon: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var apiErr struct {
			Error string `json:"error"`
		}
		if decodeErr := json.NewDecoder(resp.Body).Decode(&apiErr); decodeErr == nil && apiErr.Error != "" {
			return errors.New(apiErr.Error)
		}
		return fmt.Errorf("daemon returned %d", resp.StatusCode)
	}

	if response == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(response); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
