package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"tarmac/internal/config"
)

const userAgent = "Tarmac-Go/0.1.0"

// Service defines the notification surface exposed to session components.
type Service interface {
	NotifySessionStarted(ctx context.Context, flight, station string, disembarking int) error
	NotifyPassengerMatched(ctx context.Context, passenger, seat string) error
	NotifyScanUnmatched(ctx context.Context, summary string) error
	NotifyManualMatch(ctx context.Context, passenger, seat string) error
	NotifyDecoderUnreachable(ctx context.Context, err error) error
	NotifyCameraAttached(ctx context.Context, device string) error
	NotifyCameraDetached(ctx context.Context, device string) error
	NotifySessionSummary(ctx context.Context, flight string, scanned, total int) error
	NotifyError(ctx context.Context, err error, context string) error
	TestNotification(ctx context.Context) error
}

// NewService builds a notification service backed by ntfy when configured.
// When no ntfy topic is configured, a noop implementation is returned.
func NewService(cfg *config.Config) Service {
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}

	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	client := &http.Client{Timeout: timeout}
	return &ntfyService{
		endpoint:  topic,
		client:    client,
		matches:   cfg.Notifications.Matches,
		unmatched: cfg.Notifications.Unmatched,
		errors:    cfg.Notifications.Errors,
	}
}

type payload struct {
	title    string
	message  string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint  string
	client    *http.Client
	matches   bool
	unmatched bool
	errors    bool
}

func (n *ntfyService) NotifySessionStarted(ctx context.Context, flight, station string, disembarking int) error {
	flight = strings.TrimSpace(flight)
	station = strings.TrimSpace(station)
	data := payload{
		title:   "Tarmac - Session Started",
		message: fmt.Sprintf("Scanning %s at %s: %d disembarking", flight, station, disembarking),
		tags:    []string{"tarmac", "session", "started"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyPassengerMatched(ctx context.Context, passenger, seat string) error {
	if !n.matches {
		return nil
	}
	passenger = strings.TrimSpace(passenger)
	if passenger == "" {
		passenger = "passenger"
	}
	message := fmt.Sprintf("Accounted for: %s", passenger)
	if seat = strings.TrimSpace(seat); seat != "" {
		message = fmt.Sprintf("%s (seat %s)", message, seat)
	}
	data := payload{
		title:   "Tarmac - Passenger Matched",
		message: message,
		tags:    []string{"tarmac", "scan", "matched"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyScanUnmatched(ctx context.Context, summary string) error {
	if !n.unmatched {
		return nil
	}
	summary = strings.TrimSpace(summary)
	if summary == "" {
		summary = "no fields extracted"
	}
	data := payload{
		title:   "Tarmac - Unmatched Scan",
		message: fmt.Sprintf("No manifest entry for scan: %s\nResolve via manual match", summary),
		tags:    []string{"tarmac", "scan", "unmatched"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyManualMatch(ctx context.Context, passenger, seat string) error {
	if !n.matches {
		return nil
	}
	passenger = strings.TrimSpace(passenger)
	message := fmt.Sprintf("Manually accounted for: %s", passenger)
	if seat = strings.TrimSpace(seat); seat != "" {
		message = fmt.Sprintf("%s (seat %s)", message, seat)
	}
	data := payload{
		title:   "Tarmac - Manual Match",
		message: message,
		tags:    []string{"tarmac", "scan", "manual"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyDecoderUnreachable(ctx context.Context, err error) error {
	if !n.errors {
		return nil
	}
	detail := "unknown"
	if err != nil {
		detail = strings.TrimSpace(err.Error())
	}
	data := payload{
		title:    "Tarmac - Decoder Unreachable",
		message:  fmt.Sprintf("Decode service unreachable: %s\nScanning continues; attempts retry each tick", detail),
		tags:     []string{"tarmac", "decoder", "alert"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyCameraAttached(ctx context.Context, device string) error {
	data := payload{
		title:   "Tarmac - Camera Attached",
		message: fmt.Sprintf("Capture device attached: %s", strings.TrimSpace(device)),
		tags:    []string{"tarmac", "camera", "attached"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyCameraDetached(ctx context.Context, device string) error {
	data := payload{
		title:    "Tarmac - Camera Detached",
		message:  fmt.Sprintf("Capture device detached: %s\nScanning is degraded until it returns", strings.TrimSpace(device)),
		tags:     []string{"tarmac", "camera", "detached"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifySessionSummary(ctx context.Context, flight string, scanned, total int) error {
	flight = strings.TrimSpace(flight)

	var title, message string
	if total > 0 && scanned >= total {
		title = "Tarmac - Session Complete"
		message = fmt.Sprintf("%s: all %d disembarking passengers accounted for", flight, total)
	} else {
		title = "Tarmac - Session Ended"
		message = fmt.Sprintf("%s: %d of %d disembarking passengers accounted for", flight, scanned, total)
	}

	data := payload{
		title:   title,
		message: message,
		tags:    []string{"tarmac", "session", "completed"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyError(ctx context.Context, err error, contextLabel string) error {
	if !n.errors {
		return nil
	}
	var builder strings.Builder
	builder.WriteString("Error")
	if contextLabel = strings.TrimSpace(contextLabel); contextLabel != "" {
		builder.WriteString(" with ")
		builder.WriteString(contextLabel)
	}
	builder.WriteString(": ")
	if err != nil {
		builder.WriteString(strings.TrimSpace(err.Error()))
	} else {
		builder.WriteString("unknown")
	}

	data := payload{
		title:    "Tarmac - Error",
		message:  builder.String(),
		tags:     []string{"tarmac", "error", "alert"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	data := payload{
		title:    "Tarmac - Test",
		message:  "Notification system test",
		tags:     []string{"tarmac", "test"},
		priority: "low",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) send(ctx context.Context, data payload) error {
	if n == nil || n.client == nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(data.message))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if data.title != "" {
		req.Header.Set("Title", data.title)
	}
	if len(data.tags) > 0 {
		req.Header.Set("Tags", strings.Join(data.tags, ","))
	}
	if data.priority != "" && data.priority != "default" {
		req.Header.Set("Priority", data.priority)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

type noopService struct{}

func (noopService) NotifySessionStarted(context.Context, string, string, int) error { return nil }
func (noopService) NotifyPassengerMatched(context.Context, string, string) error    { return nil }
func (noopService) NotifyScanUnmatched(context.Context, string) error               { return nil }
func (noopService) NotifyManualMatch(context.Context, string, string) error         { return nil }
func (noopService) NotifyDecoderUnreachable(context.Context, error) error           { return nil }
func (noopService) NotifyCameraAttached(context.Context, string) error              { return nil }
func (noopService) NotifyCameraDetached(context.Context, string) error              { return nil }
func (noopService) NotifySessionSummary(context.Context, string, int, int) error    { return nil }
func (noopService) NotifyError(context.Context, error, string) error                { return nil }
func (noopService) TestNotification(context.Context) error                          { return nil }
