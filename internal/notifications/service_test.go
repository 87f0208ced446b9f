package notifications_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"tarmac/internal/config"
	"tarmac/internal/notifications"
)

type recordedRequest struct {
	title    string
	tags     string
	priority string
	body     string
}

func newRecordingServer(t *testing.T) (*httptest.Server, func() []recordedRequest) {
	t.Helper()
	var mu sync.Mutex
	var requests []recordedRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		mu.Lock()
		requests = append(requests, recordedRequest{
			title:    r.Header.Get("Title"),
			tags:     r.Header.Get("Tags"),
			priority: r.Header.Get("Priority"),
			body:     string(body),
		})
		mu.Unlock()
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(server.Close)
	return server, func() []recordedRequest {
		mu.Lock()
		defer mu.Unlock()
		out := make([]recordedRequest, len(requests))
		copy(out, requests)
		return out
	}
}

func serviceFor(t *testing.T, endpoint string) notifications.Service {
	t.Helper()
	cfg := config.Default()
	cfg.Notifications.NtfyTopic = endpoint
	cfg.Notifications.Matches = true
	cfg.Notifications.Unmatched = true
	cfg.Notifications.Errors = true
	return notifications.NewService(&cfg)
}

func TestNewServiceReturnsNoopWhenTopicMissing(t *testing.T) {
	cfg := config.Default()
	cfg.Notifications.NtfyTopic = ""
	svc := notifications.NewService(&cfg)
	if err := svc.NotifyPassengerMatched(context.Background(), "JOHN SMITH", "12A"); err != nil {
		t.Fatalf("expected noop notifier to return nil, got %v", err)
	}
}

func TestNotifyPassengerMatchedFormatsPayload(t *testing.T) {
	server, recorded := newRecordingServer(t)
	svc := serviceFor(t, server.URL)

	if err := svc.NotifyPassengerMatched(context.Background(), "JOHN SMITH", "12A"); err != nil {
		t.Fatalf("NotifyPassengerMatched() error = %v", err)
	}

	requests := recorded()
	if len(requests) != 1 {
		t.Fatalf("requests = %d, want 1", len(requests))
	}
	got := requests[0]
	if got.title != "Tarmac - Passenger Matched" {
		t.Fatalf("title = %q", got.title)
	}
	if got.body != "Accounted for: JOHN SMITH (seat 12A)" {
		t.Fatalf("body = %q", got.body)
	}
	if got.tags != "tarmac,scan,matched" {
		t.Fatalf("tags = %q", got.tags)
	}
}

func TestMatchNotificationsCanBeDisabled(t *testing.T) {
	server, recorded := newRecordingServer(t)
	cfg := config.Default()
	cfg.Notifications.NtfyTopic = server.URL
	cfg.Notifications.Matches = false
	svc := notifications.NewService(&cfg)

	if err := svc.NotifyPassengerMatched(context.Background(), "JOHN SMITH", "12A"); err != nil {
		t.Fatalf("NotifyPassengerMatched() error = %v", err)
	}
	if len(recorded()) != 0 {
		t.Fatal("disabled match notifications still sent a request")
	}
}

func TestNotifyDecoderUnreachableIsHighPriority(t *testing.T) {
	server, recorded := newRecordingServer(t)
	svc := serviceFor(t, server.URL)

	if err := svc.NotifyDecoderUnreachable(context.Background(), errors.New("dial tcp: refused")); err != nil {
		t.Fatalf("NotifyDecoderUnreachable() error = %v", err)
	}

	requests := recorded()
	if len(requests) != 1 {
		t.Fatalf("requests = %d, want 1", len(requests))
	}
	if requests[0].priority != "high" {
		t.Fatalf("priority = %q, want high", requests[0].priority)
	}
}

func TestNotifySessionSummaryCompleteAndPartial(t *testing.T) {
	server, recorded := newRecordingServer(t)
	svc := serviceFor(t, server.URL)

	if err := svc.NotifySessionSummary(context.Background(), "ET712", 34, 34); err != nil {
		t.Fatalf("NotifySessionSummary() error = %v", err)
	}
	if err := svc.NotifySessionSummary(context.Background(), "ET712", 30, 34); err != nil {
		t.Fatalf("NotifySessionSummary() error = %v", err)
	}

	requests := recorded()
	if len(requests) != 2 {
		t.Fatalf("requests = %d, want 2", len(requests))
	}
	if requests[0].title != "Tarmac - Session Complete" {
		t.Fatalf("complete title = %q", requests[0].title)
	}
	if requests[1].title != "Tarmac - Session Ended" {
		t.Fatalf("partial title = %q", requests[1].title)
	}
	if requests[1].body != "ET712: 30 of 34 disembarking passengers accounted for" {
		t.Fatalf("partial body = %q", requests[1].body)
	}
}

func TestSendSurfacesServerErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "topic over quota", http.StatusTooManyRequests)
	}))
	t.Cleanup(server.Close)
	svc := serviceFor(t, server.URL)

	if err := svc.TestNotification(context.Background()); err == nil {
		t.Fatal("expected error from non-2xx ntfy response")
	}
}
