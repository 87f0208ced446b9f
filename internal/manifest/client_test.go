package manifest

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

const manifestPayload = `{
	"flight_number": "ET0100",
	"route": "JFK-ADD-LHR",
	"total_passengers": 214,
	"disembarking_count": 2,
	"disembarking": [
		{"id": "p-1", "passenger_name": "JOHN SMITH", "seat": "12A", "pnr": "ABC123"},
		{"id": "p-2", "passenger_name": "ANNA OKONKWO", "seat": "14C", "pnr": "QX9Z7P"}
	]
}`

func TestFetchReturnsSnapshot(t *testing.T) {
	var gotPath, gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(manifestPayload))
	}))
	defer server.Close()

	fetchedAt := time.Date(2026, 9, 1, 10, 0, 0, 0, time.UTC)
	client := NewClient(
		ClientConfig{BaseURL: server.URL, APIKey: "secret"},
		WithClock(func() time.Time { return fetchedAt }),
	)

	snapshot, err := client.Fetch(context.Background(), "add", "et0100", "2026-09-01")
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if gotPath != "/stations/ADD/flights/ET0100/manifest" {
		t.Fatalf("path = %q", gotPath)
	}
	if gotAuth != "Bearer secret" {
		t.Fatalf("auth header = %q", gotAuth)
	}
	if snapshot.FlightNumber != "ET0100" || snapshot.Station != "ADD" {
		t.Fatalf("snapshot header = %+v", snapshot)
	}
	if len(snapshot.Disembarking) != 2 || snapshot.DisembarkingCount != 2 {
		t.Fatalf("disembarking = %+v", snapshot.Disembarking)
	}
	if !snapshot.FetchedAt.Equal(fetchedAt) {
		t.Fatalf("fetched at = %v", snapshot.FetchedAt)
	}
	if snapshot.Disembarking[0].Seat != "12A" {
		t.Fatalf("first entry = %+v", snapshot.Disembarking[0])
	}
}

func TestFetchSurfacesHTTPErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "manifest unavailable", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := NewClient(ClientConfig{BaseURL: server.URL})
	_, err := client.Fetch(context.Background(), "ADD", "ET0100", "2026-09-01")
	var statusErr *httpStatusError
	if !errors.As(err, &statusErr) || statusErr.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 status error, got %v", err)
	}
}

func TestFetchRejectsIncompleteResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"route": "JFK-ADD"}`))
	}))
	defer server.Close()

	client := NewClient(ClientConfig{BaseURL: server.URL})
	if _, err := client.Fetch(context.Background(), "ADD", "ET0100", "2026-09-01"); err == nil {
		t.Fatal("expected error for response missing flight number")
	}
}

func TestFetchValidatesArguments(t *testing.T) {
	client := NewClient(ClientConfig{BaseURL: "https://ops.example.com"})
	for _, tc := range []struct{ station, flight, date string }{
		{"", "ET0100", "2026-09-01"},
		{"ADD", "", "2026-09-01"},
		{"ADD", "ET0100", ""},
	} {
		if _, err := client.Fetch(context.Background(), tc.station, tc.flight, tc.date); err == nil {
			t.Fatalf("expected argument error for %+v", tc)
		}
	}
}
