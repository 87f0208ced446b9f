package daemon_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"tarmac/internal/daemon"
	"tarmac/internal/testsupport"
)

func startAPIDaemon(t *testing.T) (*daemon.Daemon, string) {
	t.Helper()
	d := newTestDaemon(t, &fakeFetcher{snapshot: testsupport.Snapshot()})
	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	addr := d.APIAddr()
	if addr == "" {
		t.Fatal("api server reported no address")
	}
	return d, "http://" + addr
}

func TestAPIStatusEndpoint(t *testing.T) {
	_, base := startAPIDaemon(t)

	resp, err := http.Get(base + "/api/status")
	if err != nil {
		t.Fatalf("GET /api/status: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status code = %d", resp.StatusCode)
	}

	var status daemon.Status
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		t.Fatalf("decode status: %v", err)
	}
	if !status.Running {
		t.Fatal("api reported daemon not running")
	}
	if status.Session != nil {
		t.Fatal("api reported a session before any flight selection")
	}
}

func TestAPISessionLifecycle(t *testing.T) {
	_, base := startAPIDaemon(t)

	body, _ := json.Marshal(map[string]string{"flight_number": "ET712", "date": "2026-03-14"})
	resp, err := http.Post(base+"/api/session", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("POST /api/session: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("session create status = %d", resp.StatusCode)
	}

	var session daemon.SessionStatus
	if err := json.NewDecoder(resp.Body).Decode(&session); err != nil {
		t.Fatalf("decode session: %v", err)
	}
	if session.FlightNumber != "ET712" || session.Disembarking != 2 {
		t.Fatalf("session = %+v", session)
	}

	matchBody, _ := json.Marshal(map[string]string{"identifier": "ABC123"})
	matchResp, err := http.Post(base+"/api/session/manual-match", "application/json", bytes.NewReader(matchBody))
	if err != nil {
		t.Fatalf("POST manual-match: %v", err)
	}
	defer matchResp.Body.Close()
	if matchResp.StatusCode != http.StatusOK {
		t.Fatalf("manual-match status = %d", matchResp.StatusCode)
	}

	recordsResp, err := http.Get(base + "/api/session/records")
	if err != nil {
		t.Fatalf("GET records: %v", err)
	}
	defer recordsResp.Body.Close()
	var records []map[string]any
	if err := json.NewDecoder(recordsResp.Body).Decode(&records); err != nil {
		t.Fatalf("decode records: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("records = %d, want 1", len(records))
	}
	if records[0]["source"] != "manual" {
		t.Fatalf("record source = %v", records[0]["source"])
	}

	req, _ := http.NewRequest(http.MethodDelete, base+"/api/session", nil)
	deleteResp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("DELETE /api/session: %v", err)
	}
	defer deleteResp.Body.Close()
	if deleteResp.StatusCode != http.StatusOK {
		t.Fatalf("session delete status = %d", deleteResp.StatusCode)
	}
}

func TestAPIScanWithoutSessionReturnsNotFound(t *testing.T) {
	_, base := startAPIDaemon(t)

	resp, err := http.Post(base+"/api/session/scan", "application/json", nil)
	if err != nil {
		t.Fatalf("POST scan: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("scan status = %d, want %d", resp.StatusCode, http.StatusNotFound)
	}
}

func TestAPIMethodGuards(t *testing.T) {
	_, base := startAPIDaemon(t)

	for _, tt := range []struct {
		method string
		path   string
	}{
		{http.MethodPost, "/api/status"},
		{http.MethodGet, "/api/session/scan"},
		{http.MethodPut, "/api/session"},
	} {
		req, _ := http.NewRequest(tt.method, base+tt.path, nil)
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			t.Fatalf("%s %s: %v", tt.method, tt.path, err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusMethodNotAllowed {
			t.Fatalf("%s %s status = %d, want 405", tt.method, tt.path, resp.StatusCode)
		}
	}
}
