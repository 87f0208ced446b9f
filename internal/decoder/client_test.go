package decoder

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestDecodeSuccess(t *testing.T) {
	var gotBody decodeRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/decode" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("decode request: %v", err)
		}
		_, _ = w.Write([]byte(`{"success": true, "decoded_text": "M1SMITH/JOHN", "kind": "barcode"}`))
	}))
	defer server.Close()

	client := NewClient(Config{BaseURL: server.URL})
	result, err := client.Decode(context.Background(), []byte("jpeg-bytes"))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !result.Success || result.Text != "M1SMITH/JOHN" || result.Kind != KindBarcode {
		t.Fatalf("result = %+v", result)
	}
	if gotBody.ImageB64 != base64.StdEncoding.EncodeToString([]byte("jpeg-bytes")) {
		t.Fatalf("image payload = %q", gotBody.ImageB64)
	}
}

func TestDecodeNoBarcodeIsNotAnError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"success": false, "kind": "barcode", "error": "no barcode visible"}`))
	}))
	defer server.Close()

	client := NewClient(Config{BaseURL: server.URL})
	result, err := client.Decode(context.Background(), []byte{1})
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if result.Success {
		t.Fatalf("result = %+v", result)
	}
	if result.Err != "no barcode visible" {
		t.Fatalf("service error = %q", result.Err)
	}
}

func TestDecodeServerErrorIsConnectivity(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := NewClient(Config{BaseURL: server.URL})
	_, err := client.Decode(context.Background(), []byte{1})
	if err == nil || !IsConnectivity(err) {
		t.Fatalf("expected connectivity error, got %v", err)
	}
}

func TestDecodeSingleRequestByDefault(t *testing.T) {
	var calls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls++
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := NewClient(Config{BaseURL: server.URL})
	_, err := client.Decode(context.Background(), []byte{1})
	if err == nil || !IsConnectivity(err) {
		t.Fatalf("expected connectivity error, got %v", err)
	}
	if calls != 1 {
		t.Fatalf("calls = %d, want one request per Decode without opt-in retries", calls)
	}
}

func TestDecodeBadRequestIsNotConnectivity(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "image too small", http.StatusBadRequest)
	}))
	defer server.Close()

	client := NewClient(Config{BaseURL: server.URL})
	_, err := client.Decode(context.Background(), []byte{1})
	if err == nil || IsConnectivity(err) {
		t.Fatalf("expected non-connectivity error, got %v", err)
	}
}

func TestDecodeTransportFailureIsConnectivity(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	server.Close() // connection refused from here on

	client := NewClient(Config{BaseURL: server.URL})
	_, err := client.Decode(context.Background(), []byte{1})
	if err == nil || !IsConnectivity(err) {
		t.Fatalf("expected connectivity error, got %v", err)
	}
}

func TestDecodeRetriesAvailabilityFailures(t *testing.T) {
	var calls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls++
		if calls == 1 {
			w.Header().Set("Retry-After", "1")
			http.Error(w, "overloaded", http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"success": true, "decoded_text": "M1SMITH/JOHN", "kind": "barcode"}`))
	}))
	defer server.Close()

	var slept []time.Duration
	client := NewClient(Config{BaseURL: server.URL},
		WithRetryMaxAttempts(3),
		WithSleeper(func(d time.Duration) { slept = append(slept, d) }),
	)
	result, err := client.Decode(context.Background(), []byte{1})
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !result.Success {
		t.Fatalf("result = %+v", result)
	}
	if calls != 2 {
		t.Fatalf("calls = %d", calls)
	}
	if len(slept) != 1 || slept[0] != time.Second {
		t.Fatalf("slept = %v, want one Retry-After second", slept)
	}
}

func TestDecodeDoesNotRetryClientErrors(t *testing.T) {
	var calls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls++
		http.Error(w, "image too small", http.StatusBadRequest)
	}))
	defer server.Close()

	client := NewClient(Config{BaseURL: server.URL},
		WithRetryMaxAttempts(3),
		WithSleeper(func(time.Duration) {}),
	)
	if _, err := client.Decode(context.Background(), []byte{1}); err == nil {
		t.Fatal("expected error")
	}
	if calls != 1 {
		t.Fatalf("calls = %d, want no retry on 400", calls)
	}
}

func TestDecodeOCRKind(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"success": true, "decoded_text": "SEAT: 12A", "kind": "ocr"}`))
	}))
	defer server.Close()

	client := NewClient(Config{BaseURL: server.URL})
	result, err := client.Decode(context.Background(), []byte{1})
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if result.Kind != KindOCR {
		t.Fatalf("kind = %q", result.Kind)
	}
}
