package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"tarmac/internal/config"
	"tarmac/internal/logging"
	"tarmac/internal/scan"
)

type apiServer struct {
	bind   string
	logger *slog.Logger
	daemon *Daemon

	mu       sync.Mutex
	listener net.Listener
	server   *http.Server
}

// RecordPayload is the wire form of one scan record, shared with the
// control client.
type RecordPayload struct {
	ID            string    `json:"id"`
	Success       bool      `json:"success"`
	Source        string    `json:"source"`
	Matched       bool      `json:"matched"`
	PassengerName string    `json:"passenger_name,omitempty"`
	FlightNumber  string    `json:"flight_number,omitempty"`
	Seat          string    `json:"seat,omitempty"`
	PNR           string    `json:"pnr,omitempty"`
	EntryName     string    `json:"entry_name,omitempty"`
	EntrySeat     string    `json:"entry_seat,omitempty"`
	ScannedAt     time.Time `json:"scanned_at"`
}

type startSessionRequest struct {
	FlightNumber string `json:"flight_number"`
	Date         string `json:"date"`
}

type manualMatchRequest struct {
	Identifier string `json:"identifier"`
}

type messageResponse struct {
	OK      bool   `json:"ok"`
	Message string `json:"message,omitempty"`
}

func newAPIServer(cfg *config.Config, d *Daemon, logger *slog.Logger) (*apiServer, error) {
	bind := strings.TrimSpace(cfg.Daemon.APIBind)
	if bind == "" {
		return nil, errors.New("daemon.api_bind is required")
	}

	srv := &apiServer{
		bind:   bind,
		logger: logging.NewComponentLogger(logger, "api"),
		daemon: d,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/status", srv.handleStatus)
	mux.HandleFunc("/api/session", srv.handleSession)
	mux.HandleFunc("/api/session/scan", srv.handleScan)
	mux.HandleFunc("/api/session/manual-match", srv.handleManualMatch)
	mux.HandleFunc("/api/session/records", srv.handleRecords)
	mux.HandleFunc("/api/session/manifest", srv.handleManifest)
	mux.HandleFunc("/api/notify/test", srv.handleTestNotification)

	srv.server = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return srv, nil
}

func (s *apiServer) start(ctx context.Context) error {
	if s == nil {
		return nil
	}
	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		return fmt.Errorf("api listen: %w", err)
	}
	s.mu.Lock()
	s.listener = listener
	s.mu.Unlock()

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("api server error", logging.Error(err))
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}()

	s.logger.Info("api server listening",
		logging.String(logging.FieldEventType, "api_listening"),
		logging.String("address", listener.Addr().String()),
	)
	return nil
}

func (s *apiServer) stop() {
	if s == nil {
		return
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = s.server.Shutdown(shutdownCtx)

	s.mu.Lock()
	if s.listener != nil {
		_ = s.listener.Close()
		s.listener = nil
	}
	s.mu.Unlock()
}

func (s *apiServer) addr() string {
	if s == nil {
		return ""
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

func (s *apiServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	s.writeJSON(w, http.StatusOK, s.daemon.Status(r.Context()))
}

func (s *apiServer) handleSession(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		var req startSessionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			s.writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if strings.TrimSpace(req.FlightNumber) == "" {
			s.writeError(w, http.StatusBadRequest, "flight_number is required")
			return
		}
		status, err := s.daemon.StartSession(r.Context(), req.FlightNumber, req.Date)
		if err != nil {
			s.writeError(w, http.StatusBadGateway, err.Error())
			return
		}
		s.writeJSON(w, http.StatusCreated, status)
	case http.MethodDelete:
		if err := s.daemon.StopSession(r.Context()); err != nil {
			if errors.Is(err, ErrNoActiveSession) {
				s.writeError(w, http.StatusNotFound, err.Error())
				return
			}
			s.writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		s.writeJSON(w, http.StatusOK, messageResponse{OK: true, Message: "session stopped"})
	default:
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *apiServer) handleScan(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if err := s.daemon.Scan(r.Context()); err != nil {
		if errors.Is(err, ErrNoActiveSession) || errors.Is(err, scan.ErrSessionStopped) {
			s.writeError(w, http.StatusNotFound, err.Error())
			return
		}
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, messageResponse{OK: true})
}

func (s *apiServer) handleManualMatch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var req manualMatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Identifier) == "" {
		s.writeError(w, http.StatusBadRequest, "identifier is required")
		return
	}
	entry, err := s.daemon.ManualMatch(r.Context(), req.Identifier)
	if err != nil {
		if errors.Is(err, ErrNoActiveSession) {
			s.writeError(w, http.StatusNotFound, err.Error())
			return
		}
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, messageResponse{
		OK:      true,
		Message: fmt.Sprintf("accounted for %s (seat %s)", entry.PassengerName, entry.Seat),
	})
}

func (s *apiServer) handleRecords(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	records, err := s.daemon.Records(r.Context())
	if err != nil {
		if errors.Is(err, ErrNoActiveSession) {
			s.writeError(w, http.StatusNotFound, err.Error())
			return
		}
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	payload := make([]RecordPayload, 0, len(records))
	for _, record := range records {
		payload = append(payload, ToRecordPayload(record))
	}
	s.writeJSON(w, http.StatusOK, payload)
}

func (s *apiServer) handleManifest(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	entries, err := s.daemon.Reconciliation(r.Context())
	if err != nil {
		if errors.Is(err, ErrNoActiveSession) {
			s.writeError(w, http.StatusNotFound, err.Error())
			return
		}
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if entries == nil {
		entries = []ReconciliationEntry{}
	}
	s.writeJSON(w, http.StatusOK, entries)
}

func (s *apiServer) handleTestNotification(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	ok, message, err := s.daemon.TestNotification(r.Context())
	if err != nil {
		s.writeError(w, http.StatusBadGateway, fmt.Sprintf("%s: %v", message, err))
		return
	}
	s.writeJSON(w, http.StatusOK, messageResponse{OK: ok, Message: message})
}

// ToRecordPayload converts a scan record to its wire form.
func ToRecordPayload(record scan.ScanRecord) RecordPayload {
	payload := RecordPayload{
		ID:            record.ID,
		Success:       record.Success,
		Source:        string(record.Source),
		Matched:       record.Matched,
		PassengerName: record.Pass.PassengerName,
		FlightNumber:  record.Pass.FlightNumber,
		Seat:          record.Pass.Seat,
		PNR:           record.Pass.PNR,
		ScannedAt:     record.ScannedAt,
	}
	if record.Entry != nil {
		payload.EntryName = record.Entry.PassengerName
		payload.EntrySeat = record.Entry.Seat
	}
	return payload
}

func (s *apiServer) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Warn("encode api response failed", logging.Error(err))
	}
}

func (s *apiServer) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}
