package main

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sync"

	"i4.energy/across/ltelink/at"
	"i4.energy/across/ltelink/modem"
)

// Link serializes access to the session, radio and probe. They all share
// one modem transport and expect a single logical caller, while HTTP
// handlers and the maintenance loop run on separate goroutines.
type Link struct {
	mu      sync.Mutex
	session *modem.Session
	radio   *modem.LTERadio
	probe   *modem.Probe
}

// NewLink wraps the collaborators behind one lock.
func NewLink(session *modem.Session, radio *modem.LTERadio, probe *modem.Probe) *Link {
	return &Link{session: session, radio: radio, probe: probe}
}

// Send delivers payload over the persistent uplink.
func (l *Link) Send(ctx context.Context, payload []byte) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.session.Send(ctx, payload, 0)
}

// Maintain runs one session maintenance pass and refreshes the signal
// quality figure the adaptive timeout policy feeds on.
func (l *Link) Maintain(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if q, err := l.radio.SignalQuality(ctx); err == nil {
		l.session.Engine().Signal().SetQuality(q)
	}
	return l.session.Maintain(ctx)
}

// LinkStatus is a point-in-time view of the uplink.
type LinkStatus struct {
	State             string `json:"state"`
	HardFailed        bool   `json:"hard_failed"`
	ReconnectAttempts int    `json:"reconnect_attempts"`
	SignalQuality     int    `json:"signal_quality"`
}

// Status reports the session state without touching the modem.
func (l *Link) Status() LinkStatus {
	l.mu.Lock()
	defer l.mu.Unlock()
	return LinkStatus{
		State:             l.session.State().String(),
		HardFailed:        l.session.HardFailed(),
		ReconnectAttempts: l.session.ReconnectAttempts(),
		SignalQuality:     l.session.Engine().Signal().Quality(),
	}
}

// Diagnostics collects a modem health snapshot.
func (l *Link) Diagnostics(ctx context.Context) modem.Report {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.probe.Run(ctx)
}

// Close tears the uplink down.
func (l *Link) Close(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.session.Close(ctx)
}

// Server handles incoming HTTP requests for interacting with the
// persistent modem uplink
type Server struct {
	Logger *slog.Logger
	Link   *Link
}

// ServeHTTP implements the http.Handler interface for the Server struct
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /send", s.handleSend)
	mux.HandleFunc("GET /status", s.handleStatus)
	mux.HandleFunc("GET /diagnostics", s.handleDiagnostics)
	mux.ServeHTTP(w, r)
}

func (s *Server) sendError(w http.ResponseWriter, message string, statusCode int) {
	if message == "" {
		w.WriteHeader(statusCode)
		return
	}

	type ErrorResponse struct {
		Message string `json:"message"`
	}
	resp := ErrorResponse{Message: message}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(resp)
}

func (s *Server) sendJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

// handleSend processes incoming HTTP POST requests to push data over the
// persistent uplink
func (s *Server) handleSend(w http.ResponseWriter, r *http.Request) {
	type SendRequest struct {
		Payload string `json:"payload"`
	}

	var req SendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.sendError(w, err.Error(), http.StatusBadRequest)
		return
	}

	if req.Payload == "" {
		s.sendError(w, "'payload' field is required", http.StatusBadRequest)
		return
	}

	if err := s.Link.Send(r.Context(), []byte(req.Payload)); err != nil {
		s.Logger.Error("Failed to send payload", "error", err, "payload_length", len(req.Payload))
		status := http.StatusInternalServerError
		if errors.Is(err, modem.ErrNoSession) || errors.Is(err, modem.ErrBudgetExhausted) {
			status = http.StatusServiceUnavailable
		}
		s.sendError(w, err.Error(), status)
		return
	}

	s.Logger.Info("Payload sent successfully", "payload_length", len(req.Payload))
	w.WriteHeader(http.StatusOK)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.sendJSON(w, s.Link.Status())
}

func (s *Server) handleDiagnostics(w http.ResponseWriter, r *http.Request) {
	report := s.Link.Diagnostics(r.Context())
	if report.SignalQuality != at.QualityUnknown {
		s.Logger.Debug("Diagnostics collected", "signal_quality", report.SignalQuality)
	}
	s.sendJSON(w, report)
}
