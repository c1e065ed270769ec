package webhook

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"go.uber.org/zap"
)

type healthResponse struct {
	Status           string   `json:"status"`
	Timestamp        string   `json:"timestamp"`
	Service          string   `json:"service"`
	Environment      string   `json:"environment"`
	TwilioConfigured bool     `json:"twilio_configured"`
	CRMConfigured    bool     `json:"crm_configured"`
	OAuthConfigured  bool     `json:"oauth_configured"`
	CRMCircuit       string   `json:"crm_circuit,omitempty"`
	Endpoints        []string `json:"endpoints"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	var endpoints []string
	for _, rt := range s.routes() {
		endpoints = append(endpoints, rt.Endpoint())
	}
	writeJSON(w, http.StatusOK, healthResponse{
		Status:           "healthy",
		Timestamp:        s.timestamp(),
		Service:          ServiceName,
		Environment:      s.cfg.Server.Environment,
		TwilioConfigured: s.notifier.SMSEnabled(),
		CRMConfigured:    s.notifier.CRMEnabled(),
		OAuthConfigured:  s.oauth != nil,
		CRMCircuit:       s.notifier.CRMCircuit(),
		Endpoints:        endpoints,
	})
}

// handleTest echoes the request body so integrators can check connectivity.
func (s *Server) handleTest(w http.ResponseWriter, r *http.Request) {
	var received any
	if err := json.NewDecoder(r.Body).Decode(&received); err != nil && !errors.Is(err, io.EOF) {
		zap.L().Warn("webhook: decode test payload", zap.Error(err))
		writeJSON(w, decodeFailureStatus(err), errorResponse{Error: "Internal server error"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "test successful",
		"received":  received,
		"timestamp": s.timestamp(),
	})
}

// handleTestSMS sends a canned SMS to phone_number, or the owner phone.
func (s *Server) handleTestSMS(w http.ResponseWriter, r *http.Request) {
	if !s.notifier.SMSEnabled() {
		writeJSON(w, http.StatusInternalServerError, errorResponse{
			Error:   "Twilio not configured",
			Message: "Please check your Twilio environment variables",
		})
		return
	}

	var req struct {
		PhoneNumber string `json:"phone_number"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Invalid request body", Details: err.Error()})
		return
	}
	to := req.PhoneNumber
	if to == "" {
		to = s.notifier.OwnerNumber()
	}

	out, err := s.notifier.SendTestSMS(r.Context(), to)
	if err != nil {
		zap.L().Error("webhook: test sms failed", zap.String("to", to), zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, errorResponse{
			Error:   "Failed to send SMS",
			Details: err.Error(),
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":    true,
		"messageSid": out.ID,
		"to":         to,
		"message":    "Test SMS sent successfully!",
	})
}

type notFoundResponse struct {
	Error              string            `json:"error"`
	Method             string            `json:"method"`
	Path               string            `json:"path"`
	AvailableEndpoints map[string]string `json:"available_endpoints"`
}

func (s *Server) handleNotFound(w http.ResponseWriter, r *http.Request) {
	available := make(map[string]string)
	for _, rt := range s.routes() {
		available[rt.Endpoint()] = rt.Description()
	}
	writeJSON(w, http.StatusNotFound, notFoundResponse{
		Error:              "Endpoint not found",
		Method:             r.Method,
		Path:               r.URL.RequestURI(),
		AvailableEndpoints: available,
	})
}
