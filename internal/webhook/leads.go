package webhook

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/leadhook/internal/model"
	"github.com/sells-group/leadhook/internal/notify"
	"github.com/sells-group/leadhook/internal/pipeline"
	"github.com/sells-group/leadhook/internal/resilience"
)

type crmStatus struct {
	Forwarded bool `json:"forwarded"`
	Status    int  `json:"status,omitempty"`
}

type zapierResponse struct {
	Status          string                  `json:"status"`
	Success         bool                    `json:"success"`
	Message         string                  `json:"message"`
	LeadID          string                  `json:"leadId"`
	Timestamp       string                  `json:"timestamp"`
	SMSSent         bool                    `json:"sms_sent"`
	SMSNotification notify.Outcome          `json:"smsNotification"`
	CRM             crmStatus               `json:"crm"`
	FollowUps       *notify.FollowUpOutcome `json:"followups,omitempty"`
}

type permanentErrorResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Error   string `json:"error"`
}

// handleZapier accepts a structured Thumbtack lead from Zapier, forwards it
// to the CRM when configured and alerts the owner by SMS.
func (s *Server) handleZapier(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	raw, err := decodeObject(r)
	if err != nil {
		zap.L().Error("webhook: decode zapier payload", zap.Error(err))
		writeJSON(w, decodeFailureStatus(err), errorResponse{Error: "Internal server error"})
		return
	}

	now := s.now()
	leadID := zapierLeadID(raw, now.UnixMilli())
	log := zap.L().With(zap.String("lead_id", leadID))
	log.Info("webhook: zapier lead received", zap.Int("fields", len(raw)))

	resp := zapierResponse{
		Status:    "success",
		Success:   true,
		Message:   "Lead processed successfully",
		LeadID:    leadID,
		Timestamp: s.timestamp(),
	}

	if s.notifier.CRMEnabled() {
		lead := pipeline.TransformZapier(raw, now)
		status, err := s.notifier.ForwardLead(ctx, lead)
		if err != nil {
			if resilience.IsPermanent(err) {
				log.Warn("webhook: crm rejected lead", zap.Int("status", status), zap.Error(err))
				writeJSON(w, http.StatusOK, permanentErrorResponse{
					Status:  "error",
					Message: "Permanent error - not retrying",
					Error:   err.Error(),
				})
				return
			}
			log.Error("webhook: crm forward failed", zap.Int("status", status), zap.Error(err))
			writeJSON(w, http.StatusInternalServerError, errorResponse{
				Error:   "Temporary error - please retry",
				Message: err.Error(),
			})
			return
		}
		resp.CRM = crmStatus{Forwarded: true, Status: status}
		followUps := s.notifier.FollowUp(ctx, lead)
		resp.FollowUps = &followUps
	}

	resp.SMSNotification = s.notifier.AlertOwner(ctx, notify.FormatZapierAlert(raw))
	resp.SMSSent = resp.SMSNotification.Success

	writeJSON(w, http.StatusOK, resp)
}

// zapierLeadID picks the caller's lead id, falling back to the customer
// name and finally a time-based id.
func zapierLeadID(raw map[string]any, unixMilli int64) string {
	for _, key := range []string{"leadId", "id", "customer_name"} {
		if v := pipeline.Stringify(raw[key]); v != "" {
			return v
		}
	}
	return fmt.Sprintf("lead_%d", unixMilli)
}

type emailLeadResponse struct {
	Success         bool              `json:"success"`
	Message         string            `json:"message"`
	Lead            *model.LeadRecord `json:"lead,omitempty"`
	CallScript      string            `json:"call_script,omitempty"`
	SMSSent         bool              `json:"sms_sent"`
	SMSNotification *notify.Outcome   `json:"smsNotification,omitempty"`
}

// handleEmail processes a forwarded email from Mailgun, SendGrid or a
// generic forwarder.
func (s *Server) handleEmail(w http.ResponseWriter, r *http.Request) {
	payload, err := decodeEmailPayload(r)
	if err != nil {
		zap.L().Error("webhook: decode email payload", zap.Error(err))
		writeJSON(w, decodeFailureStatus(err), errorResponse{Error: err.Error()})
		return
	}

	res := s.extractor.ProcessEmail(payload)
	if !res.IsLead {
		zap.L().Info("webhook: email is not a thumbtack lead",
			zap.String("shape", string(res.Shape)),
			zap.String("subject", res.Message.Subject),
		)
		writeJSON(w, http.StatusOK, emailLeadResponse{
			Success: true,
			Message: "Email received but not a Thumbtack lead",
		})
		return
	}

	rec := *res.Lead
	script := s.notifier.CallScript(rec)
	zap.L().Info("webhook: thumbtack lead extracted",
		zap.String("shape", string(res.Shape)),
		zap.String("name", rec.Name),
		zap.Strings("indicators", res.Indicators),
		zap.String("call_script", script),
	)

	sms := s.notifier.AlertOwner(r.Context(), s.notifier.LeadAlert(rec))
	writeJSON(w, http.StatusOK, emailLeadResponse{
		Success:         true,
		Message:         "Thumbtack lead processed successfully",
		Lead:            &rec,
		CallScript:      script,
		SMSSent:         sms.Success,
		SMSNotification: &sms,
	})
}

// handleDirect accepts an already-extracted lead record and alerts the
// owner without classification.
func (s *Server) handleDirect(w http.ResponseWriter, r *http.Request) {
	var rec model.LeadRecord
	if err := json.NewDecoder(r.Body).Decode(&rec); err != nil {
		zap.L().Error("webhook: decode direct lead", zap.Error(err))
		writeJSON(w, decodeFailureStatus(err), errorResponse{Error: err.Error()})
		return
	}
	if rec.ReceivedAt.IsZero() {
		rec.ReceivedAt = s.now().UTC()
	}

	script := s.notifier.CallScript(rec)
	zap.L().Info("webhook: direct lead received",
		zap.String("name", rec.Name),
		zap.String("call_script", script),
	)

	sms := s.notifier.AlertOwner(r.Context(), s.notifier.LeadAlert(rec))
	writeJSON(w, http.StatusOK, emailLeadResponse{
		Success:         true,
		Message:         "Lead processed successfully",
		CallScript:      script,
		SMSSent:         sms.Success,
		SMSNotification: &sms,
	})
}

// decodeFailureStatus maps a body decoding error to a response status:
// 413 when the body exceeded maxBodyBytes, 500 otherwise.
func decodeFailureStatus(err error) int {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return http.StatusRequestEntityTooLarge
	}
	return http.StatusInternalServerError
}

// decodeObject reads a JSON object body. Arrays, scalars and null are
// rejected.
func decodeObject(r *http.Request) (map[string]any, error) {
	var v any
	if err := json.NewDecoder(r.Body).Decode(&v); err != nil {
		return nil, eris.Wrap(err, "webhook: decode json body")
	}
	obj, ok := v.(map[string]any)
	if !ok {
		return nil, eris.Errorf("webhook: expected a json object, got %T", v)
	}
	return obj, nil
}

// decodeEmailPayload flattens a JSON, urlencoded or multipart body into a
// field map. An empty body or an unrecognized content type yields an empty
// payload.
func decodeEmailPayload(r *http.Request) (map[string]any, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	switch mediaType {
	case "application/json", "":
		payload, err := decodeObject(r)
		if errors.Is(err, io.EOF) {
			return map[string]any{}, nil
		}
		return payload, err
	case "application/x-www-form-urlencoded":
		if err := r.ParseForm(); err != nil {
			return nil, eris.Wrap(err, "webhook: parse form body")
		}
		return pipeline.FormPayload(r.PostForm), nil
	case "multipart/form-data":
		if err := r.ParseMultipartForm(maxBodyBytes); err != nil {
			return nil, eris.Wrap(err, "webhook: parse multipart body")
		}
		return pipeline.FormPayload(r.MultipartForm.Value), nil
	default:
		zap.L().Debug("webhook: unsupported email content type", zap.String("content_type", mediaType))
		return map[string]any{}, nil
	}
}
