// Package notify delivers lead notifications to the business owner by SMS
// and hands structured leads to the CRM.
package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/leadhook/internal/model"
	"github.com/sells-group/leadhook/internal/resilience"
	"github.com/sells-group/leadhook/pkg/pcm"
	"github.com/sells-group/leadhook/pkg/twilio"
)

// Follow-up task settings for leads accepted by the CRM.
const (
	followUpDelay    = 24 * time.Hour
	followUpPriority = "high"
)

// Outcome reports a single outbound dispatch. It is embedded in webhook
// responses so callers can see a soft failure.
type Outcome struct {
	Success bool   `json:"success"`
	Skipped bool   `json:"skipped,omitempty"`
	ID      string `json:"sid,omitempty"`
	Error   string `json:"error,omitempty"`
}

// FollowUpOutcome reports the two independent post-CRM actions.
type FollowUpOutcome struct {
	SMS  Outcome `json:"sms"`
	Task Outcome `json:"task"`
}

// Settings holds phone numbers and branding for outbound messages.
type Settings struct {
	FromNumber   string
	OwnerNumber  string
	BusinessName string
}

// Dispatcher fans lead notifications out to the SMS gateway and the CRM.
// Either client may be nil, which disables that channel.
type Dispatcher struct {
	sms      twilio.Client
	crm      pcm.Client
	settings Settings
	breaker  *resilience.Breaker
	now      func() time.Time
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithBreaker routes CRM lead submissions through b.
func WithBreaker(b *resilience.Breaker) Option {
	return func(d *Dispatcher) { d.breaker = b }
}

// NewDispatcher creates a Dispatcher. Pass nil for an unconfigured client.
func NewDispatcher(settings Settings, sms twilio.Client, crm pcm.Client, opts ...Option) *Dispatcher {
	if settings.BusinessName == "" {
		settings.BusinessName = DefaultBusinessName
	}
	d := &Dispatcher{
		sms:      sms,
		crm:      crm,
		settings: settings,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// SMSEnabled reports whether an SMS gateway is configured.
func (d *Dispatcher) SMSEnabled() bool { return d.sms != nil }

// CRMEnabled reports whether the CRM client is configured.
func (d *Dispatcher) CRMEnabled() bool { return d.crm != nil }

// BusinessName returns the name used to sign messages.
func (d *Dispatcher) BusinessName() string { return d.settings.BusinessName }

// CRMCircuit reports the CRM breaker position, or "" when none is installed.
func (d *Dispatcher) CRMCircuit() string {
	if d.breaker == nil {
		return ""
	}
	return d.breaker.State().String()
}

// OwnerNumber returns the phone that receives lead alerts.
func (d *Dispatcher) OwnerNumber() string { return d.settings.OwnerNumber }

// LeadAlert renders the owner alert for an email lead.
func (d *Dispatcher) LeadAlert(rec model.LeadRecord) string {
	return FormatLeadAlert(rec, d.settings.BusinessName, d.now())
}

// CallScript renders the call script for an email lead.
func (d *Dispatcher) CallScript(rec model.LeadRecord) string {
	return FormatCallScript(rec, d.settings.BusinessName)
}

// AlertOwner texts body to the owner. Failures are logged and reported in
// the Outcome, never returned.
func (d *Dispatcher) AlertOwner(ctx context.Context, body string) Outcome {
	if d.sms == nil {
		return Outcome{Skipped: true, Error: "sms not configured"}
	}
	if d.settings.OwnerNumber == "" {
		zap.L().Warn("notify: owner phone number not configured, skipping alert")
		return Outcome{Skipped: true, Error: "owner phone number not configured"}
	}

	msg, err := d.sms.SendMessage(ctx, twilio.MessageRequest{
		To:   d.settings.OwnerNumber,
		From: d.settings.FromNumber,
		Body: body,
	})
	if err != nil {
		zap.L().Error("notify: sms alert failed", zap.Error(err))
		return Outcome{Error: err.Error()}
	}
	zap.L().Info("notify: sms alert sent", zap.String("sid", msg.SID))
	return Outcome{Success: true, ID: msg.SID}
}

// SendTestSMS sends TestSMSBody to the given number, or to the owner when
// to is empty.
func (d *Dispatcher) SendTestSMS(ctx context.Context, to string) (Outcome, error) {
	if d.sms == nil {
		return Outcome{}, eris.New("notify: sms not configured")
	}
	if to == "" {
		to = d.settings.OwnerNumber
	}
	msg, err := d.sms.SendMessage(ctx, twilio.MessageRequest{
		To:   to,
		From: d.settings.FromNumber,
		Body: TestSMSBody,
	})
	if err != nil {
		return Outcome{Error: err.Error()}, eris.Wrap(err, "notify: send test sms")
	}
	return Outcome{Success: true, ID: msg.SID}, nil
}

// ForwardLead submits lead to the CRM and returns the response status.
// A zero status means no response was received.
func (d *Dispatcher) ForwardLead(ctx context.Context, lead model.Lead) (int, error) {
	if d.crm == nil {
		return 0, eris.New("notify: crm not configured")
	}
	var status int
	submit := func(ctx context.Context) error {
		var err error
		status, err = d.crm.CreateLead(ctx, lead)
		return err
	}

	var err error
	if d.breaker != nil {
		err = d.breaker.Do(ctx, submit)
	} else {
		err = submit(ctx)
	}
	if err != nil {
		return status, eris.Wrap(err, "notify: forward lead")
	}
	zap.L().Info("notify: lead forwarded to crm",
		zap.Int("status", status),
		zap.String("external_lead_id", model.Deref(lead.ExternalLeadID)),
	)
	return status, nil
}

// FollowUp texts the customer (when a phone is known) and schedules a CRM
// follow-up task. The two actions are independent; neither failure is
// returned.
func (d *Dispatcher) FollowUp(ctx context.Context, lead model.Lead) FollowUpOutcome {
	var out FollowUpOutcome
	if d.crm == nil {
		out.SMS = Outcome{Skipped: true, Error: "crm not configured"}
		out.Task = out.SMS
		return out
	}

	leadID := model.Deref(lead.ExternalLeadID)
	log := zap.L().With(zap.String("external_lead_id", leadID))

	if phone := model.Deref(lead.Customer.Phone); phone != "" {
		err := d.crm.SendSMS(ctx, pcm.SMSRequest{
			To:      phone,
			Message: customerThanks(model.Deref(lead.Customer.FirstName)),
			LeadID:  leadID,
		})
		if err != nil {
			log.Warn("notify: follow-up sms failed", zap.Error(err))
			out.SMS = Outcome{Error: err.Error()}
		} else {
			out.SMS = Outcome{Success: true}
		}
	} else {
		out.SMS = Outcome{Skipped: true}
	}

	err := d.crm.CreateTask(ctx, pcm.Task{
		Title:       followUpTitle(lead),
		Description: fmt.Sprintf("New %s lead from Thumbtack", model.Deref(lead.ServiceRequest.Category)),
		DueDate:     d.now().UTC().Add(followUpDelay),
		LeadID:      leadID,
		Priority:    followUpPriority,
	})
	if err != nil {
		log.Warn("notify: follow-up task failed", zap.Error(err))
		out.Task = Outcome{Error: err.Error()}
	} else {
		out.Task = Outcome{Success: true}
	}
	return out
}
