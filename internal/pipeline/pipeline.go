// Package pipeline turns inbound webhook payloads into leads: it normalizes
// forwarded emails, classifies them, extracts lead fields from free text,
// and maps structured Zapier payloads onto the CRM lead shape.
package pipeline

import (
	"go.uber.org/zap"

	"github.com/sells-group/leadhook/internal/model"
)

// EmailResult is the outcome of running one inbound email payload through
// normalization, classification and extraction.
type EmailResult struct {
	Shape      PayloadShape       `json:"shape" yaml:"shape"`
	Message    model.EmailMessage `json:"message" yaml:"message"`
	IsLead     bool               `json:"is_lead" yaml:"is_lead"`
	Indicators []string           `json:"indicators,omitempty" yaml:"indicators,omitempty"`
	Lead       *model.LeadRecord  `json:"lead,omitempty" yaml:"lead,omitempty"`
}

// ProcessEmail runs the email path of the pipeline. Lead is nil when the
// message is not a lead notification.
func (e Extractor) ProcessEmail(payload map[string]any) EmailResult {
	msg, shape := Normalize(payload)
	indicators := MatchedIndicators(msg)

	res := EmailResult{
		Shape:      shape,
		Message:    msg,
		IsLead:     len(indicators) > 0,
		Indicators: indicators,
	}

	zap.L().Debug("pipeline: email normalized",
		zap.String("shape", string(shape)),
		zap.String("from", msg.From),
		zap.String("subject", msg.Subject),
		zap.Strings("indicators", indicators),
	)

	if !res.IsLead {
		return res
	}

	rec := e.Extract(msg)
	res.Lead = &rec
	return res
}
