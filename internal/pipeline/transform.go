package pipeline

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/sells-group/leadhook/internal/model"
)

// TransformZapier maps a structured Zapier/Thumbtack payload onto the CRM
// lead shape. It is total: any input, including an empty map, yields a lead
// with every key present. raw is kept verbatim under metadata.
func TransformZapier(raw map[string]any, now time.Time) model.Lead {
	if raw == nil {
		raw = map[string]any{}
	}
	stamp := now.UTC().Format(time.RFC3339Nano)

	locationType := model.DefaultLocationType
	if v := optString(raw, "locationType"); v != nil {
		locationType = *v
	}
	createdAt := stamp
	if v := optString(raw, "createdAt"); v != nil {
		createdAt = *v
	}
	sourceDetails, ok := raw["sourceDetails"].(map[string]any)
	if !ok {
		sourceDetails = map[string]any{}
	}

	externalID := optString(raw, "leadId")
	if externalID == nil {
		externalID = optString(raw, "id")
	}

	return model.Lead{
		LeadSource:     model.ZapierLeadSource,
		ExternalLeadID: externalID,
		Customer: model.Customer{
			FirstName: optString(raw, "customerFirstName"),
			LastName:  optString(raw, "customerLastName"),
			Email:     optString(raw, "customerEmail"),
			Phone:     optString(raw, "customerPhone"),
			Address: model.Address{
				Street:  optString(raw, "customerAddress"),
				City:    optString(raw, "customerCity"),
				State:   optString(raw, "customerState"),
				ZipCode: optString(raw, "customerZip"),
			},
		},
		ServiceRequest: model.ServiceRequest{
			Category:           optString(raw, "serviceCategory"),
			Title:              optString(raw, "requestTitle"),
			Description:        optString(raw, "requestDescription"),
			BudgetMin:          ParseAmount(raw["budgetMin"]),
			BudgetMax:          ParseAmount(raw["budgetMax"]),
			PreferredStartDate: optString(raw, "startDate"),
			LocationType:       locationType,
			Urgency:            optString(raw, "urgency"),
		},
		LeadDetails: model.LeadDetails{
			CreatedAt:        createdAt,
			LeadFee:          ParseAmount(raw["leadFee"]),
			ResponseDeadline: optString(raw, "responseDeadline"),
			SourceDetails:    sourceDetails,
		},
		Metadata: model.LeadMetadata{
			WebhookReceivedAt: stamp,
			ZapierWebhook:     true,
			RawZapierData:     raw,
		},
	}
}

// optString returns nil for absent or empty values so they serialize as
// null.
func optString(raw map[string]any, key string) *string {
	s := Stringify(raw[key])
	if s == "" {
		return nil
	}
	return &s
}

// ParseAmount coerces a money-like value to a float. Absent, empty,
// non-numeric and non-finite inputs return nil rather than zero or NaN.
func ParseAmount(v any) *float64 {
	var f float64
	switch t := v.(type) {
	case float64:
		f = t
	case int:
		f = float64(t)
	case json.Number:
		parsed, err := t.Float64()
		if err != nil {
			return nil
		}
		f = parsed
	case string:
		s := strings.TrimSpace(t)
		s = strings.TrimPrefix(s, "$")
		s = strings.ReplaceAll(s, ",", "")
		if s == "" {
			return nil
		}
		parsed, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil
		}
		f = parsed
	default:
		return nil
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	return &f
}
