package model

import "time"

// Lead record defaults applied when a field cannot be extracted.
const (
	DefaultLeadName     = "Thumbtack Lead"
	DefaultServiceType  = "Cleaning Service"
	EmailLeadSource     = "Thumbtack Email"
	ZapierLeadSource    = "thumbtack_zapier"
	DefaultLocationType = "in_person"
)

// LeadRecord is a best-effort lead parsed out of a free-text notification.
// Every string field is populated, possibly with a default.
type LeadRecord struct {
	Name        string    `json:"name" yaml:"name"`
	Phone       string    `json:"phone" yaml:"phone"`
	Email       string    `json:"email" yaml:"email"`
	ServiceType string    `json:"service_type" yaml:"service_type"`
	Description string    `json:"description" yaml:"description"`
	Location    string    `json:"location" yaml:"location"`
	ReceivedAt  time.Time `json:"received_at" yaml:"received_at"`
	Source      string    `json:"source" yaml:"source"`
}

// Lead is the canonical CRM lead built from a structured Zapier payload.
// Pointer fields serialize as null when the sender did not provide them.
type Lead struct {
	LeadSource     string         `json:"lead_source"`
	ExternalLeadID *string        `json:"external_lead_id"`
	Customer       Customer       `json:"customer"`
	ServiceRequest ServiceRequest `json:"service_request"`
	LeadDetails    LeadDetails    `json:"lead_details"`
	Metadata       LeadMetadata   `json:"metadata"`
}

// Customer identifies the person who requested the service.
type Customer struct {
	FirstName *string `json:"first_name"`
	LastName  *string `json:"last_name"`
	Email     *string `json:"email"`
	Phone     *string `json:"phone"`
	Address   Address `json:"address"`
}

// Address is the customer's postal address.
type Address struct {
	Street  *string `json:"street"`
	City    *string `json:"city"`
	State   *string `json:"state"`
	ZipCode *string `json:"zip_code"`
}

// ServiceRequest describes the requested job. Budgets are nil when absent,
// which is distinct from a zero budget.
type ServiceRequest struct {
	Category           *string  `json:"category"`
	Title              *string  `json:"title"`
	Description        *string  `json:"description"`
	BudgetMin          *float64 `json:"budget_min"`
	BudgetMax          *float64 `json:"budget_max"`
	PreferredStartDate *string  `json:"preferred_start_date"`
	LocationType       string   `json:"location_type"`
	Urgency            *string  `json:"urgency"`
}

// LeadDetails carries marketplace bookkeeping for the lead.
type LeadDetails struct {
	CreatedAt        string         `json:"created_at"`
	LeadFee          *float64       `json:"lead_fee"`
	ResponseDeadline *string        `json:"response_deadline"`
	SourceDetails    map[string]any `json:"source_details"`
}

// LeadMetadata keeps the untransformed webhook body for audit and reprocessing.
type LeadMetadata struct {
	WebhookReceivedAt string         `json:"webhook_received_at"`
	ZapierWebhook     bool           `json:"zapier_webhook"`
	RawZapierData     map[string]any `json:"raw_zapier_data"`
}

// CustomerName joins first and last name, skipping missing parts.
func (l Lead) CustomerName() string {
	var name string
	if l.Customer.FirstName != nil {
		name = *l.Customer.FirstName
	}
	if l.Customer.LastName != nil && *l.Customer.LastName != "" {
		if name != "" {
			name += " "
		}
		name += *l.Customer.LastName
	}
	return name
}

// Deref returns the pointed-to string or "" for nil.
func Deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
