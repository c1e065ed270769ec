package model

// EmailMessage is the canonical form of an inbound email notification,
// regardless of which forwarding provider delivered it.
type EmailMessage struct {
	From    string `json:"from" yaml:"from"`
	Subject string `json:"subject" yaml:"subject"`
	Body    string `json:"body" yaml:"body"`
	HTML    string `json:"html,omitempty" yaml:"html,omitempty"`
}
