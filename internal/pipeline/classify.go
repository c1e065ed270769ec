package pipeline

import (
	"strings"

	"github.com/sells-group/leadhook/internal/model"
)

// emailPart selects which part of a message an indicator inspects.
type emailPart int

const (
	partFrom emailPart = iota
	partSubject
	partBody
)

func (p emailPart) String() string {
	switch p {
	case partFrom:
		return "from"
	case partSubject:
		return "subject"
	case partBody:
		return "body"
	default:
		return "unknown"
	}
}

// leadIndicator is a lowercase substring that marks a message as a
// Thumbtack lead notification when found in the given part.
type leadIndicator struct {
	part   emailPart
	needle string
}

// leadIndicators is an any-match set. There are no negative signals.
var leadIndicators = []leadIndicator{
	{partFrom, "thumbtack"},
	{partFrom, "noreply@thumbtack.com"},
	{partSubject, "new lead"},
	{partSubject, "customer request"},
	{partSubject, "quote request"},
	{partBody, "thumbtack"},
	{partBody, "wants a quote"},
	{partBody, "customer is looking"},
	{partBody, "service request"},
}

// IsThumbtackLead reports whether any lead indicator matches the message.
func IsThumbtackLead(msg model.EmailMessage) bool {
	return len(MatchedIndicators(msg)) > 0
}

// MatchedIndicators lists the indicators that fired, as "part:needle".
func MatchedIndicators(msg model.EmailMessage) []string {
	parts := [...]string{
		partFrom:    strings.ToLower(msg.From),
		partSubject: strings.ToLower(msg.Subject),
		partBody:    strings.ToLower(msg.Body),
	}

	var matched []string
	for _, ind := range leadIndicators {
		if strings.Contains(parts[ind.part], ind.needle) {
			matched = append(matched, ind.part.String()+":"+ind.needle)
		}
	}
	return matched
}
