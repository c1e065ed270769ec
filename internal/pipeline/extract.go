package pipeline

import (
	"regexp"
	"strings"
	"time"

	"github.com/sells-group/leadhook/internal/model"
)

// fieldPattern is one candidate regex for a lead field and the capture group
// holding the value.
type fieldPattern struct {
	re    *regexp.Regexp
	group int
}

// US phone: optional parens around the area code, optional dash or space
// separators.
const phoneExpr = `(\(?\d{3}\)?[-\s]?\d{3}[-\s]?\d{4})`

// Pattern tables are tried in order against the message body; the first
// non-empty capture wins. Captures never cross a line break.
var (
	namePatterns = []fieldPattern{
		{regexp.MustCompile(`(?i)name[:\s]+([^\n\r]+)`), 1},
		{regexp.MustCompile(`(?i)customer[:\s]+([^\n\r]+)`), 1},
		{regexp.MustCompile(`(?i)from[:\s]+([^\n\r]+)`), 1},
		// Bare proper-name guess: two capitalized words on one line.
		{regexp.MustCompile(`([A-Z][a-z]+[ \t]+[A-Z][a-z]+)`), 1},
	}

	phonePatterns = []fieldPattern{
		{regexp.MustCompile(`(?i)phone[:\s]+` + phoneExpr), 1},
		{regexp.MustCompile(phoneExpr), 1},
		{regexp.MustCompile(`(?i)call[:\s]+` + phoneExpr), 1},
	}

	emailPatterns = []fieldPattern{
		{regexp.MustCompile(`([a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,})`), 1},
	}

	locationPatterns = []fieldPattern{
		{regexp.MustCompile(`(?i)location[:\s]+([^\n\r]+)`), 1},
		{regexp.MustCompile(`(?i)address[:\s]+([^\n\r]+)`), 1},
		{regexp.MustCompile(`(?i)city[:\s]+([^\n\r]+)`), 1},
		{regexp.MustCompile(`(?i)zip[:\s]+(\d{5})`), 1},
	}

	descriptionPatterns = []fieldPattern{
		{regexp.MustCompile(`(?i)description[:\s]+([^\n\r]{10,200})`), 1},
		{regexp.MustCompile(`(?i)details[:\s]+([^\n\r]{10,200})`), 1},
		{regexp.MustCompile(`(?i)looking for[:\s]+([^\n\r]{10,200})`), 1},
		{regexp.MustCompile(`(?i)needs[:\s]+([^\n\r]{10,200})`), 1},
	}
)

// firstMatch returns the first non-empty trimmed capture from patterns.
func firstMatch(text string, patterns []fieldPattern) string {
	for _, p := range patterns {
		m := p.re.FindStringSubmatch(text)
		if len(m) <= p.group {
			continue
		}
		if v := strings.TrimSpace(m[p.group]); v != "" {
			return v
		}
	}
	return ""
}

// Extractor pulls a LeadRecord out of a lead notification email.
type Extractor struct {
	// ServiceType is stamped on every record. Defaults to
	// model.DefaultServiceType.
	ServiceType string
	// Now supplies the received_at timestamp. Defaults to time.Now.
	Now func() time.Time
}

// Extract never fails; fields with no matching pattern keep their defaults.
func (e Extractor) Extract(msg model.EmailMessage) model.LeadRecord {
	now := e.Now
	if now == nil {
		now = time.Now
	}
	serviceType := e.ServiceType
	if serviceType == "" {
		serviceType = model.DefaultServiceType
	}

	body := msg.Body
	rec := model.LeadRecord{
		Name:        firstMatch(body, namePatterns),
		Phone:       firstMatch(body, phonePatterns),
		Email:       firstMatch(body, emailPatterns),
		ServiceType: serviceType,
		Description: firstMatch(body, descriptionPatterns),
		Location:    firstMatch(body, locationPatterns),
		ReceivedAt:  now().UTC(),
		Source:      model.EmailLeadSource,
	}

	if rec.Description == "" {
		rec.Description = msg.Subject
	}
	if rec.Name == "" {
		rec.Name = model.DefaultLeadName
	}
	return rec
}

// ExtractLead runs Extract with default settings.
func ExtractLead(msg model.EmailMessage) model.LeadRecord {
	return Extractor{}.Extract(msg)
}
