package notify

import (
	"fmt"
	"strings"
	"time"

	"github.com/sells-group/leadhook/internal/model"
	"github.com/sells-group/leadhook/internal/pipeline"
)

// DefaultBusinessName signs outbound messages when none is configured.
const DefaultBusinessName = "Tile And Carpet Solutions"

// TestSMSBody is sent by the SMS self-test endpoint.
const TestSMSBody = "🧪 Test SMS from your Thumbtack webhook! SMS notifications are working correctly. 🎉"

// timeLayout renders timestamps in messages read by people.
const timeLayout = "Jan 2, 2006 3:04 PM MST"

// FormatLeadAlert renders the owner SMS for a lead parsed from an email.
func FormatLeadAlert(rec model.LeadRecord, business string, at time.Time) string {
	return fmt.Sprintf(`🚨 NEW THUMBTACK LEAD! 🚨

👤 %s
📞 %s
🏠 %s
📍 %s

💬 "%s"

⚡ IMMEDIATE ACTION REQUIRED!
Call now while they're actively looking for service.

🎯 Call Script: Check your webhook logs or dashboard for the full call script.

💼 %s
⏰ %s`,
		rec.Name, rec.Phone, rec.ServiceType, rec.Location,
		rec.Description, business, at.Format(timeLayout))
}

// FormatCallScript renders the phone script the owner reads to the customer.
// Location and email lines are left out when unknown.
func FormatCallScript(rec model.LeadRecord, business string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "📞 CALL SCRIPT for %s\n\n", rec.Name)
	fmt.Fprintf(&b, "🎯 OPENING:\n\"Hi %s, this is [Your Name] from %s. ", rec.Name, business)
	b.WriteString("You recently requested a quote through Thumbtack for cleaning services. ")
	b.WriteString("I got your request and wanted to follow up immediately!\"\n\n")

	b.WriteString("📋 SERVICE DETAILS:\n")
	fmt.Fprintf(&b, "- Service: %s\n", rec.ServiceType)
	fmt.Fprintf(&b, "- Request: %s\n", rec.Description)
	if rec.Location != "" {
		fmt.Fprintf(&b, "- Location: %s\n", rec.Location)
	}

	b.WriteString("\n💬 KEY QUESTIONS:\n")
	b.WriteString("1. \"When are you looking to schedule this service?\"\n")
	b.WriteString("2. \"What's the size of the area needing cleaning?\"\n")
	b.WriteString("3. \"Any specific concerns or problem areas?\"\n")
	b.WriteString("4. \"What's your preferred time frame?\"\n\n")

	b.WriteString("🎯 CLOSING:\n")
	b.WriteString("\"I can provide you with a competitive quote right now and schedule you as early as [next available]. ")
	b.WriteString("What works best for your schedule?\"\n\n")

	fmt.Fprintf(&b, "📞 Contact: %s\n", rec.Phone)
	if rec.Email != "" {
		fmt.Fprintf(&b, "📧 Email: %s\n", rec.Email)
	}
	if !rec.ReceivedAt.IsZero() {
		fmt.Fprintf(&b, "⏰ Lead received: %s", rec.ReceivedAt.Format(timeLayout))
	}
	return strings.TrimRight(b.String(), "\n")
}

// FormatZapierAlert renders the owner SMS for a structured Zapier payload.
func FormatZapierAlert(raw map[string]any) string {
	or := func(key, fallback string) string {
		if v := pipeline.Stringify(raw[key]); v != "" {
			return v
		}
		return fallback
	}
	return fmt.Sprintf(`🏠 NEW THUMBTACK LEAD!
👤 Customer: %s
📞 Phone: %s
🔧 Service: %s
📍 Location: %s
💰 Budget: %s
📝 Details: %s

⏰ Respond quickly to win this lead!`,
		or("customer_name", "Unknown"),
		or("phone_number", "Not provided"),
		or("service_type", "Not specified"),
		or("location", "Not provided"),
		or("budget", "Not specified"),
		or("description", "No details provided"))
}

// customerThanks is the follow-up text sent to the customer after a CRM hand-off.
func customerThanks(firstName string) string {
	return fmt.Sprintf("Hi %s, thanks for your interest! We'll call you within 24 hours.", firstName)
}

// followUpTitle names the CRM task created for a forwarded lead.
func followUpTitle(lead model.Lead) string {
	return strings.TrimSpace(fmt.Sprintf("Follow up with %s %s",
		model.Deref(lead.Customer.FirstName), model.Deref(lead.Customer.LastName)))
}
