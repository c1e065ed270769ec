package webhook

import (
	"html/template"
	"net/http"
	"strings"

	"go.uber.org/zap"
)

const pageHead = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="UTF-8">
<meta name="viewport" content="width=device-width, initial-scale=1.0">
<title>{{.Title}} - {{.Service}}</title>
<style>
  body { font-family: Arial, sans-serif; max-width: 800px; margin: 0 auto; padding: 20px; line-height: 1.6; }
  h1, h2 { color: #333; }
  .last-updated { color: #666; font-style: italic; }
</style>
</head>
<body>
`

const pageFoot = `</body>
</html>
`

var pages = template.Must(template.New("index").Parse(pageHead + `
<h1>🧹 {{.Business}} - Lead Processor</h1>
<p><strong>Status:</strong> ✅ Active</p>
<ul>
{{- range .Routes}}
  <li><code>{{.Endpoint}}</code> {{.Description}}</li>
{{- end}}
</ul>
<hr>
<h2>📧 Email Forwarding Setup:</h2>
<ol>
  <li>Set up an email forwarding service (Mailgun, SendGrid, etc.)</li>
  <li>Forward Thumbtack emails to your service</li>
  <li>Configure the service to POST to: <code>{{.BaseURL}}/email-webhook</code></li>
  <li>Get instant SMS notifications for new leads!</li>
</ol>
` + pageFoot))

func init() {
	template.Must(pages.New("privacy").Parse(pageHead + `
<h1>Privacy Policy</h1>
<p class="last-updated">Last updated: October 2024</p>

<h2>Information We Collect</h2>
<p>We collect lead information from Thumbtack including customer names, phone numbers, and service requests to provide SMS notifications to {{.Business}}.</p>

<h2>How We Use Your Information</h2>
<p>We use the collected information solely to:</p>
<ul>
  <li>Send SMS notifications about new leads</li>
  <li>Process webhook data from Thumbtack</li>
  <li>Provide lead management services</li>
</ul>

<h2>Data Security</h2>
<p>We implement appropriate security measures to protect your information. Data is transmitted securely and is not stored by {{.Service}}.</p>

<h2>Contact Us</h2>
<p>If you have questions about this Privacy Policy, please contact us through our support channels.</p>
` + pageFoot))

	template.Must(pages.New("terms").Parse(pageHead + `
<h1>Terms of Service</h1>
<p class="last-updated">Last updated: October 2024</p>

<h2>Service Description</h2>
<p>{{.Service}} provides automated processing of Thumbtack leads through webhook integration{{if .BaseURL}} at <code>{{.BaseURL}}</code>{{end}}.</p>

<h2>Acceptable Use</h2>
<p>You may use our service only for legitimate business purposes related to managing Thumbtack leads. You agree not to:</p>
<ul>
  <li>Use the service for spam or unsolicited communications</li>
  <li>Attempt to circumvent security measures</li>
  <li>Interfere with the operation of the service</li>
</ul>

<h2>Service Availability</h2>
<p>We strive to maintain high availability but do not guarantee uninterrupted service. We reserve the right to modify or discontinue the service with notice.</p>

<h2>Limitation of Liability</h2>
<p>Our liability is limited to the maximum extent permitted by law. We are not responsible for any indirect or consequential damages.</p>

<h2>Contact</h2>
<p>For questions about these Terms, please contact us through our support channels.</p>
` + pageFoot))
}

type pageData struct {
	Title    string
	Service  string
	Business string
	BaseURL  string
	Routes   []route
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	s.renderPage(w, "index", pageData{Title: "Lead Processor", BaseURL: s.baseURL(r), Routes: s.routes()})
}

func (s *Server) handlePrivacy(w http.ResponseWriter, r *http.Request) {
	s.renderPage(w, "privacy", pageData{Title: "Privacy Policy", BaseURL: s.baseURL(r)})
}

func (s *Server) handleTerms(w http.ResponseWriter, r *http.Request) {
	s.renderPage(w, "terms", pageData{Title: "Terms of Service", BaseURL: s.baseURL(r)})
}

func (s *Server) renderPage(w http.ResponseWriter, name string, data pageData) {
	data.Service = ServiceName
	data.Business = s.notifier.BusinessName()

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := pages.ExecuteTemplate(w, name, data); err != nil {
		zap.L().Error("webhook: render page", zap.String("page", name), zap.Error(err))
	}
}

// baseURL prefers the configured public URL and otherwise rebuilds it from
// the request, honoring X-Forwarded-Proto from a TLS-terminating proxy.
func (s *Server) baseURL(r *http.Request) string {
	if u := s.cfg.Server.PublicURL; u != "" {
		return strings.TrimRight(u, "/")
	}
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if p := r.Header.Get("X-Forwarded-Proto"); p != "" {
		scheme = p
	}
	return scheme + "://" + r.Host
}
