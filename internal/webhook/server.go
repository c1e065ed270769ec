// Package webhook serves the HTTP surface: lead webhooks from Zapier and
// email forwarders, test endpoints, the OAuth placeholder and the static
// pages Thumbtack requires for app review.
package webhook

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"
	"golang.org/x/oauth2"

	"github.com/sells-group/leadhook/internal/config"
	"github.com/sells-group/leadhook/internal/notify"
	"github.com/sells-group/leadhook/internal/pipeline"
)

// ServiceName identifies this service in health and page output.
const ServiceName = "Thumbtack Webhook Integration"

// maxBodyBytes caps inbound request bodies. Forwarded emails can carry
// attachments in multipart form data.
const maxBodyBytes = 10 << 20

// timestampLayout matches the millisecond ISO-8601 stamps webhook callers
// already parse.
const timestampLayout = "2006-01-02T15:04:05.000Z07:00"

// Server holds the dependencies shared by all handlers.
type Server struct {
	cfg       *config.Config
	notifier  *notify.Dispatcher
	extractor pipeline.Extractor
	oauth     *oauth2.Config
	now       func() time.Time
}

// Option configures a Server.
type Option func(*Server)

// WithClock overrides the time source used for timestamps and generated ids.
func WithClock(now func() time.Time) Option {
	return func(s *Server) {
		s.now = now
	}
}

// New creates a Server. The OAuth client is derived from the Thumbtack
// settings and left nil when they are incomplete.
func New(cfg *config.Config, notifier *notify.Dispatcher, opts ...Option) *Server {
	s := &Server{
		cfg:      cfg,
		notifier: notifier,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.extractor = pipeline.Extractor{
		ServiceType: cfg.Business.ServiceType,
		Now:         s.now,
	}
	if cfg.Thumbtack.Enabled() {
		s.oauth = newOAuthConfig(cfg.Thumbtack)
	}
	if cfg.Server.WebhookSecret == "" {
		zap.L().Warn("webhook: no webhook secret configured, zapier endpoint is unauthenticated")
	}
	return s
}

// route is one registered endpoint. The same table drives the router, the
// health endpoint listing and the 404 help body.
type route struct {
	method  string
	pattern string
	desc    string
	guarded bool
	handler http.HandlerFunc
}

// Endpoint renders the route as "METHOD /pattern".
func (rt route) Endpoint() string { return rt.method + " " + rt.pattern }

// Description is the one-line summary shown in listings.
func (rt route) Description() string { return rt.desc }

func (s *Server) routes() []route {
	return []route{
		{http.MethodGet, "/", "Service overview", false, s.handleIndex},
		{http.MethodGet, "/health", "Health check", false, s.handleHealth},
		{http.MethodGet, "/privacy", "Privacy policy for OAuth", false, s.handlePrivacy},
		{http.MethodGet, "/terms", "Terms of service for OAuth", false, s.handleTerms},
		{http.MethodGet, "/auth/login", "Start Thumbtack OAuth", false, s.handleAuthLogin},
		{http.MethodGet, "/auth/callback", "OAuth callback", false, s.handleAuthCallback},
		{http.MethodPost, "/webhook/zapier/thumbtack", "Main webhook endpoint", true, s.handleZapier},
		{http.MethodPost, "/email-webhook", "Forwarded Thumbtack email", false, s.handleEmail},
		{http.MethodPost, "/webhook", "Direct lead webhook", false, s.handleDirect},
		{http.MethodPost, "/webhook/test", "Echo test payload", false, s.handleTest},
		{http.MethodPost, "/test-sms", "Test SMS functionality", false, s.handleTestSMS},
	}
}

// Handler builds the chi router with all middleware and routes.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RealIP)
	r.Use(requestID)
	r.Use(accessLog)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestSize(maxBodyBytes))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.cfg.Server.CORSOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", secretHeader, requestIDHeader},
		ExposedHeaders: []string{requestIDHeader},
		MaxAge:         300,
	}))

	guard := requireSecret(s.cfg.Server.WebhookSecret)
	for _, rt := range s.routes() {
		h := http.Handler(rt.handler)
		if rt.guarded {
			h = guard(h)
		}
		r.Method(rt.method, rt.pattern, h)
	}

	r.NotFound(s.handleNotFound)
	r.MethodNotAllowed(s.handleNotFound)

	return r
}

func (s *Server) timestamp() string {
	return s.now().UTC().Format(timestampLayout)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Warn("webhook: encode response", zap.Error(err))
	}
}

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
	Details string `json:"details,omitempty"`
}
