package webhook

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/sells-group/leadhook/internal/config"
	"github.com/sells-group/leadhook/internal/notify"
	"github.com/sells-group/leadhook/internal/resilience"
	"github.com/sells-group/leadhook/pkg/pcm"
	"github.com/sells-group/leadhook/pkg/twilio"
)

var fixedNow = time.Date(2026, 3, 14, 15, 30, 0, 0, time.UTC)

// recorded is one request seen by a fake upstream.
type recorded struct {
	Path      string
	Body      string
	RequestID string
}

// upstream is a fake Twilio or PCM API that records every request and
// answers with a fixed status per path.
type upstream struct {
	srv      *httptest.Server
	mu       sync.Mutex
	calls    []recorded
	status   map[string]int
	fallback int
}

func newUpstream(t *testing.T, defaultStatus int) *upstream {
	t.Helper()
	u := &upstream{status: map[string]int{}, fallback: defaultStatus}
	u.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		u.mu.Lock()
		u.calls = append(u.calls, recorded{
			Path:      r.URL.Path,
			Body:      string(body),
			RequestID: r.Header.Get("X-Request-ID"),
		})
		status, ok := u.status[r.URL.Path]
		if !ok {
			status = u.fallback
		}
		u.mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		if status >= 300 {
			fmt.Fprintf(w, `{"code":20003,"message":"upstream said no","status":%d}`, status)
			return
		}
		w.Write([]byte(`{"sid":"SM123","status":"queued","id":"pcm-1"}`))
	}))
	t.Cleanup(u.srv.Close)
	return u
}

func (u *upstream) setStatus(path string, status int) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.status[path] = status
}

func (u *upstream) requests() []recorded {
	u.mu.Lock()
	defer u.mu.Unlock()
	return append([]recorded(nil), u.calls...)
}

func (u *upstream) paths() []string {
	var out []string
	for _, c := range u.requests() {
		out = append(out, c.Path)
	}
	return out
}

const twilioMessagesPath = "/2010-04-01/Accounts/AC123/Messages.json"

// testEnv wires a Server to optional fake upstreams.
type testEnv struct {
	cfg     *config.Config
	twilio  *upstream
	pcm     *upstream
	handler http.Handler
}

type envOption func(t *testing.T, e *testEnv)

func withSecret(secret string) envOption {
	return func(_ *testing.T, e *testEnv) { e.cfg.Server.WebhookSecret = secret }
}

func withTwilio(status int) envOption {
	return func(t *testing.T, e *testEnv) { e.twilio = newUpstream(t, status) }
}

func withPCM(status int) envOption {
	return func(t *testing.T, e *testEnv) { e.pcm = newUpstream(t, status) }
}

func withOAuth() envOption {
	return func(_ *testing.T, e *testEnv) {
		e.cfg.Thumbtack.ClientID = "tt-client"
		e.cfg.Thumbtack.ClientSecret = "tt-secret"
		e.cfg.Thumbtack.RedirectURL = "https://hook.example.com/auth/callback"
		e.cfg.Thumbtack.AuthURL = "https://auth.example.com/oauth2/auth"
		e.cfg.Thumbtack.TokenURL = "https://auth.example.com/oauth2/token"
	}
}

func withPublicURL(u string) envOption {
	return func(_ *testing.T, e *testEnv) { e.cfg.Server.PublicURL = u }
}

func newTestEnv(t *testing.T, opts ...envOption) *testEnv {
	t.Helper()
	cfg := &config.Config{}
	cfg.Server.Environment = "test"
	cfg.Server.CORSOrigins = []string{"*"}
	cfg.Twilio.FromNumber = "+15550000000"
	cfg.Twilio.NotifyNumber = "+15559999999"
	cfg.HTTP.TimeoutSecs = 5

	env := &testEnv{cfg: cfg}
	for _, opt := range opts {
		opt(t, env)
	}

	var sms twilio.Client
	if env.twilio != nil {
		sms = twilio.NewClient("AC123", "token",
			twilio.WithBaseURL(env.twilio.srv.URL),
			twilio.WithRateLimit(0),
			twilio.WithTimeout(cfg.HTTP.Timeout()),
		)
	}
	var (
		crm      pcm.Client
		dispOpts []notify.Option
	)
	if env.pcm != nil {
		cfg.PCM.APIKey = "pcm-key"
		crm = pcm.NewClient(cfg.PCM.APIKey,
			pcm.WithBaseURL(env.pcm.srv.URL),
			pcm.WithTimeout(cfg.HTTP.Timeout()),
		)
		dispOpts = append(dispOpts, notify.WithBreaker(resilience.NewBreaker("pcm", 5, time.Minute)))
	}

	d := notify.NewDispatcher(notify.Settings{
		FromNumber:   cfg.Twilio.FromNumber,
		OwnerNumber:  cfg.Twilio.NotifyNumber,
		BusinessName: "Acme Floors",
	}, sms, crm, dispOpts...)
	env.handler = New(cfg, d, WithClock(func() time.Time { return fixedNow })).Handler()
	return env
}

func (e *testEnv) do(t *testing.T, method, target, contentType, body string, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) postJSON(t *testing.T, target, body string, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	return e.do(t, http.MethodPost, target, "application/json", body, headers...)
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}
