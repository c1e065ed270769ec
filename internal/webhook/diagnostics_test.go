package webhook

import (
	"net/http"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHealth(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t, withTwilio(http.StatusCreated))

	rec := env.do(t, http.MethodGet, "/health", "", "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	body := decodeBody(t, rec)
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, ServiceName, body["service"])
	assert.Equal(t, "test", body["environment"])
	assert.Equal(t, "2026-03-14T15:30:00.000Z", body["timestamp"])
	assert.Equal(t, true, body["twilio_configured"])
	assert.Equal(t, false, body["crm_configured"])
	assert.Equal(t, false, body["oauth_configured"])
	assert.NotContains(t, body, "crm_circuit")
	assert.Contains(t, body["endpoints"], "POST /webhook/zapier/thumbtack")
	assert.Contains(t, body["endpoints"], "POST /email-webhook")
}

func TestWebhookTest_Echo(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	rec := env.postJSON(t, "/webhook/test", `{"hello":"world","n":3}`)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "test successful", body["status"])
	assert.Equal(t, map[string]any{"hello": "world", "n": float64(3)}, body["received"])
}

func TestWebhookTest_EmptyBody(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	rec := env.postJSON(t, "/webhook/test", ``)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Nil(t, decodeBody(t, rec)["received"])
}

func TestTestSMS_NotConfigured(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	rec := env.postJSON(t, "/test-sms", `{}`)
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "Twilio not configured", body["error"])
	assert.NotEmpty(t, body["message"])
}

func TestTestSMS_ExplicitRecipient(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t, withTwilio(http.StatusCreated))

	rec := env.postJSON(t, "/test-sms", `{"phone_number":"+15551112222"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "SM123", body["messageSid"])
	assert.Equal(t, "+15551112222", body["to"])

	calls := env.twilio.requests()
	require.Len(t, calls, 1)
	form, err := url.ParseQuery(calls[0].Body)
	require.NoError(t, err)
	assert.Equal(t, "+15551112222", form.Get("To"))
	assert.Contains(t, form.Get("Body"), "Test SMS from your Thumbtack webhook")
}

func TestTestSMS_DefaultsToOwner(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t, withTwilio(http.StatusCreated))

	rec := env.do(t, http.MethodPost, "/test-sms", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "+15559999999", decodeBody(t, rec)["to"])
}

func TestTestSMS_Failure(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t, withTwilio(http.StatusBadRequest))

	rec := env.postJSON(t, "/test-sms", `{"phone_number":"bogus"}`)
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "Failed to send SMS", body["error"])
	assert.Contains(t, body["details"], "upstream said no")
}

func TestNotFound(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	tests := []struct {
		method string
		target string
	}{
		{http.MethodGet, "/nope?x=1"},
		{http.MethodGet, "/webhook/zapier/thumbtack"},
		{http.MethodDelete, "/health"},
	}
	for _, tt := range tests {
		rec := env.do(t, tt.method, tt.target, "", "")
		require.Equal(t, http.StatusNotFound, rec.Code, tt.target)
		body := decodeBody(t, rec)
		assert.Equal(t, "Endpoint not found", body["error"])
		assert.Equal(t, tt.method, body["method"])
		assert.Equal(t, tt.target, body["path"])
		available := body["available_endpoints"].(map[string]any)
		assert.Equal(t, "Main webhook endpoint", available["POST /webhook/zapier/thumbtack"])
		assert.Equal(t, "Health check", available["GET /health"])
	}
}

func TestRequestID(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/health", "", "", "X-Request-ID", "abc-123")
	assert.Equal(t, "abc-123", rec.Header().Get("X-Request-ID"))

	rec = env.do(t, http.MethodGet, "/health", "", "")
	assert.Len(t, rec.Header().Get("X-Request-ID"), 36)
}

func TestCORSPreflight(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	rec := env.do(t, http.MethodOptions, "/test-sms", "", "",
		"Origin", "https://dashboard.example.com",
		"Access-Control-Request-Method", http.MethodPost,
	)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}
