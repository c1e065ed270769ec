// Package pcm provides a client for the PCM Integrations CRM API.
package pcm

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"

	"github.com/sells-group/leadhook/internal/resilience"
)

// Default base URL for the PCM Integrations API.
const defaultBaseURL = "https://api.pcmintegrations.com"

// sourceHeader tags every request with the integration that produced it.
const sourceHeader = "zapier-thumbtack"

// Client defines the PCM CRM operations.
type Client interface {
	// CreateLead submits a lead and returns the HTTP status of the response.
	CreateLead(ctx context.Context, lead any) (int, error)
	// SendSMS asks PCM to text a customer on our behalf.
	SendSMS(ctx context.Context, req SMSRequest) error
	// CreateTask schedules a follow-up task against a lead.
	CreateTask(ctx context.Context, task Task) error
}

// SMSRequest is the body for POST /v1/notifications/sms.
type SMSRequest struct {
	To      string `json:"to"`
	Message string `json:"message"`
	LeadID  string `json:"lead_id,omitempty"`
}

// Task is the body for POST /v1/tasks.
type Task struct {
	Title       string    `json:"title"`
	Description string    `json:"description"`
	DueDate     time.Time `json:"due_date"`
	LeadID      string    `json:"lead_id,omitempty"`
	Priority    string    `json:"priority"`
}

// Option configures the httpClient.
type Option func(*httpClient)

// WithBaseURL overrides the default base URL.
func WithBaseURL(url string) Option {
	return func(c *httpClient) {
		if url != "" {
			c.baseURL = url
		}
	}
}

// WithHTTPClient sets a custom *http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *httpClient) {
		if d > 0 {
			c.http.Timeout = d
		}
	}
}

// httpClient implements Client using net/http.
type httpClient struct {
	apiKey  string
	baseURL string
	http    *http.Client
}

// NewClient creates a new PCM client.
func NewClient(apiKey string, opts ...Option) Client {
	c := &httpClient{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		http:    &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *httpClient) CreateLead(ctx context.Context, lead any) (int, error) {
	status, err := c.post(ctx, "/v1/leads", lead)
	if err != nil {
		return status, eris.Wrap(err, "pcm: create lead")
	}
	return status, nil
}

func (c *httpClient) SendSMS(ctx context.Context, req SMSRequest) error {
	if req.To == "" {
		return eris.New("pcm: sms recipient is required")
	}
	if _, err := c.post(ctx, "/v1/notifications/sms", req); err != nil {
		return eris.Wrap(err, "pcm: send sms")
	}
	return nil
}

func (c *httpClient) CreateTask(ctx context.Context, task Task) error {
	if _, err := c.post(ctx, "/v1/tasks", task); err != nil {
		return eris.Wrap(err, "pcm: create task")
	}
	return nil
}

func (c *httpClient) post(ctx context.Context, path string, body any) (int, error) {
	buf, err := json.Marshal(body)
	if err != nil {
		return 0, eris.Wrap(err, "marshal request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(buf))
	if err != nil {
		return 0, eris.Wrap(err, "create request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("X-Source", sourceHeader)
	req.Header.Set("X-Request-ID", requestID(ctx))

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, eris.Wrap(err, "execute request")
	}
	defer resp.Body.Close() //nolint:errcheck

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return resp.StatusCode, eris.Wrap(err, "read response body")
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return resp.StatusCode, resilience.NewStatusError("pcm", resp.StatusCode, data)
	}
	return resp.StatusCode, nil
}

type requestIDKey struct{}

// WithRequestID attaches a correlation id that is forwarded as X-Request-ID.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

func requestID(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey{}).(string); ok && id != "" {
		return id
	}
	return uuid.NewString()
}
