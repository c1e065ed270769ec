// Package twilio sends SMS messages through the Twilio REST API.
package twilio

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/sells-group/leadhook/internal/resilience"
)

const defaultBaseURL = "https://api.twilio.com"

// Client defines the Twilio operations used by this application.
type Client interface {
	SendMessage(ctx context.Context, req MessageRequest) (*Message, error)
}

// MessageRequest is a single outbound SMS.
type MessageRequest struct {
	To   string
	From string
	Body string
}

// Message is the subset of the Twilio message resource we read back.
type Message struct {
	SID         string `json:"sid"`
	Status      string `json:"status"`
	To          string `json:"to"`
	From        string `json:"from"`
	DateCreated string `json:"date_created"`
}

// apiError is the error document Twilio returns on non-2xx responses.
type apiError struct {
	Code     int    `json:"code"`
	Message  string `json:"message"`
	MoreInfo string `json:"more_info"`
	Status   int    `json:"status"`
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

// WithRateLimit overrides the default send rate (1 msg/s). A non-positive
// value disables throttling.
func WithRateLimit(rps float64) Option {
	return func(c *httpClient) {
		if rps > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(rps), max(int(rps), 1))
		} else {
			c.limiter = nil
		}
	}
}

type httpClient struct {
	accountSID string
	authToken  string
	baseURL    string
	http       *http.Client
	limiter    *rate.Limiter
}

// NewClient creates a Twilio client authenticated with the account SID and
// auth token.
func NewClient(accountSID, authToken string, opts ...Option) Client {
	c := &httpClient{
		accountSID: accountSID,
		authToken:  authToken,
		baseURL:    defaultBaseURL,
		http:       &http.Client{Timeout: 10 * time.Second},
		limiter:    rate.NewLimiter(1, 1),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *httpClient) SendMessage(ctx context.Context, msg MessageRequest) (*Message, error) {
	if msg.To == "" {
		return nil, eris.New("twilio: recipient is required")
	}
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, eris.Wrap(err, "twilio: rate limit")
		}
	}

	form := url.Values{}
	form.Set("To", msg.To)
	form.Set("From", msg.From)
	form.Set("Body", msg.Body)

	endpoint := fmt.Sprintf("%s/2010-04-01/Accounts/%s/Messages.json", c.baseURL, url.PathEscape(c.accountSID))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, eris.Wrap(err, "twilio: create request")
	}
	req.SetBasicAuth(c.accountSID, c.authToken)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "twilio: send message")
	}
	defer resp.Body.Close() //nolint:errcheck

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, eris.Wrap(err, "twilio: read response")
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail := data
		var ae apiError
		if json.Unmarshal(data, &ae) == nil && ae.Message != "" {
			detail = []byte(fmt.Sprintf("%s (code %d)", ae.Message, ae.Code))
		}
		return nil, eris.Wrap(resilience.NewStatusError("twilio", resp.StatusCode, detail), "twilio: send message")
	}

	var out Message
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, eris.Wrap(err, "twilio: decode response")
	}
	return &out, nil
}
