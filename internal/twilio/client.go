// Package twilio implements the outbound SMS gateway client. The wire
// contract is the Twilio Messages API: a form-encoded POST with HTTP Basic
// authentication where 201 Created is the only success status.
package twilio

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/common-repository/sms-manager/internal/metrics"
)

const messagesPath = "/2010-04-01/Accounts/%s/Messages.json"

// ErrNotConfigured indicates that required credentials are missing. No
// network call is attempted in that case.
var ErrNotConfigured = errors.New("twilio settings are not configured properly")

// TransportError wraps a network-level failure (DNS, TLS, timeout).
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("twilio request failed: %v", e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// RejectedError reports a non-201 response from the API.
type RejectedError struct {
	StatusCode int
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("twilio API returned an error with response code: %d", e.StatusCode)
}

// Credentials are the per-send gateway credentials, read fresh from the
// settings store for every dispatch.
type Credentials struct {
	AccountSID string
	AuthToken  string
	From       string
}

// Complete reports whether every credential field is present.
func (c Credentials) Complete() bool {
	return c.AccountSID != "" && c.AuthToken != "" && c.From != ""
}

// Config holds Twilio client configuration.
type Config struct {
	BaseURL string
	Timeout time.Duration
}

// Client sends SMS messages through the Twilio REST API.
type Client struct {
	logger  *slog.Logger
	baseURL string
	http    *http.Client
	metrics *metrics.Metrics
}

// New creates a Twilio client. cfg.BaseURL is overridable for tests.
func New(cfg Config, logger *slog.Logger, metricRegistry *metrics.Metrics) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		logger:  logger.With("component", "twilio"),
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		http:    &http.Client{Timeout: timeout},
		metrics: metricRegistry,
	}
}

// Send performs exactly one message-send call. It returns nil on a 201
// response, ErrNotConfigured when credentials are incomplete (without
// touching the network), a *TransportError on network failure and a
// *RejectedError for any other response status.
func (c *Client) Send(ctx context.Context, creds Credentials, to, body string) error {
	if !creds.Complete() {
		return ErrNotConfigured
	}

	endpoint := c.baseURL + fmt.Sprintf(messagesPath, url.PathEscape(creds.AccountSID))
	form := url.Values{
		"From": {creds.From},
		"To":   {to},
		"Body": {body},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return &TransportError{Err: err}
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.SetBasicAuth(creds.AccountSID, creds.AuthToken)

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.observe("transport_error", start)
		c.logger.Error("twilio request failed", "error", err, "to", to)
		return &TransportError{Err: err}
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	status := strconv.Itoa(resp.StatusCode)
	c.observe(status, start)

	if resp.StatusCode != http.StatusCreated {
		c.logger.Warn("twilio rejected message", "status_code", resp.StatusCode, "to", to)
		return &RejectedError{StatusCode: resp.StatusCode}
	}

	c.logger.Info("sms sent", "to", to)
	return nil
}

func (c *Client) observe(status string, start time.Time) {
	if c.metrics == nil {
		return
	}
	c.metrics.TwilioRequests.WithLabelValues(status).Inc()
	c.metrics.TwilioLatency.WithLabelValues(status).Observe(time.Since(start).Seconds())
}
