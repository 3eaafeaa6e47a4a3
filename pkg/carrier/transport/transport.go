// Package transport wraps HTTP calls to carrier APIs and normalizes every
// transport failure into exactly one member of the carrier error taxonomy.
// Retry policy is deliberately absent here: retries are a decision made by
// the carrier adapters, not the transport.
package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/cybership/rating/pkg/carrier"
)

const defaultTimeout = 15 * time.Second

// Response is a successful (2xx) HTTP exchange.
type Response struct {
	Status int
	Body   []byte
	Header http.Header
}

// Options configures a Client.
type Options struct {
	BaseURL string
	Timeout time.Duration

	// DefaultHeaders are attached to every request.
	DefaultHeaders map[string]string

	// HTTPClient overrides the underlying client, primarily for tests.
	HTTPClient *http.Client
}

// Client performs HTTP calls on behalf of one carrier integration.
type Client struct {
	carrier string
	baseURL string
	timeout time.Duration
	headers map[string]string
	hc      *http.Client
}

// New creates a transport client attributed to the given carrier name.
func New(carrierName string, opts Options) *Client {
	timeout := opts.Timeout
	if timeout == 0 {
		timeout = defaultTimeout
	}
	hc := opts.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: timeout}
	}
	return &Client{
		carrier: carrierName,
		baseURL: opts.BaseURL,
		timeout: timeout,
		headers: opts.DefaultHeaders,
		hc:      hc,
	}
}

// Post issues a POST and returns the response, or a taxonomy error.
func (c *Client) Post(ctx context.Context, url string, body []byte, headers map[string]string) (*Response, error) {
	return c.do(ctx, http.MethodPost, url, body, headers)
}

// Get issues a GET and returns the response, or a taxonomy error.
func (c *Client) Get(ctx context.Context, url string, headers map[string]string) (*Response, error) {
	return c.do(ctx, http.MethodGet, url, nil, headers)
}

func (c *Client) do(ctx context.Context, method, url string, body []byte, headers map[string]string) (*Response, error) {
	if c.baseURL != "" {
		url = c.baseURL + url
	}

	var bodyReader io.Reader
	if body != nil {
		bodyReader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, bodyReader)
	if err != nil {
		return nil, carrier.NewError(c.carrier, carrier.CodeNetwork,
			fmt.Sprintf("Failed to build request: %v", err)).WithCause(err)
	}
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.hc.Do(req)
	if err != nil {
		return nil, c.normalizeError(err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, carrier.NewError(c.carrier, carrier.CodeNetwork,
			fmt.Sprintf("Failed to read response body: %v", err)).WithCause(err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, c.statusError(resp, data)
	}

	return &Response{
		Status: resp.StatusCode,
		Body:   data,
		Header: resp.Header,
	}, nil
}

// normalizeError maps a failure where no response was received: deadline
// exceeded becomes TIMEOUT, everything else NETWORK_ERROR.
func (c *Client) normalizeError(err error) error {
	if isTimeout(err) {
		return carrier.NewError(c.carrier, carrier.CodeTimeout,
			fmt.Sprintf("Request to %s timed out after %s", c.carrier, c.timeout)).WithCause(err)
	}
	return carrier.NewError(c.carrier, carrier.CodeNetwork,
		fmt.Sprintf("Network error: %v", err)).WithCause(err)
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var nerr interface{ Timeout() bool }
	return errors.As(err, &nerr) && nerr.Timeout()
}

// statusError maps a non-2xx response: 429 becomes RATE_LIMITED with any
// Retry-After hint, everything else CARRIER_API_ERROR retryable only for
// server-class statuses.
func (c *Client) statusError(resp *http.Response, body []byte) error {
	if resp.StatusCode == http.StatusTooManyRequests {
		err := carrier.NewError(c.carrier, carrier.CodeRateLimited,
			fmt.Sprintf("Rate limited by %s", c.carrier)).
			WithStatusCode(resp.StatusCode)
		if after := resp.Header.Get("Retry-After"); after != "" {
			if secs, perr := strconv.Atoi(after); perr == nil {
				err = err.WithRetryAfter(time.Duration(secs) * time.Second)
			}
		}
		return err
	}

	return carrier.NewError(c.carrier, carrier.CodeCarrierAPI,
		fmt.Sprintf("%s API error (HTTP %d): %s", c.carrier, resp.StatusCode, extractErrorMessage(body, resp.Status))).
		WithStatusCode(resp.StatusCode).
		WithDetails(errorDetails(body))
}

// extractErrorMessage pulls the most specific message out of an error body:
// the carrier's nested response.errors list first, then a plain message
// field, then the HTTP status text.
func extractErrorMessage(body []byte, statusText string) string {
	var nested struct {
		Response struct {
			Errors []struct {
				Code    string `json:"code"`
				Message string `json:"message"`
			} `json:"errors"`
		} `json:"response"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &nested); err == nil {
		if len(nested.Response.Errors) > 0 {
			if msg := nested.Response.Errors[0].Message; msg != "" {
				return msg
			}
			if code := nested.Response.Errors[0].Code; code != "" {
				return code
			}
		}
		if nested.Message != "" {
			return nested.Message
		}
	}
	return statusText
}

func errorDetails(body []byte) map[string]any {
	var details map[string]any
	if err := json.Unmarshal(body, &details); err == nil && details != nil {
		return details
	}
	return map[string]any{"raw": string(body)}
}
