// Package client talks to a KDOC document host over its JSON HTTP API.
// Every call goes through a retry policy; a response counts as failed when
// the transport fails, the status is 4xx/5xx, or the JSON body says "ok": false.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Client is an HTTP client for the document host API.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	retry      RetryPolicy
}

// Option configures a Client.
type Option func(*Client)

// WithToken sets the bearer token sent with every request.
func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithTimeout sets the per-attempt HTTP timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.httpClient = &http.Client{Timeout: d}
		}
	}
}

// WithRetryPolicy sets the policy used by retryable calls.
func WithRetryPolicy(p RetryPolicy) Option {
	return func(c *Client) { c.retry = p }
}

// New creates a client for the host at baseURL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
		retry:      DefaultRetry,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// BaseURL returns the host address.
func (c *Client) BaseURL() string { return c.baseURL }

type request struct {
	method      string
	path        string
	query       url.Values
	body        []byte
	contentType string
}

func jsonRequest(method, path string, payload any) (request, error) {
	r := request{method: method, path: path}
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return r, fmt.Errorf("marshal body: %w", err)
		}
		r.body = data
		r.contentType = "application/json"
	}
	return r, nil
}

// do runs r under policy and returns the body of the first successful
// attempt. Attempts run strictly one after another. A negative retry count
// means a single attempt.
func (c *Client) do(ctx context.Context, r request, policy RetryPolicy) ([]byte, error) {
	if policy.Retries < 0 {
		policy.Retries = 0
	}
	var last *Error
	for attempt := 0; attempt <= policy.Retries; attempt++ {
		if attempt > 0 {
			if err := policy.wait(ctx, attempt); err != nil {
				last.Attempts = attempt
				last.Err = errors.Join(last.Err, err)
				return nil, last
			}
		}
		body, err := c.once(ctx, r)
		if err == nil {
			return body, nil
		}
		last = err
		if ctx.Err() != nil {
			last.Attempts = attempt + 1
			return nil, last
		}
	}
	last.Attempts = policy.Retries + 1
	return nil, last
}

func (c *Client) once(ctx context.Context, r request) ([]byte, *Error) {
	target := c.baseURL + r.path
	if len(r.query) > 0 {
		target += "?" + r.query.Encode()
	}
	var reqBody io.Reader
	if r.body != nil {
		reqBody = bytes.NewReader(r.body)
	}
	req, err := http.NewRequestWithContext(ctx, r.method, target, reqBody)
	if err != nil {
		return nil, &Error{Message: fmt.Sprintf("create request: %v", err), Err: err}
	}
	if r.contentType != "" {
		req.Header.Set("Content-Type", r.contentType)
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &Error{Message: fmt.Sprintf("request failed: %v", err), Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &Error{Status: resp.StatusCode, Message: fmt.Sprintf("read response: %v", err), Err: err}
	}
	if fail, bad := failure(resp.StatusCode, body); bad {
		return nil, fail
	}
	return body, nil
}

func decode[T any](data []byte) (*T, error) {
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &v, nil
}

// Info returns the host status. It is not retried.
func (c *Client) Info(ctx context.Context) (*HostInfo, error) {
	body, err := c.do(ctx, request{method: http.MethodGet, path: "/info"}, NoRetry)
	if err != nil {
		return nil, err
	}
	return decode[HostInfo](body)
}
