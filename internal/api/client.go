package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Client talks to the classroom server's REST API. Every endpoint wraps
// its response in a {success, data?, error?} envelope; a 2xx with
// success=false is a business-rule rejection, not a transport error.
type Client struct {
	baseURL string
	client  *http.Client
	headers map[string]string
}

// Envelope is the response wrapper used by every classroom endpoint.
type Envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data,omitempty"`
	Error   string          `json:"error,omitempty"`
}

// RejectionError carries the server's message when it answers
// success=false. Callers use it to tell business rejections apart from
// transport failures.
type RejectionError struct {
	Message string
}

func (e *RejectionError) Error() string {
	if e.Message == "" {
		return "request rejected by server"
	}
	return e.Message
}

func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
		headers: map[string]string{
			"Content-Type": "application/json",
		},
	}
}

func (c *Client) SetHeader(key, value string) {
	c.headers[key] = value
}

func (c *Client) SetTimeout(timeout time.Duration) {
	c.client.Timeout = timeout
}

// makeRequest performs an HTTP request and returns the raw body together
// with the status code. Non-2xx statuses are returned to the caller
// rather than as errors so endpoints can treat 404 specially.
func (c *Client) makeRequest(ctx context.Context, method, endpoint string, body io.Reader) ([]byte, int, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+endpoint, body)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to create request: %w", err)
	}

	for key, value := range c.headers {
		req.Header.Set(key, value)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	responseBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("failed to read response body: %w", err)
	}

	return responseBody, resp.StatusCode, nil
}

// call issues a request and decodes the envelope. A success=false
// envelope comes back as a *RejectionError; statuses outside 2xx (other
// than the ones listed in okStatuses) are transport errors.
func (c *Client) call(ctx context.Context, method, endpoint string, payload interface{}, okStatuses ...int) (*Envelope, int, error) {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to encode request body: %w", err)
		}
		body = bytes.NewReader(data)
	}

	responseBody, status, err := c.makeRequest(ctx, method, endpoint, body)
	if err != nil {
		return nil, status, err
	}

	if status < 200 || status >= 300 {
		ok := false
		for _, s := range okStatuses {
			if status == s {
				ok = true
				break
			}
		}
		if !ok {
			return nil, status, fmt.Errorf("API returned status code: %d, response: %s", status, string(responseBody))
		}
	}

	var env Envelope
	if err := json.Unmarshal(responseBody, &env); err != nil {
		return nil, status, fmt.Errorf("failed to decode response envelope: %w", err)
	}

	return &env, status, nil
}
