// Package upstream holds the HTTP clients for the services the gateway composes:
// auth/profile, task catalog, bookings, messaging and geocoding.
package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"unicode/utf8"
	"time"
)

const maxResponseBodyBytes = 1 << 20

// RequestError is a non-2xx answer from an upstream service.
type RequestError struct {
	Service    string
	StatusCode int
	Detail     string
}

func (e *RequestError) Error() string {
	if e == nil {
		return "request failed"
	}
	if strings.TrimSpace(e.Detail) == "" {
		return fmt.Sprintf("%s request failed (%d)", e.Service, e.StatusCode)
	}
	return fmt.Sprintf("%s request failed (%d): %s", e.Service, e.StatusCode, e.Detail)
}

// HTTPStatusCode returns the upstream status.
func (e *RequestError) HTTPStatusCode() int {
	if e == nil {
		return 0
	}
	return e.StatusCode
}

// HTTPStatusCode returns the HTTP status carried by a RequestError anywhere in err's chain.
func HTTPStatusCode(err error) (int, bool) {
	var reqErr *RequestError
	if !errors.As(err, &reqErr) || reqErr.StatusCode <= 0 {
		return 0, false
	}
	return reqErr.StatusCode, true
}

// Detail returns the server-provided message of a RequestError, or err's text otherwise.
func Detail(err error) string {
	var reqErr *RequestError
	if errors.As(err, &reqErr) && strings.TrimSpace(reqErr.Detail) != "" {
		return reqErr.Detail
	}
	if err == nil {
		return ""
	}
	return err.Error()
}

// Client issues JSON requests against one upstream base URL, forwarding the caller's
// bearer credential.
type Client struct {
	Service string
	BaseURL string
	HTTP    *http.Client
}

// NewClient returns a client for service rooted at baseURL.
func NewClient(service, baseURL string, timeout time.Duration) *Client {
	return &Client{
		Service: service,
		BaseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		HTTP:    &http.Client{Timeout: timeout},
	}
}

// Get performs a GET and returns the raw response body.
func (c *Client) Get(ctx context.Context, path, token string) ([]byte, error) {
	req, err := c.newRequest(ctx, http.MethodGet, path, token, nil)
	if err != nil {
		return nil, err
	}
	return c.do(req)
}

// Post sends body as JSON and returns the raw response body.
func (c *Client) Post(ctx context.Context, path, token string, body interface{}) ([]byte, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encode %s request: %w", c.Service, err)
	}
	req, err := c.newRequest(ctx, http.MethodPost, path, token, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req)
}

func (c *Client) newRequest(ctx context.Context, method, path, token string, body io.Reader) (*http.Request, error) {
	if c.BaseURL == "" {
		return nil, fmt.Errorf("missing %s base URL", c.Service)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, body)
	if err != nil {
		return nil, err
	}
	if t := strings.TrimSpace(token); t != "" {
		req.Header.Set("Authorization", "Bearer "+t)
	}
	req.Header.Set("Accept", "application/json")
	return req, nil
}

func (c *Client) do(req *http.Request) ([]byte, error) {
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", req.Method, c.Service, err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("read %s response: %w", c.Service, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &RequestError{
			Service:    c.Service,
			StatusCode: resp.StatusCode,
			Detail:     summarizeBody(resp.Header.Get("Content-Type"), payload),
		}
	}
	return payload, nil
}

// summarizeBody extracts a human message from an error body: the error/message/detail
// field of a JSON body, or the trimmed text. HTML pages are not echoed.
func summarizeBody(contentType string, payload []byte) string {
	trimmed := strings.TrimSpace(string(payload))
	if trimmed == "" {
		return ""
	}
	lower := strings.ToLower(trimmed)
	if strings.Contains(strings.ToLower(contentType), "text/html") ||
		strings.HasPrefix(lower, "<!doctype html") || strings.HasPrefix(lower, "<html") {
		return "html response body omitted"
	}
	if strings.HasPrefix(trimmed, "{") {
		var body map[string]interface{}
		if err := json.Unmarshal(payload, &body); err == nil {
			for _, key := range []string{"message", "error", "detail"} {
				if v, ok := body[key].(string); ok && strings.TrimSpace(v) != "" {
					return truncate(strings.TrimSpace(v), 500)
				}
			}
		}
	}
	return truncate(trimmed, 500)
}

// truncate cuts value to at most max bytes without splitting a rune.
func truncate(value string, max int) string {
	if len(value) <= max {
		return value
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(value[cut]) {
		cut--
	}
	return value[:cut] + "..."
}
