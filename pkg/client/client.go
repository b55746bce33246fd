// Package client implements the HTTP clients for the remote auth and chat
// collaborators. Transport details stop here; callers see decoded payloads
// or an *APIError.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// APIError is a non-2xx response decoded into a user-displayable message.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error (status %d): %s", e.Status, e.Message)
}

// IsUnauthorized reports whether err is an APIError carrying a 401, i.e. an
// authentication rejection that must force a logout.
func IsUnauthorized(err error) bool {
	var ae *APIError
	return errors.As(err, &ae) && ae.Status == http.StatusUnauthorized
}

// Client talks to the application backend at a single base URL.
type Client struct {
	baseURL string
	httpc   *http.Client
}

// New returns a client bound to baseURL (e.g. "http://localhost:5001").
func New(baseURL string) *Client {
	return NewWithHTTPClient(baseURL, &http.Client{Timeout: 30 * time.Second})
}

// NewWithHTTPClient lets callers supply their own http.Client, mainly for
// tests that need a server-bound client.
func NewWithHTTPClient(baseURL string, hc *http.Client) *Client {
	for len(baseURL) > 0 && baseURL[len(baseURL)-1] == '/' {
		baseURL = baseURL[:len(baseURL)-1]
	}
	return &Client{baseURL: baseURL, httpc: hc}
}

// doJSON performs one JSON request. A non-empty token is sent as a bearer
// credential. out may be nil when the response body is irrelevant.
func (c *Client) doJSON(ctx context.Context, method, path, token string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := c.httpc.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeError(resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// decodeError turns an error response into an *APIError, preferring the
// service's own message fields and falling back to the HTTP status text.
func decodeError(resp *http.Response) error {
	var payload struct {
		Message string `json:"message"`
		Err     string `json:"error"`
	}
	msg := http.StatusText(resp.StatusCode)
	if b, err := io.ReadAll(io.LimitReader(resp.Body, 1<<16)); err == nil {
		if json.Unmarshal(b, &payload) == nil {
			if payload.Message != "" {
				msg = payload.Message
			} else if payload.Err != "" {
				msg = payload.Err
			}
		}
	}
	return &APIError{Status: resp.StatusCode, Message: msg}
}
