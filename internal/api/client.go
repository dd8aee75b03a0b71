package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"activity_mon/internal/activity"
	"activity_mon/internal/monitor"
)

// Client talks to a running daemon's API. The CLI uses it so that commands
// go through the daemon instead of writing the record behind its back.
type Client struct {
	base  string
	token string
	http  *http.Client
}

func NewClient(baseURL, token string) *Client {
	return &Client{
		base:  baseURL,
		token: token,
		http:  &http.Client{Timeout: 5 * time.Second},
	}
}

// Ping reports whether a daemon answers on the base URL.
func (c *Client) Ping(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/health", nil, nil)
}

func (c *Client) Summary(ctx context.Context) (activity.Summary, error) {
	var out activity.Summary
	err := c.do(ctx, http.MethodGet, "/api/activity/summary", nil, &out)
	return out, err
}

func (c *Client) Status(ctx context.Context) (activity.SessionStatus, error) {
	var out activity.SessionStatus
	err := c.do(ctx, http.MethodGet, "/api/activity/status", nil, &out)
	return out, err
}

func (c *Client) Sessions(ctx context.Context, n int) ([]activity.Session, error) {
	var out []activity.Session
	path := "/api/activity/sessions?limit=" + url.QueryEscape(strconv.Itoa(n))
	err := c.do(ctx, http.MethodGet, path, nil, &out)
	return out, err
}

func (c *Client) EnterBreak(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/api/activity/break", nil, nil)
}

func (c *Client) ExitBreak(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/api/activity/resume", nil, nil)
}

func (c *Client) MarkLoggedOut(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/api/activity/logout", nil, nil)
}

func (c *Client) Cleanup(ctx context.Context) (int, error) {
	var out struct {
		Removed int `json:"removed"`
	}
	err := c.do(ctx, http.MethodPost, "/api/activity/cleanup", nil, &out)
	return out.Removed, err
}

func (c *Client) TrackingStatus(ctx context.Context) (monitor.Status, error) {
	var out monitor.Status
	err := c.do(ctx, http.MethodGet, "/api/tracking/status", nil, &out)
	return out, err
}

func (c *Client) SetThreshold(ctx context.Context, ms int64) (monitor.Status, error) {
	var out monitor.Status
	err := c.do(ctx, http.MethodPut, "/api/tracking/threshold", map[string]int64{"threshold": ms}, &out)
	return out, err
}

// APIError is a non-2xx answer from the server.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api: %d %s", e.StatusCode, e.Message)
}

// NotFound reports whether the server had no record for the user.
func (e *APIError) NotFound() bool { return e.StatusCode == http.StatusNotFound }

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var rd io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		rd = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base+path, rd)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		var e errorResponse
		if err := json.NewDecoder(resp.Body).Decode(&e); err != nil || e.Error == "" {
			e.Error = resp.Status
		}
		return &APIError{StatusCode: resp.StatusCode, Message: e.Error}
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
