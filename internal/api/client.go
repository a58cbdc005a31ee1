package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/banshee-data/activity.report/internal/httputil"
)

// Client talks to a running activity server.
type Client struct {
	http    httputil.HTTPClient
	baseURL string
}

// NewClient returns a client for baseURL. A nil c uses http.DefaultClient.
func NewClient(baseURL string, c httputil.HTTPClient) *Client {
	if c == nil {
		c = http.DefaultClient
	}
	return &Client{http: c, baseURL: strings.TrimRight(baseURL, "/")}
}

// Activity fetches the current snapshot.
func (c *Client) Activity(ctx context.Context) (ActivityResponse, error) {
	var out ActivityResponse
	err := c.do(ctx, http.MethodGet, "/api/activity", &out)
	return out, err
}

// Start begins a tracking session and returns the resulting snapshot.
func (c *Client) Start(ctx context.Context) (ActivityResponse, error) {
	var out ActivityResponse
	err := c.do(ctx, http.MethodPost, "/api/activity/start", &out)
	return out, err
}

// Stop ends the tracking session and returns the resulting snapshot.
func (c *Client) Stop(ctx context.Context) (ActivityResponse, error) {
	var out ActivityResponse
	err := c.do(ctx, http.MethodPost, "/api/activity/stop", &out)
	return out, err
}

// Config fetches the tuning values in effect.
func (c *Client) Config(ctx context.Context) (ConfigResponse, error) {
	var out ConfigResponse
	err := c.do(ctx, http.MethodGet, "/api/config", &out)
	return out, err
}

func (c *Client) do(ctx context.Context, method, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("%s %s: read body: %w", method, path, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var apiErr struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(body, &apiErr) == nil && apiErr.Error != "" {
			return fmt.Errorf("%s %s: %d: %s", method, path, resp.StatusCode, apiErr.Error)
		}
		return fmt.Errorf("%s %s: unexpected status %d", method, path, resp.StatusCode)
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%s %s: decode response: %w", method, path, err)
	}
	return nil
}
