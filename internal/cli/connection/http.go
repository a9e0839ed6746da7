package connection

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// ShardStat is one shard's key count as reported by the admin endpoint.
type ShardStat struct {
	Shard int `json:"shard"`
	Keys  int `json:"keys"`
}

// Health is the admin endpoint's liveness report.
type Health struct {
	Status   string `json:"status"`
	Time     string `json:"time"`
	Keys     int    `json:"keys"`
	Sessions int    `json:"sessions"`
}

// AdminClient talks to the server's admin HTTP endpoint.
type AdminClient struct {
	baseURL string
	client  *http.Client
}

// NewAdminClient creates an admin client for addr (host:port or URL).
func NewAdminClient(addr string) *AdminClient {
	baseURL := strings.TrimRight(addr, "/")
	if !strings.HasPrefix(baseURL, "http://") && !strings.HasPrefix(baseURL, "https://") {
		baseURL = "http://" + baseURL
	}

	return &AdminClient{
		baseURL: baseURL,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// BaseURL returns the base URL of the client.
func (c *AdminClient) BaseURL() string {
	return c.baseURL
}

// Health fetches GET /healthz.
func (c *AdminClient) Health(ctx context.Context) (*Health, error) {
	var h Health
	if err := c.do(ctx, http.MethodGet, "/healthz", &h); err != nil {
		return nil, err
	}
	return &h, nil
}

// Shards fetches GET /debug/shards.
func (c *AdminClient) Shards(ctx context.Context) ([]ShardStat, error) {
	var shards []ShardStat
	if err := c.do(ctx, http.MethodGet, "/debug/shards", &shards); err != nil {
		return nil, err
	}
	return shards, nil
}

// Reset disconnects every session on the server and returns how many
// were dropped.
func (c *AdminClient) Reset(ctx context.Context) (int, error) {
	var body struct {
		Disconnected int `json:"disconnected"`
	}
	if err := c.do(ctx, http.MethodPost, "/admin/reset", &body); err != nil {
		return 0, err
	}
	return body.Disconnected, nil
}

func (c *AdminClient) do(ctx context.Context, method, path string, target any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", "kvs-client/1.0")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	return ParseResponse(resp, target)
}

// ParseResponse parses a JSON response body into the target.
func ParseResponse(resp *http.Response, target any) error {
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var errResp struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&errResp); err == nil && errResp.Message != "" {
			return fmt.Errorf("[%s] %s", errResp.Code, errResp.Message)
		}
		return fmt.Errorf("request failed with status %d", resp.StatusCode)
	}

	if target != nil {
		if err := json.NewDecoder(resp.Body).Decode(target); err != nil {
			return fmt.Errorf("parse response: %w", err)
		}
	} else {
		_, _ = io.Copy(io.Discard, resp.Body)
	}
	return nil
}
