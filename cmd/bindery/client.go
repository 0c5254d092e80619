package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"bindery/internal/api"
	"bindery/internal/config"
)

// apiClient talks to a running daemon over its HTTP API.
type apiClient struct {
	base   string
	client *http.Client
}

func newAPIClient(cfg *config.Config) *apiClient {
	return &apiClient{
		base:   "http://" + strings.TrimSpace(cfg.Paths.APIBind),
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

func (c *apiClient) get(path string, query url.Values, out any) error {
	target := c.base + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}
	resp, err := c.client.Get(target)
	if err != nil {
		return fmt.Errorf("is the daemon running? %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var payload struct {
			Error string `json:"error"`
		}
		if decodeErr := json.NewDecoder(resp.Body).Decode(&payload); decodeErr == nil && payload.Error != "" {
			return fmt.Errorf("daemon returned %d: %s", resp.StatusCode, payload.Error)
		}
		return fmt.Errorf("daemon returned %d", resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (c *apiClient) health() (api.HealthResponse, error) {
	var out api.HealthResponse
	err := c.get("/api/v1/health", nil, &out)
	return out, err
}

func (c *apiClient) status() (api.StatusResponse, error) {
	var out api.StatusResponse
	err := c.get("/api/v1/status", nil, &out)
	return out, err
}

func (c *apiClient) queue(status string) (api.QueueResponse, error) {
	var out api.QueueResponse
	query := url.Values{}
	if status != "" {
		query.Set("status", status)
	}
	err := c.get("/api/v1/queue", query, &out)
	return out, err
}
