// Package client talks to a running Mapty server over its HTTP API.
package client

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/claude/mapty/internal/models"
)

// Client reads workouts from, and asks for re-saves on, a Mapty server.
type Client struct {
	serverURL  string
	apiKey     string
	httpClient *http.Client
	backoff    time.Duration
}

// New creates a client for serverURL. apiKey may be empty when the server
// runs without one.
func New(serverURL, apiKey string) *Client {
	return &Client{
		serverURL: serverURL,
		apiKey:    apiKey,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		backoff: time.Second,
	}
}

// Workouts fetches every workout in the order the server holds them.
func (c *Client) Workouts() ([]models.Workout, error) {
	body, err := c.do(http.MethodGet, "/api/v1/workouts", http.StatusOK)
	if err != nil {
		return nil, fmt.Errorf("fetching workouts: %w", err)
	}

	var ws []models.Workout
	if err := json.Unmarshal(body, &ws); err != nil {
		return nil, fmt.Errorf("decoding workouts: %w", err)
	}
	return ws, nil
}

// Sync asks the server to persist its current list again and returns how
// many workouts were written.
func (c *Client) Sync() (int, error) {
	body, err := c.do(http.MethodPost, "/api/v1/workouts/sync", http.StatusOK)
	if err != nil {
		return 0, fmt.Errorf("syncing workouts: %w", err)
	}

	var resp struct {
		Saved int `json:"saved"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return 0, fmt.Errorf("decoding sync response: %w", err)
	}
	return resp.Saved, nil
}

// do sends an idempotent request, retrying up to 3 times with exponential
// backoff on transport errors and 5xx responses.
func (c *Client) do(method, path string, want int) ([]byte, error) {
	var lastErr error
	for attempt := range 3 {
		if attempt > 0 {
			time.Sleep(c.backoff << uint(attempt-1))
		}

		req, err := http.NewRequest(method, c.serverURL+path, nil)
		if err != nil {
			return nil, err
		}
		if c.apiKey != "" {
			req.Header.Set("X-API-Key", c.apiKey)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = err
			continue
		}

		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()

		if resp.StatusCode == want {
			return body, nil
		}
		lastErr = fmt.Errorf("status %d: %s", resp.StatusCode, body)
		if resp.StatusCode < 500 {
			return nil, lastErr
		}
	}

	return nil, fmt.Errorf("after 3 attempts: %w", lastErr)
}
