package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"
)

func baseURL() string {
	if v := os.Getenv("BASE_URL"); v != "" {
		return v
	}
	return "http://localhost:8080"
}

// TestContext holds state between test steps.
type TestContext struct {
	BaseURL          string
	HTTPClient       *http.Client
	LastResponse     *http.Response
	LastResponseBody []byte

	SessionTokens map[string]string
	ClaimIDs      map[string]string
	ShareToken    string
	ShareLink     string
}

// NewTestContext creates a fresh context for a scenario.
func NewTestContext() *TestContext {
	return &TestContext{
		BaseURL: baseURL(),
		HTTPClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		SessionTokens: make(map[string]string),
		ClaimIDs:      make(map[string]string),
	}
}

// POST makes a JSON POST request and stores the response.
func (tc *TestContext) POST(path string, body any, bearer string) error {
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal request body: %w", err)
	}
	return tc.send(http.MethodPost, path, "application/json", bytes.NewReader(data), bearer)
}

// GET makes a GET request and stores the response.
func (tc *TestContext) GET(path, bearer string) error {
	return tc.send(http.MethodGet, path, "", nil, bearer)
}

func (tc *TestContext) send(method, path, contentType string, body io.Reader, bearer string) error {
	req, err := http.NewRequestWithContext(context.Background(), method, tc.BaseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := tc.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to make request: %w", err)
	}

	tc.LastResponse = resp
	tc.LastResponseBody, err = io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}
	return nil
}

// GetResponseField extracts a top-level field from the JSON response.
func (tc *TestContext) GetResponseField(field string) (any, error) {
	var data map[string]any
	if err := json.Unmarshal(tc.LastResponseBody, &data); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}
	value, ok := data[field]
	if !ok {
		return nil, fmt.Errorf("field %q not found in response: %s", field, tc.LastResponseBody)
	}
	return value, nil
}
