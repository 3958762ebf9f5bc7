package registry

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/agent-capability-network/go-acn-bridge/src/capability"
	json "github.com/agent-capability-network/go-acn-bridge/src/json"
)

// Client talks to the registry's free-text capability search endpoint.
// Unlike coordinator calls, search is unauthenticated.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     func(format string, args ...interface{})
}

func NewClient(baseURL string, logger func(format string, args ...interface{})) *Client {
	if logger == nil {
		logger = func(string, ...interface{}) {}
	}
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		logger:     logger,
	}
}

// Search runs a free-text query against POST /v1/agent/discovery and returns
// the ranked hits.
func (c *Client) Search(ctx context.Context, query string, limit int) ([]capability.SearchHit, error) {
	body, err := json.Marshal(map[string]any{
		"query": query,
		"limit": limit,
	})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/agent/discovery", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger("registry search failed: %v", err)
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("registry returned %d: %s", resp.StatusCode, string(b))
	}

	var out struct {
		Results []capability.SearchHit `json:"results"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, err
	}
	return out.Results, nil
}
