package coordinator

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/agent-capability-network/go-acn-bridge/src/capability"
	json "github.com/agent-capability-network/go-acn-bridge/src/json"
)

// StatusError reports a non-success HTTP response from the coordinator,
// carrying the remote body for error surfacing.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("coordinator returned %d: %s", e.StatusCode, e.Body)
}

// WorkflowNode is a single node in a submitted workflow. The bridge always
// submits exactly one node named "main".
type WorkflowNode struct {
	CapabilityID string         `json:"capabilityId"`
	Payload      map[string]any `json:"payload"`
}

// PublishRequest is the body of POST /v1/workflows/publish.
type PublishRequest struct {
	Intent   string                  `json:"intent"`
	MaxCents int                     `json:"maxCents"`
	Nodes    map[string]WorkflowNode `json:"nodes"`
}

// NodeResult is a node's execution record from the workflow status endpoint.
type NodeResult struct {
	Name          string         `json:"name"`
	ResultPayload map[string]any `json:"result_payload"`
}

// WorkflowStatus is the response of GET /v1/workflows/{id}.
type WorkflowStatus struct {
	Workflow struct {
		Status string `json:"status"`
	} `json:"workflow"`
	Nodes []NodeResult `json:"nodes"`
}

// Node returns the named node's result record, or nil if absent.
func (s *WorkflowStatus) Node(name string) *NodeResult {
	for i := range s.Nodes {
		if s.Nodes[i].Name == name {
			return &s.Nodes[i]
		}
	}
	return nil
}

// Client talks to the coordinator's discovery and workflow-execution API.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     func(format string, args ...interface{})
}

// NewClient constructs a coordinator client. The api key is optional; when
// set it is sent as the x-api-key header on every call.
func NewClient(baseURL, apiKey string, logger func(format string, args ...interface{})) *Client {
	if logger == nil {
		logger = func(string, ...interface{}) {}
	}
	return &Client{
		baseURL:    baseURL,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		logger:     logger,
	}
}

// Discover fetches up to limit capabilities from GET /v1/discover.
// Optional fields are normalized per the discovery contract.
func (c *Client) Discover(ctx context.Context, limit int) ([]capability.Capability, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "/v1/discover", nil)
	if err != nil {
		return nil, err
	}
	q := req.URL.Query()
	q.Set("limit", strconv.Itoa(limit))
	req.URL.RawQuery = q.Encode()

	var out struct {
		Results []capability.Capability `json:"results"`
	}
	if err := c.do(req, &out); err != nil {
		return nil, err
	}
	for i := range out.Results {
		out.Results[i].Normalize()
	}
	return out.Results, nil
}

// PublishWorkflow submits a workflow and returns its handle.
func (c *Client) PublishWorkflow(ctx context.Context, pub PublishRequest) (string, error) {
	body, err := json.Marshal(pub)
	if err != nil {
		return "", err
	}
	req, err := c.newRequest(ctx, http.MethodPost, "/v1/workflows/publish", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	var out struct {
		WorkflowID string `json:"workflowId"`
	}
	if err := c.do(req, &out); err != nil {
		return "", err
	}
	if out.WorkflowID == "" {
		return "", &StatusError{StatusCode: http.StatusOK, Body: "missing workflowId in publish response"}
	}
	return out.WorkflowID, nil
}

// GetWorkflow queries the status of a previously published workflow.
func (c *Client) GetWorkflow(ctx context.Context, workflowID string) (*WorkflowStatus, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "/v1/workflows/"+workflowID, nil)
	if err != nil {
		return nil, err
	}
	var out WorkflowStatus
	if err := c.do(req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-Id", uuid.NewString())
	if c.apiKey != "" {
		req.Header.Set("x-api-key", c.apiKey)
	}
	return req, nil
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger("coordinator request %s %s failed: %v", req.Method, req.URL.Path, err)
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return &StatusError{StatusCode: resp.StatusCode, Body: string(b)}
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
