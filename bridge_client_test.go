package bridge

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/agent-capability-network/go-acn-bridge/src/cache"
	"github.com/agent-capability-network/go-acn-bridge/src/capability"
	"github.com/agent-capability-network/go-acn-bridge/src/coordinator"
	json "github.com/agent-capability-network/go-acn-bridge/src/json"
	"github.com/agent-capability-network/go-acn-bridge/src/workflow"
)

type staticCaps struct {
	caps []capability.Capability
}

func (s *staticCaps) Get(ctx context.Context) []capability.Capability { return s.caps }

type fakeInvoker struct {
	calls    int
	lastID   string
	lastArgs map[string]any
	result   map[string]any
	err      error
}

func (f *fakeInvoker) Invoke(ctx context.Context, capabilityID string, payload map[string]any) (map[string]any, error) {
	f.calls++
	f.lastID = capabilityID
	f.lastArgs = payload
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

type fakeSearcher struct {
	hits []capability.SearchHit
	err  error
}

func (f *fakeSearcher) Search(ctx context.Context, query string, limit int) ([]capability.SearchHit, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.hits, nil
}

func noopLog(string, ...interface{}) {}

func newTestBridge(caps []capability.Capability, inv *fakeInvoker, search *fakeSearcher) *BridgeClient {
	if inv == nil {
		inv = &fakeInvoker{result: map[string]any{}}
	}
	if search == nil {
		search = &fakeSearcher{}
	}
	return NewBridgeClient(&staticCaps{caps: caps}, inv, search, noopLog)
}

func TestListToolsMetaToolsFirstThenBoundedSlice(t *testing.T) {
	var caps []capability.Capability
	for i := 0; i < 25; i++ {
		caps = append(caps, capability.Capability{
			AgentID:      fmt.Sprintf("did:agent:%d", i),
			CapabilityID: fmt.Sprintf("cap.n%d.v1", i),
			Description:  fmt.Sprintf("Capability %d", i),
			Reputation:   0.5,
		})
	}
	b := newTestBridge(caps, nil, nil)

	tools := b.ListTools(context.Background())
	require.Len(t, tools, 2+MaxListedCapabilities)
	require.Equal(t, SearchToolName, tools[0].Name)
	require.Equal(t, CallToolName, tools[1].Name)
	// Cache order preserved, no ranking.
	require.Equal(t, "cap_n0_v1", tools[2].Name)
	require.Equal(t, "cap_n19_v1", tools[len(tools)-1].Name)
	require.Contains(t, tools[2].Description, "Capability 0")
	require.Contains(t, tools[2].Description, "did:agent:0")
	require.Contains(t, tools[2].Description, "50%")
}

func TestCallToolUnknownNameNoNetwork(t *testing.T) {
	inv := &fakeInvoker{}
	b := newTestBridge([]capability.Capability{
		{CapabilityID: "cap.known.v1"},
	}, inv, nil)

	res := b.CallTool(context.Background(), "cap_missing_v9", nil)
	if !res.IsError {
		t.Fatal("expected error-flagged result")
	}
	if !strings.Contains(res.Text, "cap_missing_v9") {
		t.Fatalf("result must name the unknown tool: %q", res.Text)
	}
	if !strings.Contains(res.Text, SearchToolName) {
		t.Fatalf("result should suggest the search tool: %q", res.Text)
	}
	if inv.calls != 0 {
		t.Fatalf("unknown tool must not invoke anything, got %d calls", inv.calls)
	}
}

func TestCallToolSearchRendersHits(t *testing.T) {
	search := &fakeSearcher{hits: []capability.SearchHit{
		{CapabilityID: "cap.weather.forecast.v1", Description: "Forecasts weather", Reputation: 0.9},
		{CapabilityID: "cap.geo.lookup.v1", Description: "Geocoding", Reputation: 0.45},
	}}
	b := newTestBridge(nil, nil, search)

	res := b.CallTool(context.Background(), SearchToolName, map[string]any{"query": "weather"})
	require.False(t, res.IsError)
	lines := strings.Split(res.Text, "\n")
	require.Len(t, lines, 2)
	require.Equal(t, "cap.weather.forecast.v1: Forecasts weather (rep: 90%)", lines[0])
	require.Equal(t, "cap.geo.lookup.v1: Geocoding (rep: 45%)", lines[1])
}

func TestCallToolSearchEmptyAndFailure(t *testing.T) {
	b := newTestBridge(nil, nil, &fakeSearcher{})
	res := b.CallTool(context.Background(), SearchToolName, map[string]any{"query": "nothing"})
	require.False(t, res.IsError)
	require.Contains(t, res.Text, "No capabilities matched")

	b = newTestBridge(nil, nil, &fakeSearcher{err: errors.New("dial tcp: timeout")})
	res = b.CallTool(context.Background(), SearchToolName, map[string]any{"query": "anything"})
	// Transport failure renders a retry-later message, never an error flag.
	require.False(t, res.IsError)
	require.Contains(t, res.Text, "try again later")
}

func TestCallToolCallMetaTool(t *testing.T) {
	inv := &fakeInvoker{result: map[string]any{"echoed": "hi"}}
	b := newTestBridge(nil, inv, nil)

	res := b.CallTool(context.Background(), CallToolName, map[string]any{
		"capabilityId": "cap.echo.v1",
		"inputs":       map[string]any{"text": "hi"},
	})
	require.False(t, res.IsError)
	require.Equal(t, "cap.echo.v1", inv.lastID)
	require.Equal(t, "hi", inv.lastArgs["text"])
	require.Contains(t, res.Text, `"echoed": "hi"`)
}

func TestCallToolCallRequiresCapabilityID(t *testing.T) {
	inv := &fakeInvoker{}
	b := newTestBridge(nil, inv, nil)

	res := b.CallTool(context.Background(), CallToolName, map[string]any{})
	require.True(t, res.IsError)
	require.Contains(t, res.Text, "capabilityId")
	require.Zero(t, inv.calls)
}

func TestCallToolCallDefaultsInputs(t *testing.T) {
	inv := &fakeInvoker{result: map[string]any{}}
	b := newTestBridge(nil, inv, nil)

	res := b.CallTool(context.Background(), CallToolName, map[string]any{"capabilityId": "cap.echo.v1"})
	require.False(t, res.IsError)
	require.NotNil(t, inv.lastArgs)
	require.Empty(t, inv.lastArgs)
}

func TestCallToolCapabilityPayloadMerge(t *testing.T) {
	inv := &fakeInvoker{result: map[string]any{}}
	b := newTestBridge([]capability.Capability{
		{CapabilityID: "cap.fx.rates.v1", Description: "FX rates"},
	}, inv, nil)

	res := b.CallTool(context.Background(), "cap_fx_rates_v1", map[string]any{
		"query": "EUR to USD",
		"data":  map[string]any{"base": "EUR", "query": "overridden"},
	})
	require.False(t, res.IsError)
	require.Equal(t, "cap.fx.rates.v1", inv.lastID)
	// Data fields spread over the query payload; data wins on collision.
	require.Equal(t, "overridden", inv.lastArgs["query"])
	require.Equal(t, "EUR", inv.lastArgs["base"])
}

func TestCallToolCapabilityFirstMatchWins(t *testing.T) {
	// Two ids that differ only in stripped characters collide on the
	// encoded name; the ordered scan resolves to the first cache entry.
	inv := &fakeInvoker{result: map[string]any{}}
	b := newTestBridge([]capability.Capability{
		{CapabilityID: "cap.fx.rates.v1"},
		{CapabilityID: "cap.fx.rates.v1!"},
	}, inv, nil)

	b.CallTool(context.Background(), "cap_fx_rates_v1", map[string]any{"query": "x"})
	require.Equal(t, "cap.fx.rates.v1", inv.lastID)
}

func TestCallToolInvocationErrorIsFlaggedResult(t *testing.T) {
	inv := &fakeInvoker{err: &workflow.TimeoutError{CapabilityID: "cap.slow.v1", After: 60 * time.Second}}
	b := newTestBridge([]capability.Capability{
		{CapabilityID: "cap.slow.v1"},
	}, inv, nil)

	res := b.CallTool(context.Background(), "cap_slow_v1", map[string]any{"query": "x"})
	require.True(t, res.IsError)
	require.Contains(t, res.Text, "cap.slow.v1")
	require.Contains(t, res.Text, "terminal state")
}

// End-to-end: discovery through the real coordinator client and cache, then
// a workflow submission that succeeds on poll, returning the main node's
// payload as formatted JSON.
func TestBridgeWeatherScenario(t *testing.T) {
	var published coordinator.PublishRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/v1/discover":
			io.WriteString(w, `{"results": [
				{"did": "did:agent:weather", "capabilityId": "cap.weather.forecast.v1", "description": "Forecasts weather", "reputation": 0.9}
			]}`)
		case r.URL.Path == "/v1/workflows/publish":
			if err := json.NewDecoder(r.Body).Decode(&published); err != nil {
				t.Error(err)
			}
			io.WriteString(w, `{"workflowId": "wf-weather"}`)
		case strings.HasPrefix(r.URL.Path, "/v1/workflows/"):
			io.WriteString(w, `{
				"workflow": {"status": "success"},
				"nodes": [{"name": "main", "result_payload": {"forecast": "sunny", "high": 29}}]
			}`)
		default:
			t.Errorf("unexpected path %q", r.URL.Path)
		}
	}))
	defer srv.Close()

	coord := coordinator.NewClient(srv.URL, "", noopLog)
	caps := cache.New(coord, noopLog)
	inv := workflow.NewInvoker(coord, noopLog)
	now := time.Unix(9000, 0)
	inv.Now = func() time.Time { return now }
	inv.Sleep = func(d time.Duration) { now = now.Add(d) }

	b := NewBridgeClient(caps, inv, &fakeSearcher{}, noopLog)

	tools := b.ListTools(context.Background())
	require.Equal(t, "cap_weather_forecast_v1", tools[2].Name)

	res := b.CallTool(context.Background(), "cap_weather_forecast_v1", map[string]any{"query": "NYC"})
	require.False(t, res.IsError)
	require.Contains(t, res.Text, `"forecast": "sunny"`)

	require.Equal(t, 100, published.MaxCents)
	node := published.Nodes["main"]
	require.Equal(t, "cap.weather.forecast.v1", node.CapabilityID)
	require.Equal(t, "NYC", node.Payload["query"])
}
