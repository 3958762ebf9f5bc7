// file: bridge_client.go
package bridge

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/spf13/cast"

	"github.com/agent-capability-network/go-acn-bridge/src/capability"
	"github.com/agent-capability-network/go-acn-bridge/src/codec"
	json "github.com/agent-capability-network/go-acn-bridge/src/json"
)

// Tool names and limits for the dispatcher surface.
const (
	SearchToolName = "search"
	CallToolName   = "call"

	// MaxListedCapabilities bounds how many discovered capabilities are
	// rendered as tools, first-come in cache order, no ranking.
	MaxListedCapabilities = 20
	// SearchLimit bounds the registry query issued by the search meta-tool.
	SearchLimit = 10
)

// Capabilities serves the current capability list (the process-wide cache).
type Capabilities interface {
	Get(ctx context.Context) []capability.Capability
}

// Invoker runs one capability call through the coordinator.
type Invoker interface {
	Invoke(ctx context.Context, capabilityID string, payload map[string]any) (map[string]any, error)
}

// Searcher is the registry's free-text discovery endpoint.
type Searcher interface {
	Search(ctx context.Context, query string, limit int) ([]capability.SearchHit, error)
}

// ToolDescriptor is a single tool as presented to the host.
type ToolDescriptor struct {
	Name        string
	Description string
}

// Result is the outcome of a tool invocation. The dispatcher never returns
// an error across the protocol boundary; failures become error-flagged
// results instead.
type Result struct {
	Text    string
	IsError bool
}

// BridgeClient composes the capability cache, the workflow invoker and the
// registry search into the two protocol-facing operations: enumerate tools
// and invoke a tool by name.
type BridgeClient struct {
	caps     Capabilities
	invoker  Invoker
	registry Searcher
	logger   func(format string, args ...interface{})
}

func NewBridgeClient(caps Capabilities, invoker Invoker, registry Searcher, logger func(format string, args ...interface{})) *BridgeClient {
	if logger == nil {
		logger = log.Printf
	}
	return &BridgeClient{
		caps:     caps,
		invoker:  invoker,
		registry: registry,
		logger:   logger,
	}
}

// ListTools returns the two fixed meta-tools followed by up to
// MaxListedCapabilities discovered capabilities, each rendered through the
// name codec.
func (b *BridgeClient) ListTools(ctx context.Context) []ToolDescriptor {
	tools := []ToolDescriptor{
		{
			Name:        SearchToolName,
			Description: "Search the capability registry for agent capabilities matching a free-text query.",
		},
		{
			Name:        CallToolName,
			Description: "Invoke an agent capability directly by its capability id, bypassing the discovered tool list.",
		},
	}
	caps := b.caps.Get(ctx)
	if len(caps) > MaxListedCapabilities {
		caps = caps[:MaxListedCapabilities]
	}
	for _, c := range caps {
		tools = append(tools, ToolDescriptor{
			Name:        codec.Encode(c.CapabilityID),
			Description: fmt.Sprintf("%s (agent: %s, reputation: %.0f%%)", c.Description, c.AgentID, c.Reputation*100),
		})
	}
	return tools
}

// CallTool dispatches a named tool invocation: the search meta-tool, the
// call meta-tool, or a discovered capability resolved by encoded-name
// equality against the cache. All failures are converted to error-flagged
// results here; nothing propagates to the host as a fault.
func (b *BridgeClient) CallTool(ctx context.Context, name string, args map[string]any) *Result {
	switch name {
	case SearchToolName:
		return b.searchTool(ctx, args)
	case CallToolName:
		return b.callTool(ctx, args)
	}
	return b.capabilityTool(ctx, name, args)
}

func (b *BridgeClient) searchTool(ctx context.Context, args map[string]any) *Result {
	query := cast.ToString(args["query"])
	hits, err := b.registry.Search(ctx, query, SearchLimit)
	if err != nil {
		// Best-effort: a registry outage is not an invocation failure.
		b.logger("registry search for %q failed: %v", query, err)
		return &Result{Text: "The capability registry is currently unreachable. Please try again later."}
	}
	if len(hits) == 0 {
		return &Result{Text: "No capabilities matched your query."}
	}
	lines := make([]string, len(hits))
	for i, h := range hits {
		lines[i] = fmt.Sprintf("%s: %s (rep: %.0f%%)", h.CapabilityID, h.Description, h.Reputation*100)
	}
	return &Result{Text: strings.Join(lines, "\n")}
}

func (b *BridgeClient) callTool(ctx context.Context, args map[string]any) *Result {
	capabilityID := cast.ToString(args["capabilityId"])
	if capabilityID == "" {
		return &Result{Text: "the call tool requires a capabilityId argument", IsError: true}
	}
	inputs := cast.ToStringMap(args["inputs"])
	if inputs == nil {
		inputs = map[string]any{}
	}
	return b.invokeCapability(ctx, capabilityID, inputs)
}

func (b *BridgeClient) capabilityTool(ctx context.Context, name string, args map[string]any) *Result {
	// Authoritative resolution: ordered scan over the cache by encoded
	// form, first match wins. codec.Decode is not trustworthy here.
	var matched *capability.Capability
	for _, c := range b.caps.Get(ctx) {
		if codec.Encode(c.CapabilityID) == name {
			matched = &c
			break
		}
	}
	if matched == nil {
		return &Result{
			Text:    fmt.Sprintf("unknown tool %q; use the search tool to find available capabilities", name),
			IsError: true,
		}
	}

	payload := map[string]any{"query": cast.ToString(args["query"])}
	for k, v := range cast.ToStringMap(args["data"]) {
		payload[k] = v
	}
	return b.invokeCapability(ctx, matched.CapabilityID, payload)
}

func (b *BridgeClient) invokeCapability(ctx context.Context, capabilityID string, payload map[string]any) *Result {
	result, err := b.invoker.Invoke(ctx, capabilityID, payload)
	if err != nil {
		b.logger("invocation of %s failed: %v", capabilityID, err)
		return &Result{Text: err.Error(), IsError: true}
	}
	rendered, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return &Result{Text: fmt.Sprintf("%v", result)}
	}
	return &Result{Text: string(rendered)}
}
