package bridge

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
)

// Version of the bridge, reported to MCP hosts during initialization.
const Version = "0.1.0"

// NewMCPServer builds an MCP server exposing the bridge's tools. The tool
// list is snapshotted from ListTools at construction time: the meta-tools
// are always present, and the discovered slice reflects the cache at
// startup. CallTool still resolves capability tools against the live cache,
// so invocations keep working after the remote list changes.
func NewMCPServer(ctx context.Context, b *BridgeClient) *mcpserver.MCPServer {
	srv := mcpserver.NewMCPServer("acn-bridge", Version)
	for _, desc := range b.ListTools(ctx) {
		name := desc.Name
		srv.AddTool(toolFromDescriptor(desc), func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			res := b.CallTool(ctx, name, req.GetArguments())
			if res.IsError {
				return mcp.NewToolResultError(res.Text), nil
			}
			return mcp.NewToolResultText(res.Text), nil
		})
	}
	return srv
}

func toolFromDescriptor(d ToolDescriptor) mcp.Tool {
	switch d.Name {
	case SearchToolName:
		return mcp.NewTool(d.Name,
			mcp.WithDescription(d.Description),
			mcp.WithString("query", mcp.Required(), mcp.Description("Free-text search query")),
		)
	case CallToolName:
		return mcp.NewTool(d.Name,
			mcp.WithDescription(d.Description),
			mcp.WithString("capabilityId", mcp.Required(), mcp.Description("Capability id to invoke")),
			mcp.WithObject("inputs", mcp.Description("Input payload forwarded to the capability")),
		)
	default:
		return mcp.NewTool(d.Name,
			mcp.WithDescription(d.Description),
			mcp.WithString("query", mcp.Required(), mcp.Description("Primary query or instruction for the capability")),
			mcp.WithObject("data", mcp.Description("Additional structured fields merged into the payload")),
		)
	}
}
