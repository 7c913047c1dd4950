package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	gcmutility "github.com/neodroidpune/GCMUtility"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// GCMMCPServer wraps an MCP server exposing GCM registration as a tool and
// the cached registration as a resource.
type GCMMCPServer struct {
	server        *mcp.Server
	manager       *gcmutility.Manager
	defaultSender string
	logger        *slog.Logger
}

// New creates a new GCMMCPServer. defaultSender is used when the register
// tool is called without a sender_id.
func New(manager *gcmutility.Manager, defaultSender, version string, logger *slog.Logger) *GCMMCPServer {
	s := mcp.NewServer(&mcp.Implementation{
		Name:    "gcmutil",
		Version: version,
	}, nil)

	g := &GCMMCPServer{
		server:        s,
		manager:       manager,
		defaultSender: defaultSender,
		logger:        logger,
	}

	g.registerResources()
	g.registerTools()

	return g
}

// Run starts the MCP server on stdio and blocks until done.
func (g *GCMMCPServer) Run(ctx context.Context) error {
	return g.server.Run(ctx, &mcp.StdioTransport{})
}

// RunWithTransport starts the MCP server on a custom transport (for testing).
func (g *GCMMCPServer) RunWithTransport(ctx context.Context, t mcp.Transport) error {
	_, err := g.server.Connect(ctx, t, nil)
	return err
}

// jsonResult marshals v to JSON and returns it as a text CallToolResult.
func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshaling result: %w", err)
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: string(data)},
		},
	}, nil
}

// errorResult returns a CallToolResult with IsError=true.
func errorResult(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: msg},
		},
		IsError: true,
	}
}

func jsonResource(uri string, v any) (*mcp.ReadResourceResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshaling resource: %w", err)
	}
	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		}},
	}, nil
}
