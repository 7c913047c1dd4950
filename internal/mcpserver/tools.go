package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

func (g *GCMMCPServer) registerTools() {
	g.server.AddTool(registerTool(), g.handleRegister)
}

func registerTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "register",
		Description: "Return the cached GCM registration token for the running app version, or register with GCM and cache the new token.",
		InputSchema: json.RawMessage(`{
			"type": "object",
			"properties": {
				"sender_id": {"type": "string", "description": "GCM sender ID (project number). Defaults to the configured sender."}
			}
		}`),
	}
}

func (g *GCMMCPServer) handleRegister(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args struct {
		SenderID string `json:"sender_id"`
	}
	if len(req.Params.Arguments) > 0 {
		if err := json.Unmarshal(req.Params.Arguments, &args); err != nil {
			return errorResult(fmt.Sprintf("invalid arguments: %v", err)), nil
		}
	}
	if args.SenderID == "" {
		args.SenderID = g.defaultSender
	}
	if args.SenderID == "" {
		return errorResult("sender_id is required (no default sender configured)"), nil
	}

	attempt := g.manager.Register(ctx, args.SenderID)
	res, err := attempt.Wait(ctx)
	if err != nil {
		if res.AttemptID == "" {
			// ctx ended before the attempt did
			return errorResult(fmt.Sprintf("registration interrupted: %v", err)), nil
		}
		g.logger.Debug("register tool failed", "attempt", attempt.ID(), "error", err)
		return errorResult(res.Message()), nil
	}

	return jsonResult(map[string]any{
		"attempt_id": res.AttemptID,
		"token":      res.Token,
		"cached":     res.Cached,
		"state":      attempt.State().String(),
	})
}
