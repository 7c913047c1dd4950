package mcpserver

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

func (g *GCMMCPServer) registerResources() {
	g.server.AddResource(&mcp.Resource{
		URI:         "gcm://registration",
		Name:        "Registration",
		Description: "Cached GCM registration token and whether it is valid for the running app version",
		MIMEType:    "application/json",
	}, g.handleRegistrationResource)
}

func (g *GCMMCPServer) handleRegistrationResource(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	rec, valid, err := g.manager.Cached(ctx)
	if err != nil {
		return nil, err
	}

	status := map[string]any{
		"registered": rec.Token != "",
		"valid":      valid,
	}
	if rec.Token != "" {
		status["token"] = rec.Token
		status["app_version"] = rec.AppVersion
	}
	return jsonResource(req.Params.URI, status)
}
